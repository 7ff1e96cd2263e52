// Package query talks to the remote columnar Query Engine.
package query

import (
	"fmt"
	"math"
	"strconv"
)

// Payload is a declarative aggregation request.
type Payload struct {
	Datasets     []Dataset     `json:"datasets"`
	Joins        []Join        `json:"joins,omitempty"`
	Columns      []string      `json:"columns,omitempty"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`
	Filters      []Filter      `json:"filters,omitempty"`
	GroupBy      []string      `json:"group_by,omitempty"`
}

// Dataset names one table under the run tree and the alias SQL uses for it.
type Dataset struct {
	Path  string `json:"path"`
	Alias string `json:"alias"`
}

// Join joins two dataset aliases on shared columns.
type Join struct {
	Left  string   `json:"left"`
	Right string   `json:"right"`
	On    []string `json:"on"`
	Type  string   `json:"type,omitempty"`
}

// Aggregation is one SQL expression with its output alias.
type Aggregation struct {
	SQL   string `json:"sql"`
	Alias string `json:"alias"`
}

// Filter is a column predicate.
type Filter struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  any    `json:"value"`
}

// WithDataset returns a shallow copy of p whose first dataset points at path.
// Callers use it to walk candidate paths without rebuilding the payload.
func (p *Payload) WithDataset(path string) *Payload {
	cp := *p
	cp.Datasets = append([]Dataset(nil), p.Datasets...)
	if len(cp.Datasets) > 0 {
		cp.Datasets[0].Path = path
	}
	return &cp
}

// Result is a parsed Query Engine response.
type Result struct {
	Records []Record `json:"records"`
}

// Record is one result row.
type Record map[string]any

// Float returns the numeric value of key. Strings that parse as numbers count;
// nulls, missing keys and non-finite values do not.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// String returns key rendered as a string; numbers drop a trailing ".0"
// so topaz ids read back as "22", not "22.0".
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
