// Package summary holds per-subcatchment aggregates and the display ranges
// derived from them.
package summary

import (
	"github.com/weppcloud/gldash/pkg/query"
)

// Row is one subcatchment's measures.
type Row = query.Record

// Summary maps topaz_id to its row.
type Summary map[string]Row

// FromRecords keys records by the string-cast idKey column. Records without
// an id are dropped; a later duplicate replaces an earlier one.
func FromRecords(records []query.Record, idKey string) Summary {
	out := make(Summary, len(records))
	for _, r := range records {
		id := r.String(idKey)
		if id == "" {
			continue
		}
		out[id] = r
	}
	return out
}

// Members is a set of topaz ids, usually the subcatchment collection.
type Members interface {
	Has(topazID string) bool
}

// Restrict drops rows whose topaz_id is not in ids.
func (s Summary) Restrict(ids Members) Summary {
	if s == nil || ids == nil {
		return s
	}
	out := make(Summary, len(s))
	for id, row := range s {
		if ids.Has(id) {
			out[id] = row
		}
	}
	return out
}

// Value returns the finite value of measure for topazID.
func (s Summary) Value(topazID, measure string) (float64, bool) {
	row, ok := s[topazID]
	if !ok {
		return 0, false
	}
	return row.Float(measure)
}
