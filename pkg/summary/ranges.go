package summary

import (
	"math"
	"sort"
)

// Range widening applied when every value is equal.
const (
	EpsilonDefault = 1.0
	EpsilonEvent   = 0.001
)

// Range is a display-scaling domain. Max > Min always holds for ranges
// produced by ComputeRanges.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DiffRange is a diverging domain symmetric about zero, sized from the 5th
// and 95th percentile of scenario-vs-base differences.
type DiffRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	P5  float64 `json:"p5"`
	P95 float64 `json:"p95"`
}

// Ranges maps measure name to Range.
type Ranges map[string]Range

// DiffRanges maps measure name to DiffRange.
type DiffRanges map[string]DiffRange

// ComputeRanges tracks min/max per measure in one pass over s. Non-finite
// values are skipped. A measure with no values gets {0, 1}; a flat measure
// gets {v, v+eps}.
func ComputeRanges(s Summary, measures []string, eps float64) Ranges {
	lo := make([]float64, len(measures))
	hi := make([]float64, len(measures))
	for i := range measures {
		lo[i] = math.Inf(1)
		hi[i] = math.Inf(-1)
	}

	for _, row := range s {
		for i, m := range measures {
			v, ok := row.Float(m)
			if !ok {
				continue
			}
			if v < lo[i] {
				lo[i] = v
			}
			if v > hi[i] {
				hi[i] = v
			}
		}
	}

	out := make(Ranges, len(measures))
	for i, m := range measures {
		if math.IsInf(lo[i], 1) {
			out[m] = Range{Min: 0, Max: 1}
			continue
		}
		r := Range{Min: lo[i], Max: hi[i]}
		if r.Max <= r.Min {
			r.Max = r.Min + eps
		}
		out[m] = r
	}
	return out
}

// ComputeDiffRanges pairs scenario and base rows by topaz_id and computes
// base − scenario per measure. Measures without a single pair are omitted.
// A zero half-width is widened to eps so normalisation stays defined.
func ComputeDiffRanges(scenario, base Summary, measures []string, eps float64) DiffRanges {
	out := make(DiffRanges)
	if len(scenario) == 0 || len(base) == 0 {
		return out
	}
	for _, m := range measures {
		diffs := make([]float64, 0, len(scenario))
		for id, row := range scenario {
			sv, ok := row.Float(m)
			if !ok {
				continue
			}
			brow, ok := base[id]
			if !ok {
				continue
			}
			bv, ok := brow.Float(m)
			if !ok {
				continue
			}
			diffs = append(diffs, bv-sv)
		}
		if len(diffs) == 0 {
			continue
		}
		sort.Float64s(diffs)
		p5 := PercentileIndex(diffs, 0.05)
		p95 := PercentileIndex(diffs, 0.95)
		half := math.Max(math.Abs(p5), math.Abs(p95))
		if half == 0 {
			half = eps
		}
		out[m] = DiffRange{Min: -half, Max: half, P5: p5, P95: p95}
	}
	return out
}

// PercentileIndex returns sorted[floor(n*q)], clamped to the last element.
func PercentileIndex(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(math.Floor(float64(len(sorted)) * q))
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	if i < 0 {
		i = 0
	}
	return sorted[i]
}

// Normalize maps v into [0, 1] over r.
func Normalize(v float64, r Range) float64 {
	span := r.Max - r.Min
	if span <= 0 {
		return 0
	}
	return clamp((v-r.Min)/span, 0, 1)
}

// NormalizeDiff maps a difference into [-1, 1] by the range half-width.
func NormalizeDiff(diff float64, r DiffRange) float64 {
	if r.Max <= 0 {
		return 0
	}
	return clamp(diff/r.Max, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
