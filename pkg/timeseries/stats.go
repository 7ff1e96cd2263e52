package timeseries

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Quantile returns the q-th quantile of sorted by linear interpolation
// between the two nearest ranks. Empty input yields NaN.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := float64(n-1) * q
	base := int(math.Floor(pos))
	if base < 0 {
		return sorted[0]
	}
	if base+1 >= n {
		return sorted[n-1]
	}
	rest := pos - float64(base)
	return sorted[base] + rest*(sorted[base+1]-sorted[base])
}

// Box is a five-number summary plus the mean.
type Box struct {
	Year   int     `json:"year"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	N      int     `json:"n"`
}

// BoxStats summarises values. Non-finite values are ignored; values is not
// modified.
func BoxStats(values []float64) Box {
	v := make([]float64, 0, len(values))
	for _, x := range values {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			v = append(v, x)
		}
	}
	if len(v) == 0 {
		nan := math.NaN()
		return Box{Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan, Mean: nan}
	}
	sort.Float64s(v)
	return Box{
		Min:    floats.Min(v),
		Q1:     Quantile(v, 0.25),
		Median: Quantile(v, 0.5),
		Q3:     Quantile(v, 0.75),
		Max:    floats.Max(v),
		Mean:   floats.Sum(v) / float64(len(v)),
		N:      len(v),
	}
}
