package stats

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0..100) of values by linear
// interpolation between closest ranks: with the sorted sample x and
// h = (n-1)*p/100, the result is x[floor(h)] + (h-floor(h))*(x[floor(h)+1]-x[floor(h)]).
// This matches numpy's default "linear" method. values is not modified.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p / 100
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Normalize min-max scales values to [0, 1]. ok is false when all values
// are equal and no scale exists.
func Normalize(values []float64) (norm []float64, ok bool) {
	if len(values) == 0 {
		return nil, false
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return nil, false
	}
	span := hi - lo
	norm = make([]float64, len(values))
	for i, v := range values {
		norm[i] = (v - lo) / span
	}
	return norm, true
}
