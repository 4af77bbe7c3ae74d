package timesync

import (
	"math"
	"sort"
)

// Median computes the median of values, ignoring NaNs. Returns NaN for an
// empty (or all-NaN) input.
func Median(values []float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// MedianDiff returns the median consecutive difference of a time series,
// i.e. its typical sample period.
func MedianDiff(ts []float64) float64 {
	return Median(Diffs(ts))
}

// SearchSorted returns the insertion index of x in the sorted slice ts,
// i.e. the count of entries strictly less than x.
func SearchSorted(ts []float64, x float64) int {
	return sort.SearchFloat64s(ts, x)
}
