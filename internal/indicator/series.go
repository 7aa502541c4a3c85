// Package indicator computes technical indicators over candle slices.
//
// Every series function returns a slice as long as its input, indexed by
// candle position. Entries before the indicator's first valid index are NaN,
// so callers read series[i] for candle i without any offset arithmetic.
package indicator

import "math"

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// FirstValid returns the index of the first non-NaN value, or -1.
func FirstValid(series []float64) int {
	for i, v := range series {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}
