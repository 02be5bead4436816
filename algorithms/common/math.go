package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Norm(data, 2) / math.Sqrt(float64(len(data)))
}

// RelativeRMSError returns ||want-got|| / ||want||, or the absolute RMS
// difference when want is all zero.
func RelativeRMSError(want, got []float64) float64 {
	n := min(len(want), len(got))
	if n == 0 {
		return 0
	}
	diff := make([]float64, n)
	floats.SubTo(diff, want[:n], got[:n])
	ref := floats.Norm(want[:n], 2)
	if ref == 0 {
		return RMS(diff)
	}
	return floats.Norm(diff, 2) / ref
}

// IsFinite reports whether every value is neither NaN nor infinite.
func IsFinite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ArgMax returns the index of the first largest element in data[from:to],
// or -1 for an empty range.
func ArgMax(data []float64, from, to int) int {
	from = max(from, 0)
	to = min(to, len(data))
	best := -1
	for i := from; i < to; i++ {
		if best < 0 || data[i] > data[best] {
			best = i
		}
	}
	return best
}

// ArgMin returns the index of the first smallest element in data[from:to],
// or -1 for an empty range.
func ArgMin(data []float64, from, to int) int {
	from = max(from, 0)
	to = min(to, len(data))
	best := -1
	for i := from; i < to; i++ {
		if best < 0 || data[i] < data[best] {
			best = i
		}
	}
	return best
}

// Clamp constrains a value to a range
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
