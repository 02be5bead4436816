package common

import (
	"math"
	"sort"
)

// InterpolateAt linearly interpolates data at a fractional index. Indices
// before the first sample or past the last one clamp to the edge values.
func InterpolateAt(data []float64, index float64) float64 {
	if len(data) == 0 || math.IsNaN(index) {
		return 0.0
	}

	if index <= 0 {
		return data[0]
	}
	if index >= float64(len(data)-1) {
		return data[len(data)-1]
	}

	i := int(index)
	frac := index - float64(i)

	return data[i] + frac*(data[i+1]-data[i])
}

// Interpolate performs linear interpolation of (x, y) at xi. x must be
// ascending; xi outside [x[0], x[len-1]] clamps to the edge values.
func Interpolate(x, y []float64, xi float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0.0
	}
	if len(x) == 1 || xi <= x[0] {
		return y[0]
	}
	if xi >= x[len(x)-1] {
		return y[len(y)-1]
	}

	// first index with x[right] > xi
	right := sort.Search(len(x), func(i int) bool { return x[i] > xi })
	left := right - 1

	span := x[right] - x[left]
	if span == 0 {
		return y[left]
	}
	t := (xi - x[left]) / span
	return y[left] + t*(y[right]-y[left])
}

// Interp1 evaluates the piecewise-linear function through (x, y) at every
// point of xi.
func Interp1(x, y, xi []float64) []float64 {
	out := make([]float64, len(xi))
	for i, v := range xi {
		out[i] = Interpolate(x, y, v)
	}
	return out
}
