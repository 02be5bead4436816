package filters

import (
	"fmt"
	"math"
)

// DCRemoval is a one-pole, one-zero DC blocker:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// See J. O. Smith, "Introduction to Digital Filters", DC Blocker.
type DCRemoval struct {
	pole float64 // R, 0 < R < 1
}

// NewDCRemoval creates a DC blocker whose -3 dB point sits near cutoff Hz,
// using R = 1 - 2*pi*fc/fs.
func NewDCRemoval(sampleRate, cutoff float64) (*DCRemoval, error) {
	if sampleRate <= 0 || cutoff <= 0 || cutoff >= sampleRate/(2*math.Pi) {
		return nil, fmt.Errorf("dc cutoff %g Hz out of range for sample rate %g", cutoff, sampleRate)
	}
	return &DCRemoval{pole: 1 - 2*math.Pi*cutoff/sampleRate}, nil
}

// Apply filters a whole signal from zero state.
func (dc *DCRemoval) Apply(input []float64) []float64 {
	out := make([]float64, len(input))
	x1, y1 := 0.0, 0.0
	for i, v := range input {
		y1 = v - x1 + dc.pole*y1
		x1 = v
		out[i] = y1
	}
	return out
}
