package filters

import "fmt"

// PreEmphasis implements a first-order pre-emphasis filter applied before
// time-domain linear prediction:
//
//	H(z) = 1 - α*z^-1,  y[n] = x[n] - α*x[n-1]
//
// It flattens the spectral tilt of voiced speech so the all-pole fit spends
// its poles on resonances rather than on the glottal roll-off.
//
// References:
//   - L.R. Rabiner, R.W. Schafer, "Digital Processing of Speech Signals",
//     Prentice-Hall, 1978, Chapter 4
type PreEmphasis struct {
	coefficient float64 // Pre-emphasis coefficient α
}

// DefaultPreEmphasis is the coefficient widely used for speech.
const DefaultPreEmphasis = 0.97

// NewPreEmphasis creates a pre-emphasis filter with specified coefficient.
// A coefficient of zero yields an identity filter.
func NewPreEmphasis(coefficient float64) (*PreEmphasis, error) {
	if coefficient < 0.0 || coefficient >= 1.0 {
		return nil, fmt.Errorf("pre-emphasis coefficient must be in [0, 1), got %f", coefficient)
	}
	return &PreEmphasis{coefficient: coefficient}, nil
}

// Apply filters a whole signal from a zero initial state. The filter holds
// no running state, so one filter can be shared by goroutines.
func (pe *PreEmphasis) Apply(input []float64) []float64 {
	output := make([]float64, len(input))
	prev := 0.0
	for i, sample := range input {
		output[i] = sample - pe.coefficient*prev
		prev = sample
	}
	return output
}

// Invert undoes Apply with the all-pole de-emphasis filter
// y[n] = x[n] + α*y[n-1].
func (pe *PreEmphasis) Invert(input []float64) []float64 {
	output := make([]float64, len(input))
	prev := 0.0
	for i, sample := range input {
		prev = sample + pe.coefficient*prev
		output[i] = prev
	}
	return output
}
