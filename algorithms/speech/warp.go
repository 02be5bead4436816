package speech

import (
	"fmt"

	"github.com/RyanBlaney/sonido-core/algorithms/common"
	"github.com/RyanBlaney/sonido-core/algorithms/spectral"
)

// Warp selects the frequency axis a spectrum is resampled onto before a
// spectral LPC fit.
type Warp int

const (
	// WarpLinear keeps a linear axis but band-limits it to [0, maxFreq].
	WarpLinear Warp = iota
	// WarpMel spaces the bins equally on the mel scale over [0, maxFreq].
	WarpMel
	// WarpBark spaces the bins equally on the Bark scale over [0, maxFreq].
	WarpBark
)

func (w Warp) String() string {
	switch w {
	case WarpLinear:
		return "linear"
	case WarpMel:
		return "mel"
	case WarpBark:
		return "bark"
	default:
		return "unknown"
	}
}

// ParseWarp maps a warp name to a Warp.
func ParseWarp(name string) (Warp, error) {
	switch name {
	case "", "linear":
		return WarpLinear, nil
	case "mel":
		return WarpMel, nil
	case "bark":
		return WarpBark, nil
	default:
		return 0, fmt.Errorf("unknown frequency warp %q: %w", name, ErrInvalidConfig)
	}
}

// MarshalText implements encoding.TextMarshaler so configs carry the name.
func (w Warp) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Warp) UnmarshalText(text []byte) error {
	parsed, err := ParseWarp(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Axis returns the frequency in Hz of each of n warped bins over
// [0, maxFreq].
func (w Warp) Axis(n int, maxFreq float64) []float64 {
	switch w {
	case WarpMel:
		return spectral.MelAxis(n, maxFreq)
	case WarpBark:
		return spectral.BarkAxis(n, maxFreq)
	default:
		return common.Linspace(0, maxFreq, n)
	}
}

// Unwarp maps a position on the warped axis, as a fraction of its length
// in [0, 1], back to Hz.
func (w Warp) Unwarp(fraction, maxFreq float64) float64 {
	switch w {
	case WarpMel:
		return spectral.MelToHz(fraction * spectral.HzToMel(maxFreq))
	case WarpBark:
		lo := spectral.HzToBark(0)
		return spectral.BarkToHz(lo + fraction*(spectral.HzToBark(maxFreq)-lo))
	default:
		return fraction * maxFreq
	}
}

// UnwarpFormants converts formants of a model fitted on the warped axis
// (extracted with sampleRate 2, so frequencies are fractions of the axis)
// to Hz. Bandwidths are mapped through the local slope of the warp.
func (w Warp) UnwarpFormants(formants []Formant, maxFreq float64) []Formant {
	out := make([]Formant, len(formants))
	for i, f := range formants {
		lo := w.Unwarp(max(f.Frequency-f.Bandwidth/2, 0), maxFreq)
		hi := w.Unwarp(f.Frequency+f.Bandwidth/2, maxFreq)
		out[i] = Formant{
			Frequency: w.Unwarp(f.Frequency, maxFreq),
			Bandwidth: hi - lo,
			Pole:      f.Pole,
		}
	}
	return out
}

// WarpSpectrum resamples a one-sided magnitude spectrum of a signal at
// sampleRate onto bins points of the warped axis over [0, maxFreq], by
// linear interpolation.
func WarpSpectrum(mag []float64, sampleRate, maxFreq float64, bins int, warp Warp) ([]float64, error) {
	if len(mag) < 2 {
		return nil, fmt.Errorf("warp spectrum: need at least 2 bins, got %d: %w", len(mag), ErrInvalidConfig)
	}
	if bins < 2 {
		return nil, fmt.Errorf("warp spectrum: need at least 2 output bins, got %d: %w", bins, ErrInvalidConfig)
	}
	if sampleRate <= 0 || maxFreq <= 0 || maxFreq > sampleRate/2 {
		return nil, fmt.Errorf("warp spectrum: max frequency %g outside (0, %g]: %w",
			maxFreq, sampleRate/2, ErrInvalidConfig)
	}

	src := spectral.LinearAxis(len(mag), sampleRate)
	return common.Interp1(src, mag, warp.Axis(bins, maxFreq)), nil
}
