package spectral

import (
	"math"
)

// HzToMel converts frequency in Hz to mel scale
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelAxis returns n frequencies in Hz from 0 to maxFreq, equally spaced
// on the mel scale.
func MelAxis(n int, maxFreq float64) []float64 {
	if n <= 0 {
		return []float64{}
	}
	axis := make([]float64, n)
	if n == 1 {
		return axis
	}
	top := HzToMel(maxFreq)
	for i := range axis {
		axis[i] = MelToHz(top * float64(i) / float64(n-1))
	}
	// exact endpoint
	axis[n-1] = maxFreq
	return axis
}

// LinearAxis returns the center frequency in Hz of each non-negative
// frequency bin of an FFT with the given bin count at sampleRate.
func LinearAxis(bins int, sampleRate float64) []float64 {
	if bins <= 0 {
		return []float64{}
	}
	nfft := 2 * (bins - 1)
	axis := make([]float64, bins)
	if nfft == 0 {
		return axis
	}
	for k := range axis {
		axis[k] = float64(k) * sampleRate / float64(nfft)
	}
	return axis
}
