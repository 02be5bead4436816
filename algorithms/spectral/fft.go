package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp. It is stateless and safe for concurrent use.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the forward transform of a real sequence.
// go-dsp handles all sizes, including non-power-of-2.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// ComputeInverseReal computes the inverse FFT and returns the real part.
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))
	for i, val := range result {
		realResult[i] = real(val)
	}
	return realResult
}

// HalfSpectrumInverse rebuilds the Hermitian-symmetric spectrum of length
// n from its n/2+1 non-negative-frequency bins and returns the real
// inverse transform. DC and (for even n) Nyquist bins are taken as real.
func (f *FFT) HalfSpectrumInverse(half []complex128, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	full := make([]complex128, n)
	bins := min(len(half), n/2+1)
	for k := 0; k < bins; k++ {
		full[k] = half[k]
	}
	full[0] = complex(real(full[0]), 0)
	if n%2 == 0 && bins == n/2+1 {
		full[n/2] = complex(real(full[n/2]), 0)
	}
	for k := 1; k < bins && n-k > k; k++ {
		full[n-k] = complex(real(half[k]), -imag(half[k]))
	}
	return f.ComputeInverseReal(full)
}
