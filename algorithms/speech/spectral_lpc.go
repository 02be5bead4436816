package speech

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-core/algorithms/linalg"
	"github.com/RyanBlaney/sonido-core/logging"
)

// SpectralLPC fits an order-p all-pole model to a magnitude spectrum given
// on bins equally spaced from 0 to π (len(mag) = nfft/2+1). The power
// spectrum is turned into an autocorrelation by an inverse real FFT and the
// Toeplitz normal equations are solved with a pivoted LU factorization.
// Feeding a spectrum resampled onto a warped axis gives a model whose
// resonances live on that axis; see Warp.
func SpectralLPC(mag []float64, order int) (*Model, error) {
	if order <= 0 {
		return nil, fmt.Errorf("spectral lpc: order must be positive, got %d: %w", order, ErrInvalidConfig)
	}
	if len(mag) < 2 {
		return nil, fmt.Errorf("spectral lpc: need at least 2 bins, got %d: %w", len(mag), ErrInvalidConfig)
	}
	nfft := 2 * (len(mag) - 1)
	if order >= nfft {
		return nil, fmt.Errorf("spectral lpc: order %d needs more than %d bins: %w",
			order, len(mag), ErrInvalidConfig)
	}

	r := PowerAutocorrelation(mag, order)

	if r[0] <= 0 {
		logging.WithFields(logging.Fields{
			"component": "spectral_lpc",
			"order":     order,
		}).Debug("Silent spectrum, returning flat model")
		m := silentModel(order, r)
		m.Reflection = nil
		return m, nil
	}

	toeplitz := mat.NewDense(order, order, nil)
	rhs := make([]float64, order)
	for i := range order {
		for j := range order {
			d := i - j
			if d < 0 {
				d = -d
			}
			toeplitz.Set(i, j, r[d])
		}
		rhs[i] = -r[i+1]
	}

	lu, err := linalg.Decompose(toeplitz, 0)
	if err != nil {
		return nil, fmt.Errorf("spectral lpc: %w", err)
	}
	x, err := lu.Solve(rhs)
	if err != nil {
		return nil, fmt.Errorf("spectral lpc: %w", err)
	}

	a := make([]float64, order+1)
	a[0] = 1
	copy(a[1:], x)

	return &Model{
		Coefficients:    a,
		Autocorrelation: r,
		Order:           order,
		IllConditioned:  lu.IllConditioned(),
	}, nil
}

// PowerAutocorrelation returns R[0..maxLag] of the zero-phase signal whose
// one-sided magnitude spectrum is mag, i.e. the inverse FFT of |mag|².
func PowerAutocorrelation(mag []float64, maxLag int) []float64 {
	nfft := 2 * (len(mag) - 1)
	power := make([]complex128, len(mag))
	for k, m := range mag {
		power[k] = complex(m*m, 0)
	}

	f := fourier.NewFFT(nfft)
	seq := f.Sequence(nil, power)

	r := make([]float64, maxLag+1)
	for k := 0; k <= maxLag && k < nfft; k++ {
		r[k] = seq[k] / float64(nfft)
	}
	return r
}
