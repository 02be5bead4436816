package speech

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/sonido-core/logging"
)

// ErrInvalidConfig is returned for orders, sizes or rates that cannot be
// analyzed.
var ErrInvalidConfig = errors.New("speech: invalid configuration")

const (
	// energyFloor is the prediction error, relative to R[0], below which the
	// Levinson recursion stops and the model is flagged ill-conditioned.
	energyFloor = 1e-12

	// spectrumFloor bounds |A(e^jω)|² away from zero in Spectrum.
	spectrumFloor = 1e-20
)

// Model is an all-pole model A(z) = 1 + a1*z^-1 + ... + ap*z^-p.
// Coefficients are in descending powers of z, so they can be handed to the
// root finder as they are.
type Model struct {
	Coefficients    []float64 `json:"coefficients"`     // a[0] = 1
	Autocorrelation []float64 `json:"autocorrelation"`  // R[0..p]
	Reflection      []float64 `json:"reflection_coeff"` // k[1..p], nil for spectral fits
	Order           int       `json:"order"`
	IllConditioned  bool      `json:"ill_conditioned"` // silent frame or singular normal equations
}

// Gain returns the prediction error energy of the model.
func (m *Model) Gain() float64 {
	return Gain(m.Coefficients, m.Autocorrelation)
}

// silentModel is the model of an all-zero frame: A(z) = 1.
func silentModel(order int, r []float64) *Model {
	a := make([]float64, order+1)
	a[0] = 1
	return &Model{
		Coefficients:    a,
		Autocorrelation: r,
		Reflection:      make([]float64, order),
		Order:           order,
		IllConditioned:  true,
	}
}

// Autocorrelation returns the biased autocorrelation R[0..maxLag] of x,
// R[k] = Σ x[n]*x[n+k].
func Autocorrelation(x []float64, maxLag int) []float64 {
	r := make([]float64, maxLag+1)
	for k := 0; k <= maxLag && k < len(x); k++ {
		r[k] = vecmath.DotProduct(x[:len(x)-k], x[k:])
	}
	return r
}

// LPC fits an order-p all-pole model to a (typically windowed) frame with
// the autocorrelation method and the Levinson-Durbin recursion. An
// all-zero frame yields A(z) = 1 with IllConditioned set; it is not an
// error.
func LPC(frame []float64, order int) (*Model, error) {
	if order <= 0 {
		return nil, fmt.Errorf("lpc: order must be positive, got %d: %w", order, ErrInvalidConfig)
	}
	if len(frame) <= order {
		return nil, fmt.Errorf("lpc: frame of %d samples too short for order %d: %w",
			len(frame), order, ErrInvalidConfig)
	}

	r := Autocorrelation(frame, order)
	return Levinson(r, order)
}

// Levinson solves the autocorrelation normal equations for R[0..order].
// When the prediction error collapses, higher-order coefficients are left
// at zero and the model is flagged ill-conditioned.
func Levinson(r []float64, order int) (*Model, error) {
	if order <= 0 || len(r) < order+1 {
		return nil, fmt.Errorf("levinson: need %d autocorrelation values, got %d: %w",
			order+1, len(r), ErrInvalidConfig)
	}
	r = r[:order+1]

	if r[0] <= 0 || math.IsNaN(r[0]) || math.IsInf(r[0], 0) {
		logging.WithFields(logging.Fields{
			"component": "lpc",
			"order":     order,
		}).Debug("Silent frame, returning flat model")
		return silentModel(order, r), nil
	}

	a := make([]float64, order+1)
	k := make([]float64, order)
	prev := make([]float64, order+1)
	a[0] = 1
	e := r[0]

	m := &Model{Coefficients: a, Autocorrelation: r, Reflection: k, Order: order}

	for i := 1; i <= order; i++ {
		if e <= energyFloor*r[0] {
			m.IllConditioned = true
			break
		}

		acc := r[i]
		for j := 1; j < i; j++ {
			acc += a[j] * r[i-j]
		}
		ki := -acc / e
		k[i-1] = ki

		copy(prev, a)
		a[i] = ki
		for j := 1; j < i; j++ {
			a[j] = prev[j] + ki*prev[i-j]
		}

		e *= 1 - ki*ki
	}

	if m.IllConditioned {
		logging.WithFields(logging.Fields{
			"component": "lpc",
			"order":     order,
		}).Debug("Prediction error vanished before full order")
	}

	return m, nil
}

// Gain returns Σ a[k]*R[k], the residual energy of the predictor, clamped
// at zero.
func Gain(a, r []float64) float64 {
	n := min(len(a), len(r))
	g := vecmath.DotProduct(a[:n], r[:n])
	return max(g, 0)
}

// Spectrum evaluates gain / |A(e^jω)|² at nfft/2+1 equally spaced
// frequencies from 0 to π.
func Spectrum(a []float64, gain float64, nfft int) ([]float64, error) {
	if nfft < 2 || nfft < len(a) {
		return nil, fmt.Errorf("lpc spectrum: nfft %d too small for %d coefficients: %w",
			nfft, len(a), ErrInvalidConfig)
	}

	padded := make([]float64, nfft)
	copy(padded, a)
	response := fft.FFTReal(padded)

	bins := nfft/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for k := range bins {
		re[k] = real(response[k])
		im[k] = imag(response[k])
	}
	den := make([]float64, bins)
	vecmath.Power(den, re, im)

	s := make([]float64, bins)
	for k, d := range den {
		s[k] = gain / max(d, spectrumFloor)
	}
	return s, nil
}

// Residual runs the inverse filter A(z) over x and returns the prediction
// error e[n] = Σ a[k]*x[n-k], with x[n] = 0 for n < 0.
func Residual(x, a []float64) []float64 {
	residual := make([]float64, len(x))
	for n := range x {
		acc := 0.0
		for k := 0; k < len(a) && k <= n; k++ {
			acc += a[k] * x[n-k]
		}
		residual[n] = acc
	}
	return residual
}

// Synthesize runs the all-pole filter 1/A(z) over an excitation signal,
// the inverse of Residual.
func Synthesize(excitation, a []float64) []float64 {
	y := make([]float64, len(excitation))
	for n := range excitation {
		acc := excitation[n]
		for k := 1; k < len(a) && k <= n; k++ {
			acc -= a[k] * y[n-k]
		}
		if len(a) > 0 && a[0] != 0 {
			acc /= a[0]
		}
		y[n] = acc
	}
	return y
}
