package periodicity

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-vecmath"

	"github.com/RyanBlaney/sonido-core/algorithms/windowing"
)

// IFDetector estimates the instantaneous frequency of the component of a
// signal near a center frequency. It projects the frame onto a
// Nuttall-windowed complex exponential at the center frequency twice, one
// sample apart, and reads the frequency off the phase advance between the
// two projections.
type IFDetector struct {
	center     float64 // cycles per sample
	resolution float64
	size       int
	re, im     []float64 // kernel w[n]·e^{-jωc n}
}

// NewIFDetector creates a detector at center frequency fc with frequency
// resolution fres, both in cycles per sample. The kernel spans about
// 4/fres samples, the main lobe half width of a Nuttall window.
func NewIFDetector(fc, fres float64) (*IFDetector, error) {
	if fc <= 0 || fc >= 0.5 {
		return nil, fmt.Errorf("if detector: center frequency %g outside (0, 0.5): %w", fc, ErrInvalidConfig)
	}
	if fres <= 0 || fres >= 0.5 {
		return nil, fmt.Errorf("if detector: resolution %g outside (0, 0.5): %w", fres, ErrInvalidConfig)
	}

	nh := max(int(math.Ceil(4/fres)), 2)
	w, err := windowing.New(windowing.KindNuttall, nh, true)
	if err != nil {
		return nil, fmt.Errorf("if detector: %w", err)
	}

	d := &IFDetector{
		center:     fc,
		resolution: fres,
		size:       nh,
		re:         make([]float64, nh),
		im:         make([]float64, nh),
	}
	omega := 2 * math.Pi * fc
	for n, c := range w.Coefficients {
		s, co := math.Sincos(omega * float64(n))
		d.re[n] = c * co
		d.im[n] = -c * s
	}
	return d, nil
}

// Size is the number of samples Estimate reads.
func (d *IFDetector) Size() int {
	return d.size + 1
}

// Center returns the center frequency in cycles per sample.
func (d *IFDetector) Center() float64 {
	return d.center
}

// Estimate returns the instantaneous frequency in cycles per sample of the
// first Size() samples of frame; shorter frames are zero padded. A silent
// frame gives 0.
func (d *IFDetector) Estimate(frame []float64) float64 {
	if len(frame) < d.Size() {
		padded := make([]float64, d.Size())
		copy(padded, frame)
		frame = padded
	}

	y0 := d.project(frame[:d.size])
	y1 := d.project(frame[1 : d.size+1])
	advance := y1 * cmplx.Conj(y0)
	if advance == 0 {
		return 0
	}
	return cmplx.Phase(advance) / (2 * math.Pi)
}

func (d *IFDetector) project(x []float64) complex128 {
	return complex(vecmath.DotProduct(d.re, x), vecmath.DotProduct(d.im, x))
}
