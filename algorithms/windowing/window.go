package windowing

import (
	"fmt"
	"math"
)

// Kind identifies a window shape.
type Kind string

const (
	KindRectangular    Kind = "rectangular"
	KindHann           Kind = "hann"
	KindHamming        Kind = "hamming"
	KindBlackman       Kind = "blackman"
	KindBlackmanHarris Kind = "blackman_harris"
	KindBartlett       Kind = "bartlett"
	KindWelch          Kind = "welch"
	KindNuttall        Kind = "nuttall"
)

// Kinds lists every supported window kind.
func Kinds() []Kind {
	return []Kind{
		KindRectangular, KindHann, KindHamming, KindBlackman,
		KindBlackmanHarris, KindBartlett, KindWelch, KindNuttall,
	}
}

// ParseKind maps a window name to a Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown window type %q", name)
}

// MinOversample is the smallest ratio of frame size to hop for which
// overlapping periodic windows of this kind cover every sample with a
// nonzero weight, i.e. the overlap-add completeness bound.
func (k Kind) MinOversample() int {
	switch k {
	case KindRectangular, KindHamming:
		return 1
	default:
		return 2
	}
}

// Window holds precomputed window coefficients.
type Window struct {
	Kind         Kind      `json:"type"`
	Size         int       `json:"size"`
	Symmetric    bool      `json:"symmetric"`
	Coefficients []float64 `json:"coefficients"`
}

// New generates a window. Periodic windows (symmetric=false) are the ones
// to use for overlap-add analysis/synthesis.
func New(kind Kind, size int, symmetric bool) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be > 0: %d", size)
	}

	w := &Window{
		Kind:         kind,
		Size:         size,
		Symmetric:    symmetric,
		Coefficients: make([]float64, size),
	}

	denominator := float64(size)
	if symmetric {
		denominator = float64(size - 1)
	}
	if denominator == 0 {
		// single-point windows are flat
		w.Coefficients[0] = 1
		return w, nil
	}

	switch kind {
	case KindRectangular:
		for i := range w.Coefficients {
			w.Coefficients[i] = 1
		}
	case KindHann:
		cosineSum(w.Coefficients, denominator, 0.5, 0.5)
	case KindHamming:
		cosineSum(w.Coefficients, denominator, 0.54, 0.46)
	case KindBlackman:
		cosineSum(w.Coefficients, denominator, 0.42, 0.5, 0.08)
	case KindBlackmanHarris:
		cosineSum(w.Coefficients, denominator, 0.35875, 0.48829, 0.14128, 0.01168)
	case KindNuttall:
		cosineSum(w.Coefficients, denominator, 0.355768, 0.487396, 0.144232, 0.012604)
	case KindBartlett:
		half := denominator / 2
		for i := range w.Coefficients {
			w.Coefficients[i] = 1 - math.Abs((float64(i)-half)/half)
		}
	case KindWelch:
		half := denominator / 2
		for i := range w.Coefficients {
			r := (float64(i) - half) / half
			w.Coefficients[i] = 1 - r*r
		}
	default:
		return nil, fmt.Errorf("unknown window type %q", kind)
	}

	return w, nil
}

// cosineSum fills dst with a0 - a1*cos(x) + a2*cos(2x) - a3*cos(3x) ...
func cosineSum(dst []float64, denominator float64, a ...float64) {
	for i := range dst {
		arg := 2 * math.Pi * float64(i) / denominator
		v := 0.0
		sign := 1.0
		for k, ak := range a {
			v += sign * ak * math.Cos(float64(k)*arg)
			sign = -sign
		}
		dst[i] = v
	}
}

// Sum returns the sum of the coefficients (the coherent gain times size).
func (w *Window) Sum() float64 {
	s := 0.0
	for _, c := range w.Coefficients {
		s += c
	}
	return s
}
