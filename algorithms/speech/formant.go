package speech

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/RyanBlaney/sonido-core/algorithms/polynomial"
)

// Formant represents a single resonance of an all-pole model.
type Formant struct {
	Frequency float64    `json:"frequency"` // Hz
	Bandwidth float64    `json:"bandwidth"` // Hz, -3 dB width
	Pole      complex128 `json:"-"`         // upper half-plane pole it came from
}

// FormantExtract finds the resonances of A(z) with the default root finder.
func FormantExtract(a []float64, sampleRate float64) ([]Formant, error) {
	return FormantExtractWith(polynomial.NewRootFinder(nil), a, sampleRate)
}

// FormantExtractWith finds the roots of A(z) and keeps one pole per
// conjugate pair inside the unit circle. A pole r*e^jθ maps to frequency
// θ*fs/2π and bandwidth -ln(r)*fs/π. Formants are returned in ascending
// frequency, at most order/2 of them. A flat model (silent frame) yields
// no formants.
func FormantExtractWith(finder *polynomial.RootFinder, a []float64, sampleRate float64) ([]Formant, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("formant extract: sample rate must be positive, got %g: %w", sampleRate, ErrInvalidConfig)
	}
	if len(a) == 0 || a[0] == 0 {
		return nil, fmt.Errorf("formant extract: leading coefficient must be nonzero: %w", ErrInvalidConfig)
	}
	order := len(a) - 1
	if order < 2 {
		return []Formant{}, nil
	}

	res, err := finder.Find(a)
	if err != nil {
		return nil, fmt.Errorf("formant extract: %w", err)
	}

	formants := make([]Formant, 0, order/2)
	for _, z := range res.Roots {
		r := cmplx.Abs(z)
		if imag(z) <= 0 || r >= 1 || r == 0 {
			continue
		}
		formants = append(formants, Formant{
			Frequency: cmplx.Phase(z) * sampleRate / (2 * math.Pi),
			Bandwidth: -math.Log(r) * sampleRate / math.Pi,
			Pole:      z,
		})
	}

	sort.SliceStable(formants, func(i, j int) bool {
		return formants[i].Frequency < formants[j].Frequency
	})
	if len(formants) > order/2 {
		formants = formants[:order/2]
	}
	return formants, nil
}

// SelectFormants drops formants below minFreq or wider than maxBandwidth
// and keeps at most maxCount of what remains. Zero limits are ignored.
func SelectFormants(formants []Formant, minFreq, maxBandwidth float64, maxCount int) []Formant {
	var selected []Formant
	for _, f := range formants {
		if f.Frequency < minFreq {
			continue
		}
		if maxBandwidth > 0 && f.Bandwidth > maxBandwidth {
			continue
		}
		selected = append(selected, f)
		if maxCount > 0 && len(selected) == maxCount {
			break
		}
	}
	if selected == nil {
		return []Formant{}
	}
	return selected
}

// FormantFrequencies extracts just the formant frequencies.
func FormantFrequencies(formants []Formant) []float64 {
	frequencies := make([]float64, len(formants))
	for i, f := range formants {
		frequencies[i] = f.Frequency
	}
	return frequencies
}

// VocalTractLength estimates the length in cm of a uniform tube closed at
// one end whose resonances match the formants, VTL = (2n-1)*c / (4*Fn),
// averaged over formants giving a plausible length. It returns 0 when none
// does.
func VocalTractLength(formants []Formant) float64 {
	const speedOfSound = 35000.0 // cm/s

	total := 0.0
	count := 0
	for i, f := range formants {
		if f.Frequency <= 0 {
			continue
		}
		n := float64(i + 1)
		vtl := (2*n - 1) * speedOfSound / (4 * f.Frequency)
		if vtl >= 10.0 && vtl <= 25.0 {
			total += vtl
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
