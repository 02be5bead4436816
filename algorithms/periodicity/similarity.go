package periodicity

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// ErrInvalidConfig reports unusable correlogram or detector parameters.
var ErrInvalidConfig = errors.New("periodicity: invalid configuration")

// energyFloor is the frame energy below which a frame counts as silent.
const energyFloor = 1e-20

// Method selects the similarity function of a correlogram row.
type Method string

const (
	// MethodACF is the autocorrelation normalized by the lag-0 energy.
	MethodACF Method = "acf"
	// MethodNCCF normalizes each lag by the geometric mean of the energies of
	// the two segments it compares.
	MethodNCCF Method = "nccf"
	// MethodAMDF is the average magnitude difference function.
	MethodAMDF Method = "amdf"
	// MethodSquareDifference is the average squared difference function.
	MethodSquareDifference Method = "square_difference"
	// MethodYIN is the cumulative-mean-normalized squared difference.
	MethodYIN Method = "yin"
)

// Methods lists every supported method.
func Methods() []Method {
	return []Method{MethodACF, MethodNCCF, MethodAMDF, MethodSquareDifference, MethodYIN}
}

// Similarity fills dst[l] for every lag l < len(dst) from seg, which holds
// nwin samples of the frame followed by len(dst) samples of lag context.
type Similarity func(dst, seg []float64, nwin int)

// Similarity returns the function implementing m.
func (m Method) Similarity() (Similarity, error) {
	switch m {
	case MethodACF:
		return ACF, nil
	case MethodNCCF:
		return NCCF, nil
	case MethodAMDF:
		return AMDF, nil
	case MethodSquareDifference:
		return SquareDifference, nil
	case MethodYIN:
		return YIN, nil
	default:
		return nil, fmt.Errorf("unknown correlogram method %q: %w", m, ErrInvalidConfig)
	}
}

// Peaked reports whether periodicity shows up as a maximum (ACF, NCCF) rather
// than a minimum of the row.
func (m Method) Peaked() bool {
	return m == MethodACF || m == MethodNCCF
}

// ACF computes r[l] = Σ f[n]f[n+l] / Σ f[n]². A silent frame gives zeros.
func ACF(dst, seg []float64, nwin int) {
	frame := seg[:nwin]
	e0 := vecmath.DotProduct(frame, frame)
	if e0 <= energyFloor {
		clear(dst)
		return
	}
	for l := range dst {
		dst[l] = vecmath.DotProduct(frame, seg[l:l+nwin]) / e0
	}
}

// NCCF computes r[l] = Σ f[n]f[n+l] / sqrt(E0·El), where El is the energy
// of the lagged segment. Lags whose energy product vanishes give 0.
func NCCF(dst, seg []float64, nwin int) {
	frame := seg[:nwin]
	e0 := vecmath.DotProduct(frame, frame)
	for l := range dst {
		lagged := seg[l : l+nwin]
		el := vecmath.DotProduct(lagged, lagged)
		if e0*el <= energyFloor {
			dst[l] = 0
			continue
		}
		dst[l] = vecmath.DotProduct(frame, lagged) / math.Sqrt(e0*el)
	}
}

// AMDF computes d[l] = Σ |f[n] - f[n+l]| / nwin.
func AMDF(dst, seg []float64, nwin int) {
	for l := range dst {
		sum := 0.0
		for n := range nwin {
			sum += math.Abs(seg[n] - seg[n+l])
		}
		dst[l] = sum / float64(nwin)
	}
}

// SquareDifference computes d[l] = Σ (f[n] - f[n+l])² / nwin.
func SquareDifference(dst, seg []float64, nwin int) {
	for l := range dst {
		sum := 0.0
		for n := range nwin {
			d := seg[n] - seg[n+l]
			sum += d * d
		}
		dst[l] = sum / float64(nwin)
	}
}

// YIN computes the cumulative mean normalized difference
// d'[l] = d[l]·l / Σ_{j=1..l} d[j], with d'[0] = 1. Lags with no
// accumulated difference, including every lag of a silent frame, give 1.
func YIN(dst, seg []float64, nwin int) {
	if len(dst) == 0 {
		return
	}
	SquareDifference(dst, seg, nwin)

	dst[0] = 1
	cumulative := 0.0
	for l := 1; l < len(dst); l++ {
		cumulative += dst[l]
		if cumulative > energyFloor {
			dst[l] *= float64(l) / cumulative
		} else {
			dst[l] = 1
		}
	}
}
