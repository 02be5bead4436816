// Package periodicity estimates short-time periodicity: correlograms under
// several similarity functions, their remapping onto a frequency axis, and
// an instantaneous frequency detector.
package periodicity

import (
	"fmt"

	"github.com/RyanBlaney/sonido-core/algorithms/common"
	"github.com/RyanBlaney/sonido-core/algorithms/framing"
	"github.com/RyanBlaney/sonido-core/internal/parallel"
	"github.com/RyanBlaney/sonido-core/logging"
)

// Correlogram returns a frames x maxPeriod matrix whose row i compares the
// frame of windowSizes[i] samples starting at centers[i]-windowSizes[i]/2
// with its copies shifted by every lag in [0, maxPeriod). Samples outside x
// read as zero. Rows are computed in parallel.
func Correlogram(x []float64, centers, windowSizes []int, frames, maxPeriod int, method Method) ([][]float64, error) {
	similarity, err := method.Similarity()
	if err != nil {
		return nil, fmt.Errorf("correlogram: %w", err)
	}
	if frames < 0 {
		return nil, fmt.Errorf("correlogram: negative frame count %d: %w", frames, ErrInvalidConfig)
	}
	if maxPeriod <= 0 || maxPeriod > len(x) {
		return nil, fmt.Errorf("correlogram: max period %d outside (0, %d]: %w", maxPeriod, len(x), ErrInvalidConfig)
	}
	if len(centers) < frames || len(windowSizes) < frames {
		return nil, fmt.Errorf("correlogram: %d frames requested, got %d centers and %d window sizes: %w",
			frames, len(centers), len(windowSizes), ErrInvalidConfig)
	}
	for i, nwin := range windowSizes[:frames] {
		if nwin <= 0 {
			return nil, fmt.Errorf("correlogram: frame %d has window size %d: %w", i, nwin, ErrInvalidConfig)
		}
	}

	logger := logging.WithFields(logging.Fields{
		"component":  "correlogram",
		"method":     string(method),
		"max_period": maxPeriod,
	})

	rows := parallel.Map(frames, func(i int) []float64 {
		nwin := windowSizes[i]
		seg := framing.FetchSegment(x, centers[i]-nwin/2, nwin+maxPeriod)
		row := make([]float64, maxPeriod)
		similarity(row, seg, nwin)
		return row
	})

	logger.Debug("Correlogram computed", logging.Fields{"frames": frames})
	return rows, nil
}

// InverseMap resamples every correlogram row from the lag axis onto the
// frequency axis faxis (Hz) by linear interpolation at lag sampleRate/f.
// Frequencies whose lag falls outside [0, maxPeriod-1], and non-positive
// frequencies, map to 0.
func InverseMap(r [][]float64, maxPeriod int, sampleRate float64, faxis []float64) [][]float64 {
	lags := make([]float64, len(faxis))
	for j, f := range faxis {
		lags[j] = -1
		if f > 0 {
			if lag := sampleRate / f; lag <= float64(maxPeriod-1) {
				lags[j] = lag
			}
		}
	}

	return parallel.Map(len(r), func(i int) []float64 {
		row := r[i][:min(maxPeriod, len(r[i]))]
		out := make([]float64, len(faxis))
		for j, lag := range lags {
			if lag >= 0 {
				out[j] = common.InterpolateAt(row, lag)
			}
		}
		return out
	})
}
