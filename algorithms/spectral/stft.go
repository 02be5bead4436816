package spectral

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-vecmath"

	"github.com/RyanBlaney/sonido-core/algorithms/framing"
	"github.com/RyanBlaney/sonido-core/algorithms/windowing"
	"github.com/RyanBlaney/sonido-core/internal/parallel"
	"github.com/RyanBlaney/sonido-core/logging"
)

// ErrInvalidConfig is returned for STFT parameters that cannot produce a
// reconstructible analysis.
var ErrInvalidConfig = errors.New("spectral: invalid configuration")

// envelopeFloor is the squared-window sum below which an output sample is
// treated as uncovered and set to zero.
const envelopeFloor = 1e-20

// tailGainFloor bounds the overlap-add divisor past the last frame center,
// relative to the smallest envelope inside the analysed span.
const tailGainFloor = 0.5

// STFTConfig holds the analysis parameters shared by Forward and Inverse.
type STFTConfig struct {
	Hop          int            `json:"hop"`           // samples between frame centers
	Frames       int            `json:"frames"`        // 0 derives the count with AnalysisFrames
	Oversample   int            `json:"oversample"`    // FFT size = Hop * Oversample
	Window       windowing.Kind `json:"window"`        // periodic window used for analysis and synthesis
	ComputePhase bool           `json:"compute_phase"` // false leaves Phase nil
}

// DefaultSTFTConfig returns the default STFT configuration
func DefaultSTFTConfig() *STFTConfig {
	return &STFTConfig{
		Hop:          256,
		Frames:       0,
		Oversample:   4,
		Window:       windowing.KindHann,
		ComputePhase: true,
	}
}

// FFTSize returns the frame length, which is also the transform size.
func (c *STFTConfig) FFTSize() int {
	return c.Hop * c.Oversample
}

// Bins returns the number of non-negative frequency bins.
func (c *STFTConfig) Bins() int {
	return c.FFTSize()/2 + 1
}

// Validate checks the configuration.
func (c *STFTConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config: %w", ErrInvalidConfig)
	}
	if c.Hop <= 0 {
		return fmt.Errorf("hop must be positive, got %d: %w", c.Hop, ErrInvalidConfig)
	}
	if c.Frames < 0 {
		return fmt.Errorf("frames must be non-negative, got %d: %w", c.Frames, ErrInvalidConfig)
	}
	if _, err := windowing.ParseKind(string(c.Window)); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	if minOS := c.Window.MinOversample(); c.Oversample < minOS {
		return fmt.Errorf("oversample %d below %d required by %s window: %w",
			c.Oversample, minOS, c.Window, ErrInvalidConfig)
	}
	return nil
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Magnitude  [][]float64 `json:"magnitude"`       // Frames x Bins, divided by Norm
	Phase      [][]float64 `json:"phase,omitempty"` // Frames x Bins, radians
	TimeFrames int         `json:"time_frames"`
	FreqBins   int         `json:"freq_bins"`
	FFTSize    int         `json:"fft_size"`
	HopSize    int         `json:"hop_size"`
	Norm       float64     `json:"norm"` // window sum; Inverse needs it back
}

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft    *FFT
	logger logging.Logger
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
		logger: logging.WithFields(logging.Fields{
			"component": "stft",
		}),
	}
}

// Forward computes the STFT of signal. Frame i is centered at i*Hop; the
// samples it needs beyond the signal edges read as zero. Magnitudes are
// divided by the window sum so a full-scale sinusoid peaks near 0.5
// regardless of frame size.
func (s *STFT) Forward(signal []float64, cfg *STFTConfig) (*STFTResult, error) {
	if err := cfg.Validate(); err != nil {
		s.logger.Error(err, "Invalid STFT configuration")
		return nil, fmt.Errorf("stft forward: %w", err)
	}

	frames := cfg.Frames
	if frames == 0 {
		frames = AnalysisFrames(len(signal), cfg)
	}
	if frames == 0 {
		return nil, fmt.Errorf("stft forward: empty signal: %w", ErrInvalidConfig)
	}

	nfft := cfg.FFTSize()
	bins := cfg.Bins()
	window, err := windowing.New(cfg.Window, nfft, false)
	if err != nil {
		return nil, fmt.Errorf("stft forward: %w", err)
	}
	norm := window.Sum()

	result := &STFTResult{
		Magnitude:  make([][]float64, frames),
		TimeFrames: frames,
		FreqBins:   bins,
		FFTSize:    nfft,
		HopSize:    cfg.Hop,
		Norm:       norm,
	}
	if cfg.ComputePhase {
		result.Phase = make([][]float64, frames)
	}

	// per-worker scratch
	workers := parallel.WorkerCount(frames)
	type scratch struct {
		frame, re, im []float64
	}
	buffers := make([]scratch, workers)
	for w := range buffers {
		buffers[w] = scratch{
			frame: make([]float64, nfft),
			re:    make([]float64, bins),
			im:    make([]float64, bins),
		}
	}

	parallel.ForEach(frames, func(worker, i int) {
		buf := buffers[worker]
		framing.FetchInto(buf.frame, signal, i*cfg.Hop-nfft/2)
		vecmath.MulBlockInPlace(buf.frame, window.Coefficients)

		spectrum := s.fft.Compute(buf.frame)
		for k := range bins {
			buf.re[k] = real(spectrum[k])
			buf.im[k] = imag(spectrum[k])
		}

		mag := make([]float64, bins)
		vecmath.Magnitude(mag, buf.re, buf.im)
		vecmath.ScaleBlockInPlace(mag, 1/norm)
		result.Magnitude[i] = mag

		if cfg.ComputePhase {
			phase := make([]float64, bins)
			for k := range bins {
				phase[k] = cmplx.Phase(spectrum[k])
			}
			result.Phase[i] = phase
		}
	})

	s.logger.Debug("STFT analysis completed", logging.Fields{
		"frames":   frames,
		"fft_size": nfft,
		"hop":      cfg.Hop,
	})

	return result, nil
}

// Inverse resynthesizes the span covered by the frames, from sample 0 to
// the end of the last frame, by weighted overlap-add: each inverse frame
// is multiplied by the synthesis window and the sum is divided by the
// accumulated squared window. Past the last frame center only window tails
// remain, so the divisor there is held at half the smallest envelope of the
// analysed span and the output fades out instead of being amplified. For an
// unmodified Forward result the samples up to the last frame center are
// reproduced up to rounding. A nil phase synthesizes zero-phase frames.
// norm is the value Forward reported.
func (s *STFT) Inverse(magnitude, phase [][]float64, cfg *STFTConfig, norm float64) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		s.logger.Error(err, "Invalid STFT configuration")
		return nil, fmt.Errorf("stft inverse: %w", err)
	}
	if norm <= 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("stft inverse: norm must be positive, got %g: %w", norm, ErrInvalidConfig)
	}

	frames := cfg.Frames
	if frames == 0 {
		frames = len(magnitude)
	}
	if frames == 0 || len(magnitude) < frames {
		return nil, fmt.Errorf("stft inverse: %d magnitude frames for %d requested: %w",
			len(magnitude), frames, ErrInvalidConfig)
	}
	if phase != nil && len(phase) < frames {
		return nil, fmt.Errorf("stft inverse: %d phase frames for %d requested: %w",
			len(phase), frames, ErrInvalidConfig)
	}

	nfft := cfg.FFTSize()
	bins := cfg.Bins()
	for i := range frames {
		if len(magnitude[i]) != bins {
			return nil, fmt.Errorf("stft inverse: frame %d has %d bins, want %d: %w",
				i, len(magnitude[i]), bins, ErrInvalidConfig)
		}
		if phase != nil && len(phase[i]) != bins {
			return nil, fmt.Errorf("stft inverse: phase frame %d has %d bins, want %d: %w",
				i, len(phase[i]), bins, ErrInvalidConfig)
		}
	}

	window, err := windowing.New(cfg.Window, nfft, false)
	if err != nil {
		return nil, fmt.Errorf("stft inverse: %w", err)
	}

	// frames are synthesized in parallel, then summed in order so the
	// result does not depend on scheduling
	segments := parallel.Map(frames, func(i int) []float64 {
		half := make([]complex128, bins)
		for k := range bins {
			m := magnitude[i][k] * norm
			if phase == nil {
				half[k] = complex(m, 0)
			} else {
				half[k] = cmplx.Rect(m, phase[i][k])
			}
		}
		seg := s.fft.HalfSpectrumInverse(half, nfft)
		vecmath.MulBlockInPlace(seg, window.Coefficients)
		return seg
	})

	length := SynthesisLength(frames, cfg)
	out := make([]float64, length)
	envelope := make([]float64, length)
	w2 := make([]float64, nfft)
	vecmath.MulBlock(w2, window.Coefficients, window.Coefficients)

	for i, seg := range segments {
		start := i*cfg.Hop - nfft/2
		lo := max(0, -start)
		hi := min(nfft, length-start)
		if lo >= hi {
			continue
		}
		dst := out[start+lo : start+hi]
		vecmath.AddBlockInPlace(dst, seg[lo:hi])
		env := envelope[start+lo : start+hi]
		vecmath.AddBlockInPlace(env, w2[lo:hi])
	}

	// smallest envelope over [0, last center]
	inner := envelope[:min((frames-1)*cfg.Hop+1, length)]
	minEnv := inner[0]
	for _, e := range inner {
		minEnv = min(minEnv, e)
	}
	floor := max(tailGainFloor*minEnv, envelopeFloor)

	uncovered := 0
	for t := range out {
		if envelope[t] > envelopeFloor {
			out[t] /= max(envelope[t], floor)
		} else {
			out[t] = 0
			uncovered++
		}
	}

	if uncovered > 0 {
		s.logger.Warn("Overlap-add left samples without window coverage", logging.Fields{
			"samples": uncovered,
			"window":  string(cfg.Window),
		})
	}

	s.logger.Debug("STFT synthesis completed", logging.Fields{
		"frames": frames,
		"length": length,
	})

	return out, nil
}

// AnalysisFrames returns the number of frames Forward uses for a signal of
// the given length when cfg.Frames is 0: enough that the last frame is
// centered at or past the last sample, so every sample lies inside the
// fully overlapped span and Inverse returns at least length samples.
func AnalysisFrames(length int, cfg *STFTConfig) int {
	if length <= 0 || cfg == nil || cfg.Hop <= 0 {
		return 0
	}
	return (length-1+cfg.Hop-1)/cfg.Hop + 1
}

// SynthesisLength returns the number of samples Inverse produces for the
// given frame count: from 0 to the last sample of the last frame.
func SynthesisLength(frames int, cfg *STFTConfig) int {
	if frames <= 0 || cfg == nil {
		return 0
	}
	nfft := cfg.FFTSize()
	return (frames-1)*cfg.Hop + nfft - nfft/2
}
