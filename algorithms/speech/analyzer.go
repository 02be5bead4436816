package speech

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/RyanBlaney/sonido-core/algorithms/filters"
	"github.com/RyanBlaney/sonido-core/algorithms/framing"
	"github.com/RyanBlaney/sonido-core/algorithms/polynomial"
	"github.com/RyanBlaney/sonido-core/algorithms/spectral"
	"github.com/RyanBlaney/sonido-core/algorithms/windowing"
	"github.com/RyanBlaney/sonido-core/internal/parallel"
	"github.com/RyanBlaney/sonido-core/logging"
)

// envelopeFloorDB bounds the log envelope of silent frames.
const envelopeFloorDB = -200.0

// AnalyzerConfig holds the parameters of the per-frame LPC pipelines.
type AnalyzerConfig struct {
	Order        int            `json:"order"`
	WindowSize   int            `json:"window_size"`
	Hop          int            `json:"hop"`
	FFTSize      int            `json:"fft_size"`      // envelope resolution, nfft/2+1 bins
	PreEmphasis  float64        `json:"pre_emphasis"`  // 0 disables
	DCCutoff     float64        `json:"dc_cutoff"`     // Hz, 0 keeps DC
	Window       windowing.Kind `json:"window"`
	SampleRate   float64        `json:"sample_rate"`
	MaxFreq      float64        `json:"max_freq"`      // upper edge of the warped axis
	Warp         Warp           `json:"warp"`          // axis for spectrogram fits
	WarpBins     int            `json:"warp_bins"`     // bins of the warped spectrum
	MinFormant   float64        `json:"min_formant"`   // Hz, lower formants are dropped
	MaxBandwidth float64        `json:"max_bandwidth"` // Hz, 0 keeps every width
	MaxFormants  int            `json:"max_formants"`  // 0 keeps all
}

// DefaultAnalyzerConfig returns a configuration for 16 kHz speech.
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		Order:        16,
		WindowSize:   1024,
		Hop:          256,
		FFTSize:      1024,
		PreEmphasis:  filters.DefaultPreEmphasis,
		DCCutoff:     0,
		Window:       windowing.KindHann,
		SampleRate:   16000,
		MaxFreq:      6000,
		Warp:         WarpLinear,
		WarpBins:     512,
		MinFormant:   50,
		MaxBandwidth: 0,
		MaxFormants:  0,
	}
}

// Validate checks the configuration.
func (c *AnalyzerConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("nil analyzer config: %w", ErrInvalidConfig)
	}
	if c.Order <= 0 {
		return fmt.Errorf("order must be positive, got %d: %w", c.Order, ErrInvalidConfig)
	}
	if c.WindowSize <= c.Order {
		return fmt.Errorf("window size %d must exceed order %d: %w", c.WindowSize, c.Order, ErrInvalidConfig)
	}
	if c.Hop <= 0 {
		return fmt.Errorf("hop must be positive, got %d: %w", c.Hop, ErrInvalidConfig)
	}
	if c.FFTSize < 2 || c.FFTSize <= c.Order {
		return fmt.Errorf("fft size %d too small for order %d: %w", c.FFTSize, c.Order, ErrInvalidConfig)
	}
	if c.PreEmphasis < 0 || c.PreEmphasis >= 1 {
		return fmt.Errorf("pre-emphasis %g outside [0, 1): %w", c.PreEmphasis, ErrInvalidConfig)
	}
	if _, err := windowing.ParseKind(string(c.Window)); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %g: %w", c.SampleRate, ErrInvalidConfig)
	}
	if c.DCCutoff < 0 || c.DCCutoff >= c.SampleRate/(2*math.Pi) {
		return fmt.Errorf("dc cutoff %g outside [0, %g): %w", c.DCCutoff, c.SampleRate/(2*math.Pi), ErrInvalidConfig)
	}
	if c.MaxFreq <= 0 || c.MaxFreq > c.SampleRate/2 {
		return fmt.Errorf("max frequency %g outside (0, %g]: %w", c.MaxFreq, c.SampleRate/2, ErrInvalidConfig)
	}
	if c.WarpBins <= c.Order/2+1 {
		return fmt.Errorf("warp bins %d too few for order %d: %w", c.WarpBins, c.Order, ErrInvalidConfig)
	}
	return nil
}

// FrameAnalysis is the LPC analysis of one frame.
type FrameAnalysis struct {
	Model      *Model    `json:"model"`
	Gain       float64   `json:"gain"`
	EnvelopeDB []float64 `json:"envelope_db"` // 10*log10 of the model spectrum
	Formants   []Formant `json:"formants"`
}

// AnalysisResult holds one FrameAnalysis per frame.
type AnalysisResult struct {
	Frames         []FrameAnalysis `json:"frames"`
	Hop            int             `json:"hop"`
	SampleRate     float64         `json:"sample_rate"`
	IllConditioned int             `json:"ill_conditioned"` // frames whose fit was degenerate
}

// EnvelopeMatrix returns the log envelopes as a frames x bins matrix.
func (r *AnalysisResult) EnvelopeMatrix() [][]float64 {
	out := make([][]float64, len(r.Frames))
	for i, f := range r.Frames {
		out[i] = f.EnvelopeDB
	}
	return out
}

// FormantTracks returns a frames x n matrix of formant frequencies, with
// zero where a frame has fewer than n formants.
func (r *AnalysisResult) FormantTracks(n int) [][]float64 {
	out := make([][]float64, len(r.Frames))
	for i, f := range r.Frames {
		row := make([]float64, n)
		for j := 0; j < n && j < len(f.Formants); j++ {
			row[j] = f.Formants[j].Frequency
		}
		out[i] = row
	}
	return out
}

// Analyzer runs LPC analysis frame by frame. It holds only immutable state
// and is safe for concurrent use.
type Analyzer struct {
	config   AnalyzerConfig
	window   *windowing.Window
	emphasis *filters.PreEmphasis
	dc       *filters.DCRemoval // nil when DC is kept
	finder   *polynomial.RootFinder
	logger   logging.Logger
}

// NewAnalyzer creates an analyzer. A nil finder config selects the default
// root finder.
func NewAnalyzer(config *AnalyzerConfig, roots *polynomial.RootConfig) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new analyzer: %w", err)
	}

	window, err := windowing.New(config.Window, config.WindowSize, true)
	if err != nil {
		return nil, fmt.Errorf("new analyzer: %w", err)
	}
	emphasis, err := filters.NewPreEmphasis(config.PreEmphasis)
	if err != nil {
		return nil, fmt.Errorf("new analyzer: %w", err)
	}

	var dc *filters.DCRemoval
	if config.DCCutoff > 0 {
		if dc, err = filters.NewDCRemoval(config.SampleRate, config.DCCutoff); err != nil {
			return nil, fmt.Errorf("new analyzer: %w", err)
		}
	}

	return &Analyzer{
		config:   *config,
		window:   window,
		emphasis: emphasis,
		dc:       dc,
		finder:   polynomial.NewRootFinder(roots),
		logger: logging.WithFields(logging.Fields{
			"component": "lpc_analyzer",
			"order":     config.Order,
		}),
	}, nil
}

// Config returns a copy of the analyzer configuration.
func (a *Analyzer) Config() AnalyzerConfig {
	return a.config
}

// AnalyzeFrame fits a time-domain model to one windowed frame and derives
// the envelope and formants.
func (a *Analyzer) AnalyzeFrame(frame []float64) (*FrameAnalysis, error) {
	model, err := LPC(frame, a.config.Order)
	if err != nil {
		return nil, err
	}
	return a.describe(model, a.config.SampleRate, nil)
}

// AnalyzeSignal runs the time-domain pipeline on x: optional DC removal and
// pre-emphasis, then for every frame centered at i*Hop a window, an LPC fit,
// the gain, the log envelope and the formants. Frames are processed in
// parallel.
func (a *Analyzer) AnalyzeSignal(x []float64) (*AnalysisResult, error) {
	frames := framing.FrameCount(len(x), a.config.Hop)
	if frames == 0 {
		return nil, fmt.Errorf("analyze signal: empty signal: %w", ErrInvalidConfig)
	}

	if a.dc != nil {
		x = a.dc.Apply(x)
	}
	emphasized := a.emphasis.Apply(x)

	results := make([]FrameAnalysis, frames)
	errs := make([]error, frames)
	parallel.ForEach(frames, func(_, i int) {
		frame := framing.FetchFrame(emphasized, i*a.config.Hop, a.config.WindowSize)
		vecmath.MulBlockInPlace(frame, a.window.Coefficients)

		fa, err := a.AnalyzeFrame(frame)
		if err != nil {
			errs[i] = fmt.Errorf("frame %d: %w", i, err)
			return
		}
		results[i] = *fa
	})

	return a.collect(results, errs)
}

// AnalyzeSpectrogram fits a model to every row of a magnitude spectrogram
// of a signal at sampleRate after warping it onto warp's axis over
// [0, maxFreq]. Formants are reported in Hz on the original axis and the
// envelope rows are on the warped axis. The frame hop of mag is unknown
// here, so the result's Hop is 0; AnalyzeSTFT fills it in.
func (a *Analyzer) AnalyzeSpectrogram(mag [][]float64, sampleRate, maxFreq float64, warp Warp) (*AnalysisResult, error) {
	if len(mag) == 0 {
		return nil, fmt.Errorf("analyze spectrogram: no frames: %w", ErrInvalidConfig)
	}
	if sampleRate <= 0 || maxFreq <= 0 || maxFreq > sampleRate/2 {
		return nil, fmt.Errorf("analyze spectrogram: max frequency %g outside (0, %g]: %w",
			maxFreq, sampleRate/2, ErrInvalidConfig)
	}

	results := make([]FrameAnalysis, len(mag))
	errs := make([]error, len(mag))
	parallel.ForEach(len(mag), func(_, i int) {
		warped, err := WarpSpectrum(mag[i], sampleRate, maxFreq, a.config.WarpBins, warp)
		if err != nil {
			errs[i] = fmt.Errorf("frame %d: %w", i, err)
			return
		}
		model, err := SpectralLPC(warped, a.config.Order)
		if err != nil {
			errs[i] = fmt.Errorf("frame %d: %w", i, err)
			return
		}
		fa, err := a.describe(model, 2, func(f []Formant) []Formant {
			return warp.UnwarpFormants(f, maxFreq)
		})
		if err != nil {
			errs[i] = fmt.Errorf("frame %d: %w", i, err)
			return
		}
		results[i] = *fa
	})

	res, err := a.collect(results, errs)
	if err != nil {
		return nil, err
	}
	res.Hop = 0
	res.SampleRate = sampleRate
	return res, nil
}

// AnalyzeSTFT runs AnalyzeSpectrogram on the magnitudes of an STFT and
// reports the STFT's hop.
func (a *Analyzer) AnalyzeSTFT(stft *spectral.STFTResult, sampleRate, maxFreq float64, warp Warp) (*AnalysisResult, error) {
	if stft == nil {
		return nil, fmt.Errorf("analyze stft: nil result: %w", ErrInvalidConfig)
	}
	res, err := a.AnalyzeSpectrogram(stft.Magnitude, sampleRate, maxFreq, warp)
	if err != nil {
		return nil, err
	}
	res.Hop = stft.HopSize
	return res, nil
}

// describe computes gain, log envelope and formants of a fitted model.
// Formant frequencies are computed at rate fs and then passed through
// convert when it is set.
func (a *Analyzer) describe(model *Model, fs float64, convert func([]Formant) []Formant) (*FrameAnalysis, error) {
	gain := model.Gain()

	spectrum, err := Spectrum(model.Coefficients, gain, a.config.FFTSize)
	if err != nil {
		return nil, err
	}
	envelope := make([]float64, len(spectrum))
	for k, s := range spectrum {
		if s > 0 {
			envelope[k] = max(10*math.Log10(s), envelopeFloorDB)
		} else {
			envelope[k] = envelopeFloorDB
		}
	}

	formants, err := FormantExtractWith(a.finder, model.Coefficients, fs)
	if err != nil {
		return nil, err
	}
	if convert != nil {
		formants = convert(formants)
	}
	formants = SelectFormants(formants, a.config.MinFormant, a.config.MaxBandwidth, a.config.MaxFormants)

	return &FrameAnalysis{
		Model:      model,
		Gain:       gain,
		EnvelopeDB: envelope,
		Formants:   formants,
	}, nil
}

func (a *Analyzer) collect(results []FrameAnalysis, errs []error) (*AnalysisResult, error) {
	for _, err := range errs {
		if err != nil {
			a.logger.Error(err, "LPC analysis failed")
			return nil, err
		}
	}

	res := &AnalysisResult{
		Frames:     results,
		Hop:        a.config.Hop,
		SampleRate: a.config.SampleRate,
	}
	for _, f := range results {
		if f.Model.IllConditioned {
			res.IllConditioned++
		}
	}

	a.logger.Debug("LPC analysis completed", logging.Fields{
		"frames":          len(results),
		"ill_conditioned": res.IllConditioned,
	})
	return res, nil
}
