// Package config holds the parameters of a full analysis run: STFT, LPC,
// correlogram, root finding and instantaneous frequency, with presets for
// common kinds of material and JSON loading.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-core/algorithms/periodicity"
	"github.com/RyanBlaney/sonido-core/algorithms/polynomial"
	"github.com/RyanBlaney/sonido-core/algorithms/spectral"
	"github.com/RyanBlaney/sonido-core/algorithms/speech"
)

// ErrInvalidConfig reports an analysis configuration that fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Profile names a preset tuned for a kind of material.
type Profile string

const (
	ProfileSpeech    Profile = "speech"
	ProfileSinging   Profile = "singing"
	ProfileTelephone Profile = "telephone"
)

// AnalysisConfig gathers the settings of every analysis stage. Each
// section is validated by the package that consumes it.
type AnalysisConfig struct {
	Profile     Profile               `json:"profile,omitempty"`
	LogLevel    string                `json:"log_level"` // debug, info, warn, error
	STFT        spectral.STFTConfig   `json:"stft"`
	LPC         speech.AnalyzerConfig `json:"lpc"`
	Correlogram CorrelogramConfig     `json:"correlogram"`
	Roots       polynomial.RootConfig `json:"roots"`
	IF          IFConfig              `json:"if"`
}

// CorrelogramConfig sets the frame grid, lag range and similarity method
// of the correlogram stage.
type CorrelogramConfig struct {
	Hop        int                `json:"hop"`
	WindowSize int                `json:"window_size"`
	MaxPeriod  int                `json:"max_period"` // lags, must not exceed the signal length
	Method     periodicity.Method `json:"method"`
	MaxFreq    float64            `json:"max_freq"` // Hz, top of the remapped frequency axis
}

// IFConfig sets the instantaneous frequency detector, in Hz, and its hop
// in samples.
type IFConfig struct {
	CenterHz     float64 `json:"center_hz"`
	ResolutionHz float64 `json:"resolution_hz"`
	Hop          int     `json:"hop"`
}

// DefaultAnalysisConfig returns the speech preset.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Profile:  ProfileSpeech,
		LogLevel: "info",
		STFT:     *spectral.DefaultSTFTConfig(),
		LPC:      *speech.DefaultAnalyzerConfig(),
		Correlogram: CorrelogramConfig{
			Hop:        128,
			WindowSize: 300,
			MaxPeriod:  1024,
			Method:     periodicity.MethodACF,
			MaxFreq:    1000,
		},
		Roots: *polynomial.DefaultRootConfig(),
		IF: IFConfig{
			CenterHz:     220,
			ResolutionHz: 220,
			Hop:          256,
		},
	}
}

// ConfigForProfile returns the preset for profile. Unknown profiles fall
// back to the speech preset.
func ConfigForProfile(profile Profile) *AnalysisConfig {
	cfg := DefaultAnalysisConfig()

	switch profile {
	case ProfileSinging:
		cfg.Profile = ProfileSinging
		cfg.STFT.Oversample = 8
		cfg.LPC.Order = 12
		cfg.LPC.MaxFreq = 5500
		cfg.LPC.Warp = speech.WarpMel
		cfg.Correlogram.WindowSize = 600
		cfg.Correlogram.Method = periodicity.MethodYIN
		cfg.Correlogram.MaxFreq = 1500

	case ProfileTelephone:
		cfg.Profile = ProfileTelephone
		cfg.STFT.Hop = 80
		cfg.LPC.SampleRate = 8000
		cfg.LPC.Order = 10
		cfg.LPC.WindowSize = 256
		cfg.LPC.Hop = 80
		cfg.LPC.FFTSize = 512
		cfg.LPC.MaxFreq = 3400
		cfg.LPC.WarpBins = 256
		cfg.LPC.DCCutoff = 60
		cfg.Correlogram.Hop = 80
		cfg.Correlogram.WindowSize = 200
		cfg.Correlogram.MaxPeriod = 160
		cfg.Correlogram.Method = periodicity.MethodNCCF
		cfg.IF.Hop = 80
	}

	return cfg
}

// Load reads a JSON configuration from path. Fields absent from the file
// keep the values of the preset named by its "profile" field, or of the
// speech preset when it has none.
func Load(path string) (*AnalysisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var header struct {
		Profile Profile `json:"profile"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg := ConfigForProfile(header.Profile)
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path as indented JSON.
func (c *AnalysisConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks every section. Errors wrap ErrInvalidConfig as well as the
// sentinel of the package that rejected the section.
func (c *AnalysisConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("nil analysis config: %w", ErrInvalidConfig)
	}
	switch c.Profile {
	case "", ProfileSpeech, ProfileSinging, ProfileTelephone:
	default:
		return fmt.Errorf("unknown profile %q: %w", c.Profile, ErrInvalidConfig)
	}
	if err := c.STFT.Validate(); err != nil {
		return invalid("stft", err)
	}
	if err := c.LPC.Validate(); err != nil {
		return invalid("lpc", err)
	}
	if err := c.Correlogram.Validate(); err != nil {
		return invalid("correlogram", err)
	}
	if err := c.IF.Validate(c.LPC.SampleRate); err != nil {
		return invalid("if", err)
	}
	if c.Roots.MaxIterations < 0 || c.Roots.Tolerance < 0 {
		return invalid("roots", fmt.Errorf("negative iteration limit or tolerance"))
	}
	if _, err := polynomial.ParseMethod(c.Roots.Method.String()); err != nil {
		return invalid("roots", err)
	}
	return nil
}

// Validate checks the correlogram section.
func (c *CorrelogramConfig) Validate() error {
	if c.Hop <= 0 || c.WindowSize <= 0 || c.MaxPeriod <= 0 {
		return fmt.Errorf("hop %d, window size %d and max period %d must be positive: %w",
			c.Hop, c.WindowSize, c.MaxPeriod, periodicity.ErrInvalidConfig)
	}
	if c.MaxFreq <= 0 {
		return fmt.Errorf("max frequency must be positive, got %g: %w", c.MaxFreq, periodicity.ErrInvalidConfig)
	}
	_, err := c.Method.Similarity()
	return err
}

// Validate checks the detector section against the sample rate.
func (c *IFConfig) Validate(sampleRate float64) error {
	nyquist := sampleRate / 2
	if c.CenterHz <= 0 || c.CenterHz >= nyquist {
		return fmt.Errorf("center %g Hz outside (0, %g): %w", c.CenterHz, nyquist, periodicity.ErrInvalidConfig)
	}
	if c.ResolutionHz <= 0 || c.ResolutionHz >= nyquist {
		return fmt.Errorf("resolution %g Hz outside (0, %g): %w", c.ResolutionHz, nyquist, periodicity.ErrInvalidConfig)
	}
	if c.Hop <= 0 {
		return fmt.Errorf("hop must be positive, got %d: %w", c.Hop, periodicity.ErrInvalidConfig)
	}
	return nil
}

func invalid(section string, err error) error {
	return fmt.Errorf("%s: %w", section, errors.Join(ErrInvalidConfig, err))
}
