// Command cigtest runs the analysis core end to end on a WAV file, or on a
// synthetic vowel when no input is given, and prints a summary of every
// stage.
//
// Usage:
//
//	cigtest [flags] [group]
//
// group is one of all, la, numerical, if, lpc, lpcwave, corr, spec and
// defaults to all. Unless -noplot is set, every stage also writes its
// matrices as CSV files into the output directory.
//
// Examples:
//
//	cigtest -noplot
//	cigtest -input speech.wav -out results lpc
//	cigtest -config singing.json corr
package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"slices"

	"github.com/RyanBlaney/sonido-core/config"
	"github.com/RyanBlaney/sonido-core/logging"
	"github.com/RyanBlaney/sonido-core/transcode"
)

var groups = []string{"la", "numerical", "if", "lpc", "lpcwave", "corr", "spec"}

var errUsage = errors.New("usage error")

// session carries the input signal and settings shared by every group.
type session struct {
	cfg      *config.AnalysisConfig
	x        []float64
	fs       float64
	bitDepth int
	outDir   string
	noplot   bool
	rng      *rand.Rand
	logger   logging.Logger
}

func main() {
	noplot := flag.Bool("noplot", false, "skip writing CSV matrices")
	input := flag.String("input", "", "mono or multichannel PCM WAV file (default: synthetic vowel)")
	outDir := flag.String("out", ".", "directory for CSV and WAV output")
	configPath := flag.String("config", "", "JSON analysis configuration")
	profile := flag.String("profile", "", "configuration preset: speech, singing, telephone")
	seed := flag.Int64("seed", 1, "seed for synthetic input and random tests")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cigtest [flags] [group]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the analysis core and prints a summary of each stage.\n")
		fmt.Fprintf(os.Stderr, "Groups: all, %v\n\n", groups)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*input, *outDir, *configPath, *profile, *seed, *noplot, *verbose, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
			flag.Usage()
			os.Exit(2)
		}
		logging.Error(err, "cigtest failed")
		os.Exit(1)
	}
}

func run(input, outDir, configPath, profile string, seed int64, noplot, verbose bool, args []string) error {
	selected, err := selectGroups(args)
	if err != nil {
		return err
	}

	cfg := config.ConfigForProfile(config.Profile(profile))
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	if verbose {
		logging.SetLevel(logging.DebugLevel)
	}

	s := &session{
		cfg:      cfg,
		fs:       cfg.LPC.SampleRate,
		bitDepth: 16,
		outDir:   outDir,
		noplot:   noplot,
		rng:      rand.New(rand.NewSource(seed)),
		logger:   logging.WithFields(logging.Fields{"component": "cigtest"}),
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if input != "" {
		data, err := transcode.ReadWAV(input)
		if err != nil {
			return err
		}
		s.x = data.PCM
		s.fs = float64(data.SampleRate)
		s.bitDepth = max(data.BitDepth, 16)
	} else {
		s.x = synthVowel(s.rng, s.fs, 2.0)
	}
	if err := s.adaptToRate(); err != nil {
		return err
	}

	s.logger.Info("Input ready", logging.Fields{
		"samples":     len(s.x),
		"sample_rate": s.fs,
		"groups":      selected,
	})

	if !noplot {
		if err := cfg.Save(s.path("config.json")); err != nil {
			return err
		}
	}

	runners := map[string]func() error{
		"la":        s.testLA,
		"numerical": s.testNumerical,
		"if":        s.testIF,
		"lpc":       s.testLPC,
		"lpcwave":   s.testLPCWave,
		"corr":      s.testCorrelogram,
		"spec":      s.testSpectral,
	}
	for _, g := range selected {
		fmt.Printf("== %s\n", g)
		if err := runners[g](); err != nil {
			return fmt.Errorf("%s: %w", g, err)
		}
	}
	return nil
}

func selectGroups(args []string) ([]string, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("expected at most one group, got %v: %w", args, errUsage)
	}
	if len(args) == 0 || args[0] == "all" {
		return groups, nil
	}
	if !slices.Contains(groups, args[0]) {
		return nil, fmt.Errorf("unknown group %q: %w", args[0], errUsage)
	}
	return args[:1], nil
}

// adaptToRate fits the rate-dependent settings to the input sample rate.
func (s *session) adaptToRate() error {
	lpc := &s.cfg.LPC
	if lpc.SampleRate != s.fs {
		s.logger.Debug("Adapting LPC settings to input rate", logging.Fields{
			"configured": lpc.SampleRate,
			"input":      s.fs,
		})
		lpc.SampleRate = s.fs
		lpc.MaxFreq = min(lpc.MaxFreq, s.fs/2)
	}
	s.cfg.Correlogram.MaxPeriod = min(s.cfg.Correlogram.MaxPeriod, len(s.x))
	return s.cfg.Validate()
}
