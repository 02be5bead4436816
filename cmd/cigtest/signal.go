package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cwbudde/algo-vecmath"

	"github.com/RyanBlaney/sonido-core/algorithms/speech"
	"github.com/RyanBlaney/sonido-core/logging"
)

// vowelFormants are the resonances of an /a/-like vowel, frequency and
// bandwidth in Hz.
var vowelFormants = [][2]float64{{700, 80}, {1220, 90}, {2600, 120}}

// synthVowel returns seconds of a glottal pulse train gliding from 110 to
// 150 Hz, filtered by an all-pole vocal tract, with a little breath noise.
func synthVowel(rng *rand.Rand, fs, seconds float64) []float64 {
	n := int(fs * seconds)
	excitation := make([]float64, n)
	phase := 0.0
	for i := range excitation {
		f0 := 110 + 40*float64(i)/float64(n)
		phase += f0 / fs
		if phase >= 1 {
			phase--
			excitation[i] = 1
		}
		excitation[i] += 0.01 * rng.NormFloat64()
	}

	tract := []float64{1}
	for _, f := range vowelFormants {
		if f[0] >= fs/2 {
			continue
		}
		r := math.Exp(-math.Pi * f[1] / fs)
		theta := 2 * math.Pi * f[0] / fs
		tract = convolve(tract, []float64{1, -2 * r * math.Cos(theta), r * r})
	}

	x := speech.Synthesize(excitation, tract)
	if peak := vecmath.MaxAbs(x); peak > 0 {
		for i := range x {
			x[i] *= 0.5 / peak
		}
	}
	return x
}

func convolve(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

func (s *session) path(name string) string {
	return filepath.Join(s.outDir, name)
}

// writeMatrix writes rows as CSV into the output directory unless plotting
// is disabled.
func (s *session) writeMatrix(name string, rows [][]float64) error {
	if s.noplot {
		return nil
	}

	f, err := os.Create(s.path(name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	record := []string{}
	for _, row := range rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'g', 7, 64))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	s.logger.Debug("Matrix written", logging.Fields{"file": name, "rows": len(rows)})
	return nil
}
