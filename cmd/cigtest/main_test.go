package main

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-core/algorithms/common"
	"github.com/RyanBlaney/sonido-core/transcode"
)

func TestSelectGroups(t *testing.T) {
	all, err := selectGroups(nil)
	require.NoError(t, err)
	assert.Equal(t, groups, all)

	all, err = selectGroups([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, groups, all)

	one, err := selectGroups([]string{"corr"})
	require.NoError(t, err)
	assert.Equal(t, []string{"corr"}, one)

	_, err = selectGroups([]string{"lf"})
	assert.ErrorIs(t, err, errUsage)
	_, err = selectGroups([]string{"la", "lpc"})
	assert.ErrorIs(t, err, errUsage)
}

func TestSynthVowel(t *testing.T) {
	x := synthVowel(rand.New(rand.NewSource(1)), 16000, 0.5)
	require.Len(t, x, 8000)
	assert.True(t, common.IsFinite(x))

	peak := 0.0
	for _, v := range x {
		peak = max(peak, v, -v)
	}
	assert.InDelta(t, 0.5, peak, 1e-12)
}

func TestRunAllGroups(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, run("", out, "", "", 3, false, false, nil))

	for _, name := range []string{
		"config.json", "if.csv", "lpc-envelope.csv", "lpc-formants.csv",
		"lpcwave-envelope.csv", "corr.csv", "spec.csv",
		"out-stft-wow.wav", "out-lpc-residual.wav",
	} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}

	wow, err := transcode.ReadWAV(filepath.Join(out, "out-stft-wow.wav"))
	require.NoError(t, err)
	assert.Equal(t, 16000, wow.SampleRate)
	assert.NotEmpty(t, wow.PCM)
}

func TestRunFromWAVWithoutPlots(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.wav")
	x := synthVowel(rand.New(rand.NewSource(2)), 8000, 1)
	require.NoError(t, transcode.WriteWAV(input, x, 8000, 16))

	out := filepath.Join(dir, "out")
	require.NoError(t, run(input, out, "", "telephone", 1, true, false, []string{"lpc"}))

	// -noplot skips the CSV matrices
	_, err := os.Stat(filepath.Join(out, "lpc-envelope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lpc": {"order": -1}}`), 0o644))
	assert.Error(t, run("", t.TempDir(), path, "", 1, true, false, []string{"la"}))
}
