package transcode

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	pcm := make([]float64, 800)
	for i := range pcm {
		pcm[i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/8000)
	}

	for _, depth := range []int{16, 24, 32} {
		path := filepath.Join(t.TempDir(), "sine.wav")
		require.NoError(t, WriteWAV(path, pcm, 8000, depth))

		data, err := ReadWAV(path)
		require.NoError(t, err, depth)
		assert.Equal(t, 8000, data.SampleRate)
		assert.Equal(t, depth, data.BitDepth)
		assert.Equal(t, 1, data.Channels)
		assert.Equal(t, 100*time.Millisecond, data.Duration)
		assert.InDeltaSlice(t, pcm, data.PCM, 1e-4, depth)
	}
}

func TestWriteClipsAndRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loud.wav")
	require.NoError(t, WriteWAV(path, []float64{2, -3, 0.5}, 16000, 16))

	data, err := ReadWAV(path)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, -1, 0.5}, data.PCM, 1e-4)

	assert.ErrorIs(t, WriteWAV(path, nil, 16000, 12), ErrUnsupportedFormat)
	assert.ErrorIs(t, WriteWAV(path, nil, 0, 16), ErrUnsupportedFormat)
}

func writeStereo(t *testing.T, path string, left, right []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, 0, 2*len(left))
	for i := range left {
		data = append(data, left[i], right[i])
	}
	enc := wav.NewEncoder(f, 8000, 16, 2, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 8000},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestDecoderMixesDownAndTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	left := make([]int, 800)
	right := make([]int, 800)
	for i := range left {
		left[i] = 1024
		right[i] = 3072
	}
	writeStereo(t, path, left, right)

	data, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Channels)
	require.Len(t, data.PCM, 800)
	assert.InDelta(t, 2048.0/32768, data.PCM[0], 1e-12)

	dec := NewDecoder(&DecoderConfig{MaxDuration: 50 * time.Millisecond, PeakNormalize: true})
	short, err := dec.DecodeFile(path)
	require.NoError(t, err)
	assert.Len(t, short.PCM, 400)
	assert.InDelta(t, 1.0, short.PCM[0], 1e-12)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := NewDecoder(nil).DecodeReader(strings.NewReader("definitely not a wav file"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ReadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
