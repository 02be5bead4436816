// Package transcode converts between WAV files and the float64 sample
// sequences the analysis packages consume.
package transcode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/cwbudde/algo-vecmath"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-core/algorithms/common"
	"github.com/RyanBlaney/sonido-core/logging"
)

// ErrUnsupportedFormat reports a WAV layout the decoder or encoder rejects.
var ErrUnsupportedFormat = errors.New("transcode: unsupported format")

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // mono samples in [-1, 1)
	SampleRate int           `json:"sample_rate"`
	BitDepth   int           `json:"bit_depth"`
	Channels   int           `json:"channels"` // channels in the source file
	Duration   time.Duration `json:"duration"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	MaxDuration   time.Duration `json:"max_duration"`   // 0 reads the whole file
	PeakNormalize bool          `json:"peak_normalize"` // scale so the largest sample is ±1
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		MaxDuration:   0,
		PeakNormalize: false,
	}
}

// Decoder reads PCM WAV files and mixes them down to mono.
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// ReadWAV decodes a WAV file with the default configuration.
func ReadWAV(path string) (*AudioData, error) {
	return NewDecoder(nil).DecodeFile(path)
}

// DecodeFile decodes a WAV file and returns mono PCM data
func (d *Decoder) DecodeFile(filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	f, err := os.Open(filename)
	if err != nil {
		logger.Error(err, "Failed to open audio file")
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer f.Close()

	data, err := d.DecodeReader(f)
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, err
	}

	logger.Debug("Audio file decoded", logging.Fields{
		"sample_rate": data.SampleRate,
		"bit_depth":   data.BitDepth,
		"channels":    data.Channels,
		"samples":     len(data.PCM),
	})
	return data, nil
}

// DecodeReader decodes WAV data from r.
func (d *Decoder) DecodeReader(r io.ReadSeeker) (*AudioData, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %w", ErrUnsupportedFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not read PCM buffer: %w", err)
	}

	channels := buf.Format.NumChannels
	bitDepth := int(dec.BitDepth)
	if channels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("WAV file has %d channels at %d Hz: %w",
			channels, buf.Format.SampleRate, ErrUnsupportedFormat)
	}
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("%d-bit samples: %w", bitDepth, ErrUnsupportedFormat)
	}
	// 8-bit samples are unsigned
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(buf.Data) / channels
	if d.config.MaxDuration > 0 {
		limit := int(d.config.MaxDuration.Seconds() * float64(buf.Format.SampleRate))
		frames = min(frames, limit)
	}

	// average the channels of every frame
	scale := 1 / (float64(int(1)<<(bitDepth-1)) * float64(channels))
	pcm := make([]float64, frames)
	for i := range pcm {
		sum := 0
		for c := range channels {
			sum += buf.Data[i*channels+c] - offset
		}
		pcm[i] = float64(sum) * scale
	}

	if d.config.PeakNormalize {
		if peak := vecmath.MaxAbs(pcm); peak > 0 {
			for i := range pcm {
				pcm[i] /= peak
			}
		}
	}

	return &AudioData{
		PCM:        pcm,
		SampleRate: buf.Format.SampleRate,
		BitDepth:   bitDepth,
		Channels:   channels,
		Duration:   time.Duration(float64(frames) / float64(buf.Format.SampleRate) * float64(time.Second)),
	}, nil
}

// WriteWAV writes mono samples to a PCM WAV file. Samples are clipped to
// [-1, 1].
func WriteWAV(path string, pcm []float64, sampleRate, bitDepth int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d: %w", sampleRate, ErrUnsupportedFormat)
	}
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return fmt.Errorf("%d-bit samples: %w", bitDepth, ErrUnsupportedFormat)
	}

	full := float64(int(1)<<(bitDepth-1) - 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(pcm)),
		SourceBitDepth: bitDepth,
	}
	clipped := 0
	for i, v := range pcm {
		if v > 1 || v < -1 {
			clipped++
		}
		buf.Data[i] = int(math.Round(common.Clamp(v, -1, 1) * full))
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output file creation error: %w", err)
	}
	defer out.Close()

	// 1 is the PCM audio format tag
	enc := wav.NewEncoder(out, sampleRate, bitDepth, 1, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("data writing error: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("could not finalize WAV file: %w", err)
	}

	if clipped > 0 {
		logging.WithFields(logging.Fields{
			"component": "audio_encoder",
			"filename":  path,
		}).Warn("Samples clipped while writing WAV", logging.Fields{"clipped": clipped})
	}
	return nil
}
