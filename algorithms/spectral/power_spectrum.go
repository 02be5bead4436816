package spectral

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// PowerSpectrum converts magnitude spectra to power and log-power.
type PowerSpectrum struct{}

// NewPowerSpectrum creates a new power spectrum calculator
func NewPowerSpectrum() *PowerSpectrum {
	return &PowerSpectrum{}
}

// Compute returns the squared magnitude of every bin.
func (ps *PowerSpectrum) Compute(magnitudeSpectrum []float64) []float64 {
	if len(magnitudeSpectrum) == 0 {
		return []float64{}
	}

	power := make([]float64, len(magnitudeSpectrum))
	vecmath.MulBlock(power, magnitudeSpectrum, magnitudeSpectrum)
	return power
}

// ComputeFromSTFT computes the power spectrogram of an STFT result.
func (ps *PowerSpectrum) ComputeFromSTFT(stftResult *STFTResult) [][]float64 {
	if stftResult == nil {
		return [][]float64{}
	}
	power := make([][]float64, len(stftResult.Magnitude))
	for t, mag := range stftResult.Magnitude {
		power[t] = ps.Compute(mag)
	}
	return power
}

// ComputeLogFromSTFT computes the power spectrogram in dB, with every bin
// held at or above floorDB.
func (ps *PowerSpectrum) ComputeLogFromSTFT(stftResult *STFTResult, floorDB float64) [][]float64 {
	logPower := ps.ComputeFromSTFT(stftResult)
	floor := math.Pow(10, floorDB/10.0)
	for _, row := range logPower {
		for i, power := range row {
			row[i] = 10 * math.Log10(max(power, floor))
		}
	}
	return logPower
}
