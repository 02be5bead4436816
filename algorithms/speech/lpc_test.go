package speech

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/mjibson/go-dsp/fft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-core/algorithms/common"
	"github.com/RyanBlaney/sonido-core/algorithms/filters"
	"github.com/RyanBlaney/sonido-core/algorithms/linalg"
	"github.com/RyanBlaney/sonido-core/algorithms/windowing"
)

func noisySine(seed int64, n int, freq, fs, noise float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2*math.Pi*freq*float64(i)/fs+0.3) + noise*rng.NormFloat64()
	}
	return x
}

func hannFrame(t *testing.T, x []float64) []float64 {
	t.Helper()
	w, err := windowing.New(windowing.KindHann, len(x), true)
	require.NoError(t, err)
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * w.Coefficients[i]
	}
	return out
}

func requireFormantNear(t *testing.T, formants []Formant, want, relTol float64) {
	t.Helper()
	for _, f := range formants {
		if math.Abs(f.Frequency-want) <= relTol*want {
			return
		}
	}
	t.Fatalf("no formant within %.0f%% of %g Hz in %v", relTol*100, want, FormantFrequencies(formants))
}

func TestLPCSinusoidFormant(t *testing.T) {
	const fs = 16000.0
	frame := hannFrame(t, noisySine(1, 1024, 1000, fs, 1e-3))

	for _, order := range []int{2, 4} {
		m, err := LPC(frame, order)
		require.NoError(t, err)
		assert.Equal(t, 1.0, m.Coefficients[0])
		assert.Len(t, m.Coefficients, order+1)
		assert.Len(t, m.Autocorrelation, order+1)

		formants, err := FormantExtract(m.Coefficients, fs)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(formants), order/2)
		requireFormantNear(t, formants, 1000, 0.03)

		for _, f := range formants {
			assert.Greater(t, f.Bandwidth, 0.0)
			assert.Less(t, cmplx.Abs(f.Pole), 1.0)
		}
	}
}

func TestLPCSilentFrame(t *testing.T) {
	m, err := LPC(make([]float64, 256), 10)
	require.NoError(t, err)
	assert.True(t, m.IllConditioned)
	assert.Equal(t, append([]float64{1}, make([]float64, 10)...), m.Coefficients)
	assert.Zero(t, m.Gain())

	formants, err := FormantExtract(m.Coefficients, 16000)
	require.NoError(t, err)
	assert.Empty(t, formants)

	s, err := Spectrum(m.Coefficients, m.Gain(), 64)
	require.NoError(t, err)
	assert.True(t, common.IsFinite(s))
}

func TestLPCMatchesNormalEquations(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := make([]float64, 400)
	for i := range x {
		x[i] = rng.NormFloat64()
		if i > 0 {
			x[i] += 0.8 * x[i-1]
		}
	}
	const order = 8

	m, err := LPC(x, order)
	require.NoError(t, err)
	assert.False(t, m.IllConditioned)

	// solve the Toeplitz system directly
	r := m.Autocorrelation
	toeplitz := mat.NewDense(order, order, nil)
	rhs := make([]float64, order)
	for i := range order {
		for j := range order {
			toeplitz.Set(i, j, r[int(math.Abs(float64(i-j)))])
		}
		rhs[i] = -r[i+1]
	}
	lu, err := linalg.Decompose(toeplitz, 0)
	require.NoError(t, err)
	want, err := lu.Solve(rhs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, m.Coefficients[1:], 1e-9)

	for _, k := range m.Reflection {
		assert.Less(t, math.Abs(k), 1.0)
	}

	// the gain is the energy of the full-length prediction error
	padded := append(append([]float64{}, x...), make([]float64, order)...)
	e := Residual(padded, m.Coefficients)
	energy := 0.0
	for _, v := range e {
		energy += v * v
	}
	assert.InEpsilon(t, energy, m.Gain(), 1e-9)
}

func TestSpectralLPCMatchesTimeDomain(t *testing.T) {
	x := hannFrame(t, noisySine(2, 256, 700, 8000, 0.1))
	const (
		order = 6
		nfft  = 1024 // at least twice the frame, so no circular aliasing
	)

	padded := make([]float64, nfft)
	copy(padded, x)
	spectrum := fft.FFTReal(padded)
	mag := make([]float64, nfft/2+1)
	for k := range mag {
		mag[k] = math.Hypot(real(spectrum[k]), imag(spectrum[k]))
	}

	r := PowerAutocorrelation(mag, order)
	assert.InDeltaSlice(t, Autocorrelation(x, order), r, 1e-9)

	freq, err := SpectralLPC(mag, order)
	require.NoError(t, err)
	assert.Nil(t, freq.Reflection)

	timeDomain, err := LPC(x, order)
	require.NoError(t, err)
	assert.InDeltaSlice(t, timeDomain.Coefficients, freq.Coefficients, 1e-6)
	assert.InEpsilon(t, timeDomain.Gain(), freq.Gain(), 1e-6)
}

func TestSpectralLPCSilentAndInvalid(t *testing.T) {
	m, err := SpectralLPC(make([]float64, 65), 8)
	require.NoError(t, err)
	assert.True(t, m.IllConditioned)
	assert.Equal(t, 1.0, m.Coefficients[0])
	for _, v := range m.Coefficients[1:] {
		assert.Zero(t, v)
	}

	_, err = SpectralLPC([]float64{1}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = SpectralLPC(make([]float64, 5), 8)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = SpectralLPC(make([]float64, 65), 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGainAndSpectrum(t *testing.T) {
	assert.Equal(t, 1.5, Gain([]float64{1, -0.5}, []float64{2, 1}))
	assert.Zero(t, Gain([]float64{1, 2}, []float64{1, -1}))

	// |1 - 0.5 e^-jω|² = 1.25 - cos ω
	s, err := Spectrum([]float64{1, -0.5}, 1, 8)
	require.NoError(t, err)
	require.Len(t, s, 5)
	for k, v := range s {
		w := 2 * math.Pi * float64(k) / 8
		assert.InDelta(t, 1/(1.25-math.Cos(w)), v, 1e-12)
	}

	_, err = Spectrum([]float64{1, 0, 0, 0}, 1, 2)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLPCRejectsInvalidInput(t *testing.T) {
	_, err := LPC(make([]float64, 10), 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = LPC(make([]float64, 4), 4)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = Levinson([]float64{1, 0.5}, 3)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestResidualSynthesizeRoundTrip(t *testing.T) {
	x := noisySine(3, 300, 440, 8000, 0.1)
	m, err := LPC(x, 6)
	require.NoError(t, err)

	e := Residual(x, m.Coefficients)
	assert.InDeltaSlice(t, x, Synthesize(e, m.Coefficients), 1e-9)
	// prediction removes most of the energy of a sinusoid
	assert.Less(t, common.RMS(e[10:]), 0.5*common.RMS(x))
}

func TestResynthesisThroughPreEmphasis(t *testing.T) {
	x := noisySine(4, 600, 300, 8000, 0.05)
	emphasis, err := filters.NewPreEmphasis(filters.DefaultPreEmphasis)
	require.NoError(t, err)

	emphasized := emphasis.Apply(x)
	m, err := LPC(hannFrame(t, emphasized), 8)
	require.NoError(t, err)

	e := Residual(emphasized, m.Coefficients)
	y := emphasis.Invert(Synthesize(e, m.Coefficients))
	assert.InDeltaSlice(t, x, y, 1e-8)
	assert.Less(t, common.RelativeRMSError(x, y), 1e-9)
}
