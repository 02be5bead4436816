package polynomial

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomCoefficients(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	c := make([]float64, n)
	for i := range c {
		c[i] = rng.NormFloat64() * 5
	}
	return c
}

func bothMethods() []*RootConfig {
	companion := DefaultRootConfig()
	laguerre := DefaultRootConfig()
	laguerre.Method = MethodLaguerre
	return []*RootConfig{companion, laguerre}
}

func TestEvaluateHorner(t *testing.T) {
	// x^2 - 3x + 2
	c := []float64{1, -3, 2}
	assert.Equal(t, complex(0, 0), Evaluate(c, 1))
	assert.Equal(t, complex(0, 0), Evaluate(c, 2))
	assert.Equal(t, complex(2, 0), Evaluate(c, 0))
	// at i: -1 - 3i + 2
	assert.Equal(t, complex(1, -3), Evaluate(c, complex(0, 1)))

	assert.Equal(t, complex(1, -3), EvaluateComplex([]complex128{1, -3, 2}, complex(0, 1)))
	assert.Equal(t, complex(0, 0), Evaluate(nil, 3))
}

func TestRootsQuadraticAndConjugates(t *testing.T) {
	for _, cfg := range bothMethods() {
		t.Run(cfg.Method.String(), func(t *testing.T) {
			rf := NewRootFinder(cfg)

			res, err := rf.Find([]float64{1, -3, 2})
			require.NoError(t, err)
			require.Len(t, res.Roots, 2)
			assert.InDelta(t, 1.0, real(res.Roots[0]), 1e-12)
			assert.InDelta(t, 2.0, real(res.Roots[1]), 1e-12)
			assert.Zero(t, imag(res.Roots[0]))

			// x^2 + 1
			res, err = rf.Find([]float64{1, 0, 1})
			require.NoError(t, err)
			require.Len(t, res.Roots, 2)
			assert.Equal(t, cmplx.Conj(res.Roots[0]), res.Roots[1])
			assert.InDelta(t, -1.0, imag(res.Roots[0]), 1e-12)
			assert.InDelta(t, 1.0, imag(res.Roots[1]), 1e-12)
		})
	}
}

func TestRootsResidualDegree20(t *testing.T) {
	for _, cfg := range bothMethods() {
		t.Run(cfg.Method.String(), func(t *testing.T) {
			rf := NewRootFinder(cfg)
			for seed := int64(1); seed <= 5; seed++ {
				c := randomCoefficients(seed, 21)
				res, err := rf.Find(c)
				require.NoError(t, err)
				require.Len(t, res.Roots, 20)
				assert.True(t, res.Converged)

				for i, r := range res.Roots {
					assert.Less(t, Residual(c, r), 1e-8, "seed %d root %d = %v", seed, i, r)
				}
			}
		})
	}
}

func TestRootsConjugatePairsAreExact(t *testing.T) {
	c := randomCoefficients(42, 13)
	roots, err := Roots(c)
	require.NoError(t, err)

	for _, r := range roots {
		if imag(r) == 0 {
			continue
		}
		assert.Contains(t, roots, cmplx.Conj(r))
	}
}

func TestRootsDeterministicOrder(t *testing.T) {
	c := randomCoefficients(9, 11)
	a, err := Roots(c)
	require.NoError(t, err)
	b, err := Roots(c)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	for i := 1; i < len(a); i++ {
		if real(a[i-1]) == real(a[i]) {
			assert.Less(t, imag(a[i-1]), imag(a[i]))
		} else {
			assert.Less(t, real(a[i-1]), real(a[i]))
		}
	}
}

func TestRootsMethodsAgree(t *testing.T) {
	c := randomCoefficients(5, 9)

	comp, err := NewRootFinder(bothMethods()[0]).Find(c)
	require.NoError(t, err)
	lag, err := NewRootFinder(bothMethods()[1]).Find(c)
	require.NoError(t, err)

	require.Len(t, lag.Roots, len(comp.Roots))
	for i := range comp.Roots {
		assert.InDelta(t, 0, cmplx.Abs(comp.Roots[i]-lag.Roots[i]), 1e-8)
	}
}

func TestRootsLeadingAndTrailingZeros(t *testing.T) {
	// 0*x^3 + x^2 - 1 -> degree 2
	roots, err := Roots([]float64{0, 1, 0, -1})
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.InDelta(t, -1.0, real(roots[0]), 1e-12)
	assert.InDelta(t, 1.0, real(roots[1]), 1e-12)

	// x^3 - x^2 = x^2 (x - 1)
	roots, err = Roots([]float64{1, -1, 0, 0})
	require.NoError(t, err)
	require.Len(t, roots, 3)
	assert.Equal(t, []complex128{0, 0, 1}, roots)

	// z^4: the all-pole model of silence
	roots, err = Roots([]float64{1, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []complex128{0, 0, 0, 0}, roots)
}

func TestRootsDegenerateInput(t *testing.T) {
	_, err := Roots([]float64{3})
	assert.ErrorIs(t, err, ErrDegeneratePolynomial)

	_, err = Roots([]float64{0, 0, 0})
	assert.ErrorIs(t, err, ErrDegeneratePolynomial)
}

func TestRootsIterationCapReturnsEstimate(t *testing.T) {
	cfg := &RootConfig{Method: MethodLaguerre, MaxIterations: 1, Tolerance: 1e-14}
	c := randomCoefficients(2, 15)

	res, err := NewRootFinder(cfg).Find(c)
	require.NoError(t, err)
	require.Len(t, res.Roots, 14)
	assert.False(t, res.Converged)
	for _, r := range res.Roots {
		assert.False(t, cmplx.IsNaN(r) || cmplx.IsInf(r))
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("laguerre")
	require.NoError(t, err)
	assert.Equal(t, MethodLaguerre, m)

	m, err = ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodCompanion, m)

	_, err = ParseMethod("bairstow")
	assert.Error(t, err)
}

func TestResidualScale(t *testing.T) {
	assert.Zero(t, Residual([]float64{1, -2}, 2))
	assert.InDelta(t, 1.0/3.0, Residual([]float64{1, -2}, 1), 1e-15)
	assert.False(t, math.IsNaN(Residual([]float64{0, 0}, 1)))
}
