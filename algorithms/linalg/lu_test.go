package linalg

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func magic5() *mat.Dense {
	return mat.NewDense(5, 5, []float64{
		17, 23, 4, 10, 11,
		24, 5, 6, 12, 18,
		1, 7, 13, 19, 25,
		8, 14, 20, 21, 2,
		15, 16, 22, 3, 9,
	})
}

func randomMatrix(rng *rand.Rand, n int) *mat.Dense {
	data := make([]float64, n*n)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	// diagonal boost keeps the draws well-conditioned
	for i := 0; i < n; i++ {
		data[i*n+i] += float64(n)
	}
	return mat.NewDense(n, n, data)
}

func requireMatrixNear(t *testing.T, want, got mat.Matrix, tol float64) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, wr, gr)
	require.Equal(t, wc, gc)
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			require.InDelta(t, want.At(i, j), got.At(i, j), tol, "element [%d,%d]", i, j)
		}
	}
}

func TestDecomposeMagicSquarePivot(t *testing.T) {
	a := magic5()
	orig := mat.DenseCopyOf(a)

	f, err := Decompose(a, 0)
	require.NoError(t, err)

	perm := f.Permutation()
	require.True(t, perm.Valid())
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, []int(perm))
	// row 1 holds 24, the largest entry of column 0
	assert.Equal(t, 1, perm[0])
	assert.False(t, f.IllConditioned())

	// input must not be mutated
	assert.True(t, mat.Equal(orig, a))

	pa, err := ApplyPermutation(a, perm)
	require.NoError(t, err)

	var lu mat.Dense
	lu.Mul(f.L(), f.U())
	requireMatrixNear(t, pa, &lu, 1e-9)
}

func TestDecomposeReconstructsRandomMatrices(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, n := range []int{1, 2, 3, 10, 24, 40} {
		a := randomMatrix(rng, n)
		f, err := Decompose(a, 0)
		require.NoError(t, err)
		require.True(t, f.Permutation().Valid())

		pa, err := ApplyPermutation(a, f.Permutation())
		require.NoError(t, err)

		var lu mat.Dense
		lu.Mul(f.L(), f.U())
		requireMatrixNear(t, pa, &lu, 1e-6)
	}
}

func TestDecomposeFactorShapes(t *testing.T) {
	f, err := Decompose(magic5(), 0)
	require.NoError(t, err)

	l, u := f.L(), f.U()
	for i := 0; i < 5; i++ {
		assert.Equal(t, 1.0, l.At(i, i))
		for j := i + 1; j < 5; j++ {
			assert.Zero(t, l.At(i, j))
			assert.Zero(t, u.At(j, i))
		}
		// partial pivoting bounds the multipliers by one
		for j := 0; j < i; j++ {
			assert.LessOrEqual(t, math.Abs(l.At(i, j)), 1.0)
		}
	}
}

func TestDecomposeMatchesGonumDeterminant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	a := randomMatrix(rng, 8)

	f, err := Decompose(a, 0)
	require.NoError(t, err)

	var ref mat.LU
	ref.Factorize(a)
	assert.InEpsilon(t, ref.Det(), f.Det(), 1e-9)

	// magic(5) determinant is 5070000
	m, err := Decompose(magic5(), 0)
	require.NoError(t, err)
	assert.InEpsilon(t, 5070000.0, m.Det(), 1e-9)
}

func TestSolve(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := randomMatrix(rng, 12)
	want := make([]float64, 12)
	for i := range want {
		want[i] = rng.NormFloat64()
	}
	b := make([]float64, 12)
	for i := range b {
		for j := range want {
			b[i] += a.At(i, j) * want[j]
		}
	}

	f, err := Decompose(a, 0)
	require.NoError(t, err)
	got, err := f.Solve(b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-9)

	_, err = f.Solve(b[:3])
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDecomposeSingularIsFlaggedNotFatal(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		2, 4, 6,
		1, 1, 1,
	})

	f, err := Decompose(a, 0)
	require.NoError(t, err)
	assert.True(t, f.IllConditioned())

	x, err := f.Solve([]float64{1, 2, 3})
	require.NoError(t, err)
	for _, v := range x {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}

	zero := mat.NewDense(4, 4, nil)
	fz, err := Decompose(zero, 0)
	require.NoError(t, err)
	assert.True(t, fz.IllConditioned())
	assert.Zero(t, fz.MinPivot())
	x, err = fz.Solve([]float64{1, 1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, x)
}

func TestDecomposeRejectsNonSquare(t *testing.T) {
	_, err := Decompose(mat.NewDense(2, 3, nil), 0)
	assert.ErrorIs(t, err, ErrNotSquare)

	_, err = Decompose(nil, 0)
	assert.ErrorIs(t, err, ErrNotSquare)
}

func TestPivotThenDoolittleMatchesDecompose(t *testing.T) {
	a := magic5()

	perm, err := Pivot(a)
	require.NoError(t, err)

	pa, err := ApplyPermutation(a, perm)
	require.NoError(t, err)

	l, u, ill, err := Doolittle(pa)
	require.NoError(t, err)
	assert.False(t, ill)

	f, err := Decompose(a, 0)
	require.NoError(t, err)
	requireMatrixNear(t, f.L(), l, 1e-9)
	requireMatrixNear(t, f.U(), u, 1e-9)
}

func TestTriangularSubstitution(t *testing.T) {
	l := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		2, 1, 0,
		3, 4, 1,
	})
	u := mat.NewDense(3, 3, []float64{
		5, 6, 7,
		0, 8, 9,
		0, 0, 10,
	})
	want := []float64{1, -2, 0.5}

	var a mat.Dense
	a.Mul(l, u)
	b := mat.NewVecDense(3, nil)
	b.MulVec(&a, mat.NewVecDense(3, want))

	y, err := ForwardSubstitute(l, b.RawVector().Data)
	require.NoError(t, err)
	x, err := BackSubstitute(u, y)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, x, 1e-12)
}

func TestPermutationHelpers(t *testing.T) {
	p := Permutation{2, 0, 1}
	assert.True(t, p.Valid())
	assert.Equal(t, Permutation{1, 2, 0}, p.Inverse())
	assert.Equal(t, 1.0, p.Sign())
	assert.Equal(t, -1.0, Permutation{1, 0, 2}.Sign())

	assert.False(t, Permutation{0, 0, 1}.Valid())
	assert.False(t, Permutation{0, 3, 1}.Valid())

	m := mat.NewDense(3, 2, []float64{
		1, 1,
		2, 2,
		3, 3,
	})
	out, err := ApplyPermutation(m, p)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 1, 1, 2, 2}, out.RawMatrix().Data)

	_, err = ApplyPermutation(m, Permutation{0, 0, 1})
	assert.ErrorIs(t, err, ErrInvalidPermutation)

	_, err = ApplyPermutation(m, Permutation{0, 1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
