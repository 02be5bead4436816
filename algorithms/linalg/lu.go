package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-core/logging"
)

// DefaultPivotTolerance is the relative pivot magnitude (against the
// largest absolute entry of the input) below which a factorization is
// flagged as ill-conditioned.
const DefaultPivotTolerance = 1e-12

// LU holds a row-pivoted factorization P·A = L·U. L is unit lower
// triangular and U is upper triangular; both are packed in one matrix.
type LU struct {
	n              int
	packed         *mat.Dense
	perm           Permutation
	minPivot       float64
	illConditioned bool
}

// Decompose factorizes a copy of a with partial pivoting. At step k the
// remaining row with the largest |a[i][k]| becomes the pivot (lowest index
// wins ties). Small pivots never abort the elimination; they set
// IllConditioned so the caller can decide what to trust. A non-positive
// tol selects DefaultPivotTolerance.
func Decompose(a mat.Matrix, tol float64) (*LU, error) {
	n, err := squareSize(a)
	if err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}
	if tol <= 0 {
		tol = DefaultPivotTolerance
	}

	w := mat.DenseCopyOf(a)
	perm := Identity(n)
	threshold := tol * maxAbs(w)

	f := &LU{n: n, packed: w, perm: perm, minPivot: math.Inf(1)}

	for k := 0; k < n; k++ {
		pivotRow := k
		pivotAbs := math.Abs(w.At(k, k))
		for i := k + 1; i < n; i++ {
			if v := math.Abs(w.At(i, k)); v > pivotAbs {
				pivotAbs = v
				pivotRow = i
			}
		}

		if pivotRow != k {
			swapRows(w, k, pivotRow)
			perm[k], perm[pivotRow] = perm[pivotRow], perm[k]
		}

		if pivotAbs < f.minPivot {
			f.minPivot = pivotAbs
		}
		if pivotAbs <= threshold {
			f.illConditioned = true
		}
		if pivotAbs == 0 {
			// nothing to eliminate with; leave zero multipliers
			continue
		}

		pivot := w.At(k, k)
		for i := k + 1; i < n; i++ {
			m := w.At(i, k) / pivot
			w.Set(i, k, m)
			if m == 0 {
				continue
			}
			for j := k + 1; j < n; j++ {
				w.Set(i, j, w.At(i, j)-m*w.At(k, j))
			}
		}
	}

	if f.illConditioned {
		logging.WithFields(logging.Fields{
			"component": "linalg",
			"function":  "Decompose",
			"n":         n,
			"min_pivot": f.minPivot,
		}).Debug("Factorization is ill-conditioned")
	}

	return f, nil
}

// Pivot returns only the row order partial pivoting would choose for a.
// Doolittle(ApplyPermutation(a, Pivot(a))) reproduces Decompose(a).
func Pivot(a mat.Matrix) (Permutation, error) {
	f, err := Decompose(a, 0)
	if err != nil {
		return nil, fmt.Errorf("pivot: %w", err)
	}
	return f.Permutation(), nil
}

// Size returns the matrix order n.
func (f *LU) Size() int { return f.n }

// Permutation returns a copy of the recorded row permutation.
func (f *LU) Permutation() Permutation {
	p := make(Permutation, len(f.perm))
	copy(p, f.perm)
	return p
}

// IllConditioned reports whether a pivot fell below the tolerance.
func (f *LU) IllConditioned() bool { return f.illConditioned }

// MinPivot returns the smallest pivot magnitude met during elimination.
func (f *LU) MinPivot() float64 { return f.minPivot }

// L returns the unit lower triangular factor.
func (f *LU) L() *mat.Dense {
	l := mat.NewDense(f.n, f.n, nil)
	for i := 0; i < f.n; i++ {
		l.Set(i, i, 1)
		for j := 0; j < i; j++ {
			l.Set(i, j, f.packed.At(i, j))
		}
	}
	return l
}

// U returns the upper triangular factor.
func (f *LU) U() *mat.Dense {
	u := mat.NewDense(f.n, f.n, nil)
	for i := 0; i < f.n; i++ {
		for j := i; j < f.n; j++ {
			u.Set(i, j, f.packed.At(i, j))
		}
	}
	return u
}

// Det returns the determinant of the factorized matrix.
func (f *LU) Det() float64 {
	det := f.perm.Sign()
	for i := 0; i < f.n; i++ {
		det *= f.packed.At(i, i)
	}
	return det
}

// Solve returns x with A·x = b. Components whose pivot is exactly zero
// come back as zero, so a singular system yields a finite best effort.
func (f *LU) Solve(b []float64) ([]float64, error) {
	pb, err := PermuteVector(b, f.perm)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}

	// forward substitution with the implicit unit diagonal
	for i := 0; i < f.n; i++ {
		sum := pb[i]
		for j := 0; j < i; j++ {
			sum -= f.packed.At(i, j) * pb[j]
		}
		pb[i] = sum
	}

	return backSubstitute(f.packed, pb), nil
}

// Doolittle factorizes a without pivoting (L has a unit diagonal). It is
// meant for matrices already reordered with ApplyPermutation. The
// ill-conditioned flag follows the same relative rule as Decompose.
func Doolittle(a mat.Matrix) (l, u *mat.Dense, illConditioned bool, err error) {
	n, err := squareSize(a)
	if err != nil {
		return nil, nil, false, fmt.Errorf("doolittle: %w", err)
	}

	threshold := DefaultPivotTolerance * maxAbs(a)
	l = mat.NewDense(n, n, nil)
	u = mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		l.Set(i, i, 1)
	}

	var sum, pivot float64
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sum = 0
			for k := 0; k < i; k++ {
				sum += l.At(i, k) * u.At(k, j)
			}
			u.Set(i, j, a.At(i, j)-sum)
		}

		pivot = u.At(i, i)
		if math.Abs(pivot) <= threshold {
			illConditioned = true
		}
		if pivot == 0 {
			continue
		}

		for j := i + 1; j < n; j++ {
			sum = 0
			for k := 0; k < i; k++ {
				sum += l.At(j, k) * u.At(k, i)
			}
			l.Set(j, i, (a.At(j, i)-sum)/pivot)
		}
	}

	return l, u, illConditioned, nil
}

// ForwardSubstitute solves L·y = b for lower triangular l.
func ForwardSubstitute(l mat.Matrix, b []float64) ([]float64, error) {
	n, err := squareSize(l)
	if err != nil {
		return nil, fmt.Errorf("forward substitute: %w", err)
	}
	if len(b) != n {
		return nil, fmt.Errorf("forward substitute: %w", ErrDimensionMismatch)
	}

	y := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= l.At(i, j) * y[j]
		}
		if d := l.At(i, i); d != 0 {
			y[i] = sum / d
		}
	}
	return y, nil
}

// BackSubstitute solves U·x = y for upper triangular u.
func BackSubstitute(u mat.Matrix, y []float64) ([]float64, error) {
	n, err := squareSize(u)
	if err != nil {
		return nil, fmt.Errorf("back substitute: %w", err)
	}
	if len(y) != n {
		return nil, fmt.Errorf("back substitute: %w", ErrDimensionMismatch)
	}

	x := make([]float64, n)
	copy(x, y)
	return backSubstitute(u, x), nil
}

// backSubstitute overwrites x with the solution of U·x = x, reading only
// the upper triangle of u.
func backSubstitute(u mat.Matrix, x []float64) []float64 {
	n := len(x)
	for i := n - 1; i >= 0; i-- {
		sum := x[i]
		for j := i + 1; j < n; j++ {
			sum -= u.At(i, j) * x[j]
		}
		if d := u.At(i, i); d != 0 {
			x[i] = sum / d
		} else {
			x[i] = 0
		}
	}
	return x
}

func squareSize(a mat.Matrix) (int, error) {
	if a == nil {
		return 0, ErrNotSquare
	}
	r, c := a.Dims()
	if r != c || r == 0 {
		return 0, ErrNotSquare
	}
	return r, nil
}

func maxAbs(a mat.Matrix) float64 {
	r, c := a.Dims()
	m := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := math.Abs(a.At(i, j)); v > m {
				m = v
			}
		}
	}
	return m
}

func swapRows(w *mat.Dense, i, j int) {
	_, c := w.Dims()
	for k := 0; k < c; k++ {
		vi, vj := w.At(i, k), w.At(j, k)
		w.Set(i, k, vj)
		w.Set(j, k, vi)
	}
}
