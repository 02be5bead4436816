package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Permutation records a row reordering. Entry p[i] is the index of the
// source row that ends up in row i.
type Permutation []int

// Identity returns the identity permutation of size n.
func Identity(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// Valid reports whether p is a bijection on [0,len(p)).
func (p Permutation) Valid() bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Inverse returns q such that q[p[i]] = i.
func (p Permutation) Inverse() Permutation {
	q := make(Permutation, len(p))
	for i, v := range p {
		q[v] = i
	}
	return q
}

// Sign returns +1 for an even permutation and -1 for an odd one.
func (p Permutation) Sign() float64 {
	visited := make([]bool, len(p))
	sign := 1.0
	for i := range p {
		if visited[i] {
			continue
		}
		length := 0
		for j := i; !visited[j]; j = p[j] {
			visited[j] = true
			length++
		}
		if length%2 == 0 {
			sign = -sign
		}
	}
	return sign
}

// ApplyPermutation returns a new matrix whose row i is row p[i] of m.
// The input is left untouched.
func ApplyPermutation(m mat.Matrix, p Permutation) (*mat.Dense, error) {
	if m == nil {
		return nil, fmt.Errorf("apply permutation: %w", ErrDimensionMismatch)
	}
	rows, cols := m.Dims()
	if rows != len(p) {
		return nil, fmt.Errorf("apply permutation: %d rows vs permutation of %d: %w", rows, len(p), ErrDimensionMismatch)
	}
	if !p.Valid() {
		return nil, fmt.Errorf("apply permutation %v: %w", []int(p), ErrInvalidPermutation)
	}

	out := mat.NewDense(rows, cols, nil)
	for i, src := range p {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(src, j))
		}
	}
	return out, nil
}

// PermuteVector returns b reordered so that element i is b[p[i]].
func PermuteVector(b []float64, p Permutation) ([]float64, error) {
	if len(b) != len(p) {
		return nil, fmt.Errorf("permute vector: %d vs %d: %w", len(b), len(p), ErrDimensionMismatch)
	}
	out := make([]float64, len(b))
	for i, src := range p {
		out[i] = b[src]
	}
	return out, nil
}
