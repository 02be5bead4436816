package linalg

import "errors"

var (
	// ErrNotSquare is returned when a factorization receives a non-square
	// or empty matrix.
	ErrNotSquare = errors.New("linalg: matrix must be square and non-empty")

	// ErrDimensionMismatch is returned when operand shapes disagree.
	ErrDimensionMismatch = errors.New("linalg: dimension mismatch")

	// ErrInvalidPermutation is returned when a permutation is not a
	// bijection on [0,n).
	ErrInvalidPermutation = errors.New("linalg: invalid permutation")
)
