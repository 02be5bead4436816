// Package polynomial finds the complex roots of real polynomials and
// evaluates polynomials at complex points.
//
// Coefficients are always given in descending power order:
// c[0]*x^n + c[1]*x^(n-1) + ... + c[n]. An LPC inverse filter
// A(z) = 1 + a1*z^-1 + ... + ap*z^-p therefore passes its coefficient slice
// unchanged, since z^p*A(z) has the same coefficients.
package polynomial

import (
	"errors"
	"math"
	"math/cmplx"
)

// ErrDegeneratePolynomial is returned for polynomials with fewer than two
// coefficients or with every coefficient zero.
var ErrDegeneratePolynomial = errors.New("polynomial: degenerate polynomial")

// Evaluate returns the value of the real polynomial at x using Horner's
// method.
func Evaluate(coeffs []float64, x complex128) complex128 {
	if len(coeffs) == 0 {
		return 0
	}
	v := complex(coeffs[0], 0)
	for i := 1; i < len(coeffs); i++ {
		v = v*x + complex(coeffs[i], 0)
	}
	return v
}

// EvaluateComplex is Evaluate for complex coefficients.
func EvaluateComplex(coeffs []complex128, x complex128) complex128 {
	if len(coeffs) == 0 {
		return 0
	}
	v := coeffs[0]
	for i := 1; i < len(coeffs); i++ {
		v = v*x + coeffs[i]
	}
	return v
}

// evaluateWithDerivatives returns p(x), p'(x) and p''(x)/2 in one Horner
// pass.
func evaluateWithDerivatives(coeffs []complex128, x complex128) (p, dp, ddp complex128) {
	p = coeffs[0]
	for i := 1; i < len(coeffs); i++ {
		ddp = ddp*x + dp
		dp = dp*x + p
		p = p*x + coeffs[i]
	}
	return p, dp, ddp
}

// Residual returns |p(x)| divided by the sum of |c_i|*|x|^(n-i), the scale
// at which rounding error in the evaluation itself lives.
func Residual(coeffs []float64, x complex128) float64 {
	v := Evaluate(coeffs, x)
	ax := cmplx.Abs(x)
	scale := 0.0
	for _, c := range coeffs {
		scale = scale*ax + math.Abs(c)
	}
	if scale == 0 {
		return 0
	}
	return cmplx.Abs(v) / scale
}
