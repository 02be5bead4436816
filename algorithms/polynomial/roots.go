package polynomial

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-core/logging"
)

// Method selects the root extraction strategy.
type Method int

const (
	// MethodCompanion takes the eigenvalues of the companion matrix and
	// polishes them with Newton steps.
	MethodCompanion Method = iota

	// MethodLaguerre extracts one root at a time with Laguerre's method,
	// deflating the polynomial after each, then polishes every root on the
	// undeflated polynomial.
	MethodLaguerre
)

func (m Method) String() string {
	switch m {
	case MethodCompanion:
		return "companion"
	case MethodLaguerre:
		return "laguerre"
	default:
		return "unknown"
	}
}

// ParseMethod maps a method name to a Method.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "", "companion":
		return MethodCompanion, nil
	case "laguerre":
		return MethodLaguerre, nil
	default:
		return 0, fmt.Errorf("unknown root method %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

const (
	// snapTolerance is the relative imaginary part below which a root is
	// moved onto the real axis.
	snapTolerance = 1e-10

	// pairTolerance is the relative distance within which two roots are
	// treated as a conjugate pair and made exactly conjugate.
	pairTolerance = 1e-6

	laguerreSteps = 8
)

// laguerreFractions breaks limit cycles every laguerreSteps iterations.
var laguerreFractions = [...]float64{0.0, 0.5, 0.25, 0.75, 0.13, 0.38, 0.62, 0.88, 1.0}

// RootConfig configures a RootFinder.
type RootConfig struct {
	Method        Method  `json:"method"`
	MaxIterations int     `json:"max_iterations"` // per root, per phase
	Tolerance     float64 `json:"tolerance"`      // relative step size that counts as converged
}

// DefaultRootConfig returns the configuration used by Roots.
func DefaultRootConfig() *RootConfig {
	return &RootConfig{
		Method:        MethodCompanion,
		MaxIterations: 80,
		Tolerance:     1e-14,
	}
}

// RootResult holds the roots of one polynomial.
type RootResult struct {
	Roots      []complex128 `json:"-"`
	Converged  bool         `json:"converged"`
	Iterations int          `json:"iterations"`
}

// RootFinder extracts polynomial roots. It holds no per-call state and is
// safe for concurrent use.
type RootFinder struct {
	config RootConfig
	logger logging.Logger
}

// NewRootFinder creates a root finder. A nil config selects the defaults;
// non-positive iteration counts and tolerances are replaced by defaults.
func NewRootFinder(config *RootConfig) *RootFinder {
	def := DefaultRootConfig()
	if config == nil {
		config = def
	}
	cfg := *config
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}

	return &RootFinder{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "root_finder",
			"method":    cfg.Method.String(),
		}),
	}
}

// Roots returns the roots of coeffs (descending powers) with the default
// configuration.
func Roots(coeffs []float64) ([]complex128, error) {
	res, err := NewRootFinder(nil).Find(coeffs)
	if err != nil {
		return nil, err
	}
	return res.Roots, nil
}

// Find returns the roots of the real polynomial coeffs (descending
// powers). Leading zeros are dropped, so a polynomial of nominal degree n
// with a zero leading coefficient yields fewer than n roots. Conjugate
// pairs are returned exactly conjugate, ordered by ascending real part
// then ascending imaginary part. When an iteration cap is hit the current
// estimates are returned with Converged set to false.
func (rf *RootFinder) Find(coeffs []float64) (*RootResult, error) {
	if len(coeffs) < 2 {
		return nil, fmt.Errorf("find roots of %d coefficients: %w", len(coeffs), ErrDegeneratePolynomial)
	}

	start := 0
	for start < len(coeffs) && coeffs[start] == 0 {
		start++
	}
	if start == len(coeffs) {
		return nil, fmt.Errorf("find roots: all coefficients are zero: %w", ErrDegeneratePolynomial)
	}
	trimmed := coeffs[start:]

	// exact zero roots come off the tail before iterating
	end := len(trimmed)
	for end > 1 && trimmed[end-1] == 0 {
		end--
	}
	zeroRoots := len(trimmed) - end
	core := trimmed[:end]

	result := &RootResult{Converged: true}
	roots := make([]complex128, 0, len(trimmed)-1)

	if len(core) > 1 {
		monic := make([]complex128, len(core))
		for i, c := range core {
			monic[i] = complex(c/core[0], 0)
		}

		var found []complex128
		var ok bool
		var iters int
		switch rf.config.Method {
		case MethodLaguerre:
			found, ok, iters = rf.laguerreDeflation(monic)
		default:
			found, ok = companionRoots(monic)
			if !ok {
				rf.logger.Debug("Eigen decomposition failed, falling back to Laguerre", logging.Fields{
					"degree": len(monic) - 1,
				})
				found, ok, iters = rf.laguerreDeflation(monic)
			}
		}

		polished := 0
		for i := range found {
			var n int
			found[i], n = rf.polish(monic, found[i])
			polished += n
		}

		result.Converged = ok
		result.Iterations = iters + polished
		roots = append(roots, found...)
	}

	for range zeroRoots {
		roots = append(roots, 0)
	}

	symmetrize(roots)
	SortRoots(roots)
	result.Roots = roots

	if !result.Converged {
		rf.logger.Debug("Root extraction hit the iteration cap", logging.Fields{
			"degree":     len(trimmed) - 1,
			"iterations": result.Iterations,
		})
	}

	return result, nil
}

// companionRoots returns the eigenvalues of the companion matrix of a
// monic polynomial with real coefficients.
func companionRoots(monic []complex128) ([]complex128, bool) {
	n := len(monic) - 1
	if n == 1 {
		return []complex128{-monic[1]}, true
	}

	c := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		c.Set(0, j, -real(monic[j+1]))
	}
	for i := 1; i < n; i++ {
		c.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if !eig.Factorize(c, mat.EigenNone) {
		return nil, false
	}
	return eig.Values(nil), true
}

// laguerreDeflation finds every root of a monic polynomial by Laguerre
// iteration from the origin followed by synthetic division.
func (rf *RootFinder) laguerreDeflation(monic []complex128) ([]complex128, bool, int) {
	m := len(monic) - 1

	// ascending order makes the deflation loop read naturally
	ad := make([]complex128, m+1)
	for i := range monic {
		ad[m-i] = monic[i]
	}

	roots := make([]complex128, m)
	converged := true
	total := 0
	for j := m; j >= 1; j-- {
		x := complex(0, 0)
		its, ok := laguerre(ad[:j+1], &x, rf.config.MaxIterations, rf.config.Tolerance)
		total += its
		if !ok {
			converged = false
		}
		if math.Abs(imag(x)) <= 2*snapTolerance*math.Abs(real(x)) {
			x = complex(real(x), 0)
		}
		roots[j-1] = x

		b := ad[j]
		for jj := j - 1; jj >= 0; jj-- {
			c := ad[jj]
			ad[jj] = b
			b = x*b + c
		}
	}
	return roots, converged, total
}

// laguerre improves *x toward a root of the ascending polynomial a. It
// returns the iteration count and whether the estimate settled before
// maxIter, either at rounding level or with a relative step below tol.
func laguerre(a []complex128, x *complex128, maxIter int, tol float64) (int, bool) {
	const eps = 1e-15
	m := len(a) - 1
	fm := complex(float64(m), 0)

	for iter := 1; iter <= maxIter; iter++ {
		b := a[m]
		errBound := cmplx.Abs(b)
		var d, f complex128
		abx := cmplx.Abs(*x)
		for j := m - 1; j >= 0; j-- {
			f = *x*f + d
			d = *x*d + b
			b = *x*b + a[j]
			errBound = cmplx.Abs(b) + abx*errBound
		}
		errBound *= eps
		if cmplx.Abs(b) <= errBound {
			return iter, true
		}

		g := d / b
		g2 := g * g
		h := g2 - 2*f/b
		sq := cmplx.Sqrt((fm - 1) * (fm*h - g2))
		gp := g + sq
		gm := g - sq
		abp, abm := cmplx.Abs(gp), cmplx.Abs(gm)
		if abp < abm {
			gp = gm
		}

		var dx complex128
		if math.Max(abp, abm) > 0 {
			dx = fm / gp
		} else {
			dx = complex(1+abx, 0) * cmplx.Exp(complex(0, float64(iter)))
		}

		x1 := *x - dx
		if x1 == *x {
			return iter, true
		}
		if cmplx.Abs(dx) <= tol*math.Max(1, abx) {
			*x = x1
			return iter, true
		}
		if iter%laguerreSteps != 0 {
			*x = x1
		} else {
			idx := min(iter/laguerreSteps, len(laguerreFractions)-1)
			*x -= complex(laguerreFractions[idx], 0) * dx
		}
	}
	return maxIter, false
}

// polish refines x with Newton steps on the full polynomial, keeping a
// step only when it lowers |p(x)|.
func (rf *RootFinder) polish(monic []complex128, x complex128) (complex128, int) {
	px, dpx, _ := evaluateWithDerivatives(monic, x)
	best := cmplx.Abs(px)

	for iter := 1; iter <= rf.config.MaxIterations; iter++ {
		if best == 0 || dpx == 0 {
			return x, iter - 1
		}
		dx := px / dpx
		cand := x - dx
		pc, dpc, _ := evaluateWithDerivatives(monic, cand)
		if a := cmplx.Abs(pc); a < best {
			x, px, dpx, best = cand, pc, dpc, a
		} else {
			return x, iter
		}
		if cmplx.Abs(dx) <= rf.config.Tolerance*math.Max(1, cmplx.Abs(x)) {
			return x, iter
		}
	}
	return x, rf.config.MaxIterations
}

// symmetrize snaps near-real roots onto the real axis and makes matched
// conjugate pairs exactly conjugate.
func symmetrize(roots []complex128) {
	for i, r := range roots {
		if math.Abs(imag(r)) <= snapTolerance*math.Max(1, cmplx.Abs(r)) {
			roots[i] = complex(real(r), 0)
		}
	}

	used := make([]bool, len(roots))
	for i, r := range roots {
		if used[i] || imag(r) <= 0 {
			continue
		}
		want := cmplx.Conj(r)
		best := -1
		bestDist := math.Inf(1)
		for j, s := range roots {
			if used[j] || j == i || imag(s) >= 0 {
				continue
			}
			if d := cmplx.Abs(s - want); d < bestDist {
				best, bestDist = j, d
			}
		}
		if best < 0 || bestDist > pairTolerance*math.Max(1, cmplx.Abs(r)) {
			continue
		}
		s := roots[best]
		re := (real(r) + real(s)) / 2
		im := (imag(r) - imag(s)) / 2
		roots[i] = complex(re, im)
		roots[best] = complex(re, -im)
		used[i], used[best] = true, true
	}
}

// SortRoots orders roots by ascending real part, then ascending imaginary
// part.
func SortRoots(roots []complex128) {
	sort.SliceStable(roots, func(i, j int) bool {
		if real(roots[i]) != real(roots[j]) {
			return real(roots[i]) < real(roots[j])
		}
		return imag(roots[i]) < imag(roots[j])
	})
}
