package main

import (
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/sonido-core/algorithms/common"
	"github.com/RyanBlaney/sonido-core/algorithms/filters"
	"github.com/RyanBlaney/sonido-core/algorithms/framing"
	"github.com/RyanBlaney/sonido-core/algorithms/linalg"
	"github.com/RyanBlaney/sonido-core/algorithms/periodicity"
	"github.com/RyanBlaney/sonido-core/algorithms/polynomial"
	"github.com/RyanBlaney/sonido-core/algorithms/spectral"
	"github.com/RyanBlaney/sonido-core/algorithms/speech"
	"github.com/RyanBlaney/sonido-core/internal/parallel"
	"github.com/RyanBlaney/sonido-core/transcode"
)

func printMatrix(name string, m mat.Matrix) {
	fmt.Printf("%s =\n%6.3f\n", name, mat.Formatted(m, mat.Prefix(""), mat.Squeeze()))
}

// testLA pivots, permutes and factorizes magic(5), then solves a random
// well-conditioned system.
func (s *session) testLA() error {
	a := mat.NewDense(5, 5, []float64{
		17, 23, 4, 10, 11,
		24, 5, 6, 12, 18,
		1, 7, 13, 19, 25,
		8, 14, 20, 21, 2,
		15, 16, 22, 3, 9,
	})
	printMatrix("A", a)

	perm, err := linalg.Pivot(a)
	if err != nil {
		return err
	}
	fmt.Println("Permutation:", perm)

	pa, err := linalg.ApplyPermutation(a, perm)
	if err != nil {
		return err
	}
	printMatrix("PA", pa)

	l, u, ill, err := linalg.Doolittle(pa)
	if err != nil {
		return err
	}
	printMatrix("L", l)
	printMatrix("U", u)

	var diff mat.Dense
	diff.Mul(l, u)
	diff.Sub(pa, &diff)
	fmt.Printf("||PA - LU||_1 = %.3g, ill-conditioned = %v\n", mat.Norm(&diff, 1), ill)

	const n = 32
	data := make([]float64, n*n)
	for i := range data {
		data[i] = s.rng.NormFloat64()
	}
	sys := mat.NewDense(n, n, data)
	for i := range n {
		sys.Set(i, i, sys.At(i, i)+n)
	}
	want := make([]float64, n)
	for i := range want {
		want[i] = s.rng.NormFloat64()
	}
	var b mat.VecDense
	b.MulVec(sys, mat.NewVecDense(n, want))

	f, err := linalg.Decompose(sys, 0)
	if err != nil {
		return err
	}
	got, err := f.Solve(b.RawVector().Data)
	if err != nil {
		return err
	}
	fmt.Printf("random %dx%d solve: relative error %.3g, det sign %+.0f\n",
		n, n, common.RelativeRMSError(want, got), math.Copysign(1, f.Det()))
	return nil
}

// testNumerical finds the roots of a random order-20 polynomial.
func (s *session) testNumerical() error {
	const order = 20
	a := make([]float64, order+1)
	for i := range a {
		a[i] = 5 * s.rng.NormFloat64()
	}

	res, err := polynomial.NewRootFinder(&s.cfg.Roots).Find(a)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Root\tReal\tImag\t|f(root)|\tRelative residual\n")
	for i, r := range res.Roots {
		fmt.Fprintf(tw, "%d\t%+.6f\t%+.6f\t%.3g\t%.3g\n",
			i, real(r), imag(r), cmplx.Abs(polynomial.Evaluate(a, r)), polynomial.Residual(a, r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("method %s, converged %v, iterations %d\n", s.cfg.Roots.Method, res.Converged, res.Iterations)
	return nil
}

// testIF tracks the instantaneous frequency near the configured center.
func (s *session) testIF() error {
	d, err := periodicity.NewIFDetector(s.cfg.IF.CenterHz/s.fs, s.cfg.IF.ResolutionHz/s.fs)
	if err != nil {
		return err
	}

	hop := s.cfg.IF.Hop
	frames := framing.FrameCount(len(s.x), hop)
	track := parallel.Map(frames, func(i int) []float64 {
		frame := framing.FetchFrame(s.x, i*hop, d.Size())
		return []float64{float64(i*hop) / s.fs, d.Estimate(frame) * s.fs}
	})

	freqs := make([]float64, frames)
	for i, row := range track {
		freqs[i] = row[1]
	}
	mean, std := stat.MeanStdDev(freqs, nil)
	fmt.Printf("IF near %.0f Hz over %d frames: mean %.2f Hz, std %.2f Hz\n", s.cfg.IF.CenterHz, frames, mean, std)

	return s.writeMatrix("if.csv", track)
}

// testLPC fits warped spectral LPC models to every STFT frame.
func (s *session) testLPC() error {
	res, err := spectral.NewSTFT().Forward(s.x, &s.cfg.STFT)
	if err != nil {
		return err
	}

	analyzer, err := speech.NewAnalyzer(&s.cfg.LPC, &s.cfg.Roots)
	if err != nil {
		return err
	}
	out, err := analyzer.AnalyzeSTFT(res, s.fs, s.cfg.LPC.MaxFreq, s.cfg.LPC.Warp)
	if err != nil {
		return err
	}

	step := max(len(out.Frames)/10, 1)
	for i := 0; i < len(out.Frames); i += step {
		for j, f := range out.Frames[i].Formants {
			fmt.Printf("frame %d formant %d: %.1f Hz (bw %.1f Hz, pole %.4f%+.4fi)\n",
				i, j, f.Frequency, f.Bandwidth, real(f.Pole), imag(f.Pole))
		}
	}
	mid := out.Frames[len(out.Frames)/2]
	fmt.Printf("%d frames, %d ill-conditioned, vocal tract estimate %.1f cm\n",
		len(out.Frames), out.IllConditioned, speech.VocalTractLength(mid.Formants))

	if err := s.writeMatrix("lpc-envelope.csv", out.EnvelopeMatrix()); err != nil {
		return err
	}
	return s.writeMatrix("lpc-formants.csv", out.FormantTracks(4))
}

// testLPCWave runs time-domain LPC on the waveform, then inverse filters
// the signal with the model of the middle frame and resynthesizes it.
// The resynthesis is compared against the input.
func (s *session) testLPCWave() error {
	analyzer, err := speech.NewAnalyzer(&s.cfg.LPC, &s.cfg.Roots)
	if err != nil {
		return err
	}
	out, err := analyzer.AnalyzeSignal(s.x)
	if err != nil {
		return err
	}

	var first []float64
	for _, f := range out.Frames {
		if len(f.Formants) > 0 {
			first = append(first, f.Formants[0].Frequency)
		}
	}
	if len(first) > 0 {
		fmt.Printf("first formant: mean %.1f Hz over %d frames\n", stat.Mean(first, nil), len(first))
	}
	fmt.Printf("%d frames, %d ill-conditioned\n", len(out.Frames), out.IllConditioned)

	// the model was fit to the pre-emphasized signal
	emphasis, err := filters.NewPreEmphasis(s.cfg.LPC.PreEmphasis)
	if err != nil {
		return err
	}
	a := out.Frames[len(out.Frames)/2].Model.Coefficients
	residual := speech.Residual(emphasis.Apply(s.x), a)
	y := emphasis.Invert(speech.Synthesize(residual, a))
	fmt.Printf("residual RMS %.4g of signal RMS %.4g, resynthesis error %.3g\n",
		common.RMS(residual), common.RMS(s.x), common.RelativeRMSError(s.x, y))

	if peak := vecmath.MaxAbs(residual); peak > 0 {
		scaled := make([]float64, len(residual))
		for i, v := range residual {
			scaled[i] = 0.9 * v / peak
		}
		if err := transcode.WriteWAV(s.path("out-lpc-residual.wav"), scaled, int(s.fs), s.bitDepth); err != nil {
			return err
		}
	}
	return s.writeMatrix("lpcwave-envelope.csv", out.EnvelopeMatrix())
}

// testCorrelogram computes an ACF-family correlogram, remaps it onto a
// frequency axis and reads a pitch estimate off every frame.
func (s *session) testCorrelogram() error {
	c := s.cfg.Correlogram
	frames := framing.FrameCount(len(s.x), c.Hop)
	centers := framing.Centers(frames, c.Hop)
	sizes := framing.Uniform(frames, c.WindowSize)

	r, err := periodicity.Correlogram(s.x, centers, sizes, frames, c.MaxPeriod, c.Method)
	if err != nil {
		return err
	}

	minLag := max(int(s.fs/c.MaxFreq), 1)
	var pitch []float64
	for _, row := range r {
		var lag int
		if c.Method.Peaked() {
			lag = common.ArgMax(row, minLag, c.MaxPeriod)
		} else {
			lag = common.ArgMin(row, minLag, c.MaxPeriod)
		}
		if lag > 0 {
			pitch = append(pitch, s.fs/float64(lag))
		}
	}
	if len(pitch) > 0 {
		fmt.Printf("%s correlogram, %d frames: mean period-based pitch %.1f Hz\n",
			c.Method, frames, common.Mean(pitch))
	}

	faxis := common.Linspace(0, c.MaxFreq, 1000)
	return s.writeMatrix("corr.csv", periodicity.InverseMap(r, c.MaxPeriod, s.fs, faxis))
}

// testSpectral computes a log power spectrogram, checks that the STFT
// reconstructs the input, and resynthesizes a version whose low-pass cutoff
// wobbles over time.
func (s *session) testSpectral() error {
	cfg := s.cfg.STFT
	cfg.ComputePhase = true
	stft := spectral.NewSTFT()

	res, err := stft.Forward(s.x, &cfg)
	if err != nil {
		return err
	}

	logPower := spectral.NewPowerSpectrum().ComputeLogFromSTFT(res, -120)
	fmt.Println("Selected content of the log spectrogram:")
	for i := 0; i < res.TimeFrames; i += max(res.TimeFrames/5, 1) {
		for j := 0; j < res.FreqBins; j += max(res.FreqBins/4, 1) {
			fmt.Printf("%10.3f ", logPower[i][j])
		}
		fmt.Println()
	}
	if err := s.writeMatrix("spec.csv", logPower); err != nil {
		return err
	}

	y, err := stft.Inverse(res.Magnitude, res.Phase, &cfg, res.Norm)
	if err != nil {
		return err
	}
	fmt.Printf("reconstruction error %.3g\n", common.RelativeRMSError(s.x, y))

	// cutoff positions follow a 1025-bin grid and are scaled to this one
	scale := float64(res.FreqBins) / 1025
	wow := make([][]float64, res.TimeFrames)
	for i, row := range res.Magnitude {
		sin := math.Sin(float64(i) * 0.05)
		cut := min(int(math.Round((30+sin*sin*200)*scale)), res.FreqBins)
		wow[i] = make([]float64, len(row))
		copy(wow[i][:cut], row[:cut])
	}
	y, err = stft.Inverse(wow, res.Phase, &cfg, res.Norm)
	if err != nil {
		return err
	}
	if err := transcode.WriteWAV(s.path("out-stft-wow.wav"), y, int(s.fs), s.bitDepth); err != nil {
		return err
	}

	fmt.Println("Selected content of y:")
	for i := 0; i < len(y); i += max(len(y)/20, 1) {
		fmt.Printf("%10f ", y[i])
	}
	fmt.Println()
	return nil
}
