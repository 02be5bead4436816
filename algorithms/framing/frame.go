// Package framing extracts fixed-size frames from a sample sequence. Every
// per-frame consumer goes through these helpers so that edge behavior is
// identical across the pipeline: indices outside [0, len(x)) read as zero.
package framing

// FetchFrame returns a size-length buffer centered at center, covering
// x[center-size/2 : center-size/2+size]. Out-of-range samples are zero.
func FetchFrame(x []float64, center, size int) []float64 {
	return FetchSegment(x, center-size/2, size)
}

// FetchSegment returns a size-length buffer starting at start.
// Out-of-range samples are zero.
func FetchSegment(x []float64, start, size int) []float64 {
	if size <= 0 {
		return []float64{}
	}
	dst := make([]float64, size)
	FetchInto(dst, x, start)
	return dst
}

// FetchInto fills dst with x[start : start+len(dst)], writing zero for
// indices outside x. It lets per-frame workers reuse one buffer.
func FetchInto(dst, x []float64, start int) {
	n := len(dst)
	lo := min(max(-start, 0), n)
	hi := min(max(len(x)-start, lo), n)

	clear(dst[:lo])
	if lo < hi {
		copy(dst[lo:hi], x[start+lo:start+hi])
	}
	clear(dst[hi:])
}

// FrameCount returns how many hop-spaced frames fit a sequence of the given
// length, with at least one frame for any non-empty sequence.
func FrameCount(length, hop int) int {
	if length <= 0 || hop <= 0 {
		return 0
	}
	return max(1, length/hop)
}

// Centers returns frames centers spaced hop samples apart, starting at 0.
func Centers(frames, hop int) []int {
	if frames <= 0 {
		return []int{}
	}
	centers := make([]int, frames)
	for i := range centers {
		centers[i] = i * hop
	}
	return centers
}

// Uniform returns a slice of n copies of v, typically per-frame window sizes.
func Uniform(n, v int) []int {
	if n <= 0 {
		return []int{}
	}
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}
