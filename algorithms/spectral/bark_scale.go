package spectral

// HzToBark converts frequency in Hz to the Bark scale (Traunmüller 1990).
func HzToBark(hz float64) float64 {
	return 26.81*hz/(1960.0+hz) - 0.53
}

// BarkToHz converts Bark to frequency in Hz, the exact inverse of HzToBark.
func BarkToHz(bark float64) float64 {
	return 1960.0 * (bark + 0.53) / (26.28 - bark)
}

// BarkAxis returns n frequencies in Hz from 0 to maxFreq, equally spaced
// on the Bark scale.
func BarkAxis(n int, maxFreq float64) []float64 {
	if n <= 0 {
		return []float64{}
	}
	axis := make([]float64, n)
	if n == 1 {
		return axis
	}
	lo, hi := HzToBark(0), HzToBark(maxFreq)
	for i := range axis {
		axis[i] = BarkToHz(lo + (hi-lo)*float64(i)/float64(n-1))
	}
	axis[0] = 0
	axis[n-1] = maxFreq
	return axis
}
