package analyzers

import "math"

// WindowGenerator produces analysis windows for spectral transforms
type WindowGenerator struct{}

// NewWindowGenerator creates a new window generator
func NewWindowGenerator() *WindowGenerator {
	return &WindowGenerator{}
}

// Hann returns a periodic Hann window of the given size.
// The periodic form matches the convention the transforms below assume.
func (wg *WindowGenerator) Hann(size int) []float64 {
	window := make([]float64, size)
	if size == 1 {
		window[0] = 1.0
		return window
	}
	for i := range size {
		window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(size)))
	}
	return window
}

// HannSymmetric returns a symmetric Hann window, used for CQT kernels
func (wg *WindowGenerator) HannSymmetric(size int) []float64 {
	window := make([]float64, size)
	if size == 1 {
		window[0] = 1.0
		return window
	}
	for i := range size {
		window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}

// reflectPad pads the signal on both sides by mirroring without repeating
// the edge sample.
func reflectPad(signal []float64, pad int) []float64 {
	if pad <= 0 {
		return signal
	}
	n := len(signal)
	out := make([]float64, n+2*pad)
	for j := range out {
		out[j] = signal[reflectIndex(j-pad, n)]
	}
	return out
}

// reflectIndex folds an out-of-range index back into [0, n)
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = ((i % period) + period) % period
	if i >= n {
		i = period - i
	}
	return i
}
