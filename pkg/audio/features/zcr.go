package features

// ZeroCrossingRate computes the per-frame fraction of sign changes in the
// raw waveform. Frames are centered, with edge padding so boundary frames
// see real signal values rather than silence.
type ZeroCrossingRate struct {
	frameLength int
	hopSize     int
}

// NewZeroCrossingRate creates a ZCR extractor with the given framing
func NewZeroCrossingRate(frameLength, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		frameLength: frameLength,
		hopSize:     hopSize,
	}
}

// Compute returns a 1 x numFrames matrix of zero-crossing rates
func (z *ZeroCrossingRate) Compute(signal []float64) [][]float64 {
	numFrames := 1 + len(signal)/z.hopSize
	padded := edgePadded(signal, z.frameLength/2)

	rates := make([]float64, numFrames)
	for t := range numFrames {
		start := t * z.hopSize
		crossings := 0
		for i := start + 1; i < start+z.frameLength; i++ {
			if signbit(padded[i-1]) != signbit(padded[i]) {
				crossings++
			}
		}
		rates[t] = float64(crossings) / float64(z.frameLength)
	}

	return [][]float64{rates}
}

// signbit treats zero as non-negative, matching librosa's convention
func signbit(v float64) bool {
	return v < 0
}

func edgePadded(signal []float64, pad int) []float64 {
	if len(signal) == 0 {
		return make([]float64, 2*pad)
	}
	n := len(signal)
	out := make([]float64, n+2*pad)
	copy(out[pad:], signal)
	for i := range pad {
		out[i] = signal[0]
		out[pad+n+i] = signal[n-1]
	}
	return out
}
