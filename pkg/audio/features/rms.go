package features

import (
	"math"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/analyzers"
)

// RMSEnergy derives per-frame root-mean-square energy from an STFT
// magnitude matrix via Parseval's theorem: frame energy is reconstructed
// from the one-sided spectrum, doubling every bin except DC and Nyquist.
type RMSEnergy struct{}

// NewRMSEnergy creates an RMS energy extractor
func NewRMSEnergy() *RMSEnergy {
	return &RMSEnergy{}
}

// Compute returns a 1 x numFrames matrix of RMS energy values
func (r *RMSEnergy) Compute(stft *analyzers.SpectrogramResult) [][]float64 {
	numFrames := stft.TimeFrames
	fftSize := stft.WindowSize
	norm := float64(fftSize) * float64(fftSize)

	rms := make([]float64, numFrames)
	for t := range numFrames {
		power := 0.0
		for f := range stft.FreqBins {
			mag := stft.Magnitude[f][t]
			power += 2.0 * mag * mag
		}
		// DC and Nyquist appear once in the full spectrum
		dc := stft.Magnitude[0][t]
		nyq := stft.Magnitude[stft.FreqBins-1][t]
		power -= dc * dc
		power -= nyq * nyq

		rms[t] = math.Sqrt(power / norm)
	}

	return [][]float64{rms}
}
