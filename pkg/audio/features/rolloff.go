package features

import (
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/analyzers"
)

// SpectralRolloff finds, per frame, the lowest frequency below which the
// given fraction of the total spectral magnitude is concentrated.
type SpectralRolloff struct {
	rollPercent float64
}

// NewSpectralRolloff creates a rolloff extractor at the given threshold
// (0.85 for the conventional 85th percentile)
func NewSpectralRolloff(rollPercent float64) *SpectralRolloff {
	return &SpectralRolloff{rollPercent: rollPercent}
}

// Compute returns a 1 x numFrames matrix of rolloff frequencies in Hz
func (sr *SpectralRolloff) Compute(stft *analyzers.SpectrogramResult) [][]float64 {
	freqs := make([]float64, stft.FreqBins)
	for i := range freqs {
		freqs[i] = float64(i) * stft.FreqResolution
	}

	rolloff := make([]float64, stft.TimeFrames)
	for t := range stft.TimeFrames {
		total := 0.0
		for f := range stft.FreqBins {
			total += stft.Magnitude[f][t]
		}
		if total == 0 {
			continue
		}

		target := sr.rollPercent * total
		cumulative := 0.0
		for f := range stft.FreqBins {
			cumulative += stft.Magnitude[f][t]
			if cumulative >= target {
				rolloff[t] = freqs[f]
				break
			}
		}
	}

	return [][]float64{rolloff}
}
