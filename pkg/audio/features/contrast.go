package features

import (
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/analyzers"
)

// SpectralContrast measures the peak-to-valley magnitude spread inside
// octave-spaced frequency sub-bands. Band 0 covers everything below fmin,
// then each of the six sub-bands spans one octave upward from fmin. Peaks
// and valleys are quantile means (alpha fraction of the band's bins), and
// the contrast is their difference in dB.
type SpectralContrast struct {
	numBands int
	fmin     float64
	alpha    float64
}

// NewSpectralContrast creates an extractor with numBands octave sub-bands
// above the baseline band
func NewSpectralContrast(numBands int) *SpectralContrast {
	return &SpectralContrast{
		numBands: numBands,
		fmin:     200.0,
		alpha:    0.02,
	}
}

// Compute returns a (numBands+1) x numFrames contrast matrix
func (sc *SpectralContrast) Compute(stft *analyzers.SpectrogramResult) [][]float64 {
	freqs := make([]float64, stft.FreqBins)
	for i := range freqs {
		freqs[i] = float64(i) * stft.FreqResolution
	}

	// Octave band edges: [0, fmin, 2*fmin, ..., fmin*2^numBands]
	edges := make([]float64, sc.numBands+2)
	edges[0] = 0
	for b := 0; b <= sc.numBands; b++ {
		edges[b+1] = sc.fmin * math.Pow(2.0, float64(b))
	}

	contrast := make([][]float64, sc.numBands+1)
	band := make([]float64, 0, stft.FreqBins)

	for b := 0; b <= sc.numBands; b++ {
		contrast[b] = make([]float64, stft.TimeFrames)

		lo, hi := edges[b], edges[b+1]
		first, last := -1, -1
		for i, f := range freqs {
			if f >= lo && (f < hi || b == sc.numBands && f <= hi) {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		if first < 0 {
			continue
		}
		// Bands share their edge bin, as librosa's sub-band split does
		if last+1 < stft.FreqBins {
			last++
		}

		for t := range stft.TimeFrames {
			band = band[:0]
			for i := first; i <= last; i++ {
				band = append(band, stft.Magnitude[i][t])
			}
			sort.Float64s(band)

			idx := quantileBins(sc.alpha, len(band))

			valley := 0.0
			peak := 0.0
			for i := range idx {
				valley += band[i]
				peak += band[len(band)-1-i]
			}
			valley /= float64(idx)
			peak /= float64(idx)

			contrast[b][t] = powerToDBScalar(peak) - powerToDBScalar(valley)
		}
	}

	return contrast
}

// quantileBins is the number of bins averaged for a band's peak and valley:
// alpha*bandSize rounded half to even, as np.rint does, never below one.
func quantileBins(alpha float64, bandSize int) int {
	idx := int(math.RoundToEven(alpha * float64(bandSize)))
	if idx < 1 {
		idx = 1
	}
	return idx
}

// powerToDBScalar converts a single magnitude to dB with the standard floor
func powerToDBScalar(v float64) float64 {
	const amin = 1e-10
	if v < amin {
		v = amin
	}
	return 10.0 * math.Log10(v)
}
