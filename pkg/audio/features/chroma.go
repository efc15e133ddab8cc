package features

import (
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/analyzers"
)

// ChromaCQT folds a constant-Q magnitude transform into 12 pitch classes.
// With the CQT anchored at C1, bin k belongs to pitch class k mod 12, so
// octave folding is a straight sum across octaves. Each frame is then
// normalized by its peak so the chroma profile is scale-invariant.
type ChromaCQT struct {
	chromaBins int
}

// NewChromaCQT creates a CQT-based chroma extractor
func NewChromaCQT() *ChromaCQT {
	return &ChromaCQT{chromaBins: analyzers.CQTBinsPerOctave}
}

// Compute projects an 84-bin CQT magnitude matrix onto 12 chroma rows,
// preserving the frame count.
func (cc *ChromaCQT) Compute(cqt *analyzers.CQTResult) [][]float64 {
	chroma := make([][]float64, cc.chromaBins)
	for pc := range chroma {
		chroma[pc] = make([]float64, cqt.TimeFrames)
	}

	for k := range cqt.Bins {
		pc := k % cc.chromaBins
		row := cqt.Magnitude[k]
		for t := range row {
			chroma[pc][t] += row[t]
		}
	}

	// Per-frame inf-norm normalization
	for t := range cqt.TimeFrames {
		peak := 0.0
		for pc := range chroma {
			if chroma[pc][t] > peak {
				peak = chroma[pc][t]
			}
		}
		if peak > 1e-10 {
			for pc := range chroma {
				chroma[pc][t] /= peak
			}
		}
	}

	return chroma
}
