package features

import (
	"math"
)

// MFCC extracts mel-frequency cepstral coefficients from a dB-scaled mel
// spectrogram using an orthonormal DCT-II along the mel axis.
type MFCC struct {
	numCoefficients int
}

// NewMFCC creates an MFCC extractor producing numCoefficients rows
func NewMFCC(numCoefficients int) *MFCC {
	return &MFCC{numCoefficients: numCoefficients}
}

// Compute returns a numCoefficients x numFrames matrix from a dB mel
// spectrogram (mel bands x frames).
func (m *MFCC) Compute(melDB [][]float64) [][]float64 {
	numBands := len(melDB)
	if numBands == 0 {
		return nil
	}
	numFrames := len(melDB[0])

	// Orthonormal DCT-II basis: sqrt(1/M) for the first row, sqrt(2/M)
	// for the rest.
	basis := make([][]float64, m.numCoefficients)
	for i := range m.numCoefficients {
		basis[i] = make([]float64, numBands)
		scale := math.Sqrt(2.0 / float64(numBands))
		if i == 0 {
			scale = math.Sqrt(1.0 / float64(numBands))
		}
		for j := range numBands {
			basis[i][j] = scale * math.Cos(math.Pi*float64(i)*(2.0*float64(j)+1.0)/(2.0*float64(numBands)))
		}
	}

	mfcc := make([][]float64, m.numCoefficients)
	for i := range m.numCoefficients {
		mfcc[i] = make([]float64, numFrames)
		for t := range numFrames {
			sum := 0.0
			for j := range numBands {
				sum += basis[i][j] * melDB[j][t]
			}
			mfcc[i][t] = sum
		}
	}

	return mfcc
}
