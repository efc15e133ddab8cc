package analyzers

import (
	"math"
)

// DefaultMelBands is the mel filter count the MFCC path was fit with
const DefaultMelBands = 128

// MelScale provides mel frequency conversion and filter bank construction.
// Conversions use the Slaney mel scale (linear below 1 kHz, logarithmic
// above) with area-normalized triangular filters. The trained artifacts
// assume this exact variant; do not swap in the 2595*log10 form.
type MelScale struct{}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

const (
	melLinearStep  = 200.0 / 3.0
	melMinLogHz    = 1000.0
	melMinLogValue = melMinLogHz / melLinearStep
)

// HzToMel converts frequency in Hz to the Slaney mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	if hz < melMinLogHz {
		return hz / melLinearStep
	}
	logStep := math.Log(6.4) / 27.0
	return melMinLogValue + math.Log(hz/melMinLogHz)/logStep
}

// MelToHz converts a Slaney mel value back to Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	if mel < melMinLogValue {
		return mel * melLinearStep
	}
	logStep := math.Log(6.4) / 27.0
	return melMinLogHz * math.Exp(logStep*(mel-melMinLogValue))
}

// CreateFilterBank builds numFilters triangular mel filters over the
// positive FFT bins of an fftSize transform at the given sample rate.
// Filters span 0 Hz to Nyquist and are area-normalized so each integrates
// to roughly constant energy per channel.
func (ms *MelScale) CreateFilterBank(numFilters, fftSize, sampleRate int) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 {
		return nil
	}

	freqBins := fftSize/2 + 1
	lowMel := ms.HzToMel(0)
	highMel := ms.HzToMel(float64(sampleRate) / 2.0)

	// numFilters+2 equally spaced mel points: edges plus centers
	melPoints := make([]float64, numFilters+2)
	melStep := (highMel - lowMel) / float64(numFilters+1)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*melStep
	}
	hzPoints := make([]float64, len(melPoints))
	for i, mel := range melPoints {
		hzPoints[i] = ms.MelToHz(mel)
	}

	fftFreqs := make([]float64, freqBins)
	for i := range fftFreqs {
		fftFreqs[i] = float64(i) * float64(sampleRate) / float64(fftSize)
	}

	filterBank := make([][]float64, numFilters)
	for m := range numFilters {
		filterBank[m] = make([]float64, freqBins)
		lower := hzPoints[m]
		center := hzPoints[m+1]
		upper := hzPoints[m+2]
		enorm := 2.0 / (upper - lower)

		for k, f := range fftFreqs {
			var weight float64
			switch {
			case f <= lower || f >= upper:
				weight = 0
			case f < center:
				weight = (f - lower) / (center - lower)
			default:
				weight = (upper - f) / (upper - center)
			}
			filterBank[m][k] = weight * enorm
		}
	}

	return filterBank
}

// Apply projects a power spectrogram (freq bins x frames) through the
// filter bank, producing a mel spectrogram (mel bands x frames).
func (ms *MelScale) Apply(power [][]float64, filterBank [][]float64) [][]float64 {
	if len(power) == 0 || len(filterBank) == 0 {
		return nil
	}

	numFrames := len(power[0])
	mel := make([][]float64, len(filterBank))
	for m, filter := range filterBank {
		mel[m] = make([]float64, numFrames)
		for k, w := range filter {
			if w == 0 || k >= len(power) {
				continue
			}
			for t := range numFrames {
				mel[m][t] += w * power[k][t]
			}
		}
	}
	return mel
}
