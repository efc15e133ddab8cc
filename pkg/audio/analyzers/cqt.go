package analyzers

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// Constant-Q parameters fixed by the feature schema: 7 octaves of 12 bins
// starting at C1. The classifier and scaler were fit against exactly this
// geometry; changing it silently corrupts predictions.
const (
	CQTBinsPerOctave = 12
	CQTOctaves       = 7
	CQTBins          = CQTBinsPerOctave * CQTOctaves
	cqtMinFrequency  = 32.70319566257483 // C1 in Hz
)

// CQTResult holds a constant-Q magnitude matrix (bins x frames)
type CQTResult struct {
	Magnitude  [][]float64 `json:"-"`
	Bins       int         `json:"bins"`
	TimeFrames int         `json:"time_frames"`
	SampleRate int         `json:"sample_rate"`
	HopSize    int         `json:"hop_size"`
}

// CQTAnalyzer computes a constant-Q transform via direct time-domain
// kernels. Kernel lengths follow the constant Q factor, so low bins see
// long windows and high bins short ones.
type CQTAnalyzer struct {
	windowGenerator *WindowGenerator
	sampleRate      int
	logger          logging.Logger
}

// NewCQTAnalyzer creates a constant-Q analyzer for the given sample rate
func NewCQTAnalyzer(sampleRate int) *CQTAnalyzer {
	return &CQTAnalyzer{
		windowGenerator: NewWindowGenerator(),
		sampleRate:      sampleRate,
		logger: logging.WithFields(logging.Fields{
			"component":   "cqt_analyzer",
			"sample_rate": sampleRate,
		}),
	}
}

// BinFrequency returns the center frequency of constant-Q bin k
func (ca *CQTAnalyzer) BinFrequency(k int) float64 {
	return cqtMinFrequency * math.Pow(2.0, float64(k)/float64(CQTBinsPerOctave))
}

// Compute calculates the 84-bin constant-Q magnitude transform with
// centered frames at the given hop size.
func (ca *CQTAnalyzer) Compute(signal []float64, hopSize int) (*CQTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("invalid hop size: %d", hopSize)
	}

	numFrames := NumFrames(len(signal), hopSize)
	q := 1.0 / (math.Pow(2.0, 1.0/float64(CQTBinsPerOctave)) - 1.0)

	// Longest kernel belongs to the lowest bin; pad once for all bins.
	maxKernel := int(math.Round(q * float64(ca.sampleRate) / ca.BinFrequency(0)))
	pad := maxKernel/2 + 1
	padded := reflectPad(signal, pad)

	magnitude := make([][]float64, CQTBins)

	for k := range CQTBins {
		freq := ca.BinFrequency(k)
		kernelLen := int(math.Round(q * float64(ca.sampleRate) / freq))
		if kernelLen < 1 {
			kernelLen = 1
		}

		window := ca.windowGenerator.HannSymmetric(kernelLen)
		windowSum := 0.0
		cosKernel := make([]float64, kernelLen)
		sinKernel := make([]float64, kernelLen)
		for i := range kernelLen {
			phase := 2.0 * math.Pi * freq * float64(i-kernelLen/2) / float64(ca.sampleRate)
			cosKernel[i] = window[i] * math.Cos(phase)
			sinKernel[i] = window[i] * math.Sin(phase)
			windowSum += window[i]
		}
		norm := 2.0 / windowSum

		row := make([]float64, numFrames)
		for t := range numFrames {
			start := pad + t*hopSize - kernelLen/2
			re, im := 0.0, 0.0
			for i := range kernelLen {
				s := padded[start+i]
				re += s * cosKernel[i]
				im += s * sinKernel[i]
			}
			row[t] = math.Hypot(re, im) * norm
		}
		magnitude[k] = row
	}

	ca.logger.Debug("CQT computed", logging.Fields{
		"bins":        CQTBins,
		"time_frames": numFrames,
	})

	return &CQTResult{
		Magnitude:  magnitude,
		Bins:       CQTBins,
		TimeFrames: numFrames,
		SampleRate: ca.sampleRate,
		HopSize:    hopSize,
	}, nil
}
