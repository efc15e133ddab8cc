package analyzers

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// Default analysis parameters shared by the pipeline
const (
	DefaultFFTSize = 2048
	DefaultHopSize = 512
)

// SpectralAnalyzer provides STFT and derived spectral representations.
// All matrices are laid out rows = frequency bins, columns = time frames.
type SpectralAnalyzer struct {
	windowGenerator *WindowGenerator
	sampleRate      int
	logger          logging.Logger
}

// SpectrogramResult holds the result of STFT analysis
type SpectrogramResult struct {
	Magnitude      [][]float64 `json:"-"`               // FreqBins x TimeFrames magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
}

// NewSpectralAnalyzer creates a new spectral analyzer
func NewSpectralAnalyzer(sampleRate int) *SpectralAnalyzer {
	return &SpectralAnalyzer{
		windowGenerator: NewWindowGenerator(),
		sampleRate:      sampleRate,
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_analyzer",
			"sample_rate": sampleRate,
		}),
	}
}

// SampleRate returns the analyzer's sample rate
func (sa *SpectralAnalyzer) SampleRate() int {
	return sa.sampleRate
}

// NumFrames returns the number of centered analysis frames for a signal
// of the given length: 1 + floor(n/hop). This lands inside the
// [ceil(n/hop), ceil(n/hop)+1] bound the pipeline asserts.
func NumFrames(signalLength, hopSize int) int {
	return 1 + signalLength/hopSize
}

// ComputeSTFT computes the magnitude short-time Fourier transform with a
// periodic Hann window and centered frames (reflect padding by fftSize/2).
func (sa *SpectralAnalyzer) ComputeSTFT(signal []float64, fftSize, hopSize int) (*SpectrogramResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if fftSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("invalid STFT parameters: fft_size=%d hop_size=%d", fftSize, hopSize)
	}

	numFrames := NumFrames(len(signal), hopSize)
	freqBins := fftSize/2 + 1
	window := sa.windowGenerator.Hann(fftSize)
	padded := reflectPad(signal, fftSize/2)

	magnitude := make([][]float64, freqBins)
	for f := range magnitude {
		magnitude[f] = make([]float64, numFrames)
	}

	frame := make([]float64, fftSize)
	for t := range numFrames {
		start := t * hopSize
		for i := range fftSize {
			frame[i] = padded[start+i] * window[i]
		}

		spectrum := fft.FFTReal(frame)
		for f := range freqBins {
			magnitude[f][t] = cmplx.Abs(spectrum[f])
		}
	}

	result := &SpectrogramResult{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sa.sampleRate,
		WindowSize:     fftSize,
		HopSize:        hopSize,
		FreqResolution: float64(sa.sampleRate) / float64(fftSize),
	}

	sa.logger.Debug("STFT computed", logging.Fields{
		"freq_bins":   result.FreqBins,
		"time_frames": result.TimeFrames,
	})

	return result, nil
}

// FrequencyBins returns the center frequency of each FFT bin
func (sa *SpectralAnalyzer) FrequencyBins(fftSize int) []float64 {
	freqs := make([]float64, fftSize/2+1)
	for i := range freqs {
		freqs[i] = float64(i) * float64(sa.sampleRate) / float64(fftSize)
	}
	return freqs
}

// ComputePowerSpectrum squares an STFT magnitude matrix in place-compatible
// layout (rows = bins, columns = frames)
func (sa *SpectralAnalyzer) ComputePowerSpectrum(magnitude [][]float64) [][]float64 {
	power := make([][]float64, len(magnitude))
	for f := range magnitude {
		power[f] = make([]float64, len(magnitude[f]))
		for t := range magnitude[f] {
			mag := magnitude[f][t]
			power[f][t] = mag * mag
		}
	}
	return power
}

// PowerToDB converts a power matrix to decibels relative to ref=1 with the
// conventional 1e-10 floor, then clamps the dynamic range to topDB below
// the matrix-wide peak. The trained artifacts assume exactly this mapping;
// treat it as a pinned contract, not a tunable.
func PowerToDB(power [][]float64, topDB float64) [][]float64 {
	const amin = 1e-10

	out := make([][]float64, len(power))
	peak := math.Inf(-1)
	for f := range power {
		out[f] = make([]float64, len(power[f]))
		for t := range power[f] {
			p := power[f][t]
			if p < amin {
				p = amin
			}
			db := 10.0 * math.Log10(p)
			out[f][t] = db
			if db > peak {
				peak = db
			}
		}
	}

	if topDB > 0 {
		floor := peak - topDB
		for f := range out {
			for t := range out[f] {
				if out[f][t] < floor {
					out[f][t] = floor
				}
			}
		}
	}

	return out
}
