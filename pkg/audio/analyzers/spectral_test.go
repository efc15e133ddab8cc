package analyzers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumFrames(t *testing.T) {
	// Centered framing: 1 + floor(N / hop)
	assert.Equal(t, 1, NumFrames(0, 512))
	assert.Equal(t, 1, NumFrames(511, 512))
	assert.Equal(t, 2, NumFrames(512, 512))
	assert.Equal(t, 44, NumFrames(22050, 512))
	assert.Equal(t, 87, NumFrames(44100, 512))
}

func TestComputeSTFTShape(t *testing.T) {
	sampleRate := 22050
	analyzer := NewSpectralAnalyzer(sampleRate)

	signal := make([]float64, sampleRate)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 1000.0 * float64(i) / float64(sampleRate))
	}

	stft, err := analyzer.ComputeSTFT(signal, DefaultFFTSize, DefaultHopSize)
	require.NoError(t, err)

	assert.Equal(t, DefaultFFTSize/2+1, stft.FreqBins)
	assert.Equal(t, NumFrames(len(signal), DefaultHopSize), stft.TimeFrames)
	assert.Len(t, stft.Magnitude, stft.FreqBins)
	for bin := range stft.Magnitude {
		assert.Len(t, stft.Magnitude[bin], stft.TimeFrames)
	}
}

func TestComputeSTFTPeakBin(t *testing.T) {
	sampleRate := 22050
	analyzer := NewSpectralAnalyzer(sampleRate)

	freq := 1000.0
	signal := make([]float64, sampleRate)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}

	stft, err := analyzer.ComputeSTFT(signal, DefaultFFTSize, DefaultHopSize)
	require.NoError(t, err)

	// Energy concentrates in the bin closest to the tone, checked on an
	// interior frame away from the padded edges.
	frame := stft.TimeFrames / 2
	peakBin := 0
	for bin := 1; bin < stft.FreqBins; bin++ {
		if stft.Magnitude[bin][frame] > stft.Magnitude[peakBin][frame] {
			peakBin = bin
		}
	}

	expectedBin := int(math.Round(freq * float64(DefaultFFTSize) / float64(sampleRate)))
	assert.InDelta(t, expectedBin, peakBin, 1)
}

func TestFrequencyBins(t *testing.T) {
	analyzer := NewSpectralAnalyzer(22050)
	bins := analyzer.FrequencyBins(2048)

	require.Len(t, bins, 1025)
	assert.Equal(t, 0.0, bins[0])
	assert.InDelta(t, 22050.0/2048.0, bins[1], 1e-9)
	assert.InDelta(t, 11025.0, bins[1024], 1e-9)
}

func TestPowerToDB(t *testing.T) {
	power := [][]float64{{1.0, 0.1, 0.0}}
	db := PowerToDB(power, 80.0)

	require.Len(t, db, 1)
	assert.InDelta(t, 0.0, db[0][0], 1e-9)
	assert.InDelta(t, -10.0, db[0][1], 1e-9)
	// Zeros clamp to amin, then to the peak minus top_db floor
	assert.InDelta(t, -80.0, db[0][2], 1e-9)
}

func TestHannWindowPeriodic(t *testing.T) {
	wg := NewWindowGenerator()
	window := wg.Hann(8)

	require.Len(t, window, 8)
	assert.InDelta(t, 0.0, window[0], 1e-12)
	// Periodic Hann never reaches zero at the right edge
	assert.Greater(t, window[7], 0.0)
	// Peak sits at size/2 for the periodic variant
	assert.InDelta(t, 1.0, window[4], 1e-12)
	// Symmetric around the peak
	assert.InDelta(t, window[3], window[5], 1e-12)
}

func TestReflectIndex(t *testing.T) {
	// Mirror without repeating the edge sample: librosa's pad mode
	assert.Equal(t, 1, reflectIndex(-1, 5))
	assert.Equal(t, 2, reflectIndex(-2, 5))
	assert.Equal(t, 3, reflectIndex(5, 5))
	assert.Equal(t, 2, reflectIndex(6, 5))
	assert.Equal(t, 0, reflectIndex(0, 5))
	assert.Equal(t, 4, reflectIndex(4, 5))
}

func TestMelScaleSlaneyBreakpoint(t *testing.T) {
	ms := NewMelScale()

	// Linear below 1 kHz at 3/200 mel per Hz
	assert.InDelta(t, 15.0, ms.HzToMel(1000.0), 1e-9)
	assert.InDelta(t, 7.5, ms.HzToMel(500.0), 1e-9)
	// Logarithmic above the breakpoint
	assert.Greater(t, ms.HzToMel(2000.0), 15.0)
	assert.Less(t, ms.HzToMel(2000.0), 30.0)

	// Round trip through both regimes
	for _, hz := range []float64{0, 440, 999, 1000, 4000, 11025} {
		assert.InDelta(t, hz, ms.MelToHz(ms.HzToMel(hz)), 1e-6, "hz %v", hz)
	}
}

func TestCreateFilterBankShape(t *testing.T) {
	ms := NewMelScale()
	bank := ms.CreateFilterBank(DefaultMelBands, 2048, 22050)

	require.Len(t, bank, DefaultMelBands)
	for i, filter := range bank {
		require.Len(t, filter, 1025, "filter %d", i)

		// Slaney area normalization keeps each triangle's weight bounded
		// and non-negative
		sum := 0.0
		for _, w := range filter {
			assert.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		assert.Greater(t, sum, 0.0, "filter %d is empty", i)
	}
}

func TestCQTBinFrequencies(t *testing.T) {
	analyzer := NewCQTAnalyzer(22050)

	// C1 anchors the lowest bin; each octave doubles
	assert.InDelta(t, 32.70319566257483, analyzer.BinFrequency(0), 1e-9)
	assert.InDelta(t, 65.40639132514966, analyzer.BinFrequency(12), 1e-9)
	// Top of the range: bin 83 is B7
	assert.InDelta(t, 3951.066410048992, analyzer.BinFrequency(CQTBins-1), 1e-6)
}

func TestCQTComputeShape(t *testing.T) {
	sampleRate := 22050
	analyzer := NewCQTAnalyzer(sampleRate)

	signal := make([]float64, sampleRate/2)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 261.63 * float64(i) / float64(sampleRate))
	}

	cqt, err := analyzer.Compute(signal, DefaultHopSize)
	require.NoError(t, err)

	assert.Equal(t, CQTBins, cqt.Bins)
	assert.Equal(t, NumFrames(len(signal), DefaultHopSize), cqt.TimeFrames)

	// Middle C (C4 = bin 36..47 octave) should dominate its neighborhood
	frame := cqt.TimeFrames / 2
	peakBin := 0
	for bin := 1; bin < cqt.Bins; bin++ {
		if cqt.Magnitude[bin][frame] > cqt.Magnitude[peakBin][frame] {
			peakBin = bin
		}
	}
	// 261.63 Hz is exactly three octaves above C1: bin 36
	assert.InDelta(t, 36, peakBin, 1)
}
