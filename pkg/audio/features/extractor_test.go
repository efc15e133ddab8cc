package features

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/analyzers"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/decode"
)

// ExtractorTestSuite exercises the full feature pipeline on synthetic
// waveforms: a pure tone, seeded noise and a tone-plus-noise mix.
type ExtractorTestSuite struct {
	suite.Suite
	extractor  *Extractor
	sampleRate int

	sine  *decode.Waveform
	noise *decode.Waveform
	mixed *decode.Waveform
}

func (s *ExtractorTestSuite) SetupSuite() {
	s.extractor = NewExtractor()
	s.sampleRate = 22050

	// Two seconds is enough for every transform to produce a healthy
	// number of frames without slowing the suite down.
	n := 2 * s.sampleRate
	rng := rand.New(rand.NewSource(42))

	sine := make([]float64, n)
	noise := make([]float64, n)
	mixed := make([]float64, n)
	for i := range sine {
		tone := math.Sin(2 * math.Pi * 440.0 * float64(i) / float64(s.sampleRate))
		r := rng.Float64()*2 - 1
		sine[i] = tone
		noise[i] = r
		mixed[i] = 0.8*tone + 0.2*r
	}

	s.sine = &decode.Waveform{Samples: sine, SampleRate: s.sampleRate}
	s.noise = &decode.Waveform{Samples: noise, SampleRate: s.sampleRate}
	s.mixed = &decode.Waveform{Samples: mixed, SampleRate: s.sampleRate}
}

func (s *ExtractorTestSuite) TestRowShapeAndOrder() {
	row, err := s.extractor.Extract(context.Background(), s.sine)
	s.Require().NoError(err)

	s.Equal(NumColumns, row.Len())
	s.True(ColumnsEqual(CanonicalColumns(), row.Columns()))
}

func (s *ExtractorTestSuite) TestDeterminism() {
	first, err := s.extractor.Extract(context.Background(), s.mixed)
	s.Require().NoError(err)
	second, err := s.extractor.Extract(context.Background(), s.mixed)
	s.Require().NoError(err)

	s.Equal(first.Values(), second.Values())
}

func (s *ExtractorTestSuite) TestToneVersusNoise() {
	toneRow, err := s.extractor.Extract(context.Background(), s.sine)
	s.Require().NoError(err)
	noiseRow, err := s.extractor.Extract(context.Background(), s.noise)
	s.Require().NoError(err)

	zcrCol := Column{Feature: FeatureZCR, Statistic: "mean", Index: 1}
	toneZCR, _ := toneRow.Value(zcrCol)
	noiseZCR, _ := noiseRow.Value(zcrCol)

	// A 440 Hz tone crosses zero ~880 times a second; white noise flips
	// sign about every other sample.
	s.InDelta(2*440.0/float64(s.sampleRate), toneZCR, 0.005)
	s.Greater(noiseZCR, toneZCR*5)

	rolloffCol := Column{Feature: FeatureSpectralRolloff, Statistic: "mean", Index: 1}
	toneRolloff, _ := toneRow.Value(rolloffCol)
	noiseRolloff, _ := noiseRow.Value(rolloffCol)

	// Noise spreads energy across the spectrum, the tone concentrates it
	s.Greater(noiseRolloff, toneRolloff)
}

func (s *ExtractorTestSuite) TestAllValuesFinite() {
	row, err := s.extractor.Extract(context.Background(), s.mixed)
	s.Require().NoError(err)

	for i, v := range row.Values() {
		s.False(math.IsNaN(v) || math.IsInf(v, 0),
			"column %s is not finite", row.Columns()[i].Key())
	}
}

func (s *ExtractorTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.extractor.Extract(ctx, s.sine)
	s.Require().Error(err)
	s.ErrorIs(err, context.Canceled)
}

func TestExtractorTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping feature extraction suite in short mode")
	}
	suite.Run(t, new(ExtractorTestSuite))
}

func TestExtractRejectsEmptyWaveform(t *testing.T) {
	extractor := NewExtractor()

	_, err := extractor.Extract(context.Background(), &decode.Waveform{SampleRate: 22050})
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeDegenerate, common.ErrorCode(err))
	assert.True(t, common.IsClientError(err))
}

func TestExtractRejectsSubHopWaveform(t *testing.T) {
	extractor := NewExtractor()
	waveform := &decode.Waveform{
		Samples:    make([]float64, analyzers.DefaultHopSize-1),
		SampleRate: 22050,
	}

	_, err := extractor.Extract(context.Background(), waveform)
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeDegenerate, common.ErrorCode(err))
}

func TestCheckFrameBound(t *testing.T) {
	extractor := NewExtractor()

	// 22050 samples at hop 512: ceil gives 44, the centered grid gives 44
	assert.NoError(t, extractor.checkFrameBound("stft", 22050, 44))
	assert.NoError(t, extractor.checkFrameBound("stft", 22050, 45))
	assert.Error(t, extractor.checkFrameBound("stft", 22050, 43))
	assert.Error(t, extractor.checkFrameBound("stft", 22050, 46))
}
