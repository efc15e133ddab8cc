package features

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/analyzers"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/decode"
	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// Extractor runs the full feature pipeline for one waveform: shared
// spectral transforms, the six feature extractors, moment reduction, and
// canonical row assembly. It is stateless across calls and safe for
// concurrent use; the three transforms are each computed exactly once per
// invocation.
type Extractor struct {
	frameLength int
	hopSize     int
	melBands    int
	logger      logging.Logger
}

// NewExtractor creates an extractor with the schema's fixed analysis
// parameters (frame 2048, hop 512, 128 mel bands)
func NewExtractor() *Extractor {
	return &Extractor{
		frameLength: analyzers.DefaultFFTSize,
		hopSize:     analyzers.DefaultHopSize,
		melBands:    analyzers.DefaultMelBands,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}
}

// Extract produces the canonical 294-column raw feature row for a
// waveform. The same byte stream always yields the same row; this is the
// path both the fitted artifacts and the serving path rely on.
func (e *Extractor) Extract(ctx context.Context, waveform *decode.Waveform) (*Row, error) {
	if waveform == nil || len(waveform.Samples) == 0 {
		return nil, common.NewPipelineError(common.StageFeatures, common.ErrCodeDegenerate,
			"empty waveform", nil)
	}
	// Anything shorter than one hop cannot produce a stable frame grid.
	if len(waveform.Samples) < e.hopSize {
		return nil, common.NewPipelineError(common.StageFeatures, common.ErrCodeDegenerate,
			fmt.Sprintf("waveform of %d samples is shorter than one hop (%d)", len(waveform.Samples), e.hopSize), nil)
	}

	signal := waveform.Samples
	sampleRate := waveform.SampleRate
	row := NewCanonicalRow()
	reducer := NewMomentReducer()

	// Constant-Q transform and chroma
	cqtAnalyzer := analyzers.NewCQTAnalyzer(sampleRate)
	cqt, err := cqtAnalyzer.Compute(signal, e.hopSize)
	if err != nil {
		return nil, common.NewPipelineError(common.StageAnalyze, common.ErrCodeDegenerate,
			"constant-Q transform failed", err)
	}
	if err := e.checkFrameBound("cqt", len(signal), cqt.TimeFrames); err != nil {
		return nil, err
	}
	if cqt.Bins != analyzers.CQTBins {
		return nil, common.NewPipelineError(common.StageAnalyze, common.ErrCodeSchemaMismatch,
			fmt.Sprintf("CQT produced %d bins, expected %d", cqt.Bins, analyzers.CQTBins), nil)
	}

	chroma := NewChromaCQT().Compute(cqt)
	if err := reducer.Reduce(row, FeatureChromaCQT, chroma); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Zero-crossing rate works on the raw waveform
	zcr := NewZeroCrossingRate(e.frameLength, e.hopSize).Compute(signal)
	if err := reducer.Reduce(row, FeatureZCR, zcr); err != nil {
		return nil, err
	}

	// STFT feeds the remaining spectral features
	spectralAnalyzer := analyzers.NewSpectralAnalyzer(sampleRate)
	stft, err := spectralAnalyzer.ComputeSTFT(signal, e.frameLength, e.hopSize)
	if err != nil {
		return nil, common.NewPipelineError(common.StageAnalyze, common.ErrCodeDegenerate,
			"STFT failed", err)
	}
	if err := e.checkFrameBound("stft", len(signal), stft.TimeFrames); err != nil {
		return nil, err
	}
	if stft.FreqBins != e.frameLength/2+1 {
		return nil, common.NewPipelineError(common.StageAnalyze, common.ErrCodeSchemaMismatch,
			fmt.Sprintf("STFT produced %d bins, expected %d", stft.FreqBins, e.frameLength/2+1), nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rmse := NewRMSEnergy().Compute(stft)
	if err := reducer.Reduce(row, FeatureRMSE, rmse); err != nil {
		return nil, err
	}

	contrast := NewSpectralContrast(6).Compute(stft)
	if err := reducer.Reduce(row, FeatureSpectralContrast, contrast); err != nil {
		return nil, err
	}

	rolloff := NewSpectralRolloff(0.85).Compute(stft)
	if err := reducer.Reduce(row, FeatureSpectralRolloff, rolloff); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Mel spectrogram exists only as MFCC input, never as its own feature
	melScale := analyzers.NewMelScale()
	filterBank := melScale.CreateFilterBank(e.melBands, e.frameLength, sampleRate)
	power := spectralAnalyzer.ComputePowerSpectrum(stft.Magnitude)
	mel := melScale.Apply(power, filterBank)
	melDB := analyzers.PowerToDB(mel, 80.0)

	mfcc := NewMFCC(FeatureSizes[FeatureMFCC]).Compute(melDB)
	if err := reducer.Reduce(row, FeatureMFCC, mfcc); err != nil {
		return nil, err
	}

	e.logger.Debug("feature row assembled", logging.Fields{
		"columns":     row.Len(),
		"sample_rate": sampleRate,
		"duration_s":  waveform.Duration(),
	})

	return row, nil
}

// checkFrameBound asserts the frame-count invariant shared by every
// time-frequency matrix: ceil(N/hop) <= frames <= ceil(N/hop)+1.
func (e *Extractor) checkFrameBound(transform string, signalLength, frames int) error {
	lower := int(math.Ceil(float64(signalLength) / float64(e.hopSize)))
	if frames < lower || frames > lower+1 {
		return common.NewPipelineError(common.StageAnalyze, common.ErrCodeSchemaMismatch,
			fmt.Sprintf("%s produced %d frames for %d samples, expected within [%d, %d]",
				transform, frames, signalLength, lower, lower+1), nil)
	}
	return nil
}
