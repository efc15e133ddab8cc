package pipeline

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-catalog/internal/catalog"
	"github.com/RyanBlaney/sonido-catalog/internal/classify"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/decode"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/features"
	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// Pipeline runs the CPU-bound upload path end to end: decode, feature
// extraction, scaling, classification and similarity search. Requests are
// independent and stateless; the only shared state is the read-only scaler
// and classifier artifacts loaded at construction. A bounded worker pool
// keeps long audio files from starving concurrent requests.
type Pipeline struct {
	decoder    *decode.Decoder
	extractor  *features.Extractor
	scaler     *classify.Scaler
	classifier *classify.Classifier
	catalog    *catalog.Catalog
	slots      chan struct{}
	logger     logging.Logger
}

// Options configures the pipeline
type Options struct {
	// MaxConcurrency bounds simultaneous extractions; <=0 means 1
	MaxConcurrency int
}

// UploadResult is the response for a processed upload: the most similar
// stored tracks and the ranked genre prediction.
type UploadResult struct {
	MostSimilarTracks []catalog.ScoredTrack `json:"most_similar_tracks"`
	GenrePrediction   []classify.GenreScore `json:"genre_prediction"`
}

// New creates a pipeline. The catalog may be nil for classify-only use
// (the CLI without a vector index).
func New(opts Options, scaler *classify.Scaler, classifier *classify.Classifier, cat *catalog.Catalog) *Pipeline {
	concurrency := opts.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Pipeline{
		decoder:    decode.NewDecoder(),
		extractor:  features.NewExtractor(),
		scaler:     scaler,
		classifier: classifier,
		catalog:    cat,
		slots:      make(chan struct{}, concurrency),
		logger: logging.WithFields(logging.Fields{
			"component":       "upload_pipeline",
			"max_concurrency": concurrency,
		}),
	}
}

// ExtractScaled converts audio bytes into a scaled feature row in the
// scaler's column order. Blocks for a worker slot; a cancelled context
// aborts both the wait and the extraction in progress.
func (p *Pipeline) ExtractScaled(ctx context.Context, data []byte) (*features.Row, error) {
	select {
	case p.slots <- struct{}{}:
		defer func() { <-p.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	waveform, err := p.decoder.Decode(ctx, data)
	if err != nil {
		return nil, err
	}

	raw, err := p.extractor.Extract(ctx, waveform)
	if err != nil {
		return nil, err
	}

	return p.scaler.Transform(raw)
}

// Classify extracts and classifies audio bytes, returning the top n genres
// as percentages.
func (p *Pipeline) Classify(ctx context.Context, data []byte, topN int) ([]classify.GenreScore, error) {
	scaled, err := p.ExtractScaled(ctx, data)
	if err != nil {
		return nil, err
	}

	prediction, err := p.classifier.Classify(scaled)
	if err != nil {
		return nil, err
	}
	return prediction.TopN(topN), nil
}

// ProcessUpload runs the full upload flow: one extraction feeds both the
// genre prediction and the similarity search against the catalog.
func (p *Pipeline) ProcessUpload(ctx context.Context, data []byte, topGenres, topSimilar int) (*UploadResult, error) {
	if p.catalog == nil {
		return nil, fmt.Errorf("pipeline has no catalog configured")
	}

	scaled, err := p.ExtractScaled(ctx, data)
	if err != nil {
		return nil, err
	}

	prediction, err := p.classifier.Classify(scaled)
	if err != nil {
		return nil, err
	}

	similar, err := p.catalog.MostSimilarByVector(ctx, rowToVector(scaled), uint64(topSimilar), catalog.Filter{})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("upload processed", logging.Fields{
		"similar_tracks": len(similar),
		"top_genres":     topGenres,
	})

	return &UploadResult{
		MostSimilarTracks: similar,
		GenrePrediction:   prediction.TopN(topGenres),
	}, nil
}

// rowToVector converts a feature row into the index's float32 embedding
func rowToVector(row *features.Row) []float32 {
	values := row.Values()
	vector := make([]float32, len(values))
	for i, v := range values {
		vector[i] = float32(v)
	}
	return vector
}
