package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-catalog/internal/classify"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/features"
)

func writeArtifactJSON(t *testing.T, path string, artifact any) {
	t.Helper()
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// testArtifacts builds an identity scaler and a bias-only softmax model so
// any decodable upload yields a uniform genre distribution.
func testArtifacts(t *testing.T) (*classify.Scaler, *classify.Classifier) {
	t.Helper()
	dir := t.TempDir()

	columns := features.ScalerColumns()
	keys := make([]string, len(columns))
	mean := make([]float64, len(columns))
	scale := make([]float64, len(columns))
	for i, c := range columns {
		keys[i] = c.Key()
		scale[i] = 1.0
	}

	scalerPath := filepath.Join(dir, "scaler.json")
	writeArtifactJSON(t, scalerPath, map[string]any{
		"columns": keys, "mean": mean, "scale": scale,
	})
	scaler, err := classify.LoadScaler(scalerPath)
	require.NoError(t, err)

	weights := make([][]float64, classify.NumGenres)
	for i := range weights {
		weights[i] = make([]float64, len(columns))
	}
	modelPath := filepath.Join(dir, "model.json")
	writeArtifactJSON(t, modelPath, map[string]any{
		"labels": classify.GenreLabels,
		"inputs": keys,
		"layers": []map[string]any{{
			"activation": "softmax",
			"weights":    weights,
			"bias":       make([]float64, classify.NumGenres),
		}},
	})
	classifier, err := classify.LoadClassifier(modelPath)
	require.NoError(t, err)

	return scaler, classifier
}

func TestClassifyDecodableUpload(t *testing.T) {
	data, err := os.ReadFile("testdata/silence.mp3")
	require.NoError(t, err)

	scaler, classifier := testArtifacts(t)
	p := New(Options{MaxConcurrency: 2}, scaler, classifier, nil)

	scaled, err := p.ExtractScaled(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, features.NumColumns, scaled.Len())
	assert.True(t, features.ColumnsEqual(scaled.Columns(), features.ScalerColumns()))

	scores, err := p.Classify(context.Background(), data, classify.NumGenres)
	require.NoError(t, err)
	require.Len(t, scores, classify.NumGenres)

	total := 0.0
	for _, s := range scores {
		assert.True(t, classify.IsValidGenre(s.Genre))
		total += s.Percent
	}
	assert.InDelta(t, 100.0, total, 0.1)
}

func TestExtractScaledRejectsGarbage(t *testing.T) {
	p := New(Options{MaxConcurrency: 2}, nil, nil, nil)

	_, err := p.ExtractScaled(context.Background(), []byte("not audio at all"))
	require.Error(t, err)
	// A bad upload is the caller's fault, never a 500
	assert.Equal(t, common.ErrCodeDecode, common.ErrorCode(err))
	assert.True(t, common.IsClientError(err))
}

func TestExtractScaledCancelledBeforeSlot(t *testing.T) {
	p := New(Options{MaxConcurrency: 1}, nil, nil, nil)

	// Occupy the only worker slot so the next request has to wait
	p.slots <- struct{}{}
	defer func() { <-p.slots }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ExtractScaled(ctx, []byte("irrelevant"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessUploadRequiresCatalog(t *testing.T) {
	p := New(Options{}, nil, nil, nil)

	_, err := p.ProcessUpload(context.Background(), []byte("irrelevant"), 5, 10)
	assert.Error(t, err)
}

func TestNewClampsConcurrency(t *testing.T) {
	p := New(Options{MaxConcurrency: 0}, nil, nil, nil)
	assert.Equal(t, 1, cap(p.slots))

	p = New(Options{MaxConcurrency: -4}, nil, nil, nil)
	assert.Equal(t, 1, cap(p.slots))

	p = New(Options{MaxConcurrency: 8}, nil, nil, nil)
	assert.Equal(t, 8, cap(p.slots))
}

func TestRowToVector(t *testing.T) {
	row := features.NewCanonicalRow()
	columns := row.Columns()
	require.NoError(t, row.Set(columns[0], 1.5))
	require.NoError(t, row.Set(columns[1], -2.25))

	vector := rowToVector(row)
	require.Len(t, vector, features.NumColumns)
	assert.Equal(t, float32(1.5), vector[0])
	assert.Equal(t, float32(-2.25), vector[1])
	assert.Equal(t, float32(0), vector[2])
}
