package classify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/features"
)

// writeModelArtifact writes a model artifact to a temp file. The default
// network is a single linear layer with zero weights, so the output equals
// the bias vector and tests can dictate the distribution directly.
func writeModelArtifact(t *testing.T, mutate func(artifact map[string]any)) string {
	t.Helper()

	inputs := make([]string, 0, features.NumColumns)
	for _, c := range features.ScalerColumns() {
		inputs = append(inputs, c.Key())
	}

	weights := make([][]float64, NumGenres)
	bias := make([]float64, NumGenres)
	for i := range weights {
		weights[i] = make([]float64, features.NumColumns)
	}
	// An easy-to-rank distribution over the first genres
	bias[0] = 0.40 // Blues
	bias[1] = 0.30 // Classical
	bias[2] = 0.10
	bias[3] = 0.20

	artifact := map[string]any{
		"labels": GenreLabels,
		"inputs": inputs,
		"layers": []map[string]any{{
			"activation": "linear",
			"weights":    weights,
			"bias":       bias,
		}},
	}
	if mutate != nil {
		mutate(artifact)
	}

	data, err := json.Marshal(artifact)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mlp_model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// scaledRow builds a row in the fitted column order
func scaledRow(t *testing.T) *features.Row {
	t.Helper()
	row := features.NewRow(features.ScalerColumns())
	for i, c := range row.Columns() {
		require.NoError(t, row.Set(c, float64(i)*0.001))
	}
	return row
}

func TestLoadClassifier(t *testing.T) {
	classifier, err := LoadClassifier(writeModelArtifact(t, nil))
	require.NoError(t, err)

	assert.True(t, features.ColumnsEqual(features.ScalerColumns(), classifier.Inputs()))
}

func TestLoadClassifierRejectsWrongLabels(t *testing.T) {
	path := writeModelArtifact(t, func(artifact map[string]any) {
		labels := append([]string(nil), GenreLabels...)
		labels[0], labels[1] = labels[1], labels[0]
		artifact["labels"] = labels
	})

	_, err := LoadClassifier(path)
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeArtifactLoad, common.ErrorCode(err))
}

func TestLoadClassifierRejectsWrongInputOrder(t *testing.T) {
	path := writeModelArtifact(t, func(artifact map[string]any) {
		inputs := artifact["inputs"].([]string)
		inputs[0], inputs[1] = inputs[1], inputs[0]
	})

	_, err := LoadClassifier(path)
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeFeatureOrder, common.ErrorCode(err))
}

func TestLoadClassifierRejectsBadLayerShape(t *testing.T) {
	path := writeModelArtifact(t, func(artifact map[string]any) {
		layers := artifact["layers"].([]map[string]any)
		layers[0]["bias"] = []float64{1, 2, 3}
	})

	_, err := LoadClassifier(path)
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeArtifactLoad, common.ErrorCode(err))
}

func TestClassifyRejectsCanonicalOrder(t *testing.T) {
	classifier, err := LoadClassifier(writeModelArtifact(t, nil))
	require.NoError(t, err)

	// Canonical order is for extraction; the network was trained on the
	// scaler order. Feeding the wrong order must fail, not mis-predict.
	_, err = classifier.Classify(features.NewCanonicalRow())
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeFeatureOrder, common.ErrorCode(err))
	assert.False(t, common.IsClientError(err))
}

func TestClassifyAndTopN(t *testing.T) {
	classifier, err := LoadClassifier(writeModelArtifact(t, nil))
	require.NoError(t, err)

	prediction, err := classifier.Classify(scaledRow(t))
	require.NoError(t, err)

	probs := prediction.Probabilities()
	require.Len(t, probs, NumGenres)
	assert.InDelta(t, 0.40, probs[0], 1e-12)

	top := prediction.TopN(2)
	require.Len(t, top, 2)
	assert.Equal(t, "Blues", top[0].Genre)
	assert.InDelta(t, 40.0, top[0].Percent, 1e-9)
	assert.Equal(t, "Classical", top[1].Genre)
	assert.InDelta(t, 30.0, top[1].Percent, 1e-9)
}

func TestTopNClamps(t *testing.T) {
	prediction := &Prediction{
		labels:        GenreLabels,
		probabilities: make([]float64, NumGenres),
	}

	assert.Len(t, prediction.TopN(100), NumGenres)
	assert.Empty(t, prediction.TopN(0))
	assert.Empty(t, prediction.TopN(-3))
}

func TestTopNStableOnTies(t *testing.T) {
	probs := make([]float64, NumGenres)
	probs[4] = 0.5 // Electronic
	probs[7] = 0.5 // Hip-Hop
	prediction := &Prediction{labels: GenreLabels, probabilities: probs}

	top := prediction.TopN(2)
	assert.Equal(t, "Electronic", top[0].Genre)
	assert.Equal(t, "Hip-Hop", top[1].Genre)
}

func TestApplyActivation(t *testing.T) {
	relu := mat.NewVecDense(3, []float64{-1, 0, 2})
	applyActivation("relu", relu)
	assert.Equal(t, []float64{0, 0, 2}, relu.RawVector().Data)

	softmax := mat.NewVecDense(2, []float64{1, 1})
	applyActivation("softmax", softmax)
	assert.InDelta(t, 0.5, softmax.AtVec(0), 1e-12)
	assert.InDelta(t, 0.5, softmax.AtVec(1), 1e-12)

	linear := mat.NewVecDense(2, []float64{3, -4})
	applyActivation("linear", linear)
	assert.Equal(t, []float64{3, -4}, linear.RawVector().Data)
}

func TestGenreTable(t *testing.T) {
	assert.Len(t, GenreLabels, NumGenres)
	assert.True(t, IsValidGenre("Hip-Hop"))
	assert.True(t, IsValidGenre("Old-Time / Historic"))
	assert.False(t, IsValidGenre("Vaporwave"))
}
