package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/features"
	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// modelArtifact is the on-disk representation of the trained multi-layer
// perceptron: dense layers with activations, the genre label table in
// output order, and the exact input column order the network was trained on.
type modelArtifact struct {
	Labels []string        `json:"labels"`
	Inputs []string        `json:"inputs"`
	Layers []layerArtifact `json:"layers"`
}

type layerArtifact struct {
	Activation string      `json:"activation"` // relu | softmax | linear
	Weights    [][]float64 `json:"weights"`    // rows = outputs, cols = inputs
	Bias       []float64   `json:"bias"`
}

type denseLayer struct {
	activation string
	weights    *mat.Dense
	bias       *mat.VecDense
}

// Classifier wraps the externally trained genre model. It never trains or
// mutates the artifact; it validates input ordering and runs the forward
// pass.
type Classifier struct {
	labels []string
	inputs []features.Column
	layers []denseLayer
	logger logging.Logger
}

// GenreScore is one entry of a ranked genre prediction
type GenreScore struct {
	Genre   string  `json:"genre"`
	Percent float64 `json:"percent"`
}

// Prediction holds a probability distribution over the genre table
type Prediction struct {
	labels        []string
	probabilities []float64
}

// LoadClassifier reads a model artifact from disk and validates its shape
// against the genre table and the scaler column order.
func LoadClassifier(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
			fmt.Sprintf("cannot read model artifact %s", path), err)
	}

	var artifact modelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
			fmt.Sprintf("cannot parse model artifact %s", path), err)
	}

	if len(artifact.Labels) != NumGenres {
		return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
			fmt.Sprintf("model artifact has %d labels, expected %d", len(artifact.Labels), NumGenres), nil)
	}
	for i, label := range artifact.Labels {
		if label != GenreLabels[i] {
			return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
				fmt.Sprintf("model label %q at position %d does not match the genre table (%q)",
					label, i, GenreLabels[i]), nil)
		}
	}

	inputs := make([]features.Column, len(artifact.Inputs))
	for i, key := range artifact.Inputs {
		c, err := features.ParseColumnKey(key)
		if err != nil {
			return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
				"model artifact has malformed input column keys", err)
		}
		inputs[i] = c
	}
	if !features.ColumnsEqual(inputs, features.ScalerColumns()) {
		return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeFeatureOrder,
			"model artifact input order does not match the scaler column order", nil)
	}

	if len(artifact.Layers) == 0 {
		return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
			"model artifact has no layers", nil)
	}

	layers := make([]denseLayer, len(artifact.Layers))
	expectedInputs := len(inputs)
	for i, l := range artifact.Layers {
		rows := len(l.Weights)
		if rows == 0 || len(l.Bias) != rows {
			return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
				fmt.Sprintf("model layer %d has inconsistent weight/bias shapes", i), nil)
		}
		cols := len(l.Weights[0])
		if cols != expectedInputs {
			return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
				fmt.Sprintf("model layer %d expects %d inputs, previous layer provides %d", i, cols, expectedInputs), nil)
		}

		flat := make([]float64, 0, rows*cols)
		for _, wRow := range l.Weights {
			if len(wRow) != cols {
				return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
					fmt.Sprintf("model layer %d has ragged weight rows", i), nil)
			}
			flat = append(flat, wRow...)
		}

		layers[i] = denseLayer{
			activation: l.Activation,
			weights:    mat.NewDense(rows, cols, flat),
			bias:       mat.NewVecDense(rows, append([]float64(nil), l.Bias...)),
		}
		expectedInputs = rows
	}

	if expectedInputs != NumGenres {
		return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
			fmt.Sprintf("model output width is %d, expected %d genres", expectedInputs, NumGenres), nil)
	}

	return &Classifier{
		labels: artifact.Labels,
		inputs: inputs,
		layers: layers,
		logger: logging.WithFields(logging.Fields{
			"component": "genre_classifier",
			"layers":    len(layers),
		}),
	}, nil
}

// Classify runs the forward pass over one scaled feature row. The row's
// column order must exactly equal the trained input order; a mismatch is a
// deployment bug and fails with a FEATURE_ORDER error rather than
// mis-predicting silently.
func (c *Classifier) Classify(scaled *features.Row) (*Prediction, error) {
	if !features.ColumnsEqual(scaled.Columns(), c.inputs) {
		return nil, common.NewPipelineError(common.StageClassify, common.ErrCodeFeatureOrder,
			"feature row column order does not match the trained input order", nil)
	}

	x := mat.NewVecDense(scaled.Len(), scaled.Values())
	for _, layer := range c.layers {
		rows, _ := layer.weights.Dims()
		y := mat.NewVecDense(rows, nil)
		y.MulVec(layer.weights, x)
		y.AddVec(y, layer.bias)
		applyActivation(layer.activation, y)
		x = y
	}

	probabilities := make([]float64, x.Len())
	for i := range probabilities {
		probabilities[i] = x.AtVec(i)
	}

	return &Prediction{
		labels:        c.labels,
		probabilities: probabilities,
	}, nil
}

// Inputs returns the trained input column order
func (c *Classifier) Inputs() []features.Column {
	out := make([]features.Column, len(c.inputs))
	copy(out, c.inputs)
	return out
}

// Probabilities returns the raw distribution in label-table order
func (p *Prediction) Probabilities() []float64 {
	out := make([]float64, len(p.probabilities))
	copy(out, p.probabilities)
	return out
}

// TopN ranks genres by probability (descending, stable on exact ties so
// the label-table order breaks them) and returns the first n as
// percentages.
func (p *Prediction) TopN(n int) []GenreScore {
	if n > len(p.labels) {
		n = len(p.labels)
	}
	if n < 0 {
		n = 0
	}

	order := make([]int, len(p.labels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.probabilities[order[a]] > p.probabilities[order[b]]
	})

	scores := make([]GenreScore, n)
	for i := range n {
		idx := order[i]
		scores[i] = GenreScore{
			Genre:   p.labels[idx],
			Percent: p.probabilities[idx] * 100.0,
		}
	}
	return scores
}

func applyActivation(activation string, v *mat.VecDense) {
	switch activation {
	case "relu":
		for i := range v.Len() {
			if v.AtVec(i) < 0 {
				v.SetVec(i, 0)
			}
		}
	case "softmax":
		maxVal := math.Inf(-1)
		for i := range v.Len() {
			if v.AtVec(i) > maxVal {
				maxVal = v.AtVec(i)
			}
		}
		sum := 0.0
		for i := range v.Len() {
			e := math.Exp(v.AtVec(i) - maxVal)
			v.SetVec(i, e)
			sum += e
		}
		for i := range v.Len() {
			v.SetVec(i, v.AtVec(i)/sum)
		}
	default:
		// linear: leave values untouched
	}
}
