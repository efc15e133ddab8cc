package classify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/features"
	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// scalerArtifact is the on-disk representation of a fitted standard
// scaler: per-column mean and scale in the column order it was fit on.
type scalerArtifact struct {
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

// Scaler applies a pre-fitted per-column standardization. It owns the
// single most safety-critical check in the pipeline: if its fitted column
// order ever disagrees with the extraction schema, predictions would be
// plausible-looking garbage, so any mismatch fails loudly instead.
type Scaler struct {
	columns []features.Column
	mean    []float64
	scale   []float64
	logger  logging.Logger
}

// LoadScaler reads a scaler artifact from disk and validates it against
// the extraction schema's scaler column order.
func LoadScaler(path string) (*Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
			fmt.Sprintf("cannot read scaler artifact %s", path), err)
	}

	var artifact scalerArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
			fmt.Sprintf("cannot parse scaler artifact %s", path), err)
	}

	if len(artifact.Columns) != len(artifact.Mean) || len(artifact.Columns) != len(artifact.Scale) {
		return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
			fmt.Sprintf("scaler artifact is inconsistent: %d columns, %d means, %d scales",
				len(artifact.Columns), len(artifact.Mean), len(artifact.Scale)), nil)
	}

	columns := make([]features.Column, len(artifact.Columns))
	for i, key := range artifact.Columns {
		c, err := features.ParseColumnKey(key)
		if err != nil {
			return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
				"scaler artifact has malformed column keys", err)
		}
		columns[i] = c
	}

	if !features.ColumnsEqual(columns, features.ScalerColumns()) {
		return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeSchemaMismatch,
			"scaler artifact column order does not match the extraction schema", nil)
	}

	for i, s := range artifact.Scale {
		if s == 0 {
			return nil, common.NewPipelineError(common.StageArtifact, common.ErrCodeArtifactLoad,
				fmt.Sprintf("scaler artifact has zero scale for column %s", artifact.Columns[i]), nil)
		}
	}

	return &Scaler{
		columns: columns,
		mean:    artifact.Mean,
		scale:   artifact.Scale,
		logger: logging.WithFields(logging.Fields{
			"component": "scaler",
			"columns":   len(columns),
		}),
	}, nil
}

// Transform reorders the raw row into the fitted column order, then applies
// (x - mean) / scale per column. The output keeps the scaler's order.
func (s *Scaler) Transform(raw *features.Row) (*features.Row, error) {
	if raw.Len() != len(s.columns) {
		return nil, common.NewPipelineError(common.StageScale, common.ErrCodeSchemaMismatch,
			fmt.Sprintf("feature row has %d columns, scaler was fit on %d", raw.Len(), len(s.columns)), nil)
	}

	ordered, err := raw.Reorder(s.columns)
	if err != nil {
		return nil, err
	}

	scaled := features.NewRow(s.columns)
	values := ordered.Values()
	for i, c := range s.columns {
		if err := scaled.Set(c, (values[i]-s.mean[i])/s.scale[i]); err != nil {
			return nil, err
		}
	}
	return scaled, nil
}

// Inverse undoes the standardization, returning raw values in the
// scaler's column order. Used to verify the round-trip law in tests.
func (s *Scaler) Inverse(scaled *features.Row) (*features.Row, error) {
	if !features.ColumnsEqual(scaled.Columns(), s.columns) {
		return nil, common.NewPipelineError(common.StageScale, common.ErrCodeSchemaMismatch,
			"row is not in the scaler's column order", nil)
	}

	raw := features.NewRow(s.columns)
	values := scaled.Values()
	for i, c := range s.columns {
		if err := raw.Set(c, values[i]*s.scale[i]+s.mean[i]); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// Columns returns the fitted column order
func (s *Scaler) Columns() []features.Column {
	out := make([]features.Column, len(s.columns))
	copy(out, s.columns)
	return out
}
