package features

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
)

// Feature names as they appear in column keys
const (
	FeatureChromaCQT        = "chroma_cqt"
	FeatureMFCC             = "mfcc"
	FeatureRMSE             = "rmse"
	FeatureZCR              = "zcr"
	FeatureSpectralContrast = "spectral_contrast"
	FeatureSpectralRolloff  = "spectral_rolloff"
)

// FeatureSizes maps each feature to its coefficient count. The schema is a
// pure function of this table; 42 coefficients across 7 statistics give the
// fixed 294-column layout.
var FeatureSizes = map[string]int{
	FeatureChromaCQT:        12,
	FeatureMFCC:             20,
	FeatureRMSE:             1,
	FeatureZCR:              1,
	FeatureSpectralContrast: 7,
	FeatureSpectralRolloff:  1,
}

// Statistics lists the seven statistical moments in reduction order
var Statistics = []string{"mean", "std", "skew", "kurtosis", "median", "min", "max"}

// ScalerFeatureOrder is the feature-group sequence the scaler and classifier
// were fit on. It is an external contract: a group-level ordering, distinct
// from the canonical column sort. Never reorder it.
var ScalerFeatureOrder = []string{
	FeatureMFCC,
	FeatureSpectralContrast,
	FeatureSpectralRolloff,
	FeatureChromaCQT,
	FeatureZCR,
	FeatureRMSE,
}

// NumColumns is the total width of a feature row
const NumColumns = 294

// Column identifies one feature dimension: a (feature, statistic, ordinal)
// triple. Ordinal is 1-based and zero-padded to two digits in key form.
type Column struct {
	Feature   string `json:"feature"`
	Statistic string `json:"statistic"`
	Index     int    `json:"index"`
}

// Key renders the column identity used in artifacts and logs
func (c Column) Key() string {
	return fmt.Sprintf("%s.%s.%02d", c.Feature, c.Statistic, c.Index)
}

// ParseColumnKey parses a "feature.statistic.NN" key back into a Column
func ParseColumnKey(key string) (Column, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 {
		return Column{}, fmt.Errorf("malformed column key %q", key)
	}
	idx, err := strconv.Atoi(parts[2])
	if err != nil || idx < 1 {
		return Column{}, fmt.Errorf("malformed column ordinal in key %q", key)
	}
	return Column{Feature: parts[0], Statistic: parts[1], Index: idx}, nil
}

func (c Column) less(o Column) bool {
	if c.Feature != o.Feature {
		return c.Feature < o.Feature
	}
	if c.Statistic != o.Statistic {
		return c.Statistic < o.Statistic
	}
	return c.Index < o.Index
}

// canonicalColumns is generated once at init and never mutated. Making the
// order an explicit, tested constant is what keeps the training-time and
// serving-time layouts from drifting apart.
var canonicalColumns = generateColumns()

// scalerColumns is the canonical set regrouped into ScalerFeatureOrder
var scalerColumns = generateScalerColumns()

// generateColumns enumerates every (feature, statistic, ordinal) triple and
// sorts lexicographically by (feature, statistic, zero-padded ordinal).
func generateColumns() []Column {
	columns := make([]Column, 0, NumColumns)
	for name, size := range FeatureSizes {
		for _, stat := range Statistics {
			for i := 1; i <= size; i++ {
				columns = append(columns, Column{Feature: name, Statistic: stat, Index: i})
			}
		}
	}
	sort.Slice(columns, func(i, j int) bool {
		return columns[i].less(columns[j])
	})
	return columns
}

// generateScalerColumns lays out full feature groups in ScalerFeatureOrder,
// keeping the canonical (statistic, ordinal) order inside each group.
func generateScalerColumns() []Column {
	columns := make([]Column, 0, NumColumns)
	for _, name := range ScalerFeatureOrder {
		for _, c := range canonicalColumns {
			if c.Feature == name {
				columns = append(columns, c)
			}
		}
	}
	return columns
}

// CanonicalColumns returns the canonical 294-column order
func CanonicalColumns() []Column {
	out := make([]Column, len(canonicalColumns))
	copy(out, canonicalColumns)
	return out
}

// ScalerColumns returns the 294 columns in the scaler's fitted order
func ScalerColumns() []Column {
	out := make([]Column, len(scalerColumns))
	copy(out, scalerColumns)
	return out
}

// Row is one track's feature vector: a fixed column layout plus one scalar
// per column. Rows are assembled in canonical order and reordered exactly
// once, on the way into the scaler.
type Row struct {
	columns []Column
	values  []float64
	lookup  map[Column]int
}

// NewRow creates an empty row over the given column layout
func NewRow(columns []Column) *Row {
	lookup := make(map[Column]int, len(columns))
	for i, c := range columns {
		lookup[c] = i
	}
	return &Row{
		columns: columns,
		values:  make([]float64, len(columns)),
		lookup:  lookup,
	}
}

// NewCanonicalRow creates an empty row in canonical column order
func NewCanonicalRow() *Row {
	return NewRow(CanonicalColumns())
}

// Set writes the value for a column; unknown columns are a contract breach
func (r *Row) Set(c Column, v float64) error {
	i, ok := r.lookup[c]
	if !ok {
		return common.NewPipelineError(common.StageFeatures, common.ErrCodeSchemaMismatch,
			fmt.Sprintf("column %s is not part of the feature schema", c.Key()), nil)
	}
	r.values[i] = v
	return nil
}

// Value reads the value for a column
func (r *Row) Value(c Column) (float64, bool) {
	i, ok := r.lookup[c]
	if !ok {
		return 0, false
	}
	return r.values[i], true
}

// Columns returns the row's column layout
func (r *Row) Columns() []Column {
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values returns the row's values in column order
func (r *Row) Values() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns the column count
func (r *Row) Len() int {
	return len(r.columns)
}

// Reorder produces a new row laid out over the target columns. The column
// set must match exactly; anything else means extraction and scaling were
// built against different schema versions.
func (r *Row) Reorder(target []Column) (*Row, error) {
	if len(target) != len(r.columns) {
		return nil, common.NewPipelineError(common.StageFeatures, common.ErrCodeSchemaMismatch,
			fmt.Sprintf("column count mismatch: row has %d, target has %d", len(r.columns), len(target)), nil)
	}

	out := NewRow(target)
	for _, c := range target {
		v, ok := r.Value(c)
		if !ok {
			return nil, common.NewPipelineError(common.StageFeatures, common.ErrCodeSchemaMismatch,
				fmt.Sprintf("column %s missing from source row", c.Key()), nil)
		}
		if err := out.Set(c, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ColumnsEqual reports whether two layouts are identical element-wise
func ColumnsEqual(a, b []Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
