package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
)

// MomentReducer collapses a feature matrix (coefficient rows x time frame
// columns) into seven statistics per coefficient and writes each scalar
// into the row at (feature, statistic, ordinal).
//
// Numeric conventions are a contract with the trained artifacts:
// population (not sample) standard deviation, and the biased moment
// estimators g1 for skewness and g2 (Fisher excess) for kurtosis.
type MomentReducer struct{}

// NewMomentReducer creates a moment reducer
func NewMomentReducer() *MomentReducer {
	return &MomentReducer{}
}

// Reduce computes the seven moments for every coefficient row of values
// and stores them in row under the given feature name. Fails on an empty
// time axis (audio too short to produce a single frame).
func (mr *MomentReducer) Reduce(row *Row, feature string, values [][]float64) error {
	size, ok := FeatureSizes[feature]
	if !ok {
		return common.NewPipelineError(common.StageFeatures, common.ErrCodeSchemaMismatch,
			fmt.Sprintf("unknown feature %q", feature), nil)
	}
	if len(values) != size {
		return common.NewPipelineError(common.StageFeatures, common.ErrCodeSchemaMismatch,
			fmt.Sprintf("feature %q produced %d coefficient rows, schema expects %d", feature, len(values), size), nil)
	}

	for i, coeffs := range values {
		if len(coeffs) == 0 {
			return common.NewPipelineError(common.StageFeatures, common.ErrCodeDegenerate,
				fmt.Sprintf("feature %q has no time frames to reduce", feature), nil)
		}

		stats := computeMoments(coeffs)
		for stat, v := range stats {
			c := Column{Feature: feature, Statistic: stat, Index: i + 1}
			if err := row.Set(c, v); err != nil {
				return err
			}
		}
	}

	return nil
}

// computeMoments returns the seven statistics for one coefficient series
func computeMoments(values []float64) map[string]float64 {
	n := float64(len(values))

	minVal := values[0]
	maxVal := values[0]
	sum := 0.0
	for _, v := range values {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
		sum += v
	}
	mean := sum / n

	// Central moments up to order four
	var m2, m3, m4 float64
	for _, v := range values {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	m2 /= n
	m3 /= n
	m4 /= n

	std := math.Sqrt(m2)

	// Constant series carry no shape information; report zero instead of
	// propagating NaN into the scaler.
	skew := 0.0
	kurtosis := 0.0
	if m2 > 0 {
		skew = m3 / math.Pow(m2, 1.5)
		kurtosis = m4/(m2*m2) - 3.0
	}

	return map[string]float64{
		"min":      minVal,
		"max":      maxVal,
		"mean":     mean,
		"std":      std,
		"median":   median(values),
		"skew":     skew,
		"kurtosis": kurtosis,
	}
}

// median computes the middle value, averaging the two central samples for
// even-length series
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2.0
}
