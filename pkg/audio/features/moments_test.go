package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
)

func TestComputeMomentsSymmetricSeries(t *testing.T) {
	stats := computeMoments([]float64{1, 2, 3, 4})

	assert.InDelta(t, 2.5, stats["mean"], 1e-12)
	// Population standard deviation, not the sample estimator
	assert.InDelta(t, 1.118033988749895, stats["std"], 1e-12)
	assert.InDelta(t, 0.0, stats["skew"], 1e-12)
	// Biased excess kurtosis g2
	assert.InDelta(t, -1.36, stats["kurtosis"], 1e-12)
	// Even length averages the central pair
	assert.InDelta(t, 2.5, stats["median"], 1e-12)
	assert.Equal(t, 1.0, stats["min"])
	assert.Equal(t, 4.0, stats["max"])
}

func TestComputeMomentsSkewedSeries(t *testing.T) {
	stats := computeMoments([]float64{0, 0, 0, 1})

	assert.InDelta(t, 0.25, stats["mean"], 1e-12)
	assert.InDelta(t, 0.4330127018922193, stats["std"], 1e-12)
	assert.InDelta(t, 1.1547005383792515, stats["skew"], 1e-12)
	assert.InDelta(t, -2.0/3.0, stats["kurtosis"], 1e-9)
	assert.InDelta(t, 0.0, stats["median"], 1e-12)
}

func TestComputeMomentsConstantSeries(t *testing.T) {
	stats := computeMoments([]float64{3, 3, 3})

	// Zero variance pins the shape statistics to zero instead of NaN
	assert.Equal(t, 0.0, stats["std"])
	assert.Equal(t, 0.0, stats["skew"])
	assert.Equal(t, 0.0, stats["kurtosis"])
	assert.Equal(t, 3.0, stats["mean"])
	assert.Equal(t, 3.0, stats["median"])
}

func TestReduceWritesAllStatistics(t *testing.T) {
	row := NewCanonicalRow()
	reducer := NewMomentReducer()

	// One coefficient series for each of the single-coefficient features
	require.NoError(t, reducer.Reduce(row, FeatureZCR, [][]float64{{0.1, 0.2, 0.3}}))

	for _, stat := range Statistics {
		_, ok := row.Value(Column{Feature: FeatureZCR, Statistic: stat, Index: 1})
		assert.True(t, ok, "statistic %s not written", stat)
	}
	mean, _ := row.Value(Column{Feature: FeatureZCR, Statistic: "mean", Index: 1})
	assert.InDelta(t, 0.2, mean, 1e-12)
}

func TestReduceRejectsWrongShape(t *testing.T) {
	row := NewCanonicalRow()
	reducer := NewMomentReducer()

	err := reducer.Reduce(row, FeatureMFCC, [][]float64{{1, 2}})
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeSchemaMismatch, common.ErrorCode(err))

	err = reducer.Reduce(row, "tempo", [][]float64{{1, 2}})
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeSchemaMismatch, common.ErrorCode(err))
}

func TestReduceRejectsEmptyTimeAxis(t *testing.T) {
	row := NewCanonicalRow()
	reducer := NewMomentReducer()

	err := reducer.Reduce(row, FeatureRMSE, [][]float64{{}})
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeDegenerate, common.ErrorCode(err))
	assert.True(t, common.IsClientError(err))
}
