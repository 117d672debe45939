package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	m, ok := Mean([]float64{1, 2, 3, 4})
	require.True(t, ok)
	assert.InDelta(t, 2.5, m, 1e-9)

	_, ok = Mean(nil)
	assert.False(t, ok)
}

func TestSampleStdDev(t *testing.T) {
	s, ok := SampleStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.True(t, ok)
	assert.InDelta(t, 2.13809, s, 1e-4)

	_, ok = SampleStdDev([]float64{1})
	assert.False(t, ok)
}

func TestQuantileLinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	q, ok := Quantile(values, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 2.5, q, 1e-9)

	q, _ = Quantile(values, 0.25)
	assert.InDelta(t, 1.75, q, 1e-9)

	q, _ = Quantile(values, 0)
	assert.InDelta(t, 1, q, 1e-9)

	q, _ = Quantile(values, 1)
	assert.InDelta(t, 4, q, 1e-9)
}

func TestQuantileMonotonic(t *testing.T) {
	values := []float64{38.1, 39.5, 37.2, 40.0, 38.8, 41.3, 36.9, 39.9, 500, 0.5}

	min, max, ok := MinMax(values)
	require.True(t, ok)

	var prev = min
	for _, q := range []float64{0.01, 0.25, 0.5, 0.75, 0.99} {
		v, ok := Quantile(values, q)
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
	assert.GreaterOrEqual(t, max, prev)
}

func TestQuantileSingleValue(t *testing.T) {
	q, ok := Quantile([]float64{7}, 0.99)
	require.True(t, ok)
	assert.InDelta(t, 7, q, 1e-9)
}

func TestSum(t *testing.T) {
	assert.InDelta(t, 6, Sum([]float64{1, 2, 3}), 1e-9)
	assert.Zero(t, Sum(nil))
}
