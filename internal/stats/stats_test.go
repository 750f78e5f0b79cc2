package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestMeanStdDev(t *testing.T) {
	m, err := Mean([]float64{1, 2, 3, 5})
	require.NoError(t, err)
	assert.InDelta(t, 2.75, m, 1e-12)

	sd, err := StdDev([]float64{1, 2, 3, 5})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(8.75/3), sd, 1e-12)

	sd, err = StdDev([]float64{4})
	require.NoError(t, err)
	assert.Zero(t, sd)

	_, err = Mean(nil)
	require.ErrorIs(t, err, ErrEmptyColumn)
	_, _, err = MeanStdDev(nil)
	require.ErrorIs(t, err, ErrEmptyColumn)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{[]float64{1, 1, 1, 1, 100}, 1},
		{[]float64{7}, 7},
	}
	for _, tt := range tests {
		got, err := Median(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "median(%v)", tt.in)
	}
	_, err := Median(nil)
	require.ErrorIs(t, err, ErrEmptyColumn)
}

func TestQuartilesTukeyHinges(t *testing.T) {
	tests := []struct {
		name   string
		in     []float64
		q1, q3 float64
	}{
		{"even with outlier", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}, 3, 8},
		{"odd excludes median", []float64{1, 2, 3, 4, 5, 6, 7}, 2, 6},
		{"unsorted input", []float64{9, 1, 5, 3, 7}, 2, 8},
		{"two values", []float64{2, 10}, 2, 10},
		{"single value", []float64{4}, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q1, q3, err := Quartiles(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.q1, q1)
			assert.Equal(t, tt.q3, q3)
		})
	}
	_, _, err := Quartiles(nil)
	require.ErrorIs(t, err, ErrEmptyColumn)
}

func TestModeFirstSeenWinsTies(t *testing.T) {
	got, err := Mode([]string{"a", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	got, err = Mode([]string{"b", "a", "a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	n, err := Mode([]float64{3, 1, 1, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, n)

	_, err = Mode([]string{})
	require.ErrorIs(t, err, ErrEmptyColumn)
}

func TestDistinct(t *testing.T) {
	assert.Equal(t, 3, Distinct([]string{"x", "y", "x", "z"}))
	assert.Equal(t, 0, Distinct([]float64(nil)))
}

func TestKSNormalSmallSamples(t *testing.T) {
	res, err := KSNormal([]float64{1, 2, 3, 5})
	require.NoError(t, err)
	assert.InDelta(t, 0.1918, res.D, 5e-4)
	assert.True(t, res.Normal(0.05), "p=%v", res.PValue)

	res, err = KSNormal([]float64{1, 1, 1, 1, 100})
	require.NoError(t, err)
	assert.InDelta(t, 0.4726, res.D, 5e-4)
	assert.Less(t, res.PValue, 0.01)
	assert.False(t, res.Normal(0.05))
}

func TestKSNormalLargeSamples(t *testing.T) {
	const n = 500
	norm := distuv.Normal{Mu: 10, Sigma: 2}
	normal := make([]float64, n)
	skewed := make([]float64, n)
	for i := range normal {
		u := (float64(i) + 0.5) / n
		normal[i] = norm.Quantile(u)
		skewed[i] = -math.Log(1 - u)
	}

	res, err := KSNormal(normal)
	require.NoError(t, err)
	assert.True(t, res.Normal(0.05), "p=%v", res.PValue)
	assert.LessOrEqual(t, res.PValue, 1.0)

	res, err = KSNormal(skewed)
	require.NoError(t, err)
	assert.False(t, res.Normal(0.05), "p=%v", res.PValue)
	assert.GreaterOrEqual(t, res.PValue, 0.0)
}

func TestKSNormalDegenerate(t *testing.T) {
	_, err := KSNormal([]float64{1})
	require.ErrorIs(t, err, ErrTooFewValues)

	res, err := KSNormal([]float64{2, 2, 2})
	require.ErrorIs(t, err, ErrZeroVariance)
	assert.Equal(t, 2.0, res.Mean)
}
