package sampling

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

// fraud builds npos positives interleaved before nneg negatives, with an
// id column equal to the source row.
func fraud(t *testing.T, npos, nneg int) *dataset.Dataset {
	t.Helper()
	n := npos + nneg
	id := make([]float64, n)
	class := make([]float64, n)
	for i := range id {
		id[i] = float64(i)
		if i%(n/npos) == 0 && countOnes(class) < npos {
			class[i] = 1
		}
	}
	ds, err := dataset.New("cc", dataset.NewNumeric("id", id), dataset.NewNumeric("Class", class))
	require.NoError(t, err)
	return ds
}

func countOnes(xs []float64) int {
	n := 0
	for _, x := range xs {
		if x == 1 {
			n++
		}
	}
	return n
}

func TestBalanceShapeAndOrder(t *testing.T) {
	ds := fraud(t, 50, 1000)
	s, err := Balance(ds, "Class", 42)
	require.NoError(t, err)

	assert.Equal(t, 100, s.Dataset.Rows())
	assert.Equal(t, []string{"id", "Class"}, s.Dataset.Names())
	require.Len(t, s.PositiveRows, 50)
	require.Len(t, s.DrawnRows, 50)

	cls, _ := s.Dataset.Column("Class")
	ids, _ := s.Dataset.Column("id")
	for i := 0; i < 100; i++ {
		y, _ := cls.(*dataset.Numeric).Value(i)
		if i < 50 {
			assert.Equal(t, 1.0, y, "row %d", i)
		} else {
			assert.Equal(t, 0.0, y, "row %d", i)
		}
	}
	for i := 1; i < 50; i++ {
		prev, _ := ids.(*dataset.Numeric).Value(i - 1)
		cur, _ := ids.(*dataset.Numeric).Value(i)
		assert.Less(t, prev, cur, "positives keep source order")
	}
	assert.Equal(t, 1050, ds.Rows(), "input untouched")
}

func TestBalanceIsReproducible(t *testing.T) {
	ds := fraud(t, 50, 1000)
	a, err := Balance(ds, "Class", 42)
	require.NoError(t, err)
	b, err := Balance(ds, "Class", 42)
	require.NoError(t, err)
	c, err := Balance(ds, "Class", 43)
	require.NoError(t, err)

	assert.Equal(t, a.DrawnRows, b.DrawnRows)
	assert.Equal(t, a.Dataset.Head(100), b.Dataset.Head(100))
	assert.NotEqual(t, a.DrawnRows, c.DrawnRows)
}

func TestBalanceCategoricalLabel(t *testing.T) {
	lbl, err := dataset.NewCategorical("y", []string{"0", "1", "0", "0"}, nil)
	require.NoError(t, err)
	ds, err := dataset.New("t", lbl)
	require.NoError(t, err)

	s, err := Balance(ds, "y", 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, s.PositiveRows)
	assert.Equal(t, 2, s.Dataset.Rows())
	assert.Contains(t, []int{0, 2, 3}, s.DrawnRows[0])
}

func TestBalanceEdgeCases(t *testing.T) {
	t.Run("no positives gives empty sample", func(t *testing.T) {
		ds, err := dataset.New("t",
			dataset.NewNumeric("v", []float64{1, 2}),
			dataset.NewNumeric("Class", []float64{0, 0}))
		require.NoError(t, err)
		s, err := Balance(ds, "Class", 42)
		require.NoError(t, err)
		assert.Equal(t, 0, s.Dataset.Rows())
		assert.Equal(t, []string{"v", "Class"}, s.Dataset.Names())
	})

	t.Run("no negatives", func(t *testing.T) {
		ds, err := dataset.New("t", dataset.NewNumeric("Class", []float64{1, 1}))
		require.NoError(t, err)
		_, err = Balance(ds, "Class", 42)
		require.ErrorIs(t, err, ErrNoNegativeRows)
	})

	t.Run("more positives than negatives draws with repeats", func(t *testing.T) {
		ds, err := dataset.New("t",
			dataset.NewNumeric("v", []float64{0, 1, 2, 3, 4, 5, 6}),
			dataset.NewNumeric("Class", []float64{1, 1, 1, 1, 1, 0, 0}))
		require.NoError(t, err)
		s, err := Balance(ds, "Class", 42)
		require.NoError(t, err)
		assert.Equal(t, 10, s.Dataset.Rows())
		assert.Equal(t, []int{0, 1, 2, 3, 4}, s.PositiveRows)
		require.Len(t, s.DrawnRows, 5)
		seen := map[int]int{}
		for _, r := range s.DrawnRows {
			assert.Contains(t, []int{5, 6}, r)
			seen[r]++
		}
		assert.Less(t, len(seen), len(s.DrawnRows), "draws repeat")

		counts, err := Counts(s.Dataset, "Class")
		require.NoError(t, err)
		assert.Equal(t, ClassCounts{Positive: 5, Negative: 5}, counts)
	})

	t.Run("bad value names the row", func(t *testing.T) {
		ds, err := dataset.New("t", dataset.NewNumeric("Class", []float64{0, 1, 2}))
		require.NoError(t, err)
		_, err = Balance(ds, "Class", 42)
		require.ErrorIs(t, err, ErrUnsupportedLabelValue)
		var le *LabelError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, 2, le.Row)
		assert.Equal(t, "2", le.Value)
	})

	t.Run("missing label", func(t *testing.T) {
		ds, err := dataset.New("t", dataset.NewNumeric("Class", []float64{0, math.NaN()}))
		require.NoError(t, err)
		_, err = Balance(ds, "Class", 42)
		var le *LabelError
		require.ErrorAs(t, err, &le)
		assert.True(t, le.Missing)
		assert.Equal(t, 1, le.Row)
	})

	t.Run("unknown column", func(t *testing.T) {
		ds, err := dataset.New("t", dataset.NewNumeric("v", []float64{0}))
		require.NoError(t, err)
		_, err = Balance(ds, "Class", 42)
		require.ErrorIs(t, err, dataset.ErrColumnNotFound)
	})
}

func TestCounts(t *testing.T) {
	c, err := Counts(fraud(t, 50, 1000), "Class")
	require.NoError(t, err)
	assert.Equal(t, ClassCounts{Positive: 50, Negative: 1000}, c)
	assert.InDelta(t, 50.0/1050, c.PositiveShare(), 1e-12)
	assert.Zero(t, ClassCounts{}.PositiveShare())
}
