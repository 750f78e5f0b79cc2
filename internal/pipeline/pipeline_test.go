package pipeline

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dataprep-cli/internal/convert"
	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/impute"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// cards: Time, V1, Amount (one outlier, one missing), Sparse (mostly missing), Class.
// Row 1 duplicates row 0.
func cards(t *testing.T) *dataset.Dataset {
	t.Helper()
	nan := math.NaN()
	const n = 40
	tm := make([]float64, n)
	v1 := make([]float64, n)
	amt := make([]float64, n)
	sparse := make([]float64, n)
	class := make([]float64, n)
	for i := 0; i < n; i++ {
		tm[i] = float64(i)
		v1[i] = float64(i%7) - 3
		amt[i] = float64(10 + i%9)
		sparse[i] = nan
		if i%4 == 0 {
			class[i] = 1
		}
	}
	tm[1], v1[1], amt[1], class[1] = tm[0], v1[0], amt[0], class[0]
	amt[5] = 5000
	amt[6] = nan
	sparse[0], sparse[1] = 1, 1
	ds, err := dataset.New("creditcard.csv",
		dataset.NewNumeric("Time", tm),
		dataset.NewNumeric("V1", v1),
		dataset.NewNumeric("Amount", amt),
		dataset.NewNumeric("Sparse", sparse),
		dataset.NewNumeric("Class", class),
	)
	require.NoError(t, err)
	return ds
}

func opts() Options {
	o := DefaultOptions()
	o.DropColumns = []string{"Time"}
	o.WinsorizeColumns = []string{"Amount"}
	o.DropRemovalCandidates = true
	o.Scale = true
	o.Seed = 42
	return o
}

func TestRunFullFlow(t *testing.T) {
	ds := cards(t)
	p, err := New(ds, opts(), quiet)
	require.NoError(t, err)
	assert.Equal(t, 1, p.DuplicatesRemoved)
	assert.Equal(t, 39, p.Dataset().Rows())

	require.NoError(t, p.Run())
	assert.Equal(t, StageConverted, p.Stage())
	assert.Equal(t, 5, ds.NumCols(), "input dataset untouched")

	assert.Equal(t, []string{"Sparse"}, p.Imputation.RemovalCandidates)
	assert.Equal(t, []string{"Time", "Sparse"}, p.Dropped)
	d, ok := p.Imputation.Decision("Amount")
	require.True(t, ok)
	assert.Contains(t, []impute.Kind{impute.KindMean, impute.KindMedian}, d.Kind)

	require.Len(t, p.Outliers, 1)
	assert.Equal(t, []float64{5000}, p.Outliers[0].Unique)
	assert.Equal(t, 1, p.Outliers[0].Changed)

	// positives at rows 0, 4, ..., 36; the duplicate row 1 is gone
	assert.Equal(t, 10, p.ClassCounts.Positive)
	assert.Equal(t, 29, p.ClassCounts.Negative)
	assert.Equal(t, 20, p.Sample.Dataset.Rows())

	require.NotNil(t, p.Matrix)
	assert.Equal(t, []string{"V1", "Amount"}, p.Matrix.InputNames)
	assert.Equal(t, []string{"Class"}, p.Matrix.TargetNames)
	for _, it := range p.Matrix.Items {
		for _, v := range it.Input {
			assert.LessOrEqual(t, math.Abs(v), 1.0)
		}
	}
	assert.Equal(t, 12, p.Train.Len())
	assert.Equal(t, 8, p.Test.Len())
}

func TestConvertTargetsOnlyTheLabel(t *testing.T) {
	src := cards(t)
	reordered, err := src.Select("Class", "Time", "V1", "Amount", "Sparse")
	require.NoError(t, err)
	p, err := New(reordered, opts(), quiet)
	require.NoError(t, err)
	require.NoError(t, p.Run())

	assert.Equal(t, []string{"V1", "Amount"}, p.Matrix.InputNames)
	assert.Equal(t, []string{"Class"}, p.Matrix.TargetNames)
	assert.Equal(t, 1, p.Matrix.NumOutputs)
	for _, it := range p.Matrix.Items {
		require.Len(t, it.Target, 1)
		assert.Contains(t, []float64{0, 1}, it.Target[0])
	}
}

func TestRunWithoutDroppingCandidatesFailsConversion(t *testing.T) {
	o := opts()
	o.DropRemovalCandidates = false
	p, err := New(cards(t), o, quiet)
	require.NoError(t, err)

	err = p.Run()
	require.ErrorIs(t, err, convert.ErrUnresolvedMissingValue)
	assert.Equal(t, StageBalanced, p.Stage())
}

func TestStageOrderEnforced(t *testing.T) {
	p, err := New(cards(t), opts(), quiet)
	require.NoError(t, err)

	_, err = p.Impute()
	require.ErrorIs(t, err, ErrStageOrder)
	_, err = p.Balance()
	require.ErrorIs(t, err, ErrStageOrder)
	_, err = p.Convert()
	require.ErrorIs(t, err, ErrStageOrder)

	_, err = p.Diagnose()
	require.NoError(t, err)
	_, err = p.Winsorize()
	require.ErrorIs(t, err, ErrStageOrder)
	_, err = p.Impute()
	require.NoError(t, err)
	_, err = p.Balance()
	require.NoError(t, err)

	_, err = p.Impute()
	require.ErrorIs(t, err, ErrStageOrder, "no in-place stage after balancing")
	_, err = p.Winsorize()
	require.ErrorIs(t, err, ErrStageOrder)
}

func TestNewValidatesOptions(t *testing.T) {
	o := opts()
	o.LabelColumn = ""
	_, err := New(cards(t), o, quiet)
	require.Error(t, err)

	o = opts()
	o.Impute.Alpha = 0
	_, err = New(cards(t), o, quiet)
	require.Error(t, err)
}

func TestSummaryRendering(t *testing.T) {
	p, err := New(cards(t), opts(), quiet)
	require.NoError(t, err)
	require.NoError(t, p.Run())

	s := p.Summary()
	assert.Equal(t, "converted", s.Stage)
	assert.Equal(t, 40, s.RowsIn)

	md := s.Markdown()
	for _, section := range []string{
		"[DATASET SUMMARY]", "[MISSING VALUES]", "[IMPUTATION]", "[REMOVAL CANDIDATES]",
		"[OUTLIERS]", "[CLASS BALANCE]", "[FEATURE MATRIX]", "[HEAD ROWS]",
	} {
		assert.Contains(t, md, section)
	}
	assert.Contains(t, md, "File: creditcard.csv")
	assert.Contains(t, md, "- Sparse\n")
	assert.Contains(t, md, "values: 5000")

	y, err := s.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(y), "removal_candidates:\n    - Sparse")
	assert.Contains(t, string(y), "source: creditcard.csv")
}
