package convert

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// ScaleToMax divides every input column by its largest absolute value so
// inputs fall in [-1, 1]. Columns that are all zero are left as is. Targets
// are not scaled. The factors used are returned in input order.
func ScaleToMax(fm *FeatureMatrix) []float64 {
	factors := make([]float64, fm.NumInputs)
	col := make([]float64, len(fm.Items))
	for j := 0; j < fm.NumInputs; j++ {
		for i, it := range fm.Items {
			col[i] = math.Abs(it.Input[j])
		}
		m := 0.0
		if len(col) > 0 {
			m = floats.Max(col)
		}
		factors[j] = m
		if m == 0 {
			factors[j] = 1
			continue
		}
		for _, it := range fm.Items {
			it.Input[j] /= m
		}
	}
	return factors
}

// ErrSplitRatio is returned for a train ratio outside (0, 1).
var ErrSplitRatio = errors.New("train ratio must be between 0 and 1")

// Split shuffles items with a generator seeded from seed and cuts them into
// a training part of round(n*ratio) items and a test part with the rest.
// fm is not modified; items are shared, not copied.
func Split(fm *FeatureMatrix, ratio float64, seed int64) (train, test *FeatureMatrix, err error) {
	if !(ratio > 0 && ratio < 1) {
		return nil, nil, fmt.Errorf("%w: %v", ErrSplitRatio, ratio)
	}
	n := len(fm.Items)
	cut := int(math.Round(float64(n) * ratio))
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	train, test = fm.shell(cut), fm.shell(n-cut)
	for k, i := range perm {
		if k < cut {
			train.Items = append(train.Items, fm.Items[i])
		} else {
			test.Items = append(test.Items, fm.Items[i])
		}
	}
	return train, test, nil
}

func (fm *FeatureMatrix) shell(capacity int) *FeatureMatrix {
	return &FeatureMatrix{
		NumInputs:   fm.NumInputs,
		NumOutputs:  fm.NumOutputs,
		InputNames:  fm.InputNames,
		TargetNames: fm.TargetNames,
		Items:       make([]Item, 0, capacity),
	}
}
