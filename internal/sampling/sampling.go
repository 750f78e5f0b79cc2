// Package sampling builds class-balanced samples for binary labels.
package sampling

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

var (
	// ErrUnsupportedLabelValue is returned when a label is missing or not 0/1.
	ErrUnsupportedLabelValue = errors.New("label must be 0 or 1")
	// ErrNoNegativeRows is returned when positives exist but no negative row can be drawn.
	ErrNoNegativeRows = errors.New("no negative rows to sample from")
)

// LabelError names the offending row.
type LabelError struct {
	Column string
	Row    int
	// Value is the cell text; empty for a missing label.
	Value   string
	Missing bool
}

func (e *LabelError) Error() string {
	if e.Missing {
		return fmt.Sprintf("label %q row %d: missing value", e.Column, e.Row)
	}
	return fmt.Sprintf("label %q row %d: unsupported value %q", e.Column, e.Row, e.Value)
}

func (e *LabelError) Unwrap() error { return ErrUnsupportedLabelValue }

// Sample is a balanced dataset plus the rows it was built from.
type Sample struct {
	Dataset *dataset.Dataset
	// PositiveRows are source rows labelled 1, in source order.
	PositiveRows []int
	// DrawnRows are source rows labelled 0, in draw order. Repeats are allowed.
	DrawnRows []int
}

// Labels splits the rows of a binary label column into positives and
// negatives, each in source order.
func Labels(ds *dataset.Dataset, label string) (pos, neg []int, err error) {
	col, err := ds.Column(label)
	if err != nil {
		return nil, nil, fmt.Errorf("label column: %w", err)
	}
	for i := 0; i < col.Len(); i++ {
		y, err := labelAt(col, i)
		if err != nil {
			return nil, nil, err
		}
		if y {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	return pos, neg, nil
}

func labelAt(col dataset.Column, i int) (bool, error) {
	if col.IsMissing(i) {
		return false, &LabelError{Column: col.Name(), Row: i, Missing: true}
	}
	switch c := col.(type) {
	case *dataset.Numeric:
		v, _ := c.Value(i)
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, &LabelError{Column: col.Name(), Row: i, Value: strconv.FormatFloat(v, 'g', -1, 64)}
	case *dataset.Categorical:
		v, _ := c.Value(i)
		switch v {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return false, &LabelError{Column: col.Name(), Row: i, Value: v}
	default:
		return false, fmt.Errorf("label %q: unknown column type %T", col.Name(), col)
	}
}

// Balance keeps every positive row in source order and appends as many
// negative rows drawn uniformly with replacement. The generator is seeded
// per call, so equal seeds over equal negative counts draw equal rows.
// The input dataset is not modified.
func Balance(ds *dataset.Dataset, label string, seed int64) (*Sample, error) {
	pos, neg, err := Labels(ds, label)
	if err != nil {
		return nil, err
	}
	if len(pos) > 0 && len(neg) == 0 {
		return nil, fmt.Errorf("balance %q: %d positives: %w", label, len(pos), ErrNoNegativeRows)
	}
	rng := rand.New(rand.NewSource(seed))
	drawn := make([]int, len(pos))
	for i := range drawn {
		drawn[i] = neg[rng.Intn(len(neg))]
	}
	rows := make([]int, 0, 2*len(pos))
	rows = append(rows, pos...)
	rows = append(rows, drawn...)
	out, err := ds.SelectRows(rows)
	if err != nil {
		return nil, err
	}
	return &Sample{Dataset: out, PositiveRows: pos, DrawnRows: drawn}, nil
}

// ClassCounts reports label balance.
type ClassCounts struct {
	Positive int `json:"positive" yaml:"positive"`
	Negative int `json:"negative" yaml:"negative"`
}

// Total returns the number of labelled rows.
func (c ClassCounts) Total() int { return c.Positive + c.Negative }

// PositiveShare returns the fraction of positives, or 0 for no rows.
func (c ClassCounts) PositiveShare() float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(c.Positive) / float64(c.Total())
}

// Counts tallies the classes of a binary label column.
func Counts(ds *dataset.Dataset, label string) (ClassCounts, error) {
	pos, neg, err := Labels(ds, label)
	if err != nil {
		return ClassCounts{}, err
	}
	return ClassCounts{Positive: len(pos), Negative: len(neg)}, nil
}
