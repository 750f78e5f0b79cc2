// Package convert turns a cleaned dataset into the numeric input/target
// arrays a trainer consumes.
package convert

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

var (
	// ErrShapeMismatch is returned when the column count is not inputs + outputs.
	ErrShapeMismatch = errors.New("column count does not match inputs + outputs")
	// ErrNonNumericFeature marks a categorical column.
	ErrNonNumericFeature = errors.New("non-numeric feature")
	// ErrUnresolvedMissingValue marks a missing cell left after imputation.
	ErrUnresolvedMissingValue = errors.New("unresolved missing value")
)

// Item is one row split into inputs and targets.
type Item struct {
	Input  []float64 `json:"input"`
	Target []float64 `json:"target"`
}

// FeatureMatrix is a row-ordered list of items. The first NumInputs columns
// of the source dataset feed Input; the remaining NumOutputs feed Target.
type FeatureMatrix struct {
	NumInputs   int      `json:"num_inputs"`
	NumOutputs  int      `json:"num_outputs"`
	InputNames  []string `json:"input_names"`
	TargetNames []string `json:"target_names"`
	Items       []Item   `json:"-"`
}

// Len returns the number of items.
func (fm *FeatureMatrix) Len() int { return len(fm.Items) }

// Inputs returns the inputs as a dense rows x NumInputs matrix, or nil when
// either dimension is zero.
func (fm *FeatureMatrix) Inputs() *mat.Dense {
	return fm.dense(fm.NumInputs, func(it Item) []float64 { return it.Input })
}

// Targets returns the targets as a dense rows x NumOutputs matrix, or nil
// when either dimension is zero.
func (fm *FeatureMatrix) Targets() *mat.Dense {
	return fm.dense(fm.NumOutputs, func(it Item) []float64 { return it.Target })
}

func (fm *FeatureMatrix) dense(cols int, pick func(Item) []float64) *mat.Dense {
	if cols == 0 || len(fm.Items) == 0 {
		return nil
	}
	data := make([]float64, 0, len(fm.Items)*cols)
	for _, it := range fm.Items {
		data = append(data, pick(it)...)
	}
	return mat.NewDense(len(fm.Items), cols, data)
}

// CellError locates one conversion problem. Row is -1 for problems that
// affect a whole column.
type CellError struct {
	Row    int
	Column string
	Err    error
}

func (e *CellError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("row %d column %q: %v", e.Row, e.Column, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// ConversionError collects every problem found in one pass.
type ConversionError struct {
	Problems []*CellError
}

func (e *ConversionError) Error() string {
	const show = 5
	var b strings.Builder
	fmt.Fprintf(&b, "dataset not convertible: %d problem(s)", len(e.Problems))
	for i, p := range e.Problems {
		if i == show {
			fmt.Fprintf(&b, "; and %d more", len(e.Problems)-show)
			break
		}
		b.WriteString("; ")
		b.WriteString(p.Error())
	}
	return b.String()
}

// Unwrap exposes each problem to errors.Is and errors.As.
func (e *ConversionError) Unwrap() []error {
	out := make([]error, len(e.Problems))
	for i, p := range e.Problems {
		out[i] = p
	}
	return out
}

// Rows returns the distinct rows with missing values, ascending.
func (e *ConversionError) Rows() []int {
	var rows []int
	seen := map[int]bool{}
	for _, p := range e.Problems {
		if p.Row >= 0 && !seen[p.Row] {
			seen[p.Row] = true
			rows = append(rows, p.Row)
		}
	}
	return rows
}

// ToFeatureMatrix converts ds row by row. Every categorical column and every
// missing cell is reported in a single *ConversionError.
func ToFeatureMatrix(ds *dataset.Dataset, numInputs, numOutputs int) (*FeatureMatrix, error) {
	if numInputs < 0 || numOutputs < 0 || ds.NumCols() != numInputs+numOutputs {
		return nil, fmt.Errorf("%w: dataset has %d columns, want %d inputs + %d outputs",
			ErrShapeMismatch, ds.NumCols(), numInputs, numOutputs)
	}
	cols := ds.Columns()
	nums := make([]*dataset.Numeric, len(cols))
	var problems []*CellError
	for j, c := range cols {
		n, ok := c.(*dataset.Numeric)
		if !ok {
			problems = append(problems, &CellError{Row: -1, Column: c.Name(), Err: ErrNonNumericFeature})
			continue
		}
		nums[j] = n
	}
	for r := 0; r < ds.Rows(); r++ {
		for _, n := range nums {
			if n != nil && n.IsMissing(r) {
				problems = append(problems, &CellError{Row: r, Column: n.Name(), Err: ErrUnresolvedMissingValue})
			}
		}
	}
	if len(problems) > 0 {
		return nil, &ConversionError{Problems: problems}
	}

	names := ds.Names()
	fm := &FeatureMatrix{
		NumInputs:   numInputs,
		NumOutputs:  numOutputs,
		InputNames:  names[:numInputs],
		TargetNames: names[numInputs:],
		Items:       make([]Item, ds.Rows()),
	}
	for r := range fm.Items {
		in := make([]float64, numInputs)
		out := make([]float64, numOutputs)
		for j, n := range nums {
			v, _ := n.Value(r)
			if j < numInputs {
				in[j] = v
			} else {
				out[j-numInputs] = v
			}
		}
		fm.Items[r] = Item{Input: in, Target: out}
	}
	return fm, nil
}
