package dataset

import (
	"fmt"
	"math"
	"strconv"

	"github.com/KaramelBytes/dataprep-cli/internal/stats"
)

// Kind identifies the value type held by a column.
type Kind int

const (
	KindNumeric Kind = iota
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// View is the read-only surface of a column.
type View interface {
	Name() string
	Kind() Kind
	Len() int
	IsMissing(i int) bool
	MissingCount() int
	// Cell renders row i as text; missing cells render as "".
	Cell(i int) string
	// Unique counts distinct present values.
	Unique() int
}

// Column is a named sequence of values with a missingness mask.
// It is implemented only by *Numeric and *Categorical; callers switch on the
// concrete type.
type Column interface {
	View

	clone() Column
	subset(rows []int) Column
}

// Numeric is a float64 column. A missing cell has no value.
type Numeric struct {
	name    string
	values  []float64
	missing []bool
}

// NewNumeric builds a numeric column; NaN entries are recorded as missing.
func NewNumeric(name string, values []float64) *Numeric {
	c := &Numeric{
		name:    name,
		values:  make([]float64, len(values)),
		missing: make([]bool, len(values)),
	}
	for i, v := range values {
		if math.IsNaN(v) {
			c.missing[i] = true
			continue
		}
		c.values[i] = v
	}
	return c
}

func (c *Numeric) Name() string         { return c.name }
func (c *Numeric) Kind() Kind           { return KindNumeric }
func (c *Numeric) Len() int             { return len(c.values) }
func (c *Numeric) IsMissing(i int) bool { return c.missing[i] }

func (c *Numeric) MissingCount() int {
	n := 0
	for _, m := range c.missing {
		if m {
			n++
		}
	}
	return n
}

// Value returns the value at row i and whether it is present.
func (c *Numeric) Value(i int) (float64, bool) {
	if c.missing[i] {
		return 0, false
	}
	return c.values[i], true
}

// Set stores v at row i and clears its missing bit. NaN marks the cell missing.
func (c *Numeric) Set(i int, v float64) {
	if math.IsNaN(v) {
		c.values[i] = 0
		c.missing[i] = true
		return
	}
	c.values[i] = v
	c.missing[i] = false
}

// Present returns a copy of the non-missing values in row order.
func (c *Numeric) Present() []float64 {
	out := make([]float64, 0, len(c.values))
	for i, v := range c.values {
		if !c.missing[i] {
			out = append(out, v)
		}
	}
	return out
}

func (c *Numeric) Unique() int { return stats.Distinct(c.Present()) }

func (c *Numeric) Cell(i int) string {
	if c.missing[i] {
		return ""
	}
	return strconv.FormatFloat(c.values[i], 'g', -1, 64)
}

func (c *Numeric) clone() Column {
	return &Numeric{
		name:    c.name,
		values:  append([]float64(nil), c.values...),
		missing: append([]bool(nil), c.missing...),
	}
}

func (c *Numeric) subset(rows []int) Column {
	out := &Numeric{name: c.name, values: make([]float64, len(rows)), missing: make([]bool, len(rows))}
	for j, r := range rows {
		out.values[j] = c.values[r]
		out.missing[j] = c.missing[r]
	}
	return out
}

// Categorical is a string column.
type Categorical struct {
	name    string
	values  []string
	missing []bool
}

// NewCategorical builds a categorical column. A nil mask means no cell is missing.
func NewCategorical(name string, values []string, missing []bool) (*Categorical, error) {
	if missing != nil && len(missing) != len(values) {
		return nil, fmt.Errorf("column %q: %w: %d values, %d mask bits", name, ErrLengthMismatch, len(values), len(missing))
	}
	c := &Categorical{
		name:    name,
		values:  append([]string(nil), values...),
		missing: make([]bool, len(values)),
	}
	if missing != nil {
		copy(c.missing, missing)
		for i, m := range c.missing {
			if m {
				c.values[i] = ""
			}
		}
	}
	return c, nil
}

func (c *Categorical) Name() string         { return c.name }
func (c *Categorical) Kind() Kind           { return KindCategorical }
func (c *Categorical) Len() int             { return len(c.values) }
func (c *Categorical) IsMissing(i int) bool { return c.missing[i] }

func (c *Categorical) MissingCount() int {
	n := 0
	for _, m := range c.missing {
		if m {
			n++
		}
	}
	return n
}

// Value returns the category at row i and whether it is present.
func (c *Categorical) Value(i int) (string, bool) {
	if c.missing[i] {
		return "", false
	}
	return c.values[i], true
}

// Present returns a copy of the non-missing values in row order.
func (c *Categorical) Present() []string {
	out := make([]string, 0, len(c.values))
	for i, v := range c.values {
		if !c.missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// Set stores v at row i and clears its missing bit.
func (c *Categorical) Set(i int, v string) {
	c.values[i] = v
	c.missing[i] = false
}

func (c *Categorical) Unique() int { return stats.Distinct(c.Present()) }

func (c *Categorical) Cell(i int) string {
	if c.missing[i] {
		return ""
	}
	return c.values[i]
}

func (c *Categorical) clone() Column {
	return &Categorical{
		name:    c.name,
		values:  append([]string(nil), c.values...),
		missing: append([]bool(nil), c.missing...),
	}
}

func (c *Categorical) subset(rows []int) Column {
	out := &Categorical{name: c.name, values: make([]string, len(rows)), missing: make([]bool, len(rows))}
	for j, r := range rows {
		out.values[j] = c.values[r]
		out.missing[j] = c.missing[r]
	}
	return out
}

