package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrColumnNotFound indicates a lookup by name or index that matched no column.
	ErrColumnNotFound = errors.New("column not found")
	// ErrLengthMismatch indicates columns (or a column and its mask) of unequal length.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrDuplicateColumn indicates two columns sharing one name.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Dataset is an ordered set of equally long named columns. Column order is
// significant and preserved by every transformation.
//
// Imputation and winsorization mutate a Dataset in place through its column
// accessors; Drop, SelectRows and DropDuplicateRows return new datasets and
// leave the receiver untouched.
type Dataset struct {
	name  string
	cols  []Column
	index map[string]int
	rows  int
}

// New validates the columns and builds a dataset that owns them.
func New(name string, cols ...Column) (*Dataset, error) {
	d := &Dataset{name: name, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := d.index[c.Name()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name())
		}
		if i == 0 {
			d.rows = c.Len()
		} else if c.Len() != d.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d: %w", c.Name(), c.Len(), d.rows, ErrLengthMismatch)
		}
		d.index[c.Name()] = i
		d.cols = append(d.cols, c)
	}
	return d, nil
}

// Name returns the dataset label (usually the source file name).
func (d *Dataset) Name() string { return d.name }

// Rows returns the row count.
func (d *Dataset) Rows() int { return d.rows }

// NumCols returns the column count.
func (d *Dataset) NumCols() int { return len(d.cols) }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name()
	}
	return out
}

// Columns returns the mutable column handles in order, for the stages that
// rewrite cells in place. The slice is a copy; the columns are not. Read-only
// callers use Views.
func (d *Dataset) Columns() []Column {
	return append([]Column(nil), d.cols...)
}

// Views returns read-only views of the columns in order. A view cannot be
// asserted back to *Numeric or *Categorical.
func (d *Dataset) Views() []View {
	out := make([]View, len(d.cols))
	for i, c := range d.cols {
		out[i] = view{c}
	}
	return out
}

// View returns a read-only view of the named column.
func (d *Dataset) View(name string) (View, error) {
	c, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	return view{c}, nil
}

type view struct{ c Column }

func (v view) Name() string         { return v.c.Name() }
func (v view) Kind() Kind           { return v.c.Kind() }
func (v view) Len() int             { return v.c.Len() }
func (v view) IsMissing(i int) bool { return v.c.IsMissing(i) }
func (v view) MissingCount() int    { return v.c.MissingCount() }
func (v view) Cell(i int) string    { return v.c.Cell(i) }
func (v view) Unique() int          { return v.c.Unique() }

// ColumnAt returns the column at position i.
func (d *Dataset) ColumnAt(i int) (Column, error) {
	if i < 0 || i >= len(d.cols) {
		return nil, fmt.Errorf("index %d: %w", i, ErrColumnNotFound)
	}
	return d.cols[i], nil
}

// Column returns the column with the given name.
func (d *Dataset) Column(name string) (Column, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrColumnNotFound)
	}
	return d.cols[i], nil
}

// Has reports whether a column with the given name exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	cols := make([]Column, len(d.cols))
	for i, c := range d.cols {
		cols[i] = c.clone()
	}
	out, _ := New(d.name, cols...)
	return out
}

// Drop returns a copy without the named columns. Unknown names are an error.
func (d *Dataset) Drop(names ...string) (*Dataset, error) {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		if !d.Has(n) {
			return nil, fmt.Errorf("drop %q: %w", n, ErrColumnNotFound)
		}
		skip[n] = true
	}
	var cols []Column
	for _, c := range d.cols {
		if skip[c.Name()] {
			continue
		}
		cols = append(cols, c.clone())
	}
	out, err := New(d.name, cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		out.rows = d.rows
	}
	return out, nil
}

// Select returns a copy holding only the named columns, in the given order.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, err := d.Column(n)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		cols = append(cols, c.clone())
	}
	out, err := New(d.name, cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		out.rows = d.rows
	}
	return out, nil
}

// SelectRows returns a new dataset holding the given rows in the given order.
// Indices may repeat.
func (d *Dataset) SelectRows(rows []int) (*Dataset, error) {
	for _, r := range rows {
		if r < 0 || r >= d.rows {
			return nil, fmt.Errorf("row %d out of range [0,%d)", r, d.rows)
		}
	}
	cols := make([]Column, len(d.cols))
	for i, c := range d.cols {
		cols[i] = c.subset(rows)
	}
	out, err := New(d.name, cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		out.rows = len(rows)
	}
	return out, nil
}

// DropDuplicateRows returns a copy keeping the first occurrence of every
// distinct row, plus the number of rows removed. Missing cells compare equal
// to each other and unequal to any value.
func (d *Dataset) DropDuplicateRows() (*Dataset, int) {
	seen := make(map[string]struct{}, d.rows)
	keep := make([]int, 0, d.rows)
	for r := 0; r < d.rows; r++ {
		k := d.rowKey(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, r)
	}
	out, _ := d.SelectRows(keep)
	return out, d.rows - len(keep)
}

func (d *Dataset) rowKey(r int) string {
	var b strings.Builder
	for i, c := range d.cols {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		if c.IsMissing(r) {
			b.WriteByte(0x00)
			continue
		}
		b.WriteString(c.Cell(r))
	}
	return b.String()
}

// Head returns up to n rows rendered as text, for previews.
func (d *Dataset) Head(n int) [][]string {
	if n > d.rows {
		n = d.rows
	}
	out := make([][]string, 0, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(d.cols))
		for i, c := range d.cols {
			row[i] = c.Cell(r)
		}
		out = append(out, row)
	}
	return out
}
