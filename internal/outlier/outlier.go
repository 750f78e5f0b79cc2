// Package outlier finds and caps extreme numeric values with IQR fences.
package outlier

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/stats"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
)

var (
	// ErrUnsupportedColumnType is returned for non-numeric columns.
	ErrUnsupportedColumnType = errors.New("outlier handling needs a numeric column")
	// ErrEmptyColumn is returned when a column has no non-missing values.
	ErrEmptyColumn = stats.ErrEmptyColumn
)

// Lower fence policies.
const (
	LowerNone  = "none"
	LowerClamp = "clamp"
)

// LowerPolicy optionally raises the lower fence to a floor, e.g. 0 for
// quantities that cannot be negative.
type LowerPolicy struct {
	Mode string  `validate:"oneof=none clamp"`
	Min  float64 `validate:"-"`
}

// Options configure a Handler.
type Options struct {
	// Multiplier is k in Q1 - k*IQR and Q3 + k*IQR.
	Multiplier float64 `validate:"gt=0"`
	Lower      LowerPolicy
}

// DefaultOptions returns k = 1.5 with no lower clamp.
func DefaultOptions() Options {
	return Options{Multiplier: 1.5, Lower: LowerPolicy{Mode: LowerNone}}
}

// Bounds are the IQR fences of one column.
type Bounds struct {
	Q1    float64 `json:"q1" yaml:"q1"`
	Q3    float64 `json:"q3" yaml:"q3"`
	IQR   float64 `json:"iqr" yaml:"iqr"`
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Contains reports whether v lies within the fences, inclusive.
func (b Bounds) Contains(v float64) bool { return v >= b.Lower && v <= b.Upper }

// Handler computes fences, flags and winsorizes.
type Handler struct {
	opts   Options
	logger *slog.Logger
}

// NewHandler validates opts. If logger is nil, slog.Default() is used.
func NewHandler(opts Options, logger *slog.Logger) (*Handler, error) {
	if opts.Lower.Mode == "" {
		opts.Lower.Mode = LowerNone
	}
	if err := utils.ValidateStruct(opts); err != nil {
		return nil, fmt.Errorf("outlier options: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{opts: opts, logger: logger}, nil
}

func numeric(col dataset.Column) (*dataset.Numeric, error) {
	n, ok := col.(*dataset.Numeric)
	if !ok {
		return nil, fmt.Errorf("column %q (%s): %w", col.Name(), col.Kind(), ErrUnsupportedColumnType)
	}
	return n, nil
}

// Bounds computes the fences from the column's present values.
func (h *Handler) Bounds(col dataset.Column) (Bounds, error) {
	n, err := numeric(col)
	if err != nil {
		return Bounds{}, err
	}
	q1, q3, err := stats.Quartiles(n.Present())
	if err != nil {
		return Bounds{}, fmt.Errorf("column %q: %w", col.Name(), err)
	}
	iqr := q3 - q1
	b := Bounds{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1 - h.opts.Multiplier*iqr,
		Upper: q3 + h.opts.Multiplier*iqr,
	}
	if h.opts.Lower.Mode == LowerClamp && b.Lower < h.opts.Lower.Min {
		b.Lower = h.opts.Lower.Min
	}
	// A floor above the upper fence would invert the bounds.
	if b.Lower > b.Upper {
		h.logger.Warn("lower clamp above upper fence, using upper fence",
			"column", col.Name(), "min", h.opts.Lower.Min, "upper", b.Upper)
		b.Lower = b.Upper
	}
	return b, nil
}

// Detect returns ascending row indices whose value lies outside b. Missing
// cells are never flagged.
func (h *Handler) Detect(col dataset.Column, b Bounds) ([]int, error) {
	n, err := numeric(col)
	if err != nil {
		return nil, err
	}
	idx := []int{}
	for i := 0; i < n.Len(); i++ {
		if v, ok := n.Value(i); ok && !b.Contains(v) {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// Winsorize clamps out-of-bounds values to the nearest fence in place and
// returns how many cells changed.
func (h *Handler) Winsorize(col dataset.Column, b Bounds) (int, error) {
	n, err := numeric(col)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := 0; i < n.Len(); i++ {
		v, ok := n.Value(i)
		if !ok || b.Contains(v) {
			continue
		}
		n.Set(i, math.Min(math.Max(v, b.Lower), b.Upper))
		changed++
	}
	if changed > 0 {
		h.logger.Info("winsorized column", "column", col.Name(), "changed", changed,
			"lower", b.Lower, "upper", b.Upper)
	}
	return changed, nil
}

// Summary describes the outliers of one column.
type Summary struct {
	Column  string    `json:"column" yaml:"column"`
	Bounds  Bounds    `json:"bounds" yaml:"bounds"`
	Rows    []int     `json:"rows" yaml:"rows"`
	Unique  []float64 `json:"unique_values" yaml:"unique_values"`
	Changed int       `json:"winsorized" yaml:"winsorized"`
}

// Summarize computes bounds and flagged rows, plus the distinct outlier
// values in ascending order.
func (h *Handler) Summarize(col dataset.Column) (Summary, error) {
	b, err := h.Bounds(col)
	if err != nil {
		return Summary{}, err
	}
	rows, err := h.Detect(col, b)
	if err != nil {
		return Summary{}, err
	}
	n := col.(*dataset.Numeric)
	seen := map[float64]struct{}{}
	uniq := []float64{}
	for _, r := range rows {
		v, _ := n.Value(r)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		uniq = append(uniq, v)
	}
	sort.Float64s(uniq)
	return Summary{Column: col.Name(), Bounds: b, Rows: rows, Unique: uniq}, nil
}

// Apply summarizes and then winsorizes each named column of ds.
func (h *Handler) Apply(ds *dataset.Dataset, columns []string) ([]Summary, error) {
	out := make([]Summary, 0, len(columns))
	for _, name := range columns {
		col, err := ds.Column(name)
		if err != nil {
			return nil, fmt.Errorf("winsorize: %w", err)
		}
		s, err := h.Summarize(col)
		if err != nil {
			return nil, err
		}
		s.Changed, err = h.Winsorize(col, s.Bounds)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
