// Package impute fills missing cells. Categorical columns take the mode;
// numeric columns take the mean when a normality test cannot reject normality
// and the median otherwise. Columns missing more than 40% are left alone and
// reported as removal candidates.
package impute

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/diagnostics"
	"github.com/KaramelBytes/dataprep-cli/internal/stats"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
)

// Kind names the strategy chosen for a column.
type Kind string

const (
	KindNone   Kind = "none"
	KindMean   Kind = "mean"
	KindMedian Kind = "median"
	KindMode   Kind = "mode"
	KindSkip   Kind = "skip"
)

// Decision records what happened to one column.
type Decision struct {
	Column string `json:"column" yaml:"column"`
	Kind   Kind   `json:"decision" yaml:"decision"`
	// Value is the numeric fill for mean and median.
	Value float64 `json:"value,omitempty" yaml:"value,omitempty"`
	// Category is the fill for mode.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	// Tested is set when a normality test ran; PValue is meaningful only then.
	Tested bool    `json:"tested" yaml:"tested"`
	PValue float64 `json:"p_value,omitempty" yaml:"p_value,omitempty"`
	Filled int     `json:"filled" yaml:"filled"`
	Reason string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (d Decision) String() string {
	switch d.Kind {
	case KindMean, KindMedian:
		return fmt.Sprintf("%s(%g)", d.Kind, d.Value)
	case KindMode:
		return fmt.Sprintf("%s(%q)", d.Kind, d.Category)
	case KindSkip:
		return fmt.Sprintf("skip(%s)", d.Reason)
	default:
		return string(d.Kind)
	}
}

// Result lists decisions in column order.
type Result struct {
	Decisions []Decision `json:"decisions" yaml:"decisions"`
	// RemovalCandidates are high-missingness columns that were not imputed.
	// Nothing is dropped; callers decide.
	RemovalCandidates []string `json:"removal_candidates" yaml:"removal_candidates"`
}

// Decision looks up the decision for a column.
func (r *Result) Decision(column string) (Decision, bool) {
	for _, d := range r.Decisions {
		if d.Column == column {
			return d, true
		}
	}
	return Decision{}, false
}

// Filled returns the total number of cells written.
func (r *Result) Filled() int {
	n := 0
	for _, d := range r.Decisions {
		n += d.Filled
	}
	return n
}

// Options tune the engine.
type Options struct {
	// Alpha is the significance level of the normality test.
	Alpha float64 `validate:"gt=0,lt=1"`
}

// DefaultOptions returns alpha 0.05.
func DefaultOptions() Options { return Options{Alpha: 0.05} }

// Engine applies imputation decisions to a dataset in place.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// NewEngine validates opts. If logger is nil, slog.Default() is used.
func NewEngine(opts Options, logger *slog.Logger) (*Engine, error) {
	if err := utils.ValidateStruct(opts); err != nil {
		return nil, fmt.Errorf("impute options: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{opts: opts, logger: logger}, nil
}

// Impute fills missing cells of ds using reports from diagnostics.Scan. When
// reports is nil the dataset is scanned first. Only columns with missing
// values are touched; running Impute again on the result changes nothing.
func (e *Engine) Impute(ds *dataset.Dataset, reports []diagnostics.ColumnReport) (*Result, error) {
	if reports == nil {
		reports = diagnostics.Scan(ds)
	}
	res := &Result{Decisions: make([]Decision, 0, len(reports)), RemovalCandidates: []string{}}
	for _, rep := range reports {
		col, err := ds.Column(rep.Name)
		if err != nil {
			return nil, fmt.Errorf("impute: %w", err)
		}
		var d Decision
		switch {
		case col.MissingCount() == 0:
			d = Decision{Column: rep.Name, Kind: KindNone}
		case rep.Band == diagnostics.BandHigh:
			d = Decision{Column: rep.Name, Kind: KindSkip, Reason: fmt.Sprintf("%.1f%% missing", rep.MissingPercent)}
			res.RemovalCandidates = append(res.RemovalCandidates, rep.Name)
			e.logger.Warn("column exceeds missingness threshold, not imputed",
				"column", rep.Name, "missing_percent", rep.MissingPercent)
		default:
			d, err = e.fill(col)
			if err != nil {
				return nil, err
			}
		}
		if d.Kind != KindNone && d.Kind != KindSkip {
			e.logger.Info("imputed column", "column", d.Column, "decision", string(d.Kind),
				"tested", d.Tested, "p_value", d.PValue, "filled", d.Filled)
		}
		res.Decisions = append(res.Decisions, d)
	}
	return res, nil
}

func (e *Engine) fill(col dataset.Column) (Decision, error) {
	switch c := col.(type) {
	case *dataset.Numeric:
		return e.fillNumeric(c)
	case *dataset.Categorical:
		return fillCategorical(c)
	default:
		return Decision{}, fmt.Errorf("impute %q: unknown column type %T", col.Name(), col)
	}
}

// DecideNumeric chooses the fill for a set of present values without
// touching any column.
func (e *Engine) DecideNumeric(present []float64) (Decision, error) {
	switch len(present) {
	case 0:
		return Decision{Kind: KindSkip, Reason: "no values to impute from"}, nil
	case 1:
		return Decision{Kind: KindMean, Value: present[0], Reason: "single value, no test"}, nil
	}
	ks, err := stats.KSNormal(present)
	if errors.Is(err, stats.ErrZeroVariance) {
		return Decision{Kind: KindMean, Value: ks.Mean, Reason: "constant values, no test"}, nil
	}
	if err != nil {
		return Decision{}, err
	}
	e.logger.Debug("normality test", "n", ks.N, "mean", ks.Mean, "std", ks.StdDev, "d", ks.D, "p_value", ks.PValue)
	if ks.Normal(e.opts.Alpha) {
		return Decision{Kind: KindMean, Value: ks.Mean, Tested: true, PValue: ks.PValue}, nil
	}
	med, err := stats.Median(present)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Kind: KindMedian, Value: med, Tested: true, PValue: ks.PValue}, nil
}

func (e *Engine) fillNumeric(c *dataset.Numeric) (Decision, error) {
	d, err := e.DecideNumeric(c.Present())
	if err != nil {
		return Decision{}, fmt.Errorf("impute %q: %w", c.Name(), err)
	}
	d.Column = c.Name()
	if d.Kind == KindSkip {
		e.logger.Warn("column has no values, left missing", "column", c.Name())
		return d, nil
	}
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			c.Set(i, d.Value)
			d.Filled++
		}
	}
	return d, nil
}

func fillCategorical(c *dataset.Categorical) (Decision, error) {
	present := c.Present()
	if len(present) == 0 {
		return Decision{Column: c.Name(), Kind: KindSkip, Reason: "no values to impute from"}, nil
	}
	mode, err := stats.Mode(present)
	if err != nil {
		return Decision{}, fmt.Errorf("impute %q: %w", c.Name(), err)
	}
	d := Decision{Column: c.Name(), Kind: KindMode, Category: mode}
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			c.Set(i, mode)
			d.Filled++
		}
	}
	return d, nil
}
