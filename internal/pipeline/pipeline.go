// Package pipeline runs the preparation stages in their required order:
// diagnose, impute, optionally winsorize, balance, convert.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/KaramelBytes/dataprep-cli/internal/convert"
	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/diagnostics"
	"github.com/KaramelBytes/dataprep-cli/internal/impute"
	"github.com/KaramelBytes/dataprep-cli/internal/outlier"
	"github.com/KaramelBytes/dataprep-cli/internal/sampling"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
)

// ErrStageOrder is returned when a stage runs before its prerequisite or
// after a stage that closes it.
var ErrStageOrder = errors.New("pipeline stage out of order")

// Stage identifies how far a pipeline has progressed.
type Stage int

const (
	StageLoaded Stage = iota
	StageDiagnosed
	StageImputed
	StageWinsorized
	StageBalanced
	StageConverted
)

func (s Stage) String() string {
	switch s {
	case StageLoaded:
		return "loaded"
	case StageDiagnosed:
		return "diagnosed"
	case StageImputed:
		return "imputed"
	case StageWinsorized:
		return "winsorized"
	case StageBalanced:
		return "balanced"
	case StageConverted:
		return "converted"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// stage -> {prerequisite, first stage that closes it}
var stageRules = map[Stage][2]Stage{
	StageDiagnosed:  {StageLoaded, StageConverted + 1},
	StageImputed:    {StageDiagnosed, StageBalanced},
	StageWinsorized: {StageImputed, StageBalanced},
	StageBalanced:   {StageImputed, StageConverted},
	StageConverted:  {StageBalanced, StageConverted + 1},
}

// Options configure a full run.
type Options struct {
	Impute  impute.Options
	Outlier outlier.Options

	// LabelColumn is the single binary target; it is moved after every
	// input column before conversion.
	LabelColumn string `validate:"required"`
	Seed        int64

	// DropColumns are removed before diagnosis, e.g. a timestamp.
	DropColumns    []string
	DropDuplicates bool
	// DropRemovalCandidates removes columns the imputation stage refused to fill.
	DropRemovalCandidates bool
	// WinsorizeColumns selects the numeric columns capped at their IQR fences.
	WinsorizeColumns []string

	// Scale divides inputs by their column max after conversion.
	Scale bool
	// TrainRatio splits the converted matrix when in (0, 1); 0 disables splitting.
	TrainRatio  float64 `validate:"gte=0,lt=1"`
	PreviewRows int     `validate:"gte=0"`
}

// DefaultOptions mirrors the card-fraud preparation flow.
func DefaultOptions() Options {
	o := outlier.DefaultOptions()
	o.Lower = outlier.LowerPolicy{Mode: outlier.LowerClamp, Min: 0}
	return Options{
		Impute:         impute.DefaultOptions(),
		Outlier:        o,
		LabelColumn:    "Class",
		Seed:           1,
		DropDuplicates: true,
		TrainRatio:     0.6,
		PreviewRows:    5,
	}
}

// Pipeline owns the working dataset and records every stage's outcome.
type Pipeline struct {
	opts    Options
	logger  *slog.Logger
	stage   Stage
	imputer *impute.Engine
	fences  *outlier.Handler

	source string
	ds     *dataset.Dataset

	RowsIn            int
	Dropped           []string
	DuplicatesRemoved int
	Reports           []diagnostics.ColumnReport
	Imputation        *impute.Result
	Outliers          []outlier.Summary
	ClassCounts       sampling.ClassCounts
	Sample            *sampling.Sample
	Matrix            *convert.FeatureMatrix
	ScaleFactors      []float64
	Train, Test       *convert.FeatureMatrix
}

// New validates opts and prepares ds: configured columns are dropped and,
// if enabled, exact duplicate rows removed. ds itself is not modified.
func New(ds *dataset.Dataset, opts Options, logger *slog.Logger) (*Pipeline, error) {
	if err := utils.ValidateStruct(opts); err != nil {
		return nil, fmt.Errorf("pipeline options: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	imp, err := impute.NewEngine(opts.Impute, logger)
	if err != nil {
		return nil, err
	}
	fences, err := outlier.NewHandler(opts.Outlier, logger)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		opts:    opts,
		logger:  logger,
		imputer: imp,
		fences:  fences,
		source:  ds.Name(),
		RowsIn:  ds.Rows(),
	}

	var drop []string
	for _, name := range opts.DropColumns {
		if ds.Has(name) {
			drop = append(drop, name)
		} else {
			logger.Warn("drop column not found, ignoring", "column", name)
		}
	}
	work, err := ds.Drop(drop...)
	if err != nil {
		return nil, err
	}
	p.Dropped = drop
	if opts.DropDuplicates {
		work, p.DuplicatesRemoved = work.DropDuplicateRows()
		if p.DuplicatesRemoved > 0 {
			logger.Info("removed duplicate rows", "count", p.DuplicatesRemoved)
		}
	}
	p.ds = work
	return p, nil
}

// Stage returns the last completed stage.
func (p *Pipeline) Stage() Stage { return p.stage }

// Dataset returns the working dataset.
func (p *Pipeline) Dataset() *dataset.Dataset { return p.ds }

// Source is the name of the input dataset.
func (p *Pipeline) Source() string { return p.source }

func (p *Pipeline) enter(s Stage) error {
	rule := stageRules[s]
	if p.stage < rule[0] {
		return fmt.Errorf("%w: %s requires %s, pipeline is %s", ErrStageOrder, s, rule[0], p.stage)
	}
	if p.stage >= rule[1] {
		return fmt.Errorf("%w: %s not allowed once %s", ErrStageOrder, s, rule[1])
	}
	return nil
}

func (p *Pipeline) done(s Stage) {
	if s > p.stage {
		p.stage = s
	}
}

// Diagnose scans missingness.
func (p *Pipeline) Diagnose() ([]diagnostics.ColumnReport, error) {
	if err := p.enter(StageDiagnosed); err != nil {
		return nil, err
	}
	p.Reports = diagnostics.Scan(p.ds)
	for _, r := range diagnostics.Flagged(p.Reports) {
		p.logger.Debug("missing values", "column", r.Name, "missing", r.MissingCount,
			"missing_percent", r.MissingPercent, "band", string(r.Band))
	}
	p.done(StageDiagnosed)
	return p.Reports, nil
}

// Impute fills missing cells in place and, when configured, drops the
// removal candidates it reports.
func (p *Pipeline) Impute() (*impute.Result, error) {
	if err := p.enter(StageImputed); err != nil {
		return nil, err
	}
	res, err := p.imputer.Impute(p.ds, p.Reports)
	if err != nil {
		return nil, err
	}
	p.Imputation = res
	if p.opts.DropRemovalCandidates && len(res.RemovalCandidates) > 0 {
		cands := slices.DeleteFunc(slices.Clone(res.RemovalCandidates), func(n string) bool {
			return n == p.opts.LabelColumn
		})
		work, err := p.ds.Drop(cands...)
		if err != nil {
			return nil, err
		}
		p.ds = work
		p.Dropped = append(p.Dropped, cands...)
		p.logger.Info("dropped removal candidates", "columns", cands)
	}
	p.done(StageImputed)
	return res, nil
}

// Winsorize caps the configured columns in place.
func (p *Pipeline) Winsorize() ([]outlier.Summary, error) {
	if err := p.enter(StageWinsorized); err != nil {
		return nil, err
	}
	sums, err := p.fences.Apply(p.ds, p.opts.WinsorizeColumns)
	if err != nil {
		return nil, err
	}
	p.Outliers = sums
	p.done(StageWinsorized)
	return sums, nil
}

// Balance draws the class-balanced sample.
func (p *Pipeline) Balance() (*sampling.Sample, error) {
	if err := p.enter(StageBalanced); err != nil {
		return nil, err
	}
	counts, err := sampling.Counts(p.ds, p.opts.LabelColumn)
	if err != nil {
		return nil, err
	}
	p.ClassCounts = counts
	s, err := sampling.Balance(p.ds, p.opts.LabelColumn, p.opts.Seed)
	if err != nil {
		return nil, err
	}
	p.Sample = s
	p.logger.Info("balanced sample", "positive", counts.Positive, "negative", counts.Negative,
		"rows", s.Dataset.Rows(), "seed", p.opts.Seed)
	p.done(StageBalanced)
	return s, nil
}

// Convert moves the label to the end, builds the feature matrix and applies
// the optional scaling and split.
func (p *Pipeline) Convert() (*convert.FeatureMatrix, error) {
	if err := p.enter(StageConverted); err != nil {
		return nil, err
	}
	src := p.Sample.Dataset
	order := make([]string, 0, src.NumCols())
	for _, n := range src.Names() {
		if n != p.opts.LabelColumn {
			order = append(order, n)
		}
	}
	order = append(order, p.opts.LabelColumn)
	ordered, err := src.Select(order...)
	if err != nil {
		return nil, err
	}
	fm, err := convert.ToFeatureMatrix(ordered, ordered.NumCols()-1, 1)
	if err != nil {
		return nil, err
	}
	if p.opts.Scale {
		p.ScaleFactors = convert.ScaleToMax(fm)
	}
	p.Matrix = fm
	if p.opts.TrainRatio > 0 {
		p.Train, p.Test, err = convert.Split(fm, p.opts.TrainRatio, p.opts.Seed)
		if err != nil {
			return nil, err
		}
	}
	p.done(StageConverted)
	return fm, nil
}

// Run executes every stage in order. Winsorization runs only when columns
// are configured.
func (p *Pipeline) Run() error {
	if _, err := p.Diagnose(); err != nil {
		return err
	}
	if _, err := p.Impute(); err != nil {
		return err
	}
	if len(p.opts.WinsorizeColumns) > 0 {
		if _, err := p.Winsorize(); err != nil {
			return err
		}
	}
	if _, err := p.Balance(); err != nil {
		return err
	}
	_, err := p.Convert()
	return err
}
