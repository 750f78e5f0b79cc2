package pipeline

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/dataprep-cli/internal/diagnostics"
	"github.com/KaramelBytes/dataprep-cli/internal/impute"
	"github.com/KaramelBytes/dataprep-cli/internal/outlier"
	"github.com/KaramelBytes/dataprep-cli/internal/sampling"
)

// Summary is the serializable outcome of a run.
type Summary struct {
	Source            string                     `json:"source" yaml:"source"`
	Stage             string                     `json:"stage" yaml:"stage"`
	RowsIn            int                        `json:"rows_in" yaml:"rows_in"`
	RowsOut           int                        `json:"rows_out" yaml:"rows_out"`
	Columns           []string                   `json:"columns" yaml:"columns"`
	Dropped           []string                   `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	DuplicatesRemoved int                        `json:"duplicates_removed" yaml:"duplicates_removed"`
	Reports           []diagnostics.ColumnReport `json:"columns_report" yaml:"columns_report"`
	Decisions         []impute.Decision          `json:"decisions,omitempty" yaml:"decisions,omitempty"`
	RemovalCandidates []string                   `json:"removal_candidates,omitempty" yaml:"removal_candidates,omitempty"`
	Outliers          []outlier.Summary          `json:"outliers,omitempty" yaml:"outliers,omitempty"`
	ClassCounts       *sampling.ClassCounts      `json:"class_counts,omitempty" yaml:"class_counts,omitempty"`
	BalancedRows      int                        `json:"balanced_rows,omitempty" yaml:"balanced_rows,omitempty"`
	Seed              int64                      `json:"seed" yaml:"seed"`
	Inputs            int                        `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs           int                        `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	TrainRows         int                        `json:"train_rows,omitempty" yaml:"train_rows,omitempty"`
	TestRows          int                        `json:"test_rows,omitempty" yaml:"test_rows,omitempty"`
	Preview           [][]string                 `json:"-" yaml:"-"`
}

// Summary snapshots the pipeline state.
func (p *Pipeline) Summary() Summary {
	s := Summary{
		Source:            p.source,
		Stage:             p.stage.String(),
		RowsIn:            p.RowsIn,
		RowsOut:           p.ds.Rows(),
		Columns:           p.ds.Names(),
		Dropped:           p.Dropped,
		DuplicatesRemoved: p.DuplicatesRemoved,
		Reports:           p.Reports,
		Outliers:          p.Outliers,
		Seed:              p.opts.Seed,
		Preview:           p.ds.Head(p.opts.PreviewRows),
	}
	if p.Imputation != nil {
		s.Decisions = p.Imputation.Decisions
		s.RemovalCandidates = p.Imputation.RemovalCandidates
	}
	if p.Sample != nil {
		cc := p.ClassCounts
		s.ClassCounts = &cc
		s.BalancedRows = p.Sample.Dataset.Rows()
	}
	if p.Matrix != nil {
		s.Inputs = p.Matrix.NumInputs
		s.Outputs = p.Matrix.NumOutputs
	}
	if p.Train != nil {
		s.TrainRows = p.Train.Len()
		s.TestRows = p.Test.Len()
	}
	return s
}

// YAML renders the summary as a YAML manifest.
func (s Summary) YAML() ([]byte, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return b, nil
}

// Markdown renders a compact report.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Source))
	}
	if s.RowsOut != s.RowsIn {
		b.WriteString(fmt.Sprintf("Rows: %d (from %d)\n", s.RowsOut, s.RowsIn))
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", s.RowsIn))
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(s.Columns)))
	if len(s.Dropped) > 0 {
		b.WriteString(fmt.Sprintf("Dropped columns: %s\n", strings.Join(s.Dropped, ", ")))
	}
	if s.DuplicatesRemoved > 0 {
		b.WriteString(fmt.Sprintf("Duplicate rows removed: %d\n", s.DuplicatesRemoved))
	}
	b.WriteString(fmt.Sprintf("Stage: %s\n\n", s.Stage))

	if len(s.Reports) > 0 {
		b.WriteString("[MISSING VALUES]\n")
		flagged := diagnostics.Flagged(s.Reports)
		if len(flagged) == 0 {
			b.WriteString("- none\n")
		}
		for _, r := range flagged {
			b.WriteString(fmt.Sprintf("- %s: %s, missing %d (%.1f%%), band %s; %s\n",
				safeName(r.Name), r.KindName, r.MissingCount, r.MissingPercent, r.Band, r.Recommendation()))
		}
	}

	var acted []impute.Decision
	for _, d := range s.Decisions {
		if d.Kind != impute.KindNone {
			acted = append(acted, d)
		}
	}
	if len(acted) > 0 {
		b.WriteString("\n[IMPUTATION]\n")
		for _, d := range acted {
			b.WriteString(fmt.Sprintf("- %s: %s", safeName(d.Column), d))
			if d.Tested {
				b.WriteString(fmt.Sprintf(" (KS p=%.4g)", d.PValue))
			}
			if d.Filled > 0 {
				b.WriteString(fmt.Sprintf(", filled %d", d.Filled))
			}
			b.WriteString("\n")
		}
	}
	if len(s.RemovalCandidates) > 0 {
		b.WriteString("\n[REMOVAL CANDIDATES]\n")
		for _, c := range s.RemovalCandidates {
			b.WriteString(fmt.Sprintf("- %s\n", safeName(c)))
		}
	}

	if len(s.Outliers) > 0 {
		b.WriteString("\n[OUTLIERS]\n")
		for _, o := range s.Outliers {
			b.WriteString(fmt.Sprintf("- %s: Q1 %.4g, Q3 %.4g, IQR %.4g, bounds [%.4g, %.4g]; %d flagged, %d winsorized\n",
				safeName(o.Column), o.Bounds.Q1, o.Bounds.Q3, o.Bounds.IQR, o.Bounds.Lower, o.Bounds.Upper, len(o.Rows), o.Changed))
			if len(o.Unique) > 0 {
				lim := len(o.Unique)
				if lim > 10 {
					lim = 10
				}
				vals := make([]string, lim)
				for i := 0; i < lim; i++ {
					vals[i] = fmt.Sprintf("%.4g", o.Unique[i])
				}
				b.WriteString(fmt.Sprintf("  • values: %s", strings.Join(vals, ", ")))
				if len(o.Unique) > lim {
					b.WriteString(fmt.Sprintf(" (+%d more)", len(o.Unique)-lim))
				}
				b.WriteString("\n")
			}
		}
	}

	if s.ClassCounts != nil {
		b.WriteString("\n[CLASS BALANCE]\n")
		b.WriteString(fmt.Sprintf("- positive: %d (%.2f%%)\n", s.ClassCounts.Positive, 100*s.ClassCounts.PositiveShare()))
		b.WriteString(fmt.Sprintf("- negative: %d\n", s.ClassCounts.Negative))
		b.WriteString(fmt.Sprintf("- balanced sample: %d rows (seed %d)\n", s.BalancedRows, s.Seed))
	}
	if s.Inputs > 0 {
		b.WriteString("\n[FEATURE MATRIX]\n")
		b.WriteString(fmt.Sprintf("- inputs: %d, outputs: %d\n", s.Inputs, s.Outputs))
		if s.TrainRows+s.TestRows > 0 {
			b.WriteString(fmt.Sprintf("- train: %d, test: %d\n", s.TrainRows, s.TestRows))
		}
	}

	if len(s.Preview) > 0 {
		b.WriteString("\n[HEAD ROWS]\n")
		writeRow(&b, s.Columns, safeName)
		sep := make([]string, len(s.Columns))
		for i := range sep {
			sep[i] = "---"
		}
		writeRow(&b, sep, nil)
		for _, row := range s.Preview {
			writeRow(&b, row, safeVal)
		}
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string, clean func(string) string) {
	b.WriteString("| ")
	for i, c := range cells {
		if i > 0 {
			b.WriteString(" | ")
		}
		if clean != nil {
			c = clean(c)
		}
		if len(c) > 80 {
			c = c[:77] + "..."
		}
		b.WriteString(c)
	}
	b.WriteString(" |\n")
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
