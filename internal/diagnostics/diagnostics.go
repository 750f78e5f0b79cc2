// Package diagnostics measures per-column missingness and classifies it into bands.
package diagnostics

import (
	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

// Band classifies a column by its missing percentage.
type Band string

const (
	BandNone     Band = "none"
	BandLow      Band = "low"
	BandModerate Band = "moderate"
	BandHigh     Band = "high"
)

// Band thresholds in percent. Both bounds of the moderate band are inclusive.
const (
	ModerateFrom = 25.0
	HighAbove    = 40.0
)

// ColumnReport summarizes one column.
type ColumnReport struct {
	Name           string       `json:"name" yaml:"name"`
	Kind           dataset.Kind `json:"-" yaml:"-"`
	KindName       string       `json:"kind" yaml:"kind"`
	Rows           int          `json:"rows" yaml:"rows"`
	MissingCount   int          `json:"missing_count" yaml:"missing_count"`
	MissingPercent float64      `json:"missing_percent" yaml:"missing_percent"`
	Band           Band         `json:"band" yaml:"band"`
	Unique         int          `json:"unique" yaml:"unique"`
}

// Classify maps a missing count and percentage to a band.
func Classify(missing int, pct float64) Band {
	switch {
	case missing == 0:
		return BandNone
	case pct < ModerateFrom:
		return BandLow
	case pct <= HighAbove:
		return BandModerate
	default:
		return BandHigh
	}
}

// Recommendation is the advice printed next to a band.
func (r ColumnReport) Recommendation() string {
	switch r.Band {
	case BandNone:
		return "no action needed"
	case BandLow:
		return "impute missing values"
	case BandModerate:
		return "impute, then check the column still carries signal"
	case BandHigh:
		return "consider removing the column"
	default:
		return ""
	}
}

// Scan reports every column in dataset order. It does not modify ds.
func Scan(ds *dataset.Dataset) []ColumnReport {
	cols := ds.Views()
	out := make([]ColumnReport, 0, len(cols))
	for _, c := range cols {
		out = append(out, Report(c))
	}
	return out
}

// ScanMap is Scan keyed by column name.
func ScanMap(ds *dataset.Dataset) map[string]ColumnReport {
	reps := Scan(ds)
	m := make(map[string]ColumnReport, len(reps))
	for _, r := range reps {
		m[r.Name] = r
	}
	return m
}

// Report builds the report for a single column.
func Report(c dataset.View) ColumnReport {
	rows := c.Len()
	missing := c.MissingCount()
	pct := 0.0
	if rows > 0 {
		pct = 100 * float64(missing) / float64(rows)
	}
	return ColumnReport{
		Name:           c.Name(),
		Kind:           c.Kind(),
		KindName:       c.Kind().String(),
		Rows:           rows,
		MissingCount:   missing,
		MissingPercent: pct,
		Band:           Classify(missing, pct),
		Unique:         c.Unique(),
	}
}

// Flagged returns the reports with any missing values.
func Flagged(reports []ColumnReport) []ColumnReport {
	var out []ColumnReport
	for _, r := range reports {
		if r.MissingCount > 0 {
			out = append(out, r)
		}
	}
	return out
}
