package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadOptions controls how raw text cells become typed columns.
type LoadOptions struct {
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// MissingTokens are cell texts read as missing (compared after trimming).
	MissingTokens []string
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
	// DecimalSeparator for numeric cells; 0 means '.'.
	DecimalSeparator rune
	// Categorical forces the named columns to categorical even if every cell parses as a number.
	Categorical []string
}

// DefaultMissingTokens are the cell texts treated as missing by default.
var DefaultMissingTokens = []string{"NaN", "", " ", "-", "nan", "NULL"}

// DefaultLoadOptions returns reasonable defaults for loading a dataset.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{MissingTokens: append([]string(nil), DefaultMissingTokens...)}
}

// LoadCSV reads a delimited text file with a header row into a Dataset.
func LoadCSV(path string, opt LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ReadCSV(f, filepath.Base(path), delim, opt)
}

// ReadCSV reads delimited text with a header row from r.
func ReadCSV(r io.Reader, name string, delim rune, opt LoadOptions) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(name)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	var records [][]string
	for len(records) < maxRows {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return FromRecords(name, header, records, opt)
}

// FromRecords types raw text records into columns. A column is numeric when
// every non-missing cell parses as a number; otherwise it is categorical.
// Short records are padded with missing cells.
func FromRecords(name string, header []string, records [][]string, opt LoadOptions) (*Dataset, error) {
	missing := make(map[string]struct{}, len(opt.MissingTokens))
	for _, t := range opt.MissingTokens {
		missing[strings.TrimSpace(t)] = struct{}{}
	}
	forced := make(map[string]bool, len(opt.Categorical))
	for _, n := range opt.Categorical {
		forced[strings.TrimSpace(n)] = true
	}

	ncol := len(header)
	cols := make([]Column, 0, ncol)
	for j := 0; j < ncol; j++ {
		colName := strings.TrimSpace(header[j])
		if colName == "" {
			colName = fmt.Sprintf("column_%d", j+1)
		}
		texts := make([]string, len(records))
		mask := make([]bool, len(records))
		for i, rec := range records {
			if j >= len(rec) {
				mask[i] = true
				continue
			}
			v := strings.TrimSpace(rec[j])
			if _, ok := missing[v]; ok {
				mask[i] = true
				continue
			}
			texts[i] = v
		}

		if !forced[colName] {
			if nums, ok := parseColumn(texts, mask, opt.DecimalSeparator); ok {
				cols = append(cols, NewNumeric(colName, nums))
				continue
			}
		}
		c, err := NewCategorical(colName, texts, mask)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	d, err := New(name, cols...)
	if err != nil {
		return nil, err
	}
	if ncol == 0 {
		d.rows = len(records)
	}
	return d, nil
}

// parseColumn returns the column as float64 with NaN for missing cells, or
// false if any present cell is not numeric. All-missing columns count as numeric.
func parseColumn(texts []string, mask []bool, dec rune) ([]float64, bool) {
	out := make([]float64, len(texts))
	for i, s := range texts {
		if mask[i] {
			out[i] = math.NaN()
			continue
		}
		x, ok := parseNumeric(s, dec)
		if !ok {
			return nil, false
		}
		out[i] = x
	}
	return out, true
}

func parseNumeric(s string, dec rune) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	if dec != 0 && dec != '.' {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// WriteCSV writes d with a header row. Missing cells are written empty.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(d.cols))
	for r := 0; r < d.rows; r++ {
		for i, c := range d.cols {
			rec[i] = c.Cell(r)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
