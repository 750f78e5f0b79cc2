package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/spf13/cobra"
)

// inputFlags are the loading options shared by every command that reads a dataset.
type inputFlags struct {
	delimiter   string
	decimal     string
	maxRows     int
	sheetName   string
	sheetIndex  int
	categorical []string
}

func (in *inputFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&in.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default from extension)")
	c.Flags().StringVar(&in.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	c.Flags().IntVar(&in.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
	c.Flags().StringVar(&in.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	c.Flags().IntVar(&in.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	c.Flags().StringSliceVar(&in.categorical, "categorical", nil, "columns to keep as categorical even if numeric-looking")
}

func (in *inputFlags) load(path string) (*dataset.Dataset, error) {
	opt := dataset.DefaultLoadOptions()
	if cfg != nil {
		opt = cfg.LoadOptions()
	}
	opt.MaxRows = in.maxRows
	opt.Categorical = in.categorical
	if in.delimiter != "" {
		switch in.delimiter {
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return nil, fmt.Errorf("unsupported --delimiter: %s", in.delimiter)
		}
	}
	switch strings.ToLower(strings.TrimSpace(in.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot", "":
	default:
		return nil, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", in.decimal)
	}
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return dataset.LoadXLSX(path, in.sheetName, in.sheetIndex, opt)
	}
	return dataset.LoadCSV(path, opt)
}
