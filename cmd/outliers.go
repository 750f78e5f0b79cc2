package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/outlier"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	outInput      inputFlags
	outColumns    []string
	outMultiplier float64
	outLower      string
	outWinsorize  bool
	outOutputPath string
)

var outliersCmd = &cobra.Command{
	Use:   "outliers <file>",
	Short: "Show IQR fences and outlier values for numeric columns, optionally winsorizing them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if outWinsorize && outOutputPath == "" {
			return fmt.Errorf("--winsorize requires --output")
		}
		ds, err := outInput.load(args[0])
		if err != nil {
			return err
		}

		opts := c.OutlierOptions()
		if cmd.Flags().Changed("multiplier") {
			opts.Multiplier = outMultiplier
		}
		if cmd.Flags().Changed("lower") {
			opts.Lower.Mode = strings.ToLower(strings.TrimSpace(outLower))
		}
		h, err := outlier.NewHandler(opts, logger)
		if err != nil {
			return err
		}

		columns := outColumns
		if len(columns) == 0 {
			columns = c.WinsorizeColumns
		}
		if len(columns) == 0 {
			for _, col := range ds.Views() {
				if col.Kind() == dataset.KindNumeric && col.Name() != c.LabelColumn {
					columns = append(columns, col.Name())
				}
			}
		}

		out := cmd.OutOrStdout()
		var sums []outlier.Summary
		if outWinsorize {
			sums, err = h.Apply(ds, columns)
			if err != nil {
				return err
			}
		} else {
			for _, name := range columns {
				col, err := ds.Column(name)
				if err != nil {
					return err
				}
				s, err := h.Summarize(col)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				sums = append(sums, s)
			}
		}

		fmt.Fprintf(out, "[OUTLIERS] %s (k=%.2g, lower=%s)\n", ds.Name(), opts.Multiplier, opts.Lower.Mode)
		for _, s := range sums {
			fmt.Fprintf(out, "- %s: bounds [%.4g, %.4g], %d flagged", s.Column, s.Bounds.Lower, s.Bounds.Upper, len(s.Rows))
			if outWinsorize {
				fmt.Fprintf(out, ", %d winsorized", s.Changed)
			}
			fmt.Fprintln(out)
			if len(s.Unique) > 0 {
				vals := make([]string, 0, len(s.Unique))
				for _, v := range s.Unique {
					vals = append(vals, fmt.Sprintf("%.4g", v))
				}
				fmt.Fprintf(out, "  • values: %s\n", strings.Join(vals, ", "))
			}
		}

		if outWinsorize {
			var buf bytes.Buffer
			if err := ds.WriteCSV(&buf); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(outOutputPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote winsorized dataset to %s\n", outOutputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outliersCmd)
	outInput.register(outliersCmd)
	outliersCmd.Flags().StringSliceVar(&outColumns, "columns", nil, "numeric columns to inspect (default: winsorize_columns, else all numeric except the label)")
	outliersCmd.Flags().Float64Var(&outMultiplier, "multiplier", 1.5, "IQR fence multiplier (overrides config)")
	outliersCmd.Flags().StringVar(&outLower, "lower", "", "lower fence policy: none | clamp (overrides config)")
	outliersCmd.Flags().BoolVar(&outWinsorize, "winsorize", false, "cap values at the fences and write the dataset to --output")
	outliersCmd.Flags().StringVarP(&outOutputPath, "output", "o", "", "path for the winsorized CSV")
}
