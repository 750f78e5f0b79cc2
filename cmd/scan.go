package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/dataprep-cli/internal/pipeline"
	"github.com/KaramelBytes/dataprep-cli/internal/sampling"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	scanInput  inputFlags
	scanOutDir string
	scanQuiet  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <files...>",
	Short: "Report missing values and class balance for one or more CSV/TSV/XLSX files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		files, err := utils.ExpandInputs(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		opts := c.PipelineOptions()

		total := len(files)
		for i, path := range files {
			if !scanQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			ds, err := scanInput.load(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			p, err := pipeline.New(ds, opts, logger)
			if err != nil {
				return err
			}
			if _, err := p.Diagnose(); err != nil {
				return err
			}
			md := p.Summary().Markdown()
			if p.Dataset().Has(opts.LabelColumn) {
				cc, err := sampling.Counts(p.Dataset(), opts.LabelColumn)
				if err != nil {
					fmt.Fprintf(out, "⚠ Warning: %s: %v\n", filepath.Base(path), err)
				} else {
					md += fmt.Sprintf("\n[CLASS BALANCE]\n- positive: %d (%.2f%%)\n- negative: %d\n",
						cc.Positive, 100*cc.PositiveShare(), cc.Negative)
				}
			}

			if scanOutDir != "" {
				base := filepath.Base(path)
				safe := strings.TrimSuffix(base, filepath.Ext(base))
				outFile := filepath.Join(scanOutDir, safe+".summary.md")
				if err := utils.SafeWriteFile(outFile, []byte(md)); err != nil {
					return fmt.Errorf("write summary: %w", err)
				}
				if !scanQuiet {
					fmt.Fprintf(out, "✓ Wrote %s\n", outFile)
				}
				continue
			}
			fmt.Fprintln(out, md)
		}
		if !scanQuiet && total > 1 {
			fmt.Fprintf(out, "✓ Scanned %d files\n", total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanInput.register(scanCmd)
	scanCmd.Flags().StringVarP(&scanOutDir, "output-dir", "o", "", "write one <name>.summary.md per input instead of printing")
	scanCmd.Flags().BoolVar(&scanQuiet, "quiet", false, "suppress progress output")
}
