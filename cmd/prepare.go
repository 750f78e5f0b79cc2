package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/dataprep-cli/internal/convert"
	"github.com/KaramelBytes/dataprep-cli/internal/pipeline"
	"github.com/KaramelBytes/dataprep-cli/internal/runlog"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	prepInput          inputFlags
	prepDrop           []string
	prepWinsorize      []string
	prepDropCandidates bool
	prepKeepDuplicates bool
	prepNoScale        bool
	prepTrainRatio     float64
	prepOut            string
	prepTrainOut       string
	prepTestOut        string
	prepManifest       string
	prepReport         string
	prepNoRecord       bool
	prepQuiet          bool
)

var prepareCmd = &cobra.Command{
	Use:   "prepare <file>",
	Short: "Run the full pipeline: diagnose, impute, winsorize, balance and convert",
	Long: `prepare runs every stage on a single dataset and writes the resulting feature matrix.

Outputs are chosen by extension: .csv (default) or .jsonl. With a train ratio above
zero the matrix is also split; use --train-out/--test-out to write the two halves.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		opts := c.PipelineOptions()
		f := cmd.Flags()
		if f.Changed("drop") {
			opts.DropColumns = prepDrop
		}
		if f.Changed("winsorize") {
			opts.WinsorizeColumns = prepWinsorize
		}
		if f.Changed("drop-candidates") {
			opts.DropRemovalCandidates = prepDropCandidates
		}
		if prepKeepDuplicates {
			opts.DropDuplicates = false
		}
		if prepNoScale {
			opts.Scale = false
		}
		if f.Changed("train-ratio") {
			opts.TrainRatio = prepTrainRatio
		}
		if (prepTrainOut != "" || prepTestOut != "") && opts.TrainRatio == 0 {
			return fmt.Errorf("--train-out/--test-out need a train ratio above 0")
		}

		path := args[0]
		var run *runlog.Run
		if !prepNoRecord {
			run = runlog.New(c.RunsDir, "prepare", path)
			run.Settings = map[string]any{
				"ks_alpha":       opts.Impute.Alpha,
				"iqr_multiplier": opts.Outlier.Multiplier,
				"lower_clamp":    opts.Outlier.Lower.Mode,
				"label_column":   opts.LabelColumn,
				"seed":           opts.Seed,
				"train_ratio":    opts.TrainRatio,
				"scale_to_max":   opts.Scale,
			}
			flags := map[string]string{}
			f.Visit(func(fl *pflag.Flag) {
				flags[fl.Name] = fl.Value.String()
			})
			if len(flags) > 0 {
				run.Settings["flags"] = flags
			}
		}

		p, outputs, err := runPrepare(cmd, path, opts)
		if run != nil {
			var sum *pipeline.Summary
			if p != nil {
				s := p.Summary()
				sum = &s
			}
			run.Outputs = outputs
			run.Finish(sum, err)
			if serr := run.Save(); serr != nil {
				logger.Warn("could not record run", "error", serr)
			} else if !prepQuiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Recorded run %s\n", run.ID)
			}
		}
		return err
	},
}

// runPrepare executes the pipeline and writes the requested outputs. The
// pipeline is returned even on failure so the caller can record how far it got.
func runPrepare(cmd *cobra.Command, path string, opts pipeline.Options) (*pipeline.Pipeline, []string, error) {
	out := cmd.OutOrStdout()
	ds, err := prepInput.load(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := pipeline.New(ds, opts, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Run(); err != nil {
		return p, nil, err
	}

	var written []string
	write := func(dest string, fm *convert.FeatureMatrix, what string) error {
		if dest == "" || fm == nil {
			return nil
		}
		if err := convert.WriteFile(dest, fm); err != nil {
			return fmt.Errorf("write %s: %w", what, err)
		}
		written = append(written, dest)
		if !prepQuiet {
			fmt.Fprintf(out, "✓ Wrote %s (%d rows) to %s\n", what, fm.Len(), dest)
		}
		return nil
	}
	if err := write(prepOut, p.Matrix, "feature matrix"); err != nil {
		return p, written, err
	}
	if err := write(prepTrainOut, p.Train, "training set"); err != nil {
		return p, written, err
	}
	if err := write(prepTestOut, p.Test, "test set"); err != nil {
		return p, written, err
	}

	sum := p.Summary()
	if prepManifest != "" {
		b, err := sum.YAML()
		if err != nil {
			return p, written, err
		}
		if err := utils.SafeWriteFile(prepManifest, b); err != nil {
			return p, written, fmt.Errorf("write manifest: %w", err)
		}
		written = append(written, prepManifest)
		if !prepQuiet {
			fmt.Fprintf(out, "✓ Wrote manifest to %s\n", prepManifest)
		}
	}
	md := sum.Markdown()
	if prepReport != "" {
		if err := utils.SafeWriteFile(prepReport, []byte(md)); err != nil {
			return p, written, fmt.Errorf("write report: %w", err)
		}
		written = append(written, prepReport)
		if !prepQuiet {
			fmt.Fprintf(out, "✓ Wrote report to %s\n", prepReport)
		}
	} else if !prepQuiet {
		fmt.Fprintln(out, md)
	}
	if len(written) == 0 && !prepQuiet {
		fmt.Fprintf(out, "⚠ Warning: no --out given; %s was processed but nothing was written\n", filepath.Base(path))
	}
	return p, written, nil
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepInput.register(prepareCmd)
	f := prepareCmd.Flags()
	f.StringSliceVar(&prepDrop, "drop", nil, "columns to drop before diagnosis (overrides config)")
	f.StringSliceVar(&prepWinsorize, "winsorize", nil, "numeric columns to cap at their IQR fences (overrides config)")
	f.BoolVar(&prepDropCandidates, "drop-candidates", false, "drop columns with too many missing values to impute")
	f.BoolVar(&prepKeepDuplicates, "keep-duplicates", false, "keep exact duplicate rows")
	f.BoolVar(&prepNoScale, "no-scale", false, "do not divide inputs by their column maximum")
	f.Float64Var(&prepTrainRatio, "train-ratio", 0.6, "share of rows in the training split; 0 disables (overrides config)")
	f.StringVarP(&prepOut, "out", "o", "", "write the feature matrix (.csv or .jsonl)")
	f.StringVar(&prepTrainOut, "train-out", "", "write the training split")
	f.StringVar(&prepTestOut, "test-out", "", "write the test split")
	f.StringVar(&prepManifest, "manifest", "", "write the run summary as YAML")
	f.StringVar(&prepReport, "report", "", "write the Markdown report instead of printing it")
	f.BoolVar(&prepNoRecord, "no-record", false, "do not save a run record")
	f.BoolVar(&prepQuiet, "quiet", false, "suppress the report and progress output")
}
