package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/dataprep-cli/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile       string
	debug         bool
	verbose       bool
	flagLogFormat string
	flagSeed      int64
	flagLabel     string

	// Loaded configuration
	cfg *cfgpkg.Global
	// logger is rebuilt for every invocation from flags and config.
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "dataprep",
	Short: "dataprep: turn a raw tabular dataset into a balanced, model-ready feature matrix",
	Long: `dataprep inspects missing values, imputes them with a distribution-aware strategy,
caps outliers with IQR fences, draws a class-balanced sample with a reproducible seed and
exports the result as input/target arrays for a binary classifier.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	// Persistent global flags available to all subcommands
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.dataprep/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log each pipeline decision")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: text | json (overrides config)")
	pf.Int64Var(&flagSeed, "seed", 0, "random seed for sampling and splitting (overrides config)")
	pf.StringVar(&flagLabel, "label", "", "binary label column (overrides config)")
}

func loadConfig() {
	cfg = nil
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("seed") {
		cfg.Seed = flagSeed
	}
	if f.Changed("label") && flagLabel != "" {
		cfg.LabelColumn = flagLabel
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	logger = newLogger(os.Stderr, cfg.LogFormat)
}

// requireConfig returns the loaded configuration or the load error.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

func newLogger(w io.Writer, format string) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case debug:
		level = slog.LevelDebug
	case verbose:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
