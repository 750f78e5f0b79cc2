package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/impute"
	"github.com/KaramelBytes/dataprep-cli/internal/outlier"
	"github.com/KaramelBytes/dataprep-cli/internal/pipeline"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
)

const dirName = ".dataprep"

// Global configuration structure.
type Global struct {
	// Statistics
	KSAlpha       float64 `mapstructure:"ks_alpha" yaml:"ks_alpha" validate:"gt=0,lt=1"`
	IQRMultiplier float64 `mapstructure:"iqr_multiplier" yaml:"iqr_multiplier" validate:"gt=0"`
	LowerClamp    string  `mapstructure:"lower_clamp" yaml:"lower_clamp" validate:"oneof=none clamp"`
	LowerClampMin float64 `mapstructure:"lower_clamp_min" yaml:"lower_clamp_min"`

	// Sampling and conversion
	Seed        int64   `mapstructure:"seed" yaml:"seed"`
	LabelColumn string  `mapstructure:"label_column" yaml:"label_column" validate:"required"`
	TrainRatio  float64 `mapstructure:"train_ratio" yaml:"train_ratio" validate:"gte=0,lt=1"`
	ScaleToMax  bool    `mapstructure:"scale_to_max" yaml:"scale_to_max"`

	// Cleaning
	DropColumns      []string `mapstructure:"drop_columns" yaml:"drop_columns"`
	DropDuplicates   bool     `mapstructure:"drop_duplicates" yaml:"drop_duplicates"`
	DropCandidates   bool     `mapstructure:"drop_candidates" yaml:"drop_candidates"`
	WinsorizeColumns []string `mapstructure:"winsorize_columns" yaml:"winsorize_columns"`
	MissingTokens    []string `mapstructure:"missing_tokens" yaml:"missing_tokens"`

	// Output
	RunsDir   string `mapstructure:"runs_dir" yaml:"runs_dir"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"ks_alpha", "iqr_multiplier", "lower_clamp", "lower_clamp_min",
	"seed", "label_column", "train_ratio", "scale_to_max",
	"drop_columns", "drop_duplicates", "drop_candidates", "winsorize_columns", "missing_tokens",
	"runs_dir", "log_format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ks_alpha", 0.05)
	v.SetDefault("iqr_multiplier", 1.5)
	v.SetDefault("lower_clamp", outlier.LowerClamp)
	v.SetDefault("lower_clamp_min", 0.0)
	v.SetDefault("seed", 1)
	v.SetDefault("label_column", "Class")
	v.SetDefault("train_ratio", 0.6)
	v.SetDefault("scale_to_max", true)
	v.SetDefault("drop_columns", []string{})
	v.SetDefault("drop_duplicates", true)
	v.SetDefault("drop_candidates", false)
	v.SetDefault("winsorize_columns", []string{})
	v.SetDefault("missing_tokens", dataset.DefaultMissingTokens)
	v.SetDefault("log_format", "text")
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dataprep/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATAPREP")
	v.AutomaticEnv()
	setDefaults(v)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a present but malformed file is an error
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve runs_dir default: ~/.dataprep/runs
	if c.RunsDir == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		c.RunsDir = filepath.Join(dir, "runs")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges.
func (c *Global) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Set parses val for key and validates the result. The receiver is left
// unchanged on error.
func (c *Global) Set(key, val string) error {
	next := *c
	switch key {
	case "ks_alpha", "iqr_multiplier", "lower_clamp_min", "train_ratio":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		switch key {
		case "ks_alpha":
			next.KSAlpha = f
		case "iqr_multiplier":
			next.IQRMultiplier = f
		case "lower_clamp_min":
			next.LowerClampMin = f
		case "train_ratio":
			next.TrainRatio = f
		}
	case "seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %v", val)
		}
		next.Seed = i
	case "scale_to_max", "drop_duplicates", "drop_candidates":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		switch key {
		case "scale_to_max":
			next.ScaleToMax = b
		case "drop_duplicates":
			next.DropDuplicates = b
		case "drop_candidates":
			next.DropCandidates = b
		}
	case "lower_clamp":
		next.LowerClamp = strings.ToLower(strings.TrimSpace(val))
	case "label_column":
		next.LabelColumn = strings.TrimSpace(val)
	case "log_format":
		next.LogFormat = strings.ToLower(strings.TrimSpace(val))
	case "runs_dir":
		next.RunsDir = val
	case "drop_columns":
		next.DropColumns = splitList(val)
	case "winsorize_columns":
		next.WinsorizeColumns = splitList(val)
	case "missing_tokens":
		next.MissingTokens = strings.Split(val, ",")
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadOptions returns dataset load options using the configured missing tokens.
func (c *Global) LoadOptions() dataset.LoadOptions {
	opt := dataset.DefaultLoadOptions()
	if len(c.MissingTokens) > 0 {
		opt.MissingTokens = append([]string(nil), c.MissingTokens...)
	}
	return opt
}

// OutlierOptions returns the fence settings.
func (c *Global) OutlierOptions() outlier.Options {
	return outlier.Options{
		Multiplier: c.IQRMultiplier,
		Lower:      outlier.LowerPolicy{Mode: c.LowerClamp, Min: c.LowerClampMin},
	}
}

// PipelineOptions maps the configuration onto a pipeline run.
func (c *Global) PipelineOptions() pipeline.Options {
	o := pipeline.DefaultOptions()
	o.Impute = impute.Options{Alpha: c.KSAlpha}
	o.Outlier = c.OutlierOptions()
	o.LabelColumn = c.LabelColumn
	o.Seed = c.Seed
	o.DropColumns = append([]string(nil), c.DropColumns...)
	o.DropDuplicates = c.DropDuplicates
	o.DropRemovalCandidates = c.DropCandidates
	o.WinsorizeColumns = append([]string(nil), c.WinsorizeColumns...)
	o.Scale = c.ScaleToMax
	o.TrainRatio = c.TrainRatio
	return o
}
