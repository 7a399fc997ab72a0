package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/csvrepair-cli/internal/repair"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Prompt modes for ambiguous rows.
const (
	PromptAuto   = "auto"
	PromptAlways = "always"
	PromptNever  = "never"
)

// Global configuration structure.
type Global struct {
	TextColumns     []string `mapstructure:"text_columns" yaml:"text_columns"`
	AmbiguityMargin float64  `mapstructure:"ambiguity_margin" yaml:"ambiguity_margin"`
	RelativeMargin  float64  `mapstructure:"relative_margin" yaml:"relative_margin"`
	OnError         string   `mapstructure:"on_error" yaml:"on_error"`
	Workers         int      `mapstructure:"workers" yaml:"workers"`
	// auto prompts only when stdin is a terminal
	Prompt       string `mapstructure:"prompt" yaml:"prompt"`
	MaxOptions   int    `mapstructure:"max_options" yaml:"max_options"`
	Delimiter    string `mapstructure:"delimiter" yaml:"delimiter"`
	OutputSuffix string `mapstructure:"output_suffix" yaml:"output_suffix"`
	UseProfiles  bool   `mapstructure:"use_profiles" yaml:"use_profiles"`

	// Scoring weights
	Weights repair.Weights `mapstructure:"weights" yaml:"weights"`
}

// Dir returns ~/.csvrepair.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".csvrepair"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.csvrepair/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
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
// Precedence: env > config file > defaults. Command flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CSVREPAIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("text_columns", []string{repair.DefaultTextColumn})
	v.SetDefault("ambiguity_margin", 0.5)
	v.SetDefault("relative_margin", 0.0)
	v.SetDefault("on_error", string(repair.PolicyAbort))
	v.SetDefault("workers", 4)
	v.SetDefault("prompt", PromptAuto)
	v.SetDefault("max_options", 4)
	v.SetDefault("delimiter", "")
	v.SetDefault("output_suffix", ".repaired")
	v.SetDefault("use_profiles", true)
	// Weight defaults also register the nested keys for env lookup.
	w := repair.DefaultWeights()
	v.SetDefault("weights.pieces", w.Pieces)
	v.SetDefault("weights.length", w.Length)
	v.SetDefault("weights.neighbor", w.Neighbor)
	v.SetDefault("weights.continuation", w.Continuation)
	v.SetDefault("weights.empty_piece", w.EmptyPiece)
	v.SetDefault("weights.degenerate", w.Degenerate)
	v.SetDefault("weights.profile", w.Profile)
	v.SetDefault("weights.text_deviation_scale", w.TextDeviationScale)
	v.SetDefault("weights.numeric_mismatch", w.NumericMismatch)
	v.SetDefault("weights.missing_value", w.MissingValue)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine; a malformed one is not
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks enumerated and numeric settings.
func (c *Global) Validate() error {
	if _, err := repair.ParsePolicy(c.OnError); err != nil {
		return fmt.Errorf("on_error: %w", err)
	}
	switch c.Prompt {
	case "", PromptAuto, PromptAlways, PromptNever:
	default:
		return fmt.Errorf("invalid prompt: %s (use auto, always or never)", c.Prompt)
	}
	if c.AmbiguityMargin < 0 || c.RelativeMargin < 0 {
		return fmt.Errorf("ambiguity margins must not be negative")
	}
	return nil
}
