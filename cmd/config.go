package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/csvrepair-cli/internal/config"
	"github.com/KaramelBytes/csvrepair-cli/internal/csvio"
	"github.com/KaramelBytes/csvrepair-cli/internal/repair"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set csvrepair configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "text_columns: %s\n", strings.Join(cfg.TextColumns, ","))
		fmt.Fprintf(out, "ambiguity_margin: %.3f\n", cfg.AmbiguityMargin)
		if cfg.RelativeMargin > 0 {
			fmt.Fprintf(out, "relative_margin: %.3f\n", cfg.RelativeMargin)
		}
		fmt.Fprintf(out, "on_error: %s\n", cfg.OnError)
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(out, "prompt: %s\n", cfg.Prompt)
		fmt.Fprintf(out, "max_options: %d\n", cfg.MaxOptions)
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		fmt.Fprintf(out, "output_suffix: %s\n", cfg.OutputSuffix)
		fmt.Fprintf(out, "use_profiles: %t\n", cfg.UseProfiles)
		for _, kv := range weightFields(&cfg.Weights) {
			fmt.Fprintf(out, "weights.%s: %.3f\n", kv.key, *kv.val)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		switch key {
		case "text_columns":
			var cols []string
			for _, s := range strings.Split(val, ",") {
				if s = strings.TrimSpace(s); s != "" {
					cols = append(cols, s)
				}
			}
			if len(cols) == 0 {
				return fmt.Errorf("text_columns needs at least one column name")
			}
			c.TextColumns = cols
		case "ambiguity_margin", "relative_margin":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid float for %s: %v", key, val)
			}
			if key == "ambiguity_margin" {
				c.AmbiguityMargin = f
			} else {
				c.RelativeMargin = f
			}
		case "on_error":
			p, err := repair.ParsePolicy(val)
			if err != nil {
				return err
			}
			c.OnError = string(p)
		case "workers", "max_options":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for %s: %v", key, val)
			}
			if key == "workers" {
				c.Workers = i
			} else {
				c.MaxOptions = i
			}
		case "prompt":
			switch val {
			case cfgpkg.PromptAuto, cfgpkg.PromptAlways, cfgpkg.PromptNever:
				c.Prompt = val
			default:
				return fmt.Errorf("invalid prompt: %s (use auto, always or never)", val)
			}
		case "delimiter":
			if _, err := csvio.ParseDelimiter(val); err != nil {
				return err
			}
			c.Delimiter = val
		case "output_suffix":
			if val == "" {
				return fmt.Errorf("output_suffix must not be empty")
			}
			c.OutputSuffix = val
		case "use_profiles":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for use_profiles: %w", err)
			}
			c.UseProfiles = b
		default:
			w, ok := strings.CutPrefix(key, "weights.")
			if !ok {
				return fmt.Errorf("unknown key: %s", key)
			}
			var target *float64
			for _, kv := range weightFields(&c.Weights) {
				if kv.key == w {
					target = kv.val
				}
			}
			if target == nil {
				return fmt.Errorf("unknown key: %s", key)
			}
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for %s: %w", key, err)
			}
			*target = f
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

type weightField struct {
	key string
	val *float64
}

func weightFields(w *repair.Weights) []weightField {
	return []weightField{
		{"pieces", &w.Pieces},
		{"length", &w.Length},
		{"neighbor", &w.Neighbor},
		{"continuation", &w.Continuation},
		{"empty_piece", &w.EmptyPiece},
		{"degenerate", &w.Degenerate},
		{"profile", &w.Profile},
		{"text_deviation_scale", &w.TextDeviationScale},
		{"numeric_mismatch", &w.NumericMismatch},
		{"missing_value", &w.MissingValue},
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
