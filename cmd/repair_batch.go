package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/csvrepair-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	rbFlags     repairFlags
	rbOutDir    string
	rbReportDir string
	rbChoices   string
	rbQuiet     bool
)

var repairBatchCmd = &cobra.Command{
	Use:   "repair-batch <files...>",
	Short: "Repair multiple CSV/TSV files with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		opts, err := buildOptions(cmd, &rbFlags, c)
		if err != nil {
			return err
		}
		mode, err := promptMode(cmd, &rbFlags, c)
		if err != nil {
			return err
		}
		maxOptions := c.MaxOptions
		if cmd.Flags().Changed("max-options") {
			maxOptions = rbFlags.maxOptions
		}
		if rbOutDir != "" {
			if err := utils.EnsureDir(rbOutDir); err != nil {
				return err
			}
		}
		if rbReportDir != "" {
			if err := utils.EnsureDir(rbReportDir); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		prompt := newPrompt(mode, maxOptions, cmd.InOrStdin(), out)
		total := len(files)
		for i, path := range files {
			if !rbQuiet {
				fmt.Fprintf(out, "[%d/%d] Repairing %s...\n", i+1, total, filepath.Base(path))
			}
			delim, err := resolveDelimiter(rbFlags.delimiter, c.Delimiter, path)
			if err != nil {
				return err
			}
			// decisions are keyed by line, so they only apply per file
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			choices := ""
			if rbChoices != "" {
				choices = filepath.Join(rbChoices, stem+".choices.yaml")
				if _, statErr := os.Stat(choices); statErr != nil {
					choices = ""
				}
			}
			rec, err := buildChooser(choices, prompt)
			if err != nil {
				return err
			}

			job := repairJob{Input: path, Delimiter: delim}
			target := utils.SiblingPath(path, rbOutDir, c.OutputSuffix)
			job.Output = utils.UniquePath(target)
			if job.Output != target && !rbQuiet {
				fmt.Fprintf(out, "⚠ Detected existing output, writing to %s to avoid overwrite.\n", filepath.Base(job.Output))
			}
			if rbReportDir != "" {
				job.Report = utils.UniquePath(filepath.Join(rbReportDir, stem+".report.json"))
			}

			rep, err := runRepairJob(cmd.Context(), job, opts, rec)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if !rbQuiet {
				printOutcome(out, rep)
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist and drops
// duplicates. The result is sorted.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(repairBatchCmd)
	rbFlags.bindRun(repairBatchCmd)
	repairBatchCmd.Flags().StringVar(&rbOutDir, "out-dir", "", "directory for repaired files (default: next to each input)")
	repairBatchCmd.Flags().StringVar(&rbReportDir, "report-dir", "", "directory for per-file JSON run reports")
	repairBatchCmd.Flags().StringVar(&rbChoices, "choices-dir", "", "directory of <name>.choices.yaml decision files")
	repairBatchCmd.Flags().BoolVar(&rbQuiet, "quiet", false, "suppress progress and non-essential output")
}
