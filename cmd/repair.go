package cmd

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/csvrepair-cli/internal/repair"
	"github.com/KaramelBytes/csvrepair-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	repFlags       repairFlags
	repOutputPath  string
	repChoices     string
	repSaveChoices string
	repReport      string
	repRejects     string
)

var repairCmd = &cobra.Command{
	Use:   "repair <file>",
	Short: "Repair rows whose free-text columns contain unquoted commas",
	Long: `Repair reads a CSV file, merges overflow fields back into the configured
text columns and writes a file where every row has exactly as many fields as
the header. Rows that are too close to call are offered at the terminal, or
replayed from a --choices file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		opts, err := buildOptions(cmd, &repFlags, c)
		if err != nil {
			return err
		}
		delim, err := resolveDelimiter(repFlags.delimiter, c.Delimiter, input)
		if err != nil {
			return err
		}
		mode, err := promptMode(cmd, &repFlags, c)
		if err != nil {
			return err
		}
		maxOptions := c.MaxOptions
		if cmd.Flags().Changed("max-options") {
			maxOptions = repFlags.maxOptions
		}
		rec, err := buildChooser(repChoices, newPrompt(mode, maxOptions, cmd.InOrStdin(), cmd.OutOrStdout()))
		if err != nil {
			return err
		}

		job := repairJob{
			Input:       input,
			Output:      repOutputPath,
			Rejects:     repRejects,
			Report:      repReport,
			SaveChoices: repSaveChoices,
			Delimiter:   delim,
		}
		if job.Output == "" {
			job.Output = utils.SiblingPath(input, "", c.OutputSuffix)
		}
		rep, err := runRepairJob(cmd.Context(), job, opts, rec)
		if err != nil {
			var rowErr repair.RowError
			if errors.As(err, &rowErr) {
				return fmt.Errorf("%w (use --on-error collect to skip such rows)", err)
			}
			return err
		}
		printOutcome(cmd.OutOrStdout(), rep)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
	repFlags.bindRun(repairCmd)
	repairCmd.Flags().StringVarP(&repOutputPath, "output", "o", "", "path for the repaired file (default <name><output_suffix><ext> next to the input)")
	repairCmd.Flags().StringVar(&repChoices, "choices", "", "YAML file of recorded decisions for ambiguous rows")
	repairCmd.Flags().StringVar(&repSaveChoices, "save-choices", "", "write the decisions made in this run to a YAML file")
	repairCmd.Flags().StringVar(&repReport, "report", "", "write a run report (.json, or .yaml/.yml)")
	repairCmd.Flags().StringVar(&repRejects, "rejects", "", "with --on-error collect, write the raw rows that were not repaired")
}
