package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/csvrepair-cli/internal/csvio"
	"github.com/KaramelBytes/csvrepair-cli/internal/repair"
	"github.com/KaramelBytes/csvrepair-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	insFlags      repairFlags
	insOutputPath string
	insLimit      int
	insJSON       bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show how each overflow row would be repaired, without writing or prompting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		opts, err := buildOptions(cmd, &insFlags, c)
		if err != nil {
			return err
		}
		delim, err := resolveDelimiter(insFlags.delimiter, c.Delimiter, path)
		if err != nil {
			return err
		}
		table, err := csvio.ReadFile(path, delim)
		if err != nil {
			return err
		}
		if table.Empty() {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠ %s is empty\n", path)
			return nil
		}
		ins, err := repair.Inspect(table.Header, table.Rows, opts, insLimit)
		if err != nil {
			return err
		}
		ins.Name = filepath.Base(path)

		var body []byte
		if insJSON {
			body, err = utils.PrettyJSON(ins)
			if err != nil {
				return err
			}
		} else {
			body = []byte(ins.Text())
		}
		if insOutputPath != "" {
			if err := utils.SafeWriteFile(insOutputPath, body); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote inspection to %s\n", insOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	insFlags.bindScoring(inspectCmd)
	inspectCmd.Flags().StringVarP(&insOutputPath, "output", "o", "", "optional path to write the inspection")
	inspectCmd.Flags().IntVar(&insLimit, "limit", 50, "maximum overflow rows to list (0 = all)")
	inspectCmd.Flags().BoolVar(&insJSON, "json", false, "emit JSON instead of text")
}
