package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run \"<query>\"",
	Short: "Run the lead pipeline for a single query",
	Long:  `Runs the full pipeline for a free-form query such as "dentists in denver" and prints the run stats as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := args[0]

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Agent.Run(ctx, query); err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		stats := env.Agent.Stats()
		zap.L().Info("run complete",
			zap.String("query", query),
			zap.Int("leads_written", stats.LeadsWritten),
			zap.Int("skipped_duplicates", stats.SkippedDuplicates),
			zap.Int("errors", stats.Errors),
		)

		return printJSON(stats)
	},
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
