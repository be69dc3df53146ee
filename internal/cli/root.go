package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mnemod",
	Short: "Long-term memory relevance and retention engine",
	Long:  "mnemod ranks, supersedes, and prunes an append-only stream of assistant memories, learning which ones are worth surfacing from delayed feedback.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(factCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(effectivenessCmd)
	rootCmd.AddCommand(maintainCmd)
	rootCmd.AddCommand(failuresCmd)
}
