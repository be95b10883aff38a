package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	format string
	quiet  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flagcore",
	Short: "Inspect and evaluate feature-flag snapshot files",
	Long: `flagcore is a read-only tool for working with namespace snapshot files.

It decodes snapshots with a schema inferred from the payload's own value
tags, so it can lint and inspect any well-formed snapshot without the
owning application's compiled schema.

Examples:
  flagcore lint snapshot.json
  flagcore inspect snapshot.json --format table
  flagcore bucket --salt v1 --feature app::darkMode --id user-42
  flagcore eval snapshot.json --feature app::darkMode --id user-42 --platform IOS`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
}
