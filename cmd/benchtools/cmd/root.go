// Package cmd provides the command-line interface for benchtools.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "benchtools",
	Short: "Benchtools CLI can inspect and summarize recorded profiling " +
		"traces.",
	Long: `Benchtools CLI can inspect and summarize recorded profiling ` +
		`traces. It reads the SQLite databases and JSON documents produced ` +
		`by the profiling package.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; environment variables win.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
