// Package cli implements the TaskEval command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskeval",
	Short: "TaskEval — AI code evaluation with paid report unlocks",
	Long: `TaskEval scores submitted code snippets with an AI reviewer and
unlocks the full report after payment. This binary runs the API server
that the web UI talks to.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
