package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Self-healing task runner with specialist workers",
	Long: `Relay executes free-text tasks with a team of specialist workers.

A task is decomposed into atomic steps. Each step is routed to the
specialist best suited for it (researcher, engineer, or writer),
executed, and evaluated before the run moves on. Failed steps are
retried, shrunk, handed to a substitute worker, skipped, or aborted
based on a structured critique of what went wrong.

Outcomes feed a confidence-weighted memory, so future runs start from
past experience instead of a blank slate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(versionCmd)
}
