package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "timecard",
	Short: "Timecard rules engine CLI",
	Long: `timecard runs the contract rule pipeline over time cards and
inspects the derived billable and payable lines, directly against the
SQLite database the server uses.`,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "timecards.db", "SQLite database path")
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(linesCmd)
}
