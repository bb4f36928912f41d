package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewbill/timecard-engine/pipeline"
	"github.com/crewbill/timecard-engine/store/sqlite"
)

var linesMode string

var linesCmd = &cobra.Command{
	Use:   "lines <time-card-id>",
	Short: "Show a card's persisted derived lines",
	Args:  cobra.ExactArgs(1),
	RunE:  runLines,
}

func init() {
	linesCmd.Flags().StringVar(&linesMode, "mode", "", "Filter by mode: bill or pay")
}

func runLines(cmd *cobra.Command, args []string) error {
	store, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	lines, err := store.DerivedLines(context.Background(), args[0])
	if err != nil {
		return err
	}

	if linesMode != "" {
		modes, err := parseModes([]string{linesMode})
		if err != nil {
			return err
		}
		var filtered []pipeline.Line
		for _, l := range lines {
			if l.Mode == modes[0] {
				filtered = append(filtered, l)
			}
		}
		lines = filtered
	}

	fmt.Printf("%-4s %-8s %-8s %-8s %-10s %-10s %-10s %-10s %-10s %-10s  %s\n",
		"mode", "role", "in", "out", "std", "ot", "dbl", "night", "meal", "drive", "note")
	for _, l := range lines {
		fmt.Printf("%-4s %-8s %-8s %-8s %-10s %-10s %-10s %-10s %-10s %-10s  %s\n",
			l.Mode, l.Role, l.In, l.Out,
			l.Hours[pipeline.ColumnStandard],
			l.Hours[pipeline.ColumnOvertime],
			l.Hours[pipeline.ColumnDouble],
			l.Hours[pipeline.ColumnNight],
			l.Hours[pipeline.ColumnMealPenalty],
			l.Hours[pipeline.ColumnDrive],
			l.Note)
	}
	return nil
}
