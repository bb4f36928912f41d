package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/crewbill/timecard-engine/pipeline"
	"github.com/crewbill/timecard-engine/segment"
	"github.com/crewbill/timecard-engine/store/sqlite"
)

var applyModes []string

var applyCmd = &cobra.Command{
	Use:   "apply <time-card-id>...",
	Short: "Run the rule pipeline over time cards",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().StringSliceVar(&applyModes, "mode", nil, "Modes to run: bill, pay (default both)")
}

func runApply(cmd *cobra.Command, args []string) error {
	store, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	modes, err := parseModes(applyModes)
	if err != nil {
		return err
	}

	engine := &pipeline.Engine{
		Cards:     store,
		Contracts: store,
		History:   store,
		Lines:     store,
		Runs:      store,
	}

	res, err := engine.ApplyRules(context.Background(), args, modes)
	if err != nil {
		return err
	}

	fmt.Println(res.Message)
	for _, id := range res.SuccessIDs {
		fmt.Printf("  ok      %s\n", id)
	}
	failed := make([]string, 0, len(res.Failures))
	for id := range res.Failures {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		fmt.Fprintf(os.Stderr, "  failed  %s: %s\n", id, res.Failures[id])
	}

	if res.Code != pipeline.CodeOK {
		os.Exit(res.Code)
	}
	return nil
}

func parseModes(raw []string) ([]segment.Mode, error) {
	var modes []segment.Mode
	for _, m := range raw {
		switch m {
		case "bill":
			modes = append(modes, segment.ModeBill)
		case "pay":
			modes = append(modes, segment.ModePay)
		default:
			return nil, fmt.Errorf("unknown mode %q (want bill or pay)", m)
		}
	}
	return modes, nil
}
