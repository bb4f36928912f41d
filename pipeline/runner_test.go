/*
runner_test.go - End-to-end engine tests over the in-memory store

These run ApplyRules the way the server and CLI do, against the memory
store, covering both modes, rerun id stability, overlap rejection, and
run recording.
*/
package pipeline_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/pipeline"
	"github.com/crewbill/timecard-engine/segment"
	"github.com/crewbill/timecard-engine/store/memory"
)

var day = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func newEngine(store *memory.Store) *pipeline.Engine {
	n := 0
	return &pipeline.Engine{
		Cards:     store,
		Contracts: store,
		History:   store,
		Lines:     store,
		Runs:      store,
		Now:       func() time.Time { return day.Add(23 * time.Hour) },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
}

func seedCard(store *memory.Store, cardID string, spans ...[2]time.Time) {
	store.AddContract(&contract.Contract{ID: "ct-1", Name: "General Crew"})
	store.AddCard(&segment.TimeCard{
		ID:         cardID,
		WorkerID:   "w-1",
		EventID:    "ev-1",
		ContractID: "ct-1",
		Date:       day,
	})
	for i, sp := range spans {
		store.AddClockSegment(&segment.TimeSegment{
			ID:         fmt.Sprintf("%s-clock-%d", cardID, i),
			TimeCardID: cardID,
			WorkerID:   "w-1",
			Date:       day,
			In:         segment.ClockOf(sp[0]),
			Out:        segment.ClockOf(sp[1]),
			InAt:       sp[0],
			OutAt:      sp[1],
			Role:       segment.RoleClock,
		})
	}
}

func TestApplyRulesBothModes(t *testing.T) {
	// GIVEN a card with two clock segments and a pass-through contract
	store := memory.New()
	seedCard(store, "tc-1",
		[2]time.Time{day.Add(9 * time.Hour), day.Add(12 * time.Hour)},
		[2]time.Time{day.Add(13 * time.Hour), day.Add(17 * time.Hour)})
	eng := newEngine(store)

	// WHEN applying rules with no explicit modes
	res, err := eng.ApplyRules(context.Background(), []string{"tc-1"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// THEN the run succeeds and both modes persisted a line per segment
	if res.Code != pipeline.CodeOK {
		t.Fatalf("code = %d (%s)", res.Code, res.Message)
	}
	if len(res.SuccessIDs) != 1 || res.SuccessIDs[0] != "tc-1" {
		t.Fatalf("successes = %v", res.SuccessIDs)
	}

	lines, err := store.DerivedLines(context.Background(), "tc-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 4 {
		t.Fatalf("persisted %d lines, want 2 segments x 2 modes", len(lines))
	}

	byMode := map[segment.Mode]int{}
	total := decimal.Zero
	for _, l := range lines {
		byMode[l.Mode]++
		total = total.Add(l.Hours[pipeline.ColumnStandard])
	}
	if byMode[segment.ModeBill] != 2 || byMode[segment.ModePay] != 2 {
		t.Fatalf("lines per mode = %v", byMode)
	}
	if !total.Equal(decimal.NewFromInt(14)) { // 7h per mode
		t.Fatalf("total standard hours = %s, want 14", total)
	}

	// AND the card was stamped clean
	card, _ := store.Card(context.Background(), "tc-1")
	if card.LastRunAt == nil || card.LastError != "" {
		t.Fatalf("stamp = %v / %q", card.LastRunAt, card.LastError)
	}

	// AND the invocation was recorded
	runs := store.Runs()
	if len(runs) != 1 || runs[0].Succeeded != 1 || runs[0].Failed != 0 {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestApplyRulesRerunKeepsLineIDs(t *testing.T) {
	// GIVEN a card that has already been processed once
	store := memory.New()
	seedCard(store, "tc-1",
		[2]time.Time{day.Add(9 * time.Hour), day.Add(17 * time.Hour)})
	eng := newEngine(store)
	ctx := context.Background()

	if _, err := eng.ApplyRules(ctx, []string{"tc-1"}, nil); err != nil {
		t.Fatal(err)
	}
	first, _ := store.DerivedLines(ctx, "tc-1")

	// WHEN applying rules again
	if _, err := eng.ApplyRules(ctx, []string{"tc-1"}, nil); err != nil {
		t.Fatal(err)
	}
	second, _ := store.DerivedLines(ctx, "tc-1")

	// THEN the persisted ids are identical: reruns update in place
	if len(first) != len(second) {
		t.Fatalf("line count changed: %d -> %d", len(first), len(second))
	}
	ids := func(ls []pipeline.Line) []string {
		var out []string
		for _, l := range ls {
			out = append(out, l.ID)
		}
		sort.Strings(out)
		return out
	}
	f, s := ids(first), ids(second)
	for i := range f {
		if f[i] != s[i] {
			t.Fatalf("ids changed on rerun: %v -> %v", f, s)
		}
	}
}

func TestApplyRulesRejectsOverlap(t *testing.T) {
	// GIVEN a card whose clock segments overlap
	store := memory.New()
	seedCard(store, "tc-1",
		[2]time.Time{day.Add(9 * time.Hour), day.Add(12 * time.Hour)},
		[2]time.Time{day.Add(11 * time.Hour), day.Add(14 * time.Hour)})
	eng := newEngine(store)
	ctx := context.Background()

	// WHEN applying rules
	res, err := eng.ApplyRules(ctx, []string{"tc-1"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// THEN the card fails without persisting anything
	if res.Code != pipeline.CodeFailed {
		t.Fatalf("code = %d, want failed", res.Code)
	}
	msg, ok := res.Failures["tc-1"]
	if !ok || !strings.Contains(msg, "overlap") {
		t.Fatalf("failure message = %q", msg)
	}

	lines, _ := store.DerivedLines(ctx, "tc-1")
	if len(lines) != 0 {
		t.Fatalf("persisted %d lines after a failed card", len(lines))
	}

	// AND the error was stamped on the card
	card, _ := store.Card(ctx, "tc-1")
	if card.LastError == "" {
		t.Fatal("failure must be stamped")
	}
}

func TestApplyRulesEmptyCardIsSuccess(t *testing.T) {
	// A card with no clock segments is "nothing to do", not a failure.
	store := memory.New()
	seedCard(store, "tc-empty")
	eng := newEngine(store)

	res, err := eng.ApplyRules(context.Background(), []string{"tc-empty"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Code != pipeline.CodeOK || len(res.SuccessIDs) != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestApplyRulesFailureIsolatedPerCard(t *testing.T) {
	// GIVEN one good card and one overlapping card
	store := memory.New()
	seedCard(store, "tc-good",
		[2]time.Time{day.Add(9 * time.Hour), day.Add(17 * time.Hour)})
	store.AddCard(&segment.TimeCard{
		ID: "tc-bad", WorkerID: "w-2", ContractID: "ct-1", Date: day,
	})
	for i, sp := range [][2]time.Time{
		{day.Add(9 * time.Hour), day.Add(12 * time.Hour)},
		{day.Add(10 * time.Hour), day.Add(13 * time.Hour)},
	} {
		store.AddClockSegment(&segment.TimeSegment{
			ID: fmt.Sprintf("bad-clock-%d", i), TimeCardID: "tc-bad",
			WorkerID: "w-2", Date: day,
			InAt: sp[0], OutAt: sp[1],
			In:   segment.ClockOf(sp[0]), Out: segment.ClockOf(sp[1]),
			Role: segment.RoleClock,
		})
	}
	eng := newEngine(store)
	ctx := context.Background()

	// WHEN applying both
	res, err := eng.ApplyRules(ctx, []string{"tc-good", "tc-bad"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// THEN the good card's lines persisted despite the other's failure
	if res.Code != pipeline.CodeFailed {
		t.Fatalf("code = %d", res.Code)
	}
	if len(res.SuccessIDs) != 1 || res.SuccessIDs[0] != "tc-good" {
		t.Fatalf("successes = %v", res.SuccessIDs)
	}
	good, _ := store.DerivedLines(ctx, "tc-good")
	if len(good) != 2 {
		t.Fatalf("good card persisted %d lines, want 2", len(good))
	}
	if res.Message != "1 of 2 time cards failed" {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestApplyRulesUnknownCard(t *testing.T) {
	store := memory.New()
	eng := newEngine(store)

	res, err := eng.ApplyRules(context.Background(), []string{"ghost"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Code != pipeline.CodeFailed {
		t.Fatalf("code = %d, want failed", res.Code)
	}
	if msg := res.Failures["ghost"]; !strings.Contains(msg, "not found") {
		t.Fatalf("failure message = %q", msg)
	}
}

func TestApplyRulesSingleMode(t *testing.T) {
	store := memory.New()
	seedCard(store, "tc-1",
		[2]time.Time{day.Add(9 * time.Hour), day.Add(17 * time.Hour)})
	eng := newEngine(store)
	ctx := context.Background()

	if _, err := eng.ApplyRules(ctx, []string{"tc-1"}, []segment.Mode{segment.ModeBill}); err != nil {
		t.Fatal(err)
	}
	lines, _ := store.DerivedLines(ctx, "tc-1")
	if len(lines) != 1 || lines[0].Mode != segment.ModeBill {
		t.Fatalf("lines = %+v", lines)
	}
}

func TestApplyRulesFullContract(t *testing.T) {
	// GIVEN a contract exercising minimum call, meal adjustment, night
	// rate, and daily overtime together: a span from 15:00 to 02:00 with
	// an unpaid meal gap
	store := memory.New()
	store.AddContract(&contract.Contract{
		ID:               "ct-full",
		Name:             "Stage Crew",
		MinimumCallFirst: decimal.NewFromInt(4),
		MealBreakMin:     30 * time.Minute,
		MealBreakMax:     2 * time.Hour,
		NightStart:       segment.NewClockTime(20, 0),
		NightEnd:         segment.NewClockTime(6, 0),
		NightMultiplier:  decimal.RequireFromString("1.5"),
		DailyOT1Hours:    decimal.NewFromInt(8),
		DailyOT2Hours:    decimal.NewFromInt(12),
		StartOfWeek:      time.Monday,
	})
	store.AddCard(&segment.TimeCard{
		ID: "tc-full", WorkerID: "w-1", ContractID: "ct-full", Date: day,
	})
	for i, sp := range [][2]time.Time{
		{day.Add(15 * time.Hour), day.Add(20 * time.Hour)},
		{day.Add(21 * time.Hour), day.Add(26 * time.Hour)}, // crosses midnight
	} {
		store.AddClockSegment(&segment.TimeSegment{
			ID: fmt.Sprintf("full-clock-%d", i), TimeCardID: "tc-full",
			WorkerID: "w-1", Date: day,
			InAt: sp[0], OutAt: sp[1],
			In:   segment.ClockOf(sp[0]), Out: segment.ClockOf(sp[1]),
			Role: segment.RoleClock,
		})
	}
	eng := newEngine(store)
	ctx := context.Background()

	// WHEN applying the bill side
	res, err := eng.ApplyRules(ctx, []string{"tc-full"}, []segment.Mode{segment.ModeBill})
	if err != nil {
		t.Fatal(err)
	}
	if res.Code != pipeline.CodeOK {
		t.Fatalf("code = %d (%v)", res.Code, res.Failures)
	}

	// THEN the ten worked hours are preserved across however many pieces
	// the splitters produced, and the premium columns are populated
	lines, _ := store.DerivedLines(ctx, "tc-full")
	total := decimal.Zero
	var nightHours, otHours decimal.Decimal
	for _, l := range lines {
		for col, h := range l.Hours {
			total = total.Add(h)
			switch pipeline.Column(col) {
			case pipeline.ColumnNight:
				nightHours = nightHours.Add(h)
			case pipeline.ColumnOvertime, pipeline.ColumnDouble:
				otHours = otHours.Add(h)
			}
		}
	}
	if !total.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("total hours = %s, want 10", total)
	}
	if nightHours.IsZero() {
		t.Fatal("expected hours in the night column")
	}
	if otHours.IsZero() {
		t.Fatal("expected hours in the overtime columns")
	}

	// AND every line belongs to the card and carries clock provenance
	for _, l := range lines {
		if l.TimeCardID != "tc-full" || l.SourceSegmentID == "" {
			t.Fatalf("line %+v missing identity", l)
		}
	}
}
