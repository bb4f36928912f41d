/*
pipeline_test.go - Shared test harness for the stage tests

The stage tests construct Executions directly, with a counting id
generator so inserted pieces get predictable ids. baseDay is a Monday so
week arithmetic in the weekly overtime tests reads naturally.
*/
package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/segment"
)

// baseDay is Monday, 2026-03-02.
var baseDay = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// tod anchors a wall-clock time on baseDay; hours past 24 roll into the
// following days.
func tod(hour, minute int) time.Time {
	return baseDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func newExec(c *contract.Contract, rules contract.RuleSet, segs ...*segment.TimeSegment) *Execution {
	n := 0
	ex := &Execution{
		Card: &segment.TimeCard{
			ID:         "tc-1",
			WorkerID:   "w-1",
			ContractID: "ct-1",
			Date:       baseDay,
		},
		Contract: c,
		Rules:    rules.ForMode(segment.ModeBill),
		Mode:     segment.ModeBill,
		Work:     segment.NewSequence(segs...),
		Unworked: segment.NewSequence(),
		NewID: func() string {
			n++
			return fmt.Sprintf("fresh-%d", n)
		},
	}
	ex.Strategy = contract.SelectMealPenalty(c, ex.Rules)
	return ex
}

// billable builds a derived working segment spanning [from, to).
func billable(from, to time.Time) *segment.TimeSegment {
	return &segment.TimeSegment{
		ID:              "seg-" + from.Format("02T15:04"),
		TimeCardID:      "tc-1",
		WorkerID:        "w-1",
		Date:            segment.Day(from),
		In:              segment.ClockOf(from),
		Out:             segment.ClockOf(to),
		InAt:            from,
		OutAt:           to,
		Role:            segment.RoleBillable,
		Mode:            segment.ModeBill,
		SourceSegmentID: "clock-" + from.Format("02T15:04"),
	}
}

func unpaidMeal(from, to time.Time) *segment.TimeSegment {
	s := billable(from, to)
	s.Flags.UnpaidMeal = true
	return s
}

// history builds a persisted prior-day segment for seeding tests.
func historySeg(from, to time.Time) *segment.TimeSegment {
	s := billable(from, to)
	s.ID = "hist-" + from.Format("02T15:04")
	return s
}

func totalHours(seq *segment.Sequence) decimal.Decimal {
	total := decimal.Zero
	for _, s := range seq.Segments() {
		total = total.Add(s.Hours())
	}
	return total
}

func wantHours(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", what, got, want)
	}
}

func wantLen(t *testing.T, what string, seq *segment.Sequence, want int) {
	t.Helper()
	if seq.Len() != want {
		t.Fatalf("%s length = %d, want %d", what, seq.Len(), want)
	}
}

func wantSpan(t *testing.T, seg *segment.TimeSegment, from, to time.Time) {
	t.Helper()
	if !seg.InAt.Equal(from) || !seg.OutAt.Equal(to) {
		t.Fatalf("span = [%v, %v], want [%v, %v]", seg.InAt, seg.OutAt, from, to)
	}
}
