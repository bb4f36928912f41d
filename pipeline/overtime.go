/*
overtime.go - Daily overtime splitter and weekly overtime accumulator

PURPOSE:
  Daily overtime walks the card's sequence accumulating worked hours and
  splits any segment that crosses a tier threshold (tier 1, then tier 2 -
  a segment straddling both is split twice). Weekly overtime seeds its
  counter from the hours the worker's earlier cards in the same calendar
  week already persisted, then flags (splitting at the exact crossing)
  once the weekly threshold is exceeded. Segments already flagged by
  daily overtime are never double-flagged weekly, though their hours
  still advance the weekly counter.

  Splits derive wall clocks from absolute instants, never the reverse, so
  a split inside an after-midnight piece gains a day exactly when the
  instant does and not unconditionally.
*/
package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// DAILY OVERTIME
// =============================================================================

type dailyOvertimeStage struct{}

func (dailyOvertimeStage) Name() string { return "daily overtime" }

func (s dailyOvertimeStage) Run(ex *Execution) error {
	c := ex.Contract
	tier1, tier2 := c.DailyOT1Hours, c.DailyOT2Hours
	if !tier1.GreaterThan(decimal.Zero) && !tier2.GreaterThan(decimal.Zero) {
		return nil
	}

	cum := decimal.Zero
	seq := ex.Work
	for i := 0; i < seq.Len(); i++ {
		seg := seq.At(i)
		if seg.Flags.UnpaidMeal || seg.Flags.Flat {
			continue
		}
		if seg.Flags.MinimumCall && !c.MinimumsInOvertime {
			continue
		}

		end := cum.Add(seg.Hours())

		var boundary decimal.Decimal
		split := false
		switch {
		case tier1.GreaterThan(decimal.Zero) && cum.LessThan(tier1) && end.GreaterThan(tier1):
			boundary, split = tier1, true
		case tier2.GreaterThan(decimal.Zero) && cum.LessThan(tier2) && end.GreaterThan(tier2):
			boundary, split = tier2, true
		}
		if split {
			at := seg.InAt.Add(segment.DurationOf(boundary.Sub(cum)))
			splitAtInstant(seq, i, at, ex.NewID)
			// seg is the head piece; the tail may straddle tier 2 and is
			// split again when its own iteration comes around.
			end = boundary
		}

		switch {
		case tier2.GreaterThan(decimal.Zero) && cum.GreaterThanOrEqual(tier2):
			seg.Flags.OvertimeDaily2 = true
		case tier1.GreaterThan(decimal.Zero) && cum.GreaterThanOrEqual(tier1):
			seg.Flags.OvertimeDaily1 = true
		}
		cum = end
	}
	return nil
}

// =============================================================================
// WEEKLY OVERTIME
// =============================================================================

type weeklyOvertimeStage struct{}

func (weeklyOvertimeStage) Name() string { return "weekly overtime" }

func (s weeklyOvertimeStage) Run(ex *Execution) error {
	c := ex.Contract
	threshold := c.WeeklyOTHours
	if !threshold.GreaterThan(decimal.Zero) {
		return nil
	}

	weekStart := segment.StartOfWeek(ex.Card.Date, c.StartOfWeek)
	cum := s.priorWeekHours(ex, weekStart)

	seq := ex.Work
	for i := 0; i < seq.Len(); i++ {
		seg := seq.At(i)
		if seg.Flags.UnpaidMeal || seg.Flags.Flat {
			continue
		}
		if seg.Flags.MinimumCall && !c.MinimumsInOvertime {
			continue
		}

		end := cum.Add(seg.Hours())

		// Daily-overtime pieces advance the counter but are never also
		// flagged weekly.
		if seg.Flags.OvertimeDaily1 || seg.Flags.OvertimeDaily2 {
			cum = end
			continue
		}

		if cum.GreaterThanOrEqual(threshold) {
			if !seg.Flags.Ignore.Overtime {
				seg.Flags.OvertimeWeekly = true
			}
			cum = end
			continue
		}

		if end.GreaterThan(threshold) {
			at := seg.InAt.Add(segment.DurationOf(threshold.Sub(cum)))
			splitAtInstant(seq, i, at, ex.NewID)
			// Head stays straight time; the tail is flagged next iteration.
			cum = threshold
			continue
		}
		cum = end
	}
	return nil
}

// priorWeekHours sums the worked hours the worker's earlier cards in the
// same calendar week (bounded by the contract's start of week) already
// persisted.
func (s weeklyOvertimeStage) priorWeekHours(ex *Execution, weekStart time.Time) decimal.Decimal {
	role := ex.Mode.RoleFor()
	cardDay := segment.Day(ex.Card.Date)
	total := decimal.Zero
	for _, h := range ex.History {
		day := segment.Day(h.Date)
		if day.Before(weekStart) || !day.Before(cardDay) {
			continue
		}
		switch {
		case h.Role == role && !h.Flags.UnpaidMeal:
			if h.Flags.MinimumCall && !ex.Contract.MinimumsInOvertime {
				continue
			}
			total = total.Add(h.Hours())
		case h.Role == segment.RoleUnworked && h.Mode == ex.Mode &&
			h.Flags.MinimumCall && ex.Contract.MinimumsInOvertime:
			total = total.Add(h.CreditedHours)
		}
	}
	return total
}
