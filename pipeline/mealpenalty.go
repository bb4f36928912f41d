/*
mealpenalty.go - Meal penalty evaluation (three interchangeable strategies)

PURPOSE:
  Applies the contract's meal penalty in whichever of the three variants
  the contract selects (contract.SelectMealPenalty, decided once per
  execution before the pipeline runs):

    accumulated     - premium minutes past a single threshold, summed
                      across the card, one penalty segment appended
    per-threshold   - a tier-specific penalty segment the moment a tier
                      threshold is crossed within a break window
    multiplicative  - the worked segments themselves are flagged by
                      penalty zone, splitting any segment that straddles
                      a zone boundary (the only variant that splits)

SHARED SEMANTICS:
  All variants accumulate work since the last qualifying break, where a
  qualifying break is an explicit paid/unpaid meal segment or an implicit
  gap of at least the contract's minimum meal break. The starting counter
  is seeded from the worker's prior-day history: a backward walk that
  stops at the first qualifying break it finds.

SEE ALSO:
  - contract/strategy.go: strategy selection precedence
  - pipeline.go: splitAtInstant and the cursor contract
*/
package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/segment"
)

// Default zone boundaries for the multiplicative variant when no "Meal
// Penalty" rule supplies them.
var (
	defaultPenaltyZone1 = decimal.NewFromInt(5)
	defaultPenaltyZone2 = decimal.NewFromInt(10)
)

// RuleMealPenalty supplies zone boundaries for the multiplicative variant.
const ruleMealPenalty = "Meal Penalty"

type mealPenaltyStage struct{}

func (mealPenaltyStage) Name() string { return "meal penalty" }

func (s mealPenaltyStage) Run(ex *Execution) error {
	switch ex.Strategy {
	case contract.MealPenaltyAccumulated:
		return s.runAccumulated(ex)
	case contract.MealPenaltyPerThreshold:
		return s.runPerThreshold(ex)
	case contract.MealPenaltyMultiplicative:
		return s.runMultiplicative(ex)
	default:
		return nil
	}
}

// =============================================================================
// HISTORY SEEDING
// =============================================================================

// seedWorkedSinceBreak walks the worker's prior history backward from the
// card's first segment, accumulating worked hours until the first
// qualifying break (explicit meal or sufficient gap). The result seeds the
// worked-since-last-meal counter so a shift that continues a long prior day
// penalizes correctly.
func seedWorkedSinceBreak(ex *Execution) decimal.Decimal {
	first := ex.Work.At(0)
	if first == nil {
		return decimal.Zero
	}
	hist := ex.modeHistory()

	total := decimal.Zero
	nextIn := first.InAt
	for j := len(hist) - 1; j >= 0; j-- {
		h := hist[j]
		if h.Flags.IsMeal() {
			break
		}
		if ex.Contract.MealBreakMin > 0 && nextIn.Sub(h.OutAt) >= ex.Contract.MealBreakMin {
			break
		}
		total = total.Add(h.Hours())
		nextIn = h.InAt
	}
	return total
}

// =============================================================================
// ACCUMULATED STRATEGY
// =============================================================================

// runAccumulated sums max(0, worked-since-break - threshold) at every break
// boundary plus the trailing remainder once, and appends a single penalty
// segment anchored at the first segment's position if anything accrued.
// No structural mutation of the worked sequence.
func (s mealPenaltyStage) runAccumulated(ex *Execution) error {
	rule, ok := ex.Rules.First(contract.RuleMealPenaltyDefinitive)
	if !ok || !rule.Hour1.GreaterThan(decimal.Zero) {
		// Malformed rule contribution: skip rather than abort the card.
		return nil
	}
	threshold := rule.Hour1

	worked := seedWorkedSinceBreak(ex)
	premium := decimal.Zero

	settle := func() {
		over := worked.Sub(threshold)
		if over.GreaterThan(decimal.Zero) {
			premium = premium.Add(over)
		}
		worked = decimal.Zero
	}

	seq := ex.Work
	for i := 0; i < seq.Len(); i++ {
		seg := seq.At(i)
		if prev := seq.At(i - 1); prev != nil && mealBreakGap(ex.Contract, prev, seg) {
			settle()
		}
		if seg.Flags.IsMeal() {
			settle()
			continue
		}
		worked = worked.Add(seg.Hours())
	}
	settle() // trailing remainder, exactly once

	if !premium.GreaterThan(decimal.Zero) {
		return nil
	}

	first := seq.At(0)
	pen := ex.derived(segment.RoleUnworked)
	pen.Date = first.Date
	pen.In, pen.Out = first.In, first.In
	pen.InAt, pen.OutAt = first.InAt, first.InAt
	pen.SourceSegmentID = first.SourceSegmentID
	pen.CreditedHours = premium
	pen.Flags.MealPenaltyTier1 = true
	pen.Note = "meal penalty (accumulated)"
	ex.Unworked.Append(pen)
	return nil
}

// =============================================================================
// PER-THRESHOLD STRATEGY
// =============================================================================

// runPerThreshold appends a tier-specific penalty segment the instant the
// running counter exceeds a tier threshold that has not yet been applied
// for the current break window. Both the counter and the applied flags
// reset at every qualifying break.
func (s mealPenaltyStage) runPerThreshold(ex *Execution) error {
	c := ex.Contract
	tier1 := c.MealPenalty1Hours
	tier2 := c.MealPenalty2Hours
	credit1 := orOne(c.MealPenalty1Credit)
	credit2 := orOne(c.MealPenalty2Credit)

	worked := seedWorkedSinceBreak(ex)
	tier1Applied, tier2Applied := false, false

	reset := func() {
		worked = decimal.Zero
		tier1Applied, tier2Applied = false, false
	}

	seq := ex.Work
	for i := 0; i < seq.Len(); i++ {
		seg := seq.At(i)
		if prev := seq.At(i - 1); prev != nil && mealBreakGap(c, prev, seg) {
			reset()
		}
		if seg.Flags.IsMeal() {
			reset()
			continue
		}
		worked = worked.Add(seg.Hours())

		if !tier1Applied && worked.GreaterThan(tier1) {
			s.appendPenalty(ex, seg, credit1, 1)
			tier1Applied = true
		}
		if tier2.GreaterThan(decimal.Zero) && !tier2Applied && worked.GreaterThan(tier2) {
			s.appendPenalty(ex, seg, credit2, 2)
			tier2Applied = true
		}
	}
	return nil
}

// appendPenalty anchors an unworked penalty segment at the current segment.
func (s mealPenaltyStage) appendPenalty(ex *Execution, at *segment.TimeSegment, credit decimal.Decimal, tier int) {
	pen := ex.derived(segment.RoleUnworked)
	pen.Date = at.Date
	pen.In, pen.Out = at.Out, at.Out
	pen.InAt, pen.OutAt = at.OutAt, at.OutAt
	pen.SourceSegmentID = at.SourceSegmentID
	pen.CreditedHours = credit
	if tier == 2 {
		pen.Flags.MealPenaltyTier2 = true
		pen.Note = "meal penalty (tier 2)"
	} else {
		pen.Flags.MealPenaltyTier1 = true
		pen.Note = "meal penalty (tier 1)"
	}
	ex.Unworked.Append(pen)
}

// =============================================================================
// MULTIPLICATIVE STRATEGY
// =============================================================================

// runMultiplicative classifies each worked segment by which penalty zone
// its span falls in (below zone 1 / between zones / above zone 2) and
// splits any segment straddling a zone boundary, up to twice when it
// straddles both. Pieces are flagged in place; nothing is appended.
func (s mealPenaltyStage) runMultiplicative(ex *Execution) error {
	zone1, zone2 := s.zones(ex)

	cum := seedWorkedSinceBreak(ex)

	seq := ex.Work
	for i := 0; i < seq.Len(); i++ {
		seg := seq.At(i)
		if prev := seq.At(i - 1); prev != nil && mealBreakGap(ex.Contract, prev, seg) {
			cum = decimal.Zero
		}
		if seg.Flags.IsMeal() {
			cum = decimal.Zero
			continue
		}

		end := cum.Add(seg.Hours())

		var boundary decimal.Decimal
		switch {
		case cum.LessThan(zone1) && end.GreaterThan(zone1):
			boundary = zone1
		case zone2.GreaterThan(decimal.Zero) && cum.LessThan(zone2) && end.GreaterThan(zone2):
			boundary = zone2
		default:
			s.flagZone(seg, cum, zone1, zone2)
			cum = end
			continue
		}

		at := seg.InAt.Add(segment.DurationOf(boundary.Sub(cum)))
		splitAtInstant(seq, i, at, ex.NewID)
		// seg is now the head piece; the tail is visited next iteration and
		// may straddle the second boundary, producing the second split.
		s.flagZone(seg, cum, zone1, zone2)
		cum = boundary
	}
	return nil
}

func (s mealPenaltyStage) zones(ex *Execution) (decimal.Decimal, decimal.Decimal) {
	if rule, ok := ex.Rules.First(ruleMealPenalty); ok && rule.Hour1.GreaterThan(decimal.Zero) {
		return rule.Hour1, rule.Hour2
	}
	return defaultPenaltyZone1, defaultPenaltyZone2
}

// flagZone marks a piece by the zone its start falls in.
func (s mealPenaltyStage) flagZone(seg *segment.TimeSegment, start, zone1, zone2 decimal.Decimal) {
	switch {
	case zone2.GreaterThan(decimal.Zero) && start.GreaterThanOrEqual(zone2):
		seg.Flags.MealPenaltyTier2 = true
	case start.GreaterThanOrEqual(zone1):
		seg.Flags.MealPenaltyTier1 = true
	}
}

func orOne(d decimal.Decimal) decimal.Decimal {
	if d.GreaterThan(decimal.Zero) {
		return d
	}
	return decimal.NewFromInt(1)
}
