/*
mealadjust.go - Before/after unpaid meal adjustment

PURPOSE:

	Guarantees a minimum amount of paid time around unpaid meal breaks:
	at least `before_unpaid_meal` hours before the first unpaid meal of a
	call, `between_unpaid_meal` between subsequent ones, and
	`after_unpaid_meal` after the last. Distinct from, but interacting
	with, minimum call enforcement.

COUNTERS:

	sinceLastMeal - resets at every qualifying break (paid or unpaid)
	sinceUnpaid   - resets only at unpaid meal breaks; accumulates
	                through paid meals (the final after-meal check reads
	                this one, never sinceLastMeal)
	callStart     - index of the current call's first segment; everything
	                per-call derives from it

CALL BOUNDARIES:

	A gap exceeding the maximum meal break is a NEW CALL BOUNDARY, not a
	meal dismissal: no shortfall is evaluated across it; counters reset and
	the call index advances. Whether a pending after-meal shortfall is
	flushed at the boundary or discarded is a contract policy switch
	(FlushShortfallAtCallBoundary); the source behavior is still being
	refined.

CURSOR DISCIPLINE:

	Padding anchored at the previous segment's end is inserted into the
	sequence being iterated. The loop resumes from the index padShortfall
	returns so both the cursor and the running count advance past the
	insertion - incrementing one but not the other is exactly the defect
	class this stage has historically produced.
*/
package pipeline

import (
	"github.com/shopspring/decimal"
)

type mealAdjustStage struct{}

func (mealAdjustStage) Name() string { return "before/after unpaid meal" }

func (s mealAdjustStage) Run(ex *Execution) error {
	c := ex.Contract
	before := c.BeforeUnpaidMeal
	between := c.BetweenUnpaidMeal()
	after := c.AfterUnpaidMeal
	if before.IsZero() && between.IsZero() && after.IsZero() {
		return nil
	}

	seq := ex.Work
	if seq.Len() == 0 {
		return nil
	}

	// Fold minimum-call credits already recorded in the unworked sequence
	// into the initial counter, preventing duplicate padding for the same
	// gap. Applied once, at initialization: a conservative approximation
	// that may under-credit later gaps.
	sinceLastMeal := s.minimumCallCredit(ex)
	sinceUnpaid := decimal.Zero
	unpaidSeen := false
	callStart := 0

	requirement := func() decimal.Decimal {
		if unpaidSeen {
			return between
		}
		return before
	}

	i := 0
	for i < seq.Len() {
		seg := seq.At(i)

		if i > callStart {
			prev := seq.At(i - 1)
			switch {
			case callBoundary(c, prev, seg):
				if c.FlushShortfallAtCallBoundary && unpaidSeen && sinceUnpaid.LessThan(after) {
					resume, err := padShortfall(ex, s.Name(), i-1, after.Sub(sinceUnpaid), "after unpaid meal shortfall")
					if err != nil {
						return err
					}
					if resume != i-1 {
						i = resume + 1
						seg = seq.At(i)
					}
				}
				sinceLastMeal = decimal.Zero
				sinceUnpaid = decimal.Zero
				unpaidSeen = false
				callStart = i

			case mealBreakGap(c, prev, seg):
				// Implicit gap: an off-clock unpaid meal.
				if req := requirement(); sinceLastMeal.LessThan(req) {
					resume, err := padShortfall(ex, s.Name(), i-1, req.Sub(sinceLastMeal), "before unpaid meal shortfall")
					if err != nil {
						return err
					}
					if resume != i-1 {
						i = resume + 1
						seg = seq.At(i)
					}
				}
				sinceLastMeal = decimal.Zero
				sinceUnpaid = decimal.Zero
				unpaidSeen = true
			}
		}

		switch {
		case seg.Flags.UnpaidMeal:
			if i > callStart {
				if req := requirement(); sinceLastMeal.LessThan(req) {
					resume, err := padShortfall(ex, s.Name(), i-1, req.Sub(sinceLastMeal), "before unpaid meal shortfall")
					if err != nil {
						return err
					}
					if resume != i-1 {
						i = resume + 1
					}
				}
			}
			sinceLastMeal = decimal.Zero
			sinceUnpaid = decimal.Zero
			unpaidSeen = true

		case seg.Flags.PaidMeal:
			// Paid meals reset the per-break counter but sinceUnpaid
			// accumulates through them.
			sinceLastMeal = decimal.Zero

		default:
			h := seg.Hours()
			sinceLastMeal = sinceLastMeal.Add(h)
			sinceUnpaid = sinceUnpaid.Add(h)
		}
		i++
	}

	// Final after-unpaid-meal check for the last call, reading sinceUnpaid.
	if unpaidSeen && after.GreaterThan(decimal.Zero) && sinceUnpaid.LessThan(after) {
		shortfall := after.Sub(sinceUnpaid)
		if !s.absorbedByMinimumCall(ex, callStart, shortfall) {
			if _, err := padShortfall(ex, s.Name(), seq.Len()-1, shortfall, "after unpaid meal shortfall"); err != nil {
				return err
			}
		}
	}
	return nil
}

// minimumCallCredit sums the credited hours minimum call already recorded
// in the unworked sequence for this mode.
func (s mealAdjustStage) minimumCallCredit(ex *Execution) decimal.Decimal {
	total := decimal.Zero
	for _, u := range ex.Unworked.Segments() {
		if u.Mode != ex.Mode || !u.Flags.MinimumCall || ignoredUnworked(u.Flags) {
			continue
		}
		total = total.Add(u.CreditedHours)
	}
	return total
}

// absorbedByMinimumCall reports whether padding the shortfall would merely
// duplicate credit a minimum-call shortfall already created for the final
// call.
func (s mealAdjustStage) absorbedByMinimumCall(ex *Execution, callStart int, shortfall decimal.Decimal) bool {
	credit := decimal.Zero
	for i := callStart; i < ex.Work.Len(); i++ {
		if seg := ex.Work.At(i); seg.Flags.MinimumCall {
			credit = credit.Add(seg.Hours())
		}
	}
	callStartSeg := ex.Work.At(callStart)
	for _, u := range ex.Unworked.Segments() {
		if u.Mode != ex.Mode || !u.Flags.MinimumCall || ignoredUnworked(u.Flags) {
			continue
		}
		if u.InAt.Before(callStartSeg.InAt) {
			continue
		}
		credit = credit.Add(u.CreditedHours)
	}
	return credit.GreaterThanOrEqual(shortfall)
}
