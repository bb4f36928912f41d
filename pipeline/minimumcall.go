/*
minimumcall.go - Minimum call enforcement

PURPOSE:

	Groups the working sequence into "calls" - maximal runs of segments not
	separated by a gap exceeding the contract's maximum meal break - and
	pads any call whose credited time falls short of the contractual
	minimum. The first call of a card uses the first-call minimum;
	subsequent calls use the next-call minimum, possibly overridden upward
	by a ranked "Minimum Call" rule.

CURSOR DISCIPLINE:

	The worked padding path inserts into the sequence being iterated. The
	loop resumes from the index padShortfall returns, so both the cursor
	and the authoritative count advance past the insertion. The unworked
	path targets a different sequence and leaves the cursor alone.
*/
package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/contract"
)

type minimumCallStage struct{}

func (minimumCallStage) Name() string { return "minimum call" }

func (s minimumCallStage) Run(ex *Execution) error {
	c := ex.Contract
	if !c.MinimumCallFirst.GreaterThan(decimal.Zero) && !c.MinimumCallNext.GreaterThan(decimal.Zero) {
		return nil
	}

	nextMinimum := c.MinimumCallNext
	if rule, ok := ex.Rules.FirstForTitle(contract.RuleMinimumCall, ex.Card.JobTitle); ok && rule.Hour1.GreaterThan(nextMinimum) {
		// Per-job-title override raises, never lowers, the subsequent-call minimum.
		nextMinimum = rule.Hour1
	}

	seq := ex.Work
	if seq.Len() == 0 {
		return nil
	}

	callIdx := 0
	callStart := 0
	worked := decimal.Zero

	i := 0
	for i < seq.Len() {
		seg := seq.At(i)
		if i > callStart {
			prev := seq.At(i - 1)
			if callBoundary(c, prev, seg) {
				resume, err := s.closeCall(ex, callIdx, callStart, i-1, worked, nextMinimum)
				if err != nil {
					return err
				}
				if resume != i-1 {
					// Worked padding was inserted at resume; the current
					// segment shifted right by one. Cursor and count both
					// advance past the insertion.
					i = resume + 1
					seg = seq.At(i)
				}
				callIdx++
				callStart = i
				worked = decimal.Zero
			}
		}

		if !seg.Flags.UnpaidMeal {
			worked = worked.Add(seg.Hours())
		}
		i++
	}

	_, err := s.closeCall(ex, callIdx, callStart, seq.Len()-1, worked, nextMinimum)
	return err
}

// closeCall evaluates one finished call and pads its shortfall. Returns the
// index the caller must resume from (unchanged when nothing was inserted
// into the working sequence).
func (s minimumCallStage) closeCall(ex *Execution, callIdx, startIdx, endIdx int, worked decimal.Decimal, nextMinimum decimal.Decimal) (int, error) {
	if !worked.GreaterThan(decimal.Zero) {
		return endIdx, nil
	}

	minimum := nextMinimum
	if callIdx == 0 {
		minimum = ex.Contract.MinimumCallFirst
	}
	if !minimum.GreaterThan(decimal.Zero) {
		return endIdx, nil
	}

	// Credited unworked hours created by earlier stages inside this call's
	// window count toward the minimum via CreditedHours, not timestamps.
	credited := ex.creditedUnworked(ex.Work.At(startIdx), ex.Work.At(endIdx))
	total := worked.Add(credited)
	if total.GreaterThanOrEqual(minimum) {
		return endIdx, nil
	}

	note := "minimum call shortfall"
	if callIdx > 0 {
		note = "minimum call shortfall (subsequent call)"
	}
	return padShortfall(ex, "minimum call", endIdx, minimum.Sub(total), note)
}
