package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// SHORTFALL PADDING - Shared by minimum call and the unpaid-meal adjuster
// =============================================================================

// padShortfall creates a synthetic segment making up a shortfall, anchored
// at the end of the segment at anchorIdx.
//
// Worked path (minimums are worked time): a real billable/payable span is
// inserted into the working sequence immediately after the anchor; the
// returned index is the inserted segment's position and the caller MUST
// advance its cursor past it. Unworked path: a zero-span credit carrying
// the shortfall as CreditedHours is appended to the unworked sequence and
// the anchor index is returned unchanged, since the working count is not
// touched.
func padShortfall(ex *Execution, stage string, anchorIdx int, hours decimal.Decimal, note string) (int, error) {
	anchor := ex.Work.At(anchorIdx)
	if anchor == nil {
		return anchorIdx, &segment.InvariantError{Stage: stage, Detail: "padding anchor out of range"}
	}

	if ex.Contract.MinimumsAreWorkedTime {
		pad := ex.derived(ex.Mode.RoleFor())
		pad.Date = anchor.Date
		pad.InAt = anchor.OutAt
		pad.OutAt = anchor.OutAt.Add(segment.DurationOf(hours))
		pad.In = segment.ClockOf(pad.InAt)
		pad.Out = segment.ClockOf(pad.OutAt)
		pad.SourceSegmentID = anchor.SourceSegmentID
		pad.Flags.MinimumCall = true
		pad.Note = note

		ins := ex.Work.InsertAfter(anchorIdx, pad)
		if ex.Work.At(ins) != pad {
			return anchorIdx, &segment.InvariantError{Stage: stage, Detail: "inserted padding not at returned index"}
		}
		return ins, nil
	}

	pad := ex.derived(segment.RoleUnworked)
	pad.Date = anchor.Date
	pad.In, pad.Out = anchor.Out, anchor.Out
	pad.InAt, pad.OutAt = anchor.OutAt, anchor.OutAt
	pad.SourceSegmentID = anchor.SourceSegmentID
	pad.CreditedHours = hours
	pad.Flags.MinimumCall = true
	pad.Note = note
	ex.Unworked.Append(pad)
	return anchorIdx, nil
}

// creditedUnworked sums the credited hours of unworked segments already
// created for this mode whose anchor falls inside [from, to]. Unpaid-meal
// and ignore-flagged segments are excluded.
func (ex *Execution) creditedUnworked(from, to *segment.TimeSegment) decimal.Decimal {
	total := decimal.Zero
	for _, u := range ex.Unworked.Segments() {
		if u.Mode != ex.Mode || u.Flags.UnpaidMeal {
			continue
		}
		if ignoredUnworked(u.Flags) {
			continue
		}
		if u.InAt.Before(from.InAt) || u.InAt.After(to.OutAt) {
			continue
		}
		total = total.Add(u.CreditedHours)
	}
	return total
}

func ignoredUnworked(f segment.Flags) bool {
	if f.MinimumCall && f.Ignore.MinimumCall {
		return true
	}
	if (f.MealPenaltyTier1 || f.MealPenaltyTier2) && f.Ignore.MealPenalty {
		return true
	}
	return false
}
