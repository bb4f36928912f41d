/*
persist.go - Line construction and reconciliation against persisted state

PURPOSE:
  Converts the finished sequences of a card's run into Lines - the
  persisted form of a derived segment: identity, span, flags, and the six
  hour columns with exactly one non-zero entry (none for unpaid meals).
  Reconciliation reuses previously persisted line ids in order so reruns
  update records in place; ids that no longer correspond to a produced
  line are deleted by the repository.

ITERATION:
  Line construction walks the sequences with ForEachContiguous rather
  than a separately tracked count - deliberately, since this is the last
  consumer of sequences that many stages have inserted into.
*/
package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// LINE - Persisted form of a derived segment
// =============================================================================

type Line struct {
	ID              string
	TimeCardID      string
	Mode            segment.Mode
	Role            segment.Role
	SourceSegmentID string

	Date  time.Time
	In    segment.ClockTime
	Out   segment.ClockTime
	InAt  time.Time
	OutAt time.Time

	Flags         segment.Flags
	CreditedHours decimal.Decimal
	Note          string

	// Hours holds columns 0-5. At most one entry is non-zero.
	Hours [NumColumns]decimal.Decimal
}

// lineFor routes one segment and builds its persisted line. All columns
// other than the routed one are explicitly zeroed; an excluded segment
// (unpaid meal) keeps every column zero.
func lineFor(seg *segment.TimeSegment) Line {
	l := Line{
		ID:              seg.ID,
		TimeCardID:      seg.TimeCardID,
		Mode:            seg.Mode,
		Role:            seg.Role,
		SourceSegmentID: seg.SourceSegmentID,
		Date:            seg.Date,
		In:              seg.In,
		Out:             seg.Out,
		InAt:            seg.InAt,
		OutAt:           seg.OutAt,
		Flags:           seg.Flags,
		CreditedHours:   seg.CreditedHours,
		Note:            seg.Note,
	}
	for i := range l.Hours {
		l.Hours[i] = decimal.Zero
	}
	if col, ok := Route(seg.Flags); ok {
		l.Hours[col] = seg.Hours()
	}
	return l
}

// buildLines converts an execution's working and unworked sequences.
func buildLines(ex *Execution) []Line {
	var lines []Line
	collect := func(_ int, seg *segment.TimeSegment) error {
		lines = append(lines, lineFor(seg))
		return nil
	}
	_ = ex.Work.ForEachContiguous(collect)
	_ = ex.Unworked.ForEachContiguous(collect)
	return lines
}

// =============================================================================
// RECONCILIATION - Id reuse instead of delete-and-recreate
// =============================================================================

type lineBucket struct {
	mode segment.Mode
	role segment.Role
}

// reconcileIDs assigns previously persisted ids to produced lines, in
// order within each (mode, role) bucket. Produced lines beyond the stored
// count keep their fresh ids; stored ids beyond the produced count become
// leftovers the repository deletes.
func reconcileIDs(existing, produced []Line) []Line {
	pool := make(map[lineBucket][]string)
	for _, l := range existing {
		b := lineBucket{mode: l.Mode, role: l.Role}
		pool[b] = append(pool[b], l.ID)
	}

	out := make([]Line, len(produced))
	copy(out, produced)
	for i := range out {
		b := lineBucket{mode: out[i].Mode, role: out[i].Role}
		if ids := pool[b]; len(ids) > 0 {
			out[i].ID = ids[0]
			pool[b] = ids[1:]
		}
	}
	return out
}
