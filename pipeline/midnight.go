package pipeline

import "github.com/crewbill/timecard-engine/segment"

// =============================================================================
// MIDNIGHT SPLITTER
// =============================================================================

// midnightSplitter splits a segment spanning midnight into two pieces, one
// ending at 00:00 and one starting there. A single invocation processes at
// most ONE crossing; the stage schedule invokes it twice (once up front,
// once after the padding stages) for exactly that reason.
type midnightSplitter struct{}

func (midnightSplitter) Name() string { return "midnight split" }

func (s midnightSplitter) Run(ex *Execution) error {
	seq := ex.Work
	for i := 0; i < seq.Len(); i++ {
		seg := seq.At(i)
		if !crossesMidnight(seg) {
			continue
		}

		splitAt := segment.NextMidnight(seg.InAt)

		tail := seg.Clone()
		tail.ID = ex.NewID()
		tail.Date = splitAt
		tail.In = segment.Midnight
		tail.InAt = splitAt
		tail.Flags.AfterMidnight = true
		// A grace-period note does not carry past midnight.
		tail.Note = ""

		seg.Out = segment.Midnight
		seg.OutAt = splitAt
		seg.Flags.AfterMidnight = false

		seq.InsertAfter(i, tail)
		return nil
	}
	return nil
}

// crossesMidnight is the wraparound signature: wall-clock out precedes in,
// and out is not itself midnight (which marks an already-split head).
func crossesMidnight(seg *segment.TimeSegment) bool {
	return seg.In.After(seg.Out) && !seg.Out.IsMidnight()
}
