package pipeline

import (
	"time"

	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// NIGHT RATE SPLITTER
// =============================================================================

// nightRateStage splits any segment whose span crosses an edge of the
// contract's night window and flags the pieces that fall inside it. The
// window may cross midnight (e.g. 20:00 - 06:00).
type nightRateStage struct{}

func (nightRateStage) Name() string { return "night rate" }

func (s nightRateStage) Run(ex *Execution) error {
	c := ex.Contract
	if !c.NightWindowSet() {
		return nil
	}

	seq := ex.Work
	for i := 0; i < seq.Len(); i++ {
		seg := seq.At(i)
		if seg.Flags.IsMeal() || seg.Flags.Flat {
			continue
		}
		if seg.Flags.MinimumCall && !c.MinimumsInNight {
			continue
		}

		// Split the segment down to its first window edge; the tail pieces
		// are visited on later iterations and split again if needed.
		for {
			edge, ok := s.edgeInside(c, seg)
			if !ok {
				break
			}
			splitAtInstant(seq, i, edge, ex.NewID)
		}

		if s.inWindow(c, seg) && !seg.Flags.Ignore.NightRate {
			seg.Flags.NightRate = true
		}
	}
	return nil
}

// edgeInside finds the earliest night-window edge strictly inside the
// segment's span. Edges from the surrounding days are all candidates
// because spans and windows may both cross midnight.
func (s nightRateStage) edgeInside(c *contract.Contract, seg *segment.TimeSegment) (time.Time, bool) {
	var best time.Time
	found := false
	for dayOff := -1; dayOff <= 1; dayOff++ {
		day := seg.Date.AddDate(0, 0, dayOff)
		for _, edge := range []time.Time{c.NightStart.At(day), c.NightEnd.At(day)} {
			if !edge.After(seg.InAt) || !edge.Before(seg.OutAt) {
				continue
			}
			if !found || edge.Before(best) {
				best = edge
				found = true
			}
		}
	}
	return best, found
}

// inWindow classifies an edge-free piece by its midpoint.
func (s nightRateStage) inWindow(c *contract.Contract, seg *segment.TimeSegment) bool {
	mid := seg.InAt.Add(seg.Duration() / 2)
	cw := segment.ClockOf(mid)
	if c.NightStart.Before(c.NightEnd) {
		return !cw.Before(c.NightStart) && cw.Before(c.NightEnd)
	}
	// Window crosses midnight.
	return !cw.Before(c.NightStart) || cw.Before(c.NightEnd)
}
