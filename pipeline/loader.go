package pipeline

import (
	"sort"

	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// CLOCK LOADER - Seeds a mode's working sequence
// =============================================================================

// buildWorking copies a card's clock segments into a fresh working sequence
// for one mode: one derived segment per clock segment, ordered by InAt,
// stamped with the clock segment's id as provenance. excludeUnpaidMeals
// narrows the universe for contracts whose rules never look at explicit
// meal punches.
func buildWorking(ex *Execution, clocks []*segment.TimeSegment, excludeUnpaidMeals bool) (*segment.Sequence, error) {
	var relevant []*segment.TimeSegment
	for _, c := range clocks {
		if c.Role != segment.RoleClock {
			continue
		}
		if excludeUnpaidMeals && c.Flags.UnpaidMeal {
			continue
		}
		relevant = append(relevant, c)
	}
	if len(relevant) == 0 {
		return nil, segment.ErrNoClockSegments
	}

	sort.Slice(relevant, func(i, j int) bool { return relevant[i].InAt.Before(relevant[j].InAt) })

	seq := segment.NewSequence()
	for _, c := range relevant {
		w := c.Clone()
		w.ID = ex.NewID()
		w.Role = ex.Mode.RoleFor()
		w.Mode = ex.Mode
		w.SourceSegmentID = c.ID
		seq.Append(w)
	}
	return seq, nil
}
