package pipeline

import (
	"sort"

	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// VALIDATOR - Overlap rejection, runs before any stage
// =============================================================================

// validateClocks rejects a card whose clock segments overlap in time.
// Only Clock-role segments participate; single or zero segments never
// overlap. On failure the whole card aborts without persisting anything.
func validateClocks(timeCardID string, clocks []*segment.TimeSegment) error {
	var spans []*segment.TimeSegment
	for _, c := range clocks {
		if c.Role == segment.RoleClock {
			spans = append(spans, c)
		}
	}
	if len(spans) < 2 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].InAt.Before(spans[j].InAt) })

	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if cur.InAt.Before(prev.OutAt) {
			return &segment.OverlapError{
				TimeCardID: timeCardID,
				PrevOut:    prev.OutAt,
				NextIn:     cur.InAt,
			}
		}
	}
	return nil
}
