package pipeline

import (
	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// CONSECUTIVE-DAY AND DAY-OF-WEEK TAGGERS
// =============================================================================
// Both taggers read cross-time-card history or the calendar and set a flag
// without splitting. They skip minimum-call and unpaid-meal segments.

type consecutiveDaysStage struct{}

func (consecutiveDaysStage) Name() string { return "consecutive days" }

func (s consecutiveDaysStage) Run(ex *Execution) error {
	rules := ex.Rules.Named(contract.RuleConsecutiveDays)
	if len(rules) == 0 {
		return nil
	}

	streak := s.streak(ex)
	matched := false
	for _, r := range rules {
		if r.Ordinal == streak {
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}

	tagSegments(ex.Work, func(seg *segment.TimeSegment) {
		seg.Flags.ConsecutiveDay = streak
	})
	return nil
}

// streak counts the consecutive worked days ending at the card's date,
// walking prior calendar days in the worker's history.
func (s consecutiveDaysStage) streak(ex *Execution) int {
	role := ex.Mode.RoleFor()
	workedDays := make(map[int64]bool)
	for _, h := range ex.History {
		if h.Role == role && !h.Flags.IsMeal() {
			workedDays[segment.Day(h.Date).Unix()] = true
		}
	}

	streak := 1 // the card's own day
	day := segment.Day(ex.Card.Date).AddDate(0, 0, -1)
	for workedDays[day.Unix()] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

type dayOfWeekStage struct{}

func (dayOfWeekStage) Name() string { return "day of week" }

func (s dayOfWeekStage) Run(ex *Execution) error {
	wd := ex.Card.Date.Weekday()
	applies := false
	for _, r := range ex.Rules.Named(contract.RuleDayOfWeek) {
		if r.TargetsWeekday(wd) {
			applies = true
			break
		}
	}
	if !applies {
		return nil
	}

	tagSegments(ex.Work, func(seg *segment.TimeSegment) {
		seg.Flags.DayOfWeek = true
	})
	return nil
}

// tagSegments applies a flag to every taggable segment, skipping
// minimum-call and unpaid-meal segments.
func tagSegments(seq *segment.Sequence, tag func(*segment.TimeSegment)) {
	for i := 0; i < seq.Len(); i++ {
		seg := seq.At(i)
		if seg.Flags.MinimumCall || seg.Flags.UnpaidMeal {
			continue
		}
		tag(seg)
	}
}
