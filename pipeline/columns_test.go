package pipeline

import (
	"testing"

	"github.com/crewbill/timecard-engine/segment"
)

func TestRouteCascade(t *testing.T) {
	tests := []struct {
		name    string
		flags   segment.Flags
		want    Column
		exclude bool
	}{
		{name: "plain segment lands in standard", want: ColumnStandard},
		{
			name:    "unpaid meal is excluded entirely",
			flags:   segment.Flags{UnpaidMeal: true},
			exclude: true,
		},
		{
			// Drive wins over everything routable, even stacked premiums.
			name:  "drive time beats stacked premiums",
			flags: segment.Flags{DriveTime: true, OvertimeDaily2: true, Holiday: true},
			want:  ColumnDrive,
		},
		{
			name:  "daily tier 2 is double",
			flags: segment.Flags{OvertimeDaily2: true},
			want:  ColumnDouble,
		},
		{
			name:  "holiday stacked with daily tier 1 is double",
			flags: segment.Flags{Holiday: true, OvertimeDaily1: true},
			want:  ColumnDouble,
		},
		{
			name:  "holiday stacked with weekly overtime is double",
			flags: segment.Flags{Holiday: true, OvertimeWeekly: true},
			want:  ColumnDouble,
		},
		{
			name:  "holiday stacked with a consecutive-day premium is double",
			flags: segment.Flags{Holiday: true, ConsecutiveDay: 6},
			want:  ColumnDouble,
		},
		{
			name:  "seventh consecutive day with daily tier 1 is double",
			flags: segment.Flags{OvertimeDaily1: true, ConsecutiveDay: 7},
			want:  ColumnDouble,
		},
		{
			name:  "daily tier 1 alone is overtime",
			flags: segment.Flags{OvertimeDaily1: true},
			want:  ColumnOvertime,
		},
		{
			name:  "weekly overtime alone is overtime",
			flags: segment.Flags{OvertimeWeekly: true},
			want:  ColumnOvertime,
		},
		{
			name:  "sixth consecutive day alone is overtime",
			flags: segment.Flags{ConsecutiveDay: 6},
			want:  ColumnOvertime,
		},
		{
			// A penalty segment can inherit an unrelated holiday flag from
			// its clock ancestor; the penalty column must still win.
			name:  "meal penalty beats inherited holiday",
			flags: segment.Flags{MealPenaltyTier1: true, Holiday: true},
			want:  ColumnMealPenalty,
		},
		{
			name:  "meal penalty tier 2",
			flags: segment.Flags{MealPenaltyTier2: true},
			want:  ColumnMealPenalty,
		},
		{
			name:  "holiday alone is overtime",
			flags: segment.Flags{Holiday: true},
			want:  ColumnOvertime,
		},
		{
			name:  "night rate alone is night",
			flags: segment.Flags{NightRate: true},
			want:  ColumnNight,
		},
		{
			name:  "holiday beats night",
			flags: segment.Flags{Holiday: true, NightRate: true},
			want:  ColumnOvertime,
		},
		{
			name:  "day of week lands in overtime",
			flags: segment.Flags{DayOfWeek: true},
			want:  ColumnOvertime,
		},
		{
			name: "ignored night rate falls through to standard",
			flags: segment.Flags{
				NightRate: true,
				Ignore:    segment.IgnoreFlags{NightRate: true},
			},
			want: ColumnStandard,
		},
		{
			name: "ignored overtime falls through",
			flags: segment.Flags{
				OvertimeDaily1: true,
				Ignore:         segment.IgnoreFlags{Overtime: true},
			},
			want: ColumnStandard,
		},
		{
			name: "ignored holiday downgrades the double",
			flags: segment.Flags{
				Holiday:        true,
				OvertimeDaily1: true,
				Ignore:         segment.IgnoreFlags{Holiday: true},
			},
			want: ColumnOvertime,
		},
		{
			name: "ignored meal penalty falls through to holiday",
			flags: segment.Flags{
				MealPenaltyTier1: true,
				Holiday:          true,
				Ignore:           segment.IgnoreFlags{MealPenalty: true},
			},
			want: ColumnOvertime,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			col, ok := Route(tc.flags)
			if tc.exclude {
				if ok {
					t.Fatalf("Route = %s, want excluded", col)
				}
				return
			}
			if !ok {
				t.Fatal("Route excluded a routable segment")
			}
			if col != tc.want {
				t.Fatalf("Route = %s, want %s", col, tc.want)
			}
		})
	}
}

func TestLineForSingleNonZeroColumn(t *testing.T) {
	// GIVEN a night-flagged 2 hour span
	s := billable(tod(20, 0), tod(22, 0))
	s.Flags.NightRate = true

	l := lineFor(s)

	// THEN exactly the routed column is non-zero
	for col, h := range l.Hours {
		if Column(col) == ColumnNight {
			wantHours(t, "night column", h, "2")
			continue
		}
		if !h.IsZero() {
			t.Fatalf("column %s = %s, want zero", Column(col), h)
		}
	}
	if l.ID != s.ID || l.SourceSegmentID != s.SourceSegmentID {
		t.Fatal("line must keep the segment's identity and provenance")
	}
}

func TestLineForUnworkedUsesCreditedHours(t *testing.T) {
	s := &segment.TimeSegment{
		ID:            "u-1",
		Role:          segment.RoleUnworked,
		Mode:          segment.ModeBill,
		InAt:          tod(10, 0),
		OutAt:         tod(10, 0),
		CreditedHours: dec("3"),
		Flags:         segment.Flags{MinimumCall: true},
	}

	l := lineFor(s)
	wantHours(t, "standard column", l.Hours[ColumnStandard], "3")
}

func TestLineForUnpaidMealAllColumnsZero(t *testing.T) {
	s := unpaidMeal(tod(12, 0), tod(12, 30))
	l := lineFor(s)
	for col, h := range l.Hours {
		if !h.IsZero() {
			t.Fatalf("column %s = %s, want zero for an unpaid meal", Column(col), h)
		}
	}
}
