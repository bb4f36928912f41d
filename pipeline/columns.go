/*
columns.go - Column routing: flags to exactly one of six hour categories

PURPOSE:
  Maps each finished segment's flags to exactly one persisted hour column
  (Standard, Overtime, Double, Night, MealPenalty, Drive) or excludes it
  entirely (unpaid meals). The cascade is an ORDERED LIST of
  (predicate, column) pairs evaluated top to bottom; the first match wins.

ORDER IS LOAD-BEARING:
  Meal penalty is checked BEFORE holiday and day-of-week because penalty
  segments can inherit an unrelated holiday flag from their clock-segment
  ancestor and must not land in the overtime column. Reordering the
  cascade is a one-line table edit, testable in isolation.

SEE ALSO:
  - persist.go: line construction and reconciliation
*/
package pipeline

import "github.com/crewbill/timecard-engine/segment"

// =============================================================================
// COLUMNS
// =============================================================================

// Column is one of the six persisted hour categories (columns 0-5).
type Column int

const (
	ColumnStandard Column = iota
	ColumnOvertime
	ColumnDouble
	ColumnNight
	ColumnMealPenalty
	ColumnDrive

	NumColumns = 6
)

func (c Column) String() string {
	switch c {
	case ColumnStandard:
		return "standard"
	case ColumnOvertime:
		return "overtime"
	case ColumnDouble:
		return "double"
	case ColumnNight:
		return "night"
	case ColumnMealPenalty:
		return "meal_penalty"
	case ColumnDrive:
		return "drive"
	default:
		return "unknown"
	}
}

// =============================================================================
// ROUTING TABLE
// =============================================================================

type routingRule struct {
	name    string
	match   func(f segment.Flags) bool
	column  Column
	exclude bool
}

var routingTable = []routingRule{
	{
		name:    "unpaid meal",
		exclude: true,
		match:   func(f segment.Flags) bool { return f.UnpaidMeal },
	},
	{
		name:   "drive time",
		column: ColumnDrive,
		match:  func(f segment.Flags) bool { return f.DriveTime },
	},
	{
		name:   "double",
		column: ColumnDouble,
		match: func(f segment.Flags) bool {
			if f.OvertimeDaily2 {
				return true
			}
			if f.Holiday && !f.Ignore.Holiday &&
				(f.OvertimeDaily1 || f.OvertimeDaily2 || f.OvertimeWeekly || f.ConsecutiveDay > 0) {
				return true
			}
			return f.OvertimeDaily1 && f.ConsecutiveDay == 7
		},
	},
	{
		name:   "overtime",
		column: ColumnOvertime,
		match: func(f segment.Flags) bool {
			return (f.OvertimeDaily1 || f.OvertimeWeekly || f.ConsecutiveDay >= 6) && !f.Ignore.Overtime
		},
	},
	{
		// Before holiday and day-of-week: penalty segments can inherit an
		// unrelated holiday flag from their clock ancestor.
		name:   "meal penalty",
		column: ColumnMealPenalty,
		match: func(f segment.Flags) bool {
			return (f.MealPenaltyTier1 || f.MealPenaltyTier2) && !f.Ignore.MealPenalty
		},
	},
	{
		name:   "holiday",
		column: ColumnOvertime,
		match:  func(f segment.Flags) bool { return f.Holiday && !f.Ignore.Holiday },
	},
	{
		name:   "night",
		column: ColumnNight,
		match:  func(f segment.Flags) bool { return f.NightRate && !f.Ignore.NightRate },
	},
	{
		name:   "day of week",
		column: ColumnOvertime,
		match:  func(f segment.Flags) bool { return f.DayOfWeek && !f.Ignore.DayOfWeek },
	},
}

// Route selects the single column a segment's hours land in. ok is false
// for segments excluded from every column (unpaid meals).
func Route(f segment.Flags) (col Column, ok bool) {
	for _, r := range routingTable {
		if r.match(f) {
			if r.exclude {
				return 0, false
			}
			return r.column, true
		}
	}
	return ColumnStandard, true
}
