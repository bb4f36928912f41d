/*
Package segment provides the core time-segment model for the rules engine.

PURPOSE:
  This package contains the record types that flow through the rule pipeline:
  time segments, their role and flag sets, and the ordered Sequence container
  the pipeline stages mutate. Whether a segment came from a raw clock punch,
  was derived for billing, or was synthesized as shortfall padding, the same
  record type carries it.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeSegment: The central mutable record (one worked or credited interval)
  - Role: What a segment represents (Clock, Billable, Payable, Unworked)
  - Mode: Which side of the house a run computes (bill vs pay)
  - Flags: The premium/penalty markers that drive column routing

DESIGN PRINCIPLES:
  1. Absolute timestamps (InAt/OutAt) are authoritative for arithmetic;
     wall-clock In/Out exist for contract-local display and midnight logic
  2. Precision: decimal.Decimal for hour quantities, never float64
  3. Provenance: every derived segment carries SourceSegmentID back to the
     clock segment it descends from, and a human-readable Note
  4. CreditedHours is authoritative for Unworked segments whose timestamps
     are only anchors, not real spans

USAGE:
  seg := &segment.TimeSegment{
      Role:  segment.RoleBillable,
      Date:  day,
      InAt:  day.Add(9 * time.Hour),
      OutAt: day.Add(17 * time.Hour),
  }
  hours := seg.Hours() // 8

SEE ALSO:
  - store.go: The ordered Sequence container with its cursor contract
  - time.go: Wall-clock and week arithmetic helpers
  - errors.go: Error taxonomy for the pipeline
*/
package segment

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROLE & MODE
// =============================================================================

// Role identifies what a segment represents. Exactly one role per segment.
type Role string

const (
	// RoleClock is a raw worked interval, the pipeline's only input.
	// Clock segments are never mutated by the pipeline.
	RoleClock Role = "clock"

	// RoleBillable is a derived segment on the billing side.
	RoleBillable Role = "billable"

	// RolePayable is a derived segment on the payroll side.
	RolePayable Role = "payable"

	// RoleUnworked is a credited-but-not-worked segment (shortfall padding,
	// meal penalty premiums). Its CreditedHours field is authoritative.
	RoleUnworked Role = "unworked"
)

// Mode selects which derived side a pipeline run computes. Bill and pay are
// processed independently but symmetrically.
type Mode string

const (
	ModeBill Mode = "bill"
	ModePay  Mode = "pay"
)

// RoleFor returns the working role for a mode.
func (m Mode) RoleFor() Role {
	if m == ModePay {
		return RolePayable
	}
	return RoleBillable
}

// =============================================================================
// FLAGS - Premium/penalty markers driving column routing
// =============================================================================

// Flags mark a segment for the premiums and penalties the contract rules
// detected. The column router reads these top-to-bottom; see pipeline/columns.go.
type Flags struct {
	MinimumCall      bool `json:"minimum_call,omitempty"`
	UnpaidMeal       bool `json:"unpaid_meal,omitempty"`
	PaidMeal         bool `json:"paid_meal,omitempty"`
	MealPenaltyTier1 bool `json:"meal_penalty_tier1,omitempty"`
	MealPenaltyTier2 bool `json:"meal_penalty_tier2,omitempty"`
	NightRate        bool `json:"night_rate,omitempty"`
	OvertimeDaily1   bool `json:"overtime_daily_tier1,omitempty"`
	OvertimeDaily2   bool `json:"overtime_daily_tier2,omitempty"`
	OvertimeWeekly   bool `json:"overtime_weekly,omitempty"`

	// ConsecutiveDay is the ordinal of the consecutive worked day that
	// triggered a premium (6, 7, 8). Zero means no consecutive-day premium.
	ConsecutiveDay int `json:"consecutive_day,omitempty"`

	DayOfWeek     bool `json:"day_of_week,omitempty"`
	Holiday       bool `json:"holiday,omitempty"`
	DriveTime     bool `json:"drive_time,omitempty"`
	AfterMidnight bool `json:"after_midnight,omitempty"`

	// Flat marks a flat-rate segment: premium splitters and taggers skip it.
	Flat bool `json:"flat,omitempty"`

	Ignore IgnoreFlags `json:"ignore,omitempty"`
}

// IgnoreFlags are per-flag operator overrides. A set ignore suppresses the
// corresponding premium at routing time without losing the detection.
type IgnoreFlags struct {
	MinimumCall bool `json:"minimum_call,omitempty"`
	MealPenalty bool `json:"meal_penalty,omitempty"`
	NightRate   bool `json:"night_rate,omitempty"`
	Overtime    bool `json:"overtime,omitempty"`
	Holiday     bool `json:"holiday,omitempty"`
	DayOfWeek   bool `json:"day_of_week,omitempty"`
}

// IsMeal reports whether the segment is an explicit meal break of either kind.
func (f Flags) IsMeal() bool { return f.UnpaidMeal || f.PaidMeal }

// =============================================================================
// TIME SEGMENT - The central record flowing through the pipeline
// =============================================================================

type TimeSegment struct {
	ID         string
	TimeCardID string
	WorkerID   string

	// Date is the contract-local day the segment belongs to (midnight).
	Date time.Time

	// In/Out are wall-clock times of day; InAt/OutAt are the absolute
	// instants used for all arithmetic and cross-midnight comparisons.
	In    ClockTime
	Out   ClockTime
	InAt  time.Time
	OutAt time.Time

	Role Role
	Mode Mode // set for derived segments; which run produced them

	// SourceSegmentID points back at the originating Clock segment. All
	// derived siblings of one clock span share the same value, and their
	// chronological union reconstructs the original span.
	SourceSegmentID string

	Flags Flags

	// CreditedHours is the authoritative value for Unworked segments,
	// distinct from the timestamp-derived duration.
	CreditedHours decimal.Decimal

	// Note records human-readable provenance ("minimum call shortfall", ...).
	Note string
}

// Duration is the timestamp-derived span length.
func (s *TimeSegment) Duration() time.Duration {
	return s.OutAt.Sub(s.InAt)
}

// Hours returns the hours this segment contributes: CreditedHours for
// Unworked segments, the timestamp-derived duration otherwise.
func (s *TimeSegment) Hours() decimal.Decimal {
	if s.Role == RoleUnworked {
		return s.CreditedHours
	}
	return HoursOf(s.Duration())
}

// Clone returns a field-for-field copy. The caller is responsible for
// assigning a fresh ID before inserting the copy anywhere.
func (s *TimeSegment) Clone() *TimeSegment {
	c := *s
	return &c
}

// =============================================================================
// TIME CARD - One (worker, event, contract, date) combination
// =============================================================================

// TimeCard owns a set of Clock segments created externally and, after a
// pipeline run, the derived Billable/Payable/Unworked segments. The pipeline
// only ever rewrites its own derived segments.
type TimeCard struct {
	ID         string
	WorkerID   string
	EventID    string
	ContractID string
	Date       time.Time

	// JobTitle selects title-scoped contract rules (e.g. a raised
	// minimum call for department heads). Empty matches only unscoped rules.
	JobTitle string

	// Stamped by the pipeline for operator visibility.
	LastRunAt *time.Time
	LastError string
}
