/*
Package pipeline implements the contract-driven rule pipeline that turns a
time card's raw clock segments into billable and payable entries.

PURPOSE:
  For each time card and each requested mode (bill, pay - processed
  independently but symmetrically) the engine seeds a working sequence from
  the card's clock segments and runs a FIXED total order of stages:

    midnight split -> meal penalty -> minimum call -> before/after unpaid
    meal -> midnight split (again) -> night rate -> daily overtime ->
    weekly overtime -> consecutive days -> day of week

  then routes every finished segment's hours into exactly one of six
  columns and persists the result, reconciling against previously
  persisted lines by id reuse.

KEY CONCEPTS:
  - Execution: one card, one mode, the three working sequences
  - Stage: a single transformation step over an Execution
  - Repositories: the only I/O boundaries (cards, contracts, history, lines)

CONCURRENCY:
  Processing is single-threaded and synchronous per time card; stages run
  strictly sequentially because each depends on the mutated output of the
  previous one. Time cards for the same worker are order-dependent (the
  history repositories read prior cards' persisted results) and must be
  processed in chronological order by the caller. Any stage failure aborts
  persistence for that card; no partial commit.

SEE ALSO:
  - runner.go: ApplyRules entry point and per-card orchestration
  - columns.go: the priority-cascade column router
  - segment: the Sequence cursor contract every inserting stage honors
*/
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// REPOSITORIES - The pipeline's only I/O boundaries
// =============================================================================

// CardRepository loads time cards and their clock segments, and stamps
// run results back for operator visibility.
type CardRepository interface {
	Card(ctx context.Context, id string) (*segment.TimeCard, error)
	ClockSegments(ctx context.Context, timeCardID string) ([]*segment.TimeSegment, error)
	StampRun(ctx context.Context, timeCardID string, at time.Time, runErr string) error
}

// ContractRepository loads the read-only contract and rule catalog.
type ContractRepository interface {
	Contract(ctx context.Context, id string) (*contract.Contract, error)
	Rules(ctx context.Context, contractID string) (contract.RuleSet, error)
}

// HistoryRepository is the explicit read dependency for the stages that
// look across time cards (meal penalty seeding, weekly overtime,
// consecutive days). Before returns the worker's derived segments from
// cards strictly before day, ascending by InAt.
type HistoryRepository interface {
	Before(ctx context.Context, workerID string, day time.Time) ([]*segment.TimeSegment, error)
}

// LineRepository persists routed lines. ReplaceDerived must be atomic:
// upsert the given lines and delete any previously persisted derived lines
// for the card that are no longer present.
type LineRepository interface {
	DerivedLines(ctx context.Context, timeCardID string) ([]Line, error)
	ReplaceDerived(ctx context.Context, timeCardID string, lines []Line) error
}

// RunRepository records one ApplyRules invocation.
type RunRepository interface {
	SaveRun(ctx context.Context, run Run) error
}

// Run is the persisted summary of one ApplyRules invocation.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt time.Time
	Requested   int
	Succeeded   int
	Failed      int
	Message     string
}

// =============================================================================
// EXECUTION - One card, one mode
// =============================================================================

// Execution carries the state a stage operates on. Work holds the mode's
// billable or payable sequence; Unworked the credited segments this mode's
// run creates (shortfall padding, meal penalties).
type Execution struct {
	Card     *segment.TimeCard
	Contract *contract.Contract

	// Rules is already filtered to this execution's mode.
	Rules contract.RuleSet

	Mode     segment.Mode
	Strategy contract.MealPenaltyStrategy

	Work     *segment.Sequence
	Unworked *segment.Sequence

	// History is the worker's prior derived segments, ascending by InAt.
	History []*segment.TimeSegment

	NewID func() string
}

// modeHistory filters history down to this mode's worked role.
func (ex *Execution) modeHistory() []*segment.TimeSegment {
	role := ex.Mode.RoleFor()
	var out []*segment.TimeSegment
	for _, s := range ex.History {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// derived returns a new derived segment carrying the card's identity and
// this execution's mode.
func (ex *Execution) derived(role segment.Role) *segment.TimeSegment {
	return &segment.TimeSegment{
		ID:         ex.NewID(),
		TimeCardID: ex.Card.ID,
		WorkerID:   ex.Card.WorkerID,
		Role:       role,
		Mode:       ex.Mode,
	}
}

// =============================================================================
// STAGES
// =============================================================================

// Stage is one transformation step. Stages mutate the Execution's sequences
// in place; a returned error aborts the card's run.
type Stage interface {
	Name() string
	Run(ex *Execution) error
}

// stageSchedule is the fixed total order. The midnight splitter appears
/// twice on purpose: a single invocation splits at most one crossing, and
// minimum-call padding can push a sequence back across midnight.
func stageSchedule() []Stage {
	return []Stage{
		midnightSplitter{},
		mealPenaltyStage{},
		minimumCallStage{},
		mealAdjustStage{},
		midnightSplitter{},
		nightRateStage{},
		dailyOvertimeStage{},
		weeklyOvertimeStage{},
		consecutiveDaysStage{},
		dayOfWeekStage{},
	}
}

// StageError names the stage a card's run failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// =============================================================================
// SHARED STAGE HELPERS
// =============================================================================

func newID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// splitAtInstant splits the segment at index i at an absolute instant
// strictly inside its span. The head keeps the segment's identity; the tail
// is a fresh copy inserted immediately after. Wall clocks on both pieces
// derive from the absolute instant, never the reverse, so splits inside
// after-midnight pieces land on the right calendar day. Returns the tail's
// index, which the caller must use to advance its cursor.
func splitAtInstant(seq *segment.Sequence, i int, at time.Time, freshID func() string) int {
	seg := seq.At(i)
	tail := seg.Clone()
	tail.ID = freshID()
	tail.InAt = at
	tail.In = segment.ClockOf(at)
	tail.Date = segment.Day(at)
	seg.OutAt = at
	seg.Out = segment.ClockOf(at)
	return seq.InsertAfter(i, tail)
}

// mealBreakGap reports whether the gap between two adjacent segments is an
// implicit qualifying break (>= meal break min). Callers that care about
// call boundaries must check callBoundary first; a boundary-sized gap
// qualifies here too.
func mealBreakGap(c *contract.Contract, prev, cur *segment.TimeSegment) bool {
	return c.MealBreakMin > 0 && cur.InAt.Sub(prev.OutAt) >= c.MealBreakMin
}

// callBoundary reports whether the gap between two adjacent segments
// exceeds the maximum meal break, i.e. starts a new call.
func callBoundary(c *contract.Contract, prev, cur *segment.TimeSegment) bool {
	return cur.InAt.Sub(prev.OutAt) > c.MealBreakMax
}

// workedHours is a segment's contribution to worked-time accumulation:
// unpaid meals contribute nothing, paid meals are exempt as well, everything
// else contributes its span (or credited hours for unworked segments).
func workedHours(seg *segment.TimeSegment) decimal.Decimal {
	if seg.Flags.IsMeal() {
		return decimal.Zero
	}
	return seg.Hours()
}
