/*
runner.go - ApplyRules entry point and per-card orchestration

PURPOSE:
  The Engine ties the repositories to the stage schedule. ApplyRules
  processes each requested time card: load, validate, run both modes'
  stage schedules, route, reconcile, persist - all-or-nothing per card.
  A failure in one card never affects cards already completed or yet to
  run.

RESULT CODES:
  CodeOK              every card succeeded
  CodeNoClockSegments reserved: a card with no clock segments; treated
                      as success with nothing to do
  CodeFailed          at least one card failed; its derived lines were
                      left untouched and the error stamped on the card
*/
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/segment"
)

const (
	CodeOK              = 0
	CodeFailed          = 1
	CodeNoClockSegments = 2
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Cards     CardRepository
	Contracts ContractRepository
	History   HistoryRepository
	Lines     LineRepository

	// Runs is optional; when set, every ApplyRules invocation is recorded.
	Runs RunRepository

	// Now is replaceable for tests. Defaults to time.Now.
	Now func() time.Time

	// NewID is replaceable for tests. Defaults to random UUIDs.
	NewID func() string
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) freshID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return newID()
}

// Result is the outcome of one ApplyRules invocation.
type Result struct {
	Code       int
	Message    string
	SuccessIDs []string
	Failures   map[string]string
}

// =============================================================================
// APPLY RULES
// =============================================================================

// ApplyRules runs the pipeline for each time card in the requested modes.
// Cards for the same worker must be supplied in chronological order; the
// engine performs no implicit ordering.
func (e *Engine) ApplyRules(ctx context.Context, timeCardIDs []string, modes []segment.Mode) (*Result, error) {
	if len(modes) == 0 {
		modes = []segment.Mode{segment.ModeBill, segment.ModePay}
	}

	started := e.now()
	res := &Result{Failures: make(map[string]string)}

	for _, id := range timeCardIDs {
		err := e.processCard(ctx, id, modes)
		switch {
		case err == nil:
			res.SuccessIDs = append(res.SuccessIDs, id)
			e.stamp(ctx, id, "")
		case segment.IsNoWork(err):
			// Reserved code: success with nothing to do.
			res.SuccessIDs = append(res.SuccessIDs, id)
			e.stamp(ctx, id, "")
		default:
			res.Failures[id] = err.Error()
			e.stamp(ctx, id, err.Error())
		}
	}

	if len(res.Failures) > 0 {
		res.Code = CodeFailed
		res.Message = fmt.Sprintf("%d of %d time cards failed", len(res.Failures), len(timeCardIDs))
	} else {
		res.Code = CodeOK
		res.Message = fmt.Sprintf("processed %d time cards", len(timeCardIDs))
	}

	if e.Runs != nil {
		_ = e.Runs.SaveRun(ctx, Run{
			ID:          e.freshID(),
			StartedAt:   started,
			CompletedAt: e.now(),
			Requested:   len(timeCardIDs),
			Succeeded:   len(res.SuccessIDs),
			Failed:      len(res.Failures),
			Message:     res.Message,
		})
	}
	return res, nil
}

func (e *Engine) stamp(ctx context.Context, cardID, runErr string) {
	// Stamping is operator visibility, not correctness; a stamp failure
	// must not fail the card.
	_ = e.Cards.StampRun(ctx, cardID, e.now(), runErr)
}

// =============================================================================
// PER-CARD PROCESSING
// =============================================================================

func (e *Engine) processCard(ctx context.Context, id string, modes []segment.Mode) error {
	card, err := e.Cards.Card(ctx, id)
	if err != nil {
		return fmt.Errorf("load time card: %w", err)
	}
	ctr, err := e.Contracts.Contract(ctx, card.ContractID)
	if err != nil {
		return fmt.Errorf("load contract: %w", err)
	}
	rules, err := e.Contracts.Rules(ctx, card.ContractID)
	if err != nil {
		return fmt.Errorf("load contract rules: %w", err)
	}
	clocks, err := e.Cards.ClockSegments(ctx, card.ID)
	if err != nil {
		return fmt.Errorf("load clock segments: %w", err)
	}
	if len(clocks) == 0 {
		return segment.ErrNoClockSegments
	}

	// Overlap rejection runs before any stage; a failure persists nothing.
	if err := validateClocks(card.ID, clocks); err != nil {
		return err
	}

	history, err := e.History.Before(ctx, card.WorkerID, card.Date)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	var lines []Line
	for _, mode := range modes {
		ex := &Execution{
			Card:     card,
			Contract: ctr,
			Rules:    rules.ForMode(mode),
			Mode:     mode,
			Unworked: segment.NewSequence(),
			History:  history,
			NewID:    e.freshID,
		}
		ex.Strategy = contract.SelectMealPenalty(ctr, ex.Rules)

		ex.Work, err = buildWorking(ex, clocks, false)
		if err != nil {
			return err
		}

		for _, st := range stageSchedule() {
			if err := st.Run(ex); err != nil {
				return &StageError{Stage: st.Name(), Err: err}
			}
		}
		lines = append(lines, buildLines(ex)...)
	}

	existing, err := e.Lines.DerivedLines(ctx, card.ID)
	if err != nil {
		return fmt.Errorf("load persisted lines: %w", err)
	}
	lines = reconcileIDs(existing, lines)

	if err := e.Lines.ReplaceDerived(ctx, card.ID, lines); err != nil {
		return fmt.Errorf("persist lines: %w", err)
	}
	return nil
}
