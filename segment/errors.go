/*
errors.go - Error taxonomy for the rule pipeline

PURPOSE:
  All pipeline error classes in one place. Callers classify with errors.Is;
  structured variants carry the offending interval or parameter.

ERROR CLASSES:
  1. Validation  - overlapping clock segments; fatal before any stage runs
  2. Config      - malformed rule/contract parameters; a stage may skip the
                   rule where that is safe, otherwise fatal for the card
  3. NoWork      - empty clock set; treated as success with nothing to do
  4. Invariant   - count/cursor desynchronization after an insertion; must
                   never occur in a correct implementation

USAGE:
  if errors.Is(err, segment.ErrNoClockSegments) {
      // nothing to do for this card
  }

SEE ALSO:
  - pipeline: producers of these errors
*/
package segment

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoClockSegments is returned when a time card has no clock segments.
	// Non-fatal: callers treat it as "nothing to do".
	ErrNoClockSegments = errors.New("no clock segments")

	// ErrOverlap is returned when two clock segments overlap in time.
	// Always fatal; the card's pipeline aborts before any stage runs.
	ErrOverlap = errors.New("clock segments overlap")

	// ErrBadRuleConfig is returned for malformed or missing rule/contract
	// parameters.
	ErrBadRuleConfig = errors.New("invalid rule configuration")

	// ErrCursorDrift is returned when a sequence count or cursor has drifted
	// out of sync with an insertion.
	ErrCursorDrift = errors.New("sequence cursor out of sync with insertion")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OverlapError names the offending interval pair.
type OverlapError struct {
	TimeCardID string
	PrevOut    time.Time
	NextIn     time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("clock segments overlap on card %s: next span starts %s before previous ends %s",
		e.TimeCardID, e.NextIn.Format(time.RFC3339), e.PrevOut.Format(time.RFC3339))
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// ConfigError names the rule and parameter that could not be applied.
type ConfigError struct {
	Rule   string
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("rule %q: parameter %s %s", e.Rule, e.Param, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrBadRuleConfig }

// InvariantError reports a stage whose bookkeeping broke the cursor contract.
type InvariantError struct {
	Stage  string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrCursorDrift }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNoWork reports the "empty clock set" case callers treat as success.
func IsNoWork(err error) bool { return errors.Is(err, ErrNoClockSegments) }

// IsFatal reports whether the error must abort the card's run entirely.
func IsFatal(err error) bool {
	return err != nil && !IsNoWork(err)
}
