/*
Package contract holds the read-only configuration the rule pipeline runs
against: the labor contract's thresholds and multipliers, and the ranked
rule catalog attached to it.

PURPOSE:
  A Contract is immutable for the duration of a run. It answers the
  questions the stages ask: how long must a call be, how much paid time
  must surround an unpaid meal, when does night rate start, where do the
  overtime tiers sit. ContractRules supply the per-rule parameter sets
  for the named rules ("Day of Week", "Consecutive Days", ...).

KEY CONCEPTS:
  - Contract: the fixed thresholds and switches
  - ContractRule: a ranked, optionally mode-scoped parameter set
  - MealPenaltyStrategy: which of the three evaluator variants applies,
    selected ONCE per contract before the pipeline runs (strategy.go)

DESIGN PRINCIPLES:
  1. Hour quantities are decimal.Decimal; gaps and windows that are pure
     durations are time.Duration
  2. Strategy selection is a tagged enum, not boolean field checks
     scattered through the stages

SEE ALSO:
  - rule.go: ContractRule and the RuleSet catalog
  - strategy.go: meal penalty strategy selection
*/
package contract

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// CONTRACT - Immutable run configuration
// =============================================================================

type Contract struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Meal thresholds. BeforeUnpaidMeal is the paid time required before the
	// first unpaid meal of a call; AfterUnpaidMeal the paid time required
	// after the last one. The between requirement derives from both.
	BeforeUnpaidMeal decimal.Decimal `json:"before_unpaid_meal"`
	AfterUnpaidMeal  decimal.Decimal `json:"after_unpaid_meal"`

	// MealBreakMin is the smallest gap that counts as a qualifying break;
	// MealBreakMax the largest gap still inside one call. A gap beyond
	// MealBreakMax starts a new call.
	MealBreakMin time.Duration `json:"meal_break_min"`
	MealBreakMax time.Duration `json:"meal_break_max"`

	// Minimum call hours. The first call of a card uses First, subsequent
	// calls use Next (possibly overridden upward by a "Minimum Call" rule).
	MinimumCallFirst decimal.Decimal `json:"minimum_call_first"`
	MinimumCallNext  decimal.Decimal `json:"minimum_call_next"`

	// Night window and its multiplier. A window may cross midnight
	// (e.g. 20:00 - 06:00). Multiplier <= 1 disables the stage.
	NightStart      segment.ClockTime `json:"night_start"`
	NightEnd        segment.ClockTime `json:"night_end"`
	NightMultiplier decimal.Decimal   `json:"night_multiplier"`

	// Daily overtime tiers (hours into the day) and weekly threshold.
	DailyOT1Hours      decimal.Decimal `json:"daily_ot1_hours"`
	DailyOT2Hours      decimal.Decimal `json:"daily_ot2_hours"`
	DailyOT1Multiplier decimal.Decimal `json:"daily_ot1_multiplier"`
	DailyOT2Multiplier decimal.Decimal `json:"daily_ot2_multiplier"`
	WeeklyOTHours      decimal.Decimal `json:"weekly_ot_hours"`

	// MinimumsAreWorkedTime routes shortfall padding into the worked
	// (billable/payable) sequence instead of the separate unworked bucket.
	MinimumsAreWorkedTime bool `json:"minimums_are_worked_time"`

	// Whether minimum-call padding participates in overtime / night
	// accumulation.
	MinimumsInOvertime bool `json:"minimums_in_overtime"`
	MinimumsInNight    bool `json:"minimums_in_night"`

	StartOfWeek time.Weekday `json:"start_of_week"`

	// Meal penalty parameters. Which variant applies is decided by
	// SelectMealPenalty; see strategy.go for the precedence.
	MealPenalty1Hours      decimal.Decimal `json:"meal_penalty1_hours"`
	MealPenalty2Hours      decimal.Decimal `json:"meal_penalty2_hours"`
	MealPenalty1Credit     decimal.Decimal `json:"meal_penalty1_credit"`
	MealPenalty2Credit     decimal.Decimal `json:"meal_penalty2_credit"`
	MealPenalty1Multiplier decimal.Decimal `json:"meal_penalty1_multiplier"`
	MealPenalty2Multiplier decimal.Decimal `json:"meal_penalty2_multiplier"`

	// FlushShortfallAtCallBoundary controls whether a pending
	// after-unpaid-meal shortfall is evaluated when a new call boundary is
	// reached (true) or discarded with the counters (false). The source
	// behavior here is still being refined, so it is a policy switch
	// rather than a fixed rule.
	FlushShortfallAtCallBoundary bool `json:"flush_shortfall_at_call_boundary"`
}

// BetweenUnpaidMeal is the paid time required between two unpaid meals:
// min(before, after) unless one of them is unset.
func (c *Contract) BetweenUnpaidMeal() decimal.Decimal {
	switch {
	case c.BeforeUnpaidMeal.IsZero():
		return c.AfterUnpaidMeal
	case c.AfterUnpaidMeal.IsZero():
		return c.BeforeUnpaidMeal
	case c.BeforeUnpaidMeal.LessThan(c.AfterUnpaidMeal):
		return c.BeforeUnpaidMeal
	default:
		return c.AfterUnpaidMeal
	}
}

// NightWindowSet reports whether a usable night window is configured.
func (c *Contract) NightWindowSet() bool {
	return c.NightStart != c.NightEnd && c.NightMultiplier.GreaterThan(decimal.NewFromInt(1))
}
