package contract

import "github.com/shopspring/decimal"

// =============================================================================
// MEAL PENALTY STRATEGY SELECTION
// =============================================================================

// MealPenaltyStrategy is the evaluator variant a contract selects. The
// choice is made once, before the pipeline runs, so the stage itself never
// re-checks contract fields.
type MealPenaltyStrategy int

const (
	// MealPenaltyNone disables the stage.
	MealPenaltyNone MealPenaltyStrategy = iota

	// MealPenaltyAccumulated accrues premium minutes past a single threshold
	// across the whole card and appends one penalty segment.
	MealPenaltyAccumulated

	// MealPenaltyPerThreshold appends a tier-specific penalty segment the
	// moment a tier threshold is crossed within a break window.
	MealPenaltyPerThreshold

	// MealPenaltyMultiplicative flags (and where necessary splits) the
	// worked segments themselves by penalty zone. The only variant that
	// splits existing segments rather than appending standalone penalties.
	MealPenaltyMultiplicative
)

func (s MealPenaltyStrategy) String() string {
	switch s {
	case MealPenaltyAccumulated:
		return "accumulated"
	case MealPenaltyPerThreshold:
		return "per-threshold"
	case MealPenaltyMultiplicative:
		return "multiplicative"
	default:
		return "none"
	}
}

// SelectMealPenalty picks the strategy for a contract. The checks are
// mutually exclusive and ordered: a definitive rule wins, then per-threshold
// hours on the contract, then a multiplicative tier-1 multiplier.
func SelectMealPenalty(c *Contract, rules RuleSet) MealPenaltyStrategy {
	if _, ok := rules.First(RuleMealPenaltyDefinitive); ok {
		return MealPenaltyAccumulated
	}
	if c.MealPenalty1Hours.GreaterThan(decimal.Zero) {
		return MealPenaltyPerThreshold
	}
	if c.MealPenalty1Multiplier.GreaterThan(decimal.NewFromInt(1)) {
		return MealPenaltyMultiplicative
	}
	return MealPenaltyNone
}
