package contract

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// RULE CATALOG
// =============================================================================

// Canonical rule names. ContractRules reference rules by name.
const (
	RuleDayOfWeek            = "Day of Week"
	RuleConsecutiveDays      = "Consecutive Days"
	RuleMealPenaltyDefinitive = "Meal Penalty (definitive)"
	RuleMinimumCall          = "Minimum Call"
)

// Scope restricts a ContractRule to one derived side. Empty means both.
type Scope string

const (
	ScopeBoth Scope = ""
	ScopeBill Scope = "bill"
	ScopePay  Scope = "pay"
)

// Matches reports whether the scope covers a mode.
func (s Scope) Matches(mode segment.Mode) bool {
	return s == ScopeBoth || string(s) == string(mode)
}

// ContractRule is one ranked parameter set attached to a named rule.
// Multiple ContractRules may share a rule name and a sequence number;
// ties are broken by declaration order, not rejected.
type ContractRule struct {
	ID         string
	ContractID string
	RuleName   string
	Sequence   int
	Scope      Scope

	Hour1       decimal.Decimal
	Hour2       decimal.Decimal
	Multiplier1 decimal.Decimal
	Multiplier2 decimal.Decimal

	// Day is the weekday a "Day of Week" rule targets; negative means unset.
	Day int

	// Ordinal is the consecutive-day ordinal a "Consecutive Days" rule
	// targets (6, 7, 8); zero means unset.
	Ordinal int

	// Text scopes the rule to one job title; empty covers every title.
	Text    string
	Enabled bool
}

// TargetsTitle reports whether the rule covers the given job title.
func (r ContractRule) TargetsTitle(title string) bool {
	return r.Text == "" || r.Text == title
}

// TargetsWeekday reports whether the rule names the given weekday.
func (r ContractRule) TargetsWeekday(wd time.Weekday) bool {
	return r.Day >= 0 && time.Weekday(r.Day) == wd
}

// =============================================================================
// RULE SET - Ordered view over a contract's rules
// =============================================================================

// RuleSet is the rule catalog loaded for one contract. Order is declaration
// order as loaded; Named applies the sequence ranking on top of it.
type RuleSet struct {
	rules []ContractRule
}

func NewRuleSet(rules ...ContractRule) RuleSet {
	return RuleSet{rules: append([]ContractRule(nil), rules...)}
}

func (rs RuleSet) Len() int { return len(rs.rules) }

// All returns the rules in declaration order.
func (rs RuleSet) All() []ContractRule {
	return append([]ContractRule(nil), rs.rules...)
}

// ForMode returns the subset whose scope covers the mode, preserving order.
func (rs RuleSet) ForMode(mode segment.Mode) RuleSet {
	var out []ContractRule
	for _, r := range rs.rules {
		if r.Scope.Matches(mode) {
			out = append(out, r)
		}
	}
	return RuleSet{rules: out}
}

// Named returns the enabled rules with the given name, ranked by sequence.
// Equal sequence numbers keep declaration order (stable sort).
func (rs RuleSet) Named(name string) []ContractRule {
	var out []ContractRule
	for _, r := range rs.rules {
		if r.RuleName == name && r.Enabled {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// First returns the top-ranked enabled rule with the given name.
func (rs RuleSet) First(name string) (ContractRule, bool) {
	named := rs.Named(name)
	if len(named) == 0 {
		return ContractRule{}, false
	}
	return named[0], true
}

// FirstForTitle returns the top-ranked enabled rule with the given name
// that covers the job title. A title-scoped rule outranks an unscoped one
// only by its sequence number.
func (rs RuleSet) FirstForTitle(name, title string) (ContractRule, bool) {
	for _, r := range rs.Named(name) {
		if r.TargetsTitle(title) {
			return r, true
		}
	}
	return ContractRule{}, false
}
