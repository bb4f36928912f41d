package contract

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewbill/timecard-engine/segment"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSelectMealPenaltyPrecedence(t *testing.T) {
	definitive := NewRuleSet(ContractRule{
		RuleName: RuleMealPenaltyDefinitive,
		Hour1:    dec("5"),
		Enabled:  true,
	})

	tests := []struct {
		name  string
		c     Contract
		rules RuleSet
		want  MealPenaltyStrategy
	}{
		{
			// GIVEN a definitive rule AND per-threshold hours AND a
			// multiplier, the definitive rule wins
			name: "definitive rule beats everything",
			c: Contract{
				MealPenalty1Hours:      dec("5"),
				MealPenalty1Multiplier: dec("1.5"),
			},
			rules: definitive,
			want:  MealPenaltyAccumulated,
		},
		{
			name:  "per-threshold hours beat the multiplier",
			c:     Contract{MealPenalty1Hours: dec("5"), MealPenalty1Multiplier: dec("1.5")},
			rules: NewRuleSet(),
			want:  MealPenaltyPerThreshold,
		},
		{
			name:  "multiplier above one selects multiplicative",
			c:     Contract{MealPenalty1Multiplier: dec("1.5")},
			rules: NewRuleSet(),
			want:  MealPenaltyMultiplicative,
		},
		{
			// A multiplier of exactly 1 is a no-op, not a strategy.
			name:  "multiplier of one selects none",
			c:     Contract{MealPenalty1Multiplier: dec("1")},
			rules: NewRuleSet(),
			want:  MealPenaltyNone,
		},
		{
			name:  "disabled definitive rule is invisible",
			c:     Contract{},
			rules: NewRuleSet(ContractRule{RuleName: RuleMealPenaltyDefinitive, Enabled: false}),
			want:  MealPenaltyNone,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SelectMealPenalty(&tc.c, tc.rules); got != tc.want {
				t.Fatalf("SelectMealPenalty = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestBetweenUnpaidMeal(t *testing.T) {
	tests := []struct {
		name          string
		before, after string
		want          string
	}{
		{"min of both", "3", "2", "2"},
		{"before smaller", "1.5", "2", "1.5"},
		{"before unset falls back to after", "0", "2", "2"},
		{"after unset falls back to before", "3", "0", "3"},
		{"both unset", "0", "0", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Contract{BeforeUnpaidMeal: dec(tc.before), AfterUnpaidMeal: dec(tc.after)}
			if got := c.BetweenUnpaidMeal(); !got.Equal(dec(tc.want)) {
				t.Fatalf("BetweenUnpaidMeal = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNamedRanksBySequenceStable(t *testing.T) {
	// GIVEN two rules sharing name and sequence, plus a lower-ranked one
	rs := NewRuleSet(
		ContractRule{ID: "b", RuleName: RuleMinimumCall, Sequence: 2, Enabled: true},
		ContractRule{ID: "a1", RuleName: RuleMinimumCall, Sequence: 1, Enabled: true},
		ContractRule{ID: "a2", RuleName: RuleMinimumCall, Sequence: 1, Enabled: true},
		ContractRule{ID: "off", RuleName: RuleMinimumCall, Sequence: 0, Enabled: false},
	)

	// WHEN ranking by name
	named := rs.Named(RuleMinimumCall)

	// THEN disabled rules are dropped, sequence ranks, and equal sequence
	// numbers keep declaration order
	if len(named) != 3 {
		t.Fatalf("Named returned %d rules, want 3", len(named))
	}
	wantOrder := []string{"a1", "a2", "b"}
	for i, w := range wantOrder {
		if named[i].ID != w {
			t.Errorf("named[%d] = %q, want %q", i, named[i].ID, w)
		}
	}

	first, ok := rs.First(RuleMinimumCall)
	if !ok || first.ID != "a1" {
		t.Fatalf("First = %q ok=%v, want a1", first.ID, ok)
	}
}

func TestFirstMissingRule(t *testing.T) {
	rs := NewRuleSet()
	if _, ok := rs.First(RuleDayOfWeek); ok {
		t.Fatal("First on an empty set must report not found")
	}
}

func TestFirstForTitle(t *testing.T) {
	// GIVEN a title-scoped rule ranked above an unscoped fallback
	rs := NewRuleSet(
		ContractRule{ID: "head", RuleName: RuleMinimumCall, Sequence: 1, Text: "Department Head", Enabled: true},
		ContractRule{ID: "any", RuleName: RuleMinimumCall, Sequence: 2, Enabled: true},
	)

	// THEN a matching title takes the scoped rule, others fall through to
	// the unscoped one
	if r, ok := rs.FirstForTitle(RuleMinimumCall, "Department Head"); !ok || r.ID != "head" {
		t.Fatalf("FirstForTitle(head) = %q ok=%v, want head", r.ID, ok)
	}
	if r, ok := rs.FirstForTitle(RuleMinimumCall, "Rigger"); !ok || r.ID != "any" {
		t.Fatalf("FirstForTitle(rigger) = %q ok=%v, want any", r.ID, ok)
	}
	if r, ok := rs.FirstForTitle(RuleMinimumCall, ""); !ok || r.ID != "any" {
		t.Fatalf("FirstForTitle(empty) = %q ok=%v, want any", r.ID, ok)
	}
}

func TestForModeScope(t *testing.T) {
	rs := NewRuleSet(
		ContractRule{ID: "both", Scope: ScopeBoth},
		ContractRule{ID: "bill-only", Scope: ScopeBill},
		ContractRule{ID: "pay-only", Scope: ScopePay},
	)

	bill := rs.ForMode(segment.ModeBill).All()
	if len(bill) != 2 || bill[0].ID != "both" || bill[1].ID != "bill-only" {
		t.Fatalf("bill subset = %v", bill)
	}
	pay := rs.ForMode(segment.ModePay).All()
	if len(pay) != 2 || bill[0].ID != "both" || pay[1].ID != "pay-only" {
		t.Fatalf("pay subset = %v", pay)
	}
}

func TestTargetsWeekday(t *testing.T) {
	r := ContractRule{Day: int(time.Wednesday)}
	if !r.TargetsWeekday(time.Wednesday) {
		t.Fatal("rule must target its configured weekday")
	}
	if r.TargetsWeekday(time.Sunday) {
		t.Fatal("rule must not target other weekdays")
	}
	unset := ContractRule{Day: -1}
	if unset.TargetsWeekday(time.Sunday) {
		t.Fatal("negative day means unset")
	}
}

func TestNightWindowSet(t *testing.T) {
	c := Contract{
		NightStart:      segment.NewClockTime(20, 0),
		NightEnd:        segment.NewClockTime(6, 0),
		NightMultiplier: dec("1.5"),
	}
	if !c.NightWindowSet() {
		t.Fatal("configured night window must be usable")
	}

	// Multiplier at or below 1 disables the window.
	c.NightMultiplier = dec("1")
	if c.NightWindowSet() {
		t.Fatal("multiplier of one must disable the window")
	}

	// A degenerate window (start == end) is unusable.
	c = Contract{NightStart: segment.Midnight, NightEnd: segment.Midnight, NightMultiplier: dec("2")}
	if c.NightWindowSet() {
		t.Fatal("zero-width window must be unusable")
	}
}
