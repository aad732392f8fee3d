package completion

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/internal/quest/metrics"
	"github.com/iwvelando/finance-quests/internal/quest/outcome"
	"github.com/shopspring/decimal"
)

func boolPtr(b bool) *bool {
	return &b
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func budgetResolver() Resolver {
	return Resolver{
		Family:     "budget",
		StreakRule: "commitment",
		Table: NewTable(
			Reward{Case: outcome.AboveTargetNoDeficit, XP: 150, Impact: ImpactNone},
			Reward{Case: outcome.AboveTargetWithDeficit, Committed: boolPtr(true), XP: 120, Impact: ImpactDeficit},
			Reward{Case: outcome.AboveTargetWithDeficit, Committed: boolPtr(false), XP: 80, Impact: ImpactDeficit},
			Reward{Case: outcome.BelowTargetNoDeficit, Committed: boolPtr(true), XP: 120, Impact: ImpactRecovery},
			Reward{Case: outcome.BelowTargetNoDeficit, Committed: boolPtr(false), XP: 80, Impact: ImpactRecovery},
			Reward{Case: outcome.BelowTargetWithDeficit, Committed: boolPtr(true), XP: 140, Impact: ImpactDeficit},
			Reward{Case: outcome.BelowTargetWithDeficit, XP: 90, Impact: ImpactDeficit},
		),
	}
}

func terminal(committed bool) Terminal {
	var data quest.Data
	income, needs, wants, savings := d("2500"), d("1300"), d("700"), d("200")
	data.Merge(quest.Patch{
		MonthlyIncome: &income, ActualNeeds: &needs, ActualWants: &wants, ActualSavings: &savings,
		HasCommitted: boolPtr(committed),
	})
	return Terminal{
		RunID:   "run-1",
		QuestID: "budget-split",
		Data:    data,
		Snapshot: metrics.Snapshot{
			MonthlyIncome:     income,
			RecoveryPotential: d("300"),
			Deficit:           decimal.Zero,
			AggregatedImpact:  decimal.Zero,
		},
		Case: outcome.BelowTargetNoDeficit,
	}
}

func TestTableLookup(t *testing.T) {
	table := budgetResolver().Table
	tests := []struct {
		name      string
		c         outcome.Case
		committed bool
		xp        int
		found     bool
	}{
		{"Wildcard row", outcome.AboveTargetNoDeficit, false, 150, true},
		{"Exact committed row", outcome.BelowTargetNoDeficit, true, 120, true},
		{"Exact uncommitted row", outcome.BelowTargetNoDeficit, false, 80, true},
		{"Exact row beats wildcard", outcome.BelowTargetWithDeficit, true, 140, true},
		{"Wildcard used when exact row absent", outcome.BelowTargetWithDeficit, false, 90, true},
		{"Unknown case", outcome.RiskCritical, true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reward, found := table.Lookup(tt.c, tt.committed)
			if found != tt.found {
				t.Fatalf("Lookup() found = %v, expected %v", found, tt.found)
			}
			if reward.XP != tt.xp {
				t.Errorf("Lookup() xp = %d, expected %d", reward.XP, tt.xp)
			}
		})
	}
}

func TestTableMissing(t *testing.T) {
	if missing := budgetResolver().Table.Missing(outcome.BudgetCases); len(missing) != 0 {
		t.Errorf("Missing() = %v, expected none", missing)
	}
	if missing := budgetResolver().Table.Missing(outcome.RiskCases); len(missing) != 8 {
		t.Errorf("Missing() for risk cases = %d entries, expected 8", len(missing))
	}
}

func TestParseImpactBasis(t *testing.T) {
	for _, name := range []string{"", "none", "recovery", "deficit", "strategies"} {
		if _, err := ParseImpactBasis(name); err != nil {
			t.Errorf("ParseImpactBasis(%q) unexpected error = %v", name, err)
		}
	}
	if _, err := ParseImpactBasis("vibes"); err == nil {
		t.Errorf("ParseImpactBasis(vibes) expected error but got none")
	}
}

func TestResolveCommitted(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	record, err := budgetResolver().Resolve(terminal(true), at)
	if err != nil {
		t.Fatalf("Resolve() unexpected error = %v", err)
	}
	if record.XPAwarded != 120 {
		t.Errorf("XPAwarded = %d, expected 120", record.XPAwarded)
	}
	if record.StreakDelta != 1 {
		t.Errorf("StreakDelta = %d, expected 1", record.StreakDelta)
	}
	if !record.AnnualizedImpact.Equal(d("3600")) {
		t.Errorf("AnnualizedImpact = %s, expected 3600", record.AnnualizedImpact)
	}
	if record.CompletedAt != "2026-03-14T09:30:00Z" {
		t.Errorf("CompletedAt = %s", record.CompletedAt)
	}
	if !record.Inputs.MonthlyIncome.Equal(d("2500")) || !record.Inputs.HasCommitted {
		t.Errorf("Inputs = %+v, expected captured user data", record.Inputs)
	}
}

func TestResolveUncommittedCountsNoImpact(t *testing.T) {
	record, err := budgetResolver().Resolve(terminal(false), time.Now())
	if err != nil {
		t.Fatalf("Resolve() unexpected error = %v", err)
	}
	if !record.AnnualizedImpact.IsZero() {
		t.Errorf("AnnualizedImpact = %s, expected 0 without commitment", record.AnnualizedImpact)
	}
	if record.Metrics.RecoveryPotential.IsZero() {
		t.Errorf("recovery potential should still be reported")
	}
	if record.XPAwarded != 80 {
		t.Errorf("XPAwarded = %d, expected reduced award 80", record.XPAwarded)
	}
	if record.StreakDelta != 0 {
		t.Errorf("StreakDelta = %d, expected 0", record.StreakDelta)
	}
}

func TestResolveCompletionStreakRule(t *testing.T) {
	r := Resolver{
		Family:     "risk",
		StreakRule: "completion",
		Table:      NewTable(Reward{Case: outcome.RiskCaution, XP: 100, Impact: ImpactStrategies}),
	}
	term := terminal(false)
	term.Case = outcome.RiskCaution
	term.Snapshot.AggregatedImpact = d("27.99")

	record, err := r.Resolve(term, time.Now())
	if err != nil {
		t.Fatalf("Resolve() unexpected error = %v", err)
	}
	if record.StreakDelta != 1 || record.XPAwarded != 100 {
		t.Errorf("Resolve() = xp %d streak %d, expected 100 and 1", record.XPAwarded, record.StreakDelta)
	}
	if !record.AnnualizedImpact.IsZero() {
		t.Errorf("AnnualizedImpact = %s, expected 0 without commitment", record.AnnualizedImpact)
	}

	term.Data.Merge(quest.Patch{HasCommitted: boolPtr(true)})
	record, err = r.Resolve(term, time.Now())
	if err != nil {
		t.Fatalf("Resolve() unexpected error = %v", err)
	}
	if !record.AnnualizedImpact.Equal(d("335.88")) {
		t.Errorf("AnnualizedImpact = %s, expected 335.88", record.AnnualizedImpact)
	}
}

func TestResolveMissingReward(t *testing.T) {
	term := terminal(true)
	term.Case = outcome.RiskStable
	if _, err := budgetResolver().Resolve(term, time.Now()); !errors.Is(err, quest.ErrConfiguration) {
		t.Errorf("Resolve() error = %v, expected ErrConfiguration", err)
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := budgetResolver()
	term := terminal(true)

	first, err := r.Resolve(term, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Resolve() unexpected error = %v", err)
	}
	second, err := r.Resolve(term, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Resolve() unexpected error = %v", err)
	}
	first.CompletedAt, second.CompletedAt = "", ""

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("Resolve() is not idempotent:\n%s\n%s", a, b)
	}
}
