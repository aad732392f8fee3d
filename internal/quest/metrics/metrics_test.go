package metrics

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/shopspring/decimal"
)

var (
	defaultThresholds  = Thresholds{Caution: 0.15, Stable: 0.30, Comfortable: 0.50}
	defaultProportions = Proportions{Needs: 0.5, Wants: 0.3, Savings: 0.2}
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeDisposable(t *testing.T) {
	tests := []struct {
		name           string
		income         string
		charges        string
		expectedAmount string
		expectedRatio  float64
		expectErr      bool
	}{
		{"Example scenario", "2500", "1500", "1000", 0.4, false},
		{"No charges", "2000", "0", "2000", 1, false},
		{"Charges exceed income", "2000", "2500", "-500", -0.25, false},
		{"Zero income", "0", "100", "", 0, true},
		{"Negative income", "-10", "0", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ComputeDisposable(d(tt.income), d(tt.charges))
			if tt.expectErr {
				if err == nil {
					t.Fatalf("ComputeDisposable() expected error but got none")
				}
				if !errors.Is(err, quest.ErrInvalidInput) {
					t.Errorf("ComputeDisposable() error = %v, expected ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ComputeDisposable() unexpected error = %v", err)
			}
			if !result.Amount.Equal(d(tt.expectedAmount)) {
				t.Errorf("ComputeDisposable() amount = %s, expected %s", result.Amount, tt.expectedAmount)
			}
			if result.Ratio != tt.expectedRatio {
				t.Errorf("ComputeDisposable() ratio = %v, expected %v", result.Ratio, tt.expectedRatio)
			}
		})
	}
}

func TestDisposableRatioStrictlyDecreasing(t *testing.T) {
	for _, income := range []string{"500", "1234.56", "2500", "99999.99"} {
		previous, err := ComputeDisposable(d(income), decimal.Zero)
		if err != nil {
			t.Fatalf("ComputeDisposable(%s, 0) unexpected error = %v", income, err)
		}
		for charges := d("0.01"); charges.LessThan(d(income).Mul(d("1.5"))); charges = charges.Add(d("37.13")) {
			current, err := ComputeDisposable(d(income), charges)
			if err != nil {
				t.Fatalf("ComputeDisposable(%s, %s) unexpected error = %v", income, charges, err)
			}
			if current.Ratio >= previous.Ratio {
				t.Fatalf("ratio not strictly decreasing for income %s: %v then %v at charges %s",
					income, previous.Ratio, current.Ratio, charges)
			}
			previous = current
		}
	}
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected RiskTier
	}{
		{-0.5, TierCritical},
		{0, TierCritical},
		{0.1499, TierCritical},
		{0.15, TierCaution},
		{0.29, TierCaution},
		{0.30, TierStable},
		{0.40, TierStable},
		{0.50, TierComfortable},
		{1, TierComfortable},
	}

	for _, tt := range tests {
		if result := ClassifyRisk(tt.ratio, defaultThresholds); result != tt.expected {
			t.Errorf("ClassifyRisk(%v) = %s, expected %s", tt.ratio, result, tt.expected)
		}
	}
}

func TestRiskTierText(t *testing.T) {
	for tier := TierCritical; tier <= TierComfortable; tier++ {
		text, err := tier.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() unexpected error = %v", err)
		}
		var parsed RiskTier
		if err := parsed.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) unexpected error = %v", text, err)
		}
		if parsed != tier {
			t.Errorf("UnmarshalText(%s) = %s, expected %s", text, parsed, tier)
		}
	}
	if _, err := ParseRiskTier("DIRE"); err == nil {
		t.Errorf("ParseRiskTier(DIRE) expected error but got none")
	}
}

func TestComputeEnvelopes(t *testing.T) {
	result := ComputeEnvelopes(d("2500"), defaultProportions)
	if !result.Needs.Equal(d("1250")) || !result.Wants.Equal(d("750")) || !result.Savings.Equal(d("500")) {
		t.Errorf("ComputeEnvelopes(2500) = %s/%s/%s, expected 1250/750/500",
			result.Needs, result.Wants, result.Savings)
	}
}

func TestEnvelopeSumInvariant(t *testing.T) {
	proportions := []Proportions{
		defaultProportions,
		{Needs: 1.0 / 3, Wants: 1.0 / 3, Savings: 1.0 / 3},
		{Needs: 0.555, Wants: 0.333, Savings: 0.112},
	}
	for _, p := range proportions {
		for income := d("0.01"); income.LessThan(d("10000")); income = income.Add(d("13.37")) {
			result := ComputeEnvelopes(income, p)
			if !result.Total().Equal(income) {
				t.Fatalf("ComputeEnvelopes(%s, %+v) sums to %s", income, p, result.Total())
			}
		}
	}
}

func TestComputeRecoveryAndDeficit(t *testing.T) {
	ideal := ComputeEnvelopes(d("2500"), defaultProportions)
	tests := []struct {
		name             string
		needs            string
		wants            string
		savings          string
		expectedRecovery string
		expectedDeficit  string
	}{
		{"Savings below target", "1300", "700", "200", "300", "0"},
		{"Overspending", "1600", "900", "300", "200", "300"},
		{"Savings above target", "1000", "500", "800", "0", "0"},
		{"Above target with deficit", "1500", "600", "600", "0", "200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recovery, deficit := ComputeRecoveryAndDeficit(ideal, d(tt.needs), d(tt.wants), d(tt.savings), d("2500"))
			if !recovery.Equal(d(tt.expectedRecovery)) {
				t.Errorf("recovery = %s, expected %s", recovery, tt.expectedRecovery)
			}
			if !deficit.Equal(d(tt.expectedDeficit)) {
				t.Errorf("deficit = %s, expected %s", deficit, tt.expectedDeficit)
			}
		})
	}
}

func TestRecoveryAndDeficitNonNegative(t *testing.T) {
	ideal := ComputeEnvelopes(d("3000"), defaultProportions)
	amounts := []string{"0", "150", "600", "1200", "3100"}
	for _, needs := range amounts {
		for _, wants := range amounts {
			for _, savings := range amounts {
				recovery, deficit := ComputeRecoveryAndDeficit(ideal, d(needs), d(wants), d(savings), d("3000"))
				if recovery.IsNegative() || deficit.IsNegative() {
					t.Fatalf("negative result for %s/%s/%s: recovery %s deficit %s", needs, wants, savings, recovery, deficit)
				}
			}
		}
	}
}

func TestAggregateImpact(t *testing.T) {
	catalog := quest.NewCatalog(
		quest.Strategy{ID: "negotiate-overdraft", MonthlyImpact: d("15")},
		quest.Strategy{ID: "cancel-subscription", MonthlyImpact: d("12.99")},
		quest.Strategy{ID: "balance-alert", Protection: true},
	)

	impact, err := AggregateImpact([]string{"negotiate-overdraft", "cancel-subscription", "balance-alert"}, catalog)
	if err != nil {
		t.Fatalf("AggregateImpact() unexpected error = %v", err)
	}
	if !impact.Monthly.Equal(d("27.99")) {
		t.Errorf("AggregateImpact() monthly = %s, expected 27.99", impact.Monthly)
	}
	if impact.ProtectionCount != 1 {
		t.Errorf("AggregateImpact() protectionCount = %d, expected 1", impact.ProtectionCount)
	}

	if _, err := AggregateImpact([]string{"lottery"}, catalog); !errors.Is(err, quest.ErrInvalidInput) {
		t.Errorf("AggregateImpact() with unknown strategy error = %v, expected ErrInvalidInput", err)
	}
}

func TestCompute(t *testing.T) {
	params := Params{
		ChargesField: quest.FieldActualNeeds,
		Thresholds:   defaultThresholds,
		Proportions:  defaultProportions,
		Catalog:      quest.NewCatalog(),
	}

	var data quest.Data
	if _, err := Compute(data, params); !errors.Is(err, quest.ErrInvalidInput) {
		t.Fatalf("Compute() without income error = %v, expected ErrInvalidInput", err)
	}

	income, needs, wants, savings := d("2500"), d("1500"), d("800"), d("200")
	data.Merge(quest.Patch{MonthlyIncome: &income, ActualNeeds: &needs, ActualWants: &wants, ActualSavings: &savings})

	snapshot, err := Compute(data, params)
	if err != nil {
		t.Fatalf("Compute() unexpected error = %v", err)
	}
	if !snapshot.DisposableIncome.Equal(d("1000")) {
		t.Errorf("DisposableIncome = %s, expected 1000", snapshot.DisposableIncome)
	}
	if snapshot.RiskTier != TierStable {
		t.Errorf("RiskTier = %s, expected STABLE", snapshot.RiskTier)
	}
	if !snapshot.RecoveryPotential.Equal(d("300")) {
		t.Errorf("RecoveryPotential = %s, expected 300", snapshot.RecoveryPotential)
	}
	if !snapshot.Deficit.IsZero() {
		t.Errorf("Deficit = %s, expected 0", snapshot.Deficit)
	}

	again, err := Compute(data, params)
	if err != nil {
		t.Fatalf("Compute() unexpected error = %v", err)
	}
	first, _ := json.Marshal(snapshot)
	second, _ := json.Marshal(again)
	if string(first) != string(second) {
		t.Errorf("Compute() is not deterministic: %s vs %s", first, second)
	}

	derived := snapshot.Derived()
	if !derived.Valid || !derived.RecoveryPotential.Equal(d("300")) {
		t.Errorf("Derived() = %+v, expected valid figures", derived)
	}
}
