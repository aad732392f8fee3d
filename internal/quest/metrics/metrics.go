// Package metrics derives the financial figures of a quest run from the raw
// user inputs. Every function is pure: the same inputs always produce the
// same outputs and nothing is cached between calls.
package metrics

import (
	"fmt"
	"math"

	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// RiskTier orders the disposable-ratio classification from worst to best.
type RiskTier int

const (
	TierCritical RiskTier = iota
	TierCaution
	TierStable
	TierComfortable
)

var tierNames = [...]string{"CRITICAL", "CAUTION", "STABLE", "COMFORTABLE"}

func (t RiskTier) String() string {
	if t < TierCritical || t > TierComfortable {
		return fmt.Sprintf("RiskTier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalText renders the tier name.
func (t RiskTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier name.
func (t *RiskTier) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseRiskTier returns the tier with the given name.
func ParseRiskTier(name string) (RiskTier, error) {
	for i, n := range tierNames {
		if n == name {
			return RiskTier(i), nil
		}
	}
	return TierCritical, fmt.Errorf("unknown risk tier %q", name)
}

// Thresholds are the ascending lower bounds of the CAUTION, STABLE and
// COMFORTABLE tiers on the disposable ratio.
type Thresholds struct {
	Caution     float64
	Stable      float64
	Comfortable float64
}

// Proportions split income into the three envelopes.
type Proportions struct {
	Needs   float64
	Wants   float64
	Savings float64
}

// Disposable is income left after fixed charges.
type Disposable struct {
	Amount decimal.Decimal `json:"amount"`
	Ratio  float64         `json:"ratio"`
}

// Envelopes are the ideal needs/wants/savings amounts.
type Envelopes struct {
	Needs   decimal.Decimal `json:"needs"`
	Wants   decimal.Decimal `json:"wants"`
	Savings decimal.Decimal `json:"savings"`
}

// Total returns the sum of the three envelopes.
func (e Envelopes) Total() decimal.Decimal {
	return mathutil.Sum(e.Needs, e.Wants, e.Savings)
}

// Impact aggregates the selected strategies.
type Impact struct {
	Monthly         decimal.Decimal `json:"monthly"`
	ProtectionCount int             `json:"protectionCount"`
}

// ComputeDisposable returns income minus charges and its share of income.
// The ratio is negative when charges exceed income.
func ComputeDisposable(income, charges decimal.Decimal) (Disposable, error) {
	if !income.IsPositive() {
		return Disposable{}, quest.NewInputError(quest.FieldMonthlyIncome, "must be greater than zero, got %s", income)
	}
	amount := income.Sub(charges)
	ratio := math.Min(mathutil.Ratio(amount, income), 1)
	return Disposable{Amount: amount, Ratio: ratio}, nil
}

// ClassifyRisk maps a disposable ratio onto a tier. A ratio equal to a
// boundary belongs to the safer tier.
func ClassifyRisk(ratio float64, th Thresholds) RiskTier {
	switch {
	case ratio >= th.Comfortable:
		return TierComfortable
	case ratio >= th.Stable:
		return TierStable
	case ratio >= th.Caution:
		return TierCaution
	default:
		return TierCritical
	}
}

// ComputeEnvelopes splits income by proportions. Needs and wants are rounded
// to cents and savings receives the remainder, so the three always add up
// to income exactly.
func ComputeEnvelopes(income decimal.Decimal, p Proportions) Envelopes {
	needs := mathutil.Share(income, p.Needs)
	wants := mathutil.Share(income, p.Wants)
	return Envelopes{
		Needs:   needs,
		Wants:   wants,
		Savings: income.Sub(needs).Sub(wants),
	}
}

// ComputeRecoveryAndDeficit returns how much more the user could save to
// reach the ideal savings envelope, and how much declared spending exceeds
// income. Both are never negative.
func ComputeRecoveryAndDeficit(ideal Envelopes, actualNeeds, actualWants, actualSavings, income decimal.Decimal) (recovery, deficit decimal.Decimal) {
	recovery = mathutil.NonNegative(ideal.Savings.Sub(actualSavings))
	deficit = mathutil.NonNegative(mathutil.Sum(actualNeeds, actualWants, actualSavings).Sub(income))
	return recovery, deficit
}

// AggregateImpact sums the monthly impact of the selected monetary
// strategies. Protection strategies are counted separately.
func AggregateImpact(selected []string, catalog quest.Catalog) (Impact, error) {
	impact := Impact{Monthly: decimal.Zero}
	for _, id := range selected {
		s, ok := catalog.Lookup(id)
		if !ok {
			return Impact{}, quest.NewInputError(quest.FieldSelectedStrategies, "unknown strategy %q", id)
		}
		if s.Protection {
			impact.ProtectionCount++
			continue
		}
		impact.Monthly = impact.Monthly.Add(s.MonthlyImpact)
	}
	return impact, nil
}
