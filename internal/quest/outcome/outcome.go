// Package outcome classifies a metric snapshot into the discrete case that
// selects a quest's narrative branch and reward tier.
package outcome

import (
	"fmt"

	"github.com/iwvelando/finance-quests/internal/quest/metrics"
	"github.com/shopspring/decimal"
)

// Case is one discrete outcome of a quest run.
type Case string

// Budget family cases cross savings adequacy with deficit presence.
const (
	AboveTargetNoDeficit   Case = "above-target-no-deficit"
	AboveTargetWithDeficit Case = "above-target-with-deficit"
	BelowTargetNoDeficit   Case = "below-target-no-deficit"
	BelowTargetWithDeficit Case = "below-target-with-deficit"
)

// Risk family cases follow the risk tiers.
const (
	RiskCritical    Case = "risk-critical"
	RiskCaution     Case = "risk-caution"
	RiskStable      Case = "risk-stable"
	RiskComfortable Case = "risk-comfortable"
)

// BudgetCases lists every case a BudgetClassifier can return.
var BudgetCases = []Case{AboveTargetNoDeficit, AboveTargetWithDeficit, BelowTargetNoDeficit, BelowTargetWithDeficit}

// RiskCases lists every case a RiskClassifier can return.
var RiskCases = []Case{RiskCritical, RiskCaution, RiskStable, RiskComfortable}

// ParseCase validates a case name.
func ParseCase(name string) (Case, error) {
	c := Case(name)
	for _, known := range append(append([]Case{}, BudgetCases...), RiskCases...) {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown outcome case %q", name)
}

// Classifier maps a snapshot to exactly one case.
type Classifier interface {
	Classify(s metrics.Snapshot) Case
	// Cases lists every value Classify may return.
	Cases() []Case
}

// BudgetClassifier crosses savings adequacy with deficit presence.
type BudgetClassifier struct {
	// SavingsTargetRatio is the share of the ideal savings envelope that
	// counts as adequate savings.
	SavingsTargetRatio float64
	// DeficitTolerance is the overspending ignored before a deficit counts.
	DeficitTolerance decimal.Decimal
}

// Classify implements Classifier.
func (c BudgetClassifier) Classify(s metrics.Snapshot) Case {
	target := s.IdealEnvelopes.Savings.Mul(decimal.NewFromFloat(c.SavingsTargetRatio))
	above := s.ActualSavings.GreaterThanOrEqual(target)
	deficit := s.Deficit.GreaterThan(c.DeficitTolerance)

	switch {
	case above && !deficit:
		return AboveTargetNoDeficit
	case above && deficit:
		return AboveTargetWithDeficit
	case !above && !deficit:
		return BelowTargetNoDeficit
	default:
		return BelowTargetWithDeficit
	}
}

// Cases implements Classifier.
func (c BudgetClassifier) Cases() []Case {
	return BudgetCases
}

// RiskClassifier maps the snapshot's risk tier to a case. The tier itself
// comes from the quest type's own thresholds.
type RiskClassifier struct{}

// Classify implements Classifier.
func (RiskClassifier) Classify(s metrics.Snapshot) Case {
	switch s.RiskTier {
	case metrics.TierComfortable:
		return RiskComfortable
	case metrics.TierStable:
		return RiskStable
	case metrics.TierCaution:
		return RiskCaution
	default:
		return RiskCritical
	}
}

// Cases implements Classifier.
func (RiskClassifier) Cases() []Case {
	return RiskCases
}
