// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/finance-quests/pkg/constants"
)

// ValidateStrategy flags catalog entries whose settings contradict each other.
func ValidateStrategy(questID string, s StrategyConfig) []string {
	var warnings []string

	if s.Protection && s.MonthlyImpact != 0 {
		warnings = append(warnings, fmt.Sprintf("Quest '%s' strategy '%s' is protection-only; its monthly impact %.2f is ignored",
			questID, s.ID, s.MonthlyImpact))
	}
	if !s.Protection && s.MonthlyImpact <= 0 {
		warnings = append(warnings, fmt.Sprintf("Quest '%s' strategy '%s' has no positive monthly impact",
			questID, s.ID))
	}

	return warnings
}

// ConfigValidator collects warnings about a configuration that can still run.
type ConfigValidator struct {
	Quests []QuestConfig
}

type QuestConfig struct {
	ID            string
	Family        string
	MinimumIncome float64
	Strategies    []StrategyConfig
	RewardCount   int
	RewardXP      []int
}

type StrategyConfig struct {
	ID            string
	MonthlyImpact float64
	Protection    bool
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	for _, q := range cv.Quests {
		if q.MinimumIncome > 0 && q.MinimumIncome < constants.DefaultMinimumIncome {
			warnings = append(warnings, fmt.Sprintf("Quest '%s' accepts incomes below %.0f (minimum %.2f)",
				q.ID, constants.DefaultMinimumIncome, q.MinimumIncome))
		}

		switch q.Family {
		case constants.FamilyRisk:
			if len(q.Strategies) == 0 {
				warnings = append(warnings, fmt.Sprintf("Quest '%s' offers no strategies to choose from", q.ID))
			}
		case constants.FamilyBudget:
			if len(q.Strategies) > 0 {
				warnings = append(warnings, fmt.Sprintf("Quest '%s' defines %d strategies the budget steps never offer",
					q.ID, len(q.Strategies)))
			}
		}

		for _, s := range q.Strategies {
			warnings = append(warnings, ValidateStrategy(q.ID, s)...)
		}

		for i, xp := range q.RewardXP {
			if xp <= 0 {
				warnings = append(warnings, fmt.Sprintf("Quest '%s' reward row %d awards no XP", q.ID, i+1))
			}
		}
	}

	return warnings
}
