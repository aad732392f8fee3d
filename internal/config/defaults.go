package config

import "github.com/iwvelando/finance-quests/pkg/constants"

func boolPtr(b bool) *bool {
	return &b
}

// DefaultConfiguration returns the product defaults: a 50/30/20 budget quest
// and an overdraft risk quest.
func DefaultConfiguration() *Configuration {
	conf := &Configuration{
		Logging:     LoggingConfig{Level: "info", Format: "json"},
		Output:      OutputConfig{Format: constants.OutputFormatPretty},
		Persistence: PersistenceConfig{Driver: constants.StoreDriverNone},
		Quests: map[string]QuestConfig{
			"budget-split": {
				Title:          "50/30/20 budget split",
				Family:         constants.FamilyBudget,
				Classification: ClassificationConfig{SavingsTargetRatio: 1},
				StreakRule:     constants.StreakOnCommitment,
				Rewards: []RewardConfig{
					{Case: "above-target-no-deficit", XP: 150, Impact: "none"},
					{Case: "above-target-with-deficit", Committed: boolPtr(true), XP: 120, Impact: "deficit"},
					{Case: "above-target-with-deficit", Committed: boolPtr(false), XP: 80, Impact: "deficit"},
					{Case: "below-target-no-deficit", Committed: boolPtr(true), XP: 120, Impact: "recovery"},
					{Case: "below-target-no-deficit", Committed: boolPtr(false), XP: 80, Impact: "recovery"},
					{Case: "below-target-with-deficit", Committed: boolPtr(true), XP: 140, Impact: "deficit"},
					{Case: "below-target-with-deficit", Committed: boolPtr(false), XP: 90, Impact: "deficit"},
				},
			},
			"overdraft-risk": {
				Title:      "Overdraft risk check",
				Family:     constants.FamilyRisk,
				StreakRule: constants.StreakOnCompletion,
				Strategies: []StrategyConfig{
					{ID: "negotiate-overdraft", Label: "Negotiate overdraft fees with the bank", MonthlyImpact: 15, RequiresAction: true},
					{ID: "cancel-unused-subscription", Label: "Cancel an unused subscription", MonthlyImpact: 12.99},
					{ID: "switch-bank-plan", Label: "Move to a cheaper account plan", MonthlyImpact: 8, RequiresAction: true},
					{ID: "balance-alert", Label: "Low balance alert", Protection: true},
					{ID: "buffer-transfer", Label: "Automatic buffer transfer on payday", Protection: true},
				},
				Rewards: []RewardConfig{
					{Case: "risk-critical", XP: 100, Impact: "strategies"},
					{Case: "risk-caution", XP: 100, Impact: "strategies"},
					{Case: "risk-stable", XP: 100, Impact: "strategies"},
					{Case: "risk-comfortable", XP: 100, Impact: "strategies"},
				},
			},
		},
	}
	conf.ApplyDefaults()
	return conf
}
