package config

import (
	"fmt"
	"math"

	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/pkg/constants"
	"github.com/iwvelando/finance-quests/pkg/validation"
)

const proportionTolerance = 1e-9

// Validate returns an ErrConfiguration error for the first quest type that
// cannot be run.
func (c *Configuration) Validate() error {
	if len(c.Quests) == 0 {
		return fmt.Errorf("%w: no quest types configured", quest.ErrConfiguration)
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return fmt.Errorf("%w: %v", quest.ErrConfiguration, err)
		}
	}
	switch c.Persistence.Driver {
	case "", constants.StoreDriverNone, constants.StoreDriverMemory:
	case constants.StoreDriverSQLite:
		if c.Persistence.Path == "" {
			return fmt.Errorf("%w: sqlite persistence requires a path", quest.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown persistence driver %q", quest.ErrConfiguration, c.Persistence.Driver)
	}

	for _, id := range c.QuestIDs() {
		if err := c.Quests[id].Validate(id); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the structure of one quest type.
func (q QuestConfig) Validate(id string) error {
	switch q.Family {
	case constants.FamilyBudget, constants.FamilyRisk:
	default:
		return quest.ConfigError(id, "unknown family %q", q.Family)
	}

	if q.MinimumIncome <= 0 {
		return quest.ConfigError(id, "minimumIncome must be positive, got %v", q.MinimumIncome)
	}

	p := q.Proportions
	if p.Needs < 0 || p.Wants < 0 || p.Savings < 0 {
		return quest.ConfigError(id, "proportions must not be negative")
	}
	if math.Abs(p.Needs+p.Wants+p.Savings-1) > proportionTolerance {
		return quest.ConfigError(id, "proportions must add up to 1, got %v", p.Needs+p.Wants+p.Savings)
	}

	th := q.RiskThresholds
	if !(th.Caution < th.Stable && th.Stable < th.Comfortable) {
		return quest.ConfigError(id, "risk thresholds must be strictly ascending, got %v/%v/%v",
			th.Caution, th.Stable, th.Comfortable)
	}

	cl := q.Classification
	if cl.SavingsTargetRatio <= 0 || cl.SavingsTargetRatio > 1 {
		return quest.ConfigError(id, "savingsTargetRatio must be in (0, 1], got %v", cl.SavingsTargetRatio)
	}
	if cl.DeficitTolerance < 0 {
		return quest.ConfigError(id, "deficitTolerance must not be negative, got %v", cl.DeficitTolerance)
	}

	switch q.StreakRule {
	case constants.StreakOnCommitment, constants.StreakOnCompletion:
	default:
		return quest.ConfigError(id, "unknown streak rule %q", q.StreakRule)
	}

	seen := make(map[string]struct{}, len(q.Strategies))
	for _, s := range q.Strategies {
		if s.ID == "" {
			return quest.ConfigError(id, "strategy without id")
		}
		if _, dup := seen[s.ID]; dup {
			return quest.ConfigError(id, "duplicate strategy %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	if len(q.Rewards) == 0 {
		return quest.ConfigError(id, "reward table is empty")
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	validator := validation.ConfigValidator{}
	for _, id := range c.QuestIDs() {
		q := c.Quests[id]
		qc := validation.QuestConfig{
			ID:            id,
			Family:        q.Family,
			MinimumIncome: q.MinimumIncome,
			RewardCount:   len(q.Rewards),
		}
		for _, s := range q.Strategies {
			qc.Strategies = append(qc.Strategies, validation.StrategyConfig{
				ID:            s.ID,
				MonthlyImpact: s.MonthlyImpact,
				Protection:    s.Protection,
			})
		}
		for _, r := range q.Rewards {
			qc.RewardXP = append(qc.RewardXP, r.XP)
		}
		validator.Quests = append(validator.Quests, qc)
	}
	return validator.ValidateAll()
}
