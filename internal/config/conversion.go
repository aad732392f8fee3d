// Package config defines conversion utilities for configuration objects.
package config

import (
	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/iwvelando/finance-quests/internal/quest/metrics"
	"github.com/iwvelando/finance-quests/internal/quest/outcome"
	"github.com/iwvelando/finance-quests/pkg/constants"
	"github.com/iwvelando/finance-quests/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// ToThresholds converts the configured risk thresholds.
func (q QuestConfig) ToThresholds() metrics.Thresholds {
	return metrics.Thresholds{
		Caution:     q.RiskThresholds.Caution,
		Stable:      q.RiskThresholds.Stable,
		Comfortable: q.RiskThresholds.Comfortable,
	}
}

// ToProportions converts the configured envelope split.
func (q QuestConfig) ToProportions() metrics.Proportions {
	return metrics.Proportions{
		Needs:   q.Proportions.Needs,
		Wants:   q.Proportions.Wants,
		Savings: q.Proportions.Savings,
	}
}

// ToCatalog converts the strategy list into a catalog. Monthly impacts are
// rounded to cents.
func (q QuestConfig) ToCatalog() quest.Catalog {
	strategies := make([]quest.Strategy, 0, len(q.Strategies))
	for _, s := range q.Strategies {
		impact := decimal.Zero
		if !s.Protection {
			impact = mathutil.FromFloat(s.MonthlyImpact)
		}
		strategies = append(strategies, quest.Strategy{
			ID:             s.ID,
			Label:          s.Label,
			MonthlyImpact:  impact,
			Protection:     s.Protection,
			RequiresAction: s.RequiresAction,
		})
	}
	return quest.NewCatalog(strategies...)
}

// ToClassifier returns the outcome classifier of the quest's family.
func (q QuestConfig) ToClassifier() outcome.Classifier {
	if q.Family == constants.FamilyRisk {
		return outcome.RiskClassifier{}
	}
	return outcome.BudgetClassifier{
		SavingsTargetRatio: q.Classification.SavingsTargetRatio,
		DeficitTolerance:   mathutil.FromFloat(q.Classification.DeficitTolerance),
	}
}

// ToRewardTable converts the reward rows. Unknown case names and impact
// bases are configuration errors.
func (q QuestConfig) ToRewardTable(id string) (completion.Table, error) {
	rows := make([]completion.Reward, 0, len(q.Rewards))
	for _, r := range q.Rewards {
		c, err := outcome.ParseCase(r.Case)
		if err != nil {
			return completion.Table{}, quest.ConfigError(id, "%v", err)
		}
		basis, err := completion.ParseImpactBasis(r.Impact)
		if err != nil {
			return completion.Table{}, quest.ConfigError(id, "%v", err)
		}
		var committed *bool
		if r.Committed != nil {
			v := *r.Committed
			committed = &v
		}
		rows = append(rows, completion.Reward{
			Case:      c,
			Committed: committed,
			XP:        r.XP,
			Impact:    basis,
		})
	}
	return completion.NewTable(rows...), nil
}

// MinimumIncomeAmount returns the minimum accepted monthly income.
func (q QuestConfig) MinimumIncomeAmount() decimal.Decimal {
	return mathutil.FromFloat(q.MinimumIncome)
}
