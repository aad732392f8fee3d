// Package completion turns the terminal state of a quest run into its
// immutable completion record.
package completion

import (
	"fmt"
	"time"

	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/internal/quest/metrics"
	"github.com/iwvelando/finance-quests/internal/quest/outcome"
	"github.com/iwvelando/finance-quests/pkg/constants"
	"github.com/iwvelando/finance-quests/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Inputs is the user data captured in a record.
type Inputs struct {
	MonthlyIncome      decimal.Decimal `json:"monthlyIncome"`
	FixedCharges       decimal.Decimal `json:"fixedCharges"`
	ActualNeeds        decimal.Decimal `json:"actualNeeds"`
	ActualWants        decimal.Decimal `json:"actualWants"`
	ActualSavings      decimal.Decimal `json:"actualSavings"`
	SelectedStrategies []string        `json:"selectedStrategies"`
	HasCommitted       bool            `json:"hasCommitted"`
}

// Record is emitted once per completed run.
type Record struct {
	RunID            string           `json:"runId"`
	QuestID          string           `json:"questId"`
	Family           string           `json:"family"`
	Case             outcome.Case     `json:"case"`
	Inputs           Inputs           `json:"inputs"`
	Metrics          metrics.Snapshot `json:"metrics"`
	XPAwarded        int              `json:"xpAwarded"`
	StreakDelta      int              `json:"streakDelta"`
	AnnualizedImpact decimal.Decimal  `json:"annualizedImpact"`
	CompletedAt      string           `json:"completedAt"`
}

// Terminal is the final state of a run handed to the resolver.
type Terminal struct {
	RunID    string
	QuestID  string
	Data     quest.Data
	Snapshot metrics.Snapshot
	Case     outcome.Case
}

// Resolver applies one quest type's reward rules.
type Resolver struct {
	Family     string
	Table      Table
	StreakRule string
}

// Resolve builds the completion record. It is a pure function of its
// arguments.
func (r Resolver) Resolve(t Terminal, at time.Time) (Record, error) {
	committed := t.Data.HasCommitted
	reward, ok := r.Table.Lookup(t.Case, committed)
	if !ok {
		return Record{}, quest.ConfigError(t.QuestID, "no reward for case %s with committed=%t", t.Case, committed)
	}

	monthly, err := r.monthlyImpact(reward.Impact, t.Snapshot)
	if err != nil {
		return Record{}, quest.ConfigError(t.QuestID, "%v", err)
	}
	annual := decimal.Zero
	// Only a commitment turns a potential into a counted impact.
	if committed {
		annual = mathutil.Round(mathutil.Annualize(monthly))
	}

	return Record{
		RunID:   t.RunID,
		QuestID: t.QuestID,
		Family:  r.Family,
		Case:    t.Case,
		Inputs: Inputs{
			MonthlyIncome:      t.Data.Amount(quest.FieldMonthlyIncome),
			FixedCharges:       t.Data.Amount(quest.FieldFixedCharges),
			ActualNeeds:        t.Data.Amount(quest.FieldActualNeeds),
			ActualWants:        t.Data.Amount(quest.FieldActualWants),
			ActualSavings:      t.Data.Amount(quest.FieldActualSavings),
			SelectedStrategies: t.Data.Strategies(),
			HasCommitted:       committed,
		},
		Metrics:          t.Snapshot,
		XPAwarded:        reward.XP,
		StreakDelta:      r.streakDelta(committed),
		AnnualizedImpact: annual,
		CompletedAt:      at.UTC().Format(constants.TimestampLayout),
	}, nil
}

func (r Resolver) streakDelta(committed bool) int {
	switch r.StreakRule {
	case constants.StreakOnCompletion:
		return 1
	case constants.StreakOnCommitment:
		if committed {
			return 1
		}
	}
	return 0
}

func (r Resolver) monthlyImpact(basis ImpactBasis, s metrics.Snapshot) (decimal.Decimal, error) {
	switch basis {
	case ImpactNone, "":
		return decimal.Zero, nil
	case ImpactRecovery:
		return s.RecoveryPotential, nil
	case ImpactDeficit:
		return s.Deficit, nil
	case ImpactStrategies:
		return s.AggregatedImpact, nil
	}
	return decimal.Zero, fmt.Errorf("unknown impact basis %q", basis)
}
