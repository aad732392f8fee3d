package metrics

import (
	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/shopspring/decimal"
)

// Params is the per-quest configuration the engine computes against.
type Params struct {
	// ChargesField selects which input stands for fixed charges.
	ChargesField quest.Field
	Thresholds   Thresholds
	Proportions  Proportions
	Catalog      quest.Catalog
}

// Snapshot is the full set of figures derived from one state of the data.
type Snapshot struct {
	MonthlyIncome     decimal.Decimal `json:"monthlyIncome"`
	Charges           decimal.Decimal `json:"charges"`
	ActualSavings     decimal.Decimal `json:"actualSavings"`
	DisposableIncome  decimal.Decimal `json:"disposableIncome"`
	DisposableRatio   float64         `json:"disposableRatio"`
	RiskTier          RiskTier        `json:"riskTier"`
	IdealEnvelopes    Envelopes       `json:"idealEnvelopes"`
	RecoveryPotential decimal.Decimal `json:"recoveryPotential"`
	Deficit           decimal.Decimal `json:"deficit"`
	AggregatedImpact  decimal.Decimal `json:"aggregatedImpact"`
	ProtectionCount   int             `json:"protectionCount"`
}

// Compute derives a snapshot from the data. Income must be set; allocations
// that were not entered yet count as zero.
func Compute(d quest.Data, p Params) (Snapshot, error) {
	if !d.IsSet(quest.FieldMonthlyIncome) {
		return Snapshot{}, quest.NewInputError(quest.FieldMonthlyIncome, "is required")
	}
	income := d.Amount(quest.FieldMonthlyIncome)
	charges := d.Amount(p.ChargesField)

	disposable, err := ComputeDisposable(income, charges)
	if err != nil {
		return Snapshot{}, err
	}

	envelopes := ComputeEnvelopes(income, p.Proportions)
	savings := d.Amount(quest.FieldActualSavings)
	recovery, deficit := ComputeRecoveryAndDeficit(envelopes,
		d.Amount(quest.FieldActualNeeds), d.Amount(quest.FieldActualWants), savings, income)

	impact, err := AggregateImpact(d.Strategies(), p.Catalog)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		MonthlyIncome:     income,
		Charges:           charges,
		ActualSavings:     savings,
		DisposableIncome:  disposable.Amount,
		DisposableRatio:   disposable.Ratio,
		RiskTier:          ClassifyRisk(disposable.Ratio, p.Thresholds),
		IdealEnvelopes:    envelopes,
		RecoveryPotential: recovery,
		Deficit:           deficit,
		AggregatedImpact:  impact.Monthly,
		ProtectionCount:   impact.ProtectionCount,
	}, nil
}

// Derived extracts the figures persisted into the quest data.
func (s Snapshot) Derived() quest.Derived {
	return quest.Derived{
		Valid:             true,
		DisposableIncome:  s.DisposableIncome,
		RecoveryPotential: s.RecoveryPotential,
		Deficit:           s.Deficit,
		AggregatedImpact:  s.AggregatedImpact,
	}
}
