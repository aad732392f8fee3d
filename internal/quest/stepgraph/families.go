package stepgraph

import (
	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/pkg/constants"
)

// Step ids shared by the quest families.
const (
	StepBriefing   quest.StepID = "briefing"
	StepIncome     quest.StepID = "income"
	StepCharges    quest.StepID = "charges"
	StepNeeds      quest.StepID = "needs"
	StepWants      quest.StepID = "wants"
	StepSavings    quest.StepID = "savings"
	StepAnalysis   quest.StepID = "analysis"
	StepDiagnosis  quest.StepID = "diagnosis"
	StepStrategies quest.StepID = "strategies"
	StepAction     quest.StepID = "action"
	StepCommitment quest.StepID = "commitment"
	StepResults    quest.StepID = "results"
	StepReward     quest.StepID = "reward"
)

// skipWithoutCorrection bypasses the commitment step when the persisted
// figures were classified into a case that asks for no change.
func skipWithoutCorrection(d quest.Data, _ quest.Catalog) bool {
	return d.Derived.Valid && !d.Derived.NeedsCorrection()
}

// skipWithoutAction bypasses the bank-call script unless a selected strategy
// requires it.
func skipWithoutAction(d quest.Data, catalog quest.Catalog) bool {
	return !catalog.RequiresAction(d)
}

var debrief = []Step{
	{ID: StepResults, Derives: true},
	{ID: StepReward},
}

// Budget is the 50/30/20 budget split quest.
var Budget = New(constants.FamilyBudget,
	[]Step{{ID: StepBriefing}},
	[]Step{
		{ID: StepIncome, Requires: []quest.Field{quest.FieldMonthlyIncome}},
		{ID: StepNeeds, Requires: []quest.Field{quest.FieldActualNeeds}},
		{ID: StepWants, Requires: []quest.Field{quest.FieldActualWants}},
		{ID: StepSavings, Requires: []quest.Field{quest.FieldActualSavings}, Derives: true},
		{ID: StepAnalysis, Derives: true},
		{ID: StepCommitment, Requires: []quest.Field{quest.FieldHasCommitted}, Skip: skipWithoutCorrection},
	},
	debrief,
)

// Risk is the overdraft risk quest.
var Risk = New(constants.FamilyRisk,
	[]Step{{ID: StepBriefing}},
	[]Step{
		{ID: StepIncome, Requires: []quest.Field{quest.FieldMonthlyIncome}},
		{ID: StepCharges, Requires: []quest.Field{quest.FieldFixedCharges}, Derives: true},
		{ID: StepDiagnosis},
		{ID: StepStrategies, Requires: []quest.Field{quest.FieldSelectedStrategies}, Derives: true},
		{ID: StepAction, Skip: skipWithoutAction},
		{ID: StepCommitment, Requires: []quest.Field{quest.FieldHasCommitted}},
	},
	debrief,
)

// ForFamily returns the graph of a quest family.
func ForFamily(family string) (*Graph, bool) {
	switch family {
	case constants.FamilyBudget:
		return Budget, true
	case constants.FamilyRisk:
		return Risk, true
	}
	return nil, false
}

// ChargesField returns the input that stands for fixed charges in a family.
func ChargesField(family string) quest.Field {
	if family == constants.FamilyBudget {
		return quest.FieldActualNeeds
	}
	return quest.FieldFixedCharges
}
