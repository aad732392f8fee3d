// Package quest defines the data shared by every part of the quest flow
// engine: the accumulated user data of one run, partial updates, the
// strategy catalog, positions in the step graph and the error taxonomy.
package quest

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Phase is one of the three ordered stages of a quest.
type Phase string

const (
	PhaseProtocol  Phase = "PROTOCOL"
	PhaseExecution Phase = "EXECUTION"
	PhaseDebrief   Phase = "DEBRIEF"
)

// Phases lists the phases in traversal order.
var Phases = []Phase{PhaseProtocol, PhaseExecution, PhaseDebrief}

// StepID identifies a step within a phase.
type StepID string

// Position is a (phase, step) pair.
type Position struct {
	Phase Phase  `json:"phase"`
	Step  StepID `json:"step"`
}

// Field names a user-provided datum.
type Field string

const (
	FieldMonthlyIncome      Field = "monthlyIncome"
	FieldFixedCharges       Field = "fixedCharges"
	FieldActualNeeds        Field = "actualNeeds"
	FieldActualWants        Field = "actualWants"
	FieldActualSavings      Field = "actualSavings"
	FieldSelectedStrategies Field = "selectedStrategies"
	FieldHasCommitted       Field = "hasCommitted"
)

// Data accumulates everything the user entered during one run.
type Data struct {
	MonthlyIncome      decimal.NullDecimal `json:"monthlyIncome"`
	FixedCharges       decimal.NullDecimal `json:"fixedCharges"`
	ActualNeeds        decimal.NullDecimal `json:"actualNeeds"`
	ActualWants        decimal.NullDecimal `json:"actualWants"`
	ActualSavings      decimal.NullDecimal `json:"actualSavings"`
	SelectedStrategies map[string]struct{} `json:"-"`
	HasCommitted       bool                `json:"hasCommitted"`
	CommitmentDecided  bool                `json:"commitmentDecided"`
	Derived            Derived             `json:"derived"`
}

// Derived holds the metric figures persisted when the user advanced past a
// step that computes them, so later steps read what was shown.
type Derived struct {
	Valid             bool            `json:"valid"`
	DisposableIncome  decimal.Decimal `json:"disposableIncome"`
	RecoveryPotential decimal.Decimal `json:"recoveryPotential"`
	Deficit           decimal.Decimal `json:"deficit"`
	AggregatedImpact  decimal.Decimal `json:"aggregatedImpact"`
	// Corrective is set when the quest classified the figures into a case
	// that asks the user to change something.
	Corrective bool `json:"corrective"`
}

// NeedsCorrection reports whether the persisted figures were classified into
// a corrective case.
func (d Derived) NeedsCorrection() bool {
	return d.Valid && d.Corrective
}

// Patch is a partial update. Nil fields leave the prior value untouched.
type Patch struct {
	MonthlyIncome      *decimal.Decimal `json:"monthlyIncome,omitempty" yaml:"monthlyIncome,omitempty"`
	FixedCharges       *decimal.Decimal `json:"fixedCharges,omitempty" yaml:"fixedCharges,omitempty"`
	ActualNeeds        *decimal.Decimal `json:"actualNeeds,omitempty" yaml:"actualNeeds,omitempty"`
	ActualWants        *decimal.Decimal `json:"actualWants,omitempty" yaml:"actualWants,omitempty"`
	ActualSavings      *decimal.Decimal `json:"actualSavings,omitempty" yaml:"actualSavings,omitempty"`
	SelectedStrategies []string         `json:"selectedStrategies,omitempty" yaml:"selectedStrategies,omitempty"`
	HasCommitted       *bool            `json:"hasCommitted,omitempty" yaml:"hasCommitted,omitempty"`
}

// Empty reports whether the patch carries no update at all.
func (p Patch) Empty() bool {
	return p.MonthlyIncome == nil && p.FixedCharges == nil && p.ActualNeeds == nil &&
		p.ActualWants == nil && p.ActualSavings == nil && p.SelectedStrategies == nil &&
		p.HasCommitted == nil
}

// Merge overlays the patch onto the data. A non-nil strategy list replaces
// the current selection; duplicates collapse.
func (d *Data) Merge(p Patch) {
	set := func(dst *decimal.NullDecimal, v *decimal.Decimal) {
		if v != nil {
			*dst = decimal.NewNullDecimal(*v)
		}
	}
	set(&d.MonthlyIncome, p.MonthlyIncome)
	set(&d.FixedCharges, p.FixedCharges)
	set(&d.ActualNeeds, p.ActualNeeds)
	set(&d.ActualWants, p.ActualWants)
	set(&d.ActualSavings, p.ActualSavings)

	if p.SelectedStrategies != nil {
		d.SelectedStrategies = make(map[string]struct{}, len(p.SelectedStrategies))
		for _, id := range p.SelectedStrategies {
			d.SelectedStrategies[id] = struct{}{}
		}
	}
	if p.HasCommitted != nil {
		d.HasCommitted = *p.HasCommitted
		d.CommitmentDecided = true
	}
}

// Clone returns a deep copy of the data.
func (d Data) Clone() Data {
	out := d
	if d.SelectedStrategies != nil {
		out.SelectedStrategies = make(map[string]struct{}, len(d.SelectedStrategies))
		for id := range d.SelectedStrategies {
			out.SelectedStrategies[id] = struct{}{}
		}
	}
	return out
}

// Strategies returns the selected strategy ids in sorted order.
func (d Data) Strategies() []string {
	ids := make([]string, 0, len(d.SelectedStrategies))
	for id := range d.SelectedStrategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasStrategy reports whether the strategy is selected.
func (d Data) HasStrategy(id string) bool {
	_, ok := d.SelectedStrategies[id]
	return ok
}

// IsSet reports whether a field has received a value.
func (d Data) IsSet(field Field) bool {
	switch field {
	case FieldMonthlyIncome:
		return d.MonthlyIncome.Valid
	case FieldFixedCharges:
		return d.FixedCharges.Valid
	case FieldActualNeeds:
		return d.ActualNeeds.Valid
	case FieldActualWants:
		return d.ActualWants.Valid
	case FieldActualSavings:
		return d.ActualSavings.Valid
	case FieldSelectedStrategies:
		return d.SelectedStrategies != nil
	case FieldHasCommitted:
		return d.CommitmentDecided
	}
	return false
}

// Amount returns the value of a money field, or zero while it is unset.
func (d Data) Amount(field Field) decimal.Decimal {
	var v decimal.NullDecimal
	switch field {
	case FieldMonthlyIncome:
		v = d.MonthlyIncome
	case FieldFixedCharges:
		v = d.FixedCharges
	case FieldActualNeeds:
		v = d.ActualNeeds
	case FieldActualWants:
		v = d.ActualWants
	case FieldActualSavings:
		v = d.ActualSavings
	}
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
