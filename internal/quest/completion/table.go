package completion

import (
	"fmt"

	"github.com/iwvelando/finance-quests/internal/quest/outcome"
)

// ImpactBasis selects which monthly figure is annualized for a case.
type ImpactBasis string

const (
	ImpactNone       ImpactBasis = "none"
	ImpactRecovery   ImpactBasis = "recovery"
	ImpactDeficit    ImpactBasis = "deficit"
	ImpactStrategies ImpactBasis = "strategies"
)

// ParseImpactBasis validates an impact basis name. An empty name means none.
func ParseImpactBasis(name string) (ImpactBasis, error) {
	switch b := ImpactBasis(name); b {
	case "":
		return ImpactNone, nil
	case ImpactNone, ImpactRecovery, ImpactDeficit, ImpactStrategies:
		return b, nil
	}
	return "", fmt.Errorf("unknown impact basis %q", name)
}

// Reward is one row of a reward table.
type Reward struct {
	Case outcome.Case
	// Committed restricts the row to one commitment answer; nil matches both.
	Committed *bool
	XP        int
	Impact    ImpactBasis
}

// Table resolves the reward of a (case, committed) pair. Rows with an exact
// commitment match win over rows that match both answers.
type Table struct {
	rows []Reward
}

// NewTable builds a reward table.
func NewTable(rows ...Reward) Table {
	return Table{rows: append([]Reward(nil), rows...)}
}

// Lookup returns the reward for a case and commitment answer.
func (t Table) Lookup(c outcome.Case, committed bool) (Reward, bool) {
	var fallback *Reward
	for i := range t.rows {
		row := &t.rows[i]
		if row.Case != c {
			continue
		}
		if row.Committed == nil {
			if fallback == nil {
				fallback = row
			}
			continue
		}
		if *row.Committed == committed {
			return *row, true
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Reward{}, false
}

// Missing lists the (case, committed) pairs of cases that have no reward.
func (t Table) Missing(cases []outcome.Case) []string {
	var missing []string
	for _, c := range cases {
		for _, committed := range []bool{true, false} {
			if _, ok := t.Lookup(c, committed); !ok {
				missing = append(missing, fmt.Sprintf("%s/committed=%t", c, committed))
			}
		}
	}
	return missing
}
