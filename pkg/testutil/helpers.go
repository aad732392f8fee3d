// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/shopspring/decimal"
)

// Amount parses a decimal literal and returns a pointer to it, for building
// patches. It panics on malformed input.
func Amount(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// BudgetAnswers returns a patch carrying every input of the budget quest.
func BudgetAnswers(income, needs, wants, savings string, committed bool) quest.Patch {
	return quest.Patch{
		MonthlyIncome: Amount(income),
		ActualNeeds:   Amount(needs),
		ActualWants:   Amount(wants),
		ActualSavings: Amount(savings),
		HasCommitted:  Bool(committed),
	}
}

// FindRecord finds a completion record by run id in the records slice.
// Returns a pointer to the record if found, nil otherwise.
func FindRecord(records []completion.Record, runID string) *completion.Record {
	for i := range records {
		if records[i].RunID == runID {
			return &records[i]
		}
	}
	return nil
}
