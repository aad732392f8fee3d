package store

import (
	"context"

	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/shopspring/decimal"
)

// NoopStore discards records. It is used when persistence is not configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) Save(context.Context, completion.Record) error { return nil }
func (n *NoopStore) Close() error                                  { return nil }

func (n *NoopStore) History(context.Context, string) ([]completion.Record, error) {
	return nil, nil
}

func (n *NoopStore) Progress(context.Context) (Progress, error) {
	return Progress{CompletionsByQuest: map[string]int{}, AnnualizedImpact: decimal.Zero}, nil
}
