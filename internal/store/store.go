// Package store persists completion records and aggregates player progress
// from them.
package store

import (
	"context"
	"fmt"

	"github.com/iwvelando/finance-quests/internal/config"
	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/iwvelando/finance-quests/pkg/constants"
	"github.com/iwvelando/finance-quests/pkg/datetime"
	"github.com/iwvelando/finance-quests/pkg/mathutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the persistence port completion records are handed to. Saving a
// record for a run id that was already saved replaces it.
type Store interface {
	Save(ctx context.Context, rec completion.Record) error
	// History returns the records of one quest type, or of all quest types
	// when questID is empty, oldest first.
	History(ctx context.Context, questID string) ([]completion.Record, error)
	Progress(ctx context.Context) (Progress, error)
	Close() error
}

// Progress summarizes every saved record.
type Progress struct {
	TotalXP            int             `json:"totalXp"`
	Completions        int             `json:"completions"`
	CompletionsByQuest map[string]int  `json:"completionsByQuest"`
	AnnualizedImpact   decimal.Decimal `json:"annualizedImpact"`
	// CurrentStreak counts consecutive calendar days with a streak-earning
	// completion, ending at the latest one.
	CurrentStreak   int    `json:"currentStreak"`
	LastCompletedAt string `json:"lastCompletedAt,omitempty"`
}

// New opens the store selected by the persistence configuration.
func New(cfg config.PersistenceConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", constants.StoreDriverNone:
		return NewNoopStore(), nil
	case constants.StoreDriverMemory:
		return NewMemoryStore(), nil
	case constants.StoreDriverSQLite:
		return NewSQLiteStore(cfg.Path, logger)
	}
	return nil, fmt.Errorf("unknown persistence driver %q", cfg.Driver)
}

// aggregate computes progress from records.
func aggregate(records []completion.Record) (Progress, error) {
	p := Progress{
		CompletionsByQuest: make(map[string]int),
		AnnualizedImpact:   decimal.Zero,
	}
	var streakDays []string
	for _, rec := range records {
		p.TotalXP += rec.XPAwarded
		p.Completions++
		p.CompletionsByQuest[rec.QuestID]++
		p.AnnualizedImpact = p.AnnualizedImpact.Add(rec.AnnualizedImpact)
		if rec.CompletedAt > p.LastCompletedAt {
			p.LastCompletedAt = rec.CompletedAt
		}
		if rec.StreakDelta > 0 {
			day, err := datetime.DayOf(rec.CompletedAt)
			if err != nil {
				return Progress{}, fmt.Errorf("record %s: %w", rec.RunID, err)
			}
			streakDays = append(streakDays, day)
		}
	}
	p.AnnualizedImpact = mathutil.Round(p.AnnualizedImpact)

	streak, err := datetime.ConsecutiveDays(streakDays)
	if err != nil {
		return Progress{}, err
	}
	p.CurrentStreak = streak
	return p, nil
}
