package store

import (
	"context"
	"sort"
	"sync"

	"github.com/iwvelando/finance-quests/internal/quest/completion"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	records map[string]completion.Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]completion.Record)}
}

// Save stores a record, replacing an earlier one for the same run.
func (m *MemoryStore) Save(ctx context.Context, rec completion.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.RunID]; !ok {
		m.order = append(m.order, rec.RunID)
	}
	m.records[rec.RunID] = rec
	return nil
}

// History returns the records of a quest type, or all records when questID
// is empty, oldest first.
func (m *MemoryStore) History(ctx context.Context, questID string) ([]completion.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []completion.Record
	for _, id := range m.order {
		rec := m.records[id]
		if questID == "" || rec.QuestID == questID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt < out[j].CompletedAt })
	return out, nil
}

// Progress aggregates every stored record.
func (m *MemoryStore) Progress(ctx context.Context) (Progress, error) {
	records, err := m.History(ctx, "")
	if err != nil {
		return Progress{}, err
	}
	return aggregate(records)
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
