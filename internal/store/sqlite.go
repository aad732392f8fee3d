package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/iwvelando/finance-quests/pkg/datetime"
	"github.com/iwvelando/finance-quests/pkg/mathutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists completion records to a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite store opened",
		zap.String("op", "store.NewSQLiteStore"),
		zap.String("path", dbPath),
	)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS completions (
			run_id        TEXT PRIMARY KEY,
			quest_id      TEXT NOT NULL,
			family        TEXT NOT NULL,
			outcome_case  TEXT NOT NULL,
			xp            INTEGER NOT NULL,
			streak_delta  INTEGER NOT NULL,
			annual_impact TEXT NOT NULL,
			completed_at  TEXT NOT NULL,
			day           TEXT NOT NULL,
			record        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_quest ON completions(quest_id, completed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_day ON completions(day)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, rec completion.Record) error {
	day, err := datetime.DayOf(rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.RunID, err)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.RunID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO completions
		(run_id, quest_id, family, outcome_case, xp, streak_delta, annual_impact, completed_at, day, record)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.QuestID, rec.Family, string(rec.Case),
		rec.XPAwarded, rec.StreakDelta, rec.AnnualizedImpact.String(),
		rec.CompletedAt, day, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.RunID, err)
	}
	return nil
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, questID string) ([]completion.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT record FROM completions ORDER BY completed_at, rowid`
	args := []any{}
	if questID != "" {
		query = `SELECT record FROM completions WHERE quest_id = ? ORDER BY completed_at, rowid`
		args = append(args, questID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []completion.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		var rec completion.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Progress implements Store. Totals are aggregated in SQL; impacts are summed
// as decimals to keep cents exact.
func (s *SQLiteStore) Progress(ctx context.Context) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Progress{CompletionsByQuest: make(map[string]int), AnnualizedImpact: decimal.Zero}

	var last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(xp), 0), MAX(completed_at) FROM completions`,
	).Scan(&p.Completions, &p.TotalXP, &last)
	if err != nil {
		return Progress{}, fmt.Errorf("query totals: %w", err)
	}
	p.LastCompletedAt = last.String

	if err := s.eachRow(ctx, `SELECT quest_id, COUNT(*) FROM completions GROUP BY quest_id`, func(rows *sql.Rows) error {
		var questID string
		var count int
		if err := rows.Scan(&questID, &count); err != nil {
			return err
		}
		p.CompletionsByQuest[questID] = count
		return nil
	}); err != nil {
		return Progress{}, fmt.Errorf("query completions by quest: %w", err)
	}

	if err := s.eachRow(ctx, `SELECT annual_impact FROM completions`, func(rows *sql.Rows) error {
		var impact decimal.Decimal
		if err := rows.Scan(&impact); err != nil {
			return err
		}
		p.AnnualizedImpact = p.AnnualizedImpact.Add(impact)
		return nil
	}); err != nil {
		return Progress{}, fmt.Errorf("query impact: %w", err)
	}
	p.AnnualizedImpact = mathutil.Round(p.AnnualizedImpact)

	var days []string
	if err := s.eachRow(ctx, `SELECT DISTINCT day FROM completions WHERE streak_delta > 0`, func(rows *sql.Rows) error {
		var day string
		if err := rows.Scan(&day); err != nil {
			return err
		}
		days = append(days, day)
		return nil
	}); err != nil {
		return Progress{}, fmt.Errorf("query streak days: %w", err)
	}

	streak, err := datetime.ConsecutiveDays(days)
	if err != nil {
		return Progress{}, err
	}
	p.CurrentStreak = streak
	return p, nil
}

func (s *SQLiteStore) eachRow(ctx context.Context, query string, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing sqlite store", zap.String("op", "store.Close"))
	return s.db.Close()
}
