package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwvelando/finance-quests/internal/config"
	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/iwvelando/finance-quests/internal/quest/flow"
	"github.com/iwvelando/finance-quests/internal/quest/outcome"
	"github.com/iwvelando/finance-quests/internal/store"
	"github.com/iwvelando/finance-quests/pkg/constants"
	"github.com/iwvelando/finance-quests/pkg/datetime"
	"github.com/iwvelando/finance-quests/pkg/testutil"
	"go.uber.org/zap"
)

// exampleConfiguration loads the shipped example with persistence pointed at
// a temporary SQLite file.
func exampleConfiguration(t *testing.T) *config.Configuration {
	t.Helper()
	conf, err := config.LoadConfiguration("../../config.yaml.example")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	conf.Persistence = config.PersistenceConfig{
		Driver: constants.StoreDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "quests.db"),
	}
	return conf
}

// dayClock returns a clock that moves forward one day per completion.
func dayClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.AddDate(0, 0, 1)
		return now
	}
}

func play(t *testing.T, engine *flow.Engine, questType string, answers quest.Patch) completion.Record {
	t.Helper()

	ctrl, err := engine.CreateQuestFlow(questType, &answers)
	if err != nil {
		t.Fatalf("CreateQuestFlow(%s) error = %v", questType, err)
	}
	for !ctrl.Completed() {
		if err := ctrl.Advance(); err != nil {
			t.Fatalf("Advance() at %v error = %v", ctrl.Position(), err)
		}
	}
	rec, err := ctrl.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	return rec
}

func riskAnswers(income, charges string, strategies ...string) quest.Patch {
	return quest.Patch{
		MonthlyIncome:      testutil.Amount(income),
		FixedCharges:       testutil.Amount(charges),
		SelectedStrategies: strategies,
		HasCommitted:       testutil.Bool(true),
	}
}

func TestQuestsPersistAcrossRestarts(t *testing.T) {
	conf := exampleConfiguration(t)
	logger := zap.NewNop()
	clock := dayClock(datetime.MustParseTime(datetime.TimestampLayout, "2026-03-12T08:00:00Z"))

	st, err := store.New(conf.Persistence, logger)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	engine, err := flow.NewEngine(logger, conf, flow.WithSaver(st), flow.WithClock(clock))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	played := []struct {
		questType string
		answers   quest.Patch
		expected  outcome.Case
		xp        int
		annual    string
	}{
		{
			questType: "budget-split",
			answers:   testutil.BudgetAnswers("2500", "1300", "700", "200", true),
			expected:  outcome.BelowTargetNoDeficit,
			xp:        120,
			annual:    "3600",
		},
		{
			questType: "overdraft-risk",
			answers:   riskAnswers("2500", "1500", "cancel-unused-subscription", "balance-alert"),
			expected:  outcome.RiskStable,
			xp:        100,
			annual:    "155.88",
		},
		{
			questType: "overdraft-risk",
			answers:   riskAnswers("2000", "1900", "negotiate-overdraft", "cancel-unused-subscription"),
			expected:  outcome.RiskCritical,
			xp:        100,
			annual:    "335.88",
		},
	}

	for _, p := range played {
		rec := play(t, engine, p.questType, p.answers)
		if rec.Case != p.expected || rec.XPAwarded != p.xp || rec.AnnualizedImpact.String() != p.annual {
			t.Errorf("%s record = %s/%d/%s, expected %s/%d/%s",
				p.questType, rec.Case, rec.XPAwarded, rec.AnnualizedImpact, p.expected, p.xp, p.annual)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := store.New(conf.Persistence, logger)
	if err != nil {
		t.Fatalf("reopen store.New() error = %v", err)
	}
	defer reopened.Close()

	progress, err := reopened.Progress(context.Background())
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if progress.Completions != 3 || progress.TotalXP != 320 {
		t.Errorf("Progress() = %d completions, %d XP, expected 3 and 320", progress.Completions, progress.TotalXP)
	}
	if progress.CurrentStreak != 3 {
		t.Errorf("Progress().CurrentStreak = %d, expected 3", progress.CurrentStreak)
	}
	if progress.AnnualizedImpact.StringFixed(2) != "4091.76" {
		t.Errorf("Progress().AnnualizedImpact = %s, expected 4091.76", progress.AnnualizedImpact)
	}
	if progress.LastCompletedAt != "2026-03-14T08:00:00Z" {
		t.Errorf("Progress().LastCompletedAt = %s, expected 2026-03-14T08:00:00Z", progress.LastCompletedAt)
	}

	risk, err := reopened.History(context.Background(), "overdraft-risk")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(risk) != 2 || risk[1].Metrics.RiskTier.String() != "CRITICAL" {
		t.Errorf("History(overdraft-risk) = %d records, expected 2 ending CRITICAL", len(risk))
	}
}

func TestStreakBreaksOnMissedDay(t *testing.T) {
	conf := exampleConfiguration(t)
	st := store.NewMemoryStore()

	days := []time.Time{
		time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 13, 9, 0, 0, 0, time.UTC),
	}
	i := 0
	engine, err := flow.NewEngine(zap.NewNop(), conf,
		flow.WithSaver(st),
		flow.WithClock(func() time.Time { return days[i] }),
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	for i = range days {
		play(t, engine, "overdraft-risk", riskAnswers("3000", "1000", "balance-alert"))
	}

	progress, err := st.Progress(context.Background())
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if progress.CurrentStreak != 2 {
		t.Errorf("Progress().CurrentStreak = %d, expected 2", progress.CurrentStreak)
	}
}

// TestManyRuns plays a batch of quests against one engine and checks the
// store keeps every record.
func TestManyRuns(t *testing.T) {
	conf := exampleConfiguration(t)
	st := store.NewMemoryStore()

	next := 0
	engine, err := flow.NewEngine(zap.NewNop(), conf,
		flow.WithSaver(st),
		flow.WithIDGenerator(func() string {
			next++
			return fmt.Sprintf("run-%03d", next)
		}),
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	const runs = 200
	start := time.Now()
	for n := 0; n < runs; n++ {
		if n%2 == 0 {
			play(t, engine, "budget-split", testutil.BudgetAnswers("2500", "1250", "750", "500", false))
		} else {
			play(t, engine, "overdraft-risk", riskAnswers("2500", "2200", "buffer-transfer"))
		}
	}
	elapsed := time.Since(start)
	t.Logf("played %d quest runs in %v", runs, elapsed)

	if elapsed > 10*time.Second {
		t.Errorf("playing %d runs took %v, exceeds 10 second threshold", runs, elapsed)
	}

	progress, err := st.Progress(context.Background())
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if progress.Completions != runs {
		t.Errorf("Progress().Completions = %d, expected %d", progress.Completions, runs)
	}
	if progress.CompletionsByQuest["budget-split"] != runs/2 || progress.CompletionsByQuest["overdraft-risk"] != runs/2 {
		t.Errorf("Progress().CompletionsByQuest = %v, expected %d each", progress.CompletionsByQuest, runs/2)
	}
	if progress.TotalXP != runs/2*150+runs/2*100 {
		t.Errorf("Progress().TotalXP = %d, expected %d", progress.TotalXP, runs/2*150+runs/2*100)
	}
}
