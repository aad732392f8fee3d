// Package output provides utilities for formatting and displaying quest results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/iwvelando/finance-quests/internal/store"
	"github.com/iwvelando/finance-quests/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable summary of each completion record.
func PrettyFormat(w io.Writer, records []completion.Record) {
	p := message.NewPrinter(language.English)
	for i, rec := range records {
		_, _ = fmt.Fprintf(w, "--- Results for quest %s (%s) ---\n", rec.QuestID, rec.RunID)
		_, _ = fmt.Fprintf(w, "Outcome           | %s\n", rec.Case)
		_, _ = fmt.Fprintf(w, "Monthly income    | %s\n", format.Currency(rec.Inputs.MonthlyIncome))
		_, _ = fmt.Fprintf(w, "Disposable income | %s (%s, %s)\n",
			format.Currency(rec.Metrics.DisposableIncome),
			format.Percent(rec.Metrics.DisposableRatio),
			rec.Metrics.RiskTier)
		if rec.Metrics.RecoveryPotential.IsPositive() {
			_, _ = fmt.Fprintf(w, "Recoverable       | %s per month\n", format.Currency(rec.Metrics.RecoveryPotential))
		}
		if rec.Metrics.Deficit.IsPositive() {
			_, _ = fmt.Fprintf(w, "Deficit           | %s per month\n", format.Currency(rec.Metrics.Deficit))
		}
		if len(rec.Inputs.SelectedStrategies) > 0 {
			_, _ = fmt.Fprintf(w, "Strategies        | %s\n", strings.Join(rec.Inputs.SelectedStrategies, ", "))
		}
		_, _ = fmt.Fprintf(w, "Committed         | %t\n", rec.Inputs.HasCommitted)
		_, _ = fmt.Fprintf(w, "Annual impact     | %s\n", format.Currency(rec.AnnualizedImpact))
		_, _ = p.Fprintf(w, "XP awarded        | %d\n", rec.XPAwarded)
		_, _ = fmt.Fprintf(w, "Streak            | +%d\n", rec.StreakDelta)
		_, _ = fmt.Fprintf(w, "Completed at      | %s\n", rec.CompletedAt)
		if i < len(records)-1 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}
}

// PrettyProgress writes the aggregated progress of stored completions.
func PrettyProgress(w io.Writer, progress store.Progress) {
	p := message.NewPrinter(language.English)
	_, _ = fmt.Fprintf(w, "--- Progress ---\n")
	_, _ = p.Fprintf(w, "Completions       | %d\n", progress.Completions)

	quests := make([]string, 0, len(progress.CompletionsByQuest))
	for id := range progress.CompletionsByQuest {
		quests = append(quests, id)
	}
	sort.Strings(quests)
	for _, id := range quests {
		_, _ = p.Fprintf(w, "  %-15s | %d\n", id, progress.CompletionsByQuest[id])
	}

	_, _ = p.Fprintf(w, "Total XP          | %d\n", progress.TotalXP)
	_, _ = fmt.Fprintf(w, "Annual impact     | %s\n", format.Currency(progress.AnnualizedImpact))
	_, _ = p.Fprintf(w, "Current streak    | %d days\n", progress.CurrentStreak)
	if progress.LastCompletedAt != "" {
		_, _ = fmt.Fprintf(w, "Last completed at | %s\n", progress.LastCompletedAt)
	}
}

var csvHeader = []string{
	"run_id", "quest_id", "family", "case", "monthly_income", "disposable_income",
	"disposable_ratio", "risk_tier", "strategies", "committed", "xp", "streak_delta",
	"annual_impact", "completed_at",
}

// CsvFormat writes one row per completion record.
func CsvFormat(w io.Writer, records []completion.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.RunID,
			rec.QuestID,
			rec.Family,
			string(rec.Case),
			rec.Inputs.MonthlyIncome.StringFixed(2),
			rec.Metrics.DisposableIncome.StringFixed(2),
			strconv.FormatFloat(rec.Metrics.DisposableRatio, 'f', 4, 64),
			rec.Metrics.RiskTier.String(),
			strings.Join(rec.Inputs.SelectedStrategies, ";"),
			strconv.FormatBool(rec.Inputs.HasCommitted),
			strconv.Itoa(rec.XPAwarded),
			strconv.Itoa(rec.StreakDelta),
			rec.AnnualizedImpact.StringFixed(2),
			rec.CompletedAt,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", rec.RunID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// JSONFormat writes any result as indented JSON.
func JSONFormat(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
