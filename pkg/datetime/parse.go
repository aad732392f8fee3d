// Package datetime provides date and time utility functions.
package datetime

import (
	"sort"
	"time"

	"github.com/iwvelando/finance-quests/pkg/constants"
)

const (
	// TimestampLayout is the format of completion timestamps.
	TimestampLayout = constants.TimestampLayout

	// DayLayout is the format of calendar days.
	DayLayout = constants.DayLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// DayOf returns the UTC calendar day of a completion timestamp.
func DayOf(timestamp string) (string, error) {
	t, err := time.Parse(TimestampLayout, timestamp)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(DayLayout), nil
}

// OffsetDay returns the day offset by the given number of days.
func OffsetDay(day string, days int) (string, error) {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return day, err
	}
	return t.AddDate(0, 0, days).Format(DayLayout), nil
}

// ConsecutiveDays counts the run of consecutive calendar days that ends at
// the latest of the given days. Duplicates count once.
func ConsecutiveDays(days []string) (int, error) {
	if len(days) == 0 {
		return 0, nil
	}
	unique := make(map[string]struct{}, len(days))
	for _, day := range days {
		if _, err := time.Parse(DayLayout, day); err != nil {
			return 0, err
		}
		unique[day] = struct{}{}
	}
	sorted := make([]string, 0, len(unique))
	for day := range unique {
		sorted = append(sorted, day)
	}
	// DayLayout sorts lexically in date order.
	sort.Strings(sorted)

	streak := 1
	for i := len(sorted) - 1; i > 0; i-- {
		expected, err := OffsetDay(sorted[i], -1)
		if err != nil {
			return 0, err
		}
		if sorted[i-1] != expected {
			break
		}
		streak++
	}
	return streak, nil
}
