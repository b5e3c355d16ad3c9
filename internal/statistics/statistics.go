// Package statistics derives accuracy, level and per-period breakdowns
// from answer counters and attempt history.
package statistics

import (
	"fmt"
	"sort"

	"github.com/at-ishikawa/mentalmath/internal/history"
)

// QuestionsPerLevel is how many answered questions raise the level by one.
const QuestionsPerLevel = 20

// Summary is the stats view of a profile.
type Summary struct {
	TotalQuestions int `json:"total_questions" yaml:"total_questions"`
	CorrectAnswers int `json:"correct_answers" yaml:"correct_answers"`
	Accuracy       int `json:"accuracy" yaml:"accuracy"`
	Level          int `json:"level" yaml:"level"`
}

// Accuracy is round(100*correct/total), 0 without attempts.
func Accuracy(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}

// Level derives the level from the number of answered questions.
func Level(total int) int {
	if total < 0 {
		total = 0
	}
	return total/QuestionsPerLevel + 1
}

// Summarize builds a Summary from counters. The stored level wins when it
// is higher, so the level never goes down.
func Summarize(total, correct, storedLevel int) Summary {
	return Summary{
		TotalQuestions: total,
		CorrectAnswers: correct,
		Accuracy:       Accuracy(correct, total),
		Level:          max(storedLevel, Level(total)),
	}
}

// FromAttempts recomputes a Summary by scanning every attempt.
func FromAttempts(attempts []history.Attempt, storedLevel int) Summary {
	var correct int
	for _, a := range attempts {
		if a.Correct {
			correct++
		}
	}
	return Summarize(len(attempts), correct, storedLevel)
}

// PeriodStatistics holds statistics for a time period
type PeriodStatistics struct {
	Period         string         `json:"period"` // "2025-01"
	TotalQuestions int            `json:"total_questions"`
	CorrectAnswers int            `json:"correct_answers"`
	Accuracy       int            `json:"accuracy"`
	ByOperation    map[string]int `json:"by_operation"`
	UniqueMistakes int            `json:"unique_mistakes"`
}

// AggregateStatistics holds totals across all periods
type AggregateStatistics struct {
	TotalQuestions int `json:"total_questions"`
	CorrectAnswers int `json:"correct_answers"`
	Accuracy       int `json:"accuracy"`
	UniqueMistakes int `json:"unique_mistakes"` // deduplicated across periods
}

// StatisticsResult holds both per-period and aggregate statistics
type StatisticsResult struct {
	Periods   []PeriodStatistics  `json:"periods"`
	Aggregate AggregateStatistics `json:"aggregate"`
}

type periodData struct {
	total       int
	correct     int
	byOperation map[string]int
	mistakes    map[string]struct{}
}

// CalculateStatistics groups attempts by month.
// It accepts optional year and month filters (0 means no filter).
// A mistake is unique per prompt.
func CalculateStatistics(attempts []history.Attempt, year, month int) StatisticsResult {
	stats := make(map[string]*periodData)
	globalMistakes := make(map[string]struct{})

	for _, a := range attempts {
		if a.AnsweredAt.IsZero() {
			continue
		}
		answeredAt := a.AnsweredAt.UTC()
		if !matchesFilter(answeredAt.Year(), int(answeredAt.Month()), year, month) {
			continue
		}

		period := fmt.Sprintf("%d-%02d", answeredAt.Year(), int(answeredAt.Month()))
		data := ensurePeriodExists(stats, period)
		data.total++
		data.byOperation[a.Operation]++
		if a.Correct {
			data.correct++
			continue
		}
		data.mistakes[a.Prompt] = struct{}{}
		globalMistakes[a.Prompt] = struct{}{}
	}

	return buildResult(stats, globalMistakes)
}

func ensurePeriodExists(stats map[string]*periodData, period string) *periodData {
	if stats[period] == nil {
		stats[period] = &periodData{
			byOperation: make(map[string]int),
			mistakes:    make(map[string]struct{}),
		}
	}
	return stats[period]
}

func matchesFilter(logYear, logMonth, filterYear, filterMonth int) bool {
	if filterYear == 0 {
		return true
	}
	if logYear != filterYear {
		return false
	}
	if filterMonth == 0 {
		return true
	}
	return logMonth == filterMonth
}

func buildResult(stats map[string]*periodData, globalMistakes map[string]struct{}) StatisticsResult {
	periods := make([]PeriodStatistics, 0, len(stats))

	var total, correct int
	for period, data := range stats {
		periods = append(periods, PeriodStatistics{
			Period:         period,
			TotalQuestions: data.total,
			CorrectAnswers: data.correct,
			Accuracy:       Accuracy(data.correct, data.total),
			ByOperation:    data.byOperation,
			UniqueMistakes: len(data.mistakes),
		})
		total += data.total
		correct += data.correct
	}

	// Sort by period descending (newest first)
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Period > periods[j].Period
	})

	return StatisticsResult{
		Periods: periods,
		Aggregate: AggregateStatistics{
			TotalQuestions: total,
			CorrectAnswers: correct,
			Accuracy:       Accuracy(correct, total),
			UniqueMistakes: len(globalMistakes),
		},
	}
}
