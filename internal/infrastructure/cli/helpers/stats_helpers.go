package helpers

import (
	"sort"
	"strings"

	"github.com/doeshing/pdqa/internal/domain"
)

// QuestionStatistic represents how often a question was asked
type QuestionStatistic struct {
	Question string
	Count    int
}

// HistoryStatistics summarizes a slice of history records.
type HistoryStatistics struct {
	Total     int
	Completed int
	Failed    int
	Pending   int
	// Documents counts citations per display name.
	Documents map[string]int
	questions map[string]int
}

// AnalyzeHistory tallies outcomes, questions and cited documents.
func AnalyzeHistory(records []domain.HistoryRecord) HistoryStatistics {
	stats := HistoryStatistics{
		Total:     len(records),
		Documents: make(map[string]int),
		questions: make(map[string]int),
	}
	for _, rec := range records {
		switch {
		case rec.Error != "":
			stats.Failed++
		case rec.Complete:
			stats.Completed++
		default:
			stats.Pending++
		}
		stats.questions[normalizeQuestion(rec.QueryText)]++
		for _, entry := range domain.ParseCitations(rec.Sources) {
			if entry.Citation != nil {
				stats.Documents[entry.Citation.DisplayName]++
			}
		}
	}
	return stats
}

// TopQuestions returns the top N most frequently asked questions.
// If limit is 0 or negative, returns all questions.
func (s HistoryStatistics) TopQuestions(limit int) []QuestionStatistic {
	out := make([]QuestionStatistic, 0, len(s.questions))
	for q, count := range s.questions {
		out = append(out, QuestionStatistic{Question: q, Count: count})
	}
	sortStatistics(out)
	if shouldLimitResults(limit, len(out)) {
		return out[:limit]
	}
	return out
}

// CompletionRate is the share of finished queries that produced an answer.
func (s HistoryStatistics) CompletionRate() float64 {
	finished := s.Completed + s.Failed
	if finished == 0 {
		return 0.0
	}
	return float64(s.Completed) / float64(finished) * 100.0
}

// sortStatistics orders by count (descending) then by text (ascending).
func sortStatistics(stats []QuestionStatistic) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Question < stats[j].Question
		}
		return stats[i].Count > stats[j].Count
	})
}

func normalizeQuestion(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func shouldLimitResults(limit int, actualLength int) bool {
	return limit > 0 && actualLength > limit
}
