// Package ranker orders served predictions by how alarming they are.
package ranker

import (
	"sort"
	"time"

	"fake-news-detector/model"
)

const (
	confidenceWeight = 0.7
	recencyWeight    = 0.3
)

// ScoredEntry wraps a history entry with scoring details.
type ScoredEntry struct {
	Entry   model.HistoryEntry
	Score   float64
	Recency float64
}

// Rank scores entries by fake probability and recency, highest first.
// Recency decays as 1/(1+hours) relative to now.
func Rank(entries []model.HistoryEntry, now time.Time) []ScoredEntry {
	if len(entries) == 0 {
		return nil
	}
	scored := make([]ScoredEntry, 0, len(entries))
	for _, e := range entries {
		hours := now.Sub(e.Timestamp).Hours()
		if hours < 0 {
			hours = 0
		}
		recency := 1 / (1 + hours)
		scored = append(scored, ScoredEntry{
			Entry:   e,
			Score:   e.Confidence*confidenceWeight + recency*recencyWeight,
			Recency: recency,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// TopByResult returns up to n of the highest ranked entries with the given result label.
func TopByResult(entries []model.HistoryEntry, result string, n int, now time.Time) []ScoredEntry {
	var out []ScoredEntry
	for _, s := range Rank(entries, now) {
		if len(out) == n {
			break
		}
		if s.Entry.Result == result {
			out = append(out, s)
		}
	}
	return out
}
