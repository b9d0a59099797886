// Package history keeps the most recent predictions in memory.
package history

import (
	"sync"

	"fake-news-detector/model"
)

// DefaultLimit is the number of entries kept when no limit is configured.
const DefaultLimit = 100

// History is a bounded, concurrency-safe list of predictions.
type History struct {
	mu      sync.Mutex
	limit   int
	nextID  int64
	entries []model.HistoryEntry
}

// New returns an empty history holding at most limit entries.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit, nextID: 1}
}

// Add stores e with a fresh ID, evicting the oldest entries beyond the limit.
func (h *History) Add(e model.HistoryEntry) model.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	e.ID = h.nextID
	h.nextID++
	h.entries = append(h.entries, e)
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
	return e
}

// List returns a copy of the entries, oldest first.
func (h *History) List() []model.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Recent returns up to n entries, newest first.
func (h *History) Recent(n int) []model.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]model.HistoryEntry, 0, n)
	for i := len(h.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

// Len reports the number of stored entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Stats aggregates the stored entries.
type Stats struct {
	Total          int
	ByResult       map[string]int
	MeanConfidence float64
}

// Stats counts entries per result label.
func (h *History) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Stats{Total: len(h.entries), ByResult: make(map[string]int)}
	var sum float64
	for _, e := range h.entries {
		s.ByResult[e.Result]++
		sum += e.Confidence
	}
	if s.Total > 0 {
		s.MeanConfidence = sum / float64(s.Total)
	}
	return s
}
