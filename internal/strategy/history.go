package strategy

import (
	"slices"
	"sync"

	"SignalDesk/internal/model"
)

// HistoryThreshold is the confidence a result must exceed to enter the history.
const HistoryThreshold = 60

// History is an append-only, in-memory log of high-confidence results.
type History struct {
	mu      sync.RWMutex
	results []model.AnalysisResult
}

// Admit appends a copy of r when its confidence exceeds HistoryThreshold.
func (h *History) Admit(r model.AnalysisResult) bool {
	if r.Confidence <= HistoryThreshold {
		return false
	}
	h.mu.Lock()
	h.results = append(h.results, detach(r))
	h.mu.Unlock()
	return true
}

// Recent returns the last limit results in insertion order, filtered by symbol when non-empty.
// A non-positive limit returns every match.
func (h *History) Recent(symbol string, limit int) []model.AnalysisResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []model.AnalysisResult
	for _, r := range h.results {
		if symbol == "" || r.Symbol == symbol {
			out = append(out, detach(r))
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len returns the number of admitted results.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.results)
}

// detach copies the slice and pointer fields so the result shares no memory with r.
func detach(r model.AnalysisResult) model.AnalysisResult {
	r.Votes = slices.Clone(r.Votes)
	if r.Recommend != nil {
		rec := *r.Recommend
		r.Recommend = &rec
	}
	return r
}
