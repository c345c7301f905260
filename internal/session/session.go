// Package session tracks the forex trading sessions by GMT hour.
package session

import (
	"sort"
	"time"
)

// Session is a trading window in whole GMT hours, open ≤ hour < close.
type Session struct {
	Name  string
	Open  int
	Close int
	Pairs []string
}

// Status is a session evaluated at a point in time.
type Status struct {
	Session
	Active bool
}

// DefaultSessions are the Tokyo, London and New York windows.
var DefaultSessions = []Session{
	{Name: "Tokyo", Open: 0, Close: 9, Pairs: []string{"USDJPY", "EURJPY", "AUDJPY", "GBPJPY"}},
	{Name: "London", Open: 8, Close: 16, Pairs: []string{"EURUSD", "GBPUSD", "EURGBP", "GBPJPY"}},
	{Name: "New York", Open: 13, Close: 22, Pairs: []string{"EURUSD", "GBPUSD", "USDJPY", "USDCAD", "AUDUSD"}},
}

// Manager answers session questions for a given instant.
type Manager struct {
	sessions []Session
}

// NewManager returns a Manager over sessions, or DefaultSessions when none are given.
func NewManager(sessions ...Session) *Manager {
	if len(sessions) == 0 {
		sessions = DefaultSessions
	}
	return &Manager{sessions: sessions}
}

func (s Session) activeAt(t time.Time) bool {
	h := t.UTC().Hour()
	return s.Open <= h && h < s.Close
}

// Sessions reports every session with its state at t.
func (m *Manager) Sessions(t time.Time) []Status {
	out := make([]Status, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = Status{Session: s, Active: s.activeAt(t)}
	}
	return out
}

// IsActive reports whether the named session is open at t.
func (m *Manager) IsActive(name string, t time.Time) bool {
	for _, s := range m.sessions {
		if s.Name == name {
			return s.activeAt(t)
		}
	}
	return false
}

// RecommendedPairs returns the sorted union of pairs for sessions open at t.
// ok is false when no session is open, in which case every pair is fair game.
func (m *Manager) RecommendedPairs(t time.Time) (pairs []string, ok bool) {
	seen := make(map[string]bool)
	for _, s := range m.sessions {
		if !s.activeAt(t) {
			continue
		}
		ok = true
		for _, p := range s.Pairs {
			if !seen[p] {
				seen[p] = true
				pairs = append(pairs, p)
			}
		}
	}
	sort.Strings(pairs)
	return pairs, ok
}
