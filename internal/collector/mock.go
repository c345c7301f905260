package collector

import (
	"context"
	"sync"

	"SignalDesk/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
type MockSource struct {
	SourceName string
	Series     *model.Series
	Err        error

	mu    sync.Mutex
	calls int
}

func (m *MockSource) Name() string {
	if m.SourceName == "" {
		return "mock"
	}
	return m.SourceName
}

func (m *MockSource) Fetch(_ context.Context, symbol, period, interval string) (*model.Series, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Series.Empty() {
		return nil, ErrEmptySeries
	}
	s := m.Series.Clone()
	s.Symbol, s.Period, s.Interval = symbol, period, interval
	if s.Source == "" {
		s.Source = m.Name()
	}
	return s, nil
}

// Calls returns how many times Fetch was invoked.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
