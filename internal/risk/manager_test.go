package risk

import (
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"SignalDesk/internal/recorder"
)

type captureEvents struct {
	mu     sync.Mutex
	events []recorder.RiskEvent
}

func (c *captureEvents) RecordRiskEvent(evt *recorder.RiskEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, *evt)
	return nil
}

func testConfig(dir string) Config {
	return Config{
		InitialBalance:   10000,
		RiskPerTrade:     0.03,
		MaxDailyRisk:     0.09,
		MaxPositionRatio: 0.1,
		StateFile:        filepath.Join(dir, "risk_state.json"),
	}
}

func newTestManager(t *testing.T) (*Manager, *captureEvents) {
	t.Helper()
	ev := &captureEvents{}
	m, err := NewManager(testConfig(t.TempDir()), ev, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, ev
}

func TestPositionSize(t *testing.T) {
	m, _ := newTestManager(t)

	tests := []struct {
		name        string
		entry, stop float64
		want        float64
	}{
		{"long", 1.1000, 1.0900, 30000},
		{"short", 1.0900, 1.1000, 30000},
		{"wide stop", 100, 90, 30},
		{"entry equals stop", 1.1, 1.1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.PositionSize(tt.entry, tt.stop)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("PositionSize(%v, %v) = %v, want %v", tt.entry, tt.stop, got, tt.want)
			}
		})
	}
}

func TestValidateTrade(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.ValidateTrade("EURUSD", 1000); err != nil {
		t.Errorf("size at cap rejected: %v", err)
	}
	if err := m.ValidateTrade("EURUSD", 1000.01); !errors.Is(err, ErrPositionLimit) {
		t.Errorf("oversized trade: got %v, want ErrPositionLimit", err)
	}

	m.UpdateTradeResult(-900)
	if err := m.ValidateTrade("EURUSD", 10); !errors.Is(err, ErrDailyLimit) {
		t.Errorf("after daily limit: got %v, want ErrDailyLimit", err)
	}

	m.ResetDailyLosses()
	if err := m.ValidateTrade("EURUSD", 10); err != nil {
		t.Errorf("after reset: %v", err)
	}
}

func TestUpdateTradeResultAndReport(t *testing.T) {
	m, ev := newTestManager(t)

	m.UpdateTradeResult(120)
	m.UpdateTradeResult(-300)
	m.UpdateTradeResult(0)

	r := m.Report()
	if r.TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", r.TotalTrades)
	}
	if math.Abs(r.WinRate-100.0/3) > 1e-9 {
		t.Errorf("WinRate = %v", r.WinRate)
	}
	if r.TodayLosses != 300 || r.DailyLossLimit != 900 || r.RiskAmount != 300 {
		t.Errorf("losses/limit/risk = %v/%v/%v", r.TodayLosses, r.DailyLossLimit, r.RiskAmount)
	}
	if r.RemainingTrades != 2 || !r.Active {
		t.Errorf("remaining = %d active = %v, want 2 true", r.RemainingTrades, r.Active)
	}
	if r.Balance != 10000 {
		t.Errorf("trade results must not move the balance, got %v", r.Balance)
	}
	if len(ev.events) != 3 || ev.events[1].Kind != recorder.RiskTradeResult || ev.events[1].TodayLosses != 300 {
		t.Errorf("events = %+v", ev.events)
	}
}

func TestSetBalanceMovesLimits(t *testing.T) {
	m, ev := newTestManager(t)
	m.SetBalance(20000)

	r := m.Report()
	if r.DailyLossLimit != 1800 || r.RiskAmount != 600 {
		t.Errorf("limit/risk = %v/%v, want 1800/600", r.DailyLossLimit, r.RiskAmount)
	}
	if got := m.PositionSize(110, 100); math.Abs(got-60) > 1e-9 {
		t.Errorf("PositionSize = %v, want 60", got)
	}
	if len(ev.events) != 1 || ev.events[0].Kind != recorder.RiskBalanceSet {
		t.Errorf("events = %+v", ev.events)
	}
}

func TestStatePersistence(t *testing.T) {
	cfg := testConfig(t.TempDir())
	m, err := NewManager(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.SetBalance(5000)
	m.UpdateTradeResult(-100)

	// A different seed balance must not override persisted state.
	cfg.InitialBalance = 1
	reloaded, err := NewManager(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	st := reloaded.GetState()
	if !st.Balance.Equal(m.GetState().Balance) || st.TotalTrades != 1 {
		t.Errorf("reloaded state = %+v", st)
	}
	if r := reloaded.Report(); r.TodayLosses != 100 {
		t.Errorf("TodayLosses = %v, want 100", r.TodayLosses)
	}
}

func TestInMemoryState(t *testing.T) {
	cfg := testConfig("")
	cfg.StateFile = ""
	m, err := NewManager(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.UpdateTradeResult(-10)
	if m.Report().TodayLosses != 10 {
		t.Error("in-memory manager lost state")
	}
}
