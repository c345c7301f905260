package risk

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"SignalDesk/internal/model"
	"SignalDesk/internal/recorder"
)

// Trade rejection reasons.
var (
	ErrDailyLimit    = errors.New("daily loss limit reached")
	ErrPositionLimit = errors.New("position size exceeds limit")
)

// Config seeds a fresh account.
type Config struct {
	InitialBalance   float64
	RiskPerTrade     float64
	MaxDailyRisk     float64
	MaxPositionRatio float64
	StateFile        string
}

// EventRecorder receives every state change.
type EventRecorder interface {
	RecordRiskEvent(evt *recorder.RiskEvent) error
}

// Report summarizes the account for display.
type Report struct {
	Balance         float64
	TotalTrades     int
	WinRate         float64
	RiskPerTrade    float64
	RiskAmount      float64
	MaxDailyRisk    float64
	DailyLossLimit  float64
	TodayLosses     float64
	RemainingTrades int
	Active          bool
	LastResetAt     time.Time
}

// Manager sizes positions and tracks daily losses with concurrency safety.
type Manager struct {
	mu            sync.Mutex
	state         *model.RiskState
	positionRatio decimal.Decimal
	filePath      string
	events        EventRecorder
	log           zerolog.Logger
	now           func() time.Time
}

// NewManager creates a Manager, loading or initializing state from disk.
// An empty StateFile keeps the state in memory only.
func NewManager(cfg Config, events EventRecorder, log zerolog.Logger) (*Manager, error) {
	var state *model.RiskState
	if cfg.StateFile != "" {
		var err error
		if state, err = LoadState(cfg.StateFile); err != nil {
			return nil, fmt.Errorf("load risk state: %w", err)
		}
	}

	m := &Manager{
		positionRatio: decimal.NewFromFloat(cfg.MaxPositionRatio),
		filePath:      cfg.StateFile,
		events:        events,
		log:           log,
		now:           time.Now,
	}
	if state == nil {
		state = &model.RiskState{
			Balance:      decimal.NewFromFloat(cfg.InitialBalance),
			RiskPerTrade: decimal.NewFromFloat(cfg.RiskPerTrade),
			MaxDailyRisk: decimal.NewFromFloat(cfg.MaxDailyRisk),
			LastResetAt:  m.now(),
		}
		log.Info().Float64("balance", cfg.InitialBalance).Msg("initialized risk state")
	}
	m.state = state

	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetState returns a copy of the current risk state.
func (m *Manager) GetState() model.RiskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state
}

// PositionSize returns balance·riskPerTrade / |entry − stop|, or 0 when entry equals stop.
func (m *Manager) PositionSize(entry, stop float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	diff := decimal.NewFromFloat(entry).Sub(decimal.NewFromFloat(stop)).Abs()
	if diff.IsZero() {
		return 0
	}
	size, _ := m.state.RiskAmount().Div(diff).Float64()
	return size
}

// ValidateTrade rejects trades once the daily limit is hit or when size exceeds the position cap.
func (m *Manager) ValidateTrade(symbol string, size float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.TodayLosses.GreaterThanOrEqual(m.state.DailyLossLimit()) {
		m.log.Warn().Str("symbol", symbol).Msg("trade rejected: daily loss limit reached")
		return ErrDailyLimit
	}
	maxPosition := m.state.Balance.Mul(m.positionRatio)
	if decimal.NewFromFloat(size).GreaterThan(maxPosition) {
		m.log.Warn().Str("symbol", symbol).Float64("size", size).Str("max", maxPosition.StringFixed(2)).Msg("trade rejected: position too large")
		return fmt.Errorf("%w: %.2f > %s", ErrPositionLimit, size, maxPosition.StringFixed(2))
	}
	return nil
}

// UpdateTradeResult counts a closed trade; only losses accrue to the daily total.
func (m *Manager) UpdateTradeResult(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.TotalTrades++
	if pnl > 0 {
		m.state.WinningTrades++
	} else if pnl < 0 {
		m.state.TodayLosses = m.state.TodayLosses.Add(decimal.NewFromFloat(-pnl))
	}
	m.commit(recorder.RiskTradeResult, pnl)
}

// SetBalance replaces the account balance; the daily limit follows it.
func (m *Manager) SetBalance(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Balance = decimal.NewFromFloat(balance)
	m.commit(recorder.RiskBalanceSet, balance)
}

// ResetDailyLosses clears today's loss total.
func (m *Manager) ResetDailyLosses() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.TodayLosses = decimal.Zero
	m.state.LastResetAt = m.now()
	m.commit(recorder.RiskDailyReset, 0)
}

// Report returns a snapshot with win rate and the trades left today.
func (m *Manager) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	limit := s.DailyLossLimit()
	riskAmount := s.RiskAmount()

	remaining := 0
	if riskAmount.IsPositive() {
		left, _ := limit.Sub(s.TodayLosses).Div(riskAmount).Float64()
		remaining = int(math.Max(0, math.Floor(left)))
	}

	f := func(d decimal.Decimal) float64 { v, _ := d.Float64(); return v }
	return Report{
		Balance:         f(s.Balance),
		TotalTrades:     s.TotalTrades,
		WinRate:         s.WinRate(),
		RiskPerTrade:    f(s.RiskPerTrade),
		RiskAmount:      f(riskAmount),
		MaxDailyRisk:    f(s.MaxDailyRisk),
		DailyLossLimit:  f(limit),
		TodayLosses:     f(s.TodayLosses),
		RemainingTrades: remaining,
		Active:          s.TodayLosses.LessThan(limit),
		LastResetAt:     s.LastResetAt,
	}
}

// commit persists the state and emits an event. Caller holds m.mu.
func (m *Manager) commit(kind string, amount float64) {
	if err := m.save(); err != nil {
		m.log.Error().Err(err).Str("event", kind).Msg("failed to save risk state")
	}
	if m.events == nil {
		return
	}
	balance, _ := m.state.Balance.Float64()
	losses, _ := m.state.TodayLosses.Float64()
	evt := &recorder.RiskEvent{Kind: kind, Amount: amount, Balance: balance, TodayLosses: losses}
	if err := m.events.RecordRiskEvent(evt); err != nil {
		m.log.Warn().Err(err).Str("event", kind).Msg("failed to record risk event")
	}
}

func (m *Manager) save() error {
	if m.filePath == "" {
		return nil
	}
	return SaveState(m.filePath, m.state)
}
