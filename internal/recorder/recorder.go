package recorder

import "SignalDesk/internal/model"

// Risk event kinds.
const (
	RiskTradeResult = "TRADE_RESULT"
	RiskBalanceSet  = "BALANCE_SET"
	RiskDailyReset  = "DAILY_RESET"
)

// RiskEvent records a change to the risk manager's state.
type RiskEvent struct {
	Kind        string
	Amount      float64
	Balance     float64
	TodayLosses float64
	Note        string
}

// Recorder persists history for later analysis.
type Recorder interface {
	RecordAnalysis(r *model.AnalysisResult) error
	RecordSourceProbe(symbol string, results map[string]bool) error
	RecordRiskEvent(evt *RiskEvent) error
	Close() error
}
