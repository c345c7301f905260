package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskState tracks the single trading account used for position sizing.
type RiskState struct {
	Balance       decimal.Decimal `json:"balance"`
	RiskPerTrade  decimal.Decimal `json:"risk_per_trade"`
	MaxDailyRisk  decimal.Decimal `json:"max_daily_risk"`
	TodayLosses   decimal.Decimal `json:"today_losses"`
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	LastResetAt   time.Time       `json:"last_reset_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// DailyLossLimit is the absolute loss allowed per day.
func (s RiskState) DailyLossLimit() decimal.Decimal {
	return s.Balance.Mul(s.MaxDailyRisk)
}

// RiskAmount is the capital put at risk by one trade.
func (s RiskState) RiskAmount() decimal.Decimal {
	return s.Balance.Mul(s.RiskPerTrade)
}

// WinRate returns the percentage of winning trades.
func (s RiskState) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.TotalTrades) * 100
}
