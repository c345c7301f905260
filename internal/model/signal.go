package model

import "time"

// Direction is the call emitted by the signal synthesizer.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
	Hold Direction = "hold"
)

// Vote is one voter's contribution to the final signal.
type Vote struct {
	Voter      string
	Direction  Direction
	Confidence float64
}

// Recommendation is attached to strong directional calls.
type Recommendation struct {
	Entry      float64
	StopLoss   float64
	TakeProfit float64
}

// AnalysisResult is the immutable output of a single-symbol analysis.
type AnalysisResult struct {
	ID            string
	Symbol        string
	CurrentPrice  float64
	Trend         string
	TrendStrength int
	Signal        Direction
	Confidence    float64
	RSI           float64
	MA20          float64
	MA50          float64
	MA200         float64
	Support       float64
	Resistance    float64
	Volatility    float64
	Votes         []Vote
	Source        string
	Synthetic     bool
	Recommend     *Recommendation
	Timestamp     time.Time
}
