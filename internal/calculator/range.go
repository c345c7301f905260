package calculator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"SignalDesk/internal/model"
)

// TradingPeriodsPerYear annualizes per-period volatility.
const TradingPeriodsPerYear = 252

// SupportResistance returns min(Low) and max(High) over the last window candles.
// With fewer than window candles the whole series is used.
func SupportResistance(candles []model.Candle, window int) (support, resistance float64, err error) {
	if len(candles) == 0 {
		return 0, 0, errors.New("no candles provided")
	}
	start := len(candles) - window
	if window <= 0 || start < 0 {
		start = 0
	}
	lows := make([]float64, 0, len(candles)-start)
	highs := make([]float64, 0, len(candles)-start)
	for _, c := range candles[start:] {
		lows = append(lows, c.Low)
		highs = append(highs, c.High)
	}
	return floats.Min(lows), floats.Max(highs), nil
}

// Volatility is the sample standard deviation of simple returns, annualized by sqrt(252).
func Volatility(candles []model.Candle) float64 {
	if len(candles) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, candles[i].Close/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}
	sd := stat.StdDev(returns, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd * math.Sqrt(TradingPeriodsPerYear)
}

// PricePosition returns where price sits within [low, high] (0.0~1.0).
func PricePosition(price, low, high float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (price - low) / (high - low)
	return math.Max(0, math.Min(1, pos)), nil
}
