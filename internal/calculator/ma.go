package calculator

import (
	"errors"

	"SignalDesk/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateMA returns the period SMA of candle closes.
func CalculateMA(candles []model.Candle, period int) (float64, error) {
	return CalculateSMA(extractCloses(candles), period)
}

// Mean returns the arithmetic mean of prices, or an error when prices is empty.
func Mean(prices []float64) (float64, error) {
	if len(prices) == 0 {
		return 0, errors.New("no prices")
	}
	return CalculateSMA(prices, len(prices))
}

func extractCloses(candles []model.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
