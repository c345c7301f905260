package calculator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"SignalDesk/internal/model"
)

// Engine attaches derived indicator columns to a series.
// A disabled engine passes series through unchanged.
type Engine struct {
	enabled bool
	log     zerolog.Logger
}

// NewEngine creates an indicator engine; enabled is the capability flag.
func NewEngine(enabled bool, log zerolog.Logger) *Engine {
	return &Engine{enabled: enabled, log: log}
}

// Available reports whether the engine computes indicators.
func (e *Engine) Available() bool { return e != nil && e.enabled }

// Attach returns a copy of s with every indicator that has enough history.
// A failed indicator leaves its column nil.
func (e *Engine) Attach(s *model.Series) *model.Series {
	if !e.Available() || s.Empty() {
		return s
	}
	out := s.Clone()
	closes, highs, lows := out.Closes(), out.Highs(), out.Lows()
	ind := &out.Indicators

	ind.MA20 = e.column("ma20", len(closes), 20-1, func() []float64 { return talib.Sma(closes, 20) })
	ind.MA50 = e.column("ma50", len(closes), 50-1, func() []float64 { return talib.Sma(closes, 50) })
	ind.MA200 = e.column("ma200", len(closes), 200-1, func() []float64 { return talib.Sma(closes, 200) })
	ind.RSI = lossFreeRSI(e.column("rsi", len(closes), 14, func() []float64 { return talib.Rsi(closes, 14) }), closes)

	const macdLookback = 26 - 1 + 9 - 1
	var macd, signal, hist []float64
	if e.guard("macd", len(closes), macdLookback, func() { macd, signal, hist = talib.Macd(closes, 12, 26, 9) }) {
		ind.MACD = warmup(macd, macdLookback)
		ind.MACDSignal = warmup(signal, macdLookback)
		ind.MACDHist = warmup(hist, macdLookback)
	}

	const bbLookback = 20 - 1
	var upper, middle, lower []float64
	if e.guard("bbands", len(closes), bbLookback, func() { upper, middle, lower = talib.BBands(closes, 20, 2.0, 2.0, talib.SMA) }) {
		ind.BBUpper = warmup(upper, bbLookback)
		ind.BBMiddle = warmup(middle, bbLookback)
		ind.BBLower = warmup(lower, bbLookback)
	}

	const stochLookback = 14 - 1 + 3 - 1 + 3 - 1
	var k, d []float64
	if e.guard("stoch", len(closes), stochLookback, func() { k, d = talib.Stoch(highs, lows, closes, 14, 3, talib.SMA, 3, talib.SMA) }) {
		ind.StochK = warmup(k, stochLookback)
		ind.StochD = warmup(d, stochLookback)
	}

	ind.ATR = e.column("atr", len(closes), 14, func() []float64 { return talib.Atr(highs, lows, closes, 14) })
	if out.HasVolume {
		volumes := out.Volumes()
		ind.VolumeMA20 = e.column("volume_ma20", len(volumes), 20-1, func() []float64 { return talib.Sma(volumes, 20) })
	}
	return out
}

// column runs a single-output indicator under guard and masks its warm-up slots.
func (e *Engine) column(name string, n, lookback int, fn func() []float64) model.Column {
	var vals []float64
	if !e.guard(name, n, lookback, func() { vals = fn() }) {
		return nil
	}
	return warmup(vals, lookback)
}

// guard runs fn when n exceeds lookback and converts a panic into a logged failure.
func (e *Engine) guard(name string, n, lookback int, fn func()) (ok bool) {
	if n <= lookback {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn().Str("indicator", name).Str("panic", fmt.Sprint(r)).Msg("indicator computation failed")
			ok = false
		}
	}()
	fn()
	return true
}

// lossFreeRSI sets every defined slot whose closes have not fallen so far to 100,
// matching CalculateRSI when the smoothed loss is zero. talib reports 0 on a flat window.
func lossFreeRSI(col model.Column, closes []float64) model.Column {
	if col == nil {
		return nil
	}
	fell := false
	for i := 1; i < len(col) && i < len(closes); i++ {
		if closes[i] < closes[i-1] {
			fell = true
		}
		if fell {
			return col
		}
		if !math.IsNaN(col[i]) {
			col[i] = 100
		}
	}
	return col
}

// warmup replaces the first lookback values with NaN.
func warmup(vals []float64, lookback int) model.Column {
	if len(vals) == 0 {
		return nil
	}
	out := make(model.Column, len(vals))
	for i, v := range vals {
		if i < lookback {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}
