package provider

import (
	"math"
	"math/rand"
	"time"

	"github.com/cespare/xxhash/v2"

	"SignalDesk/internal/collector"
	"SignalDesk/internal/model"
)

const syntheticCandles = 500

var basePrices = map[string]float64{
	"EURUSD": 1.0850,
	"GBPUSD": 1.2650,
	"USDJPY": 149.50,
	"USDCHF": 0.8850,
	"USDCAD": 1.3600,
	"AUDUSD": 0.6550,
	"NZDUSD": 0.6100,
	"XAUUSD": 1985.50,
	"XAGUSD": 23.25,
	"USOIL":  75.80,
	"NAS100": 16050,
	"SPX500": 4550,
	"DJI":    35000,
}

// syntheticSeed derives a stable per-symbol seed in [0, 10000).
func syntheticSeed(symbol string) int64 {
	return int64(xxhash.Sum64String(symbol) % 10000)
}

// GenerateSynthetic builds 500 hourly candles ending at now from a symbol-seeded random walk.
// The output depends only on symbol and now.
func GenerateSynthetic(symbol string, now time.Time) (*model.Series, error) {
	rng := rand.New(rand.NewSource(syntheticSeed(symbol)))
	base, ok := basePrices[symbol]
	if !ok {
		base = 1.0
	}

	prices := make([]float64, syntheticCandles)
	p := base
	for i := range prices {
		p *= 1 + 0.0001 + 0.005*rng.NormFloat64()
		prices[i] = p
	}

	start := now.Add(-time.Duration(syntheticCandles-1) * time.Hour)
	f := collector.NewFrame(syntheticCandles, collector.ColOpen, collector.ColHigh, collector.ColLow, collector.ColClose, collector.ColVolume)
	for i, price := range prices {
		vol := 0.002 * (1 + 0.5*math.Sin(float64(i)/50))
		open := price
		high := price * (1 + math.Abs(vol*rng.NormFloat64()))
		low := price * (1 - math.Abs(vol*rng.NormFloat64()))
		cls := price * (1 + 0.5*vol*rng.NormFloat64())
		high = math.Max(high, math.Max(open, cls))
		low = math.Min(low, math.Min(open, cls))
		volume := 1e6 * (0.8 + 0.4*math.Sin(float64(i)/20) + 0.3*rng.Float64())

		f.Times[i] = start.Add(time.Duration(i) * time.Hour)
		f.Set(i, collector.ColOpen, open)
		f.Set(i, collector.ColHigh, high)
		f.Set(i, collector.ColLow, low)
		f.Set(i, collector.ColClose, cls)
		f.Set(i, collector.ColVolume, volume)
	}

	s := collector.Clean(f)
	if s.Empty() {
		return nil, collector.ErrEmptySeries
	}
	s.Symbol = symbol
	s.Source = model.SyntheticSource
	s.Synthetic = true
	return s, nil
}
