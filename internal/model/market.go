package model

import (
	"slices"
	"time"
)

// Canonical interval vocabulary.
const (
	Interval1m  = "1m"
	Interval5m  = "5m"
	Interval15m = "15m"
	Interval30m = "30m"
	Interval1h  = "1h"
	Interval4h  = "4h"
	Interval1d  = "1d"
	Interval1w  = "1w"
	Interval1mo = "1mo"
)

// Canonical period vocabulary.
const (
	Period1d  = "1d"
	Period5d  = "5d"
	Period1mo = "1mo"
	Period3mo = "3mo"
	Period6mo = "6mo"
	Period1y  = "1y"
)

// SyntheticSource is the provenance tag of generated series.
const SyntheticSource = "synthetic"

var intervals = []string{Interval1m, Interval5m, Interval15m, Interval30m, Interval1h, Interval4h, Interval1d, Interval1w, Interval1mo}

var periodDays = map[string]int{
	Period1d:  1,
	Period5d:  5,
	Period1mo: 30,
	Period3mo: 90,
	Period6mo: 180,
	Period1y:  365,
}

// ValidInterval reports whether interval belongs to the canonical set.
func ValidInterval(interval string) bool {
	return slices.Contains(intervals, interval)
}

// PeriodDays returns the number of calendar days covered by period, or false if unknown.
func PeriodDays(period string) (int, bool) {
	d, ok := periodDays[period]
	return d, ok
}

// IntervalDuration returns the bucket width of a canonical interval.
func IntervalDuration(interval string) (time.Duration, bool) {
	switch interval {
	case Interval1m:
		return time.Minute, true
	case Interval5m:
		return 5 * time.Minute, true
	case Interval15m:
		return 15 * time.Minute, true
	case Interval30m:
		return 30 * time.Minute, true
	case Interval1h:
		return time.Hour, true
	case Interval4h:
		return 4 * time.Hour, true
	case Interval1d:
		return 24 * time.Hour, true
	case Interval1w:
		return 7 * 24 * time.Hour, true
	case Interval1mo:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// Candle represents a single OHLCV bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ascending, deduplicated candle sequence for one symbol/period/interval.
type Series struct {
	Symbol   string
	Period   string
	Interval string

	// Source names the adapter that produced the candles, or SyntheticSource.
	Source    string
	Synthetic bool
	HasVolume bool

	Candles    []Candle
	Indicators Indicators
}

// Len returns the number of candles.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candles)
}

// Empty reports whether the series carries no candles.
func (s *Series) Empty() bool { return s.Len() == 0 }

// Last returns the most recent candle.
func (s *Series) Last() (Candle, bool) {
	if s.Empty() {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Closes extracts the close column.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high column.
func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low column.
func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts the volume column.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Volume
	}
	return out
}

// Clone returns a deep copy, so cached series cannot be mutated by callers.
func (s *Series) Clone() *Series {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Candles = slices.Clone(s.Candles)
	cp.Indicators = s.Indicators.clone()
	return &cp
}
