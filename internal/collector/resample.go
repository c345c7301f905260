package collector

import (
	"time"

	"SignalDesk/internal/model"
)

// resample aggregates ascending candles into buckets of the given width.
func resample(candles []model.Candle, width time.Duration) []model.Candle {
	if len(candles) == 0 || width <= 0 {
		return candles
	}
	var out []model.Candle
	var bucket model.Candle
	var started bool

	for _, c := range candles {
		start := c.Time.Truncate(width)
		if !started || !start.Equal(bucket.Time) {
			if started {
				out = append(out, bucket)
			}
			bucket = model.Candle{Time: start, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume}
			started = true
			continue
		}
		if c.High > bucket.High {
			bucket.High = c.High
		}
		if c.Low < bucket.Low {
			bucket.Low = c.Low
		}
		bucket.Close = c.Close
		bucket.Volume += c.Volume
	}
	if started {
		out = append(out, bucket)
	}
	return out
}

// trimToPeriod keeps the candles inside the period window ending at the last candle.
func trimToPeriod(s *model.Series, period string) {
	last, ok := s.Last()
	if !ok {
		return
	}
	days, ok := model.PeriodDays(period)
	if !ok {
		return
	}
	cutoff := last.Time.AddDate(0, 0, -days)
	i := 0
	for i < len(s.Candles) && s.Candles[i].Time.Before(cutoff) {
		i++
	}
	s.Candles = s.Candles[i:]
}
