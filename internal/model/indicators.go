package model

import (
	"math"
	"slices"
)

// Column is a derived indicator aligned with Series.Candles.
// NaN marks warm-up slots; a nil Column means the indicator is unavailable.
type Column []float64

// Last returns the most recent defined value.
func (c Column) Last() (float64, bool) {
	if len(c) == 0 {
		return 0, false
	}
	v := c[len(c)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Indicators holds the optional derived columns of a Series.
type Indicators struct {
	MA20  Column
	MA50  Column
	MA200 Column
	RSI   Column

	MACD       Column
	MACDSignal Column
	MACDHist   Column

	BBUpper  Column
	BBMiddle Column
	BBLower  Column

	StochK Column
	StochD Column

	ATR        Column
	VolumeMA20 Column
}

// Attached reports whether any indicator column is present.
func (ind Indicators) Attached() bool {
	for _, c := range ind.columns() {
		if c != nil {
			return true
		}
	}
	return false
}

func (ind Indicators) columns() []Column {
	return []Column{
		ind.MA20, ind.MA50, ind.MA200, ind.RSI,
		ind.MACD, ind.MACDSignal, ind.MACDHist,
		ind.BBUpper, ind.BBMiddle, ind.BBLower,
		ind.StochK, ind.StochD, ind.ATR, ind.VolumeMA20,
	}
}

func (ind Indicators) clone() Indicators {
	return Indicators{
		MA20: slices.Clone(ind.MA20), MA50: slices.Clone(ind.MA50), MA200: slices.Clone(ind.MA200),
		RSI:  slices.Clone(ind.RSI),
		MACD: slices.Clone(ind.MACD), MACDSignal: slices.Clone(ind.MACDSignal), MACDHist: slices.Clone(ind.MACDHist),
		BBUpper: slices.Clone(ind.BBUpper), BBMiddle: slices.Clone(ind.BBMiddle), BBLower: slices.Clone(ind.BBLower),
		StochK: slices.Clone(ind.StochK), StochD: slices.Clone(ind.StochD),
		ATR:        slices.Clone(ind.ATR),
		VolumeMA20: slices.Clone(ind.VolumeMA20),
	}
}
