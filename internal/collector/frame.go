package collector

import (
	"math"
	"slices"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"SignalDesk/internal/model"
)

// Canonical column names.
const (
	ColOpen   = "Open"
	ColHigh   = "High"
	ColLow    = "Low"
	ColClose  = "Close"
	ColVolume = "Volume"
)

var requiredColumns = []string{ColOpen, ColHigh, ColLow, ColClose}

var nan = math.NaN()

// outlierMinRows is the row count above which the percentile filter runs.
const outlierMinRows = 10

// Frame is a raw vendor response mapped onto canonical column names.
// NaN marks a missing cell.
type Frame struct {
	Times   []time.Time
	Columns map[string][]float64
}

// NewFrame allocates n rows for the given columns, every cell NaN.
func NewFrame(n int, columns ...string) *Frame {
	f := &Frame{Times: make([]time.Time, n), Columns: make(map[string][]float64, len(columns))}
	for _, c := range columns {
		col := make([]float64, n)
		for i := range col {
			col[i] = nan
		}
		f.Columns[c] = col
	}
	return f
}

// Set stores v at row i of column col if the column exists.
func (f *Frame) Set(i int, col string, v float64) {
	if c, ok := f.Columns[col]; ok && i < len(c) {
		c[i] = v
	}
}

type row struct {
	t      time.Time
	vals   [4]float64
	volume float64
}

// Clean normalizes a frame into an ascending, deduplicated series.
// A frame missing any OHLC column yields an empty series.
func Clean(f *Frame) *model.Series {
	out := &model.Series{}
	if f == nil {
		return out
	}
	cols := make([][]float64, len(requiredColumns))
	for i, name := range requiredColumns {
		c, ok := f.Columns[name]
		if !ok {
			return out
		}
		cols[i] = c
	}
	vol, hasVolume := f.Columns[ColVolume]
	out.HasVolume = hasVolume

	rows := make([]row, 0, len(f.Times))
	for i, t := range f.Times {
		r := row{t: t}
		ok := !t.IsZero()
		for j := range cols {
			if i >= len(cols[j]) || !finite(cols[j][i]) {
				ok = false
				break
			}
			r.vals[j] = cols[j][i]
		}
		if !ok || !ordered(r.vals) {
			continue
		}
		if hasVolume && i < len(vol) && finite(vol[i]) {
			r.volume = vol[i]
		}
		rows = append(rows, r)
	}

	rows = sortDedupe(rows)
	for j := range requiredColumns {
		rows = filterOutliers(rows, j)
	}

	out.Candles = make([]model.Candle, len(rows))
	for i, r := range rows {
		out.Candles[i] = model.Candle{
			Time:   r.t,
			Open:   r.vals[0],
			High:   r.vals[1],
			Low:    r.vals[2],
			Close:  r.vals[3],
			Volume: r.volume,
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ordered checks Low <= min(Open,Close) <= max(Open,Close) <= High.
func ordered(v [4]float64) bool {
	o, h, l, c := v[0], v[1], v[2], v[3]
	return l <= math.Min(o, c) && math.Max(o, c) <= h
}

// sortDedupe orders rows by time and keeps the last row for a repeated timestamp.
func sortDedupe(rows []row) []row {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })
	out := rows[:0]
	for _, r := range rows {
		if n := len(out); n > 0 && out[n-1].t.Equal(r.t) {
			out[n-1] = r
			continue
		}
		out = append(out, r)
	}
	return out
}

// filterOutliers drops rows whose column j lies outside [q05-3*iqr, q95+3*iqr].
func filterOutliers(rows []row, j int) []row {
	if len(rows) <= outlierMinRows {
		return rows
	}
	vals := make([]float64, len(rows))
	for i, r := range rows {
		vals[i] = r.vals[j]
	}
	slices.Sort(vals)
	q1 := stat.Quantile(0.05, stat.LinInterp, vals, nil)
	q3 := stat.Quantile(0.95, stat.LinInterp, vals, nil)
	iqr := q3 - q1
	lo, hi := q1-3*iqr, q3+3*iqr

	out := rows[:0]
	for _, r := range rows {
		if v := r.vals[j]; v >= lo && v <= hi {
			out = append(out, r)
		}
	}
	return out
}
