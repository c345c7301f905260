package strategy

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/provider"
)

const (
	analysisPeriod   = model.Period3mo
	analysisInterval = model.Interval4h
	levelWindow      = 20
	rsiPeriod        = 14

	// RecommendThreshold is the confidence above which buy/sell results carry entry, stop and target.
	RecommendThreshold = 70
)

// Watch lists for the batch operations.
var (
	SignalSymbols   = []string{"EURUSD", "GBPUSD", "USDJPY", "USDCHF", "USDCAD", "AUDUSD", "XAUUSD", "USOIL"}
	AnalysisSymbols = []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD", "USOIL"}
)

// SeriesProvider supplies candle series.
type SeriesProvider interface {
	GetSeries(ctx context.Context, symbol, period, interval string) (*model.Series, error)
}

// ResultRecorder persists admitted results.
type ResultRecorder interface {
	RecordAnalysis(r *model.AnalysisResult) error
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRecorder writes every result to an audit log.
func WithRecorder(r ResultRecorder) Option {
	return func(a *Analyzer) { a.recorder = r }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// Analyzer turns series into trading signals.
type Analyzer struct {
	provider SeriesProvider
	recorder ResultRecorder
	history  *History
	log      zerolog.Logger
	now      func() time.Time
}

// NewAnalyzer creates an Analyzer reading from src.
func NewAnalyzer(src SeriesProvider, log zerolog.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider: src,
		history:  &History{},
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// History exposes the in-memory signal history.
func (a *Analyzer) History() *History { return a.history }

// Analyze produces a signal for symbol from its 3mo/4h series.
func (a *Analyzer) Analyze(ctx context.Context, symbol string) (*model.AnalysisResult, error) {
	start := time.Now()
	defer func() {
		metrics.AnalysisLatency.WithLabelValues(symbol).Observe(time.Since(start).Seconds())
	}()

	s, err := a.provider.GetSeries(ctx, symbol, analysisPeriod, analysisInterval)
	if errors.Is(err, provider.ErrNotAvailable) {
		return nil, &AnalysisError{Symbol: symbol, Reason: "fetch series", Err: errors.Join(ErrNoData, err)}
	}
	if err != nil {
		return nil, &AnalysisError{Symbol: symbol, Reason: "fetch series", Err: err}
	}
	if s == nil || s.Empty() {
		return nil, &AnalysisError{Symbol: symbol, Reason: "empty series", Err: ErrNoData}
	}

	last, _ := s.Last()
	r := &model.AnalysisResult{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		CurrentPrice: last.Close,
		Source:       s.Source,
		Synthetic:    s.Synthetic,
		Timestamp:    a.now(),
	}

	r.MA20 = a.movingAverage(s, s.Indicators.MA20, 20)
	r.MA50 = a.movingAverage(s, s.Indicators.MA50, 50)
	if s.Len() < 200 {
		r.MA200 = r.MA50
	} else {
		r.MA200 = a.movingAverage(s, s.Indicators.MA200, 200)
	}

	if v, ok := s.Indicators.RSI.Last(); ok {
		r.RSI = v
	} else if r.RSI, err = calculator.CalculateRSI(s.Candles, rsiPeriod); err != nil {
		return nil, &AnalysisError{Symbol: symbol, Reason: "rsi", Err: err}
	}

	if r.Support, r.Resistance, err = calculator.SupportResistance(s.Candles, levelWindow); err != nil {
		return nil, &AnalysisError{Symbol: symbol, Reason: "support/resistance", Err: err}
	}
	r.Volatility = calculator.Volatility(s.Candles)
	r.Trend, r.TrendStrength = DetermineTrend(r.CurrentPrice, r.MA20, r.MA50, r.MA200)

	r.Signal, r.Confidence, r.Votes = GenerateSignal(SignalInputs{
		Price:      r.CurrentPrice,
		MA20:       r.MA20,
		MA50:       r.MA50,
		RSI:        r.RSI,
		Support:    r.Support,
		Resistance: r.Resistance,
	})
	r.Recommend = Recommend(r)

	metrics.Signals.WithLabelValues(symbol, string(r.Signal)).Inc()
	a.record(r)

	a.log.Debug().
		Str("symbol", symbol).
		Str("signal", string(r.Signal)).
		Float64("confidence", r.Confidence).
		Str("source", r.Source).
		Bool("synthetic", r.Synthetic).
		Msg("analysis complete")
	return r, nil
}

// movingAverage prefers the attached column, then a direct SMA, then the mean of all closes.
func (a *Analyzer) movingAverage(s *model.Series, col model.Column, period int) float64 {
	if v, ok := col.Last(); ok {
		return v
	}
	if v, err := calculator.CalculateMA(s.Candles, period); err == nil {
		return v
	}
	v, _ := calculator.Mean(s.Closes())
	a.log.Warn().
		Str("symbol", s.Symbol).
		Int("period", period).
		Int("candles", s.Len()).
		Msg("short series, using mean of available closes")
	return v
}

// record admits r to the history and writes every result to the audit recorder.
func (a *Analyzer) record(r *model.AnalysisResult) {
	if a.history.Admit(*r) {
		a.log.Info().
			Str("symbol", r.Symbol).
			Str("signal", string(r.Signal)).
			Float64("confidence", r.Confidence).
			Msg("high-confidence signal")
	}
	if a.recorder == nil {
		return
	}
	if err := a.recorder.RecordAnalysis(r); err != nil {
		a.log.Warn().Err(err).Str("symbol", r.Symbol).Msg("failed to record analysis")
	}
}

// Recommend returns entry, stop and target for a strong buy or sell, else nil.
func Recommend(r *model.AnalysisResult) *model.Recommendation {
	if r.Confidence <= RecommendThreshold {
		return nil
	}
	switch r.Signal {
	case model.Buy:
		return &model.Recommendation{Entry: r.CurrentPrice, StopLoss: r.Support, TakeProfit: r.Resistance}
	case model.Sell:
		return &model.Recommendation{Entry: r.CurrentPrice, StopLoss: r.Resistance, TakeProfit: r.Support}
	}
	return nil
}

// TradingSignals analyzes SignalSymbols, ordered by descending confidence.
func (a *Analyzer) TradingSignals(ctx context.Context) []model.AnalysisResult {
	return a.batch(ctx, SignalSymbols)
}

// MarketAnalysis analyzes AnalysisSymbols, ordered by descending confidence.
func (a *Analyzer) MarketAnalysis(ctx context.Context) []model.AnalysisResult {
	return a.batch(ctx, AnalysisSymbols)
}

// batch skips failing symbols.
func (a *Analyzer) batch(ctx context.Context, symbols []string) []model.AnalysisResult {
	out := make([]model.AnalysisResult, 0, len(symbols))
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		r, err := a.Analyze(ctx, sym)
		if err != nil {
			a.log.Warn().Err(err).Str("symbol", sym).Msg("analysis skipped")
			continue
		}
		out = append(out, *r)
	}
	slices.SortStableFunc(out, func(x, y model.AnalysisResult) int {
		switch {
		case x.Confidence > y.Confidence:
			return -1
		case x.Confidence < y.Confidence:
			return 1
		}
		return 0
	})
	return out
}

// SignalHistory returns the last limit admitted results, filtered by symbol when non-empty.
func (a *Analyzer) SignalHistory(symbol string, limit int) []model.AnalysisResult {
	return a.history.Recent(symbol, limit)
}
