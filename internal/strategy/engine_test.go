package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/model"
	"SignalDesk/internal/provider"
)

type fakeProvider struct {
	series map[string]*model.Series
	errs   map[string]error
}

func (f *fakeProvider) GetSeries(_ context.Context, symbol, _, _ string) (*model.Series, error) {
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	s, ok := f.series[symbol]
	if !ok {
		return &model.Series{Symbol: symbol}, nil
	}
	return s.Clone(), nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []*model.AnalysisResult
}

func (f *fakeRecorder) RecordAnalysis(r *model.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

// risingSeries has closes base, base+1, ... with a one-unit range per candle.
func risingSeries(symbol string, n int, base float64) *model.Series {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	for i := range candles {
		c := base + float64(i)
		candles[i] = model.Candle{
			Time:  start.Add(time.Duration(i) * 4 * time.Hour),
			Open:  c - 0.2,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
		}
	}
	return &model.Series{Symbol: symbol, Source: "mock", Candles: candles}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestGenerateSignal_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		in        SignalInputs
		wantDir   model.Direction
		wantConf  float64
		wantVotes int
	}{
		{
			name:      "ma only buy",
			in:        SignalInputs{Price: 110, MA20: 105, MA50: 100, RSI: 50, Support: 90, Resistance: 130},
			wantDir:   model.Buy,
			wantConf:  70,
			wantVotes: 2,
		},
		{
			name:      "rsi overrides flat averages",
			in:        SignalInputs{Price: 100, MA20: 100, MA50: 100, RSI: 25, Support: 80, Resistance: 120},
			wantDir:   model.Buy,
			wantConf:  75,
			wantVotes: 2,
		},
		{
			name:      "unanimous sell near resistance",
			in:        SignalInputs{Price: 99, MA20: 101, MA50: 102, RSI: 72, Support: 80, Resistance: 99.5},
			wantDir:   model.Sell,
			wantConf:  75,
			wantVotes: 3,
		},
		{
			name:      "all hold",
			in:        SignalInputs{Price: 100, MA20: 100, MA50: 100, RSI: 50, Support: 80, Resistance: 120},
			wantDir:   model.Hold,
			wantConf:  45,
			wantVotes: 2,
		},
		{
			name:      "buy and sell tie",
			in:        SignalInputs{Price: 110, MA20: 105, MA50: 100, RSI: 80, Support: 90, Resistance: 130},
			wantDir:   model.Hold,
			wantConf:  72.5,
			wantVotes: 2,
		},
		{
			name:      "support checked before resistance",
			in:        SignalInputs{Price: 100, MA20: 100, MA50: 100, RSI: 50, Support: 99.5, Resistance: 100.5},
			wantDir:   model.Buy,
			wantConf:  80,
			wantVotes: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, conf, votes := GenerateSignal(tt.in)
			if dir != tt.wantDir {
				t.Errorf("direction = %s, want %s", dir, tt.wantDir)
			}
			if !approx(conf, tt.wantConf) {
				t.Errorf("confidence = %.2f, want %.2f", conf, tt.wantConf)
			}
			if len(votes) != tt.wantVotes {
				t.Errorf("votes = %d, want %d", len(votes), tt.wantVotes)
			}
		})
	}
}

func TestCombineVotes_Bounds(t *testing.T) {
	votes := []model.Vote{
		{Direction: model.Buy, Confidence: 120},
		{Direction: model.Buy, Confidence: 100},
	}
	dir, conf := CombineVotes(votes)
	if dir != model.Buy || conf != MaxConfidence {
		t.Errorf("got %s@%.1f, want buy@%d", dir, conf, MaxConfidence)
	}

	dir, conf = CombineVotes(nil)
	if dir != model.Hold || conf != 0 {
		t.Errorf("empty votes: got %s@%.1f, want hold@0", dir, conf)
	}
}

func TestVoteLevels_ZeroPriceAbstains(t *testing.T) {
	if _, ok := voteLevels(SignalInputs{Price: 0, Support: 0, Resistance: 1}); ok {
		t.Error("expected abstention for non-positive price")
	}
}

func TestDetermineTrend(t *testing.T) {
	tests := []struct {
		name               string
		price, m20, m50, m200 float64
		wantLabel          string
		wantStrength       int
	}{
		{"aligned up", 110, 105, 100, 95, "up (up)", 85},
		{"aligned down", 90, 95, 100, 105, "down (down)", 85},
		{"pullback in uptrend", 100, 105, 100, 95, "down (up)", 30},
		{"sideways", 110, 105, 100, 100, "up (sideways)", 50},
		{"price equals ma20", 105, 105, 100, 95, "down (up)", 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, strength := DetermineTrend(tt.price, tt.m20, tt.m50, tt.m200)
			if label != tt.wantLabel || strength != tt.wantStrength {
				t.Errorf("got %q/%d, want %q/%d", label, strength, tt.wantLabel, tt.wantStrength)
			}
		})
	}
}

func TestHistory_FilterAndLimit(t *testing.T) {
	a := NewAnalyzer(&fakeProvider{}, zerolog.Nop())
	for _, r := range []model.AnalysisResult{
		{Symbol: "EURUSD", Confidence: 65},
		{Symbol: "GBPUSD", Confidence: 80},
		{Symbol: "EURUSD", Confidence: 90},
	} {
		a.History().Admit(r)
	}

	got := a.SignalHistory("EURUSD", 1)
	if len(got) != 1 || got[0].Confidence != 90 {
		t.Fatalf("SignalHistory(EURUSD, 1) = %+v, want the confidence 90 entry", got)
	}
	if all := a.SignalHistory("", 0); len(all) != 3 {
		t.Errorf("unfiltered history = %d entries, want 3", len(all))
	}
	if eur := a.SignalHistory("EURUSD", 10); len(eur) != 2 || eur[0].Confidence != 65 {
		t.Errorf("EURUSD history = %+v, want both entries oldest first", eur)
	}
}

func TestHistory_AdmissionBoundary(t *testing.T) {
	var h History
	if h.Admit(model.AnalysisResult{Symbol: "EURUSD", Confidence: 60}) {
		t.Error("confidence 60 should not be admitted")
	}
	if !h.Admit(model.AnalysisResult{Symbol: "EURUSD", Confidence: 61}) {
		t.Error("confidence 61 should be admitted")
	}
	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}
}

func TestAnalyze_RisingSeries(t *testing.T) {
	rec := &fakeRecorder{}
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	p := &fakeProvider{series: map[string]*model.Series{"EURUSD": risingSeries("EURUSD", 60, 100)}}
	a := NewAnalyzer(p, zerolog.Nop(), WithRecorder(rec), WithClock(func() time.Time { return now }))

	r, err := a.Analyze(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if r.CurrentPrice != 159 {
		t.Errorf("price = %v, want 159", r.CurrentPrice)
	}
	if !approx(r.MA20, 149.5) || !approx(r.MA50, 134.5) {
		t.Errorf("MA20/MA50 = %v/%v, want 149.5/134.5", r.MA20, r.MA50)
	}
	if r.MA200 != r.MA50 {
		t.Errorf("MA200 = %v, want MA50 on a short series", r.MA200)
	}
	if r.RSI != 100 {
		t.Errorf("RSI = %v, want 100 on a monotonic series", r.RSI)
	}
	if !approx(r.Support, 139.5) || !approx(r.Resistance, 159.5) {
		t.Errorf("support/resistance = %v/%v, want 139.5/159.5", r.Support, r.Resistance)
	}
	if r.Trend != "up (sideways)" || r.TrendStrength != 50 {
		t.Errorf("trend = %q/%d", r.Trend, r.TrendStrength)
	}
	if r.Signal != model.Sell || !approx(r.Confidence, 77.5) {
		t.Errorf("signal = %s@%.2f, want sell@77.5", r.Signal, r.Confidence)
	}
	if r.Recommend == nil || r.Recommend.StopLoss != r.Resistance || r.Recommend.TakeProfit != r.Support {
		t.Errorf("recommendation = %+v", r.Recommend)
	}
	if r.ID == "" || !r.Timestamp.Equal(now) || r.Source != "mock" || r.Synthetic {
		t.Errorf("metadata = id %q ts %v source %q synthetic %v", r.ID, r.Timestamp, r.Source, r.Synthetic)
	}
	if len(rec.results) != 1 || a.History().Len() != 1 {
		t.Errorf("recorded %d, history %d, want 1/1", len(rec.results), a.History().Len())
	}
}

func TestAnalyze_ShortSeriesFallsBackToMean(t *testing.T) {
	p := &fakeProvider{series: map[string]*model.Series{"GBPUSD": risingSeries("GBPUSD", 10, 1)}}
	a := NewAnalyzer(p, zerolog.Nop())

	r, err := a.Analyze(context.Background(), "GBPUSD")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// closes 1..10
	if !approx(r.MA20, 5.5) || !approx(r.MA50, 5.5) || !approx(r.MA200, 5.5) {
		t.Errorf("averages = %v/%v/%v, want 5.5", r.MA20, r.MA50, r.MA200)
	}
	if r.RSI < 0 || r.RSI > 100 {
		t.Errorf("RSI out of range: %v", r.RSI)
	}
}

func TestAnalyze_UsesAttachedColumns(t *testing.T) {
	s := risingSeries("USDJPY", 30, 150)
	nan := math.NaN()
	s.Indicators.MA20 = model.Column{nan, 170}
	s.Indicators.RSI = model.Column{nan, 25}
	p := &fakeProvider{series: map[string]*model.Series{"USDJPY": s}}

	r, err := NewAnalyzer(p, zerolog.Nop()).Analyze(context.Background(), "USDJPY")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.MA20 != 170 || r.RSI != 25 {
		t.Errorf("MA20/RSI = %v/%v, want attached 170/25", r.MA20, r.RSI)
	}
}

func TestAnalyze_FlatSeriesWithAttachedRSI(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, 80)
	for i := range candles {
		candles[i] = model.Candle{Time: start.Add(time.Duration(i) * 4 * time.Hour), Open: 100, High: 100, Low: 100, Close: 100}
	}
	s := calculator.NewEngine(true, zerolog.Nop()).Attach(&model.Series{Symbol: "EURUSD", Source: "mock", Candles: candles})
	if v, ok := s.Indicators.RSI.Last(); !ok || v != 100 {
		t.Fatalf("attached RSI = %v (%v), want 100", v, ok)
	}

	a := NewAnalyzer(&fakeProvider{series: map[string]*model.Series{"EURUSD": s}}, zerolog.Nop())
	r, err := a.Analyze(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	local, _ := calculator.CalculateRSI(candles, 14)
	if r.RSI != local {
		t.Errorf("RSI = %v, want the local value %v", r.RSI, local)
	}
	// ma hold 40, rsi sell 75, support buy 80: a tie scored by the mean.
	if r.Signal != model.Hold || !approx(r.Confidence, 65) {
		t.Errorf("signal = %s@%v, want hold@65", r.Signal, r.Confidence)
	}
}

func TestHistory_EntriesAreDetached(t *testing.T) {
	var h History
	r := model.AnalysisResult{
		Symbol:     "EURUSD",
		Signal:     model.Buy,
		Confidence: 80,
		Votes:      []model.Vote{{Voter: "ma", Direction: model.Buy, Confidence: 70}},
		Recommend:  &model.Recommendation{StopLoss: 1.05},
	}
	h.Admit(r)
	r.Votes[0].Direction = model.Sell
	r.Recommend.StopLoss = 2

	got := h.Recent("EURUSD", 1)
	if got[0].Votes[0].Direction != model.Buy || got[0].Recommend.StopLoss != 1.05 {
		t.Fatalf("history entry changed with the caller's result: %+v", got[0])
	}
	got[0].Votes[0].Direction = model.Hold
	if again := h.Recent("EURUSD", 1); again[0].Votes[0].Direction != model.Buy {
		t.Error("history entry changed through a Recent copy")
	}
}

func TestAnalyze_Errors(t *testing.T) {
	boom := errors.New("boom")
	p := &fakeProvider{errs: map[string]error{"XAUUSD": boom}}
	a := NewAnalyzer(p, zerolog.Nop())

	_, err := a.Analyze(context.Background(), "XAUUSD")
	var ae *AnalysisError
	if !errors.As(err, &ae) || ae.Symbol != "XAUUSD" || !errors.Is(err, boom) {
		t.Errorf("fetch failure: got %v", err)
	}

	p.errs["EURUSD"] = fmt.Errorf("EURUSD: %w", provider.ErrNotAvailable)
	_, err = a.Analyze(context.Background(), "EURUSD")
	if !errors.Is(err, ErrNoData) || !errors.Is(err, provider.ErrNotAvailable) {
		t.Errorf("unavailable series: got %v, want ErrNoData and ErrNotAvailable", err)
	}

	_, err = a.Analyze(context.Background(), "USOIL")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("empty series: got %v, want ErrNoData", err)
	}
	if !strings.Contains(err.Error(), "USOIL") {
		t.Errorf("error %q should name the symbol", err)
	}
}

func TestBatch_SkipsErrorsAndSorts(t *testing.T) {
	flat := risingSeries("USDCHF", 60, 100)
	for i := range flat.Candles {
		flat.Candles[i].Close = 100
	}
	p := &fakeProvider{
		series: map[string]*model.Series{
			"EURUSD": risingSeries("EURUSD", 60, 100),
			"USDCHF": flat,
		},
		errs: map[string]error{"GBPUSD": errors.New("down")},
	}
	a := NewAnalyzer(p, zerolog.Nop())

	got := a.TradingSignals(context.Background())
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Symbol != "EURUSD" || got[0].Confidence < got[1].Confidence {
		t.Errorf("order = %s(%.1f), %s(%.1f)", got[0].Symbol, got[0].Confidence, got[1].Symbol, got[1].Confidence)
	}

	if got := a.MarketAnalysis(context.Background()); len(got) != 1 || got[0].Symbol != "EURUSD" {
		t.Errorf("MarketAnalysis = %+v", got)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name string
		r    model.AnalysisResult
		want *model.Recommendation
	}{
		{"strong buy", model.AnalysisResult{Signal: model.Buy, Confidence: 75, CurrentPrice: 1.1, Support: 1.0, Resistance: 1.2},
			&model.Recommendation{Entry: 1.1, StopLoss: 1.0, TakeProfit: 1.2}},
		{"strong sell", model.AnalysisResult{Signal: model.Sell, Confidence: 80, CurrentPrice: 1.1, Support: 1.0, Resistance: 1.2},
			&model.Recommendation{Entry: 1.1, StopLoss: 1.2, TakeProfit: 1.0}},
		{"at threshold", model.AnalysisResult{Signal: model.Buy, Confidence: 70}, nil},
		{"hold", model.AnalysisResult{Signal: model.Hold, Confidence: 90}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommend(&tt.r)
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("Recommend = %+v, want %+v", got, tt.want)
			}
		})
	}
}
