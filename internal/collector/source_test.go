package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

func TestBuild_PriorityOrder(t *testing.T) {
	sources, err := Build([]string{"yahoo", "frankfurter", "MT5"}, Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"mt5", "yahoo", "frankfurter"}
	if len(sources) != len(want) {
		t.Fatalf("expected %d sources, got %d", len(want), len(sources))
	}
	for i, s := range sources {
		if s.Name() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], s.Name())
		}
	}
	if _, err := Build([]string{"bloomberg"}, Options{}); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestMT5Source_Fetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.Header.Get("X-MT5-Login") != "42" {
			t.Errorf("missing login header")
		}
		fmt.Fprint(w, `[
			{"time":1709251200,"open":1.08,"high":1.09,"low":1.07,"close":1.085,"tick_volume":120},
			{"time":1709265600,"open":1.085,"high":1.095,"low":1.08,"close":1.09,"tick_volume":80}
		]`)
	}))
	defer srv.Close()

	s := NewMT5Source(srv.URL, "demo-server", "42", "secret", "", time.Second)
	series, err := s.Fetch(context.Background(), "EURUSD", "3mo", "4h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, "timeframe=H4") || !strings.Contains(gotQuery, "count=2160") {
		t.Errorf("unexpected query: %s", gotQuery)
	}
	if series.Len() != 2 || series.Source != "mt5" || series.Symbol != "EURUSD" {
		t.Fatalf("unexpected series: len=%d source=%s", series.Len(), series.Source)
	}
	if series.Candles[1].Volume != 80 {
		t.Errorf("tick_volume not mapped to Volume: %.0f", series.Candles[1].Volume)
	}
}

func TestMT5Source_EmptyIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	_, err := NewMT5Source(srv.URL, "", "", "", "", time.Second).Fetch(context.Background(), "EURUSD", "1d", "1h")
	if !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestTwelveDataSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "EUR/USD" || q.Get("interval") != "4h" || q.Get("outputsize") != "500" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"status":"ok","values":[
			{"datetime":"2024-03-01 08:00:00","open":"1.0850","high":"1.0870","low":"1.0840","close":"1.0860"},
			{"datetime":"2024-03-01 04:00:00","open":"1.0830","high":"1.0855","low":"1.0825","close":"1.0850"}
		]}`)
	}))
	defer srv.Close()

	s := NewTwelveDataSource("key", 0, "", time.Second)
	s.BaseURL = srv.URL
	series, err := s.Fetch(context.Background(), "EURUSD", "3mo", "4h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 candles, got %d", series.Len())
	}
	if !series.Candles[0].Time.Before(series.Candles[1].Time) {
		t.Error("newest-first values were not reordered ascending")
	}
	if series.HasVolume {
		t.Error("forex response without volume should not report volume")
	}
}

func TestTwelveDataSource_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error","code":429,"message":"rate limited"}`)
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		key    string
		symbol string
		want   error
	}{
		{"demo key", "demo", "EURUSD", ErrNoCredentials},
		{"empty key", "", "EURUSD", ErrNoCredentials},
		{"unsupported", "key", "NAS100", ErrUnsupportedSymbol},
		{"api error", "key", "EURUSD", nil},
	}
	for _, tt := range tests {
		s := NewTwelveDataSource(tt.key, 0, "", time.Second)
		s.BaseURL = srv.URL
		_, err := s.Fetch(context.Background(), tt.symbol, "1d", "1h")
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestAlphaVantageSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") != "FX_DAILY" {
			t.Errorf("expected FX_DAILY, got %s", r.URL.Query().Get("function"))
		}
		fmt.Fprint(w, `{"Meta Data":{},"Time Series FX (Daily)":{
			"2024-03-01":{"1. open":"1.08","2. high":"1.09","3. low":"1.07","4. close":"1.085"},
			"2024-02-29":{"1. open":"1.07","2. high":"1.085","3. low":"1.065","4. close":"1.08"}
		}}`)
	}))
	defer srv.Close()

	s := NewAlphaVantageSource("key", 0, "", time.Second)
	s.BaseURL = srv.URL
	series, err := s.Fetch(context.Background(), "EURUSD", "1mo", "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 || series.Candles[1].Close != 1.085 {
		t.Fatalf("unexpected series: %+v", series.Candles)
	}
}

func TestAlphaVantageSource_Note(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note":"Thank you for using Alpha Vantage! call frequency exceeded"}`)
	}))
	defer srv.Close()

	s := NewAlphaVantageSource("key", 0, "", time.Second)
	s.BaseURL = srv.URL
	if _, err := s.Fetch(context.Background(), "EURUSD", "1d", "1h"); err == nil {
		t.Fatal("expected error for throttling note")
	}
	if _, err := s.Fetch(context.Background(), "XAUUSD", "1d", "1h"); !errors.Is(err, ErrUnsupportedSymbol) {
		t.Fatalf("expected ErrUnsupportedSymbol for metal, got %v", err)
	}
}

func TestYahooSource_FourHourResample(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
		ts := make([]string, 8)
		o := make([]string, 8)
		for i := range ts {
			ts[i] = fmt.Sprint(start + int64(i)*3600)
			o[i] = "1.1"
		}
		o[3] = "null"
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{
			"open":[%s],"high":[1.2,1.2,1.2,1.2,1.2,1.2,1.2,1.2],"low":[1,1,1,1,1,1,1,1],
			"close":[1.15,1.15,1.15,1.15,1.15,1.15,1.15,1.15],"volume":[10,10,10,10,10,10,10,10]}]}}],"error":null}}`,
			strings.Join(ts, ","), strings.Join(o, ","))
	}))
	defer srv.Close()

	s := NewYahooSource("", time.Second)
	s.BaseURL = srv.URL
	series, err := s.Fetch(context.Background(), "EURUSD", "1mo", "4h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotPath, "EURUSD=X") || !strings.Contains(gotPath, "interval=60m") {
		t.Errorf("unexpected request: %s", gotPath)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 four-hour candles, got %d", series.Len())
	}
	if series.Candles[0].Volume != 30 {
		t.Errorf("null row should be dropped before resampling, volume=%.0f", series.Candles[0].Volume)
	}
}

func TestFrankfurterSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("to") != "USD" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"base":"EUR","rates":{"2024-03-01":{"USD":1.0838},"2024-02-29":{"USD":1.0812}}}`)
	}))
	defer srv.Close()

	s := NewFrankfurterSource("", time.Second)
	s.BaseURL = srv.URL
	series, err := s.Fetch(context.Background(), "EURUSD", "1mo", "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := series.Candles[1]
	if c.Open != 1.0838 || c.High != c.Low || c.Volume != frankfurterVolume {
		t.Errorf("unexpected candle: %+v", c)
	}
	if _, err := s.Fetch(context.Background(), "GBPUSD", "1mo", "1d"); !errors.Is(err, ErrUnsupportedSymbol) {
		t.Errorf("expected ErrUnsupportedSymbol for non-EUR base, got %v", err)
	}
}

type fakeBars struct {
	bars   []marketdata.Bar
	symbol string
	req    marketdata.GetBarsRequest
}

func (f *fakeBars) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.symbol, f.req = symbol, req
	return f.bars, nil
}

func TestAlpacaSource_Fetch(t *testing.T) {
	now := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)
	fake := &fakeBars{bars: []marketdata.Bar{
		{Timestamp: now.Add(-2 * time.Hour), Open: 510, High: 512, Low: 509, Close: 511, Volume: 1000},
		{Timestamp: now.Add(-1 * time.Hour), Open: 511, High: 513, Low: 510, Close: 512, Volume: 900},
	}}
	s := NewAlpacaSource("key", "secret", "")
	s.client = fake
	s.now = func() time.Time { return now }

	series, err := s.Fetch(context.Background(), "SPX500", "5d", "1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.symbol != "SPY" || !fake.req.Start.Equal(now.AddDate(0, 0, -5)) {
		t.Errorf("unexpected request: %s %+v", fake.symbol, fake.req)
	}
	if series.Len() != 2 || series.Source != "alpaca" {
		t.Fatalf("unexpected series: %+v", series)
	}
	if _, err := s.Fetch(context.Background(), "EURUSD", "5d", "1h"); !errors.Is(err, ErrUnsupportedSymbol) {
		t.Errorf("expected ErrUnsupportedSymbol, got %v", err)
	}
}

func TestMockSource_ReturnsCopy(t *testing.T) {
	m := &MockSource{Series: Clean(flatFrame(3, 1.1))}
	a, _ := m.Fetch(context.Background(), "EURUSD", "1d", "1h")
	a.Candles[0].Close = 999
	b, _ := m.Fetch(context.Background(), "EURUSD", "1d", "1h")
	if b.Candles[0].Close == 999 {
		t.Error("mock returned shared candles")
	}
	if m.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", m.Calls())
	}
}
