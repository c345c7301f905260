package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"SignalDesk/internal/model"
)

const alphaVantageURL = "https://www.alphavantage.co/query"

// AlphaVantageSource implements Source using the Alpha Vantage FX endpoints.
type AlphaVantageSource struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
	limiter *rate.Limiter
}

// NewAlphaVantageSource creates a rate-limited Alpha Vantage client.
func NewAlphaVantageSource(apiKey string, reqPerMin int, proxyURL string, timeout time.Duration) *AlphaVantageSource {
	return &AlphaVantageSource{
		APIKey:  apiKey,
		BaseURL: alphaVantageURL,
		Client:  newHTTPClient(proxyURL, timeout),
		limiter: perMinute(reqPerMin),
	}
}

func (s *AlphaVantageSource) Name() string { return string(KindAlphaVantage) }

var alphaVantageIntraday = map[string]string{
	model.Interval1m:  "1min",
	model.Interval5m:  "5min",
	model.Interval15m: "15min",
	model.Interval30m: "30min",
	model.Interval1h:  "60min",
	model.Interval4h:  "60min",
}

type avBar struct {
	Open  string `json:"1. open"`
	High  string `json:"2. high"`
	Low   string `json:"3. low"`
	Close string `json:"4. close"`
}

// avRequest picks the function and series key for an interval.
func avRequest(interval string) (function, avInterval, seriesKey string) {
	if iv, ok := alphaVantageIntraday[interval]; ok {
		return "FX_INTRADAY", iv, fmt.Sprintf("Time Series FX (%s)", iv)
	}
	switch interval {
	case model.Interval1w:
		return "FX_WEEKLY", "", "Time Series FX (Weekly)"
	case model.Interval1mo:
		return "FX_MONTHLY", "", "Time Series FX (Monthly)"
	default:
		return "FX_DAILY", "", "Time Series FX (Daily)"
	}
}

func (s *AlphaVantageSource) Fetch(ctx context.Context, symbol, period, interval string) (*model.Series, error) {
	if s.APIKey == "" || s.APIKey == "demo" {
		return nil, ErrNoCredentials
	}
	if !model.IsFXPair(symbol) {
		return nil, fmt.Errorf("alphavantage %s: %w", symbol, ErrUnsupportedSymbol)
	}
	function, avInterval, seriesKey := avRequest(interval)

	q := url.Values{}
	q.Set("function", function)
	q.Set("from_symbol", symbol[:3])
	q.Set("to_symbol", symbol[3:])
	q.Set("apikey", s.APIKey)
	q.Set("outputsize", "full")
	if avInterval != "" {
		q.Set("interval", avInterval)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("alphavantage rate limit: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := getJSON(ctx, s.Client, s.BaseURL+"?"+q.Encode(), nil, &raw); err != nil {
		return nil, fmt.Errorf("alphavantage %s: %w", symbol, err)
	}
	for _, k := range []string{"Error Message", "Note", "Information"} {
		if msg, ok := raw[k]; ok {
			return nil, fmt.Errorf("alphavantage %s: %s", symbol, strings.Trim(string(msg), `"`))
		}
	}
	body, ok := raw[seriesKey]
	if !ok {
		return nil, fmt.Errorf("alphavantage %s: missing %q", symbol, seriesKey)
	}
	var bars map[string]avBar
	if err := json.Unmarshal(body, &bars); err != nil {
		return nil, fmt.Errorf("alphavantage %s: decode series: %w", symbol, err)
	}

	f := NewFrame(len(bars), ColOpen, ColHigh, ColLow, ColClose)
	i := 0
	for ts, b := range bars {
		if t, err := parseVendorTime(ts); err == nil {
			f.Times[i] = t
		}
		f.Set(i, ColOpen, parseNum(b.Open))
		f.Set(i, ColHigh, parseNum(b.High))
		f.Set(i, ColLow, parseNum(b.Low))
		f.Set(i, ColClose, parseNum(b.Close))
		i++
	}

	series := Clean(f)
	if interval == model.Interval4h {
		series.Candles = resample(series.Candles, 4*time.Hour)
	}
	trimToPeriod(series, period)
	return finish(series, s.Name(), symbol, period, interval)
}
