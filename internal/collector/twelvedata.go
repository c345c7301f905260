package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"SignalDesk/internal/model"
)

const twelveDataURL = "https://api.twelvedata.com/time_series"

// TwelveDataSource implements Source using the Twelve Data time_series endpoint.
type TwelveDataSource struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
	limiter *rate.Limiter
}

// NewTwelveDataSource creates a rate-limited Twelve Data client.
func NewTwelveDataSource(apiKey string, reqPerMin int, proxyURL string, timeout time.Duration) *TwelveDataSource {
	return &TwelveDataSource{
		APIKey:  apiKey,
		BaseURL: twelveDataURL,
		Client:  newHTTPClient(proxyURL, timeout),
		limiter: perMinute(reqPerMin),
	}
}

func (s *TwelveDataSource) Name() string { return string(KindTwelveData) }

var twelveDataSymbols = map[string]string{
	"EURUSD": "EUR/USD",
	"GBPUSD": "GBP/USD",
	"USDJPY": "USD/JPY",
	"USDCHF": "USD/CHF",
	"USDCAD": "USD/CAD",
	"AUDUSD": "AUD/USD",
	"NZDUSD": "NZD/USD",
	"XAUUSD": "XAU/USD",
}

var twelveDataIntervals = map[string]string{
	model.Interval1m:  "1min",
	model.Interval5m:  "5min",
	model.Interval15m: "15min",
	model.Interval30m: "30min",
	model.Interval1h:  "1h",
	model.Interval4h:  "4h",
	model.Interval1d:  "1day",
	model.Interval1w:  "1week",
	model.Interval1mo: "1month",
}

type twelveDataResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

func (s *TwelveDataSource) Fetch(ctx context.Context, symbol, period, interval string) (*model.Series, error) {
	if s.APIKey == "" || s.APIKey == "demo" {
		return nil, ErrNoCredentials
	}
	sym, ok := twelveDataSymbols[symbol]
	if !ok {
		return nil, fmt.Errorf("twelvedata %s: %w", symbol, ErrUnsupportedSymbol)
	}
	iv, ok := twelveDataIntervals[interval]
	if !ok {
		iv = "1h"
	}
	outputSize := "100"
	if period == model.Period1mo || period == model.Period3mo {
		outputSize = "500"
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("twelvedata rate limit: %w", err)
	}

	q := url.Values{}
	q.Set("symbol", sym)
	q.Set("interval", iv)
	q.Set("outputsize", outputSize)
	q.Set("apikey", s.APIKey)
	q.Set("format", "JSON")

	var resp twelveDataResponse
	if err := getJSON(ctx, s.Client, s.BaseURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("twelvedata %s: %w", symbol, err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("twelvedata %s: api error: %s", symbol, resp.Message)
	}

	cols := []string{ColOpen, ColHigh, ColLow, ColClose}
	hasVolume := len(resp.Values) > 0 && resp.Values[0].Volume != ""
	if hasVolume {
		cols = append(cols, ColVolume)
	}
	f := NewFrame(len(resp.Values), cols...)
	for i, v := range resp.Values {
		t, err := parseVendorTime(v.Datetime)
		if err != nil {
			continue
		}
		f.Times[i] = t
		f.Set(i, ColOpen, parseNum(v.Open))
		f.Set(i, ColHigh, parseNum(v.High))
		f.Set(i, ColLow, parseNum(v.Low))
		f.Set(i, ColClose, parseNum(v.Close))
		if hasVolume {
			f.Set(i, ColVolume, parseNum(v.Volume))
		}
	}
	return finish(Clean(f), s.Name(), symbol, period, interval)
}

// parseVendorTime accepts "2006-01-02 15:04:05" or "2006-01-02" in UTC.
func parseVendorTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateTime, s, time.UTC); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}

// parseNum returns NaN for values that do not parse.
func parseNum(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nan
	}
	return v
}
