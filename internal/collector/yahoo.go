package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"SignalDesk/internal/model"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooSource implements Source using the Yahoo Finance public chart API.
type YahooSource struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooSource creates a new Yahoo Finance source.
func NewYahooSource(proxyURL string, timeout time.Duration) *YahooSource {
	return &YahooSource{
		BaseURL: yahooChartURL,
		Client:  newHTTPClient(proxyURL, timeout),
		SymbolMap: map[string]string{
			"EURUSD": "EURUSD=X",
			"GBPUSD": "GBPUSD=X",
			"USDJPY": "USDJPY=X",
			"USDCHF": "USDCHF=X",
			"USDCAD": "USDCAD=X",
			"AUDUSD": "AUDUSD=X",
			"NZDUSD": "NZDUSD=X",
			"XAUUSD": "GC=F",
			"XAGUSD": "SI=F",
			"USOIL":  "CL=F",
			"NAS100": "^IXIC",
			"SPX500": "^GSPC",
			"DJI":    "^DJI",
		},
	}
}

func (s *YahooSource) Name() string { return string(KindYahoo) }

func (s *YahooSource) yahooSymbol(symbol string) string {
	if mapped, ok := s.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

var yahooIntervals = map[string]string{
	model.Interval1m:  "1m",
	model.Interval5m:  "5m",
	model.Interval15m: "15m",
	model.Interval30m: "30m",
	model.Interval1h:  "60m",
	model.Interval4h:  "60m",
	model.Interval1d:  "1d",
	model.Interval1w:  "1wk",
	model.Interval1mo: "1mo",
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// toFloat maps JSON nulls and unexpected types to NaN.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return nan
	}
}

func at(vals []interface{}, i int) float64 {
	if i >= len(vals) {
		return nan
	}
	return toFloat(vals[i])
}

func (s *YahooSource) Fetch(ctx context.Context, symbol, period, interval string) (*model.Series, error) {
	iv, ok := yahooIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("yahoo %s: %w", interval, ErrUnsupportedInterval)
	}
	rng := period
	if _, ok := model.PeriodDays(period); !ok {
		rng = model.Period1mo
	}

	u := fmt.Sprintf("%s/%s?interval=%s&range=%s", s.BaseURL, url.PathEscape(s.yahooSymbol(symbol)), iv, rng)
	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0")

	var chart yahooChart
	if err := getJSON(ctx, s.Client, u, header, &chart); err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrEmptySeries)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	f := NewFrame(len(result.Timestamp), ColOpen, ColHigh, ColLow, ColClose, ColVolume)
	for i, ts := range result.Timestamp {
		f.Times[i] = time.Unix(ts, 0).UTC()
		f.Set(i, ColOpen, at(quote.Open, i))
		f.Set(i, ColHigh, at(quote.High, i))
		f.Set(i, ColLow, at(quote.Low, i))
		f.Set(i, ColClose, at(quote.Close, i))
		f.Set(i, ColVolume, at(quote.Volume, i))
	}

	series := Clean(f)
	if interval == model.Interval4h {
		series.Candles = resample(series.Candles, 4*time.Hour)
	}
	return finish(series, s.Name(), symbol, period, interval)
}
