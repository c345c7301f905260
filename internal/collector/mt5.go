package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"SignalDesk/internal/model"
)

// MT5Source reads rates from a MetaTrader 5 terminal through its local HTTP bridge.
type MT5Source struct {
	BaseURL  string
	Server   string
	Login    string
	Password string
	Client   *http.Client
}

// NewMT5Source creates a bridge client with optional proxy support.
func NewMT5Source(baseURL, server, login, password, proxyURL string, timeout time.Duration) *MT5Source {
	return &MT5Source{
		BaseURL:  baseURL,
		Server:   server,
		Login:    login,
		Password: password,
		Client:   newHTTPClient(proxyURL, timeout),
	}
}

func (s *MT5Source) Name() string { return string(KindMT5) }

// mt5Rate is the JSON shape of one bar returned by the bridge.
type mt5Rate struct {
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	TickVolume float64 `json:"tick_volume"`
}

var mt5Timeframes = map[string]string{
	model.Interval1m:  "M1",
	model.Interval5m:  "M5",
	model.Interval15m: "M15",
	model.Interval30m: "M30",
	model.Interval1h:  "H1",
	model.Interval4h:  "H4",
	model.Interval1d:  "D1",
	model.Interval1w:  "W1",
	model.Interval1mo: "MN1",
}

// mt5BarCount sizes the request as 24 bars per day of the period.
func mt5BarCount(period string) int {
	days, ok := model.PeriodDays(period)
	if !ok {
		return 1000
	}
	return 24 * days
}

func (s *MT5Source) Fetch(ctx context.Context, symbol, period, interval string) (*model.Series, error) {
	if s.BaseURL == "" {
		return nil, fmt.Errorf("mt5: bridge url not configured")
	}
	tf, ok := mt5Timeframes[interval]
	if !ok {
		tf = "H1"
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", tf)
	q.Set("count", fmt.Sprint(mt5BarCount(period)))
	endpoint := fmt.Sprintf("%s/rates?%s", s.BaseURL, q.Encode())

	header := http.Header{}
	if s.Login != "" {
		header.Set("X-MT5-Login", s.Login)
		header.Set("X-MT5-Server", s.Server)
		header.Set("X-MT5-Password", s.Password)
	}

	var rates []mt5Rate
	if err := getJSON(ctx, s.Client, endpoint, header, &rates); err != nil {
		return nil, fmt.Errorf("mt5 rates %s: %w", symbol, err)
	}

	f := NewFrame(len(rates), ColOpen, ColHigh, ColLow, ColClose, ColVolume)
	for i, r := range rates {
		f.Times[i] = time.Unix(r.Time, 0).UTC()
		f.Set(i, ColOpen, r.Open)
		f.Set(i, ColHigh, r.High)
		f.Set(i, ColLow, r.Low)
		f.Set(i, ColClose, r.Close)
		f.Set(i, ColVolume, r.TickVolume)
	}
	return finish(Clean(f), s.Name(), symbol, period, interval)
}
