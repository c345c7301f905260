package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"SignalDesk/internal/model"
)

// barsClient is the subset of the Alpaca market data client used here.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaSource serves index symbols through their ETF proxies on Alpaca.
type AlpacaSource struct {
	client  barsClient
	enabled bool
	Proxies map[string]string
	now     func() time.Time
}

// NewAlpacaSource creates an Alpaca market data source.
func NewAlpacaSource(apiKey, apiSecret, baseURL string) *AlpacaSource {
	return &AlpacaSource{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		enabled: apiKey != "" && apiSecret != "",
		Proxies: map[string]string{
			"SPX500": "SPY",
			"NAS100": "QQQ",
			"DJI":    "DIA",
		},
		now: time.Now,
	}
}

func (s *AlpacaSource) Name() string { return string(KindAlpaca) }

func alpacaTimeFrame(interval string) (marketdata.TimeFrame, bool) {
	switch interval {
	case model.Interval1m:
		return marketdata.OneMin, true
	case model.Interval5m:
		return marketdata.NewTimeFrame(5, marketdata.Min), true
	case model.Interval15m:
		return marketdata.NewTimeFrame(15, marketdata.Min), true
	case model.Interval30m:
		return marketdata.NewTimeFrame(30, marketdata.Min), true
	case model.Interval1h:
		return marketdata.OneHour, true
	case model.Interval4h:
		return marketdata.NewTimeFrame(4, marketdata.Hour), true
	case model.Interval1d:
		return marketdata.OneDay, true
	case model.Interval1w:
		return marketdata.NewTimeFrame(1, marketdata.Week), true
	case model.Interval1mo:
		return marketdata.NewTimeFrame(1, marketdata.Month), true
	}
	return marketdata.TimeFrame{}, false
}

func (s *AlpacaSource) Fetch(ctx context.Context, symbol, period, interval string) (*model.Series, error) {
	if !s.enabled {
		return nil, ErrNoCredentials
	}
	ticker, ok := s.Proxies[symbol]
	if !ok {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, ErrUnsupportedSymbol)
	}
	tf, ok := alpacaTimeFrame(interval)
	if !ok {
		return nil, fmt.Errorf("alpaca %s: %w", interval, ErrUnsupportedInterval)
	}
	days, ok := model.PeriodDays(period)
	if !ok {
		days = 30
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := s.now()
	bars, err := s.client.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     end.AddDate(0, 0, -days),
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, err)
	}

	f := NewFrame(len(bars), ColOpen, ColHigh, ColLow, ColClose, ColVolume)
	for i, b := range bars {
		f.Times[i] = b.Timestamp.UTC()
		f.Set(i, ColOpen, b.Open)
		f.Set(i, ColHigh, b.High)
		f.Set(i, ColLow, b.Low)
		f.Set(i, ColClose, b.Close)
		f.Set(i, ColVolume, float64(b.Volume))
	}
	return finish(Clean(f), s.Name(), symbol, period, interval)
}
