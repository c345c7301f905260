package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"SignalDesk/internal/model"
)

const frankfurterURL = "https://api.frankfurter.app"

// FrankfurterSource serves daily ECB reference rates for EUR-base pairs.
// Rates carry no intraday range, so the close is used for every price field.
type FrankfurterSource struct {
	BaseURL string
	Client  *http.Client
	now     func() time.Time
}

// NewFrankfurterSource creates a Frankfurter client.
func NewFrankfurterSource(proxyURL string, timeout time.Duration) *FrankfurterSource {
	return &FrankfurterSource{
		BaseURL: frankfurterURL,
		Client:  newHTTPClient(proxyURL, timeout),
		now:     time.Now,
	}
}

func (s *FrankfurterSource) Name() string { return string(KindFrankfurter) }

type frankfurterResponse struct {
	Base  string                        `json:"base"`
	Rates map[string]map[string]float64 `json:"rates"`
}

const frankfurterVolume = 1e6

func (s *FrankfurterSource) Fetch(ctx context.Context, symbol, period, interval string) (*model.Series, error) {
	if !model.IsFXPair(symbol) || symbol[:3] != "EUR" {
		return nil, fmt.Errorf("frankfurter %s: %w", symbol, ErrUnsupportedSymbol)
	}
	quote := symbol[3:]
	days, ok := model.PeriodDays(period)
	if !ok {
		days = 30
	}
	end := s.now().UTC()
	start := end.AddDate(0, 0, -days)
	endpoint := fmt.Sprintf("%s/%s..%s?from=EUR&to=%s", s.BaseURL, start.Format(time.DateOnly), end.Format(time.DateOnly), quote)

	var resp frankfurterResponse
	if err := getJSON(ctx, s.Client, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("frankfurter %s: %w", symbol, err)
	}

	f := NewFrame(len(resp.Rates), ColOpen, ColHigh, ColLow, ColClose, ColVolume)
	i := 0
	for day, rates := range resp.Rates {
		if t, err := time.ParseInLocation(time.DateOnly, day, time.UTC); err == nil {
			f.Times[i] = t
		}
		if px, ok := rates[quote]; ok {
			for _, col := range requiredColumns {
				f.Set(i, col, px)
			}
			f.Set(i, ColVolume, frankfurterVolume)
		}
		i++
	}
	return finish(Clean(f), s.Name(), symbol, period, interval)
}
