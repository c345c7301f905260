package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"SignalDesk/internal/model"
)

var (
	// ErrEmptySeries is returned when a response cleans down to nothing.
	ErrEmptySeries = errors.New("empty series")
	// ErrUnsupportedSymbol is returned when a source cannot serve a symbol.
	ErrUnsupportedSymbol = errors.New("symbol not supported by source")
	// ErrUnsupportedInterval is returned when a source has no mapping for an interval.
	ErrUnsupportedInterval = errors.New("interval not supported by source")
	// ErrNoCredentials is returned by vendor sources configured without a usable key.
	ErrNoCredentials = errors.New("source has no usable api key")
)

// Source fetches one symbol/period/interval and returns a cleaned series.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol, period, interval string) (*model.Series, error)
}

// SourceKind enumerates the supported upstreams.
type SourceKind string

const (
	KindMT5          SourceKind = "mt5"
	KindTwelveData   SourceKind = "twelvedata"
	KindAlphaVantage SourceKind = "alphavantage"
	KindYahoo        SourceKind = "yahoo"
	KindAlpaca       SourceKind = "alpaca"
	KindFrankfurter  SourceKind = "frankfurter"
)

// Kinds lists every source kind in priority order.
var Kinds = []SourceKind{KindMT5, KindTwelveData, KindAlphaVantage, KindYahoo, KindAlpaca, KindFrankfurter}

// Options carries what the adapters need from configuration.
type Options struct {
	Proxy   string
	Timeout time.Duration
	Logger  zerolog.Logger

	MT5BaseURL  string
	MT5Server   string
	MT5Login    string
	MT5Password string

	TwelveDataKey      string
	TwelveDataPerMin   int
	AlphaVantageKey    string
	AlphaVantagePerMin int

	AlpacaKey     string
	AlpacaSecret  string
	AlpacaBaseURL string
}

// Build constructs the enabled sources in priority order, ignoring the order of enabled.
func Build(enabled []string, opts Options) ([]Source, error) {
	want := make(map[SourceKind]bool, len(enabled))
	for _, name := range enabled {
		k := SourceKind(strings.ToLower(strings.TrimSpace(name)))
		if !knownKind(k) {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		want[k] = true
	}

	var sources []Source
	for _, k := range Kinds {
		if !want[k] {
			continue
		}
		switch k {
		case KindMT5:
			sources = append(sources, NewMT5Source(opts.MT5BaseURL, opts.MT5Server, opts.MT5Login, opts.MT5Password, opts.Proxy, opts.Timeout))
		case KindTwelveData:
			sources = append(sources, NewTwelveDataSource(opts.TwelveDataKey, opts.TwelveDataPerMin, opts.Proxy, opts.Timeout))
		case KindAlphaVantage:
			sources = append(sources, NewAlphaVantageSource(opts.AlphaVantageKey, opts.AlphaVantagePerMin, opts.Proxy, opts.Timeout))
		case KindYahoo:
			sources = append(sources, NewYahooSource(opts.Proxy, opts.Timeout))
		case KindAlpaca:
			sources = append(sources, NewAlpacaSource(opts.AlpacaKey, opts.AlpacaSecret, opts.AlpacaBaseURL))
		case KindFrankfurter:
			sources = append(sources, NewFrankfurterSource(opts.Proxy, opts.Timeout))
		}
		opts.Logger.Debug().Str("source", string(k)).Msg("source enabled")
	}
	return sources, nil
}

func knownKind(k SourceKind) bool {
	for _, kk := range Kinds {
		if kk == k {
			return true
		}
	}
	return false
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// perMinute builds a limiter allowing n requests per minute with a burst of one.
func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}

// getJSON performs a GET and decodes a JSON body into dest.
func getJSON(ctx context.Context, client *http.Client, endpoint string, header http.Header, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// finish stamps identity and provenance on a cleaned series.
func finish(s *model.Series, source, symbol, period, interval string) (*model.Series, error) {
	if s.Empty() {
		return nil, ErrEmptySeries
	}
	s.Symbol = symbol
	s.Period = period
	s.Interval = interval
	s.Source = source
	return s, nil
}
