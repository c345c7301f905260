package provider

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/collector"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
)

// ErrNotAvailable is returned when neither a source nor the synthetic generator produced data.
var ErrNotAvailable = errors.New("no data available")

// DefaultSummarySymbols are quoted by the market summaries when no symbols are given.
var DefaultSummarySymbols = []string{"EURUSD", "GBPUSD", "USDJPY", "USDCHF", "USDCAD", "AUDUSD"}

// Config is the read-only provider configuration.
type Config struct {
	CacheTimeout   time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	ProbeSymbol    string
	PriceCacheTTL  time.Duration
}

// ProbeRecorder persists health probe outcomes.
type ProbeRecorder interface {
	RecordSourceProbe(symbol string, results map[string]bool) error
}

// Synthesizer produces a fallback series for symbol ending at now.
type Synthesizer func(symbol string, now time.Time) (*model.Series, error)

// Option customizes a Provider.
type Option func(*Provider)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithSynthesizer overrides the synthetic series generator.
func WithSynthesizer(fn Synthesizer) Option {
	return func(p *Provider) { p.synthesize = fn }
}

// WithProbeRecorder records every health probe.
func WithProbeRecorder(r ProbeRecorder) Option {
	return func(p *Provider) { p.recorder = r }
}

// Provider serves normalized series from the first healthy source that succeeds,
// falling back to a synthetic series when every source fails.
type Provider struct {
	cfg        Config
	sources    []collector.Source
	engine     *calculator.Engine
	cache      *seriesCache
	prices     *priceCache
	synthesize Synthesizer
	recorder   ProbeRecorder
	now        func() time.Time
	log        zerolog.Logger

	healthMu sync.RWMutex
	health   map[string]bool
}

// New creates a Provider. Sources are tried in the given order; until Probe runs every source is considered healthy.
func New(cfg Config, sources []collector.Source, engine *calculator.Engine, log zerolog.Logger, opts ...Option) *Provider {
	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = 10 * time.Minute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.ProbeSymbol == "" {
		cfg.ProbeSymbol = "EURUSD"
	}
	if cfg.PriceCacheTTL <= 0 {
		cfg.PriceCacheTTL = time.Minute
	}

	p := &Provider{
		cfg:        cfg,
		sources:    sources,
		engine:     engine,
		cache:      newSeriesCache(cfg.CacheTimeout),
		prices:     newPriceCache(cfg.PriceCacheTTL),
		synthesize: GenerateSynthetic,
		now:        time.Now,
		log:        log,
		health:     make(map[string]bool, len(sources)),
	}
	for _, s := range sources {
		p.health[s.Name()] = true
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetSeries returns the series for symbol/period/interval, or ErrNotAvailable.
func (p *Provider) GetSeries(ctx context.Context, symbol, period, interval string) (*model.Series, error) {
	key := cacheKey{symbol: symbol, period: period, interval: interval}
	if s, ok := p.cache.get(key, p.now()); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return s, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	for _, src := range p.healthySources() {
		s, err := p.fetch(ctx, src, symbol, period, interval)
		if err != nil {
			metrics.SourceFetches.WithLabelValues(src.Name(), "error").Inc()
			p.log.Warn().Err(err).
				Str("source", src.Name()).Str("symbol", symbol).
				Str("period", period).Str("interval", interval).
				Msg("source fetch failed")
			continue
		}
		metrics.SourceFetches.WithLabelValues(src.Name(), "ok").Inc()
		return p.store(key, s), nil
	}

	p.log.Warn().Str("symbol", symbol).Str("period", period).Str("interval", interval).
		Msg("all sources failed, using synthetic series")
	metrics.SyntheticFallbacks.WithLabelValues(symbol).Inc()

	s, err := p.synthesize(symbol, p.now())
	if err != nil || s.Empty() {
		p.log.Error().Err(err).Str("symbol", symbol).Msg("synthetic generation failed")
		return nil, fmt.Errorf("%s: %w", symbol, ErrNotAvailable)
	}
	s.Symbol, s.Period, s.Interval = symbol, period, interval
	s.Synthetic = true
	if s.Source == "" {
		s.Source = model.SyntheticSource
	}
	return p.store(key, s), nil
}

// store attaches indicators, caches the series and hands the caller its own copy.
func (p *Provider) store(key cacheKey, s *model.Series) *model.Series {
	s = p.engine.Attach(s)
	p.cache.put(key, s, p.now())
	return s.Clone()
}

// fetch calls one source with per-attempt timeouts, retrying up to MaxRetries attempts.
func (p *Provider) fetch(ctx context.Context, src collector.Source, symbol, period, interval string) (*model.Series, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 1 && p.cfg.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.cfg.RetryDelay):
			}
		}
		s, err := p.fetchOnce(ctx, src, symbol, period, interval)
		if err == nil {
			return s, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (p *Provider) fetchOnce(ctx context.Context, src collector.Source, symbol, period, interval string) (s *model.Series, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("source panic: %v", r)
		}
	}()

	s, err = src.Fetch(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}
	if s.Empty() {
		return nil, collector.ErrEmptySeries
	}
	return s, nil
}

func (p *Provider) healthySources() []collector.Source {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	out := make([]collector.Source, 0, len(p.sources))
	for _, s := range p.sources {
		if p.health[s.Name()] {
			out = append(out, s)
		}
	}
	return out
}

// Probe fetches the probe symbol (1d/1h) from every source and replaces the health map.
func (p *Provider) Probe(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(p.sources))
	for _, src := range p.sources {
		_, err := p.fetchOnce(ctx, src, p.cfg.ProbeSymbol, model.Period1d, model.Interval1h)
		results[src.Name()] = err == nil
		metrics.SourceHealthy.WithLabelValues(src.Name()).Set(metrics.BoolGauge(err == nil))
		if err != nil {
			p.log.Warn().Err(err).Str("source", src.Name()).Msg("source probe failed")
		}
	}

	p.healthMu.Lock()
	p.health = results
	p.healthMu.Unlock()
	p.log.Info().Interface("health", results).Msg("source probe finished")

	if p.recorder != nil {
		if err := p.recorder.RecordSourceProbe(p.cfg.ProbeSymbol, results); err != nil {
			p.log.Error().Err(err).Msg("record source probe")
		}
	}
	return maps.Clone(results)
}

// Health returns a copy of the source health map.
func (p *Provider) Health() map[string]bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return maps.Clone(p.health)
}

// SourceNames lists the configured sources in priority order.
func (p *Provider) SourceNames() []string {
	names := make([]string, len(p.sources))
	for i, s := range p.sources {
		names[i] = s.Name()
	}
	return names
}

// ClearCache drops every cached series and price.
func (p *Provider) ClearCache() {
	p.cache.clear()
	p.prices.clear()
	p.log.Info().Msg("cache cleared")
}

// CacheSize returns the number of stored series entries, expired ones included.
func (p *Provider) CacheSize() int { return p.cache.len() }

// AvailableSymbols lists the canonical symbol set.
func (p *Provider) AvailableSymbols() []string {
	return slices.Clone(model.CanonicalSymbols)
}

// CurrentPrice returns the last close of the 5d/15m series.
func (p *Provider) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	s, err := p.GetSeries(ctx, symbol, model.Period5d, model.Interval15m)
	if err != nil {
		return 0, err
	}
	last, ok := s.Last()
	if !ok {
		return 0, fmt.Errorf("%s: %w", symbol, ErrNotAvailable)
	}
	return last.Close, nil
}

// MarketSummary quotes the current price of each symbol, skipping failures.
func (p *Provider) MarketSummary(ctx context.Context, symbols []string) map[string]float64 {
	if len(symbols) == 0 {
		symbols = DefaultSummarySymbols
	}
	summary := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		price, err := p.CurrentPrice(ctx, sym)
		if err != nil {
			p.log.Warn().Err(err).Str("symbol", sym).Msg("price unavailable")
			continue
		}
		summary[sym] = price
	}
	p.log.Info().Int("ok", len(summary)).Int("requested", len(symbols)).Msg("market summary")
	return summary
}

// FastMarketSummary is MarketSummary over 1d/15m with a short per-symbol price cache.
func (p *Provider) FastMarketSummary(ctx context.Context, symbols []string) map[string]float64 {
	if len(symbols) == 0 {
		symbols = DefaultSummarySymbols
	}
	summary := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if price, ok := p.prices.get(sym, p.now()); ok {
			summary[sym] = price
			continue
		}
		s, err := p.GetSeries(ctx, sym, model.Period1d, model.Interval15m)
		if err != nil {
			continue
		}
		if last, ok := s.Last(); ok {
			summary[sym] = last.Close
			p.prices.put(sym, last.Close, p.now())
		}
	}
	return summary
}

// WarmUp preloads 1d/1h series for symbols in the background. The returned channel closes when done.
func (p *Provider) WarmUp(ctx context.Context, symbols []string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, sym := range symbols {
			if ctx.Err() != nil {
				return
			}
			if _, err := p.GetSeries(ctx, sym, model.Period1d, model.Interval1h); err != nil {
				p.log.Warn().Err(err).Str("symbol", sym).Msg("warm-up failed")
				continue
			}
			p.log.Debug().Str("symbol", sym).Msg("warm-up loaded")
		}
		p.log.Info().Int("symbols", len(symbols)).Msg("warm-up finished")
	}()
	return done
}
