package provider

import (
	"sync"
	"time"

	"SignalDesk/internal/model"
)

type cacheKey struct {
	symbol   string
	period   string
	interval string
}

type cacheEntry struct {
	fetchedAt time.Time
	series    *model.Series
}

// seriesCache maps (symbol, period, interval) to the last fetched series.
// Expired entries stay stored until overwritten; they are never swept.
type seriesCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
}

func newSeriesCache(ttl time.Duration) *seriesCache {
	return &seriesCache{ttl: ttl, entries: make(map[cacheKey]cacheEntry)}
}

// get returns a copy of a fresh entry.
func (c *seriesCache) get(key cacheKey, now time.Time) (*model.Series, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || now.Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.series.Clone(), true
}

func (c *seriesCache) put(key cacheKey, s *model.Series, now time.Time) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{fetchedAt: now, series: s.Clone()}
	c.mu.Unlock()
}

func (c *seriesCache) clear() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()
}

func (c *seriesCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

type pricePoint struct {
	at    time.Time
	price float64
}

// priceCache keeps the last close per symbol for quick summaries.
type priceCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	prices map[string]pricePoint
}

func newPriceCache(ttl time.Duration) *priceCache {
	return &priceCache{ttl: ttl, prices: make(map[string]pricePoint)}
}

func (c *priceCache) get(symbol string, now time.Time) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[symbol]
	if !ok || now.Sub(p.at) >= c.ttl {
		return 0, false
	}
	return p.price, true
}

func (c *priceCache) put(symbol string, price float64, now time.Time) {
	c.mu.Lock()
	c.prices[symbol] = pricePoint{at: now, price: price}
	c.mu.Unlock()
}

func (c *priceCache) clear() {
	c.mu.Lock()
	c.prices = make(map[string]pricePoint)
	c.mu.Unlock()
}
