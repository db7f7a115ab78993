package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"forecast-dashboard/datasource"
)

// CachedFetcher wraps a Fetcher and adds caching functionality
type CachedFetcher struct {
	fetcher        datasource.Fetcher
	cache          map[string]cacheEntry
	mutex          sync.RWMutex
	cacheDuration  time.Duration
	cacheHitCount  int
	cacheMissCount int
	staleCount     int
	logger         zerolog.Logger
	now            func() time.Time
}

// cacheEntry represents a cached body with its timestamp
type cacheEntry struct {
	Data      []byte
	Timestamp time.Time
}

// NewCachedFetcher creates a new cached wrapper around a fetcher
func NewCachedFetcher(fetcher datasource.Fetcher, cacheDuration time.Duration, logger zerolog.Logger) *CachedFetcher {
	return &CachedFetcher{
		fetcher:       fetcher,
		cache:         make(map[string]cacheEntry),
		cacheDuration: cacheDuration,
		logger:        logger.With().Str("component", "cache").Logger(),
		now:           time.Now,
	}
}

// Name returns the name of the underlying fetcher with [Cached] suffix
func (c *CachedFetcher) Name() string {
	return c.fetcher.Name() + " [Cached]"
}

// Fetch returns the cached body of location while it is fresh. When a refetch
// fails, an expired entry is served instead of the error.
func (c *CachedFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	// First check if we have this body in the cache
	c.mutex.RLock()
	entry, found := c.cache[location]
	c.mutex.RUnlock()

	age := c.now().Sub(entry.Timestamp)

	// If found and not expired, return the cached body
	if found && age < c.cacheDuration {
		c.mutex.Lock()
		c.cacheHitCount++
		c.mutex.Unlock()

		c.logger.Debug().Str("location", location).Dur("age", age.Round(time.Second)).Msg("cache hit")
		return entry.Data, nil
	}

	// Cache miss or expired, fetch fresh data
	c.mutex.Lock()
	c.cacheMissCount++
	c.mutex.Unlock()

	c.logger.Debug().Str("location", location).Str("fetcher", c.fetcher.Name()).Msg("cache miss, fetching fresh data")

	data, err := c.fetcher.Fetch(ctx, location)
	if err != nil {
		if found {
			c.mutex.Lock()
			c.staleCount++
			c.mutex.Unlock()

			c.logger.Warn().Err(err).Str("location", location).Dur("age", age.Round(time.Second)).Msg("serving stale cache entry")
			return entry.Data, nil
		}
		return nil, err
	}

	// Store in cache
	c.mutex.Lock()
	c.cache[location] = cacheEntry{
		Data:      data,
		Timestamp: c.now(),
	}
	c.mutex.Unlock()

	return data, nil
}

// Invalidate drops every cached entry
func (c *CachedFetcher) Invalidate() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// CacheStats returns statistics about cache hits, misses and stale fallbacks
func (c *CachedFetcher) CacheStats() (hits, misses, stale int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.cacheHitCount, c.cacheMissCount, c.staleCount
}

// Ensure CachedFetcher implements the Fetcher interface
var _ datasource.Fetcher = (*CachedFetcher)(nil)
