package datasource

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedFetcher wraps a Fetcher with rate limiting
type RateLimitedFetcher struct {
	fetcher Fetcher
	limiter *rate.Limiter
	name    string
}

// NewRateLimitedFetcher creates a new rate limited fetcher
// rps is the maximum requests per second allowed (can be fractional for less than 1 request per second)
// burst is the maximum burst size allowed
func NewRateLimitedFetcher(fetcher Fetcher, rps float64, burst int) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [Rate Limited]", fetcher.Name()),
	}
}

// Fetch retrieves location, respecting rate limits
func (r *RateLimitedFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	// Wait for rate limiter permission or context cancellation
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	return r.fetcher.Fetch(ctx, location)
}

// Name returns the fetcher name
func (r *RateLimitedFetcher) Name() string {
	return r.name
}

// Verify that our rate limited type implements Fetcher
var _ Fetcher = (*RateLimitedFetcher)(nil)
