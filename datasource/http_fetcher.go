package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// HTTPStatusError represents an error due to a non-200 HTTP status code
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("non-200 status code from %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPFetcher downloads datasets over HTTP, retrying with exponential backoff
type HTTPFetcher struct {
	httpClient      *http.Client
	maxRetryTimeout time.Duration
	logger          zerolog.Logger
}

// HTTPFetcherOptions holds options for creating a new HTTPFetcher
type HTTPFetcherOptions struct {
	Timeout         time.Duration
	MaxRetryTimeout time.Duration
	Logger          zerolog.Logger
}

// NewHTTPFetcher creates a new HTTP fetcher
func NewHTTPFetcher(opts HTTPFetcherOptions) *HTTPFetcher {
	// Set default values if not provided
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}

	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		maxRetryTimeout: opts.MaxRetryTimeout,
		logger:          opts.Logger.With().Str("component", "http-fetcher").Logger(),
	}
}

// Name returns the fetcher name
func (f *HTTPFetcher) Name() string {
	return "HTTP"
}

// Fetch downloads location. Client errors (4xx) are not retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, URL: location}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = f.maxRetryTimeout

	notify := func(err error, wait time.Duration) {
		f.logger.Warn().Err(err).Str("url", location).Dur("retryIn", wait).Msg("fetch failed, retrying")
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(backoffStrategy, ctx), notify); err != nil {
		return nil, err
	}

	return body, nil
}

// FileFetcher reads datasets from the local file system
type FileFetcher struct{}

// Name returns the fetcher name
func (FileFetcher) Name() string {
	return "File"
}

// Fetch reads the file at location. A file:// prefix is accepted.
func (FileFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(strings.TrimPrefix(location, "file://"))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return body, nil
}

// SchemeFetcher sends http(s) locations to Remote and everything else to Local
type SchemeFetcher struct {
	Remote Fetcher
	Local  Fetcher
}

// Name returns the fetcher name
func (s SchemeFetcher) Name() string {
	return s.Remote.Name() + "+" + s.Local.Name()
}

// Fetch routes location by its scheme
func (s SchemeFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return s.Remote.Fetch(ctx, location)
	}
	return s.Local.Fetch(ctx, location)
}

var (
	_ Fetcher = (*HTTPFetcher)(nil)
	_ Fetcher = FileFetcher{}
	_ Fetcher = SchemeFetcher{}
)
