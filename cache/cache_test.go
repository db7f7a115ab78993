package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubFetcher struct {
	calls int
	body  string
	err   error
}

func (s *stubFetcher) Name() string { return "Stub" }

func (s *stubFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body), nil
}

func TestCachedFetcher(t *testing.T) {
	now := time.Date(2023, 1, 9, 12, 0, 0, 0, time.UTC)
	stub := &stubFetcher{body: "v1"}
	cached := NewCachedFetcher(stub, 5*time.Minute, zerolog.Nop())
	cached.now = func() time.Time { return now }

	fetch := func() string {
		t.Helper()
		body, err := cached.Fetch(context.Background(), "truth.csv")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		return string(body)
	}

	if got := fetch(); got != "v1" {
		t.Errorf("first Fetch() = %q, want v1", got)
	}

	stub.body = "v2"
	now = now.Add(time.Minute)
	if got := fetch(); got != "v1" {
		t.Errorf("Fetch() within TTL = %q, want cached v1", got)
	}

	now = now.Add(5 * time.Minute)
	if got := fetch(); got != "v2" {
		t.Errorf("Fetch() after TTL = %q, want v2", got)
	}

	stub.err = errors.New("unavailable")
	now = now.Add(10 * time.Minute)
	if got := fetch(); got != "v2" {
		t.Errorf("Fetch() on failure = %q, want stale v2", got)
	}

	hits, misses, stale := cached.CacheStats()
	if hits != 1 || misses != 3 || stale != 1 {
		t.Errorf("CacheStats() = %d, %d, %d; want 1, 3, 1", hits, misses, stale)
	}
	if stub.calls != 3 {
		t.Errorf("underlying calls = %d, want 3", stub.calls)
	}

	cached.Invalidate()
	if _, err := cached.Fetch(context.Background(), "truth.csv"); err == nil {
		t.Error("Fetch() after Invalidate expected the underlying error")
	}
	if cached.Name() != "Stub [Cached]" {
		t.Errorf("Name() = %q", cached.Name())
	}
}
