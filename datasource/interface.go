package datasource

import (
	"context"
)

// Fetcher retrieves the raw contents of a published dataset
type Fetcher interface {
	// Fetch returns the body found at location (URL or file path)
	Fetch(ctx context.Context, location string) ([]byte, error)

	// Name returns the fetcher's name
	Name() string
}

// Sources lists where each dataset is published
type Sources struct {
	ForecastsURL       string
	TruthURL           string
	LocationsURL       string
	DefaultSettingsURL string
}
