package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"forecast-dashboard/models"
)

// Loader fetches and parses every dataset of a hub
type Loader struct {
	fetcher Fetcher
	sources Sources
	logger  zerolog.Logger
	now     func() time.Time
}

// NewLoader creates a loader reading sources through fetcher
func NewLoader(fetcher Fetcher, sources Sources, logger zerolog.Logger) *Loader {
	return &Loader{
		fetcher: fetcher,
		sources: sources,
		logger:  logger.With().Str("component", "loader").Logger(),
		now:     time.Now,
	}
}

// LoadAll fetches the datasets concurrently. Parts that fail are left nil in
// the returned dataset and their errors are joined.
func (l *Loader) LoadAll(ctx context.Context) (models.Dataset, error) {
	var (
		wg      sync.WaitGroup
		mutex   sync.Mutex
		dataset = models.Dataset{Updated: l.now()}
		errs    []error
	)

	load := func(name, location string, parse func([]byte) error) {
		defer wg.Done()

		start := time.Now()
		body, err := l.fetcher.Fetch(ctx, location)
		if err == nil {
			err = parse(body)
		}

		mutex.Lock()
		defer mutex.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to load %s: %w", name, err))
			return
		}
		l.logger.Debug().Str("dataset", name).Int("bytes", len(body)).Dur("took", time.Since(start)).Msg("dataset loaded")
	}

	wg.Add(4)
	go load("locations", l.sources.LocationsURL, func(body []byte) error {
		items, err := ParseLocations(bytes.NewReader(body))
		if err != nil {
			return err
		}
		lookup := models.NewLocationLookup(items)
		mutex.Lock()
		dataset.Locations = lookup
		mutex.Unlock()
		return nil
	})
	go load("truth", l.sources.TruthURL, func(body []byte) error {
		table, err := ParseTruth(bytes.NewReader(body))
		if err != nil {
			return err
		}
		mutex.Lock()
		dataset.Truth = table
		mutex.Unlock()
		return nil
	})
	go load("forecasts", l.sources.ForecastsURL, func(body []byte) error {
		data, err := ParseForecasts(bytes.NewReader(body))
		if err != nil {
			return err
		}
		index := models.NewForecastIndex(data)
		mutex.Lock()
		dataset.Forecasts = index
		mutex.Unlock()
		return nil
	})
	go load("default settings", l.sources.DefaultSettingsURL, func(body []byte) error {
		settings, err := ParseDefaultSettings(bytes.NewReader(body))
		if err != nil {
			return err
		}
		mutex.Lock()
		dataset.Settings = &settings
		mutex.Unlock()
		return nil
	})
	wg.Wait()

	return dataset, errors.Join(errs...)
}
