package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"forecast-dashboard/models"
)

// DatasetLoader loads a snapshot of every remote source
type DatasetLoader interface {
	LoadAll(ctx context.Context) (models.Dataset, error)
}

// DataCollector periodically reloads the hub datasets
type DataCollector struct {
	loader       DatasetLoader
	outputChan   chan models.Dataset
	errorChan    chan error
	interval     time.Duration
	fetchTimeout time.Duration
	logger       zerolog.Logger
}

// NewDataCollector creates a new data collector refreshing every interval
func NewDataCollector(loader DatasetLoader, interval time.Duration, logger zerolog.Logger) *DataCollector {
	return &DataCollector{
		loader:       loader,
		outputChan:   make(chan models.Dataset, 10), // Buffer size can be configured
		errorChan:    make(chan error, 10),          // Buffer for errors
		interval:     interval,
		fetchTimeout: 30 * time.Second, // Default timeout
		logger:       logger.With().Str("component", "collector").Logger(),
	}
}

// SetFetchTimeout changes the timeout of one refresh
func (dc *DataCollector) SetFetchTimeout(timeout time.Duration) {
	dc.fetchTimeout = timeout
}

// OutputChannel returns the channel that emits loaded datasets
func (dc *DataCollector) OutputChannel() <-chan models.Dataset {
	return dc.outputChan
}

// ErrorChannel returns the channel that emits errors
func (dc *DataCollector) ErrorChannel() <-chan error {
	return dc.errorChan
}

// Start begins refreshing on the collector's interval, starting immediately.
// The returned function can be called to stop collection
func (dc *DataCollector) Start(ctx context.Context) func() {
	// Create a new context that we can cancel
	collectionCtx, cancelCollection := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go dc.collect(collectionCtx, &wg)

	// Close channels when the collector is done
	go func() {
		wg.Wait()
		close(dc.outputChan)
		close(dc.errorChan)
	}()

	// Return a function that will stop all collection when called
	return func() {
		cancelCollection()
		// Wait for everything to clean up
		wg.Wait()
	}
}

// collect continuously reloads the datasets
func (dc *DataCollector) collect(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(dc.interval)
	defer ticker.Stop()

	// Do an initial fetch immediately
	dc.fetchOnce(ctx)

	// Then fetch on the ticker schedule
	for {
		select {
		case <-ticker.C:
			dc.fetchOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// fetchOnce performs a single refresh. A partially loaded dataset is still
// emitted alongside the error.
func (dc *DataCollector) fetchOnce(ctx context.Context) {
	dataset, err := dc.RefreshOnce(ctx)
	if err != nil {
		select {
		case dc.errorChan <- fmt.Errorf("error refreshing datasets: %w", err):
		default:
			dc.logger.Warn().Err(err).Msg("error channel full, dropping error")
		}
	}

	if dataset.Locations == nil && dataset.Truth == nil && dataset.Forecasts == nil && dataset.Settings == nil {
		return
	}

	// Send the data to the output channel
	select {
	case dc.outputChan <- dataset:
	case <-ctx.Done():
		return
	}
}

// RefreshOnce loads the datasets once with the fetch timeout
func (dc *DataCollector) RefreshOnce(ctx context.Context) (models.Dataset, error) {
	// Create a context with timeout for this specific refresh
	fetchCtx, cancel := context.WithTimeout(ctx, dc.fetchTimeout)
	defer cancel()

	start := time.Now()
	dataset, err := dc.loader.LoadAll(fetchCtx)

	event := dc.logger.Info()
	if err != nil {
		event = dc.logger.Error().Err(err)
	}
	event.Bool("complete", dataset.Complete()).Dur("took", time.Since(start)).Msg("datasets refreshed")

	return dataset, err
}
