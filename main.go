package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"forecast-dashboard/api"
	"forecast-dashboard/cache"
	"forecast-dashboard/collector"
	"forecast-dashboard/config"
	"forecast-dashboard/dashboard"
	"forecast-dashboard/datasource"
	"forecast-dashboard/permalink"
	"forecast-dashboard/store"
)

func main() {
	v := config.New()

	rootCmd := &cobra.Command{
		Use:   "forecast-dashboard",
		Short: "Serve forecast hub dashboards",
		Long: `forecast-dashboard loads the published forecast hub datasets and serves
one reactive dashboard per viewer session over HTTP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	rootCmd.Flags().Int("port", 8080, "Port to run the server on")
	rootCmd.Flags().String("config", "", "Path to configuration file")
	rootCmd.Flags().Duration("update", 15*time.Minute, "Dataset refresh interval")
	rootCmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	if err := bindFlags(v, rootCmd.Flags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bindFlags maps command line flags onto their configuration keys
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	keys := map[string]string{
		"config":    "config",
		"port":      "server.port",
		"update":    "data.refreshInterval",
		"log-level": "log.level",
	}
	for flag, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func run(ctx context.Context, v *viper.Viper) error {
	// Load environment variables from .env file
	config.LoadEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	permalinks, closePermalinks, err := openPermalinks(ctx, cfg.Permalinks)
	if err != nil {
		return err
	}
	defer closePermalinks()

	// Remote datasets are rate limited and cached, local files are read as is
	fetcher := cache.NewCachedFetcher(datasource.SchemeFetcher{
		Remote: datasource.NewRateLimitedFetcher(
			datasource.NewHTTPFetcher(datasource.HTTPFetcherOptions{
				Timeout: cfg.Data.RequestTimeout,
				Logger:  logger,
			}),
			cfg.Data.RequestsPerSecond,
			cfg.Data.Burst,
		),
		Local: datasource.FileFetcher{},
	}, cfg.Data.CacheTTL, logger)

	loader := datasource.NewLoader(fetcher, datasource.Sources{
		ForecastsURL:       cfg.Data.ForecastsURL,
		TruthURL:           cfg.Data.TruthURL,
		LocationsURL:       cfg.Data.LocationsURL,
		DefaultSettingsURL: cfg.Data.DefaultSettingsURL,
	}, logger)

	data := store.NewDataStore()
	sessions := api.NewSessionManager(data, dashboard.Options{
		Debounce:                cfg.View.Debounce,
		MaxForecastDateDistance: cfg.View.MaxForecastDateDistanceDays,
		Logger:                  logger,
	}, logger)
	defer sessions.CloseAll()

	server := api.NewServer(data, sessions, permalinks, api.Options{
		Port:        cfg.Server.Port,
		GinMode:     cfg.Server.GinMode,
		WaitTimeout: cfg.View.WaitTimeout,
	}, logger)

	dataCollector := collector.NewDataCollector(loader, cfg.Data.RefreshInterval, logger)
	dataCollector.SetFetchTimeout(cfg.Data.RequestTimeout)
	stopCollector := dataCollector.Start(ctx)
	defer stopCollector()

	go publishDatasets(dataCollector, data, logger)
	go maintain(ctx, cfg, data, sessions, logger)

	// Start the API server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for shutdown signal
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shut down server")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

func openPermalinks(ctx context.Context, cfg config.PermalinksConfig) (permalink.Store, func(), error) {
	if cfg.Driver != "postgres" {
		return permalink.NewMemoryStore(), func() {}, nil
	}

	pg, err := permalink.NewPostgresStore(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open permalink store: %w", err)
	}
	return pg, func() { _ = pg.Close() }, nil
}

// publishDatasets merges every collected dataset into the store until the
// collector closes its channels
func publishDatasets(dc *collector.DataCollector, data *store.DataStore, logger zerolog.Logger) {
	output, errs := dc.OutputChannel(), dc.ErrorChannel()
	for output != nil || errs != nil {
		select {
		case dataset, ok := <-output:
			if !ok {
				output = nil
				continue
			}
			merged := data.Update(dataset)
			logger.Info().
				Bool("complete", merged.Complete()).
				Int("listeners", data.Listeners()).
				Msg("datasets updated")
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error().Err(err).Msg("dataset refresh failed")
		}
	}
}

// maintain prunes idle sessions and, with a retention set, old forecasts
func maintain(ctx context.Context, cfg *config.Config, data *store.DataStore, sessions *api.SessionManager, logger zerolog.Logger) {
	interval := cfg.Sessions.IdleTimeout / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cfg.Sessions.IdleTimeout > 0 {
				if n := sessions.PruneIdle(cfg.Sessions.IdleTimeout); n > 0 {
					logger.Info().Int("sessions", n).Msg("pruned idle sessions")
				}
			}
			if cfg.Data.Retention > 0 {
				if n := data.PruneForecasts(cfg.Data.Retention, time.Now()); n > 0 {
					logger.Info().Int("forecasts", n).Msg("pruned old forecasts")
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
