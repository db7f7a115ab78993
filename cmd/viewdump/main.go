// Package main provides a CLI that renders one dashboard view as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"forecast-dashboard/config"
	"forecast-dashboard/dashboard"
	"forecast-dashboard/datasource"
)

var (
	outputPath string
	pretty     bool
	verbose    bool
	timeout    time.Duration
	sources    datasource.Sources
)

func main() {
	defaults := config.New()

	rootCmd := &cobra.Command{
		Use:   "viewdump [query]",
		Short: "Print the chart view a dashboard URL query resolves to",
		Long: `viewdump loads the forecast hub datasets once, builds a dashboard from a
URL query string such as "location=DE&target=death" and prints the resulting
chart view as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: run,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	flags.BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log dataset loading to stderr")
	flags.DurationVar(&timeout, "timeout", time.Minute, "Timeout for loading and rendering")
	flags.StringVar(&sources.ForecastsURL, "forecasts", defaults.GetString("data.forecastsURL"), "Forecasts JSON URL or file")
	flags.StringVar(&sources.TruthURL, "truth", defaults.GetString("data.truthURL"), "Truth CSV URL or file")
	flags.StringVar(&sources.LocationsURL, "locations", defaults.GetString("data.locationsURL"), "Locations CSV URL or file")
	flags.StringVar(&sources.DefaultSettingsURL, "settings", defaults.GetString("data.defaultSettingsURL"), "Default settings JSON URL or file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	fetcher := datasource.SchemeFetcher{
		Remote: datasource.NewHTTPFetcher(datasource.HTTPFetcherOptions{Logger: logger}),
		Local:  datasource.FileFetcher{},
	}
	dataset, err := datasource.NewLoader(fetcher, sources, logger).LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading failed: %w", err)
	}

	d := dashboard.New(query, dashboard.Options{Logger: logger})
	defer d.Close()
	d.Publish(dataset)

	view, err := d.View(ctx)
	if err != nil {
		return err
	}

	// Serialize to JSON
	var jsonData []byte
	if pretty {
		jsonData, err = json.MarshalIndent(view, "", "  ")
	} else {
		jsonData, err = json.Marshal(view)
	}
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	fmt.Fprintf(os.Stderr, "query: %s\n", d.Query())
	fmt.Println(string(jsonData))
	return nil
}
