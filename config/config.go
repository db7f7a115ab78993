// Package config loads the service configuration from file, environment and
// flags, and builds the logger.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const dataCDN = "https://covid19-forecasthub-eu-cdn-dkbuc4bverhgftfx.z01.azurefd.net/data/"

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Data       DataConfig
	View       ViewConfig
	Sessions   SessionsConfig
	Permalinks PermalinksConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port    int
	GinMode string // debug, release, test
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // console, json
}

// DataConfig locates the hub datasets and tunes their refresh
type DataConfig struct {
	ForecastsURL       string
	TruthURL           string
	LocationsURL       string
	DefaultSettingsURL string
	RefreshInterval    time.Duration
	CacheTTL           time.Duration
	RequestsPerSecond  float64
	Burst              int
	RequestTimeout     time.Duration
	Retention          time.Duration // 0 keeps every forecast
}

// ViewConfig tunes the per-session pipelines
type ViewConfig struct {
	Debounce                    time.Duration
	MaxForecastDateDistanceDays int
	WaitTimeout                 time.Duration
}

// SessionsConfig controls viewer session lifetime
type SessionsConfig struct {
	IdleTimeout time.Duration
}

// PermalinksConfig selects the permalink store
type PermalinksConfig struct {
	Driver string // memory, postgres
	DSN    string
}

// New returns a viper instance with the defaults and environment binding set
func New() *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.forecast-dashboard")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ginMode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("data.forecastsURL", dataCDN+"forecasts_to_plot.json")
	v.SetDefault("data.truthURL", dataCDN+"truth_to_plot.csv")
	v.SetDefault("data.locationsURL", dataCDN+"locations_eu.csv")
	v.SetDefault("data.defaultSettingsURL", dataCDN+"settings_model_selection.json")
	v.SetDefault("data.refreshInterval", 15*time.Minute)
	v.SetDefault("data.cacheTTL", 5*time.Minute)
	v.SetDefault("data.requestsPerSecond", 1.0)
	v.SetDefault("data.burst", 3)
	v.SetDefault("data.requestTimeout", 30*time.Second)
	v.SetDefault("data.retention", 0)
	v.SetDefault("view.debounce", 50*time.Millisecond)
	v.SetDefault("view.maxForecastDateDistanceDays", 7)
	v.SetDefault("view.waitTimeout", 2*time.Second)
	v.SetDefault("sessions.idleTimeout", time.Hour)
	v.SetDefault("permalinks.driver", "memory")
	v.SetDefault("permalinks.dsn", "")

	// FORECAST_DASHBOARD_SERVER_PORT overrides server.port
	v.SetEnvPrefix("FORECAST_DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadEnv loads .env into the process environment when present
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}
}

// Load reads the config file, if any, and unmarshals v
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot constrain
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server.port %d", c.Server.Port))
	}
	if c.Data.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("data.refreshInterval must be positive"))
	}
	if c.Data.RequestsPerSecond <= 0 || c.Data.Burst <= 0 {
		errs = append(errs, fmt.Errorf("data.requestsPerSecond and data.burst must be positive"))
	}
	switch c.Permalinks.Driver {
	case "memory":
	case "postgres":
		if c.Permalinks.DSN == "" {
			errs = append(errs, fmt.Errorf("permalinks.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown permalinks.driver %q", c.Permalinks.Driver))
	}
	return errors.Join(errs...)
}

// GetServerAddr returns the server address in the format ":port"
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// NewLogger creates a zerolog logger writing to stdout and installs it as the
// global logger
func (c *Config) NewLogger() zerolog.Logger {
	logger := c.newLogger(os.Stdout)
	log.Logger = logger
	return logger
}

func (c *Config) newLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if strings.ToLower(c.Log.Format) != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
