package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds runtime settings for the Connecta CLI.
//
// Units: all intervals are time.Duration (e.g., 3*time.Second).
type Config struct {
	// ServerBaseURL is the API root, e.g. http://localhost/api.
	ServerBaseURL       string        `env:"SERVER_BASE_URL"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	DatabasePath        string        `env:"DATABASE_PATH"`

	// PrefetchMargin is how many items from the end of the list the next
	// page is requested.
	PrefetchMargin    int           `env:"PREFETCH_MARGIN"`
	PageSize          int           `env:"PAGE_SIZE"`
	PageRetryAttempts int           `env:"PAGE_RETRY_ATTEMPTS"`
	PageRetryInterval time.Duration `env:"PAGE_RETRY_INTERVAL"`

	LogLevel string `env:"LOG_LEVEL"`
	// OTelEndpoint is an OTLP/HTTP collector address; empty disables tracing.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost/api"
	c.RequestTimeout = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "connecta.db"
	c.PrefetchMargin = 2
	c.PageSize = 5
	c.PageRetryAttempts = 3
	c.PageRetryInterval = 200 * time.Millisecond
	c.LogLevel = "info"
	c.OTelEndpoint = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid server base url %q", c.ServerBaseURL)
	}
	switch {
	case c.RequestTimeout <= 0:
		return errors.New("request timeout must be positive")
	case c.OnlineCheckInterval <= 0:
		return errors.New("online check interval must be positive")
	case c.DatabasePath == "":
		return errors.New("database path is required")
	case c.PrefetchMargin < 0:
		return errors.New("prefetch margin must not be negative")
	case c.PageSize <= 0:
		return errors.New("page size must be positive")
	case c.PageRetryAttempts <= 0:
		return errors.New("page retry attempts must be positive")
	case c.PageRetryInterval < 0:
		return errors.New("page retry interval must not be negative")
	}
	return nil
}
