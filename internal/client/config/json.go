package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/connecta/internal/flagx"
	"github.com/dmitrijs2005/connecta/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values that
// are present are copied into the runtime Config.
type JsonConfig struct {
	ServerBaseURL       string          `json:"server_base_url"`
	RequestTimeout      timex.Duration  `json:"request_timeout"`
	OnlineCheckInterval timex.Duration  `json:"online_check_interval"`
	DatabasePath        string          `json:"database_path"`
	PrefetchMargin      *int            `json:"prefetch_margin"`
	PageSize            int             `json:"page_size"`
	PageRetryAttempts   int             `json:"page_retry_attempts"`
	PageRetryInterval   *timex.Duration `json:"page_retry_interval"`
	LogLevel            string          `json:"log_level"`
	OTelEndpoint        string          `json:"otel_endpoint"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag it does nothing.
func parseJson(cfg *Config) error {
	path := flagx.ConfigPath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	if jc.PrefetchMargin != nil {
		cfg.PrefetchMargin = *jc.PrefetchMargin
	}
	if jc.PageSize != 0 {
		cfg.PageSize = jc.PageSize
	}
	if jc.PageRetryAttempts != 0 {
		cfg.PageRetryAttempts = jc.PageRetryAttempts
	}
	if jc.PageRetryInterval != nil {
		cfg.PageRetryInterval = time.Duration(jc.PageRetryInterval.Duration)
	}
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.OTelEndpoint, jc.OTelEndpoint)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = time.Duration(v.Duration)
	}
}
