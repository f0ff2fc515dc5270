package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("CONNECTA_SERVER_BASE_URL", "https://env.example/api")
	t.Setenv("CONNECTA_PAGE_SIZE", "12")
	t.Setenv("CONNECTA_PAGE_RETRY_INTERVAL", "1s")
	t.Setenv("CONNECTA_OTEL_ENDPOINT", "localhost:4318")

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "https://env.example/api", cfg.ServerBaseURL)
	assert.Equal(t, 12, cfg.PageSize)
	assert.Equal(t, time.Second, cfg.PageRetryInterval)
	assert.Equal(t, "localhost:4318", cfg.OTelEndpoint)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseEnv_BadValue(t *testing.T) {
	t.Setenv("CONNECTA_PAGE_SIZE", "many")

	cfg := &Config{}
	err := parseEnv(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}
