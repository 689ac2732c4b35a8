package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, DefaultBaseURL, cfg.NetqueryBaseURL)
	assert.Equal(t, time.Second, cfg.SearchDebounce)
	assert.Equal(t, 10*time.Second, cfg.HTTPClientTimeout)
	assert.Equal(t, 256, cfg.ChartCacheMaxItems)
	assert.False(t, cfg.ValidateQueries)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.LogCompress)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NETQUERY_BASE_URL", "http://localhost:9999/api/v1")
	t.Setenv("SEARCH_DEBOUNCE_MS", "250")
	t.Setenv("VALIDATE_QUERIES", "yes")
	t.Setenv("GROUP_CHART_WORKERS", "8")
	t.Setenv("LOG_COMPRESS", "off")

	cfg := Load()

	assert.Equal(t, "http://localhost:9999/api/v1", cfg.NetqueryBaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.SearchDebounce)
	assert.True(t, cfg.ValidateQueries)
	assert.Equal(t, 8, cfg.GroupChartWorkers)
	assert.False(t, cfg.LogCompress)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SEARCH_DEBOUNCE_MS", "soon")
	t.Setenv("VALIDATE_QUERIES", "maybe")

	cfg := Load()

	assert.Equal(t, time.Second, cfg.SearchDebounce)
	assert.False(t, cfg.ValidateQueries)
}
