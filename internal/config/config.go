// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults shared with callers that build a Config by hand.
const (
	DefaultBaseURL            = "http://127.0.0.1:817/api/v1"
	DefaultSearchDebounceMs   = 1000
	DefaultResultLimitValue   = 50
	DefaultNoticeHistoryValue = 20
)

// Config holds all configuration for the netquery MCP server.
type Config struct {
	NetqueryBaseURL     string        // NETQUERY_BASE_URL, default "http://127.0.0.1:817/api/v1"
	HTTPClientTimeout   time.Duration // HTTP_CLIENT_TIMEOUT_MS, default 10000ms (10s)
	SearchDebounce      time.Duration // SEARCH_DEBOUNCE_MS, default 1000ms
	StoreRequestTimeout time.Duration // STORE_REQUEST_TIMEOUT_MS, default 15000ms, per search cycle
	ChartCacheMaxItems  int           // CHART_CACHE_MAX_ITEMS, default 256
	ChartCacheTTL       time.Duration // CHART_CACHE_TTL_MS, default 10000ms
	GroupChartWorkers   int           // GROUP_CHART_WORKERS, default 4
	ValidateQueries     bool          // VALIDATE_QUERIES, default false
	NoticeHistory       int           // NOTICE_HISTORY, default 20
	DefaultResultLimit  int           // DEFAULT_RESULT_LIMIT, default 50

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogFormat     string // LOG_FORMAT, "text" or "json", default "text"
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		NetqueryBaseURL:     getEnvString("NETQUERY_BASE_URL", DefaultBaseURL),
		HTTPClientTimeout:   getEnvDurationMs("HTTP_CLIENT_TIMEOUT_MS", 10000),
		SearchDebounce:      getEnvDurationMs("SEARCH_DEBOUNCE_MS", DefaultSearchDebounceMs),
		StoreRequestTimeout: getEnvDurationMs("STORE_REQUEST_TIMEOUT_MS", 15000),
		ChartCacheMaxItems:  getEnvInt("CHART_CACHE_MAX_ITEMS", 256),
		ChartCacheTTL:       getEnvDurationMs("CHART_CACHE_TTL_MS", 10000),
		GroupChartWorkers:   getEnvInt("GROUP_CHART_WORKERS", 4),
		ValidateQueries:     getEnvBool("VALIDATE_QUERIES", false),
		NoticeHistory:       getEnvInt("NOTICE_HISTORY", DefaultNoticeHistoryValue),
		DefaultResultLimit:  getEnvInt("DEFAULT_RESULT_LIMIT", DefaultResultLimitValue),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogFormat:     getEnvString("LOG_FORMAT", "text"),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
