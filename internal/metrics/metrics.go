// Package metrics exposes Prometheus instrumentation for search cycles and
// record store round trips.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store operations.
const (
	OpRows       = "rows"
	OpChart      = "chart"
	OpCount      = "count"
	OpSuggest    = "suggest"
	OpGroupChart = "group_chart"
)

var (
	// SearchCycles counts completed search cycles by outcome
	// (success, partial_failure, stale).
	SearchCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netquery_search_cycles_total",
			Help: "Total number of search cycles by outcome",
		},
		[]string{"outcome"},
	)
	// StaleDiscards counts results dropped because a newer request superseded them.
	StaleDiscards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netquery_stale_discards_total",
			Help: "Total number of results discarded as superseded",
		},
		[]string{"kind"},
	)
	// StoreRequestDuration is the latency of record store round trips.
	StoreRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netquery_store_request_duration_seconds",
			Help:    "Record store request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	// StoreRequestFailures counts failed record store round trips.
	// Cancelled requests are not failures.
	StoreRequestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netquery_store_request_failures_total",
			Help: "Total number of failed record store requests",
		},
		[]string{"operation"},
	)
	// GroupChartLookups counts lazy group chart resolutions by source
	// (cache, fetch, failed).
	GroupChartLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netquery_group_chart_lookups_total",
			Help: "Total number of group chart resolutions by source",
		},
		[]string{"source"},
	)
	// ToolCalls counts MCP tool invocations by tool and outcome
	// (ok, tool_error, failed).
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netquery_mcp_tool_calls_total",
			Help: "Total number of MCP tool calls by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)
)

// ObserveStore records the duration and outcome of a store round trip
// started at start.
func ObserveStore(op string, start time.Time, err error) {
	StoreRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, context.Canceled) {
		StoreRequestFailures.WithLabelValues(op).Inc()
	}
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
