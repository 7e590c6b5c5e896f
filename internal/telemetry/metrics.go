// Package telemetry holds the Prometheus metrics and OpenTelemetry tracing used by fetch and load runs.
//
// Metrics are registered on the default registry and prefixed with spx_. A CLI run
// can dump them to a node_exporter textfile when it finishes ([WriteTextfile]) or
// expose them on /metrics while it runs (see the server package).
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogRequests counts catalog API responses by entity and status code.
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spx_catalog_requests_total",
			Help: "Catalog API responses by entity and status code",
		},
		[]string{"entity", "status_code"},
	)

	// CatalogDuration tracks catalog round trip latency.
	CatalogDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spx_catalog_request_duration_seconds",
			Help:    "Catalog API round trip latency in seconds",
			Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"entity"},
	)

	// RateLimitWaits counts 429 responses that were waited out.
	RateLimitWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spx_rate_limit_waits_total",
			Help: "Rate limited responses retried after Retry-After",
		},
		[]string{"entity"},
	)

	// TokenRefreshes counts credential exchanges by result.
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spx_token_refreshes_total",
			Help: "Client credential exchanges by result",
		},
		[]string{"result"},
	)

	// FetchItems counts fetcher outcomes per identifier: cached, fetched, failed or missing.
	FetchItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spx_fetch_items_total",
			Help: "Fetcher outcomes per identifier",
		},
		[]string{"entity", "outcome"},
	)

	// LoadRecords counts loader outcomes per record: inserted, existing, unresolved or failed.
	LoadRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spx_load_records_total",
			Help: "Loader outcomes per record",
		},
		[]string{"target", "outcome"},
	)

	// LoadDuration tracks whole load runs.
	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spx_load_duration_seconds",
			Help:    "Duration of a load run in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"target"},
	)
)

// WriteTextfile writes every registered metric to path in the text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
