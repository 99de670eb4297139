// Package monitoring exposes prometheus metrics for analysis runs, remote
// imagery calls and the web server.
package monitoring

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterq_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waterq_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		},
		[]string{"method", "route", "status"},
	)

	remoteCallSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waterq_remote_call_duration_seconds",
			Help:    "Latency of Earth Engine calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation", "outcome"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterq_analysis_runs_total",
			Help: "Analysis runs by outcome.",
		},
		[]string{"outcome"},
	)

	layerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterq_layer_failures_total",
			Help: "Map layers that could not be resolved to a tile source.",
		},
		[]string{"layer"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterq_exports_total",
			Help: "Shapefile exports by outcome.",
		},
		[]string{"outcome"},
	)
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(elapsed.Seconds())
}

// ObserveRemote records one remote call. Its signature matches
// earthengine.Observer.
func ObserveRemote(operation string, elapsed time.Duration, err error) {
	remoteCallSeconds.WithLabelValues(operation, outcome(err)).Observe(elapsed.Seconds())
}

// IncRun counts a finished analysis run. Outcome is "ok", "no_data",
// "invalid_input" or "error".
func IncRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}

// IncLayerFailure counts a layer that was skipped.
func IncLayerFailure(layer string) {
	layerFailuresTotal.WithLabelValues(layer).Inc()
}

// IncExport counts an export attempt.
func IncExport(err error) {
	exportsTotal.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
