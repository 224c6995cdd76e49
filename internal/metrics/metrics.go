package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the service exports.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	StageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swift_stage_duration_seconds",
			Help:    "Duration of each voice pipeline stage in seconds",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"stage"},
	)

	Requests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swift_requests_total",
			Help: "Voice requests by outcome",
		},
		[]string{"outcome"},
	)

	LogWriteFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swift_log_write_failures_total",
			Help: "Message log writes that failed and were discarded",
		},
		[]string{"role"},
	)

	IdentityFallbacks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swift_identity_fallbacks_total",
			Help: "Bearer credentials that could not be resolved and fell back to anonymous",
		},
		[]string{"reason"},
	)
)

// ObserveStage records how long stage took since start.
func ObserveStage(stage string, start time.Time) time.Duration {
	elapsed := time.Since(start)
	StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	return elapsed
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
