package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runtime (non-command/query) metrics for the batcher, grounded on
// cuemby-warren's pkg/metrics package-level-gauge/MustRegister idiom.
// Command/query latency and error counts are application.MetricsCollector's
// concern (pkg/application/middleware.go); these track the write-path
// runtime itself, the piece spec.md §9 calls out as "process-wide lifetime"
// infrastructure.
var (
	batcherQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "core_batcher_queue_depth",
		Help: "Number of logical transactions currently queued in the batcher.",
	})

	batcherFlushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "core_batcher_flush_duration_seconds",
		Help:    "Duration of a physical transaction flush.",
		Buckets: prometheus.DefBuckets,
	})

	batcherFlushesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "core_batcher_flushes_total",
		Help: "Total number of physical transaction flushes, by outcome.",
	}, []string{"outcome"})

	batcherBackPressureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "core_batcher_backpressure_total",
		Help: "Total number of Submit calls rejected for a saturated queue.",
	})
)

func init() {
	prometheus.MustRegister(batcherQueueDepth, batcherFlushDuration, batcherFlushesTotal, batcherBackPressureTotal)
}

// MetricsHandler exposes every process-registered Prometheus collector
// (batcher gauges/histograms here, outbox counters from pkg/infrastructure/
// outbox) over HTTP, for `corectl serve` to mount alongside the app.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
