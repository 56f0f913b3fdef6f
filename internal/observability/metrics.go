// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsStarted   prometheus.Counter
	RunsCompleted prometheus.Counter
	RunsFailed    *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	ActiveRuns    prometheus.Gauge

	// Step metrics
	StepsProcessed prometheus.Counter
	TradesClosed   *prometheus.CounterVec

	// Stream metrics
	EventsEmitted *prometheus.CounterVec
	EmitErrors    prometheus.Counter

	// Storage metrics
	BarsLoaded      prometheus.Counter
	BarLoadDuration prometheus.Histogram

	// Export metrics
	ReportsWritten *prometheus.CounterVec
	ExportErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "crypto_backtest_lab"
	}

	return &Metrics{
		// Run metrics
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_started_total",
			Help:      "Total number of backtest runs started",
		}),
		RunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_completed_total",
			Help:      "Total number of backtest runs completed successfully",
		}),
		RunsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_failed_total",
			Help:      "Total number of failed backtest runs by reason",
		}, []string{"reason"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		ActiveRuns: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "active_runs",
			Help:      "Number of backtest runs currently executing",
		}),

		// Step metrics
		StepsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "steps_processed_total",
			Help:      "Total number of simulation steps processed",
		}),
		TradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_closed_total",
			Help:      "Total number of closed trades by close reason",
		}, []string{"reason"}),

		// Stream metrics
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_emitted_total",
			Help:      "Total number of progress events emitted by type",
		}, []string{"type"}),
		EmitErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "emit_errors_total",
			Help:      "Total number of event emission errors",
		}),

		// Storage metrics
		BarsLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "bars_loaded_total",
			Help:      "Total number of bars loaded for backtest runs",
		}),
		BarLoadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "bar_load_duration_seconds",
			Help:      "Bar loading duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Export metrics
		ReportsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "reports_written_total",
			Help:      "Total number of export files written by kind",
		}, []string{"kind"}),
		ExportErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "errors_total",
			Help:      "Total number of export failures by kind",
		}, []string{"kind"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRunStarted marks the start of a backtest run.
func RecordRunStarted() {
	DefaultMetrics.RunsStarted.Inc()
	DefaultMetrics.ActiveRuns.Inc()
}

// RecordRunCompleted marks a successful run end.
func RecordRunCompleted(durationSeconds float64) {
	DefaultMetrics.RunsCompleted.Inc()
	DefaultMetrics.ActiveRuns.Dec()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordRunFailed marks a failed run end.
func RecordRunFailed(reason string) {
	DefaultMetrics.RunsFailed.WithLabelValues(reason).Inc()
	DefaultMetrics.ActiveRuns.Dec()
}

// RecordSteps adds processed simulation steps.
func RecordSteps(n int) {
	DefaultMetrics.StepsProcessed.Add(float64(n))
}

// RecordTradeClosed increments the closed trade counter for a reason.
func RecordTradeClosed(reason string) {
	DefaultMetrics.TradesClosed.WithLabelValues(reason).Inc()
}

// RecordEventEmitted increments the emitted event counter for a type.
func RecordEventEmitted(eventType string) {
	DefaultMetrics.EventsEmitted.WithLabelValues(eventType).Inc()
}

// RecordBarsLoaded records a bar load for a run.
func RecordBarsLoaded(n int, durationSeconds float64) {
	DefaultMetrics.BarsLoaded.Add(float64(n))
	DefaultMetrics.BarLoadDuration.Observe(durationSeconds)
}

// RecordExport records an export attempt outcome.
func RecordExport(kind string, err error) {
	if err != nil {
		DefaultMetrics.ExportErrors.WithLabelValues(kind).Inc()
		return
	}
	DefaultMetrics.ReportsWritten.WithLabelValues(kind).Inc()
}
