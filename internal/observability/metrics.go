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
	// Ingestion metrics
	EventsReceived *prometheus.CounterVec
	EventsDropped  *prometheus.CounterVec
	FeedReconnects prometheus.Counter
	EnrichRequests *prometheus.CounterVec

	// Matching metrics
	Evaluations prometheus.Counter
	Matches     *prometheus.CounterVec
	Rejections  *prometheus.CounterVec

	// Execution metrics
	Executions         *prometheus.CounterVec
	AccountAttempts    *prometheus.CounterVec
	AcquisitionLatency prometheus.Histogram
	PendingApprovals   prometheus.Gauge
	DailySpentSOL      prometheus.Gauge
	RPCCallLatency     *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_sniper"
	}

	return &Metrics{
		// Ingestion metrics
		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_received_total",
			Help:      "Total number of feed events received by kind",
		}, []string{"kind"}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_dropped_total",
			Help:      "Total number of feed events dropped by reason",
		}, []string{"reason"}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "feed_reconnects_total",
			Help:      "Total number of feed websocket reconnects",
		}),
		EnrichRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "enrich_requests_total",
			Help:      "Total number of metadata resolves by result",
		}, []string{"result"}),

		// Matching metrics
		Evaluations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "evaluations_total",
			Help:      "Total number of rule evaluations",
		}),
		Matches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "matches_total",
			Help:      "Total number of accepted matches by handling mode",
		}, []string{"mode"}),
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "rejections_total",
			Help:      "Total number of rejected evaluations by reason",
		}, []string{"reason"}),

		// Execution metrics
		Executions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "executions_total",
			Help:      "Total number of match executions by outcome",
		}, []string{"outcome"}),
		AccountAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "account_attempts_total",
			Help:      "Total number of account-level acquisition attempts by outcome",
		}, []string{"outcome"}),
		AcquisitionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "acquisition_latency_seconds",
			Help:      "Latency of successful acquisitions in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		PendingApprovals: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "pending_approvals",
			Help:      "Number of matches waiting for manual approval",
		}),
		DailySpentSOL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "daily_spent_sol",
			Help:      "SOL spent since the last daily reset",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventReceived increments the events received counter.
func RecordEventReceived(kind string) {
	DefaultMetrics.EventsReceived.WithLabelValues(kind).Inc()
}

// RecordEventDropped records an event that produced no evaluation.
func RecordEventDropped(reason string) {
	DefaultMetrics.EventsDropped.WithLabelValues(reason).Inc()
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// RecordEnrich records a metadata resolve result (hit, resolved, failed).
func RecordEnrich(result string) {
	DefaultMetrics.EnrichRequests.WithLabelValues(result).Inc()
}

// RecordEvaluation increments the evaluations counter.
func RecordEvaluation() {
	DefaultMetrics.Evaluations.Inc()
}

// RecordMatch records an accepted match and how it was handled.
func RecordMatch(mode string) {
	DefaultMetrics.Matches.WithLabelValues(mode).Inc()
}

// RecordRejection records a rejected evaluation.
func RecordRejection(reason string) {
	DefaultMetrics.Rejections.WithLabelValues(reason).Inc()
}

// RecordExecution records a finished match execution.
func RecordExecution(outcome string) {
	DefaultMetrics.Executions.WithLabelValues(outcome).Inc()
}

// RecordAccountAttempt records one account-level attempt. Latency is observed for successes only.
func RecordAccountAttempt(success bool, latencySeconds float64) {
	if success {
		DefaultMetrics.AccountAttempts.WithLabelValues("success").Inc()
		DefaultMetrics.AcquisitionLatency.Observe(latencySeconds)
		return
	}
	DefaultMetrics.AccountAttempts.WithLabelValues("failure").Inc()
}

// SetPendingApprovals updates the pending approvals gauge.
func SetPendingApprovals(n int) {
	DefaultMetrics.PendingApprovals.Set(float64(n))
}

// SetDailySpent updates the daily spend gauge.
func SetDailySpent(sol float64) {
	DefaultMetrics.DailySpentSOL.Set(sol)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
