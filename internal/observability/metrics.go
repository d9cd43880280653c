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
	// Scheduler metrics
	PollsTotal        prometheus.Counter
	PollErrors        *prometheus.CounterVec
	PairsActive       prometheus.Gauge
	PairsRemoved      *prometheus.CounterVec
	BaselinesAdvanced prometheus.Counter
	MatchesDetected   prometheus.Counter

	// Pipeline metrics
	TradesTotal   *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	// Upstream metrics
	FetchLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tweet_sniper"
	}

	return &Metrics{
		PollsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "polls_total",
			Help:      "Total number of poll visits performed",
		}),
		PollErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "poll_errors_total",
			Help:      "Total number of poll errors by kind",
		}, []string{"kind"}),
		PairsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "pairs_active",
			Help:      "Current number of pairs in the active set",
		}),
		PairsRemoved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "pairs_removed_total",
			Help:      "Total number of pairs removed by reason",
		}, []string{"reason"}),
		BaselinesAdvanced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "baselines_advanced_total",
			Help:      "Total number of baseline advances",
		}),
		MatchesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "matches_detected_total",
			Help:      "Total number of match events produced",
		}),
		TradesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "trades_total",
			Help:      "Total number of trade attempts by outcome",
		}, []string{"status"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Trade pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetch_latency_seconds",
			Help:      "Upstream fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPoll increments the poll counter.
func RecordPoll() {
	DefaultMetrics.PollsTotal.Inc()
}

// RecordPollError records a poll error by kind.
func RecordPollError(kind string) {
	DefaultMetrics.PollErrors.WithLabelValues(kind).Inc()
}

// UpdateActivePairs updates the active-pair gauge.
func UpdateActivePairs(n int) {
	DefaultMetrics.PairsActive.Set(float64(n))
}

// RecordPairRemoved records a pair removal by reason.
func RecordPairRemoved(reason string) {
	DefaultMetrics.PairsRemoved.WithLabelValues(reason).Inc()
}

// RecordBaselineAdvance increments the baseline advance counter.
func RecordBaselineAdvance() {
	DefaultMetrics.BaselinesAdvanced.Inc()
}

// RecordMatch increments the match counter.
func RecordMatch() {
	DefaultMetrics.MatchesDetected.Inc()
}

// RecordTrade records a trade attempt outcome.
func RecordTrade(status string) {
	DefaultMetrics.TradesTotal.WithLabelValues(status).Inc()
}

// RecordStageDuration records a pipeline stage duration.
func RecordStageDuration(stage string, seconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordFetchLatency records an upstream fetch duration by endpoint.
func RecordFetchLatency(endpoint string, seconds float64) {
	DefaultMetrics.FetchLatency.WithLabelValues(endpoint).Observe(seconds)
}
