package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	tlMutationsTotal      *prometheus.CounterVec
	tlAuditFailuresTotal  *prometheus.CounterVec
	tlDroppedEntriesTotal prometheus.Counter
	tlFetchLatency        prometheus.Histogram
	boardSessionsActive   prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		tlMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teaching_learning_mutations_total",
			Help: "Teaching and learning mutations by action and outcome.",
		}, []string{"action", "status"})

		tlAuditFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teaching_learning_audit_failures_total",
			Help: "Activity log writes that failed after the entry mutation committed.",
		}, []string{"action"})

		tlDroppedEntriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teaching_learning_dropped_entries_total",
			Help: "Fetched entries excluded from grouping because of an unknown category.",
		})

		tlFetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "teaching_learning_fetch_latency_seconds",
			Help:    "Latency of grouped entry fetches.",
			Buckets: prometheus.DefBuckets,
		})

		boardSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "board_sessions_active",
			Help: "Number of live panel board websocket sessions.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			tlMutationsTotal,
			tlAuditFailuresTotal,
			tlDroppedEntriesTotal,
			tlFetchLatency,
			boardSessionsActive,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// TeachingLearningMutations counts add/edit/delete outcomes.
func TeachingLearningMutations() *prometheus.CounterVec {
	RegisterMetrics()
	return tlMutationsTotal
}

// TeachingLearningAuditFailures counts audit writes lost after a committed mutation.
func TeachingLearningAuditFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return tlAuditFailuresTotal
}

// TeachingLearningDroppedEntries counts entries excluded from grouping.
func TeachingLearningDroppedEntries() prometheus.Counter {
	RegisterMetrics()
	return tlDroppedEntriesTotal
}

// TeachingLearningFetchLatency exposes the grouped fetch latency histogram.
func TeachingLearningFetchLatency() prometheus.Histogram {
	RegisterMetrics()
	return tlFetchLatency
}

// BoardSessionsActive tracks live board sessions.
func BoardSessionsActive() prometheus.Gauge {
	RegisterMetrics()
	return boardSessionsActive
}
