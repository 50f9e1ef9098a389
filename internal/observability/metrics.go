package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloakgate_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloakgate_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// classification outcomes by action ("safe"/"money")
	DecisionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloakgate_decisions_total",
			Help: "Total classification decisions by action",
		},
		[]string{"action"},
	)

	// terminal verdicts by the filter that produced them
	FilterBlockCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloakgate_filter_blocks_total",
			Help: "Total blocks per classifier filter",
		},
		[]string{"filter"},
	)

	// reputation lookups labelled by outcome (hit/ok/unavailable/disabled)
	ReputationLookupCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloakgate_reputation_lookups_total",
			Help: "Total reputation service lookups",
		},
		[]string{"outcome"},
	)

	// latency of reputation service calls
	ReputationLookupLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cloakgate_reputation_lookup_duration_seconds",
			Help:    "Duration of reputation service lookups",
			Buckets: prometheus.DefBuckets,
		},
	)

	// hit log writes labelled by status (ok/error/dropped)
	HitLogCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloakgate_hits_logged_total",
			Help: "Total hit log writes by status",
		},
		[]string{"status"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		DecisionCount,
		FilterBlockCount,
		ReputationLookupCount,
		ReputationLookupLatency,
		HitLogCount,
	)
}
