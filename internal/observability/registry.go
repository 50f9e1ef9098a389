package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// This replaces direct access to global Prometheus metrics with dependency injection.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Classification metrics
	IncrementDecisions(action string)
	IncrementFilterBlocks(filter string)

	// Reputation lookup metrics
	IncrementReputationLookups(outcome string)
	RecordReputationLatency(duration time.Duration)

	// Hit log metrics
	IncrementHitsLogged(status string)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementDecisions(action string) {
	DecisionCount.WithLabelValues(action).Inc()
}

func (r *PrometheusRegistry) IncrementFilterBlocks(filter string) {
	FilterBlockCount.WithLabelValues(filter).Inc()
}

func (r *PrometheusRegistry) IncrementReputationLookups(outcome string) {
	ReputationLookupCount.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) RecordReputationLatency(duration time.Duration) {
	ReputationLookupLatency.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementHitsLogged(status string) {
	HitLogCount.WithLabelValues(status).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementDecisions(action string)                                     {}
func (r *NoOpRegistry) IncrementFilterBlocks(filter string)                                  {}
func (r *NoOpRegistry) IncrementReputationLookups(outcome string)                            {}
func (r *NoOpRegistry) RecordReputationLatency(duration time.Duration)                       {}
func (r *NoOpRegistry) IncrementHitsLogged(status string)                                    {}
