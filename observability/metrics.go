package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Trading cycle metrics
	CyclesTotal      *prometheus.CounterVec
	CycleDuration    *prometheus.HistogramVec
	CycleCandidates  prometheus.Histogram
	CycleCapitalUsed prometheus.Histogram

	// Candidate metrics
	CandidateConviction *prometheus.HistogramVec
	CandidateConfidence *prometheus.HistogramVec
	CandidateErrors     *prometheus.CounterVec

	// Agent metrics
	AgentDuration    *prometheus.HistogramVec
	AgentErrorsTotal *prometheus.CounterVec

	// Order and validation metrics
	OrdersTotal          *prometheus.CounterVec
	OrderNotional        *prometheus.HistogramVec
	ValidationViolations *prometheus.CounterVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

// weightBuckets are histogram buckets for normalized conviction weights (0 to 1)
var weightBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// notionalBuckets are histogram buckets for order notional values in dollars
var notionalBuckets = prometheus.ExponentialBuckets(100, 2.5, 8)

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "cycle",
				Name:      "runs_total",
				Help:      "Total number of trading cycles by outcome",
			},
			[]string{"status"},
		),
		CycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sentinel",
				Subsystem: "cycle",
				Name:      "duration_seconds",
				Help:      "Duration of trading cycles in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"status"},
		),
		CycleCandidates: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "sentinel",
				Subsystem: "cycle",
				Name:      "candidates",
				Help:      "Number of candidates produced per cycle",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
		),
		CycleCapitalUsed: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "sentinel",
				Subsystem: "cycle",
				Name:      "capital_allocated_dollars",
				Help:      "Capital allocated per cycle in dollars",
				Buckets:   prometheus.ExponentialBuckets(1000, 2, 10),
			},
		),

		CandidateConviction: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sentinel",
				Subsystem: "candidate",
				Name:      "conviction_weight",
				Help:      "Distribution of normalized conviction weights",
				Buckets:   weightBuckets,
			},
			[]string{"action"},
		),
		CandidateConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sentinel",
				Subsystem: "candidate",
				Name:      "confidence",
				Help:      "Distribution of candidate confidence levels",
				Buckets:   weightBuckets,
			},
			[]string{"action"},
		),
		CandidateErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "candidate",
				Name:      "errors_total",
				Help:      "Total number of rejected or malformed candidates",
			},
			[]string{"reason"},
		),

		AgentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sentinel",
				Subsystem: "agent",
				Name:      "duration_seconds",
				Help:      "Duration of agent analysis in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"agent_type"},
		),
		AgentErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "agent",
				Name:      "errors_total",
				Help:      "Total number of agent errors",
			},
			[]string{"agent_type", "error_type"},
		),

		OrdersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "order",
				Name:      "total",
				Help:      "Total number of orders by action and lifecycle status",
			},
			[]string{"action", "status"},
		),
		OrderNotional: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sentinel",
				Subsystem: "order",
				Name:      "notional_dollars",
				Help:      "Distribution of order notional values in dollars",
				Buckets:   notionalBuckets,
			},
			[]string{"action"},
		),
		ValidationViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "validation",
				Name:      "violations_total",
				Help:      "Total number of constraint violations by rule",
			},
			[]string{"rule"},
		),

		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sentinel",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sentinel",
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sentinel",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sentinel",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinel",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordCycle records a completed trading cycle
func (m *Metrics) RecordCycle(status string, duration time.Duration, candidates int) {
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.CycleCandidates.Observe(float64(candidates))
}

// RecordCapitalAllocated records the capital deployed by a cycle
func (m *Metrics) RecordCapitalAllocated(dollars float64) {
	m.CycleCapitalUsed.Observe(dollars)
}

// RecordCandidate records a candidate's conviction weight and confidence
func (m *Metrics) RecordCandidate(action string, weight, confidence float64) {
	m.CandidateConviction.WithLabelValues(action).Observe(weight)
	m.CandidateConfidence.WithLabelValues(action).Observe(confidence)
}

// RecordCandidateError records a rejected or malformed candidate
func (m *Metrics) RecordCandidateError(reason string) {
	m.CandidateErrors.WithLabelValues(reason).Inc()
}

// RecordAgentDuration records the duration of an agent analysis
func (m *Metrics) RecordAgentDuration(agentType string, duration time.Duration) {
	m.AgentDuration.WithLabelValues(agentType).Observe(duration.Seconds())
}

// RecordAgentError records an agent error
func (m *Metrics) RecordAgentError(agentType, errorType string) {
	m.AgentErrorsTotal.WithLabelValues(agentType, errorType).Inc()
}

// RecordOrder records an order transition by action and status
func (m *Metrics) RecordOrder(action, status string, notional float64) {
	m.OrdersTotal.WithLabelValues(action, status).Inc()
	m.OrderNotional.WithLabelValues(action).Observe(notional)
}

// RecordViolation records a constraint violation by rule name
func (m *Metrics) RecordViolation(rule string) {
	m.ValidationViolations.WithLabelValues(rule).Inc()
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveCycle records the cycle duration and outcome
func (t *Timer) ObserveCycle(status string, candidates int) {
	t.metrics.RecordCycle(status, time.Since(t.start), candidates)
}

// ObserveAgent records the agent duration
func (t *Timer) ObserveAgent(agentType string) {
	t.metrics.RecordAgentDuration(agentType, time.Since(t.start))
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// ObserveDB records the database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
