package deployment

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeforge",
			Subsystem: "engine",
			Name:      "executions_total",
			Help:      "Total number of finished executions by outcome and failure class",
		},
		[]string{"outcome", "class"},
	)

	executionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "edgeforge",
			Subsystem: "engine",
			Name:      "executions_in_flight",
			Help:      "Number of executions currently running in this process",
		},
	)

	stateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgeforge",
			Subsystem: "engine",
			Name:      "state_duration_seconds",
			Help:      "Duration of task states in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"state"},
	)

	adapterCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeforge",
			Subsystem: "aws",
			Name:      "api_calls_total",
			Help:      "Total number of adapter calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	adapterLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgeforge",
			Subsystem: "aws",
			Name:      "api_latency_seconds",
			Help:      "Latency of adapter calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms to ~6s
		},
		[]string{"operation"},
	)

	retryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeforge",
			Subsystem: "engine",
			Name:      "retry_attempts_total",
			Help:      "Total number of retried adapter calls by operation",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		executionsTotal,
		executionsInFlight,
		stateDuration,
		adapterCallsTotal,
		adapterLatency,
		retryAttemptsTotal,
	)
}

func recordExecutionMetric(outcome Outcome, class FailureClass) {
	executionsTotal.WithLabelValues(string(outcome), string(class)).Inc()
}

func recordStateDurationMetric(state StateName, seconds float64) {
	stateDuration.WithLabelValues(string(state)).Observe(seconds)
}

func recordAdapterCallMetric(operation, result string, latency float64) {
	adapterCallsTotal.WithLabelValues(operation, result).Inc()
	adapterLatency.WithLabelValues(operation).Observe(latency)
}

func recordRetryMetric(operation string) {
	retryAttemptsTotal.WithLabelValues(operation).Inc()
}

// callResult labels the outcome of an adapter call.
func callResult(err error) string {
	if err == nil {
		return "success"
	}
	return lowerClass(ClassOf(err))
}

func lowerClass(c FailureClass) string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// Metrics helpers that check enableMetrics before recording.

func (e *Engine) recordExecution(outcome Outcome, class FailureClass) {
	if e.enableMetrics {
		recordExecutionMetric(outcome, class)
	}
}

func (e *Engine) recordStateDuration(state StateName, seconds float64) {
	if e.enableMetrics {
		recordStateDurationMetric(state, seconds)
	}
}

func (e *Engine) recordAdapterCall(operation string, err error, latency float64) {
	if e.enableMetrics {
		recordAdapterCallMetric(operation, callResult(err), latency)
	}
}

func (e *Engine) recordRetry(operation string) {
	if e.enableMetrics {
		recordRetryMetric(operation)
	}
}

func (e *Engine) trackInFlight(delta float64) {
	if e.enableMetrics {
		executionsInFlight.Add(delta)
	}
}
