// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "before_you_sign"

// Metrics groups all collectors on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	ModelCalls     *prometheus.CounterVec
	ModelRetries   *prometheus.CounterVec
	ModelLatency   *prometheus.HistogramVec
	Assessments    *prometheus.CounterVec
	Conversions    *prometheus.CounterVec
	ResultCacheHit prometheus.Counter
	CachesPurged   prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model API calls by step and outcome.",
		}, []string{"step", "outcome"}),
		ModelRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_retries_total",
			Help:      "Retries of model API calls after transient errors.",
		}, []string{"operation"}),
		ModelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_seconds",
			Help:      "Latency of model API calls including retries.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"step"}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Completed assessments by grade.",
		}, []string{"grade"}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Document conversions by converter and outcome.",
		}, []string{"converter", "outcome"}),
		ResultCacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_hits_total",
			Help:      "Submissions answered from an earlier identical assessment.",
		}),
		CachesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_caches_purged_total",
			Help:      "Remote cached contents deleted by the maintenance job.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ModelCalls,
		m.ModelRetries,
		m.ModelLatency,
		m.Assessments,
		m.Conversions,
		m.ResultCacheHit,
		m.CachesPurged,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRetry increments the retry counter; it matches resilience.WithRetryObserver.
func (m *Metrics) ObserveRetry(operation string) {
	m.ModelRetries.WithLabelValues(operation).Inc()
}

// ObserveAssessment counts a completed assessment.
func (m *Metrics) ObserveAssessment(grade string) {
	m.Assessments.WithLabelValues(grade).Inc()
}

// ObserveResultCacheHit counts a submission answered from a stored assessment.
func (m *Metrics) ObserveResultCacheHit() {
	m.ResultCacheHit.Inc()
}

// ObserveConversion counts a conversion attempt.
func (m *Metrics) ObserveConversion(converter, outcome string) {
	m.Conversions.WithLabelValues(converter, outcome).Inc()
}

// ObserveModelCall records one model call including its retries.
func (m *Metrics) ObserveModelCall(step, outcome string, seconds float64) {
	m.ModelCalls.WithLabelValues(step, outcome).Inc()
	m.ModelLatency.WithLabelValues(step).Observe(seconds)
}

// ObserveCachesPurged adds n to the purged cache counter.
func (m *Metrics) ObserveCachesPurged(n int) {
	m.CachesPurged.Add(float64(n))
}
