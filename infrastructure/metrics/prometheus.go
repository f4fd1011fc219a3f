// Package metrics exports evaluation, similarity and backend measurements to
// Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-concord/internal/ports"
)

// Metric names emitted by the evaluator, the similarity engine and the llm
// middleware. Names not listed here fall through to the generic vectors.
const (
	EvaluationAttempts        = "evaluation_attempts_total"
	EvaluationAttempt         = "evaluation_attempt"
	EvaluationRuns            = "evaluation_runs_total"
	EvaluationPrompts         = "evaluation_prompts"
	EvaluationPromptsInFlight = "evaluation_prompts_in_flight"
	SimilarityPairs           = "similarity_pairs_total"
	LLMRequests               = "llm_requests_total"
	LLMTokens                 = "llm_tokens_total"
	LLMLatency                = "llm_latency_seconds"
)

// PrometheusMetrics implements ports.MetricsCollector with Prometheus vectors.
type PrometheusMetrics struct {
	attempts        *prometheus.CounterVec
	attemptLatency  *prometheus.HistogramVec
	runs            *prometheus.CounterVec
	pairs           *prometheus.CounterVec
	llmRequests     *prometheus.CounterVec
	llmTokens       *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	operations      *prometheus.CounterVec
	operationTiming *prometheus.HistogramVec
	gauges          *prometheus.GaugeVec
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers every vector with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: EvaluationAttempts,
			Help: "Model attempts made while evaluating prompts.",
		}, []string{"model", "status"}),
		attemptLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evaluation_attempt_duration_seconds",
			Help:    "Wall time of individual model attempts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model", "status"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: EvaluationRuns,
			Help: "Completed evaluation runs.",
		}, []string{"status"}),
		pairs: f.NewCounterVec(prometheus.CounterOpts{
			Name: SimilarityPairs,
			Help: "Result pairs scored by the similarity engine.",
		}, []string{"mode"}),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: LLMRequests,
			Help: "Requests sent to model backends.",
		}, []string{"provider", "model", "status"}),
		llmTokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: LLMTokens,
			Help: "Tokens reported by model backends.",
		}, []string{"provider", "model", "token_type"}),
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    LLMLatency,
			Help:    "Backend request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "model", "status"}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "concord_operations_total",
			Help: "Counters without a dedicated vector.",
		}, []string{"operation"}),
		operationTiming: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "concord_operation_duration_seconds",
			Help:    "Latencies and histograms without a dedicated vector.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		gauges: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "concord_state",
			Help: "Point-in-time values such as prompt counts of the last run.",
		}, []string{"metric"}),
	}
}

// RecordLatency observes duration. Attempt timings carry model and status
// labels; everything else is keyed by operation name.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	if operation == EvaluationAttempt {
		pm.attemptLatency.WithLabelValues(label(labels, "model"), label(labels, "status")).Observe(duration.Seconds())
		return
	}
	pm.operationTiming.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter adds value to the counter named by metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case EvaluationAttempts:
		pm.attempts.WithLabelValues(label(labels, "model"), label(labels, "status")).Add(value)
	case EvaluationRuns:
		pm.runs.WithLabelValues(label(labels, "status")).Add(value)
	case SimilarityPairs:
		pm.pairs.WithLabelValues(label(labels, "mode")).Add(value)
	case LLMRequests:
		pm.llmRequests.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Add(value)
	case LLMTokens:
		pm.llmTokens.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "token_type")).Add(value)
	default:
		pm.operations.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets the gauge named by metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.gauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram observes value in the histogram named by metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if metric == LLMLatency {
		pm.llmLatency.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Observe(value)
		return
	}
	pm.operationTiming.WithLabelValues(metric).Observe(value)
}

func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}
