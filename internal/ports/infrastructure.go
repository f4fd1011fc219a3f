package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
)

// LLMClient defines the interface for invoking one configured model backend.
// Implementations handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Invoke sends one message to the backend and returns its reply.
	// Implementations must honor ctx cancellation so that a timed-out
	// attempt releases its underlying request.
	Invoke(ctx context.Context, msg domain.Message) (domain.Reply, error)

	// GetModel returns the backend model identifier.
	GetModel() string
}

// StoredResult describes one persisted run summary.
type StoredResult struct {
	// Name is the file or object name, e.g. evaluation-<timestamp>.json.
	Name string

	// ModifiedAt is when the summary was written.
	ModifiedAt time.Time
}

// ResultStore persists run summaries. Implementations exist for the local
// filesystem, Redis and S3.
type ResultStore interface {
	// Ensure prepares the destination, creating it if missing.
	// It is called once before a run starts; a failure aborts setup.
	Ensure(ctx context.Context) error

	// Save writes data under name, replacing any previous value.
	Save(ctx context.Context, name string, data []byte) error

	// List returns every stored summary, newest first.
	List(ctx context.Context) ([]StoredResult, error)

	// Load returns the data stored under name or ErrResultNotFound.
	Load(ctx context.Context, name string) ([]byte, error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (NoopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (NoopMetrics) RecordGauge(string, float64, map[string]string)         {}
func (NoopMetrics) RecordHistogram(string, float64, map[string]string)     {}
