package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-concord/infrastructure/llm"
	"github.com/ahrav/go-concord/infrastructure/metrics"
	"github.com/ahrav/go-concord/infrastructure/similarity"
	"github.com/ahrav/go-concord/infrastructure/storage"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// Model is one configured backend taking part in a run.
type Model struct {
	// Name labels every result produced by this model.
	Name string
	// Temperature is copied onto results; nil when unknown.
	Temperature *float64
	Client      ports.LLMClient
}

// ModelsFromClients converts registry output into evaluator models,
// preserving configuration order.
func ModelsFromClients(clients []llm.NamedClient) []Model {
	models := make([]Model, 0, len(clients))
	for _, c := range clients {
		temperature := c.Config.Temperature
		models = append(models, Model{Name: c.Config.Name, Temperature: &temperature, Client: c.Client})
	}
	return models
}

// SimilarityEngine builds similarity matrices over a pool of results.
// *similarity.Engine is the production implementation.
type SimilarityEngine interface {
	AllPairs(ctx context.Context, results []domain.EvaluationResult) (*domain.SimilarityMatrix, error)
	Reference(ctx context.Context, results []domain.EvaluationResult, method domain.SimilarityMethod) (*domain.SimilarityMatrix, error)
}

// Evaluator sends prompts to every configured model, records each attempt
// as an EvaluationResult, compares the responses and persists a summary of
// the run.
//
// Prompts are processed in consecutive chunks of Concurrency prompts. The
// prompts of a chunk run concurrently; a chunk starts only after the
// previous one has finished. Within a prompt, the attempts for each model
// run one after another.
type Evaluator struct {
	models     []Model
	params     domain.EvaluationParams
	store      ports.ResultStore
	similarity SimilarityEngine
	logger     *slog.Logger
	metrics    ports.MetricsCollector
	tracer     trace.Tracer
	now        func() time.Time
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m ports.MetricsCollector) EvaluatorOption {
	return func(e *Evaluator) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracer sets the tracer used for run and prompt spans.
func WithTracer(t trace.Tracer) EvaluatorOption {
	return func(e *Evaluator) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithClock replaces time.Now for timestamps. Latencies always use the
// monotonic clock.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSimilarityEngine replaces the default similarity engine.
func WithSimilarityEngine(s SimilarityEngine) EvaluatorOption {
	return func(e *Evaluator) {
		if s != nil {
			e.similarity = s
		}
	}
}

// NewEvaluator validates its inputs and prepares the result store. A store
// that cannot be prepared is a setup failure and no evaluator is returned.
func NewEvaluator(
	ctx context.Context,
	models []Model,
	params domain.EvaluationParams,
	store ports.ResultStore,
	opts ...EvaluatorOption,
) (*Evaluator, error) {
	verr := domain.NewValidationError("evaluator")
	if len(models) == 0 {
		verr.AddError("at least one model is required")
	}
	for i, m := range models {
		if m.Client == nil {
			verr.AddError(fmt.Sprintf("model %d (%q) has no client", i, m.Name))
		}
	}
	if params.RepeatCount < 1 {
		verr.AddError("repeatCount must be at least 1")
	}
	if params.Concurrency < 1 {
		verr.AddError("concurrency must be at least 1")
	}
	if params.TimeoutSeconds <= 0 {
		verr.AddError("timeoutSeconds must be positive")
	}
	switch params.SimilarityMode {
	case "", domain.ModeAllPairs, domain.ModeReference:
	default:
		verr.AddError(fmt.Sprintf("unknown similarity mode %q", params.SimilarityMode))
	}
	// Reference mode is the only consumer of the method; check it before any
	// model is called.
	if params.Mode() == domain.ModeReference && !similarity.ValidMethod(params.Method()) {
		verr.AddError(fmt.Sprintf("unknown similarity method %q", params.SimilarityMethod))
	}
	if store == nil {
		verr.AddError("a result store is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	e := &Evaluator{
		models:  models,
		params:  params,
		store:   store,
		logger:  slog.Default(),
		metrics: ports.NoopMetrics{},
		tracer:  otel.Tracer("evaluator"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.similarity == nil {
		e.similarity = similarity.NewEngine(similarity.WithMetrics(e.metrics))
	}

	if err := store.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare result store: %w", err)
	}
	return e, nil
}

// EvaluatePrompt runs RepeatCount attempts of prompt against every model,
// model by model in configuration order. It always returns
// len(models)*RepeatCount results; failed attempts are recorded as results
// whose response starts with "ERROR: ".
func (e *Evaluator) EvaluatePrompt(ctx context.Context, prompt domain.Prompt) []domain.EvaluationResult {
	ctx, span := e.tracer.Start(ctx, "Evaluator.EvaluatePrompt",
		trace.WithAttributes(attribute.String("prompt.id", prompt.ID)))
	defer span.End()

	results := make([]domain.EvaluationResult, 0, len(e.models)*e.params.RepeatCount)
	failures := 0
	for _, m := range e.models {
		for attempt := 1; attempt <= e.params.RepeatCount; attempt++ {
			r := e.attempt(ctx, prompt, m, attempt)
			if r.IsFailure() {
				failures++
			}
			results = append(results, r)
		}
	}

	span.SetAttributes(
		attribute.Int("evaluation.results", len(results)),
		attribute.Int("evaluation.failures", failures),
	)
	return results
}

// attempt performs one invocation and converts its outcome into a result.
func (e *Evaluator) attempt(ctx context.Context, prompt domain.Prompt, m Model, n int) domain.EvaluationResult {
	log := e.logger.With("prompt", prompt.ID, "model", m.Name, "attempt", n, "of", e.params.RepeatCount)
	log.Debug("evaluating prompt")

	start := time.Now()
	reply, failure := e.invoke(ctx, m.Client, prompt.Content)
	latency := time.Since(start)

	status := "success"
	var result domain.EvaluationResult
	if failure != nil {
		f := domain.NormalizeFailure(failure)
		status = "error"
		if f.Kind == domain.FailureTimeout {
			status = "timeout"
		}
		result = domain.NewFailureResult(prompt.ID, m.Name, f, latency, m.Temperature, e.now())
		log.Warn("attempt failed", "latency_ms", result.LatencyMs, "error", f.Message)
	} else {
		result = domain.NewSuccessResult(prompt.ID, m.Name, reply, latency, m.Temperature, e.now())
		log.Info("attempt succeeded", "latency_ms", result.LatencyMs)
	}

	labels := map[string]string{"model": m.Name, "status": status}
	e.metrics.RecordCounter(metrics.EvaluationAttempts, 1, labels)
	e.metrics.RecordLatency(metrics.EvaluationAttempt, latency, labels)
	return result
}

// invoke calls client under the per-attempt deadline. The call runs in its
// own goroutine so that a client ignoring its context still yields a
// timeout at the deadline; the abandoned goroutine finishes into a buffered
// channel. A non-nil second return is the raw failure: an error or a
// recovered panic value.
func (e *Evaluator) invoke(ctx context.Context, client ports.LLMClient, content string) (domain.Reply, any) {
	ctx, cancel := context.WithTimeout(ctx, e.params.Timeout())
	defer cancel()

	type outcome struct {
		reply   domain.Reply
		failure any
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{failure: r}
			}
		}()
		reply, err := client.Invoke(ctx, domain.Message{Content: content})
		if err != nil {
			done <- outcome{failure: err}
			return
		}
		done <- outcome{reply: reply}
	}()

	select {
	case o := <-done:
		return o.reply, o.failure
	case <-ctx.Done():
		return domain.Reply{}, ctx.Err()
	}
}

// EvaluateAllPrompts evaluates prompts in chunks, runs the similarity stage
// and persists the run summary. Invocation failures never surface here;
// errors are limited to invalid input, similarity engine failures,
// cancellation of ctx and store failures.
func (e *Evaluator) EvaluateAllPrompts(ctx context.Context, prompts []domain.Prompt) (summary *domain.RunSummary, err error) {
	startedAt := e.now()
	ctx, span := e.tracer.Start(ctx, "Evaluator.EvaluateAllPrompts",
		trace.WithAttributes(
			attribute.Int("evaluation.prompts", len(prompts)),
			attribute.Int("evaluation.models", len(e.models)),
			attribute.Int("evaluation.concurrency", e.params.Concurrency),
		))
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		e.metrics.RecordCounter(metrics.EvaluationRuns, 1, map[string]string{"status": status})
		span.End()
	}()

	session, err := domain.NewSession(prompts, startedAt)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordGauge(metrics.EvaluationPrompts, float64(len(prompts)), nil)
	e.logger.Info("starting evaluation",
		"prompts", len(prompts), "models", len(e.models),
		"repeat", e.params.RepeatCount, "concurrency", e.params.Concurrency)

	if err := e.runChunks(ctx, session); err != nil {
		return nil, err
	}

	summary = &domain.RunSummary{
		Prompts: session.ByPrompt(),
		Metadata: domain.RunMetadata{
			StartedAt:   domain.FormatTimestamp(startedAt),
			PromptCount: len(prompts),
			ModelCount:  len(e.models),
			RepeatCount: e.params.RepeatCount,
		},
	}
	if e.params.SimilarityEnabled() {
		if err := e.compare(ctx, session, summary); err != nil {
			return nil, err
		}
	}
	summary.Metadata.EvaluatedAt = domain.FormatTimestamp(e.now())

	if err := e.save(ctx, startedAt, summary); err != nil {
		return nil, err
	}

	e.logger.Info("evaluation complete",
		"results", len(prompts)*len(e.models)*e.params.RepeatCount,
		"eligible", len(session.EligibleResults()),
		"location", summary.Location,
		"duration", time.Since(startedAt).Round(time.Millisecond))
	return summary, nil
}

// runChunks evaluates the session's prompts Concurrency at a time.
func (e *Evaluator) runChunks(ctx context.Context, session *domain.Session) error {
	prompts := session.Prompts()
	size := e.params.Concurrency

	for start := 0; start < len(prompts); start += size {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("evaluation canceled: %w", err)
		}

		end := min(start+size, len(prompts))
		chunk := start/size + 1
		e.logger.Debug("starting chunk", "chunk", chunk, "prompts", end-start)
		e.metrics.RecordGauge(metrics.EvaluationPromptsInFlight, float64(end-start), nil)

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				session.Record(i, e.EvaluatePrompt(ctx, prompts[i]))
				return nil
			})
		}
		_ = g.Wait()

		e.metrics.RecordGauge(metrics.EvaluationPromptsInFlight, 0, nil)
		e.logger.Debug("finished chunk", "chunk", chunk)
	}
	return nil
}

// compare fills the similarity section of summary. All-pairs mode builds
// one matrix over every eligible result of the run; reference mode builds
// one matrix per prompt.
func (e *Evaluator) compare(ctx context.Context, session *domain.Session, summary *domain.RunSummary) error {
	if e.params.Mode() == domain.ModeReference {
		byPrompt := make(map[string]*domain.SimilarityMatrix)
		for _, p := range session.Prompts() {
			results, err := session.Results(p.ID)
			if err != nil {
				return err
			}
			m, err := e.similarity.Reference(ctx, results, e.params.Method())
			if err != nil {
				return fmt.Errorf("similarity for prompt %s: %w", p.ID, err)
			}
			if m != nil {
				byPrompt[p.ID] = m
			}
		}
		if len(byPrompt) > 0 {
			summary.SimilarityByPrompt = byPrompt
		}
		return nil
	}

	m, err := e.similarity.AllPairs(ctx, session.EligibleResults())
	if err != nil {
		return fmt.Errorf("similarity: %w", err)
	}
	summary.SimilarityMatrix = m
	if m != nil {
		e.logger.Info("similarity computed", "pairs", m.Len())
	}
	return nil
}

func (e *Evaluator) save(ctx context.Context, startedAt time.Time, summary *domain.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}

	name := storage.ResultName(startedAt)
	if err := e.store.Save(ctx, name, data); err != nil {
		var storeErr *ports.StoreError
		if errors.As(err, &storeErr) {
			return err
		}
		return ports.NewStoreError("unknown", "save", name, err)
	}
	summary.Location = name
	return nil
}
