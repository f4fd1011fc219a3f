// Package similarity scores pairs of model responses with Jaccard, cosine and
// Levenshtein metrics and assembles the results into similarity matrices.
package similarity

import (
	"context"
	"fmt"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-concord/infrastructure/metrics"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// Engine builds similarity matrices over pools of evaluation results.
// It holds no per-run state and is safe for concurrent use.
type Engine struct {
	workers int
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds how many pairs are scored in parallel.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMetrics sets the collector used for pair counters.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewEngine creates an Engine. By default it uses one worker per CPU.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		workers: runtime.GOMAXPROCS(0),
		metrics: ports.NoopMetrics{},
		tracer:  otel.Tracer("similarity-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type pair struct{ i, j int }

// AllPairs scores every unordered pair of eligible results with all three
// metrics. Failed results are skipped. Keys put the result that appears
// first in results on the left. It returns nil when fewer than two results
// are eligible.
func (e *Engine) AllPairs(ctx context.Context, results []domain.EvaluationResult) (*domain.SimilarityMatrix, error) {
	pool := domain.Eligible(results)

	ctx, span := e.tracer.Start(ctx, "Engine.AllPairs",
		trace.WithAttributes(attribute.Int("similarity.pool_size", len(pool))))
	defer span.End()

	if len(pool) < 2 {
		return nil, nil
	}

	pairs := make([]pair, 0, len(pool)*(len(pool)-1)/2)
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	scores := make([]domain.SimilarityScore, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for k, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[k] = Score(pool[p.i].Response, pool[p.j].Response)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scoring %d pairs: %w", len(pairs), err)
	}

	matrix := &domain.SimilarityMatrix{
		Mode:        domain.ModeAllPairs,
		Comparisons: make(map[string]domain.SimilarityScore, len(pairs)),
	}
	for k, p := range pairs {
		matrix.Comparisons[domain.PairKey(pool[p.i].ID, pool[p.j].ID)] = scores[k]
	}

	e.metrics.RecordCounter(metrics.SimilarityPairs, float64(len(pairs)),
		map[string]string{"mode": string(domain.ModeAllPairs)})
	span.SetAttributes(attribute.Int("similarity.pairs", len(pairs)))
	span.SetStatus(codes.Ok, "")
	return matrix, nil
}

// Reference scores every eligible result against the first eligible result
// with a single method. The reference maps to itself with a score of 1.
// An unknown method fails immediately, even when the pool is too small to
// compare.
func (e *Engine) Reference(ctx context.Context, results []domain.EvaluationResult, method domain.SimilarityMethod) (*domain.SimilarityMatrix, error) {
	if !ValidMethod(method) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	pool := domain.Eligible(results)
	_, span := e.tracer.Start(ctx, "Engine.Reference",
		trace.WithAttributes(
			attribute.Int("similarity.pool_size", len(pool)),
			attribute.String("similarity.method", string(method)),
		))
	defer span.End()

	if len(pool) < 2 {
		return nil, nil
	}

	ref := pool[0]
	matrix := &domain.SimilarityMatrix{
		Mode:        domain.ModeReference,
		Method:      method,
		ReferenceID: ref.ID,
		Scores:      make(map[string]float64, len(pool)),
	}
	matrix.Scores[ref.ID] = 1
	for _, r := range pool[1:] {
		score, err := Compute(method, ref.Response, r.Response)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		matrix.Scores[r.ID] = score
	}

	e.metrics.RecordCounter(metrics.SimilarityPairs, float64(len(pool)-1),
		map[string]string{"mode": string(domain.ModeReference)})
	return matrix, nil
}
