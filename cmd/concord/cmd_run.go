package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-concord/infrastructure/llm"
	"github.com/ahrav/go-concord/infrastructure/metrics"
	"github.com/ahrav/go-concord/infrastructure/storage"
	"github.com/ahrav/go-concord/internal/application"
)

type runOptions struct {
	configPath  string
	metricsAddr string
}

func newRunCommand(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every prompt against every configured model",
		Long: `Evaluate every prompt in the configured prompts directory against every
configured model, compare the responses and store a summary of the run.

Failed or timed-out calls are recorded in the summary with an "ERROR: "
response and do not stop the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluation(cmd.Context(), global.logger, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address during the run (e.g. :9090)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runEvaluation(ctx context.Context, logger *slog.Logger, out io.Writer, opts *runOptions) error {
	cfg, err := application.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	logger.Info("loaded configuration", "models", len(cfg.Models), "storage", cfg.Storage.Type)

	prompts, err := application.LoadPrompts(cfg.PromptsDir)
	if err != nil {
		return err
	}
	logger.Info("loaded prompts", "count", len(prompts), "dir", cfg.PromptsDir)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewPrometheusMetrics(reg)
	if opts.metricsAddr != "" {
		stop, err := serveMetrics(opts.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	clients, err := llm.NewRegistry(llm.RegistryOptions{Metrics: collector, Tracing: true}).Build(cfg.Models)
	if err != nil {
		return fmt.Errorf("failed to create model clients: %w", err)
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	evaluator, err := application.NewEvaluator(ctx,
		application.ModelsFromClients(clients), cfg.EvaluationParams, store,
		application.WithLogger(logger),
		application.WithMetrics(collector),
	)
	if err != nil {
		return err
	}

	summary, err := evaluator.EvaluateAllPrompts(ctx, prompts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Evaluation complete. Results saved to %s\n", resultLocation(cfg.Storage, summary.Location))
	return nil
}

// resultLocation renders where a stored summary can be found.
func resultLocation(cfg storage.Config, name string) string {
	switch cfg.Type {
	case storage.BackendRedis:
		return fmt.Sprintf("redis://%s/%sresult:%s", cfg.Redis.Addr, cfg.Redis.Prefix, name)
	case storage.BackendS3:
		return fmt.Sprintf("s3://%s/%s", cfg.S3.Bucket, path.Join(cfg.S3.Prefix, name))
	default:
		return filepath.Join(cfg.Dir, name)
	}
}

// serveMetrics exposes reg on addr until the returned stop func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("metrics listening", "address", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
