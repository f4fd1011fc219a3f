package llm

import (
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// ProxyPlaceholderKey is sent when a model points at a proxy that needs no
// credentials.
const ProxyPlaceholderKey = "dummy-key"

// NamedClient pairs a configured model with its ready client.
type NamedClient struct {
	Config domain.ModelConfig
	Client ports.LLMClient
}

// RegistryOptions control the middleware every client receives.
type RegistryOptions struct {
	// Metrics enables MetricsMiddleware when non-nil.
	Metrics ports.MetricsCollector
	// Tracing enables TracingMiddleware.
	Tracing bool
}

// Registry builds clients for a run's model list, in configuration order.
type Registry struct {
	opts RegistryOptions
}

// NewRegistry creates a Registry.
func NewRegistry(opts RegistryOptions) *Registry { return &Registry{opts: opts} }

// Build constructs one client per model. Errors name the offending model.
func (r *Registry) Build(models []domain.ModelConfig) ([]NamedClient, error) {
	clients := make([]NamedClient, 0, len(models))
	for _, mc := range models {
		client, err := r.BuildOne(mc)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", mc.Name, err)
		}
		clients = append(clients, NamedClient{Config: mc, Client: client})
	}
	return clients, nil
}

// BuildOne constructs the client for a single model.
func (r *Registry) BuildOne(mc domain.ModelConfig) (*Client, error) {
	return NewClient(mc.Provider, r.clientConfig(mc))
}

func (r *Registry) clientConfig(mc domain.ModelConfig) ClientConfig {
	temperature := mc.Temperature
	cfg := ClientConfig{
		APIKey:      mc.APIKey,
		Model:       mc.ModelName,
		BaseURL:     strings.TrimSpace(mc.ProxyURL),
		Temperature: &temperature,
		MaxTokens:   mc.MaxTokens,
	}
	if cfg.BaseURL != "" && cfg.APIKey == "" {
		cfg.APIKey = ProxyPlaceholderKey
	}

	// Outermost first: the span covers metrics and any rate-limit wait.
	if r.opts.Tracing {
		cfg.Middleware = append(cfg.Middleware, TracingMiddleware(mc.Name))
	}
	if r.opts.Metrics != nil {
		cfg.Middleware = append(cfg.Middleware, MetricsMiddleware(r.opts.Metrics, string(mc.Provider)))
	}
	if mc.RequestsPerSecond > 0 {
		cfg.Middleware = append(cfg.Middleware, RateLimitMiddleware(rate.Limit(mc.RequestsPerSecond), 1))
	}
	return cfg
}
