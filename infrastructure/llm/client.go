// Package llm adapts the supported model backends to ports.LLMClient.
//
// Every backend implements the small CoreLLM interface. Cross-cutting
// concerns such as rate limiting, metrics and tracing are layered on top as
// Middleware, and a Client binds the resulting chain to the sampling
// parameters configured for one model.
//
// Basic usage:
//
//	client, err := llm.NewClient(domain.ProviderOpenAI, llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o",
//	})
//	reply, err := client.Invoke(ctx, domain.Message{Content: "Hello world!"})
//
// With middleware:
//
//	client, err := llm.NewClient(domain.ProviderAnthropic, llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-3-5-sonnet-20241022",
//	    Middleware: []llm.Middleware{
//	        llm.TracingMiddleware("claude"),
//	        llm.MetricsMiddleware(collector, "anthropic"),
//	        llm.RateLimitMiddleware(2, 1),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// CoreLLM defines the minimal interface that backend adapters implement.
// The middleware chain wraps values of this type.
type CoreLLM interface {
	// DoRequest sends a prompt to the backend and returns the response text
	// with the input and output token counts the backend reported. Counts
	// are zero when the backend does not report them.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the backend model identifier.
	GetModel() string
}

// ClientConfig holds all configuration options for creating a Client.
type ClientConfig struct {
	// APIKey authenticates requests to the backend.
	APIKey string

	// Model specifies which backend model to use.
	Model string

	// BaseURL overrides the default API endpoint.
	BaseURL string

	// Temperature is sent with every request when set.
	Temperature *float64

	// MaxTokens caps response length when positive.
	MaxTokens int

	// Timeout sets an HTTP-level ceiling for individual requests.
	// Per-attempt deadlines are normally carried by the context instead.
	Timeout time.Duration

	// Middleware is applied in order; the first entry is outermost.
	Middleware []Middleware
}

// Middleware wraps a CoreLLM to add cross-cutting behavior.
type Middleware func(CoreLLM) CoreLLM

// Client implements ports.LLMClient on top of a middleware-wrapped CoreLLM.
type Client struct {
	core CoreLLM
	opts map[string]any
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient creates a Client for the given provider tag.
func NewClient(provider domain.Provider, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := lookupProviderFactory(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", provider, err)
	}

	return newClientWithCore(core, config), nil
}

// newClientWithCore wires middleware and request options around core.
func newClientWithCore(core CoreLLM, config ClientConfig) *Client {
	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	opts := make(map[string]any, 2)
	if config.Temperature != nil {
		opts[OptTemperature] = *config.Temperature
	}
	if config.MaxTokens > 0 {
		opts[OptMaxTokens] = config.MaxTokens
	}

	return &Client{core: core, opts: opts}
}

// Invoke sends msg to the backend. Token usage is attached only when the
// backend reported it.
func (c *Client) Invoke(ctx context.Context, msg domain.Message) (domain.Reply, error) {
	response, tokensIn, tokensOut, err := c.core.DoRequest(ctx, msg.Content, c.opts)
	if err != nil {
		return domain.Reply{}, err
	}

	reply := domain.Reply{Content: response}
	if tokensIn > 0 || tokensOut > 0 {
		reply.TokenUsage = &domain.TokenUsage{Prompt: tokensIn, Response: tokensOut}
	}
	return reply, nil
}

// GetModel returns the model name from the underlying adapter.
func (c *Client) GetModel() string { return c.core.GetModel() }

// ProviderFactory creates a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	factoriesMu       sync.RWMutex
	providerFactories = map[domain.Provider]ProviderFactory{}
)

// RegisterProviderFactory registers the adapter for a provider tag.
// Built-in adapters register themselves from init.
func RegisterProviderFactory(provider domain.Provider, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	providerFactories[provider] = factory
}

func lookupProviderFactory(provider domain.Provider) (ProviderFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := providerFactories[provider]
	return f, ok
}
