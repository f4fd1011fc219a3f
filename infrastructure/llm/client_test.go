package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
)

// mockMetricsCollector records metrics keyed by "<name>:<status>".
type mockMetricsCollector struct {
	mu         sync.Mutex
	histograms map[string]float64
	counters   map[string]float64
	labels     []map[string]string
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		histograms: make(map[string]float64),
		counters:   make(map[string]float64),
	}
}

func (m *mockMetricsCollector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	m.RecordHistogram(operation, duration.Seconds(), labels)
}

func (m *mockMetricsCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[fmt.Sprintf("%s:%s", metric, labels["status"])] += value
	m.labels = append(m.labels, labels)
}

func (m *mockMetricsCollector) RecordGauge(string, float64, map[string]string) {}

func (m *mockMetricsCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[fmt.Sprintf("%s:%s", metric, labels["status"])] = value
}

// TestNewClient_Validation tests configuration checks in NewClient.
func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name     string
		provider domain.Provider
		config   ClientConfig
		wantErr  error
		errMsg   string
	}{
		{
			name:     "missing api key",
			provider: domain.ProviderOpenAI,
			config:   ClientConfig{Model: "gpt-4o"},
			wantErr:  ErrEmptyAPIKey,
		},
		{
			name:     "missing model",
			provider: domain.ProviderOpenAI,
			config:   ClientConfig{APIKey: "k"},
			errMsg:   "model is required",
		},
		{
			name:     "unknown provider",
			provider: "mistral",
			config:   ClientConfig{APIKey: "k", Model: "m"},
			wantErr:  ErrUnknownProvider,
		},
		{
			name:     "generic without base url",
			provider: domain.ProviderGeneric,
			config:   ClientConfig{APIKey: "k", Model: "m"},
			wantErr:  ErrMissingBaseURL,
		},
		{
			name:     "invalid base url",
			provider: domain.ProviderOpenAI,
			config:   ClientConfig{APIKey: "k", Model: "m", BaseURL: "ftp://example.com"},
			errMsg:   "invalid BaseURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.provider, tt.config)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

// TestNewClient_AllProviders verifies every built-in provider tag resolves.
func TestNewClient_AllProviders(t *testing.T) {
	for _, p := range domain.Providers() {
		t.Run(string(p), func(t *testing.T) {
			client, err := NewClient(p, ClientConfig{
				APIKey:  "test-key",
				Model:   "some-model",
				BaseURL: "http://localhost:1",
			})
			require.NoError(t, err)
			assert.Equal(t, "some-model", client.GetModel())
		})
	}
}

// TestClient_Invoke verifies options are forwarded and usage is reported.
func TestClient_Invoke(t *testing.T) {
	mock := NewMockCoreLLM()
	temp := 0.3
	client := newClientWithCore(mock, ClientConfig{Temperature: &temp, MaxTokens: 256})

	reply, err := client.Invoke(context.Background(), domain.Message{Content: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "test response", reply.Content)
	require.NotNil(t, reply.TokenUsage)
	assert.Equal(t, domain.TokenUsage{Prompt: 10, Response: 20}, *reply.TokenUsage)
	assert.Equal(t, "hello", mock.LastPrompt)
	assert.Equal(t, 0.3, mock.LastOpts[OptTemperature])
	assert.Equal(t, 256, mock.LastOpts[OptMaxTokens])
}

// TestClient_InvokeWithoutUsage verifies usage is omitted when unreported.
func TestClient_InvokeWithoutUsage(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.TokensIn, mock.TokensOut = 0, 0

	reply, err := newClientWithCore(mock, ClientConfig{}).Invoke(context.Background(), domain.Message{Content: "x"})
	require.NoError(t, err)
	assert.Nil(t, reply.TokenUsage)
	assert.NotContains(t, mock.LastOpts, OptTemperature)
}

// TestClient_InvokeError verifies errors pass through untouched.
func TestClient_InvokeError(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Error = errors.New("API Error")

	_, err := newClientWithCore(mock, ClientConfig{}).Invoke(context.Background(), domain.Message{Content: "x"})
	require.Error(t, err)
	assert.Equal(t, "API Error", err.Error())
}

// TestClient_MiddlewareOrder verifies the first middleware is outermost.
func TestClient_MiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return coreFunc{
				model: next.GetModel(),
				fn: func(ctx context.Context, p string, o map[string]any) (string, int, int, error) {
					order = append(order, name)
					return next.DoRequest(ctx, p, o)
				},
			}
		}
	}

	client := newClientWithCore(NewMockCoreLLM(), ClientConfig{Middleware: []Middleware{tag("a"), tag("b")}})
	_, err := client.Invoke(context.Background(), domain.Message{Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}

type coreFunc struct {
	model string
	fn    func(context.Context, string, map[string]any) (string, int, int, error)
}

func (c coreFunc) DoRequest(ctx context.Context, p string, o map[string]any) (string, int, int, error) {
	return c.fn(ctx, p, o)
}

func (c coreFunc) GetModel() string { return c.model }

// TestParseRequestOptions tests option extraction and defaults.
func TestParseRequestOptions(t *testing.T) {
	opts := ParseRequestOptions(map[string]any{
		OptTemperature: 0.5,
		OptMaxTokens:   100,
		OptTopP:        5.0,
		"seed":         7,
	}, "default-model")

	assert.Equal(t, "default-model", opts.Model)
	assert.Equal(t, 100, opts.MaxTokens)
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 0.5, *opts.Temperature)
	assert.Nil(t, opts.TopP, "out of range top_p is dropped")
	assert.Equal(t, 7, opts.Extra["seed"])

	empty := ParseRequestOptions(nil, "m")
	assert.Equal(t, DefaultMaxTokens, empty.MaxTokens)
	assert.Nil(t, empty.Temperature)
}
