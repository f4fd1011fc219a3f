package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/ports"
)

// mockUsage provides token usage in test responses.
type mockUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// mockContent provides a content block in test responses.
type mockContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// mockResponse provides a successful messages API response.
type mockResponse struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Role       string        `json:"role"`
	Content    []mockContent `json:"content"`
	Model      string        `json:"model"`
	StopReason string        `json:"stop_reason"`
	Usage      mockUsage     `json:"usage"`
}

// TestNewAnthropicProvider tests provider construction.
func TestNewAnthropicProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      ClientConfig
		expectError bool
		wantModel   string
	}{
		{
			name:      "valid config with all fields",
			config:    ClientConfig{APIKey: "k", Model: "claude-3-haiku", BaseURL: "https://api.anthropic.com"},
			wantModel: "claude-3-haiku",
		},
		{
			name:      "default model",
			config:    ClientConfig{APIKey: "k"},
			wantModel: AnthropicDefaultModel,
		},
		{
			name:        "empty API key",
			config:      ClientConfig{},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := newAnthropicProvider(tt.config)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrEmptyAPIKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, provider.GetModel())
		})
	}
}

// TestAnthropicProvider_DoRequest verifies request shape and response parsing.
func TestAnthropicProvider_DoRequest(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockResponse{
			ID:         "msg_1",
			Type:       "message",
			Role:       "assistant",
			Content:    []mockContent{{Type: "text", Text: "Hello, "}, {Type: "text", Text: "world"}},
			Model:      "claude-3-haiku",
			StopReason: "end_turn",
			Usage:      mockUsage{InputTokens: 9, OutputTokens: 3},
		})
	}))
	defer server.Close()

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "test-key", Model: "claude-3-haiku", BaseURL: server.URL})
	require.NoError(t, err)

	response, in, out, err := provider.DoRequest(context.Background(), "Say hello", map[string]any{OptTemperature: 1.5})
	require.NoError(t, err)

	assert.Equal(t, "Hello, world", response)
	assert.Equal(t, 9, in)
	assert.Equal(t, 3, out)
	assert.Equal(t, "claude-3-haiku", got["model"])
	assert.Equal(t, float64(DefaultMaxTokens), got["max_tokens"])
	assert.Equal(t, 1.0, got["temperature"], "temperature is clamped to the Anthropic range")
}

// TestAnthropicProvider_ErrorHandling verifies status codes are classified.
func TestAnthropicProvider_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		errType    string
		wantType   ErrorType
		wantIs     error
	}{
		{"authentication", http.StatusUnauthorized, "authentication_error", ErrorTypeAuthentication, nil},
		{"rate limit", http.StatusTooManyRequests, "rate_limit_error", ErrorTypeRateLimit, ports.ErrRateLimited},
		{"bad request", http.StatusBadRequest, "invalid_request_error", ErrorTypeBadRequest, nil},
		{"overloaded", http.StatusServiceUnavailable, "overloaded_error", ErrorTypeServerError, ports.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				fmt.Fprintf(w, `{"type":"error","error":{"type":%q,"message":"failure"}}`, tt.errType)
			}))
			defer server.Close()

			provider, err := newAnthropicProvider(ClientConfig{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, _, _, err = provider.DoRequest(context.Background(), "p", nil)
			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantType, perr.Type)
			assert.Equal(t, tt.statusCode, perr.StatusCode)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Equal(t, 1, calls, "SDK retries are disabled")
		})
	}
}

// TestAnthropicProvider_EmptyContent verifies a reply without text fails.
func TestAnthropicProvider_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockResponse{ID: "m", Type: "message", Role: "assistant", Content: []mockContent{}})
	}))
	defer server.Close()

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, _, _, err = provider.DoRequest(context.Background(), "p", nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
