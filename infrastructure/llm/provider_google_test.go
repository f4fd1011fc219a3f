package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

// TestNewGoogleProvider tests provider construction.
func TestNewGoogleProvider(t *testing.T) {
	_, err := newGoogleProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	provider, err := newGoogleProvider(ClientConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, GoogleDefaultModel, provider.GetModel())

	_, err = newGoogleProvider(ClientConfig{APIKey: "k", BaseURL: "not a url"})
	assert.Error(t, err)
}

// TestBuildGenerateContentRequest verifies system prompts are folded in.
func TestBuildGenerateContentRequest(t *testing.T) {
	plain := buildGenerateContentRequest("question", RequestOptions{})
	require.Len(t, plain, 1)
	require.Len(t, plain[0].Parts, 1)
	assert.Equal(t, "question", plain[0].Parts[0].Text)

	withSystem := buildGenerateContentRequest("question", RequestOptions{System: "be brief"})
	assert.Equal(t, "System: be brief\n\nUser: question", withSystem[0].Parts[0].Text)
}

// TestBuildGenerationConfig verifies parameter mapping and clamping.
func TestBuildGenerationConfig(t *testing.T) {
	temp, topP := 3.0, 0.9
	config := buildGenerationConfig(RequestOptions{Temperature: &temp, TopP: &topP, MaxTokens: 200})

	require.NotNil(t, config.Temperature)
	assert.Equal(t, float32(2.0), *config.Temperature)
	require.NotNil(t, config.TopP)
	assert.InDelta(t, 0.9, *config.TopP, 1e-6)
	assert.Equal(t, int32(200), config.MaxOutputTokens)

	empty := buildGenerationConfig(RequestOptions{})
	assert.Nil(t, empty.Temperature)
	assert.Zero(t, empty.MaxOutputTokens)
}

// TestGoogleProvider_HandleError verifies googleapi errors are classified.
func TestGoogleProvider_HandleError(t *testing.T) {
	p := &googleProvider{errorClassifier: &ErrorClassifier{Provider: "google"}}

	tests := []struct {
		name     string
		err      error
		wantType ErrorType
	}{
		{"auth", &googleapi.Error{Code: 403, Message: "permission denied"}, ErrorTypeAuthentication},
		{"quota", &googleapi.Error{Code: 429, Message: "quota"}, ErrorTypeRateLimit},
		{"safety", &googleapi.Error{Code: 400, Message: "Response blocked by safety settings"}, ErrorTypeContentPolicy},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"other", errors.New("dial tcp: refused"), ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var perr *ProviderError
			require.ErrorAs(t, p.handleError(tt.err), &perr)
			assert.Equal(t, tt.wantType, perr.Type)
		})
	}
}

// TestGoogleProvider_Live exercises the real API when a key is available.
func TestGoogleProvider_Live(t *testing.T) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		t.Skip("GOOGLE_API_KEY not set")
	}

	provider, err := newGoogleProvider(ClientConfig{APIKey: apiKey, Model: GoogleDefaultModel})
	require.NoError(t, err)

	response, _, _, err := provider.DoRequest(context.Background(), "Reply with the word ok.", map[string]any{OptMaxTokens: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, response)
}
