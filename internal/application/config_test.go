package application

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/infrastructure/storage"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

const validConfigYAML = `
promptsDir: ./prompts
outputDir: ./results
models:
  - name: gpt4
    provider: openai
    modelName: gpt-4o
    temperature: 0.2
    maxTokens: 512
  - name: claude
    provider: anthropic
    modelName: claude-3-5-sonnet-20241022
    temperature: 0.7
evaluationParams:
  repeatCount: 3
  concurrency: 2
  timeoutSeconds: 30
  compareSimilarity: true
  similarityMode: reference
  similarityMethod: jaccard
`

// newTestLoader returns a loader whose environment is env instead of the
// process environment.
func newTestLoader(t *testing.T, env map[string]string) *ConfigLoader {
	t.Helper()
	cl, err := NewConfigLoader()
	require.NoError(t, err)
	cl.lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	return cl
}

// TestConfigLoader_Valid verifies a complete configuration is parsed with
// defaults applied.
func TestConfigLoader_Valid(t *testing.T) {
	cfg, err := newTestLoader(t, nil).LoadFromReader(strings.NewReader(validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "./prompts", cfg.PromptsDir)
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, domain.ProviderAnthropic, cfg.Models[1].Provider)
	assert.Equal(t, 512, cfg.Models[0].MaxTokens)
	assert.Equal(t, 3, cfg.EvaluationParams.RepeatCount)
	assert.Equal(t, domain.ModeReference, cfg.EvaluationParams.Mode())
	assert.Equal(t, domain.MethodJaccard, cfg.EvaluationParams.Method())
	assert.True(t, cfg.EvaluationParams.SimilarityEnabled())

	assert.Equal(t, storage.BackendFile, cfg.Storage.Type)
	assert.Equal(t, "./results", cfg.Storage.Dir)
	assert.Equal(t, DefaultViewerAddr, cfg.Viewer.Addr)
}

// TestConfigLoader_EnvOverrides verifies API_KEY and PROXY replace the
// per-model values.
func TestConfigLoader_EnvOverrides(t *testing.T) {
	env := map[string]string{EnvAPIKey: "test-api-key", EnvProxy: "https://proxy-url.com"}
	cfg, err := newTestLoader(t, env).LoadFromReader(strings.NewReader(validConfigYAML))
	require.NoError(t, err)

	for _, m := range cfg.Models {
		assert.Equal(t, "test-api-key", m.APIKey)
		assert.Equal(t, "https://proxy-url.com", m.ProxyURL)
	}
}

// TestConfigLoader_Invalid verifies that malformed and incomplete
// configurations are rejected with a descriptive error.
func TestConfigLoader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty document",
			yaml:    "",
			wantErr: "config is empty",
		},
		{
			name:    "missing prompts dir",
			yaml:    strings.Replace(validConfigYAML, "promptsDir: ./prompts", "", 1),
			wantErr: "PromptsDir",
		},
		{
			name: "no models",
			yaml: `
promptsDir: ./p
models: []
evaluationParams: {repeatCount: 1, concurrency: 1, timeoutSeconds: 1}
`,
			wantErr: "Models",
		},
		{
			name:    "unknown provider",
			yaml:    strings.Replace(validConfigYAML, "provider: openai", "provider: cohere", 1),
			wantErr: "provider",
		},
		{
			name:    "unknown similarity method",
			yaml:    strings.Replace(validConfigYAML, "similarityMethod: jaccard", "similarityMethod: euclid", 1),
			wantErr: "similaritymethod",
		},
		{
			name:    "zero repeat count",
			yaml:    strings.Replace(validConfigYAML, "repeatCount: 3", "repeatCount: 0", 1),
			wantErr: "RepeatCount",
		},
		{
			name:    "duplicate model names",
			yaml:    strings.Replace(validConfigYAML, "name: claude", "name: gpt4", 1),
			wantErr: `duplicate model name "gpt4"`,
		},
		{
			name:    "generic without proxy",
			yaml:    strings.Replace(validConfigYAML, "provider: openai", "provider: generic", 1),
			wantErr: "requires proxyUrl",
		},
		{
			name:    "unknown field",
			yaml:    validConfigYAML + "extra: true\n",
			wantErr: "field extra not found",
		},
		{
			name:    "redis without addr",
			yaml:    validConfigYAML + "storage: {type: redis}\n",
			wantErr: "storage.redis.addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(t, nil).LoadFromReader(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to load config")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestConfigLoader_ValidationErrorType verifies validation failures match
// domain.ErrInvalidConfiguration.
func TestConfigLoader_ValidationErrorType(t *testing.T) {
	_, err := newTestLoader(t, nil).LoadFromReader(strings.NewReader(
		strings.Replace(validConfigYAML, "temperature: 0.2", "temperature: 5", 1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

// TestConfigLoader_GenericWithEnvProxy verifies that PROXY satisfies the
// generic provider's base URL requirement.
func TestConfigLoader_GenericWithEnvProxy(t *testing.T) {
	yaml := strings.Replace(validConfigYAML, "provider: openai", "provider: generic", 1)
	cfg, err := newTestLoader(t, map[string]string{EnvProxy: "http://localhost:4000"}).
		LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", cfg.Models[0].ProxyURL)
}

// TestLoadConfig_File verifies loading from disk and the not-found error.
func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfigYAML), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Models, 2)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigNotFound)
	assert.Contains(t, err.Error(), "failed to load config")
}
