package domain

import "time"

// Prompt is a single evaluation input discovered by the prompt loader.
// Prompts are immutable once loaded.
type Prompt struct {
	// ID identifies the prompt and is unique within a run.
	ID string `json:"id"`

	// Content is the text sent to every configured model.
	Content string `json:"content"`

	// SourcePath is where the prompt was read from.
	SourcePath string `json:"sourceLocation,omitempty"`
}

// Provider tags which adapter family serves a model.
type Provider string

// Known provider tags.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	// ProviderGeneric is any OpenAI-compatible endpoint reached through proxyUrl.
	ProviderGeneric Provider = "generic"
)

// Providers lists every provider tag accepted in configuration.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderGeneric}
}

// Valid reports whether p is a known provider tag.
func (p Provider) Valid() bool {
	for _, known := range Providers() {
		if p == known {
			return true
		}
	}
	return false
}

// ModelConfig describes one model backend taking part in a run.
type ModelConfig struct {
	// Name is the display name used in results; unique within a run.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Provider selects the adapter.
	Provider Provider `yaml:"provider" json:"provider" validate:"required,provider"`

	// ModelName is the backend-specific model identifier.
	ModelName string `yaml:"modelName" json:"modelName" validate:"required"`

	// Temperature is passed through to the backend.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0,max=2"`

	// MaxTokens caps the response length when positive.
	MaxTokens int `yaml:"maxTokens,omitempty" json:"maxTokens,omitempty" validate:"omitempty,min=1"`

	// APIKey authenticates against the backend.
	APIKey string `yaml:"apiKey,omitempty" json:"-"`

	// ProxyURL overrides the backend endpoint.
	ProxyURL string `yaml:"proxyUrl,omitempty" json:"proxyUrl,omitempty" validate:"omitempty,url"`

	// RequestsPerSecond throttles calls to this model when positive.
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty" json:"requestsPerSecond,omitempty" validate:"omitempty,gt=0"`
}

// SimilarityMethod names one of the similarity metrics.
type SimilarityMethod string

// Supported similarity methods.
const (
	MethodJaccard     SimilarityMethod = "jaccard"
	MethodCosine      SimilarityMethod = "cosine"
	MethodLevenshtein SimilarityMethod = "levenshtein"
)

// SimilarityMode selects how the similarity matrix is built.
type SimilarityMode string

const (
	// ModeAllPairs compares every eligible result against every other.
	ModeAllPairs SimilarityMode = "allPairs"
	// ModeReference compares each prompt's results against its first
	// eligible result using a single method.
	ModeReference SimilarityMode = "reference"
)

// EvaluationParams control repetition, concurrency and timeouts for a run.
type EvaluationParams struct {
	// RepeatCount is how many times each prompt/model pairing is invoked.
	RepeatCount int `yaml:"repeatCount" json:"repeatCount" validate:"required,min=1"`

	// Concurrency is the maximum number of prompts evaluated at once.
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"required,min=1"`

	// TimeoutSeconds bounds every single invocation.
	TimeoutSeconds float64 `yaml:"timeoutSeconds" json:"timeoutSeconds" validate:"required,gt=0"`

	// CompareSimilarity enables the similarity stage. Nil means enabled.
	CompareSimilarity *bool `yaml:"compareSimilarity,omitempty" json:"compareSimilarity,omitempty"`

	// SimilarityMethod is the metric used in reference mode.
	SimilarityMethod SimilarityMethod `yaml:"similarityMethod,omitempty" json:"similarityMethod,omitempty" validate:"omitempty,similaritymethod"`

	// SimilarityMode selects all-pairs or reference comparison.
	SimilarityMode SimilarityMode `yaml:"similarityMode,omitempty" json:"similarityMode,omitempty" validate:"omitempty,oneof=allPairs reference"`
}

// SimilarityEnabled reports whether the similarity stage should run.
func (p EvaluationParams) SimilarityEnabled() bool {
	return p.CompareSimilarity == nil || *p.CompareSimilarity
}

// Timeout returns the per-invocation deadline as a duration.
func (p EvaluationParams) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds * float64(time.Second))
}

// Mode returns the configured similarity mode, defaulting to all-pairs.
func (p EvaluationParams) Mode() SimilarityMode {
	if p.SimilarityMode == "" {
		return ModeAllPairs
	}
	return p.SimilarityMode
}

// Method returns the configured method, defaulting to cosine.
func (p EvaluationParams) Method() SimilarityMethod {
	if p.SimilarityMethod == "" {
		return MethodCosine
	}
	return p.SimilarityMethod
}
