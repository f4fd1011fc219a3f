package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FailurePrefix marks a result whose invocation did not produce a response.
const FailurePrefix = "ERROR: "

// TimestampLayout is the ISO-8601 UTC layout used for result timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// TokenUsage reports token accounting for one invocation when the backend
// exposes it.
type TokenUsage struct {
	Prompt   int `json:"prompt"`
	Response int `json:"response"`
}

// Message is the request payload handed to a model client.
type Message struct {
	Content string
}

// Reply is what a model client returns on success.
type Reply struct {
	Content    string
	TokenUsage *TokenUsage
}

// EvaluationResult is the outcome of one model invocation.
// A failed invocation is still a result; its Response starts with
// FailurePrefix.
type EvaluationResult struct {
	ID          string      `json:"id"`
	PromptID    string      `json:"promptId"`
	ModelName   string      `json:"modelName"`
	Response    string      `json:"response"`
	LatencyMs   int64       `json:"latencyMs"`
	Temperature *float64    `json:"temperature,omitempty"`
	TokenUsage  *TokenUsage `json:"tokenUsage,omitempty"`
	Timestamp   string      `json:"timestamp"`
}

// NewResultID returns a fixed-length identifier unique within a run.
func NewResultID() string { return uuid.NewString() }

// FormatTimestamp renders t in TimestampLayout after converting it to UTC.
func FormatTimestamp(t time.Time) string { return t.UTC().Format(TimestampLayout) }

// IsFailure reports whether the result records a failed invocation.
func (r EvaluationResult) IsFailure() bool {
	return strings.HasPrefix(r.Response, FailurePrefix)
}

// NewSuccessResult builds a result for a completed invocation.
func NewSuccessResult(promptID, modelName string, reply Reply, latency time.Duration, temperature *float64, at time.Time) EvaluationResult {
	return EvaluationResult{
		ID:          NewResultID(),
		PromptID:    promptID,
		ModelName:   modelName,
		Response:    reply.Content,
		LatencyMs:   clampLatency(latency),
		Temperature: temperature,
		TokenUsage:  reply.TokenUsage,
		Timestamp:   FormatTimestamp(at),
	}
}

// NewFailureResult builds a result for an invocation that failed or timed out.
func NewFailureResult(promptID, modelName string, f Failure, latency time.Duration, temperature *float64, at time.Time) EvaluationResult {
	return EvaluationResult{
		ID:          NewResultID(),
		PromptID:    promptID,
		ModelName:   modelName,
		Response:    FailurePrefix + f.Message,
		LatencyMs:   clampLatency(latency),
		Temperature: temperature,
		Timestamp:   FormatTimestamp(at),
	}
}

func clampLatency(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
