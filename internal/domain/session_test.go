package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(promptID, response string) EvaluationResult {
	return EvaluationResult{ID: NewResultID(), PromptID: promptID, Response: response}
}

// TestSession_EligibleResultsOrder verifies that the pool follows prompt
// order and excludes failures.
func TestSession_EligibleResultsOrder(t *testing.T) {
	prompts := []Prompt{{ID: "b"}, {ID: "a"}}
	s, err := NewSession(prompts, time.Now())
	require.NoError(t, err)

	a1, a2 := result("a", "one"), result("a", "ERROR: Timeout")
	b1, b2 := result("b", "two"), result("b", "three")
	s.Record(1, []EvaluationResult{a1, a2})
	s.Record(0, []EvaluationResult{b1, b2})

	pool := s.EligibleResults()
	require.Len(t, pool, 3)
	assert.Equal(t, []string{b1.ID, b2.ID, a1.ID}, []string{pool[0].ID, pool[1].ID, pool[2].ID})

	got, err := s.Results("a")
	require.NoError(t, err)
	assert.Len(t, got, 2, "failures stay in the per-prompt results")
}

// TestSession_DuplicatePrompt verifies that duplicate prompt ids are rejected.
func TestSession_DuplicatePrompt(t *testing.T) {
	_, err := NewSession([]Prompt{{ID: "x"}, {ID: "x"}}, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicatePrompt))
}

// TestSession_ByPromptEmptySlots verifies unrecorded prompts map to an empty
// list rather than null.
func TestSession_ByPromptEmptySlots(t *testing.T) {
	s, err := NewSession([]Prompt{{ID: "x"}}, time.Now())
	require.NoError(t, err)

	byPrompt := s.ByPrompt()
	assert.NotNil(t, byPrompt["x"])
	assert.Empty(t, byPrompt["x"])

	_, err = s.Results("missing")
	assert.ErrorIs(t, err, ErrPromptNotFound)
}

// TestEvaluationResult_Constructors verifies result construction for both
// outcomes.
func TestEvaluationResult_Constructors(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 5_000_000, time.FixedZone("X", 3600))
	temp := 0.7

	ok := NewSuccessResult("p", "m", Reply{Content: "hi", TokenUsage: &TokenUsage{Prompt: 3, Response: 1}}, 1500*time.Millisecond, &temp, at)
	assert.False(t, ok.IsFailure())
	assert.Equal(t, int64(1500), ok.LatencyMs)
	assert.Equal(t, "2024-03-01T11:00:00.005Z", ok.Timestamp)
	assert.Len(t, ok.ID, 36)

	bad := NewFailureResult("p", "m", NormalizeFailure(errors.New("API Error")), -time.Second, nil, at)
	assert.True(t, bad.IsFailure())
	assert.Equal(t, "ERROR: API Error", bad.Response)
	assert.Equal(t, int64(0), bad.LatencyMs)
	assert.Nil(t, bad.TokenUsage)
	assert.NotEqual(t, ok.ID, bad.ID)
}

// TestEvaluationParams_Defaults verifies defaulted accessors.
func TestEvaluationParams_Defaults(t *testing.T) {
	var p EvaluationParams
	assert.True(t, p.SimilarityEnabled())
	assert.Equal(t, ModeAllPairs, p.Mode())
	assert.Equal(t, MethodCosine, p.Method())

	off := false
	p.CompareSimilarity = &off
	p.TimeoutSeconds = 1.5
	assert.False(t, p.SimilarityEnabled())
	assert.Equal(t, 1500*time.Millisecond, p.Timeout())
}
