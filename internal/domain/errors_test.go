package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionError(t *testing.T) {
	tests := []struct {
		name      string
		promptID  string
		operation string
		err       error
		wantMsg   string
	}{
		{
			name:      "missing prompt",
			promptID:  "greeting",
			operation: "results",
			err:       ErrPromptNotFound,
			wantMsg:   "session error: operation=results, prompt=greeting, err=prompt not found",
		},
		{
			name:      "duplicate prompt",
			promptID:  "summary",
			operation: "new",
			err:       ErrDuplicatePrompt,
			wantMsg:   "session error: operation=new, prompt=summary, err=duplicate prompt id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSessionError(tt.promptID, tt.operation, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error(), "Error message mismatch")
			assert.Equal(t, tt.promptID, err.PromptID, "PromptID mismatch")
			assert.True(t, errors.Is(err, tt.err), "Should unwrap to underlying error")
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("Config")
		err.AddError("promptsDir is required in config")

		assert.Equal(t, "validation error for Config: promptsDir is required in config", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.True(t, errors.Is(err, ErrInvalidConfiguration), "Should match ErrInvalidConfiguration")
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("Config")
		err.AddError("a")
		err.AddError("b")

		assert.Equal(t, "validation errors for Config: [a b]", err.Error())
		assert.Len(t, err.Errors, 2)
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("Config")
		assert.False(t, err.HasErrors(), "Should not have errors")
	})
}
