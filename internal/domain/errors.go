package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during evaluation runs.
var (
	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyValue indicates that a required value is empty or nil.
	ErrEmptyValue = errors.New("empty value")

	// ErrPromptNotFound indicates that a prompt id has no slot in the session.
	ErrPromptNotFound = errors.New("prompt not found")

	// ErrDuplicatePrompt indicates that two prompts share the same id.
	ErrDuplicatePrompt = errors.New("duplicate prompt id")
)

// SessionError represents an error that occurred while recording results
// into a Session.
type SessionError struct {
	// PromptID is the prompt whose slot was involved in the failed operation.
	PromptID string

	// Operation describes what was being performed when the error occurred.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for SessionError.
func (e *SessionError) Error() string {
	return fmt.Sprintf("session error: operation=%s, prompt=%s, err=%v", e.Operation, e.PromptID, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *SessionError) Unwrap() error { return e.Err }

// NewSessionError creates a new SessionError with the given details.
func NewSessionError(promptID, operation string, err error) *SessionError {
	return &SessionError{
		PromptID:  promptID,
		Operation: operation,
		Err:       err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets callers match ValidationError against ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
