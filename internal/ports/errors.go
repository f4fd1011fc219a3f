package ports

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the adapters. Callers match them with errors.Is.
var (
	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrResultNotFound indicates that no stored summary has the requested
	// name.
	ErrResultNotFound = errors.New("result not found")

	// ErrInvalidResultName indicates a name that is not a plain file name.
	ErrInvalidResultName = errors.New("invalid result name")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// StoreError represents an error from result store operations.
// It includes the backend, the object name and the operation that failed.
type StoreError struct {
	// Backend names the store implementation, e.g. "file" or "s3".
	Backend string

	// Name is the stored object involved, if any.
	Name string

	// Operation is the store operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("store error: backend=%s, operation=%s, err=%v", e.Backend, e.Operation, e.Err)
	}
	return fmt.Sprintf("store error: backend=%s, operation=%s, name=%s, err=%v", e.Backend, e.Operation, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError with the given details.
func NewStoreError(backend, operation, name string, err error) *StoreError {
	return &StoreError{
		Backend:   backend,
		Name:      name,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
