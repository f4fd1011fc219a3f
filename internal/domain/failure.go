package domain

import (
	"context"
	"errors"
)

// FailureKind classifies why an invocation produced no response.
type FailureKind string

const (
	// FailureTimeout means the per-call deadline elapsed first.
	FailureTimeout FailureKind = "timeout"
	// FailureInvocation means the client returned an error with a message.
	FailureInvocation FailureKind = "invocation_failure"
	// FailureUnknown covers panics with non-error values and empty messages.
	FailureUnknown FailureKind = "unknown"
)

// Fixed failure messages.
const (
	TimeoutMessage = "Timeout"
	UnknownMessage = "Unknown error"
)

// Failure is the normalized form of anything that can go wrong during an
// invocation.
type Failure struct {
	Kind    FailureKind
	Message string
}

// Error implements the error interface.
func (f Failure) Error() string { return f.Message }

// TimeoutFailure returns the failure recorded when a deadline elapses.
func TimeoutFailure() Failure {
	return Failure{Kind: FailureTimeout, Message: TimeoutMessage}
}

// NormalizeFailure converts an error or a recovered panic value into a
// Failure. Deadline errors map to FailureTimeout. Errors keep their own
// message. Anything else becomes FailureUnknown.
func NormalizeFailure(v any) Failure {
	switch val := v.(type) {
	case nil:
		return Failure{Kind: FailureUnknown, Message: UnknownMessage}
	case Failure:
		if val.Message == "" {
			return Failure{Kind: FailureUnknown, Message: UnknownMessage}
		}
		return val
	case error:
		if errors.Is(val, context.DeadlineExceeded) {
			return TimeoutFailure()
		}
		msg := val.Error()
		if msg == "" {
			return Failure{Kind: FailureUnknown, Message: UnknownMessage}
		}
		return Failure{Kind: FailureInvocation, Message: msg}
	default:
		return Failure{Kind: FailureUnknown, Message: UnknownMessage}
	}
}
