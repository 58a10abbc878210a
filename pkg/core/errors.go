// Package core holds the error taxonomy shared across the conversation core.
package core

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures by how the orchestrator must react.
type ErrorKind string

const (
	// ErrCaptureUnavailable covers missing device capability or denied
	// permission. User-visible, not retryable without user action.
	ErrCaptureUnavailable ErrorKind = "capture_unavailable"

	// ErrGateway covers a failed call to the translation service itself.
	// Aborts the current turn; no message is committed.
	ErrGateway ErrorKind = "gateway_error"

	// ErrInternal covers programming errors such as re-entrant input.
	ErrInternal ErrorKind = "internal_error"
)

// Error is the error type crossing component boundaries. Degradable failures
// (malformed gateway output, synthesis failure) never construct one; they are
// recovered with fallback values at the call site.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewCaptureUnavailableError reports a missing or lost capture capability.
func NewCaptureUnavailableError(message string, err error) *Error {
	return &Error{Kind: ErrCaptureUnavailable, Message: message, Err: err}
}

// NewGatewayError reports a fatal-turn translation service failure.
func NewGatewayError(message string, err error) *Error {
	return &Error{Kind: ErrGateway, Message: message, Err: err}
}

// NewInternalError reports a caller contract violation.
func NewInternalError(message string) *Error {
	return &Error{Kind: ErrInternal, Message: message}
}

// KindOf returns the kind of err if it is (or wraps) an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsCaptureUnavailable reports whether err is a capture-capability failure.
func IsCaptureUnavailable(err error) bool {
	k, ok := KindOf(err)
	return ok && k == ErrCaptureUnavailable
}

// IsGatewayError reports whether err is a fatal translation service failure.
func IsGatewayError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == ErrGateway
}

// IsInternal reports whether err is an internal invariant violation.
func IsInternal(err error) bool {
	k, ok := KindOf(err)
	return ok && k == ErrInternal
}
