// File: internal/services/llm/errors.go
package llm

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeConfig      ErrorType = "CONFIG"
	ErrTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrTypeProtocol    ErrorType = "PROTOCOL"
	ErrTypeTimeout     ErrorType = "TIMEOUT"
)

// UpstreamError classifies failures of the generation backend: the initial
// connection failing, a fragment that cannot be parsed, or no progress
// within the allowed window.
type UpstreamError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("upstream %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

func NewConfigError(msg string) *UpstreamError {
	return &UpstreamError{Type: ErrTypeConfig, Operation: "config", Message: msg}
}

func NewUnavailableError(operation, msg string, cause error) *UpstreamError {
	return &UpstreamError{Type: ErrTypeUnavailable, Operation: operation, Message: msg, Cause: cause}
}

func NewProtocolError(operation, msg string, cause error) *UpstreamError {
	return &UpstreamError{Type: ErrTypeProtocol, Operation: operation, Message: msg, Cause: cause}
}

func NewTimeoutError(operation, msg string) *UpstreamError {
	return &UpstreamError{Type: ErrTypeTimeout, Operation: operation, Message: msg}
}

// ErrType extracts the classification from an error chain, or "" when the
// error is not an UpstreamError.
func ErrType(err error) ErrorType {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Type
	}
	return ""
}
