package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error kinds of the extraction pipeline. The first three are per-document and never
// abort a batch; persistence failure is surfaced to the caller.
var (
	ErrAcquisitionEmpty   = errors.New("no text acquired")
	ErrTransportFailure   = errors.New("llm transport failure")
	ErrMalformedResponse  = errors.New("malformed llm response")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrInvalidInput       = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// TransportError tags a failed LLM call. Status is 0 when no response was received.
type TransportError struct {
	Status int
	Body   string
	Cause  error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Cause != nil:
		return fmt.Sprintf("llm status %d: %v: %s", e.Status, e.Cause, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("llm status %d: %s", e.Status, e.Body)
	case e.Cause != nil:
		return fmt.Sprintf("llm transport: %v", e.Cause)
	}
	return "llm transport failure"
}

func (e *TransportError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrTransportFailure, e.Cause}
	}
	return []error{ErrTransportFailure}
}

// PersistenceError reports a failed table write. FallbackPath is set when the new rows
// alone could still be written somewhere.
type PersistenceError struct {
	Path         string
	FallbackPath string
	Cause        error
}

func (e *PersistenceError) Error() string {
	if e.FallbackPath != "" {
		return fmt.Sprintf("write %s: %v (new rows saved to %s)", e.Path, e.Cause, e.FallbackPath)
	}
	return fmt.Sprintf("write %s: %v", e.Path, e.Cause)
}

func (e *PersistenceError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrPersistenceFailure, e.Cause}
	}
	return []error{ErrPersistenceFailure}
}
