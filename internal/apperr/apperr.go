// Package apperr defines the structured error type used across the
// service. Every external-process or filesystem failure is converted to
// an *Error with a Kind that maps to an HTTP status, so handlers can
// translate outcomes without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a request failure.
type Kind string

const (
	// MissingInput means a required request field was absent.
	MissingInput Kind = "missing_input"
	// InvalidParameter means a request parameter failed validation,
	// e.g. an unknown model name.
	InvalidParameter Kind = "invalid_parameter"
	// ProvisioningFailed means the model could not be made available
	// locally, either because provisioning reported failure or because
	// the model file was still absent afterwards.
	ProvisioningFailed Kind = "provisioning_failed"
	// EngineFailed means the transcription engine exited with failure.
	EngineFailed Kind = "engine_failed"
	// OutputMissing means the engine exited successfully but produced
	// no output file.
	OutputMissing Kind = "output_missing"
	// OutputMalformed means the engine output file could not be parsed.
	OutputMalformed Kind = "output_malformed"
	// Timeout means an external invocation exceeded its deadline.
	Timeout Kind = "timeout"
	// Busy means the service refused admission because too many jobs
	// are already running.
	Busy Kind = "busy"
	// Internal covers failures with no more specific kind, such as
	// scratch-directory write errors.
	Internal Kind = "internal"
)

// Error carries a failure kind, a human-readable message and optional
// diagnostic detail (captured process output, parse errors).
type Error struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetails attaches diagnostic detail and returns the receiver.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// WithCause records the underlying error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus returns the response status for the error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case MissingInput, InvalidParameter:
		return http.StatusBadRequest
	case Busy:
		return http.StatusTooManyRequests
	case Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err, wrapping unknown errors as Internal
// so callers always get a mapped kind.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: Internal, Message: "internal error", Details: err.Error(), Cause: err}
}

// KindOf reports the kind of err, or an empty Kind for non-app errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
