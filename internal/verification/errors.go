package verification

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable code surfaced to callers. Every
// failure leaving this package carries exactly one of these.
type ErrorCode string

const (
	CodeValidation          ErrorCode = "validation_error"
	CodeStateConflict       ErrorCode = "state_conflict"
	CodeNotFound            ErrorCode = "not_found"
	CodeWriteConflict       ErrorCode = "write_conflict"
	CodeNoUsableData        ErrorCode = "no_usable_data"
	CodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	CodeUpstreamFailed      ErrorCode = "upstream_failed"
	CodeInternal            ErrorCode = "internal_error"
)

// Error is the pipeline error taxonomy. No state is mutated on any failure
// path except CodeInternal, which indicates a write that happened after a
// successful extraction and needs operator reconciliation.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the code to the caller-visible status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeStateConflict:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeWriteConflict:
		return http.StatusConflict
	case CodeNoUsableData:
		return http.StatusUnprocessableEntity
	case CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errValidation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func errStateConflict(reason string) *Error {
	return &Error{Code: CodeStateConflict, Message: reason}
}

func errNotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: what + " not found"}
}

func errWriteConflict() *Error {
	return &Error{Code: CodeWriteConflict, Message: "record was modified concurrently, retry the submission"}
}

func errNoUsableData(msg string) *Error {
	return &Error{Code: CodeNoUsableData, Message: msg}
}

func errUpstreamUnavailable(cause error) *Error {
	return &Error{Code: CodeUpstreamUnavailable, Message: "document extraction service is unavailable, try again later", cause: cause}
}

func errUpstreamFailed(cause error) *Error {
	return &Error{Code: CodeUpstreamFailed, Message: "document extraction failed upstream", cause: cause}
}

func errInternal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: cause}
}

// AsError extracts the taxonomy error, wrapping unknown errors as internal so
// handlers always have a code and status to report.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Message: "internal error", cause: err}
}
