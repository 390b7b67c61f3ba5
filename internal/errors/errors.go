// Package errors provides coded domain errors for the index engine and its API.
//
// Usage:
//
//	// In the writer - return typed errors
//	if like.Liker == like.Creator {
//	    return errors.InvalidLike("self-like is not allowed")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrWriteConflict) {
//	    // retry
//	}
//
//	// Or switch on the code
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeStoreUnavailable:
//	        // report "processing"
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeValidation       Code = "VALIDATION"
	CodeInvalidReference Code = "INVALID_REFERENCE"
	CodeInvalidLike      Code = "INVALID_LIKE"
	CodeWriteConflict    Code = "WRITE_CONFLICT"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeTooManyRequests  Code = "TOO_MANY_REQUESTS"
	CodeInternal         Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeValidation, CodeInvalidReference, CodeInvalidLike:
		return http.StatusBadRequest
	case CodeWriteConflict:
		return http.StatusConflict
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether an operation that failed with this code may
// succeed if attempted again unchanged.
func (c Code) Retryable() bool {
	return c == CodeWriteConflict || c == CodeStoreUnavailable
}

// Terminal reports whether the failure is a permanent rejection of the input.
// Terminal failures are never materialized and never retried.
func (c Code) Terminal() bool {
	switch c {
	case CodeValidation, CodeInvalidReference, CodeInvalidLike:
		return true
	default:
		return false
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUnauthorized     = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrValidation       = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInvalidReference = &Error{Code: CodeInvalidReference, Message: "invalid content reference"}
	ErrInvalidLike      = &Error{Code: CodeInvalidLike, Message: "invalid like"}
	ErrWriteConflict    = &Error{Code: CodeWriteConflict, Message: "write conflict"}
	ErrStoreUnavailable = &Error{Code: CodeStoreUnavailable, Message: "index store unavailable"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "internal error"}
)

// CodeOf returns the code carried by err, or CodeInternal if err is not a
// domain error. A nil error has no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// InvalidReference creates an invalid content reference error.
func InvalidReference(msg string) *Error {
	return &Error{Code: CodeInvalidReference, Message: msg}
}

// InvalidReferencef creates an invalid content reference error with formatted message.
func InvalidReferencef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidReference, Message: fmt.Sprintf(format, args...)}
}

// InvalidLike creates an invalid like error.
func InvalidLike(msg string) *Error {
	return &Error{Code: CodeInvalidLike, Message: msg}
}

// InvalidLikef creates an invalid like error with formatted message.
func InvalidLikef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidLike, Message: fmt.Sprintf(format, args...)}
}

// WriteConflict creates a write conflict error wrapping the storage cause.
func WriteConflict(cause error) *Error {
	return &Error{Code: CodeWriteConflict, Message: "concurrent write conflict", cause: cause}
}

// StoreUnavailable creates a store unavailable error wrapping the storage cause.
func StoreUnavailable(cause error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: "index store unavailable", cause: cause}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
