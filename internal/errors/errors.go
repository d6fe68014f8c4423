// Package errors provides standardized domain errors with codes for the yearlist API.
//
// Usage:
//
//	// In the engine - return typed errors
//	if !board.InPool(albumID) {
//	    return errors.NotInPoolf("album %s is not in the pool", albumID)
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrDuplicateItem) {
//	    ...
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeRateLimited:
//	        ...
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
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION"
	CodeConflict           Code = "CONFLICT"
	CodeInternal           Code = "INTERNAL"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"

	// Pool and ranking taxonomy.
	CodeDuplicateItem       Code = "DUPLICATE_ITEM"
	CodeNotInPool           Code = "NOT_IN_POOL"
	CodeNotRanked           Code = "NOT_RANKED"
	CodeDuplicateRank       Code = "DUPLICATE_RANK"
	CodeWriteError          Code = "WRITE_ERROR"
	CodeSessionClosed       Code = "SESSION_CLOSED"
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeNoScope             Code = "NO_SCOPE"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeDuplicateItem, CodeNotInPool, CodeNotRanked, CodeDuplicateRank:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials, CodeTokenExpired, CodeNoScope:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeProviderUnavailable:
		return http.StatusBadGateway
	case CodeWriteError, CodeSessionClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
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
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrTokenExpired       = &Error{Code: CodeTokenExpired, Message: "token expired"}

	ErrDuplicateItem       = &Error{Code: CodeDuplicateItem, Message: "item already in pool"}
	ErrNotInPool           = &Error{Code: CodeNotInPool, Message: "item not in pool"}
	ErrNotRanked           = &Error{Code: CodeNotRanked, Message: "item not ranked"}
	ErrDuplicateRank       = &Error{Code: CodeDuplicateRank, Message: "duplicate album in ranked sequence"}
	ErrWriteError          = &Error{Code: CodeWriteError, Message: "remote write failed"}
	ErrProviderUnavailable = &Error{Code: CodeProviderUnavailable, Message: "catalog provider unavailable"}
	ErrRateLimited         = &Error{Code: CodeRateLimited, Message: "catalog provider rate limited"}
	ErrNoScope             = &Error{Code: CodeNoScope, Message: "no signed-in identity"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
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

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// TokenExpired creates a token expired error.
func TokenExpired(msg string) *Error {
	return &Error{Code: CodeTokenExpired, Message: msg}
}

// DuplicateItemf creates a duplicate pool item error.
func DuplicateItemf(format string, args ...any) *Error {
	return &Error{Code: CodeDuplicateItem, Message: fmt.Sprintf(format, args...)}
}

// NotInPoolf creates a not-in-pool precondition error.
func NotInPoolf(format string, args ...any) *Error {
	return &Error{Code: CodeNotInPool, Message: fmt.Sprintf(format, args...)}
}

// NotRankedf creates a not-ranked precondition error.
func NotRankedf(format string, args ...any) *Error {
	return &Error{Code: CodeNotRanked, Message: fmt.Sprintf(format, args...)}
}

// DuplicateRankf creates a ranked-sequence invariant error.
func DuplicateRankf(format string, args ...any) *Error {
	return &Error{Code: CodeDuplicateRank, Message: fmt.Sprintf(format, args...)}
}

// ProviderUnavailable wraps a catalog provider failure.
func ProviderUnavailable(provider string, cause error) *Error {
	return &Error{Code: CodeProviderUnavailable, Message: provider + " unavailable", cause: cause}
}

// RateLimited creates a catalog rate limit error.
func RateLimited(provider string) *Error {
	return &Error{Code: CodeRateLimited, Message: provider + " rate limit reached"}
}

// WriteFailed wraps a remote persistence failure.
func WriteFailed(cause error) *Error {
	return &Error{Code: CodeWriteError, Message: "remote write failed", cause: cause}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
