// Package errors provides coded domain errors for the librarian core.
//
// Usage:
//
//	// In the store - return typed errors
//	if !exists {
//	    return errors.NotFoundf("detail file %s", path)
//	}
//
//	// At a component boundary - check with errors.Is
//	if errors.Is(err, errors.ErrLockTimeout) {
//	    logger.Warn("bus busy, retry later")
//	    return false
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound    Code = "NOT_FOUND"
	CodeValidation  Code = "VALIDATION"
	CodeLockTimeout Code = "LOCK_TIMEOUT"
	CodeStorage     Code = "STORAGE"
	CodeDecode      Code = "DECODE"
	CodeNetwork     Code = "NETWORK"
	CodeCanceled    Code = "CANCELED"
	CodeInternal    Code = "INTERNAL"
)

// Category maps a code onto the coarse error category used by the
// recent-error log.
func (c Code) Category() string {
	switch c {
	case CodeNetwork:
		return "network"
	case CodeStorage, CodeNotFound:
		return "storage"
	case CodeDecode, CodeValidation:
		return "parsing"
	case CodeLockTimeout:
		return "hardware"
	default:
		return "system"
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

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound    = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation  = &Error{Code: CodeValidation, Message: "validation error"}
	ErrLockTimeout = &Error{Code: CodeLockTimeout, Message: "lock acquisition timed out"}
	ErrStorage     = &Error{Code: CodeStorage, Message: "storage error"}
	ErrDecode      = &Error{Code: CodeDecode, Message: "decode error"}
	ErrNetwork     = &Error{Code: CodeNetwork, Message: "network error"}
	ErrCanceled    = &Error{Code: CodeCanceled, Message: "canceled"}
	ErrInternal    = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
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

// LockTimeout creates a lock timeout error naming the lock.
func LockTimeout(name string) *Error {
	return &Error{Code: CodeLockTimeout, Message: name + " lock acquisition timed out"}
}

// Storage wraps a device failure.
func Storage(err error, msg string) *Error {
	return &Error{Code: CodeStorage, Message: msg, cause: err}
}

// Storagef wraps a device failure with formatted message.
func Storagef(err error, format string, args ...any) *Error {
	return &Error{Code: CodeStorage, Message: fmt.Sprintf(format, args...), cause: err}
}

// Decodef creates a decode error with formatted message.
func Decodef(err error, format string, args ...any) *Error {
	return &Error{Code: CodeDecode, Message: fmt.Sprintf(format, args...), cause: err}
}

// Network wraps a collaborator transport failure.
func Network(err error, msg string) *Error {
	return &Error{Code: CodeNetwork, Message: msg, cause: err}
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

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
