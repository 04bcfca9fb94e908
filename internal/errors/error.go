// Package errors provides coded errors for the advisor.
//
// Codes are grouped by concern:
//   - 1-99: general
//   - 100-199: configuration and input validation
//   - 200-299: position ledger invariants
//   - 300-399: market data and indicators
//   - 400-499: storage and notification
package errors

import (
	"errors"
	"fmt"
)

// Error is an error carrying a code and an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause with the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf wraps cause with the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join combines errors, dropping nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// GetCode extracts the ErrorCode of the first *Error in err's chain.
// Returns ErrCodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUnknown
}

// HasCode reports whether err carries code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsFatal reports whether err describes a ledger invariant violation or a
// rejected input, which must abort the affected instrument's run.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeDuplicatePosition, ErrCodeNoPosition, ErrCodeInvalidPosition, ErrCodeMalformedBar:
		return true
	default:
		return false
	}
}
