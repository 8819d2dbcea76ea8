// Package catalogerrors defines the error vocabulary shared by the service
// layers. Errors carry a machine-readable code so the transport layer can
// translate them into response envelopes without string matching.
package catalogerrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodePayloadTooLarge     Code = "payload_too_large"
	CodeInvalidJSON         Code = "invalid_json"
	CodeMissingField        Code = "missing_field"
	CodeAuthenticationError Code = "authentication_failure"
	CodeRateLimitExceeded   Code = "rate_limit_exceeded"
	CodeUnknownTable        Code = "unknown_table"
	CodeRecordNotFound      Code = "record_not_found"
	CodeValidationError     Code = "validation_failure"
	CodeStoreWriteError     Code = "store_write_failure"
	CodeInternal            Code = "internal"
)

// Error is the single error type crossing layer boundaries.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message while preserving the underlying cause for
// logging and errors.Is chains.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// raised outside this package.
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}
