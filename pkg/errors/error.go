// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown, internal and not-implemented errors
//   - Validation errors (100-199): Invalid parameters, configs, orders and assets
//   - Load errors (200-299): Malformed source rows, unparseable timestamps, query failures
//   - Resolution errors (300-399): Instrument identifiers that resolve to no known asset
//   - Subscriber errors (400-499): Callback execution failures during fan-out
//   - Router errors (500-599): Unknown or malformed protocol messages
//   - Broker errors (600-699): Transport and order reply errors
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeAssetResolution, "unknown instrument %s", ticker)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeLoadFailed, "failed to load candles", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeMalformedRow) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error wrapping the given errors, discarding nil values.
// This is a convenience wrapper around the standard errors.Join function.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// RowError represents a failure to parse one row of a tabular source.
// It carries enough context to report which source and which row broke the load.
type RowError struct {
	Source  string // Logical source name, e.g. "candles"
	Row     int    // 1-based row number within the source
	Message string // Human-readable message
	Cause   error  // Optional underlying parse error
}

// NewRowError creates a new RowError.
func NewRowError(source string, row int, message string, cause error) *RowError {
	return &RowError{
		Source:  source,
		Row:     row,
		Message: message,
		Cause:   cause,
	}
}

// NewRowErrorf creates a new RowError with a formatted message.
func NewRowErrorf(source string, row int, cause error, format string, args ...any) *RowError {
	return &RowError{
		Source:  source,
		Row:     row,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *RowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s row %d: %s: %v", e.Source, e.Row, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s row %d: %s", e.Source, e.Row, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *RowError) Unwrap() error {
	return e.Cause
}

// IsRowError checks if an error is a RowError.
// It uses errors.As to check the error chain.
func IsRowError(err error) bool {
	var rowErr *RowError

	return errors.As(err, &rowErr)
}
