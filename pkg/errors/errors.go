// Package errors provides structured error handling for timescale.
//
// Every failure raised by the transform pipeline, the aligners and the
// optimizer carries an ErrorType so callers can decide whether it is a caller
// bug that must surface (invalid_time_column, invalid_argument,
// degenerate_channel) or an expected search outcome that is recovered locally
// (no_overlap, optimizer_exhausted).
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeInvalidTimeColumn represents a missing, mistyped or unordered time column
	ErrorTypeInvalidTimeColumn ErrorType = "invalid_time_column"
	// ErrorTypeInvalidArgument represents bad transform, bounds or optimizer parameters
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	// ErrorTypeDegenerateChannel represents normalization of a zero-range channel
	ErrorTypeDegenerateChannel ErrorType = "degenerate_channel"
	// ErrorTypeNoOverlap represents a merge-by-time that matched no rows
	ErrorTypeNoOverlap ErrorType = "no_overlap"
	// ErrorTypeOptimizerExhausted represents a search without any finite score
	ErrorTypeOptimizerExhausted ErrorType = "optimizer_exhausted"
	// ErrorTypeInvalidState represents an operation called out of order
	ErrorTypeInvalidState ErrorType = "invalid_state"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeCanceled represents a run stopped by its context
	ErrorTypeCanceled ErrorType = "canceled"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error, or any error it wraps, is of the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// TypeOf returns the type of the outermost structured error, or
// ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// AsError returns the outermost structured error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRecoverable reports whether the error is an expected search outcome
// rather than a caller bug.
func IsRecoverable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeNoOverlap, ErrorTypeOptimizerExhausted, ErrorTypeCanceled:
		return true
	default:
		return false
	}
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
