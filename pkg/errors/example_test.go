// Package errors provides examples of structured error handling in timescale.
package errors_test

import (
	"fmt"
	"io"

	"github.com/timescale-go/timescale/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	// Create a new error with type
	err := errors.New(errors.ErrorTypeDegenerateChannel, "channel has zero range")

	// Add context details
	err = err.WithDetail("channel", "temperature").
		WithDetail("value", 21.5)

	// Print the error
	fmt.Println(err.Error())

	// Output:
	// degenerate_channel: channel has zero range
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	// Simulate an underlying error
	originalErr := io.ErrUnexpectedEOF

	// Wrap the error with context
	err := errors.Wrap(originalErr, errors.ErrorTypeFile, "failed to read series file").
		WithDetail("file", "ts1.parquet")

	// Check the error type
	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}

	fmt.Println(err.Error())

	// Output:
	// This is a file error
	// file: failed to read series file: unexpected EOF
}

// ExampleIsRecoverable shows which failures the search treats as expected.
func ExampleIsRecoverable() {
	noOverlap := errors.New(errors.ErrorTypeNoOverlap, "no rows share a time value")
	badArg := errors.New(errors.ErrorTypeInvalidArgument, "count must be positive")

	fmt.Println(errors.IsRecoverable(noOverlap))
	fmt.Println(errors.IsRecoverable(badArg))

	// Output:
	// true
	// false
}
