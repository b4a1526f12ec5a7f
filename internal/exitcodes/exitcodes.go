// pattern: Functional Core

// Package exitcodes defines the process exit codes used by sweep and the
// typed errors that select them.
//
//   - Success (0): every invoked test command exited 0, or none was invoked
//   - TestFailure (1): a test command exited non-zero
//   - RuntimeErr (2): sweep itself could not do its job (unreadable root,
//     bad config, a test command that could not be launched)
package exitcodes

import (
	"errors"
	"fmt"
)

const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)

// RuntimeError marks an operational failure.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError wraps err as a RuntimeError.
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError reports whether err is or wraps a RuntimeError.
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError reports a test command that ran and failed.
type TestFailureError struct {
	Dir      string
	ExitCode int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("tests failed in %s (exit status %d)", e.Dir, e.ExitCode)
}

// IsTestFailureError reports whether err is or wraps a TestFailureError.
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// FromError picks the exit code for err. Runtime errors win over test
// failures when both are wrapped. Only a TestFailureError maps to
// TestFailure; any other error is a runtime error.
func FromError(err error) int {
	switch {
	case err == nil:
		return Success
	case IsRuntimeError(err):
		return RuntimeErr
	case IsTestFailureError(err):
		return TestFailure
	default:
		return RuntimeErr
	}
}
