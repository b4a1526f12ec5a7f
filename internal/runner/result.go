// pattern: Functional Core

package runner

import (
	"time"

	"sweep/internal/discovery"
	"sweep/internal/exitcodes"
)

// Status is the outcome of one directory's test command.
type Status string

const (
	StatusPass    Status = "pass"    // exited 0
	StatusFail    Status = "fail"    // exited non-zero
	StatusError   Status = "error"   // could not be launched, or was interrupted
	StatusSkipped Status = "skipped" // never invoked because the run stopped first
)

// SuiteResult records what happened in one testable directory.
type SuiteResult struct {
	Project  discovery.Project
	Status   Status
	ExitCode int
	Duration time.Duration
	Err      error
}

// Result is the outcome of a whole sweep.
type Result struct {
	RunID    string
	Root     string
	Suites   []SuiteResult
	Duration time.Duration
	Err      error // nil, or a RuntimeError / TestFailureError
}

// ExitCode maps the run outcome to the process exit code.
func (r *Result) ExitCode() int {
	return exitcodes.FromError(r.Err)
}

// Count returns how many suites ended with status s.
func (r *Result) Count(s Status) int {
	n := 0
	for _, suite := range r.Suites {
		if suite.Status == s {
			n++
		}
	}
	return n
}

// Invoked returns the suites whose command was actually started or attempted.
func (r *Result) Invoked() []SuiteResult {
	var out []SuiteResult
	for _, suite := range r.Suites {
		if suite.Status != StatusSkipped {
			out = append(out, suite)
		}
	}
	return out
}

// FirstProblem returns the first suite that failed or errored.
func (r *Result) FirstProblem() (SuiteResult, bool) {
	for _, suite := range r.Suites {
		if suite.Status == StatusFail || suite.Status == StatusError {
			return suite, true
		}
	}
	return SuiteResult{}, false
}
