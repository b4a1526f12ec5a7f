// pattern: Imperative Shell

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"sweep/internal/discovery"
	"sweep/internal/exitcodes"
	"sweep/internal/logging"
	"sweep/internal/process"
)

// Executor runs one command to completion. *process.Runner implements it.
type Executor interface {
	Run(ctx context.Context, cfg process.Config) (process.Result, error)
}

// Observer is told about each suite as the sweep progresses.
type Observer interface {
	SuiteStarted(project discovery.Project, index, total int)
	SuiteFinished(result SuiteResult)
}

// Config holds everything a sweep needs.
type Config struct {
	Root      string
	Scanner   *discovery.Scanner
	Binary    string
	Args      []string
	Env       []string
	PTY       bool
	KeepGoing bool      // run every suite instead of stopping at the first failure
	Output    io.Writer // live output of the test commands
	Executor  Executor  // defaults to a *process.Runner
	Observer  Observer  // optional
	Logs      logging.LoggerProvider
}

// Runner sweeps a root directory, running the test command in each
// testable child, one at a time.
type Runner struct {
	cfg    Config
	logger *logging.ScopedLogger
}

// New validates cfg and creates a Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Root == "" {
		return nil, errors.New("root directory is required")
	}
	if cfg.Scanner == nil {
		return nil, errors.New("scanner is required")
	}
	if cfg.Binary == "" {
		return nil, errors.New("test command is required")
	}

	logger := logging.NopLogger()
	if cfg.Logs != nil {
		logger = cfg.Logs.For("runner")
	}
	if cfg.Executor == nil {
		procLogger := logging.NopLogger()
		if cfg.Logs != nil {
			procLogger = cfg.Logs.For("process")
		}
		cfg.Executor = process.NewRunner(procLogger)
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}

	return &Runner{cfg: cfg, logger: logger}, nil
}

// Run performs one sweep. The returned Result is never nil; the error is the
// same value as Result.Err.
//
// Directories are listed once. Unless KeepGoing is set, the first failing
// suite stops the sweep and every later suite is reported as skipped without
// being invoked. A suite that cannot be launched, or an interrupted context,
// always stops the sweep.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID: uuid.NewString(),
		Root:  r.cfg.Root,
	}
	logger := r.logger.With("run_id", result.RunID)

	projects, err := r.cfg.Scanner.Scan(r.cfg.Root)
	if err != nil {
		logger.Error("cannot list root", "root", r.cfg.Root, "error", err)
		result.Err = exitcodes.NewRuntimeError(err)
		result.Duration = time.Since(start)
		return result, result.Err
	}
	logger.Info("sweep started", "root", r.cfg.Root, "marker", r.cfg.Scanner.Marker(), "suites", len(projects), "keep_going", r.cfg.KeepGoing)

	var runtimeErr, testErr error
	stopped := false
	for i, project := range projects {
		if stopped {
			result.Suites = append(result.Suites, SuiteResult{Project: project, Status: StatusSkipped})
			continue
		}

		suite := r.runSuite(ctx, logger, result.RunID, project, i, len(projects))
		result.Suites = append(result.Suites, suite)

		switch suite.Status {
		case StatusError:
			runtimeErr = suite.Err
			stopped = true
		case StatusFail:
			if testErr == nil {
				testErr = suite.Err
			}
			stopped = !r.cfg.KeepGoing
		}
	}

	switch {
	case runtimeErr != nil:
		result.Err = runtimeErr
	case testErr != nil:
		result.Err = testErr
	}
	result.Duration = time.Since(start)

	logger.Info("sweep finished",
		"duration", result.Duration,
		"passed", result.Count(StatusPass),
		"failed", result.Count(StatusFail),
		"errored", result.Count(StatusError),
		"skipped", result.Count(StatusSkipped),
	)
	return result, result.Err
}

func (r *Runner) runSuite(ctx context.Context, logger *logging.ScopedLogger, runID string, project discovery.Project, index, total int) SuiteResult {
	if r.cfg.Observer != nil {
		r.cfg.Observer.SuiteStarted(project, index, total)
	}
	logger = logger.With("dir", project.Name)
	logger.Info("running suite", "path", project.Path, "index", index+1, "total", total)

	res, err := r.cfg.Executor.Run(ctx, process.Config{
		Name:   project.Name,
		Binary: r.cfg.Binary,
		Args:   r.cfg.Args,
		Dir:    project.Path,
		Env:    r.cfg.Env,
		PTY:    r.cfg.PTY,
		Output: r.cfg.Output,

		LogAttrs: []any{"run_id", runID, "dir", project.Name},
	})

	suite := SuiteResult{
		Project:  project,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
	}
	switch {
	case err != nil:
		suite.Status = StatusError
		suite.Err = exitcodes.NewRuntimeError(fmt.Errorf("%s: %w", project.Name, err))
		logger.Error("suite could not run", "error", err)
	case res.ExitCode != 0:
		suite.Status = StatusFail
		suite.Err = &exitcodes.TestFailureError{Dir: project.Path, ExitCode: res.ExitCode}
		logger.Warn("suite failed", "exit_code", res.ExitCode, "duration", res.Duration)
	default:
		suite.Status = StatusPass
		logger.Info("suite passed", "duration", res.Duration)
	}

	if r.cfg.Observer != nil {
		r.cfg.Observer.SuiteFinished(suite)
	}
	return suite
}
