// pattern: Imperative Shell

package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"

	"sweep/internal/logging"
)

// waitDelay bounds how long Wait keeps copying output after the child exits,
// in case a grandchild still holds the pipes open.
const waitDelay = 5 * time.Second

// Config describes one blocking invocation of an external command.
type Config struct {
	Name   string    // Label for logs
	Binary string    // Executable, resolved through PATH
	Args   []string  // Arguments after Binary
	Dir    string    // Working directory of the child; the caller's is untouched
	Env    []string  // KEY=VALUE pairs appended to the current environment
	PTY    bool      // Attach the child to a pseudo-terminal
	Output io.Writer // Receives the child's combined output live; nil discards

	LogAttrs []any // Key-value pairs added to every log entry about this command
}

// Result is the outcome of a command that was started.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// LaunchError means the command never started (missing binary, bad
// working directory, permission denied).
type LaunchError struct {
	Binary string
	Dir    string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s in %s: %v", e.Binary, e.Dir, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Runner executes commands one at a time and mirrors their output into a logger.
type Runner struct {
	logger *logging.ScopedLogger
}

// NewRunner creates a Runner that logs through logger.
func NewRunner(logger *logging.ScopedLogger) *Runner {
	return &Runner{logger: logger}
}

// Run starts the command and blocks until it exits.
//
// A non-zero exit is reported through Result.ExitCode with a nil error.
// The error is a *LaunchError if the command could not be started, or
// wraps ctx.Err() if the context ended the command.
func (r *Runner) Run(ctx context.Context, cfg Config) (Result, error) {
	cmd := exec.CommandContext(ctx, cfg.Binary, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = os.Environ()
	if cfg.Dir != "" {
		cmd.Env = append(cmd.Env, "PWD="+cfg.Dir)
	}
	cmd.Env = append(cmd.Env, cfg.Env...)
	cmd.WaitDelay = waitDelay

	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	logger := r.logger.With(append([]any{"process", cfg.Name}, cfg.LogAttrs...)...)
	logger.Info("starting process", "binary", cfg.Binary, "args", fmt.Sprintf("%v", cfg.Args), "dir", cfg.Dir, "pty", cfg.PTY)

	start := time.Now()
	var err error
	if cfg.PTY {
		err = r.runPTY(cmd, out, logger)
	} else {
		err = r.runPiped(cmd, out, logger)
	}
	result := Result{ExitCode: -1, Duration: time.Since(start)}

	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Info("process interrupted", "error", ctxErr)
		return result, fmt.Errorf("%s interrupted: %w", cfg.Name, ctxErr)
	}

	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		logger.Debug("failed to start process", "error", launchErr.Err)
		return result, err
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			logger.Error("process wait failed", "error", err)
			return result, err
		}
		result.ExitCode = exitErr.ExitCode()
		logger.Info("process exited", "exit_code", result.ExitCode, "duration", result.Duration)
		return result, nil
	}

	result.ExitCode = 0
	logger.Info("process exited cleanly", "duration", result.Duration)
	return result, nil
}

// runPiped gives the child separate stdout and stderr pipes.
func (r *Runner) runPiped(cmd *exec.Cmd, out io.Writer, logger *logging.ScopedLogger) error {
	shared := &lockedWriter{w: out}
	stdout := newLineLogger(shared, logger, "stdout")
	stderr := newLineLogger(shared, logger, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return &LaunchError{Binary: cmd.Path, Dir: cmd.Dir, Err: err}
	}
	err := cmd.Wait()
	stdout.Flush()
	stderr.Flush()
	return err
}

// runPTY attaches the child to a pseudo-terminal so tools that only colour
// or show progress on a TTY behave as they would in a shell.
func (r *Runner) runPTY(cmd *exec.Cmd, out io.Writer, logger *logging.ScopedLogger) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return &LaunchError{Binary: cmd.Path, Dir: cmd.Dir, Err: err}
	}
	defer func() { _ = ptmx.Close() }()

	lines := newLineLogger(out, logger, "pty")
	copied := make(chan struct{})
	go func() {
		defer close(copied)
		// Reading the master returns EIO once the child side closes.
		_, _ = io.Copy(lines, ptmx)
	}()

	err = cmd.Wait()
	select {
	case <-copied:
	case <-time.After(waitDelay):
		_ = ptmx.Close()
		<-copied
	}
	lines.Flush()
	return err
}

// lockedWriter serialises writes from the stdout and stderr copiers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
