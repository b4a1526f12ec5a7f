// pattern: Imperative Shell
package cli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"sweep/internal/config"
	"sweep/internal/discovery"
	"sweep/internal/exitcodes"
	"sweep/internal/instance"
	"sweep/internal/logging"
	"sweep/internal/report"
	"sweep/internal/runner"
	"sweep/internal/watch"
)

const logFileName = "sweep.log"

// ResolveDataDir returns the directory for the log file and run locks.
// If dataDir is specified, uses that; otherwise the user config directory.
func ResolveDataDir(dataDir string) string {
	if dataDir != "" {
		return dataDir
	}
	return config.UserDir()
}

// BuildApp creates and configures the CLI application with all commands.
// ctx cancels running sweeps.
func BuildApp(ctx context.Context, version string, opts Options) *App {
	app := NewApp(version, opts.Stderr)

	app.AddCommand(&Command{
		Name:    "run",
		Summary: "Run the test command in every testable directory",
		Usage:   "Usage: sweep run [--keep-going] [--pty] [root]",
		Run: func(args []string) int {
			return withFlags(opts, "run", args, func(o Options) int {
				return runSweepCommand(ctx, o)
			})
		},
	})

	app.AddCommand(&Command{
		Name:    "list",
		Summary: "List the testable directories without running anything",
		Usage:   "Usage: sweep list [root]",
		Run: func(args []string) int {
			return withFlags(opts, "list", args, runListCommand)
		},
	})

	app.AddCommand(&Command{
		Name:    "watch",
		Summary: "Sweep, then sweep again whenever a file under root changes",
		Usage:   "Usage: sweep watch [--keep-going] [root]",
		Run: func(args []string) int {
			return withFlags(opts, "watch", args, func(o Options) int {
				return runWatchCommand(ctx, o)
			})
		},
	})

	app.AddCommand(&Command{
		Name:    "unlock",
		Summary: "Remove a stale run lock left by a crashed sweep",
		Usage:   "Usage: sweep unlock [root]",
		Run: func(args []string) int {
			return withFlags(opts, "unlock", args, runUnlockCommand)
		},
	})

	app.AddCommand(&Command{
		Name:    "log",
		Summary: "Show the logged output of the last sweep",
		Usage:   "Usage: sweep log [--run ID] [--dir NAME] [--scope NAME] [--level LEVEL] [--follow]",
		Run: func(args []string) int {
			return runLogCommand(ctx, opts, args)
		},
	})

	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: sweep version",
		Run: func(args []string) int {
			fmt.Fprintln(opts.Stdout, version)
			return exitcodes.Success
		},
	})

	app.SetDefault("run")
	return app
}

func withFlags(opts Options, name string, args []string, fn func(Options) int) int {
	o, err := withCommandFlags(opts, name, args)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		return exitcodes.RuntimeErr
	}
	return fn(o)
}

// session is the state shared by commands that sweep a root.
type session struct {
	root    string
	dataDir string
	cfg     config.Config
	logs    *logging.Manager
	logger  *logging.ScopedLogger
	printer *report.Printer
	opts    Options
}

// openSession resolves the root and config, applies flag overrides and
// starts logging. Errors are printed; the int is the exit code to return.
func openSession(opts Options) (*session, int) {
	fail := func(err error) (*session, int) {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		return nil, exitcodes.RuntimeErr
	}

	rootArg := opts.Root
	if rootArg == "" {
		rootArg = "."
	}
	root, err := filepath.Abs(rootArg)
	if err != nil {
		return fail(fmt.Errorf("resolving root %s: %w", rootArg, err))
	}

	cfg, cfgPath, err := config.Resolve(root, opts.ConfigPath)
	if err != nil {
		return fail(err)
	}
	if opts.Changed("keep-going") {
		cfg.KeepGoing = opts.KeepGoing
	}
	if opts.Changed("pty") {
		cfg.PTY = opts.PTY
	}
	if opts.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return fail(fmt.Errorf("invalid config: %w", err))
	}

	dataDir := ResolveDataDir(opts.DataDir)
	logs, err := logging.NewManager(logging.Config{
		FilePath:     filepath.Join(dataDir, logFileName),
		MaxSizeMB:    10,
		MaxBackups:   3,
		MaxAgeDays:   7,
		Level:        "debug",
		Console:      opts.Stderr,
		ConsoleLevel: cfg.LogLevel,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to initialize logging: %w", err))
	}

	logger := logs.For("app")
	logger.Debug("session opened", "root", root, "config", cfgPath, "marker", cfg.Marker, "command", fmt.Sprintf("%v", cfg.Command))

	return &session{
		root:    root,
		dataDir: dataDir,
		cfg:     cfg,
		logs:    logs,
		logger:  logger,
		printer: report.NewPrinter(opts.Stdout, report.Options{Theme: cfg.Theme, NoColor: opts.NoColor}),
		opts:    opts,
	}, exitcodes.Success
}

func (s *session) Close() {
	_ = s.logs.Close()
}

func (s *session) scanner() *discovery.Scanner {
	return discovery.NewScanner(s.cfg.Marker,
		discovery.WithExclude(s.cfg.IsExcluded),
		discovery.WithLogger(s.logs.For("discovery")),
	)
}

// sweep runs one full pass over the root and prints its summary.
func (s *session) sweep(ctx context.Context) *runner.Result {
	r, err := runner.New(runner.Config{
		Root:      s.root,
		Scanner:   s.scanner(),
		Binary:    s.cfg.Binary(),
		Args:      s.cfg.Args(),
		Env:       s.cfg.Environ(),
		PTY:       s.cfg.PTY,
		KeepGoing: s.cfg.KeepGoing,
		Output:    s.opts.Stdout,
		Observer:  s.printer,
		Logs:      s.logs,
	})
	if err != nil {
		return &runner.Result{Root: s.root, Err: exitcodes.NewRuntimeError(err)}
	}

	res, _ := r.Run(ctx)
	s.printer.Summary(res)
	return res
}

// lock takes the run lock for the session's root.
func (s *session) lock() (*instance.RunLock, int) {
	l, err := instance.Lock(s.dataDir, s.root)
	if err != nil {
		if errors.Is(err, instance.ErrLocked) {
			fmt.Fprintf(s.opts.Stderr, "error: %v (use \"sweep unlock\" if no sweep is running)\n", err)
		} else {
			fmt.Fprintf(s.opts.Stderr, "error: %v\n", err)
		}
		return nil, exitcodes.RuntimeErr
	}
	return l, exitcodes.Success
}

func runSweepCommand(ctx context.Context, opts Options) int {
	s, code := openSession(opts)
	if s == nil {
		return code
	}
	defer s.Close()

	l, code := s.lock()
	if l == nil {
		return code
	}
	defer func() {
		if err := l.Release(); err != nil {
			s.logger.Warn("failed to release run lock", "error", err)
		}
	}()

	res := s.sweep(ctx)
	return res.ExitCode()
}

func runListCommand(opts Options) int {
	s, code := openSession(opts)
	if s == nil {
		return code
	}
	defer s.Close()

	projects, err := s.scanner().Scan(s.root)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		return exitcodes.RuntimeErr
	}
	s.printer.List(s.root, projects)
	if len(projects) > 0 {
		if err := s.cfg.CheckCommand(exec.LookPath); err != nil {
			s.printer.Notice(fmt.Sprintf("warning: %v", err))
		}
	}
	return exitcodes.Success
}

// runWatchCommand keeps sweeping until ctx is cancelled. Interrupting watch
// mode is the normal way to leave it and exits 0.
func runWatchCommand(ctx context.Context, opts Options) int {
	s, code := openSession(opts)
	if s == nil {
		return code
	}
	defer s.Close()

	l, code := s.lock()
	if l == nil {
		return code
	}
	defer func() { _ = l.Release() }()

	w, err := watch.New(watch.Config{
		Root:     s.root,
		Debounce: s.cfg.Watch.Debounce,
		Logger:   s.logs.For("watch"),
	})
	if err != nil {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		return exitcodes.RuntimeErr
	}

	err = w.Run(ctx, func(ctx context.Context) {
		s.sweep(ctx)
		if ctx.Err() == nil {
			s.printer.Notice("watching for changes (ctrl-c to stop)")
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		return exitcodes.RuntimeErr
	}
	return exitcodes.Success
}

func runUnlockCommand(opts Options) int {
	rootArg := opts.Root
	if rootArg == "" {
		rootArg = "."
	}
	root, err := filepath.Abs(rootArg)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		return exitcodes.RuntimeErr
	}

	removed, err := instance.Unlock(ResolveDataDir(opts.DataDir), root)
	if err != nil {
		if errors.Is(err, instance.ErrLocked) {
			fmt.Fprintf(opts.Stderr, "error: a sweep of %s appears to be running. Stop it first.\n", root)
		} else {
			fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		}
		return exitcodes.RuntimeErr
	}
	if removed {
		fmt.Fprintf(opts.Stdout, "Removed stale lock for %s.\n", root)
	} else {
		fmt.Fprintf(opts.Stdout, "No lock held for %s.\n", root)
	}
	return exitcodes.Success
}
