// pattern: Imperative Shell
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"sweep/internal/exitcodes"
	"sweep/internal/logging"
)

// TailConfig configures which log entries are printed and how.
type TailConfig struct {
	Path     string        // JSON log file
	RunID    string        // Only this sweep; "" means the most recent one
	Dir      string        // Only this directory's entries; "" means all
	Scope    string        // Only loggers under this scope, e.g. "process"
	MinLevel string        // Lowest level printed
	Follow   bool          // Keep printing new entries until the context ends
	Interval time.Duration // Poll interval while following
	Writer   io.Writer
}

// TailLog prints the entries of one sweep from the log file. With Follow it
// then polls the file for new entries until ctx is cancelled, printing
// every sweep unless RunID pins one.
func TailLog(ctx context.Context, cfg TailConfig) error {
	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && cfg.Follow {
			data = nil
		} else {
			return fmt.Errorf("reading log: %w", err)
		}
	}

	entries, err := logging.ReadEntries(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("reading log: %w", err)
	}

	runID := cfg.RunID
	if runID == "" {
		runID = latestRunID(entries)
	}
	if runID == "" && !cfg.Follow {
		return errors.New("no sweeps recorded yet")
	}
	for _, e := range entries {
		if matchesTail(e, runID, cfg) {
			fmt.Fprintln(cfg.Writer, formatTailEntry(e))
		}
	}
	if !cfg.Follow {
		return nil
	}

	offset := completeLinesLen(data)
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			data, err := os.ReadFile(cfg.Path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					offset = 0
					continue
				}
				return fmt.Errorf("reading log: %w", err)
			}
			// Rotated: start over on the new file.
			if len(data) < offset {
				offset = 0
			}
			chunk := data[offset:]
			n := completeLinesLen(chunk)
			if n == 0 {
				continue
			}
			offset += n

			fresh, err := logging.ReadEntries(bytes.NewReader(chunk[:n]))
			if err != nil {
				return fmt.Errorf("reading log: %w", err)
			}
			for _, e := range fresh {
				if matchesTail(e, cfg.RunID, cfg) {
					fmt.Fprintln(cfg.Writer, formatTailEntry(e))
				}
			}
		}
	}
}

// latestRunID returns the run_id of the last entry that carries one.
func latestRunID(entries []logging.LogEntry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		if id := entries[i].Field("run_id"); id != "" {
			return id
		}
	}
	return ""
}

func matchesTail(e logging.LogEntry, runID string, cfg TailConfig) bool {
	if runID != "" && e.Field("run_id") != runID {
		return false
	}
	if cfg.Dir != "" && e.Field("dir") != cfg.Dir {
		return false
	}
	if !e.MatchesScope(cfg.Scope) {
		return false
	}
	return e.AtLeast(cfg.MinLevel)
}

// formatTailEntry prints captured test output as "dir | line" and every
// other entry in the usual log format.
func formatTailEntry(e logging.LogEntry) string {
	if e.Field("stream") != "" {
		return e.Field("dir") + " | " + e.Message
	}
	return e.String()
}

// completeLinesLen is the length of data up to and including its last newline.
func completeLinesLen(data []byte) int {
	return bytes.LastIndexByte(data, '\n') + 1
}

func runLogCommand(ctx context.Context, opts Options, args []string) int {
	tc := TailConfig{
		MinLevel: "debug",
		Interval: 500 * time.Millisecond,
		Writer:   opts.Stdout,
	}

	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	fs.SetOutput(opts.Stderr)
	RegisterFlags(fs, &opts)
	fs.StringVar(&tc.RunID, "run", "", "run id to show (default: the most recent sweep)")
	fs.StringVar(&tc.Dir, "dir", "", "only show entries for this directory")
	fs.StringVar(&tc.Scope, "scope", "", "only show entries from this logger scope (runner, process, watch)")
	fs.StringVar(&tc.MinLevel, "level", tc.MinLevel, "lowest level to show: debug, info, warn, error")
	fs.BoolVarP(&tc.Follow, "follow", "f", false, "keep printing new entries")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		return exitcodes.RuntimeErr
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(opts.Stderr, "error: unexpected argument %q\n", fs.Arg(0))
		return exitcodes.RuntimeErr
	}

	tc.Path = filepath.Join(ResolveDataDir(opts.DataDir), logFileName)
	if err := TailLog(ctx, tc); err != nil {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		return exitcodes.RuntimeErr
	}
	return exitcodes.Success
}
