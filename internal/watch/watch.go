// pattern: Imperative Shell

package watch

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"sweep/internal/logging"
)

const (
	defaultDebounce     = 500 * time.Millisecond
	defaultPollInterval = 5 * time.Second
)

// Config controls a Watcher.
type Config struct {
	Root         string
	Debounce     time.Duration // quiet period after the last change before a rerun
	PollInterval time.Duration // how often the tree is re-fingerprinted in case events were missed
	Logger       *logging.ScopedLogger
}

// Watcher re-runs a callback whenever files under a root change.
type Watcher struct {
	cfg     Config
	watcher *fsnotify.Watcher
	logger  *logging.ScopedLogger
	watched map[string]bool
}

// New creates a Watcher for cfg.Root.
func New(cfg Config) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, errors.New("root directory is required")
	}
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", cfg.Root, err)
	}
	cfg.Root = abs
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		cfg:     cfg,
		watcher: watcher,
		logger:  cfg.Logger,
		watched: make(map[string]bool),
	}, nil
}

// Run calls sweep once, then again after every debounced change, until ctx
// is cancelled. Calls never overlap. It returns ctx.Err() on cancellation.
func (w *Watcher) Run(ctx context.Context, sweep func(context.Context)) error {
	defer func() { _ = w.watcher.Close() }()

	if err := w.addTree(w.cfg.Root); err != nil {
		return err
	}
	w.logger.Info("watching", "root", w.cfg.Root, "dirs", len(w.watched), "debounce", w.cfg.Debounce)

	sweep(ctx)
	last := fingerprintTree(w.cfg.Root)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	debounce := time.NewTimer(w.cfg.Debounce)
	stopTimer(debounce)
	pending := false

	for {
		select {
		case <-ctx.Done():
			stopTimer(debounce)
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("cannot watch new directory", "dir", event.Name, "error", err)
					}
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(w.watched, event.Name)
			}
			w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			if pending {
				stopTimer(debounce)
			}
			debounce.Reset(w.cfg.Debounce)
			pending = true

		case <-ticker.C:
			// Polling safeguard: catch changes whose events were dropped.
			if fp := fingerprintTree(w.cfg.Root); fp != last && !pending {
				w.logger.Debug("change detected by poll")
				debounce.Reset(w.cfg.Debounce)
				pending = true
			}

		case <-debounce.C:
			pending = false
			// Files the last sweep wrote itself (Cargo.lock, test fixtures) are
			// already part of last.
			if fp := fingerprintTree(w.cfg.Root); fp == last {
				w.logger.Debug("no change since last sweep")
				continue
			}
			w.logger.Info("rerunning after change")
			sweep(ctx)
			last = fingerprintTree(w.cfg.Root)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// addTree watches dir and every directory below it that is not ignored.
// Symlinked directories are not followed.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("walking %s: %w", dir, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.cfg.Root && w.ignored(path) {
			return filepath.SkipDir
		}
		if w.watched[path] {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch directory %s: %w", path, err)
			}
			w.logger.Warn("cannot watch directory", "dir", path, "error", err)
			return nil
		}
		w.watched[path] = true
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.cfg.Root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if ignoredName(part) {
			return true
		}
	}
	return false
}

// ignoredName matches build output and hidden entries, which test runs
// themselves rewrite.
func ignoredName(name string) bool {
	switch name {
	case "target", "node_modules":
		return true
	}
	return strings.HasPrefix(name, ".")
}

// fingerprint summarises a tree cheaply enough to recompute every poll.
type fingerprint struct {
	dirs   int
	files  int
	size   int64
	latest int64  // newest modification time, unix nanoseconds
	names  uint64 // order-independent sum of path hashes
}

func fingerprintTree(root string) fingerprint {
	var fp fingerprint
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != root && ignoredName(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root {
			h := fnv.New64a()
			_, _ = h.Write([]byte(path))
			fp.names += h.Sum64()
		}
		if d.IsDir() {
			fp.dirs++
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fp.files++
		fp.size += info.Size()
		fp.latest = max(fp.latest, info.ModTime().UnixNano())
		return nil
	})
	return fp
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
