// pattern: Imperative Shell
package instance

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const locksDirName = "locks"

// ErrLocked means another sweep currently holds the lock for the same root.
var ErrLocked = errors.New("another sweep of this root is already running")

// RunLock is an exclusive lock on one root directory.
type RunLock struct {
	fl   *flock.Flock
	root string
}

// LockPath returns the lock file for root under dataDir. The name is derived
// from the absolute root so different spellings of one path share a lock.
func LockPath(dataDir, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return filepath.Join(dataDir, locksDirName, hex.EncodeToString(sum[:8])+".lock"), nil
}

// Lock acquires the run lock for root without blocking. The caller must
// Release it. ErrLocked is returned when another process holds it.
func Lock(dataDir, root string) (*RunLock, error) {
	path, err := LockPath(dataDir, root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, root)
	}
	return &RunLock{fl: fl, root: root}, nil
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.fl.Path()
}

// Release unlocks and removes the lock file.
func (l *RunLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	// Unlink first: a waiter must never lock an inode that is about to vanish.
	rmErr := os.Remove(l.fl.Path())
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	if rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", rmErr)
	}
	return nil
}

// Unlock removes a lock file left behind for root. It refuses while a live
// process still holds the lock. The boolean reports whether a file was removed.
func Unlock(dataDir, root string) (bool, error) {
	path, err := LockPath(dataDir, root)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	l, err := Lock(dataDir, root)
	if err != nil {
		return false, err
	}
	if err := l.Release(); err != nil {
		return false, err
	}
	return true, nil
}
