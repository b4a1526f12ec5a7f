// pattern: Imperative Shell

package discovery

import (
	"fmt"
	"os"
	"path/filepath"

	"sweep/internal/logging"
)

// Scanner finds the testable directories directly under a root.
type Scanner struct {
	marker   string
	excluded func(name string) bool
	logger   *logging.ScopedLogger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithExclude skips directories for which excluded returns true.
func WithExclude(excluded func(name string) bool) Option {
	return func(s *Scanner) { s.excluded = excluded }
}

// WithLogger sets the logger used for per-directory decisions.
func WithLogger(logger *logging.ScopedLogger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// NewScanner creates a scanner for directories containing marker.
func NewScanner(marker string, opts ...Option) *Scanner {
	s := &Scanner{
		marker:   marker,
		excluded: func(string) bool { return false },
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Marker returns the marker file name the scanner looks for.
func (s *Scanner) Marker() string {
	return s.marker
}

// Scan lists root once and returns, in listing order, every immediate child
// directory that contains the marker as a direct entry. Nested directories
// are never visited. A symlink to a directory counts as a child directory.
// A root that cannot be listed is an error.
func (s *Scanner) Scan(root string) ([]Project, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", absRoot, err)
	}

	var projects []Project
	for _, entry := range entries {
		name := entry.Name()
		if !isDir(absRoot, entry) {
			continue
		}
		if s.excluded(name) {
			s.logger.Debug("directory excluded", "dir", name)
			continue
		}

		dir := filepath.Join(absRoot, name)
		manifestPath := filepath.Join(dir, s.marker)
		if !hasMarker(manifestPath) {
			s.logger.Debug("no marker, skipping", "dir", name, "marker", s.marker)
			continue
		}

		project := Project{
			Name:         name,
			Path:         dir,
			ManifestPath: manifestPath,
		}
		if isTOML(s.marker) {
			project.Manifest, project.ManifestErr = ParseManifest(manifestPath)
			if project.ManifestErr != nil {
				s.logger.Warn("manifest unreadable, running anyway", "dir", name, "error", project.ManifestErr)
			}
		}
		projects = append(projects, project)
	}

	return projects, nil
}

// isDir reports whether entry is a directory or a symlink resolving to one.
// Dangling links are skipped.
func isDir(root string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, entry.Name()))
	return err == nil && info.IsDir()
}

// hasMarker reports whether path exists and is not a directory. Like the
// shell's `test -f`, symlinks to files count and unreadable entries do not.
func hasMarker(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
