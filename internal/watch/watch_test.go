package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"sweep/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// startWatcher runs a Watcher in the background and returns a channel that
// receives once per sweep.
func startWatcher(t *testing.T, root string, debounce time.Duration) (<-chan struct{}, *atomic.Int32) {
	t.Helper()
	lm := logging.NewTestLogManager(200)

	w, err := New(Config{Root: root, Debounce: debounce, PollInterval: time.Hour, Logger: lm.For("watch")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sweeps := make(chan struct{}, 16)
	var count atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) {
			count.Add(1)
			sweeps <- struct{}{}
		})
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Run() error = %v, want context.Canceled", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run() did not return after cancellation")
		}
		_ = lm.Close()
	})
	return sweeps, &count
}

func waitSweep(t *testing.T, sweeps <-chan struct{}, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-sweeps:
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestNew_RequiresRoot(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() should fail without a root")
	}
}

func TestRun_InitialSweep(t *testing.T) {
	sweeps, _ := startWatcher(t, t.TempDir(), 50*time.Millisecond)
	if !waitSweep(t, sweeps, 2*time.Second) {
		t.Fatal("expected an initial sweep")
	}
}

func TestRun_RerunsAfterChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "day-one", "src", "lib.rs"), "// v1")

	sweeps, _ := startWatcher(t, root, 50*time.Millisecond)
	if !waitSweep(t, sweeps, 2*time.Second) {
		t.Fatal("expected an initial sweep")
	}

	writeFile(t, filepath.Join(root, "day-one", "src", "lib.rs"), "// version 2")
	if !waitSweep(t, sweeps, 3*time.Second) {
		t.Fatal("expected a sweep after editing a nested file")
	}
}

func TestRun_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "day-one", "Cargo.toml"), "[package]")

	sweeps, count := startWatcher(t, root, 300*time.Millisecond)
	if !waitSweep(t, sweeps, 2*time.Second) {
		t.Fatal("expected an initial sweep")
	}

	for i := range 5 {
		writeFile(t, filepath.Join(root, "day-one", "notes.txt"), string(rune('a'+i)))
		time.Sleep(10 * time.Millisecond)
	}
	if !waitSweep(t, sweeps, 3*time.Second) {
		t.Fatal("expected a sweep after the burst")
	}
	time.Sleep(600 * time.Millisecond)
	if got := count.Load(); got != 2 {
		t.Errorf("sweeps = %d, want 2 (initial + one for the burst)", got)
	}
}

func TestRun_FilesWrittenBySweepDoNotRetrigger(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "day-one", "Cargo.toml"), "[package]")

	w, err := New(Config{Root: root, Debounce: 50 * time.Millisecond, PollInterval: time.Hour})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	var count atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) {
			// cargo writes a lockfile next to the manifest on its first run.
			if count.Add(1) == 1 {
				_ = os.WriteFile(filepath.Join(root, "day-one", "Cargo.lock"), []byte("version = 3"), 0o644)
			}
		})
	}()

	time.Sleep(500 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if got := count.Load(); got != 1 {
		t.Errorf("sweeps = %d, want 1", got)
	}
}

func TestRun_IgnoresBuildOutput(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "day-one", "target", "debug", "stamp"), "")

	sweeps, _ := startWatcher(t, root, 50*time.Millisecond)
	if !waitSweep(t, sweeps, 2*time.Second) {
		t.Fatal("expected an initial sweep")
	}

	writeFile(t, filepath.Join(root, "day-one", "target", "debug", "stamp"), "rebuilt")
	writeFile(t, filepath.Join(root, "day-one", ".git", "index"), "x")
	if waitSweep(t, sweeps, 400*time.Millisecond) {
		t.Error("changes under target/ or hidden directories should not trigger a sweep")
	}
}

func TestRun_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	sweeps, _ := startWatcher(t, root, 50*time.Millisecond)
	if !waitSweep(t, sweeps, 2*time.Second) {
		t.Fatal("expected an initial sweep")
	}

	if err := os.Mkdir(filepath.Join(root, "day-two"), 0o755); err != nil {
		t.Fatal(err)
	}
	if !waitSweep(t, sweeps, 3*time.Second) {
		t.Fatal("expected a sweep after a directory was created")
	}

	// Give the watcher time to register the new directory before editing it.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(root, "day-two", "Cargo.toml"), "[package]")
	if !waitSweep(t, sweeps, 3*time.Second) {
		t.Fatal("expected a sweep after writing inside the new directory")
	}
}

func TestRun_MissingRoot(t *testing.T) {
	w, err := New(Config{Root: filepath.Join(t.TempDir(), "gone")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	called := false
	err = w.Run(context.Background(), func(context.Context) { called = true })
	if err == nil {
		t.Fatal("Run() should fail for a missing root")
	}
	if called {
		t.Error("sweep should not run when the root cannot be watched")
	}
}

func TestFingerprintTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "Cargo.toml"), "[package]")
	before := fingerprintTree(root)

	writeFile(t, filepath.Join(root, "a", "target", "out"), "ignored")
	if fingerprintTree(root) != before {
		t.Error("files under target/ should not change the fingerprint")
	}

	writeFile(t, filepath.Join(root, "a", "src", "main.rs"), "fn main() {}")
	withSource := fingerprintTree(root)
	if withSource == before {
		t.Error("a new source file should change the fingerprint")
	}

	if err := os.Mkdir(filepath.Join(root, "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	withDir := fingerprintTree(root)
	if withDir == withSource {
		t.Error("a new empty directory should change the fingerprint")
	}

	if err := os.Rename(filepath.Join(root, "a", "src", "main.rs"), filepath.Join(root, "a", "src", "lib.rs")); err != nil {
		t.Fatal(err)
	}
	if fingerprintTree(root) == withDir {
		t.Error("renaming a file should change the fingerprint")
	}
}

func TestIgnoredName(t *testing.T) {
	tests := map[string]bool{
		"target":       true,
		"node_modules": true,
		".git":         true,
		".sweep.yaml":  true,
		"src":          false,
		"day-one":      false,
	}
	for name, want := range tests {
		if got := ignoredName(name); got != want {
			t.Errorf("ignoredName(%q) = %v, want %v", name, got, want)
		}
	}
}
