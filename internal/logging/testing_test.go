// pattern: Imperative Shell

package logging

import (
	"errors"
	"testing"
)

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	if logger == nil {
		t.Fatal("NopLogger() returned nil")
	}

	logger.Debug("test")
	logger.Info("test")
	logger.Warn("test")
	logger.Error("test")
	logger.With("key", "value").Info("test with fields")
}

func TestTestLogManager_CapturesDebug(t *testing.T) {
	lm := NewTestLogManager(10)
	defer func() { _ = lm.Close() }()

	lm.For("runner").Debug("scan finished", "count", 3)

	entries := lm.Drain()
	if len(entries) != 1 {
		t.Fatalf("Drain() returned %d entries, want 1", len(entries))
	}
	if entries[0].Level != "DEBUG" {
		t.Errorf("Level = %q, want DEBUG", entries[0].Level)
	}
	if entries[0].Field("count") != "3" {
		t.Errorf("count field = %q, want 3", entries[0].Field("count"))
	}
}

func TestTestLogManager_ForCaches(t *testing.T) {
	lm := NewTestLogManager(1)
	defer func() { _ = lm.Close() }()

	if lm.For("a") != lm.For("a") {
		t.Error("For() should return the cached logger for the same scope")
	}
	if lm.For("a") == lm.For("b") {
		t.Error("For() should return distinct loggers for distinct scopes")
	}
}

func TestScopedLogger_WithAndErrors(t *testing.T) {
	lm := NewTestLogManager(10)
	defer func() { _ = lm.Close() }()

	logger := lm.For("suite.x").With("run_id", "r1")
	if logger.Scope() != "suite.x" {
		t.Errorf("Scope() = %q, want suite.x", logger.Scope())
	}
	logger.Error("launch failed", "error", errors.New("no such file"))

	entries := lm.Drain()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Field("run_id") != "r1" {
		t.Errorf("run_id = %q, want r1", entries[0].Field("run_id"))
	}
	if entries[0].Field("error") != "no such file" {
		t.Errorf("error = %q, want %q", entries[0].Field("error"), "no such file")
	}
}
