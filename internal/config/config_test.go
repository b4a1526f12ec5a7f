package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func foundAll(name string) (string, error) { return "/usr/bin/" + name, nil }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Marker != "Cargo.toml" {
		t.Errorf("Marker: got %q, want Cargo.toml", cfg.Marker)
	}
	if diff := cmp.Diff([]string{"cargo", "test"}, cfg.Command); diff != "" {
		t.Errorf("Command mismatch (-want +got):\n%s", diff)
	}
	if cfg.KeepGoing {
		t.Error("KeepGoing should default to false (fail-fast)")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Watch.Debounce: got %v, want 500ms", cfg.Watch.Debounce)
	}
}

func TestLoadFullConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
marker: go.mod
command: [go, test, ./...]
env:
  RUST_BACKTRACE: "1"
  CGO_ENABLED: "0"
exclude: [vendor, target]
keep_going: true
pty: true
log_level: debug
theme: latte
watch:
  debounce: 2s
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	want := Config{
		Marker:    "go.mod",
		Command:   []string{"go", "test", "./..."},
		Env:       map[string]string{"RUST_BACKTRACE": "1", "CGO_ENABLED": "0"},
		Exclude:   []string{"vendor", "target"},
		KeepGoing: true,
		PTY:       true,
		LogLevel:  "debug",
		Theme:     "latte",
		Watch:     WatchConfig{Debounce: 2 * time.Second},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadFrom mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom on missing file: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadFrom_PartialKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("keep_going: true\ncommand: []\nmarker: \"\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if !cfg.KeepGoing {
		t.Error("KeepGoing should be true")
	}
	if cfg.Marker != "Cargo.toml" || cfg.Binary() != "cargo" {
		t.Errorf("blank keys should fall back to defaults, got marker=%q command=%v", cfg.Marker, cfg.Command)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("marker: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(configPath)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.Marker != "Cargo.toml" {
		t.Errorf("invalid config should return defaults, got marker %q", cfg.Marker)
	}
}

func TestResolve_ProjectFileWins(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	userDir := UserDir()
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte("marker: user.toml\n"), 0644); err != nil {
		t.Fatal(err)
	}

	root := t.TempDir()
	cfg, path, err := Resolve(root, "")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if cfg.Marker != "user.toml" || path != UserConfigPath() {
		t.Errorf("without project file: marker=%q path=%q", cfg.Marker, path)
	}

	projectFile := filepath.Join(root, ProjectFileName)
	if err := os.WriteFile(projectFile, []byte("marker: project.toml\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, path, err = Resolve(root, "")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if cfg.Marker != "project.toml" || path != projectFile {
		t.Errorf("with project file: marker=%q path=%q", cfg.Marker, path)
	}
}

func TestResolve_NoFiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, path, err := Resolve(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.Marker != "Cargo.toml" {
		t.Errorf("Marker = %q, want default", cfg.Marker)
	}
}

func TestResolve_ExplicitMustExist(t *testing.T) {
	_, _, err := Resolve(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("explicit missing config should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty marker", mutate: func(c *Config) { c.Marker = "" }, wantErr: "marker must not be empty"},
		{name: "marker with path", mutate: func(c *Config) { c.Marker = "sub/Cargo.toml" }, wantErr: "plain file name"},
		{name: "dot marker", mutate: func(c *Config) { c.Marker = ".." }, wantErr: "plain file name"},
		{name: "empty command", mutate: func(c *Config) { c.Command = nil }, wantErr: "command must not be empty"},
		{name: "blank binary", mutate: func(c *Config) { c.Command = []string{" "} }, wantErr: "command must not be empty"},
		{name: "bad env key", mutate: func(c *Config) { c.Env = map[string]string{"A=B": "x"} }, wantErr: "invalid env name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_DoesNotLookUpCommand(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	missing := func(string) (string, error) { return "", os.ErrNotExist }

	cfg := DefaultConfig()
	if err := cfg.CheckCommand(foundAll); err != nil {
		t.Errorf("CheckCommand() error = %v", err)
	}
	err := cfg.CheckCommand(missing)
	if err == nil || !strings.Contains(err.Error(), `"cargo" not found`) {
		t.Errorf("error = %v, want lookup failure for cargo", err)
	}

	cfg.Command = []string{"./check.sh"}
	if err := cfg.CheckCommand(missing); err != nil {
		t.Errorf("relative command should not be looked up, got %v", err)
	}
}

func TestEnviron_Sorted(t *testing.T) {
	cfg := Config{Env: map[string]string{"Z": "1", "A": "2"}}
	if diff := cmp.Diff([]string{"A=2", "Z=1"}, cfg.Environ()); diff != "" {
		t.Errorf("Environ mismatch (-want +got):\n%s", diff)
	}
}

func TestIsExcluded(t *testing.T) {
	cfg := Config{Exclude: []string{"target"}}
	if !cfg.IsExcluded("target") {
		t.Error("target should be excluded")
	}
	if cfg.IsExcluded("Target") {
		t.Error("exclusion is case-sensitive")
	}
}

func TestUserDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := UserDir(); got != "/tmp/xdg/sweep" {
		t.Errorf("UserDir() = %q, want /tmp/xdg/sweep", got)
	}
}
