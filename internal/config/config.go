package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the per-tree config file looked up in the root directory.
const ProjectFileName = ".sweep.yaml"

type Config struct {
	Marker    string            `yaml:"marker"`
	Command   []string          `yaml:"command"`
	Env       map[string]string `yaml:"env"`
	Exclude   []string          `yaml:"exclude"`
	KeepGoing bool              `yaml:"keep_going"`
	PTY       bool              `yaml:"pty"`
	LogLevel  string            `yaml:"log_level"`
	Theme     string            `yaml:"theme"`
	Watch     WatchConfig       `yaml:"watch"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LookPathFunc is the function signature for looking up executables.
type LookPathFunc func(name string) (string, error)

func DefaultConfig() Config {
	return Config{
		Marker:   "Cargo.toml",
		Command:  []string{"cargo", "test"},
		LogLevel: "warn",
		Theme:    "mocha",
		Watch:    WatchConfig{Debounce: 500 * time.Millisecond},
	}
}

// Load reads the user-level config file, falling back to defaults.
func Load() (Config, error) {
	return LoadFrom(UserConfigPath())
}

// LoadFrom reads configPath on top of the defaults. A missing file is not an error.
func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing %s: %w", configPath, err)
	}

	cfg.fillDefaults()
	return cfg, nil
}

// Resolve picks the config for a sweep of root. An explicit path must exist;
// otherwise <root>/.sweep.yaml wins over the user config. It returns the
// path that was used, or "" when only defaults apply.
func Resolve(root, explicit string) (Config, string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return DefaultConfig(), "", fmt.Errorf("config file: %w", err)
		}
		cfg, err := LoadFrom(explicit)
		return cfg, explicit, err
	}

	for _, candidate := range []string{filepath.Join(root, ProjectFileName), UserConfigPath()} {
		if _, err := os.Stat(candidate); err == nil {
			cfg, err := LoadFrom(candidate)
			return cfg, candidate, err
		}
	}
	return DefaultConfig(), "", nil
}

// fillDefaults restores defaults for keys a config file blanked out.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Marker == "" {
		c.Marker = def.Marker
	}
	if len(c.Command) == 0 {
		c.Command = def.Command
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Theme == "" {
		c.Theme = def.Theme
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = def.Watch.Debounce
	}
}

// Validate checks the config for values no sweep could run with. The test
// command is not looked up here: it is resolved by the OS in each directory.
func (c *Config) Validate() error {
	if c.Marker == "" {
		return errors.New("marker must not be empty")
	}
	if c.Marker != filepath.Base(c.Marker) || c.Marker == "." || c.Marker == ".." {
		return fmt.Errorf("marker %q must be a plain file name", c.Marker)
	}
	if len(c.Command) == 0 || strings.TrimSpace(c.Command[0]) == "" {
		return errors.New("command must not be empty")
	}
	for k := range c.Env {
		if k == "" || strings.Contains(k, "=") {
			return fmt.Errorf("invalid env name %q", k)
		}
	}
	return nil
}

// CheckCommand reports whether the test command resolves on PATH. Commands
// with a path separator resolve against each directory and are not checked.
func (c *Config) CheckCommand(lookPath LookPathFunc) error {
	if len(c.Command) == 0 || strings.ContainsRune(c.Command[0], filepath.Separator) {
		return nil
	}
	if _, err := lookPath(c.Command[0]); err != nil {
		return fmt.Errorf("test command %q not found: %w", c.Command[0], err)
	}
	return nil
}

// Binary returns the executable of the test command.
func (c *Config) Binary() string {
	return c.Command[0]
}

// Args returns the arguments of the test command.
func (c *Config) Args() []string {
	return c.Command[1:]
}

// Environ returns the extra environment as sorted KEY=VALUE pairs.
func (c *Config) Environ() []string {
	env := make([]string, 0, len(c.Env))
	for _, k := range slices.Sorted(maps.Keys(c.Env)) {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}

// IsExcluded reports whether a directory name is on the exclude list.
func (c *Config) IsExcluded(name string) bool {
	return slices.Contains(c.Exclude, name)
}

// UserConfigPath returns the per-user config file location.
func UserConfigPath() string {
	return filepath.Join(UserDir(), "config.yaml")
}

// UserDir returns $XDG_CONFIG_HOME/sweep or ~/.config/sweep. It also holds
// the log file and run locks.
func UserDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sweep")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "sweep")
	}
	return filepath.Join(home, ".config", "sweep")
}
