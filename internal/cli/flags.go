package cli

import (
	"errors"
	"io"
	"maps"

	flag "github.com/spf13/pflag"
)

// Options are the settings shared by every command. Flags given after the
// command name override those given before it.
type Options struct {
	Root       string
	ConfigPath string
	DataDir    string
	LogLevel   string
	KeepGoing  bool
	PTY        bool
	NoColor    bool

	Stdout io.Writer
	Stderr io.Writer

	changed map[string]bool
}

// RegisterFlags binds the shared flags on fs, using the current values of o
// as defaults.
func RegisterFlags(fs *flag.FlagSet, o *Options) {
	fs.StringVarP(&o.Root, "root", "C", o.Root, "directory whose subdirectories are swept (default: current directory)")
	fs.StringVar(&o.ConfigPath, "config", o.ConfigPath, "config file (default: <root>/.sweep.yaml, then ~/.config/sweep/config.yaml)")
	fs.StringVar(&o.DataDir, "data-dir", o.DataDir, "directory for the log file and run locks (default: ~/.config/sweep)")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "console log level: debug, info, warn, error")
	fs.BoolVarP(&o.KeepGoing, "keep-going", "k", o.KeepGoing, "run every directory instead of stopping at the first failure")
	fs.BoolVar(&o.PTY, "pty", o.PTY, "run the test command in a pseudo-terminal")
	fs.BoolVar(&o.NoColor, "no-color", o.NoColor, "disable coloured output")
}

// MarkChanged records which flags fs saw on the command line, so config
// values are only overridden by flags the user actually passed.
func (o *Options) MarkChanged(fs *flag.FlagSet) {
	if o.changed == nil {
		o.changed = make(map[string]bool)
	}
	fs.Visit(func(f *flag.Flag) {
		o.changed[f.Name] = true
	})
}

// Changed reports whether the named flag was given.
func (o *Options) Changed(name string) bool {
	return o.changed[name]
}

// withCommandFlags parses the flags that follow a command name into a copy
// of o. At most one positional argument, the root, is accepted.
func withCommandFlags(o Options, name string, args []string) (Options, error) {
	changed := make(map[string]bool, len(o.changed))
	maps.Copy(changed, o.changed)
	o.changed = changed

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(o.Stderr)
	RegisterFlags(fs, &o)
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.MarkChanged(fs)

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		o.Root = rest[0]
		o.changed["root"] = true
	default:
		return o, errors.New("at most one root directory may be given")
	}
	return o, nil
}
