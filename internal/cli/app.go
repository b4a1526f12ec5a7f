// pattern: Functional Core
package cli

import (
	"fmt"
	"io"
	"slices"

	"sweep/internal/exitcodes"
)

// Command represents a single CLI command with its metadata and handler.
// Run returns the process exit code.
type Command struct {
	Name    string
	Summary string
	Usage   string
	Run     func(args []string) int
}

// App dispatches the first argument to a registered command.
type App struct {
	commands   map[string]*Command
	order      []string
	defaultCmd string
	version    string
	stderr     io.Writer
}

// NewApp creates a new CLI application with the given version. Help and
// usage errors are written to stderr.
func NewApp(version string, stderr io.Writer) *App {
	return &App{
		commands: make(map[string]*Command),
		version:  version,
		stderr:   stderr,
	}
}

// AddCommand registers a command. Help lists commands in registration order.
func (a *App) AddCommand(cmd *Command) {
	if _, ok := a.commands[cmd.Name]; !ok {
		a.order = append(a.order, cmd.Name)
	}
	a.commands[cmd.Name] = cmd
}

// SetDefault names the command run when no command is given.
func (a *App) SetDefault(name string) {
	a.defaultCmd = name
}

// Execute dispatches args and returns the exit code.
func (a *App) Execute(args []string) int {
	if len(args) == 0 {
		if cmd, ok := a.commands[a.defaultCmd]; ok {
			return cmd.Run(nil)
		}
		a.PrintHelp(a.stderr)
		return exitcodes.RuntimeErr
	}

	switch args[0] {
	case "help", "--help", "-h":
		a.PrintHelp(a.stderr)
		return exitcodes.Success
	}

	cmd, ok := a.commands[args[0]]
	if !ok {
		fmt.Fprintf(a.stderr, "unknown command %q\n\n", args[0])
		a.PrintHelp(a.stderr)
		return exitcodes.RuntimeErr
	}
	if slices.Contains(args[1:], "--help") || slices.Contains(args[1:], "-h") {
		fmt.Fprintf(a.stderr, "%s\n", cmd.Usage)
		return exitcodes.Success
	}
	return cmd.Run(args[1:])
}

// PrintHelp prints the top-level help text.
func (a *App) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: sweep [options] [command] [root]\n\n")
	fmt.Fprintf(w, "Runs the test command in every immediate subdirectory of root that\n")
	fmt.Fprintf(w, "contains the marker file, one at a time, stopping at the first failure.\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range a.order {
		cmd := a.commands[name]
		fmt.Fprintf(w, "  %-10s %s\n", cmd.Name, cmd.Summary)
	}
	if a.defaultCmd != "" {
		fmt.Fprintf(w, "  %-10s %s\n", "(none)", "Same as "+a.defaultCmd)
	}
	fmt.Fprintf(w, "\nExit status: 0 all passed, 1 a test command failed, 2 sweep error.\n\n")
	fmt.Fprintf(w, "Options:\n")
}
