// pattern: Imperative Shell

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"sweep/internal/discovery"
	"sweep/internal/runner"
)

// Options controls how the Printer renders.
type Options struct {
	Theme   string // catppuccin flavor name
	NoColor bool
}

// Printer writes progress headers and the end-of-run summary. It implements
// runner.Observer.
type Printer struct {
	out    io.Writer
	styles *Styles
}

// NewPrinter creates a Printer. Colour is dropped automatically when out is
// not a terminal.
func NewPrinter(out io.Writer, opts Options) *Printer {
	return &Printer{
		out:    out,
		styles: NewStyles(opts.Theme, lipgloss.NewRenderer(out), opts.NoColor),
	}
}

var _ runner.Observer = (*Printer)(nil)

// SuiteStarted prints a header before the suite's own output.
func (p *Printer) SuiteStarted(project discovery.Project, index, total int) {
	counter := p.styles.MutedStyle().Render(fmt.Sprintf("[%d/%d]", index+1, total))
	name := p.styles.HeaderStyle().Render(project.DisplayName())
	fmt.Fprintf(p.out, "\n==> %s %s\n", counter, name)
}

// SuiteFinished prints the suite's status line.
func (p *Printer) SuiteFinished(result runner.SuiteResult) {
	fmt.Fprintf(p.out, "%s %s\n", p.badge(result.Status), p.detail(result))
}

// Summary prints one line per suite, the totals and the first problem.
func (p *Printer) Summary(result *runner.Result) {
	fmt.Fprintf(p.out, "\n%s %s\n", p.styles.TitleStyle().Render("Summary"), p.styles.MutedStyle().Render("run "+shortID(result.RunID)))

	if len(result.Suites) == 0 && result.Err == nil {
		fmt.Fprintln(p.out, p.styles.InfoStyle().Render("no testable directories found"))
	}

	width := 0
	for _, suite := range result.Suites {
		width = max(width, len(suite.Project.DisplayName()))
	}
	for _, suite := range result.Suites {
		name := suite.Project.DisplayName()
		line := "  " + p.badge(suite.Status) + " " + name
		if d := p.detail(suite); d != name {
			line += strings.Repeat(" ", width-len(name)) + strings.TrimPrefix(d, name)
		}
		fmt.Fprintln(p.out, line)
	}

	totals := fmt.Sprintf("%d %s: %d passed, %d failed, %d errored, %d skipped in %s",
		len(result.Suites), plural(len(result.Suites), "suite", "suites"),
		result.Count(runner.StatusPass),
		result.Count(runner.StatusFail),
		result.Count(runner.StatusError),
		result.Count(runner.StatusSkipped),
		formatDuration(result.Duration),
	)
	fmt.Fprintln(p.out, p.styles.InfoStyle().Render(totals))

	if problem, ok := result.FirstProblem(); ok {
		fmt.Fprintln(p.out, p.styles.ErrorStyle().Render("first failure: "+problem.Err.Error()))
	} else if result.Err != nil {
		fmt.Fprintln(p.out, p.styles.ErrorStyle().Render("error: "+result.Err.Error()))
	}
}

// List prints the testable directories under root without running them.
func (p *Printer) List(root string, projects []discovery.Project) {
	fmt.Fprintf(p.out, "%s %s\n", p.styles.TitleStyle().Render(root), p.styles.MutedStyle().Render(fmt.Sprintf("(%d %s)", len(projects), plural(len(projects), "directory", "directories"))))
	for _, project := range projects {
		line := "  " + p.styles.HeaderStyle().Render(project.DisplayName())
		switch {
		case project.ManifestErr != nil:
			line += " " + p.styles.ErrorStyle().Render("unreadable manifest")
		case project.Manifest.IsWorkspace():
			line += " " + p.styles.MutedStyle().Render(fmt.Sprintf("workspace, %d %s", len(project.Manifest.WorkspaceMembers), plural(len(project.Manifest.WorkspaceMembers), "member", "members")))
		case project.Manifest != nil && project.Manifest.Version != "":
			line += " " + p.styles.MutedStyle().Render(project.Manifest.Version)
		}
		fmt.Fprintln(p.out, line)
	}
}

// Notice prints a one-line informational message, e.g. from watch mode.
func (p *Printer) Notice(msg string) {
	fmt.Fprintln(p.out, p.styles.MutedStyle().Render(msg))
}

func (p *Printer) badge(status runner.Status) string {
	label := strings.ToUpper(string(status))
	return p.styles.BadgeStyle(label).Render(label)
}

// detail is "<name> <duration>" plus the exit status or error when relevant.
func (p *Printer) detail(suite runner.SuiteResult) string {
	name := suite.Project.DisplayName()
	switch suite.Status {
	case runner.StatusPass:
		return name + "  " + p.styles.MutedStyle().Render(formatDuration(suite.Duration))
	case runner.StatusFail:
		return name + "  " + p.styles.MutedStyle().Render(formatDuration(suite.Duration)) + "  " + p.styles.ErrorStyle().Render(fmt.Sprintf("exit %d", suite.ExitCode))
	case runner.StatusError:
		return name + "  " + p.styles.ErrorStyle().Render(errorText(suite.Err))
	default:
		return name
	}
}

func errorText(err error) string {
	if err == nil {
		return "error"
	}
	return err.Error()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
