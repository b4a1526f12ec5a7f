// pattern: Imperative Shell

package process

import (
	"bytes"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"sweep/internal/logging"
)

// maxLogLine caps a single buffered line; longer output is logged in pieces.
const maxLogLine = 64 * 1024

// lineLogger passes bytes straight through to out and logs every complete
// line, with escape sequences stripped, at DEBUG.
type lineLogger struct {
	out    io.Writer
	logger *logging.ScopedLogger
	stream string
	buf    []byte
}

func newLineLogger(out io.Writer, logger *logging.ScopedLogger, stream string) *lineLogger {
	return &lineLogger{out: out, logger: logger, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	// A broken terminal must not fail the child; keep logging regardless.
	_, _ = l.out.Write(p)

	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.emit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}
	if len(l.buf) > maxLogLine {
		l.emit(l.buf)
		l.buf = nil
	}
	return len(p), nil
}

// Flush logs a trailing partial line.
func (l *lineLogger) Flush() {
	if len(l.buf) > 0 {
		l.emit(l.buf)
		l.buf = nil
	}
}

func (l *lineLogger) emit(raw []byte) {
	line := cleanLine(string(raw))
	if line == "" {
		return
	}
	l.logger.Debug(line, "stream", l.stream)
}

// cleanLine drops ANSI sequences and carriage-return progress redraws,
// keeping only what the terminal would finally show.
func cleanLine(s string) string {
	s = ansi.Strip(s)
	s = strings.TrimRight(s, "\r")
	if i := strings.LastIndexByte(s, '\r'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimRight(s, " \t")
}
