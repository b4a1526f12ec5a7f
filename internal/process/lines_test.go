package process

import (
	"bytes"
	"strings"
	"testing"

	"sweep/internal/logging"
)

func TestCleanLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"\x1b[1m\x1b[32m   Compiling\x1b[0m intcode v0.1.0", "   Compiling intcode v0.1.0"},
		{"Building [=>  ] 1/10\rBuilding [==>] 10/10", "Building [==>] 10/10"},
		{"crlf line\r", "crlf line"},
		{"trailing   ", "trailing"},
		{"\x1b[0m", ""},
	}
	for _, tt := range tests {
		if got := cleanLine(tt.in); got != tt.want {
			t.Errorf("cleanLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLineLogger_SplitsAcrossWrites(t *testing.T) {
	lm := logging.NewTestLogManager(10)
	defer func() { _ = lm.Close() }()

	var out bytes.Buffer
	l := newLineLogger(&out, lm.For("test"), "stdout")
	for _, chunk := range []string{"test resu", "lt: ok.\nrunning 3 ", "tests"} {
		if _, err := l.Write([]byte(chunk)); err != nil {
			t.Fatal(err)
		}
	}
	l.Flush()

	if out.String() != "test result: ok.\nrunning 3 tests" {
		t.Errorf("passthrough = %q", out.String())
	}

	var msgs []string
	for _, e := range lm.Drain() {
		msgs = append(msgs, e.Message)
	}
	if strings.Join(msgs, "|") != "test result: ok.|running 3 tests" {
		t.Errorf("logged lines = %v", msgs)
	}
}

func TestLineLogger_CapsLongLines(t *testing.T) {
	lm := logging.NewTestLogManager(10)
	defer func() { _ = lm.Close() }()

	l := newLineLogger(&bytes.Buffer{}, lm.For("test"), "stdout")
	_, _ = l.Write(bytes.Repeat([]byte("x"), maxLogLine+1))

	if n := len(lm.Drain()); n != 1 {
		t.Fatalf("expected the oversized line to be logged once, got %d entries", n)
	}
	if len(l.buf) != 0 {
		t.Errorf("buffer should be empty after an oversized line, has %d bytes", len(l.buf))
	}
}
