package nmmafit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
)

// outputTailBytes is how much trailing tool output is kept for diagnostics.
const outputTailBytes = 4096

// Command is an external program split into argv form.
type Command []string

// ParseCommand splits a configured command line with shell quoting rules.
// A blank line yields a nil Command.
func ParseCommand(line string) (Command, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	words, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", line, err)
	}
	return Command(words), nil
}

// Configured reports whether the command has a program to run.
func (c Command) Configured() bool {
	return len(c) > 0
}

// String renders the command for logs.
func (c Command) String() string {
	return shellquote.Join(c...)
}

// runResult carries what an invocation left behind.
type runResult struct {
	Stdout []byte
	Tail   string
}

// ExitError wraps a failed invocation with the tail of its output.
type ExitError struct {
	Program string
	Err     error
	Tail    string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Program, e.Err)
	if tail := strings.TrimSpace(e.Tail); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// runOptions controls one invocation.
// CaptureStdout keeps stdout separate instead of logging it with stderr.
type runOptions struct {
	Dir           string
	Stdin         []byte
	CaptureStdout bool
}

// run executes cmd with extra args appended. Output lines are logged at debug
// level and the last outputTailBytes are kept for error reporting.
func (c Command) run(ctx context.Context, logger *slog.Logger, opts runOptions, args ...string) (runResult, error) {
	if !c.Configured() {
		return runResult{}, errors.New("command not configured")
	}
	argv := append(append([]string(nil), c[1:]...), args...)
	cmd := exec.CommandContext(ctx, c[0], argv...)
	cmd.Dir = opts.Dir
	if opts.Stdin != nil {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}

	tail := &tailBuffer{limit: outputTailBytes}
	logged := &lineLogger{logger: logger, program: c[0], tail: tail}
	var stdout bytes.Buffer
	if opts.CaptureStdout {
		cmd.Stdout = &stdout
	} else {
		cmd.Stdout = logged
	}
	cmd.Stderr = logged

	logger.DebugContext(ctx, "running external command", "command", Command(append([]string{c[0]}, argv...)).String())
	err := cmd.Run()
	logged.flush()

	res := runResult{Stdout: stdout.Bytes(), Tail: tail.String()}
	if err != nil {
		return res, &ExitError{Program: c[0], Err: err, Tail: res.Tail}
	}
	return res, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// lineLogger splits a byte stream into lines and logs each at debug level.
// Carriage returns end a line too, so progress bars do not pile up. A line
// longer than outputTailBytes is logged in pieces.
// exec may write stdout and stderr from separate goroutines.
type lineLogger struct {
	mu      sync.Mutex
	logger  *slog.Logger
	program string
	tail    io.Writer
	partial []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.tail.Write(p)

	rest := p
	for len(rest) > 0 {
		i := bytes.IndexAny(rest, "\r\n")
		if i < 0 {
			l.partial = append(l.partial, rest...)
			if len(l.partial) >= outputTailBytes {
				l.emit(string(l.partial))
				l.partial = l.partial[:0]
			}
			break
		}
		l.partial = append(l.partial, rest[:i]...)
		l.emit(string(l.partial))
		l.partial = l.partial[:0]
		rest = rest[i+1:]
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.partial) > 0 {
		l.emit(string(l.partial))
		l.partial = nil
	}
}

func (l *lineLogger) emit(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	l.logger.Debug("external command output", "program", l.program, "line", line)
}
