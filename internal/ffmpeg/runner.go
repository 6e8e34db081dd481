package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ProgressFunc receives each out_time position reported by ffmpeg.
type ProgressFunc func(position time.Duration)

// Runner launches ffmpeg with -progress pipe:1 and streams both of its
// outputs. Stdout carries key=value progress records, stderr carries
// diagnostics.
type Runner struct {
	Binary string
	Logger *log.Logger
}

// NewRunner returns a runner for binary. A nil logger uses the default.
func NewRunner(binary string, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Binary: binary, Logger: logger}
}

// Run executes the tool and blocks until it exits and both streams are
// drained. Progress callbacks stop after the progress=end record. A
// non-zero exit returns an *ExternalToolError holding the last
// DiagnosticLines lines of stderr.
func (r *Runner) Run(ctx context.Context, stage string, args []string, onProgress ProgressFunc) error {
	logger := r.Logger.With("stage", stage)
	logger.Debug("Running ffmpeg", "cmd", r.Binary+" "+strings.Join(args, " "))

	cmd := commandContext(ctx, r.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return &ExternalToolError{Tool: "ffmpeg", Stage: stage, ExitCode: -1, Err: err}
	}

	outLines := drain(stdout)
	errLines := drain(stderr)
	diag := newTail(DiagnosticLines)
	ended := false

	for outLines != nil || errLines != nil {
		select {
		case line, ok := <-outLines:
			if !ok {
				outLines = nil
				continue
			}
			if ended {
				continue
			}
			key, value, found := strings.Cut(line, "=")
			if !found {
				continue
			}
			switch key {
			case "out_time":
				pos, err := ParseOutTime(value)
				if err == nil && onProgress != nil {
					onProgress(pos)
				}
			case "progress":
				if value == "end" {
					ended = true
				}
			}
		case line, ok := <-errLines:
			if !ok {
				errLines = nil
				continue
			}
			if line == "" {
				continue
			}
			diag.add(line)
			logger.Debug("ffmpeg", "stderr", line)
		}
	}

	err = cmd.Wait()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("ffmpeg %s: %w", stage, ctxErr)
	}

	toolErr := &ExternalToolError{Tool: "ffmpeg", Stage: stage, ExitCode: -1, Lines: diag.lines(), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	logger.Error("ffmpeg failed", "exit", toolErr.ExitCode, "details", strings.Join(toolErr.Lines, "\n"))
	return toolErr
}

// drain reads r line by line on its own goroutine. The channel closes at
// EOF.
func drain(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		// keep the pipe flowing if the scanner gave up on a huge line
		_, _ = io.Copy(io.Discard, r)
	}()
	return lines
}

// ParseOutTime converts an ffmpeg H:MM:SS.micro timestamp.
func ParseOutTime(value string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid out_time %q", value)
	}
	var secs float64
	for i, unit := range []float64{3600, 60, 1} {
		f, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid out_time %q: %w", value, err)
		}
		secs += f * unit
	}
	if secs < 0 {
		return 0, fmt.Errorf("negative out_time %q", value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// tail keeps the most recent n lines.
type tail struct {
	buf []string
	n   int
}

func newTail(n int) *tail {
	return &tail{n: n}
}

func (t *tail) add(line string) {
	t.buf = append(t.buf, line)
	if len(t.buf) > t.n {
		t.buf = t.buf[len(t.buf)-t.n:]
	}
}

func (t *tail) lines() []string {
	return append([]string(nil), t.buf...)
}
