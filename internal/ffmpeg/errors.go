package ffmpeg

import (
	"errors"
	"fmt"
	"strings"
)

// DiagnosticLines is how many stderr lines an ExternalToolError keeps.
const DiagnosticLines = 50

// ErrNoInputs is returned when there is nothing to concatenate.
var ErrNoInputs = errors.New("no chapter audio to concatenate")

// MissingToolError reports a required binary that is not installed.
type MissingToolError struct {
	Tool         string
	Instructions string
}

func (e *MissingToolError) Error() string {
	msg := fmt.Sprintf("%s not found: it is required to create m4b and mp3 audiobooks", e.Tool)
	if e.Instructions != "" {
		msg += "\n" + e.Instructions
	}
	return msg
}

// ExternalToolError is a non-zero exit from ffmpeg. Lines holds the tail
// of its diagnostic output.
type ExternalToolError struct {
	Tool     string
	Stage    string
	ExitCode int
	Lines    []string
	Err      error
}

func (e *ExternalToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed with exit code %d", e.Tool, e.Stage, e.ExitCode)
	if len(e.Lines) > 0 {
		b.WriteString(".\nDetails:\n")
		b.WriteString(strings.Join(e.Lines, "\n"))
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

// ProbeError describes why a duration could not be read. Duration logs
// it and degrades to zero; it is never returned from the pipeline.
type ProbeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("probe %s: %s", e.Path, e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
