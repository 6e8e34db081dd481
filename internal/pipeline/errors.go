package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoChapters is returned when no chapter produced audio.
	ErrNoChapters = errors.New("no audio chapters were generated")
	// ErrNoAudio is returned by a preview that had nothing to play.
	ErrNoAudio = errors.New("no audio was produced")
)

// SynthesisError is an engine failure on one unit. It aborts the job.
type SynthesisError struct {
	Chapter int
	Unit    int
	Text    string
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed in chapter %d, unit %d (%q): %v", e.Chapter, e.Unit+1, preview(e.Text, 40), e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
