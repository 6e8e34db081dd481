package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/cpttripzz/Chatterblez/internal/audio"
	"github.com/cpttripzz/Chatterblez/internal/ebook"
	"github.com/cpttripzz/Chatterblez/internal/progress"
	"github.com/cpttripzz/Chatterblez/internal/segment"
	"github.com/cpttripzz/Chatterblez/internal/textnorm"
)

// ChapterState is where a chapter ended up after rendering.
type ChapterState int

const (
	StatePending ChapterState = iota
	// StateSkipped means the working file already existed.
	StateSkipped
	StateRendering
	// StateWritten means a new working file was persisted.
	StateWritten
	// StateEmptySkipped means the normalized text was too short to read.
	StateEmptySkipped
	// StateNoAudio means every unit came back without audio.
	StateNoAudio
)

func (s ChapterState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSkipped:
		return "skipped"
	case StateRendering:
		return "rendering"
	case StateWritten:
		return "written"
	case StateEmptySkipped:
		return "empty"
	case StateNoAudio:
		return "no audio"
	default:
		return fmt.Sprintf("ChapterState(%d)", int(s))
	}
}

// HasArtifact reports whether the chapter takes part in the audiobook.
func (s ChapterState) HasArtifact() bool {
	return s == StateSkipped || s == StateWritten
}

var unsafeName = regexp.MustCompile(`[\\/:*?"<>|]`)

// ChapterPath is the working file for the chapter at 1-based selection
// position pos. Its presence marks the chapter as rendered.
func ChapterPath(outputDir, stem string, pos int, name string) string {
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ".xhtml", "")
	name = strings.ReplaceAll(name, ".html", "")
	return filepath.Join(outputDir, fmt.Sprintf("%s_chapter_%d_%s.wav", stem, pos, name))
}

// Banner is spoken before the first chapter.
func Banner(title, author string) string {
	return fmt.Sprintf("%s – %s.\n\n", title, author)
}

// ledger credits one chapter's units against the shared synthesis
// tracker without ever exceeding the chapter's raw length.
type ledger struct {
	tracker  *progress.Tracker
	budget   int64
	credited int64
}

func (l *ledger) credit(n int64) {
	n = min(n, l.budget-l.credited)
	if n <= 0 {
		return
	}
	l.credited += n
	l.tracker.Record(n)
}

// settle credits whatever the chapter has not used yet.
func (l *ledger) settle() {
	l.credit(l.budget - l.credited)
}

// Renderer produces one working file per chapter.
type Renderer struct {
	Synth      *Synthesizer
	Normalizer *textnorm.Normalizer
	Segmenter  *segment.Segmenter
	OutputDir  string
	Stem       string
	// Banner is prepended to the chapter at position 1.
	Banner  string
	Tracker *progress.Tracker
	Emit    Observer
	Logger  *log.Logger
}

// Render renders the chapter at 1-based selection position pos and
// returns its working file path and final state. The path is only
// meaningful when the state has an artifact.
func (r *Renderer) Render(ctx context.Context, pos int, ch ebook.Chapter) (_ string, _ ChapterState, err error) {
	l := &ledger{tracker: r.Tracker, budget: int64(utf8.RuneCountInString(ch.Text))}
	defer func() {
		// a failed unit earns no credit
		if err == nil {
			l.settle()
		}
	}()

	path := ChapterPath(r.OutputDir, r.Stem, pos, ch.Name)
	logger := r.Logger.With("chapter", pos)

	if _, err := os.Stat(path); err == nil {
		logger.Info("Chapter already rendered, skipping", "path", path)
		l.settle()
		r.Emit(ChapterFinished{Index: ch.Index})
		return path, StateSkipped, nil
	}

	text := r.Normalizer.Normalize(ch.Text)
	if textnorm.IsEmpty(text) {
		logger.Info("Skipping empty chapter", "name", ch.Name)
		return "", StateEmptySkipped, nil
	}
	if pos == 1 && r.Banner != "" {
		text = r.Banner + text
	}

	start := time.Now()
	r.Emit(ChapterStarted{Index: ch.Index})

	var parts []*audio.Waveform
	unit := 0
	for u := range r.Segmenter.Units(text) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", StateRendering, ctxErr
		}
		n := int64(utf8.RuneCountInString(u))
		if !speakable(u) {
			l.credit(n)
			continue
		}
		w, err := r.Synth.Synthesize(ctx, u)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", StateRendering, ctxErr
			}
			return "", StateRendering, &SynthesisError{Chapter: pos, Unit: unit, Text: u, Err: err}
		}
		if w != nil {
			parts = append(parts, w)
		}
		l.credit(n)
		unit++
	}

	if len(parts) == 0 {
		logger.Warn("No audio generated for chapter", "name", ch.Name)
		return "", StateNoAudio, nil
	}

	full, concatErr := audio.Concat(parts)
	if concatErr != nil {
		return "", StateRendering, fmt.Errorf("chapter %d: %w", pos, concatErr)
	}
	if err := audio.WriteWAV(path, full); err != nil {
		return "", StateRendering, fmt.Errorf("chapter %d: %w", pos, err)
	}

	elapsed := time.Since(start)
	logger.Info("Chapter written",
		"path", path,
		"audio", full.Duration().Round(time.Second),
		"took", elapsed.Round(time.Millisecond),
		"chars/s", fmt.Sprintf("%.0f", float64(len(text))/max(elapsed.Seconds(), 1e-3)),
	)
	r.Emit(ChapterFinished{Index: ch.Index})
	return path, StateWritten, nil
}

// speakable reports whether u has anything to pronounce.
func speakable(u string) bool {
	return strings.IndexFunc(u, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
