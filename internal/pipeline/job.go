package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/cpttripzz/Chatterblez/internal/cache"
	"github.com/cpttripzz/Chatterblez/internal/ebook"
	"github.com/cpttripzz/Chatterblez/internal/ffmpeg"
	"github.com/cpttripzz/Chatterblez/internal/progress"
	"github.com/cpttripzz/Chatterblez/internal/segment"
	"github.com/cpttripzz/Chatterblez/internal/textnorm"
	"github.com/cpttripzz/Chatterblez/internal/tts"
)

// ChapterIndexFile is the chapter metadata written next to the chapter
// files before muxing.
const ChapterIndexFile = "chapters.txt"

// Assembler runs the two ffmpeg stages. *ffmpeg.Encoder implements it.
type Assembler interface {
	Concat(ctx context.Context, req ffmpeg.ConcatRequest, observer progress.Observer) (string, error)
	Mux(ctx context.Context, req ffmpeg.MuxRequest, observer progress.Observer) (string, error)
}

// DurationProber measures rendered chapter files. *ffmpeg.Prober
// implements it.
type DurationProber interface {
	Durations(ctx context.Context, paths []string) []float64
}

// Dependencies are the collaborators a job drives. The caller owns every
// one of them and closes the engine after the run.
type Dependencies struct {
	Engine    tts.Engine
	Assembler Assembler
	Prober    DurationProber
	// Cache is optional.
	Cache *cache.CacheManager
	// Preflight runs before any work. A missing encoder fails here.
	Preflight  func(ctx context.Context) error
	Normalizer *textnorm.Normalizer
	Logger     *log.Logger
}

// SynthesisJob is the input of one run. It is not modified by Run.
type SynthesisJob struct {
	Title     string
	Author    string
	Year      string
	Stem      string
	Cover     []byte
	CoverExt  string
	Chapters  []ebook.Chapter
	Voice     tts.Voice
	OutputDir string
	// Prompt is an optional reference recording for voice conditioning.
	Prompt     string
	Format     ffmpeg.Format
	EngineName string
	Language   language.Tag

	// MaxChapters and MaxUnits cap the work for previews and tests.
	// Zero means no cap.
	MaxChapters int
	MaxUnits    int
}

// NewJob builds a job from a loaded book. Only selected chapters are
// rendered.
func NewJob(book *ebook.Book) SynthesisJob {
	return SynthesisJob{
		Title:    book.Title,
		Author:   book.Author,
		Stem:     book.Stem(),
		Cover:    book.Cover,
		CoverExt: book.CoverExt(),
		Chapters: book.Selected(),
		Voice:    tts.Voice{Speed: 1.0},
		Format:   ffmpeg.FormatM4B,
		Language: language.English,
	}
}

// Validate checks the job before anything is touched.
func (j SynthesisJob) Validate() error {
	if j.Stem == "" {
		return errors.New("job has no output name")
	}
	if j.OutputDir == "" {
		return errors.New("job has no output directory")
	}
	if j.MaxChapters < 0 || j.MaxUnits < 0 {
		return errors.New("limits must not be negative")
	}
	return j.Voice.Validate()
}

// chapters returns the chapters this run covers.
func (j SynthesisJob) chapters() []ebook.Chapter {
	if j.MaxChapters > 0 && len(j.Chapters) > j.MaxChapters {
		return j.Chapters[:j.MaxChapters]
	}
	return j.Chapters
}

// Result describes a finished run.
type Result struct {
	RunID    string
	Output   string
	States   []ChapterState
	Files    []string
	Duration time.Duration
}

// Runner executes synthesis jobs one at a time.
type Runner struct {
	deps Dependencies
	emit Observer
}

// NewRunner returns a runner that reports to observer. A nil observer
// discards events.
func NewRunner(deps Dependencies, observer Observer) *Runner {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Normalizer == nil {
		deps.Normalizer = textnorm.Default()
	}
	if observer == nil {
		observer = func(Event) {}
	}
	return &Runner{deps: deps, emit: observer}
}

// Run renders every chapter, then concatenates and muxes them into the
// final audiobook. It emits JobStarted first and exactly one of
// JobFinished or JobError last. Errors are returned unmodified.
func (r *Runner) Run(ctx context.Context, job SynthesisJob) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	r.emit(JobStarted{RunID: res.RunID})

	out, err := r.run(ctx, job, res)
	if err != nil {
		r.emit(JobError{Message: err.Error(), Err: err})
		return res, err
	}
	res.Output = out
	r.emit(JobFinished{Output: out})
	return res, nil
}

func (r *Runner) run(ctx context.Context, job SynthesisJob, res *Result) (string, error) {
	logger := r.deps.Logger.With("run", res.RunID[:8])
	started := time.Now()

	if err := job.Validate(); err != nil {
		return "", err
	}
	if r.deps.Preflight != nil {
		if err := r.deps.Preflight(ctx); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	if job.Prompt != "" {
		c, ok := r.deps.Engine.(tts.Conditioner)
		if !ok {
			return "", fmt.Errorf("%w: %s", tts.ErrConditioningUnsupported, r.deps.Engine.Info().Name)
		}
		if err := c.Condition(ctx, job.Prompt); err != nil {
			return "", fmt.Errorf("condition voice: %w", err)
		}
	}

	chapters := job.chapters()
	var total int64
	for _, ch := range chapters {
		total += int64(utf8.RuneCountInString(ch.Text))
	}
	logger.Info("Starting synthesis",
		"book", job.Title,
		"chapters", len(chapters),
		"characters", humanize.Comma(total),
		"voice", job.Voice,
	)

	tracker := progress.New(progress.StageSynthesis, total, progressEvents(r.emit))
	renderer := &Renderer{
		Synth: &Synthesizer{
			Engine:     r.deps.Engine,
			EngineName: job.EngineName,
			Voice:      job.Voice,
			Prompt:     job.Prompt,
			Cache:      r.deps.Cache,
			Logger:     logger,
		},
		Normalizer: r.deps.Normalizer,
		Segmenter:  segment.New(job.Language, job.MaxUnits),
		OutputDir:  job.OutputDir,
		Stem:       job.Stem,
		Banner:     Banner(job.Title, job.Author),
		Tracker:    tracker,
		Emit:       r.emit,
		Logger:     logger,
	}

	for i, ch := range chapters {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		path, state, err := renderer.Render(ctx, i+1, ch)
		res.States = append(res.States, state)
		if err != nil {
			return "", err
		}
		if state.HasArtifact() {
			res.Files = append(res.Files, path)
		}
	}
	res.Duration = time.Since(started)

	if len(res.Files) == 0 {
		return "", ErrNoChapters
	}
	logger.Info("Synthesis finished", "files", len(res.Files), "took", res.Duration.Round(time.Second))

	durations := r.deps.Prober.Durations(ctx, res.Files)
	marks := ffmpeg.BuildChapterIndex(durations)
	index := filepath.Join(job.OutputDir, ChapterIndexFile)
	if err := ffmpeg.WriteChapterIndexFile(index, job.Title, job.Author, marks); err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	observer := progressEvents(r.emit)
	merged, err := r.deps.Assembler.Concat(ctx, ffmpeg.ConcatRequest{
		Files:     res.Files,
		Durations: durations,
		OutputDir: job.OutputDir,
		Stem:      job.Stem,
	}, observer)
	if err != nil {
		return "", err
	}

	out, err := r.deps.Assembler.Mux(ctx, ffmpeg.MuxRequest{
		Input:        merged,
		ChapterIndex: index,
		Cover:        job.Cover,
		CoverExt:     job.CoverExt,
		OutputDir:    job.OutputDir,
		Stem:         job.Stem,
		Year:         job.Year,
		Format:       job.Format,
	}, observer)
	if err != nil {
		return "", err
	}
	logger.Info("Audiobook written", "path", out, "took", time.Since(started).Round(time.Second))
	return out, nil
}
