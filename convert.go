package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cpttripzz/Chatterblez/internal/cache"
	"github.com/cpttripzz/Chatterblez/internal/config"
	"github.com/cpttripzz/Chatterblez/internal/ebook"
	"github.com/cpttripzz/Chatterblez/internal/ffmpeg"
	"github.com/cpttripzz/Chatterblez/internal/pipeline"
	"github.com/cpttripzz/Chatterblez/internal/tts"
	"github.com/cpttripzz/Chatterblez/internal/tts/engines"
	"github.com/cpttripzz/Chatterblez/ui"
)

func execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	book, err := loadBook(args[0], cfg)
	if err != nil {
		return err
	}
	switch {
	case selectAll:
		ebook.SelectAll(book.Chapters)
	case selection != "":
		if err := ebook.Select(book.Chapters, selection); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tools, engine, err := backends(ctx, cfg, ffmpeg.LookupTools, newEngine)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	unitCache, err := openCache(cfg)
	if err != nil {
		return err
	}
	if unitCache != nil {
		defer func() { _ = unitCache.Close() }()
	}

	job := pipeline.NewJob(book)
	job.OutputDir = cfg.OutputDir
	job.Voice = tts.Voice{Name: cfg.TTS.Voice, Speed: cfg.TTS.Speed}
	job.Format = cfg.OutputFormat()
	job.Language = cfg.LanguageTag()
	job.EngineName = cfg.TTS.Engine
	job.Prompt = promptPath
	job.Year = year
	job.MaxChapters = maxChapters
	job.MaxUnits = maxUnits

	deps := pipeline.Dependencies{
		Engine:    engine,
		Assembler: ffmpeg.NewEncoder(tools, cfg.Bitrate, log.Default()),
		Prober:    ffmpeg.NewProber(tools.FFprobe, log.Default()),
		Cache:     unitCache,
		Preflight: func(ctx context.Context) error {
			// the binary may have moved while the book was loading
			_, err := ffmpeg.LookupTools(ctx, tools.FFmpeg, tools.FFprobe)
			return err
		},
		Normalizer: cfg.Normalizer(),
		Logger:     log.Default(),
	}

	run := runPlain
	if cfg.TUI && !noTUI && term.IsTerminal(int(os.Stdout.Fd())) {
		run = runTUI
	}
	res, err := run(ctx, deps, job)
	if err != nil {
		return err
	}
	verifyOutput(ctx, tools, res)
	return nil
}

type (
	toolLookup    func(ctx context.Context, ffmpegBin, ffprobeBin string) (ffmpeg.Tools, error)
	engineFactory func(cfg config.Config) (tts.Engine, error)
)

// backends resolves ffmpeg before building the speech engine, so a missing
// encoder is reported ahead of any engine error.
func backends(ctx context.Context, cfg config.Config, lookup toolLookup, build engineFactory) (ffmpeg.Tools, tts.Engine, error) {
	tools, err := lookup(ctx, cfg.FFmpeg.FFmpeg, cfg.FFmpeg.FFprobe)
	if err != nil {
		return tools, nil, err
	}
	engine, err := build(cfg)
	if err != nil {
		return tools, nil, err
	}
	return tools, engine, nil
}

// verifyOutput reads the finished audiobook back and warns when its
// chapter count does not match the rendered chapters.
func verifyOutput(ctx context.Context, tools ffmpeg.Tools, res *pipeline.Result) {
	if tools.FFprobe == "" {
		return
	}
	info, err := ffmpeg.NewProber(tools.FFprobe, log.Default()).Inspect(ctx, res.Output)
	if err != nil {
		log.Warn("Could not verify audiobook", "path", res.Output, "err", err)
		return
	}
	if len(info.Chapters) != len(res.Files) {
		log.Warn("Audiobook chapter count differs", "want", len(res.Files), "got", len(info.Chapters))
		return
	}
	log.Info("Verified audiobook", "path", res.Output, "chapters", len(info.Chapters), "cover", info.HasCover)
}

func loadBook(path string, cfg config.Config) (*ebook.Book, error) {
	book, err := ebook.Load(path, ebook.Options{PagesPerChapter: cfg.PDF.PagesPerChapter})
	if err != nil {
		return nil, fmt.Errorf("unable to load %s: %w", path, err)
	}
	log.Info("Loaded book", "title", book.Title, "author", book.Author, "chapters", len(book.Chapters))
	return book, nil
}

func newEngine(cfg config.Config) (tts.Engine, error) {
	engine, err := engines.New(cfg.EngineConfig())
	if err != nil {
		return nil, err
	}
	if err := engine.Validate(); err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("%s engine is not usable: %w", cfg.TTS.Engine, err)
	}
	return engine, nil
}

// openCache returns nil when caching is disabled.
func openCache(cfg config.Config) (*cache.CacheManager, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	dir, err := gap.NewScope(gap.User, "chatterblez").CacheDir()
	if err != nil {
		return nil, fmt.Errorf("unable to find cache directory: %w", err)
	}
	c, err := cache.NewCacheManager(cfg.CacheConfig(dir))
	if err != nil {
		return nil, fmt.Errorf("unable to open unit cache: %w", err)
	}
	return c, nil
}

func chapterInfos(job pipeline.SynthesisJob) []ui.ChapterInfo {
	infos := make([]ui.ChapterInfo, 0, len(job.Chapters))
	for _, c := range job.Chapters {
		infos = append(infos, ui.ChapterInfo{Index: c.Index, Name: c.Name})
	}
	return infos
}

func runTUI(ctx context.Context, deps pipeline.Dependencies, job pipeline.SynthesisJob) (*pipeline.Result, error) {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %v", err)
	}
	cfg.Title = job.Title
	cfg.Author = job.Author

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := ui.NewProgram(cfg, chapterInfos(job), cancel)
	runner := pipeline.NewRunner(deps, ui.Observer(p))

	type outcome struct {
		res *pipeline.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := runner.Run(ctx, job)
		done <- outcome{res, err}
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("unable to run tui program: %w", err)
	}
	// the view quits on the final event or when the user stops the job
	o := <-done
	if errors.Is(o.err, context.Canceled) {
		log.Warn("Conversion stopped, finished chapters are kept", "dir", job.OutputDir)
	}
	return o.res, o.err
}

func runPlain(ctx context.Context, deps pipeline.Dependencies, job pipeline.SynthesisJob) (*pipeline.Result, error) {
	out := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, TimeFormat: time.Kitchen})
	reporter := ui.NewReporter(out, time.Second, chapterInfos(job))
	return pipeline.NewRunner(deps, reporter.Observe).Run(ctx, job)
}
