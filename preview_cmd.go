package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cpttripzz/Chatterblez/internal/audio"
	"github.com/cpttripzz/Chatterblez/internal/ebook"
	"github.com/cpttripzz/Chatterblez/internal/pipeline"
	"github.com/cpttripzz/Chatterblez/internal/segment"
	"github.com/cpttripzz/Chatterblez/internal/tts"
)

var (
	previewChapter int
	previewUnits   int

	previewCmd = &cobra.Command{
		Use:     "preview BOOK",
		Short:   "Listen to the start of a chapter before converting",
		Long:    paragraph(fmt.Sprintf("\n%s the opening sentences of a chapter through the speakers with the configured engine and voice. Nothing is written to disk.", keyword("Play"))),
		Example: paragraph("chatterblez preview book.epub\nchatterblez preview --chapter 3 --units 10 --voice amy book.epub"),
		Args:    cobra.ExactArgs(1),
		RunE:    runPreview,
	}
)

func init() {
	previewCmd.Flags().IntVar(&previewChapter, "chapter", 0, "1-based chapter to play (default: first selected chapter)")
	previewCmd.Flags().IntVarP(&previewUnits, "units", "n", 5, "number of sentences to play")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	book, err := loadBook(args[0], cfg)
	if err != nil {
		return err
	}

	chapter, pos, err := previewTarget(book)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg)
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

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := log.NewWithOptions(os.Stderr, log.Options{})
	p := &pipeline.Previewer{
		Synth: &pipeline.Synthesizer{
			Engine:     engine,
			EngineName: cfg.TTS.Engine,
			Voice:      tts.Voice{Name: cfg.TTS.Voice, Speed: cfg.TTS.Speed},
			Cache:      unitCache,
			Logger:     log.Default(),
		},
		Normalizer: cfg.Normalizer(),
		Segmenter:  segment.New(cfg.LanguageTag(), previewUnits),
		Chapter:    pos,
		OpenSink: func(sampleRate int) (audio.Sink, error) {
			player, err := audio.NewPlayer(sampleRate)
			if err != nil {
				return nil, err
			}
			return player, nil
		},
		Logger: log.Default(),
	}

	out.Info("Playing", "chapter", strconv.Itoa(pos)+" "+chapter.Name, "voice", p.Synth.Voice)
	n, err := p.Play(ctx, chapter.Text)
	if err != nil {
		return err
	}
	out.Info("Done", "sentences", n)
	return nil
}

// previewTarget picks the --chapter position, or the first selected
// chapter.
func previewTarget(book *ebook.Book) (ebook.Chapter, int, error) {
	if previewChapter != 0 {
		if previewChapter < 1 || previewChapter > len(book.Chapters) {
			return ebook.Chapter{}, 0, fmt.Errorf("chapter %d outside 1-%d", previewChapter, len(book.Chapters))
		}
		return book.Chapters[previewChapter-1], previewChapter, nil
	}
	for i, c := range book.Chapters {
		if c.Selected {
			return c, i + 1, nil
		}
	}
	return ebook.Chapter{}, 0, pipeline.ErrNoChapters
}
