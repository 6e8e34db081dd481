package pipeline

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cpttripzz/Chatterblez/internal/audio"
	"github.com/cpttripzz/Chatterblez/internal/queue"
	"github.com/cpttripzz/Chatterblez/internal/segment"
	"github.com/cpttripzz/Chatterblez/internal/textnorm"
)

// DefaultLookahead is how many clips a preview renders ahead of playback.
const DefaultLookahead = 3

// Previewer speaks text through a sink while synthesizing the next units
// in the background. Nothing is written to disk.
type Previewer struct {
	Synth      *Synthesizer
	Normalizer *textnorm.Normalizer
	Segmenter  *segment.Segmenter
	// Chapter is reported in synthesis errors.
	Chapter int
	// OpenSink is called with the sample rate of the first clip.
	OpenSink  func(sampleRate int) (audio.Sink, error)
	Lookahead int
	// MemoryLimit bounds buffered audio in bytes. Zero means no bound.
	MemoryLimit int64
	Logger      *log.Logger
}

// Play speaks text and returns how many units were played.
func (p *Previewer) Play(ctx context.Context, text string) (int, error) {
	if p.Normalizer != nil {
		text = p.Normalizer.Normalize(text)
	}
	if textnorm.IsEmpty(text) {
		return 0, ErrNoAudio
	}
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	lookahead := p.Lookahead
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}

	clips := queue.New(lookahead, p.MemoryLimit)
	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, clips.Close)
	defer stop()

	g.Go(func() error {
		defer clips.Close()
		seq := 0
		for u := range p.Segmenter.Units(text) {
			if !speakable(u) {
				continue
			}
			w, err := p.Synth.Synthesize(gctx, u)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return &SynthesisError{Chapter: p.Chapter, Unit: seq, Text: u, Err: err}
			}
			if w == nil {
				continue
			}
			if err := clips.Enqueue(queue.Clip{Seq: seq, Text: u, Audio: w}); err != nil {
				return gctx.Err()
			}
			seq++
		}
		return nil
	})

	played := 0
	g.Go(func() error {
		var sink audio.Sink
		defer func() {
			if sink != nil {
				_ = sink.Close()
			}
		}()
		for {
			c, err := clips.Dequeue()
			if errors.Is(err, queue.ErrQueueClosed) {
				return gctx.Err()
			}
			if sink == nil {
				if sink, err = p.OpenSink(c.Audio.SampleRate()); err != nil {
					return err
				}
			}
			logger.Debug("Playing unit", "seq", c.Seq, "text", preview(c.Text, 40))
			if err := sink.Play(gctx, c.Audio); err != nil {
				return err
			}
			played++
		}
	})

	err := g.Wait()
	stats := clips.Stats()
	logger.Debug("Preview finished", "played", played, "peak", stats.PeakSize)
	if err != nil {
		return played, err
	}
	if played == 0 {
		return 0, ErrNoAudio
	}
	return played, nil
}
