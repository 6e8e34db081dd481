package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Sink plays waveforms. Play blocks until playback ends or ctx is done.
type Sink interface {
	Play(ctx context.Context, w *Waveform) error
	Close() error
}

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

// Player plays PCM through the system audio device using oto. oto allows a
// single context per process, so the first player fixes the sample rate.
type Player struct {
	mu     sync.Mutex
	ctx    *oto.Context
	rate   int
	closed bool

	// keeps the PCM alive while oto reads it
	active []byte
}

// NewPlayer opens the audio device for mono 16-bit audio at sampleRate.
func NewPlayer(sampleRate int) (*Player, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if otoErr == nil {
			<-ready
			otoRate = sampleRate
		}
	})
	if otoErr != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", otoErr)
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("audio device already opened at %d Hz", otoRate)
	}
	return &Player{ctx: otoCtx, rate: sampleRate}, nil
}

// Play plays w to completion. Canceling ctx stops playback early.
func (p *Player) Play(ctx context.Context, w *Waveform) error {
	if w == nil || w.Len() == 0 {
		return ErrEmptyAudio
	}
	if w.SampleRate() != p.rate || w.Channels() != 1 {
		return fmt.Errorf("%w: player expects %d Hz mono", ErrFormatMismatch, p.rate)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("player is closed")
	}
	p.active = w.PCM16()
	player := p.ctx.NewPlayer(bytes.NewReader(p.active))
	p.mu.Unlock()

	defer func() {
		_ = player.Close()
		p.mu.Lock()
		p.active = nil
		p.mu.Unlock()
	}()

	player.Play()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close releases the player. The shared oto context stays open.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.active = nil
	return nil
}
