package audio

import (
	"context"
	"errors"
	"sync"
)

// MockPlayer records waveforms instead of playing them.
type MockPlayer struct {
	mu     sync.Mutex
	played []*Waveform
	closed bool

	// OnPlay runs before a waveform is recorded. Returning an error fails Play.
	OnPlay func(w *Waveform) error
}

// NewMockPlayer returns an empty recorder.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Play records w.
func (m *MockPlayer) Play(ctx context.Context, w *Waveform) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w == nil || w.Len() == 0 {
		return ErrEmptyAudio
	}
	if m.OnPlay != nil {
		if err := m.OnPlay(w); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("player is closed")
	}
	m.played = append(m.played, w)
	return nil
}

// Played returns every waveform passed to Play.
func (m *MockPlayer) Played() []*Waveform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Waveform(nil), m.played...)
}

// Close marks the player closed.
func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var (
	_ Sink = (*Player)(nil)
	_ Sink = (*MockPlayer)(nil)
)
