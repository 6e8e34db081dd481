package tts

import (
	"context"
	"fmt"

	"github.com/cpttripzz/Chatterblez/internal/audio"
)

// Engine turns one unit of text into a waveform.
//
// An Engine is a single stateful resource: callers create it once per job,
// reuse it across chapters and Close it when the job ends. Implementations
// serialize Synthesize calls themselves, so at most one synthesis is in
// flight per engine.
type Engine interface {
	// Synthesize converts text to audio for the given voice.
	Synthesize(ctx context.Context, text string, voice Voice) (*audio.Waveform, error)

	// Info returns engine capabilities and configuration.
	Info() EngineInfo

	// Validate checks if the engine is properly configured and available.
	Validate() error

	// Close releases any resources held by the engine.
	Close() error
}

// Conditioner is implemented by engines that can clone or condition a
// voice from a reference recording.
type Conditioner interface {
	Condition(ctx context.Context, promptPath string) error
}

// Voice selects how text is spoken.
type Voice struct {
	Name  string  // engine-specific voice or speaker id
	Speed float64 // 1.0 is normal speed
}

// Validate checks the speed range.
func (v Voice) Validate() error {
	if v.Speed < 0.25 || v.Speed > 4.0 {
		return fmt.Errorf("%w, got %.2f", ErrInvalidSpeed, v.Speed)
	}
	return nil
}

// String identifies the voice in logs and cache keys.
func (v Voice) String() string {
	name := v.Name
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("%s@%.2f", name, v.Speed)
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name        string // Engine name (e.g., "piper", "pocket")
	SampleRate  int    // Audio sample rate in Hz, 0 if decided per call
	Channels    int    // Number of audio channels (1=mono, 2=stereo)
	MaxTextSize int    // Maximum text size in characters, 0 for no limit
}
