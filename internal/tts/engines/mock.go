package engines

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/cpttripzz/Chatterblez/internal/audio"
	"github.com/cpttripzz/Chatterblez/internal/tts"
)

// MockEngine generates a short tone per unit. It never touches the
// filesystem or the network and is used for dry runs and tests.
type MockEngine struct {
	mu         sync.Mutex
	sampleRate int
	// samples per character of input
	perChar int
	calls   []string
	prompt  string
	closed  bool

	// FailOn makes Synthesize fail for any text containing it.
	FailOn string
	// Silent makes Synthesize return an empty waveform error.
	Silent bool
}

// MockConfig configures MockEngine.
type MockConfig struct {
	SampleRate int
	MsPerChar  int
	FailOn     string
}

// NewMockEngine creates a mock engine.
func NewMockEngine(config MockConfig) *MockEngine {
	if config.SampleRate == 0 {
		config.SampleRate = 24000
	}
	if config.MsPerChar == 0 {
		config.MsPerChar = 10
	}
	return &MockEngine{
		sampleRate: config.SampleRate,
		perChar:    config.SampleRate * config.MsPerChar / 1000,
		FailOn:     config.FailOn,
	}
}

// Synthesize returns a deterministic tone whose length follows the text.
func (e *MockEngine) Synthesize(ctx context.Context, text string, voice tts.Voice) (*audio.Waveform, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrCanceled, err)
	}
	if e.closed {
		return nil, tts.ErrEngineClosed
	}
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	e.calls = append(e.calls, text)
	if e.FailOn != "" && strings.Contains(text, e.FailOn) {
		return nil, tts.NewEngineError("mock", tts.ErrorCodeEngineFailure, "forced failure", tts.ErrSynthesisFailed)
	}
	if e.Silent {
		return nil, tts.NewEngineError("mock", tts.ErrorCodeNoAudio, "silent mode", tts.ErrNoAudio)
	}

	speed := voice.Speed
	if speed <= 0 {
		speed = 1
	}
	n := int(float64(len([]rune(text))*e.perChar) / speed)
	samples := make([]int, n)
	for i := range samples {
		samples[i] = int(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(e.sampleRate)))
	}
	return audio.NewWaveform(samples, e.sampleRate, 1), nil
}

// Condition records the prompt path.
func (e *MockEngine) Condition(_ context.Context, promptPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompt = promptPath
	return nil
}

// Prompt returns the last conditioning prompt.
func (e *MockEngine) Prompt() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prompt
}

// Calls returns every text passed to Synthesize, in order.
func (e *MockEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Info returns engine capabilities.
func (e *MockEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{Name: "mock", SampleRate: e.sampleRate, Channels: 1}
}

// Validate always succeeds.
func (e *MockEngine) Validate() error { return nil }

// Close releases the engine.
func (e *MockEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var (
	_ tts.Engine      = (*MockEngine)(nil)
	_ tts.Conditioner = (*MockEngine)(nil)
)
