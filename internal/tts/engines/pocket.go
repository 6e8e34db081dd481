package engines

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cpttripzz/Chatterblez/internal/audio"
	"github.com/cpttripzz/Chatterblez/internal/tts"
)

// PocketEngine drives the pocket-tts CLI. It reads text from stdin and
// writes a WAV stream to stdout. The --voice flag accepts either a voice
// name or a reference recording, which is how audio prompts are applied.
type PocketEngine struct {
	binary string
	voice  string
	config string
	runner *tts.SubprocessManager

	mu     sync.Mutex
	prompt string
	rate   int
	closed bool
}

// PocketConfig configures PocketEngine.
type PocketConfig struct {
	Binary  string // "pocket-tts" when empty
	Voice   string // default voice
	Config  string // optional model config
	Timeout time.Duration
	Runner  *tts.SubprocessManager
}

// NewPocketEngine creates a pocket-tts engine.
func NewPocketEngine(config PocketConfig) *PocketEngine {
	if config.Binary == "" {
		config.Binary = "pocket-tts"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}
	runner := config.Runner
	if runner == nil {
		runner = tts.NewSubprocessManager(config.Timeout)
	}
	return &PocketEngine{
		binary: config.Binary,
		voice:  config.Voice,
		config: config.Config,
		runner: runner,
	}
}

// Condition makes every later synthesis clone the voice in promptPath.
func (e *PocketEngine) Condition(_ context.Context, promptPath string) error {
	if _, err := os.Stat(promptPath); err != nil {
		return tts.NewEngineError("pocket", tts.ErrorCodeInvalidInput, "audio prompt not readable", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompt = promptPath
	return nil
}

// Synthesize converts text to audio using pocket-tts.
func (e *PocketEngine) Synthesize(ctx context.Context, text string, voice tts.Voice) (*audio.Waveform, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, tts.ErrEngineClosed
	}
	if text == "" {
		return nil, tts.ErrEmptyText
	}

	out, err := e.runner.ExecuteWithStdin(ctx, []byte(text), e.binary, e.args(voice)...)
	if err != nil {
		if errors.Is(err, tts.ErrCanceled) {
			return nil, err
		}
		return nil, tts.NewEngineError("pocket", tts.ErrorCodeEngineFailure, "pocket-tts failed", err)
	}
	if len(out) == 0 {
		return nil, tts.NewEngineError("pocket", tts.ErrorCodeNoAudio, "empty stdout, no WAV produced", tts.ErrNoAudio)
	}

	w, err := audio.DecodeWAV(out)
	if err != nil {
		return nil, tts.NewEngineError("pocket", tts.ErrorCodeAudioFormat, "output is not a readable WAV file", err)
	}
	if w.Channels() != 1 {
		return nil, tts.NewEngineError("pocket", tts.ErrorCodeAudioFormat,
			fmt.Sprintf("expected mono output, got %d channels", w.Channels()), nil)
	}
	e.rate = w.SampleRate()
	return w, nil
}

func (e *PocketEngine) args(voice tts.Voice) []string {
	args := []string{"generate", "--text", "-", "--output-path", "-"}
	v := e.voice
	if voice.Name != "" {
		v = voice.Name
	}
	if e.prompt != "" {
		v = e.prompt
	}
	if v != "" {
		args = append(args, "--voice", v)
	}
	if e.config != "" {
		args = append(args, "--config", e.config)
	}
	return append(args, "--quiet")
}

// Info returns engine capabilities. The sample rate is known after the
// first synthesis.
func (e *PocketEngine) Info() tts.EngineInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return tts.EngineInfo{Name: "pocket", SampleRate: e.rate, Channels: 1}
}

// Validate checks that the executable resolves.
func (e *PocketEngine) Validate() error {
	if _, err := tts.CheckBinary(e.binary); err != nil {
		return tts.NewEngineError("pocket", tts.ErrorCodeEngineUnavailable, "pocket-tts not installed", err)
	}
	return nil
}

// Close releases the engine.
func (e *PocketEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var (
	_ tts.Engine      = (*PocketEngine)(nil)
	_ tts.Conditioner = (*PocketEngine)(nil)
)
