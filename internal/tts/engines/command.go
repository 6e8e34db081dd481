package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cpttripzz/Chatterblez/internal/audio"
	"github.com/cpttripzz/Chatterblez/internal/tts"
	"github.com/mattn/go-shellwords"
)

// CommandEngine runs an arbitrary synthesis command. The text is written
// to stdin; stdout must be a WAV stream or raw 16-bit mono PCM. The
// placeholders {voice} and {speed} are substituted in each argument.
type CommandEngine struct {
	argv       []string
	sampleRate int
	runner     *tts.SubprocessManager

	mu     sync.Mutex
	closed bool
}

// CommandConfig configures CommandEngine.
type CommandConfig struct {
	Command    string // shell-style command line
	SampleRate int    // used for raw PCM output
	Timeout    time.Duration
	Runner     *tts.SubprocessManager
}

// NewCommandEngine parses the command line.
func NewCommandEngine(config CommandConfig) (*CommandEngine, error) {
	parser := shellwords.NewParser()
	argv, err := parser.Parse(config.Command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("tts command empty")
	}
	if config.SampleRate == 0 {
		config.SampleRate = 24000
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}
	runner := config.Runner
	if runner == nil {
		runner = tts.NewSubprocessManager(config.Timeout)
	}
	return &CommandEngine{argv: argv, sampleRate: config.SampleRate, runner: runner}, nil
}

// Synthesize runs the command once for text.
func (e *CommandEngine) Synthesize(ctx context.Context, text string, voice tts.Voice) (*audio.Waveform, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, tts.ErrEngineClosed
	}
	if text == "" {
		return nil, tts.ErrEmptyText
	}

	r := strings.NewReplacer(
		"{voice}", voice.Name,
		"{speed}", strconv.FormatFloat(voice.Speed, 'f', 2, 64),
	)
	args := make([]string, len(e.argv)-1)
	for i, a := range e.argv[1:] {
		args[i] = r.Replace(a)
	}

	out, err := e.runner.ExecuteWithStdin(ctx, []byte(text), e.argv[0], args...)
	if err != nil {
		if errors.Is(err, tts.ErrCanceled) {
			return nil, err
		}
		return nil, tts.NewEngineError("command", tts.ErrorCodeEngineFailure, "command failed", err).
			WithContext("command", e.argv[0])
	}
	if len(out) == 0 {
		return nil, tts.NewEngineError("command", tts.ErrorCodeNoAudio, "command produced no audio", tts.ErrNoAudio)
	}
	if bytes.HasPrefix(out, []byte("RIFF")) {
		return audio.DecodeWAV(out)
	}
	return audio.FromPCM16(out, e.sampleRate, 1)
}

// Info returns engine capabilities.
func (e *CommandEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{Name: "command", SampleRate: e.sampleRate, Channels: 1}
}

// Validate checks that the executable resolves.
func (e *CommandEngine) Validate() error {
	if _, err := tts.CheckBinary(e.argv[0]); err != nil {
		return tts.NewEngineError("command", tts.ErrorCodeEngineUnavailable, "command not found", err)
	}
	return nil
}

// Close releases the engine.
func (e *CommandEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ tts.Engine = (*CommandEngine)(nil)
