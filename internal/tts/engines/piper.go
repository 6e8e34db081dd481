package engines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cpttripzz/Chatterblez/internal/audio"
	"github.com/cpttripzz/Chatterblez/internal/tts"
)

const piperDefaultRate = 22050

// PiperEngine implements tts.Engine using the Piper CLI. Text goes in on
// stdin and raw 16-bit mono PCM comes back on stdout.
type PiperEngine struct {
	binary     string
	modelPath  string
	configPath string
	speaker    string
	sampleRate int

	runner *tts.SubprocessManager

	mu     sync.Mutex
	closed bool
}

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Binary is the piper executable, "piper" when empty.
	Binary string

	// Model file path (required)
	ModelPath string

	// Config file path (optional, defaults to the model path plus .json)
	ConfigPath string

	// Speaker id for multi-speaker models (optional)
	Speaker string

	// Timeout bounds one synthesis call
	Timeout time.Duration

	// Runner overrides the subprocess manager (tests)
	Runner *tts.SubprocessManager
}

type piperModelConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
}

// NewPiperEngine creates a new Piper TTS engine.
func NewPiperEngine(config PiperConfig) (*PiperEngine, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if config.ConfigPath == "" {
		config.ConfigPath = config.ModelPath + ".json"
	}
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}
	runner := config.Runner
	if runner == nil {
		runner = tts.NewSubprocessManager(config.Timeout)
	}

	return &PiperEngine{
		binary:     config.Binary,
		modelPath:  config.ModelPath,
		configPath: config.ConfigPath,
		speaker:    config.Speaker,
		sampleRate: readPiperSampleRate(config.ConfigPath),
		runner:     runner,
	}, nil
}

// readPiperSampleRate reads audio.sample_rate from the model config.
func readPiperSampleRate(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Debug("piper model config not readable, using default sample rate", "path", path, "err", err)
		return piperDefaultRate
	}
	var cfg piperModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.Audio.SampleRate <= 0 {
		log.Warn("piper model config has no sample rate, using default", "path", path)
		return piperDefaultRate
	}
	return cfg.Audio.SampleRate
}

// Synthesize converts text to audio using Piper.
func (e *PiperEngine) Synthesize(ctx context.Context, text string, voice tts.Voice) (*audio.Waveform, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, tts.ErrEngineClosed
	}
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if err := voice.Validate(); err != nil {
		return nil, tts.NewEngineError("piper", tts.ErrorCodeInvalidInput, "bad voice", err)
	}

	out, err := e.runner.ExecuteWithStdin(ctx, []byte(text), e.binary, e.args(voice)...)
	if err != nil {
		if errors.Is(err, tts.ErrCanceled) {
			return nil, err
		}
		return nil, tts.NewEngineError("piper", tts.ErrorCodeEngineFailure, "piper failed", err)
	}
	if len(out) == 0 {
		return nil, tts.NewEngineError("piper", tts.ErrorCodeNoAudio, "piper produced no audio output", tts.ErrNoAudio)
	}

	return audio.FromPCM16(out, e.sampleRate, 1)
}

func (e *PiperEngine) args(voice tts.Voice) []string {
	// Speed: 0.5 = half speed (scale 2.0), 2.0 = double speed (scale 0.5)
	lengthScale := 1.0 / voice.Speed
	args := []string{
		"--model", e.modelPath,
		"--config", e.configPath,
		"--output-raw",
		"--length-scale", strconv.FormatFloat(lengthScale, 'f', 2, 64),
	}
	speaker := e.speaker
	if voice.Name != "" {
		speaker = voice.Name
	}
	if speaker != "" {
		args = append(args, "--speaker", speaker)
	}
	return args
}

// Info returns engine capabilities and configuration.
func (e *PiperEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        "piper",
		SampleRate:  e.sampleRate,
		Channels:    1,
		MaxTextSize: 0,
	}
}

// Validate checks if the engine is properly configured and available.
func (e *PiperEngine) Validate() error {
	if _, err := tts.CheckBinary(e.binary); err != nil {
		return tts.NewEngineError("piper", tts.ErrorCodeEngineUnavailable, "piper not installed", err)
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return tts.NewEngineError("piper", tts.ErrorCodeEngineUnavailable, "model file not accessible", err)
	}
	return nil
}

// Close releases resources held by the engine.
func (e *PiperEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ tts.Engine = (*PiperEngine)(nil)
