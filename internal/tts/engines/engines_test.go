package engines

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cpttripzz/Chatterblez/internal/audio"
	"github.com/cpttripzz/Chatterblez/internal/tts"
)

// recorder captures the arguments of the last fake invocation.
type recorder struct {
	name string
	args []string
}

func fakeRunner(mode string, rec *recorder) *tts.SubprocessManager {
	r := tts.NewSubprocessManager(5 * time.Second)
	r.Command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if rec != nil {
			rec.name = name
			rec.args = args
		}
		cs := append([]string{"-test.run=TestHelperProcess", "--", mode}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}
	return r
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}
	in, _ := io.ReadAll(os.Stdin)
	switch args[1] {
	case "pcm":
		// two samples per input byte
		out := make([]byte, 4*len(in))
		for i := range in {
			binary.LittleEndian.PutUint16(out[4*i:], uint16(int16(i)))
			binary.LittleEndian.PutUint16(out[4*i+2:], uint16(int16(-i)))
		}
		os.Stdout.Write(out)
		os.Exit(0)
	case "wav":
		dir, _ := os.MkdirTemp("", "wav")
		p := filepath.Join(dir, "out.wav")
		_ = audio.WriteWAV(p, audio.NewWaveform(make([]int, len(in)), 16000, 1))
		data, _ := os.ReadFile(p)
		os.Stdout.Write(data)
		os.RemoveAll(dir)
		os.Exit(0)
	case "empty":
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "voice model missing")
		os.Exit(1)
	}
	os.Exit(2)
}

func writeModel(t *testing.T, rate int) string {
	t.Helper()
	dir := t.TempDir()
	model := filepath.Join(dir, "voice.onnx")
	if err := os.WriteFile(model, []byte("onnx"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := fmt.Sprintf(`{"audio": {"sample_rate": %d}}`, rate)
	if err := os.WriteFile(model+".json", []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return model
}

func TestPiperEngine(t *testing.T) {
	model := writeModel(t, 16000)
	rec := &recorder{}
	e, err := NewPiperEngine(PiperConfig{ModelPath: model, Speaker: "3", Runner: fakeRunner("pcm", rec)})
	if err != nil {
		t.Fatalf("NewPiperEngine: %v", err)
	}
	defer e.Close()

	if got := e.Info().SampleRate; got != 16000 {
		t.Errorf("SampleRate = %d, want 16000 from model config", got)
	}

	w, err := e.Synthesize(context.Background(), "hello", tts.Voice{Speed: 2})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if w.Len() != 10 || w.SampleRate() != 16000 {
		t.Errorf("waveform = %d samples at %d Hz", w.Len(), w.SampleRate())
	}

	joined := strings.Join(rec.args, " ")
	for _, want := range []string{"--model " + model, "--output-raw", "--length-scale 0.50", "--speaker 3"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestPiperEngineDefaults(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "voice.onnx")
	if err := os.WriteFile(model, []byte("onnx"), 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := NewPiperEngine(PiperConfig{ModelPath: model, Runner: fakeRunner("pcm", nil)})
	if err != nil {
		t.Fatalf("NewPiperEngine: %v", err)
	}
	if e.Info().SampleRate != piperDefaultRate {
		t.Errorf("SampleRate = %d, want default", e.Info().SampleRate)
	}

	if _, err := NewPiperEngine(PiperConfig{}); err == nil {
		t.Error("expected error without a model")
	}
	if _, err := NewPiperEngine(PiperConfig{ModelPath: filepath.Join(dir, "missing.onnx")}); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestPiperEngineErrors(t *testing.T) {
	model := writeModel(t, 22050)

	tests := []struct {
		name string
		mode string
		code tts.ErrorCode
	}{
		{"process failure", "fail", tts.ErrorCodeEngineFailure},
		{"no output", "empty", tts.ErrorCodeNoAudio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewPiperEngine(PiperConfig{ModelPath: model, Runner: fakeRunner(tt.mode, nil)})
			if err != nil {
				t.Fatal(err)
			}
			_, err = e.Synthesize(context.Background(), "hello", tts.Voice{Speed: 1})
			var ee *tts.EngineError
			if !errors.As(err, &ee) {
				t.Fatalf("error %v is not an EngineError", err)
			}
			if ee.Code != tt.code {
				t.Errorf("code = %s, want %s", ee.Code, tt.code)
			}
		})
	}

	e, _ := NewPiperEngine(PiperConfig{ModelPath: model, Runner: fakeRunner("pcm", nil)})
	if _, err := e.Synthesize(context.Background(), "", tts.Voice{Speed: 1}); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("empty text error = %v", err)
	}
	_ = e.Close()
	if _, err := e.Synthesize(context.Background(), "x", tts.Voice{Speed: 1}); !errors.Is(err, tts.ErrEngineClosed) {
		t.Errorf("closed engine error = %v", err)
	}
}

func TestPocketEngine(t *testing.T) {
	rec := &recorder{}
	e := NewPocketEngine(PocketConfig{Voice: "alba", Runner: fakeRunner("wav", rec)})

	w, err := e.Synthesize(context.Background(), "some text", tts.Voice{Speed: 1})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if w.SampleRate() != 16000 || w.Len() != len("some text") {
		t.Errorf("waveform = %d samples at %d Hz", w.Len(), w.SampleRate())
	}
	if got := e.Info().SampleRate; got != 16000 {
		t.Errorf("Info().SampleRate = %d after synthesis", got)
	}
	if !strings.Contains(strings.Join(rec.args, " "), "--voice alba") {
		t.Errorf("args = %v", rec.args)
	}

	prompt := filepath.Join(t.TempDir(), "ref.wav")
	if err := os.WriteFile(prompt, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := e.Condition(context.Background(), prompt); err != nil {
		t.Fatalf("Condition: %v", err)
	}
	if _, err := e.Synthesize(context.Background(), "more", tts.Voice{Speed: 1}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(rec.args, " "), "--voice "+prompt) {
		t.Errorf("prompt not passed as voice: %v", rec.args)
	}

	if err := e.Condition(context.Background(), filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("expected error for missing prompt")
	}
}

func TestCommandEngine(t *testing.T) {
	rec := &recorder{}
	e, err := NewCommandEngine(CommandConfig{
		Command:    `my-tts --voice "{voice}" --rate {speed}`,
		SampleRate: 8000,
		Runner:     fakeRunner("pcm", rec),
	})
	if err != nil {
		t.Fatalf("NewCommandEngine: %v", err)
	}

	w, err := e.Synthesize(context.Background(), "abc", tts.Voice{Name: "Jane Doe", Speed: 1.5})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if w.SampleRate() != 8000 || w.Len() != 6 {
		t.Errorf("waveform = %d samples at %d Hz", w.Len(), w.SampleRate())
	}
	if rec.name != "my-tts" {
		t.Errorf("name = %q", rec.name)
	}
	want := []string{"--voice", "Jane Doe", "--rate", "1.50"}
	if strings.Join(rec.args, "|") != strings.Join(want, "|") {
		t.Errorf("args = %q, want %q", rec.args, want)
	}

	wavEngine, err := NewCommandEngine(CommandConfig{Command: "x", Runner: fakeRunner("wav", nil)})
	if err != nil {
		t.Fatal(err)
	}
	w, err = wavEngine.Synthesize(context.Background(), "abcd", tts.Voice{Speed: 1})
	if err != nil {
		t.Fatalf("wav Synthesize: %v", err)
	}
	if w.SampleRate() != 16000 {
		t.Errorf("WAV output sample rate = %d", w.SampleRate())
	}

	if _, err := NewCommandEngine(CommandConfig{Command: "  "}); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := NewCommandEngine(CommandConfig{Command: `broken "quote`}); err == nil {
		t.Error("expected error for unbalanced quotes")
	}
}

func TestMockEngine(t *testing.T) {
	e := NewMockEngine(MockConfig{SampleRate: 1000, MsPerChar: 10, FailOn: "BOOM"})

	w, err := e.Synthesize(context.Background(), "hello", tts.Voice{Speed: 1})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if w.Len() != 50 {
		t.Errorf("Len = %d, want 50", w.Len())
	}

	if _, err := e.Synthesize(context.Background(), "BOOM here", tts.Voice{Speed: 1}); !errors.Is(err, tts.ErrSynthesisFailed) {
		t.Errorf("forced failure = %v", err)
	}
	if got := e.Calls(); len(got) != 2 || got[1] != "BOOM here" {
		t.Errorf("Calls = %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Synthesize(ctx, "x", tts.Voice{Speed: 1}); !errors.Is(err, tts.ErrCanceled) {
		t.Errorf("canceled = %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		engine  string
		wantErr bool
	}{
		{"mock", false},
		{"MOCK", false},
		{"pocket", false},
		{"command", true}, // empty command line
		{"piper", true},   // missing model
		{"espeak", true},
	}
	for _, tt := range tests {
		_, err := New(Config{Engine: tt.engine})
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.engine, err, tt.wantErr)
		}
	}
	if _, err := New(Config{Engine: "espeak"}); !errors.Is(err, tts.ErrInvalidEngine) {
		t.Errorf("unknown engine error = %v", err)
	}
}
