package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// fakeCommand re-executes the test binary as TestHelperProcess.
func fakeCommand(mode string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", mode, name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}
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
	switch args[1] {
	case "echo":
		in, _ := io.ReadAll(os.Stdin)
		fmt.Print(strings.ToUpper(string(in)))
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "model exploded")
		os.Exit(3)
	case "sleep":
		time.Sleep(5 * time.Second)
		os.Exit(0)
	}
	os.Exit(2)
}

func withFake(t *testing.T, mode string) {
	t.Helper()
	orig := commandContext
	commandContext = fakeCommand(mode)
	t.Cleanup(func() { commandContext = orig })
}

func TestExecuteWithStdin(t *testing.T) {
	withFake(t, "echo")
	sm := NewSubprocessManager(5 * time.Second)

	out, err := sm.ExecuteWithStdin(context.Background(), []byte("hello world"), "engine")
	if err != nil {
		t.Fatalf("ExecuteWithStdin: %v", err)
	}
	if string(out) != "HELLO WORLD" {
		t.Errorf("output = %q, want %q", out, "HELLO WORLD")
	}
}

func TestExecuteWithStdinFailure(t *testing.T) {
	withFake(t, "fail")
	sm := NewSubprocessManager(5 * time.Second)

	_, err := sm.ExecuteWithStdin(context.Background(), []byte("x"), "engine")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model exploded") {
		t.Errorf("error %q does not carry stderr", err)
	}
}

func TestExecuteWithStdinTimeout(t *testing.T) {
	withFake(t, "sleep")
	sm := NewSubprocessManager(100 * time.Millisecond)

	_, err := sm.ExecuteWithStdin(context.Background(), []byte("x"), "engine")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestExecuteWithStdinCanceled(t *testing.T) {
	sm := NewSubprocessManager(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sm.ExecuteWithStdin(ctx, []byte("x"), "engine")
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("error = %v, want ErrCanceled", err)
	}
}

func TestCheckBinary(t *testing.T) {
	if _, err := CheckBinary("nonexistent_command_xyz"); err == nil {
		t.Error("expected error for missing binary")
	}
	if _, err := CheckBinary(os.Args[0]); err != nil {
		t.Errorf("CheckBinary(test binary) = %v", err)
	}
}

func TestVoiceValidate(t *testing.T) {
	tests := []struct {
		speed   float64
		wantErr bool
	}{
		{1.0, false},
		{0.25, false},
		{4.0, false},
		{0.1, true},
		{5, true},
	}
	for _, tt := range tests {
		err := Voice{Speed: tt.speed}.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Voice{Speed: %v}.Validate() = %v, wantErr %v", tt.speed, err, tt.wantErr)
		}
	}
	if got := (Voice{Speed: 1}).String(); got != "default@1.00" {
		t.Errorf("String() = %q", got)
	}
}

func TestEngineErrorWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := NewEngineError("piper", ErrorCodeEngineFailure, "synthesis failed", cause)
	if !errors.Is(err, cause) {
		t.Error("EngineError does not unwrap to its cause")
	}
	if got := err.Error(); got != "piper: ENGINE_FAILURE: synthesis failed: boom" {
		t.Errorf("Error() = %q", got)
	}
	if err.IsFatal() {
		t.Error("engine failure should not be fatal")
	}
}
