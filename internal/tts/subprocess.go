package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// CommandFunc builds the command for one engine invocation.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// commandContext is replaced in tests to run a fake engine binary.
var commandContext CommandFunc = exec.CommandContext

// SubprocessManager runs engine binaries one at a time with text on stdin.
type SubprocessManager struct {
	// mutex serializes engine invocations
	mu sync.Mutex

	defaultTimeout time.Duration
	env            []string

	// Command overrides how processes are built. Nil uses os/exec.
	Command CommandFunc
}

// NewSubprocessManager creates a new subprocess manager. A non-positive
// timeout disables the per-call deadline.
func NewSubprocessManager(timeout time.Duration, env ...string) *SubprocessManager {
	return &SubprocessManager{
		defaultTimeout: timeout,
		env:            env,
	}
}

// ExecuteWithStdin runs name with input wired to stdin before the process
// starts and returns stdout.
func (sm *SubprocessManager) ExecuteWithStdin(ctx context.Context, input []byte, name string, args ...string) ([]byte, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	if sm.defaultTimeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, sm.defaultTimeout)
			defer cancel()
		}
	}

	command := sm.Command
	if command == nil {
		command = commandContext
	}
	cmd := command(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(input)
	if len(sm.env) > 0 {
		cmd.Env = append(cmd.Environ(), sm.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start process: %w", err)
	}
	err := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, name, sm.defaultTimeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrCanceled, ctxErr)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("subprocess failed: %w\nstderr: %s", err, msg)
		}
		return nil, fmt.Errorf("subprocess failed: %w", err)
	}

	return stdout.Bytes(), nil
}

// CheckBinary resolves name in PATH.
func CheckBinary(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("binary '%s' not found in PATH: %w", name, err)
	}
	return path, nil
}
