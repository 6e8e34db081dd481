package tts

import (
	"errors"
	"fmt"
)

// Common TTS errors
var (
	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid TTS engine specified")

	// ErrEngineNotAvailable indicates the selected engine is not available
	ErrEngineNotAvailable = errors.New("selected TTS engine is not available")

	// ErrEngineClosed indicates the engine handle was already released
	ErrEngineClosed = errors.New("TTS engine is closed")

	// ErrSynthesisFailed indicates synthesis operation failed
	ErrSynthesisFailed = errors.New("text synthesis failed")

	// ErrNoAudio indicates the engine finished but produced nothing
	ErrNoAudio = errors.New("engine produced no audio")

	// ErrEmptyText indicates there was nothing to synthesize
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidSpeed indicates speed value is out of range
	ErrInvalidSpeed = errors.New("speed must be between 0.25 and 4.0")

	// ErrConditioningUnsupported indicates the engine cannot use an audio prompt
	ErrConditioningUnsupported = errors.New("engine does not support audio prompts")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// EngineError represents a TTS-specific error with additional context.
type EngineError struct {
	Code    ErrorCode
	Engine  string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	prefix := string(e.Code)
	if e.Engine != "" {
		prefix = e.Engine + ": " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// Engine errors
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeEngineTimeout     ErrorCode = "ENGINE_TIMEOUT"

	// Audio errors
	ErrorCodeAudioFormat ErrorCode = "AUDIO_FORMAT"
	ErrorCodeNoAudio     ErrorCode = "NO_AUDIO"

	// Input errors
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorCodeTextTooLong  ErrorCode = "TEXT_TOO_LONG"

	// System errors
	ErrorCodeCanceled ErrorCode = "CANCELED"
)

// NewEngineError creates a new engine error with context
func NewEngineError(engine string, code ErrorCode, message string, cause error) *EngineError {
	return &EngineError{
		Code:    code,
		Engine:  engine,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	e.Context[key] = value
	return e
}

// IsFatal returns true if the error means the engine cannot be used at all.
func (e *EngineError) IsFatal() bool {
	switch e.Code {
	case ErrorCodeEngineUnavailable:
		return true
	default:
		return false
	}
}
