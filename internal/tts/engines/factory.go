package engines

import (
	"fmt"
	"strings"

	"github.com/cpttripzz/Chatterblez/internal/tts"
)

// Names lists the engines New understands.
var Names = []string{"piper", "pocket", "command", "mock"}

// Config selects and configures one engine.
type Config struct {
	Engine  string
	Piper   PiperConfig
	Pocket  PocketConfig
	Command CommandConfig
	Mock    MockConfig
}

// New builds the configured engine.
func New(config Config) (tts.Engine, error) {
	switch strings.ToLower(config.Engine) {
	case "piper":
		return NewPiperEngine(config.Piper)
	case "pocket", "pocket-tts":
		return NewPocketEngine(config.Pocket), nil
	case "command", "exec":
		return NewCommandEngine(config.Command)
	case "mock":
		return NewMockEngine(config.Mock), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", tts.ErrInvalidEngine, config.Engine, strings.Join(Names, ", "))
	}
}
