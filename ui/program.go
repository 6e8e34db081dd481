package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cpttripzz/Chatterblez/internal/pipeline"
)

// NewProgram returns the Bubble Tea program for one conversion.
func NewProgram(cfg Config, chapters []ChapterInfo, cancel context.CancelFunc) *tea.Program {
	opts := []tea.ProgramOption{tea.WithoutSignalHandler()}
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(NewModel(cfg, chapters, cancel), opts...)
}

// Observer forwards pipeline events to p.
func Observer(p *tea.Program) pipeline.Observer {
	return func(e pipeline.Event) {
		p.Send(EventMsg{Event: e})
	}
}
