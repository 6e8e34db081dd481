package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/cpttripzz/Chatterblez/internal/progress"
)

// rowState is the display state of one chapter.
type rowState int

const (
	rowPending rowState = iota
	rowActive
	rowDone
)

func (s rowState) icon() string {
	switch s {
	case rowActive:
		return "▶"
	case rowDone:
		return "✓"
	default:
		return "·"
	}
}

func (s rowState) color() lipgloss.Color {
	switch s {
	case rowActive:
		return lipgloss.Color("#00AAFF") // Blue
	case rowDone:
		return lipgloss.Color("#04B575") // Green
	default:
		return lipgloss.Color("#666666") // Dark gray
	}
}

// stageLabel names a stage the way the status line shows it.
func stageLabel(s progress.Stage) string {
	switch s {
	case progress.StageSynthesis:
		return "Synthesizing"
	case progress.StageConcat:
		return "Concatenating"
	case progress.StageMux:
		return "Muxing"
	case "":
		return "Starting"
	default:
		return string(s)
	}
}

// stageColor returns the bar color for a stage.
func stageColor(s progress.Stage) lipgloss.Color {
	switch s {
	case progress.StageConcat:
		return lipgloss.Color("#FFAA00") // Orange
	case progress.StageMux:
		return lipgloss.Color("#EE6FF8") // Pink
	default:
		return lipgloss.Color("#04B575") // Green
	}
}

// statusLine renders "Synthesizing  42%  ETA 00d 00h 01m 02s".
func statusLine(s progress.Stage, percent int, eta string) string {
	if eta == "" {
		eta = progress.Unknown
	}
	label := lipgloss.NewStyle().Bold(true).Foreground(stageColor(s)).Render(fmt.Sprintf("%-13s", stageLabel(s)))
	return fmt.Sprintf("%s %3d%%  ETA %s", label, percent, eta)
}
