// Package ui shows the progress of a conversion, either as a Bubble Tea
// program or as plain log lines when stdout is not a terminal.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/cpttripzz/Chatterblez/internal/pipeline"
	"github.com/cpttripzz/Chatterblez/internal/progress"
)

const ellipsis = "…"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).Padding(0, 1)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
)

// ChapterInfo is a chapter as listed by the UI.
type ChapterInfo struct {
	Index int
	Name  string
}

// EventMsg carries a pipeline event into the program.
type EventMsg struct {
	Event pipeline.Event
}

type chapterRow struct {
	ChapterInfo
	state rowState
}

// Model is the Bubble Tea model of a running conversion.
type Model struct {
	cfg     Config
	spinner spinner.Model
	bar     progressbar.Model
	cancel  context.CancelFunc

	rows    []chapterRow
	byIndex map[int]int
	active  int

	runID   string
	stage   progress.Stage
	percent int
	eta     string

	output   string
	err      error
	done     bool
	quitting bool
	width    int
}

// NewModel builds the model. cancel is called when the user quits
// before the job is done.
func NewModel(cfg Config, chapters []ChapterInfo, cancel context.CancelFunc) Model {
	if cfg.Width <= 0 {
		cfg.Width = 60
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 10
	}
	m := Model{
		cfg:     cfg,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:     progressbar.New(progressbar.WithDefaultGradient(), progressbar.WithWidth(cfg.Width)),
		cancel:  cancel,
		byIndex: make(map[int]int, len(chapters)),
		active:  -1,
		width:   cfg.Width + 4,
	}
	if cfg.NoColor {
		m.bar = progressbar.New(progressbar.WithSolidFill("#FFFFFF"), progressbar.WithWidth(cfg.Width))
	}
	for i, c := range chapters {
		m.rows = append(m.rows, chapterRow{ChapterInfo: c})
		m.byIndex[c.Index] = i
	}
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles key presses, resizes and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.done && m.cancel != nil {
				log.Info("Conversion canceled from the UI")
				m.cancel()
			}
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(m.cfg.Width, msg.Width-4))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		return m.handleEvent(msg.Event)
	}
	return m, nil
}

func (m Model) handleEvent(e pipeline.Event) (tea.Model, tea.Cmd) {
	switch e := e.(type) {
	case pipeline.JobStarted:
		m.runID = e.RunID
	case pipeline.Progress:
		m.stage = e.Stage
		m.percent = e.Percent
		m.eta = e.ETA
	case pipeline.ChapterStarted:
		if i, ok := m.byIndex[e.Index]; ok {
			m.rows[i].state = rowActive
			m.active = i
		}
	case pipeline.ChapterFinished:
		if i, ok := m.byIndex[e.Index]; ok {
			m.rows[i].state = rowDone
			m.active = i
		}
	case pipeline.JobFinished:
		m.output = e.Output
		m.done = true
		return m, tea.Quit
	case pipeline.JobError:
		m.err = e.Err
		if m.err == nil {
			m.err = errors.New(e.Message)
		}
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// Err is the job error, if the job failed.
func (m Model) Err() error {
	return m.err
}

// Output is the audiobook path once the job finished.
func (m Model) Output() string {
	return m.output
}

// View renders the header, the status line with its bar and the chapter
// window.
func (m Model) View() string {
	var b strings.Builder

	header := m.cfg.Title
	if m.cfg.Author != "" {
		header += " – " + m.cfg.Author
	}
	if header != "" {
		b.WriteString(titleStyle.Render(truncate.StringWithTail(header, uint(max(10, m.width-2)), ellipsis))) //nolint:gosec
		b.WriteString("\n\n")
	}

	if !m.done {
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), statusLine(m.stage, m.percent, m.eta))
	} else {
		fmt.Fprintf(&b, "  %s\n", statusLine(m.stage, m.percent, m.eta))
	}
	b.WriteString("  " + m.bar.ViewAs(float64(m.percent)/100) + "\n\n")

	b.WriteString(m.chapterList())

	switch {
	case m.err != nil:
		msg := wordwrap.String("Error: "+m.err.Error(), max(20, m.width-4))
		b.WriteString("\n" + errorStyle.Render(msg) + "\n")
	case m.output != "":
		b.WriteString("\n" + doneStyle.Render("Audiobook written to "+m.output) + "\n")
	case m.quitting:
		b.WriteString("\n" + subtleStyle.Render("Stopping…") + "\n")
	default:
		b.WriteString("\n" + subtleStyle.Render("q: stop") + "\n")
	}
	return b.String()
}

// chapterList shows a window of Rows chapters around the active one.
func (m Model) chapterList() string {
	if len(m.rows) == 0 {
		return ""
	}
	start := 0
	if m.active >= m.cfg.Rows {
		start = m.active - m.cfg.Rows + 1
	}
	end := min(len(m.rows), start+m.cfg.Rows)

	nameWidth := uint(max(10, m.width-10)) //nolint:gosec
	var b strings.Builder
	if start > 0 {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("    %d more above", start)) + "\n")
	}
	for _, r := range m.rows[start:end] {
		style := lipgloss.NewStyle().Foreground(r.state.color())
		name := truncate.StringWithTail(r.Name, nameWidth, ellipsis)
		b.WriteString(style.Render(fmt.Sprintf("  %s %s", r.state.icon(), name)) + "\n")
	}
	if end < len(m.rows) {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("    %d more below", len(m.rows)-end)) + "\n")
	}
	return b.String()
}
