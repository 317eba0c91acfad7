// Package tui renders training progress, either as a bubbletea program or
// as plain text for non-interactive terminals.
package tui

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/blackjack-rl/internal/agent"
)

const refreshInterval = 100 * time.Millisecond

// Renderer is an agent.ProgressSink backed by a bubbletea program. Render
// only stores the latest snapshot; the program polls it on a tick, so the
// training loop never waits on the terminal.
type Renderer struct {
	latest  atomic.Pointer[agent.Progress]
	logger  *log.Logger
	onQuit  func()
	program *tea.Program
}

var _ agent.ProgressSink = (*Renderer)(nil)

// NewRenderer creates a renderer. onQuit runs when the user quits the
// display, typically to cancel training.
func NewRenderer(logger *log.Logger, onQuit func(), opts ...tea.ProgramOption) *Renderer {
	r := &Renderer{
		logger: logger.WithPrefix("tui"),
		onQuit: onQuit,
	}
	r.program = tea.NewProgram(newModel(r), opts...)
	return r
}

// Render implements agent.ProgressSink
func (r *Renderer) Render(p agent.Progress) error {
	snap := p
	snap.Stats = append([]agent.Stat(nil), p.Stats...)
	snap.LogTail = append([]string(nil), p.LogTail...)
	r.latest.Store(&snap)
	return nil
}

// Run blocks until the display exits
func (r *Renderer) Run() error {
	if _, err := r.program.Run(); err != nil {
		return fmt.Errorf("progress display: %w", err)
	}
	return nil
}

// Finish draws the final snapshot and stops the display
func (r *Renderer) Finish() {
	r.program.Send(finishedMsg{})
}

type tickMsg time.Time

type finishedMsg struct{}

type model struct {
	r        *Renderer
	bar      progress.Model
	snapshot *agent.Progress
	width    int
	quitting bool
}

func newModel(r *Renderer) *model {
	return &model{
		r:   r,
		bar: progress.New(progress.WithDefaultGradient()),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model
func (m *model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snapshot = m.r.latest.Load()
		return m, tick()

	case finishedMsg:
		m.snapshot = m.r.latest.Load()
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(msg.Width-4, 80))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.r.logger.Info("display closed by user")
			m.quitting = true
			if m.r.onQuit != nil {
				m.r.onQuit()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model
func (m *model) View() string {
	if m.snapshot == nil {
		if m.quitting {
			return ""
		}
		return InfoStyle.Render("Waiting for first episode...") + "\n"
	}
	p := m.snapshot

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Training %s", p.Agent)))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(p.Fraction()))
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(fmt.Sprintf("Episode %d / %d", p.Episode, p.Total)))
	b.WriteString("\n\n")
	b.WriteString(PanelStyle.Render(renderStats(p.Stats)))
	b.WriteString("\n")

	if len(p.LogTail) > 0 {
		b.WriteString(InfoStyle.Render(strings.Join(p.LogTail, "\n")))
		b.WriteString("\n")
	}
	if m.quitting {
		b.WriteString(WarningStyle.Render("Stopping after the current episode..."))
		b.WriteString("\n")
	} else {
		b.WriteString(InfoStyle.Render("q to stop"))
		b.WriteString("\n")
	}
	return b.String()
}

func renderStats(stats []agent.Stat) string {
	nameWidth := 0
	for _, s := range stats {
		nameWidth = max(nameWidth, lipgloss.Width(s.Name))
	}
	lines := make([]string, len(stats))
	for i, s := range stats {
		value := StatValueStyle.Render(s.Value)
		if s.Name == "Losses" {
			value = LossStyle.Render(s.Value)
		}
		name := StatNameStyle.Render(s.Name + ":" + strings.Repeat(" ", nameWidth-len(s.Name)))
		lines[i] = name + " " + value
	}
	return strings.Join(lines, "\n")
}
