// ABOUTME: Bubbletea model for the clock status TUI
// ABOUTME: Defines application state, key handling, and rendering
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/globesync/globesync-go/internal/protocol"
	"github.com/globesync/globesync-go/pkg/clockbridge"
	"github.com/globesync/globesync-go/pkg/clockconfig"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	// Server
	serverName string
	port       int
	panels     int

	// Clock
	cfg        clockconfig.ClockConfig
	engineTime string
	frames     int64
	attached   bool

	// Bridge
	stats clockbridge.Stats

	showDebug bool

	width  int
	height int

	control *ClockControl
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Globe Clock"))
	b.WriteString("\n\n")
	b.WriteString(m.renderServer())
	b.WriteString(m.renderClock())

	if m.showDebug {
		b.WriteString(m.renderDebug())
	}

	b.WriteString("\n")
	b.WriteString(faintStyle.Render("space:Play/Pause  +/-:Speed  r:Range  d:Debug  q:Quit"))
	return b.String()
}

func (m Model) renderServer() string {
	return row("Server", fmt.Sprintf("%s (port %d)", m.serverName, m.port)) +
		row("Panels", fmt.Sprintf("%d connected", m.panels)) + "\n"
}

func (m Model) renderClock() string {
	state := "Paused"
	if m.cfg.ShouldAnimate {
		state = "Playing"
	}
	engine := "Detached"
	if m.attached {
		engine = m.engineTime
	}

	return row("State", state) +
		row("Speed", formatMultiplier(m.cfg.Multiplier)) +
		row("Range", string(m.cfg.ClockRange)) +
		row("Start", optional(m.cfg.StartTime)) +
		row("Stop", optional(m.cfg.StopTime)) +
		row("Stored", optional(m.cfg.CurrentTime)) +
		row("Engine", engine)
}

func (m Model) renderDebug() string {
	return "\n" +
		row("Frames", fmt.Sprintf("%d", m.frames)) +
		row("Ticks", fmt.Sprintf("%d seen, %d written", m.stats.TicksSeen, m.stats.TicksAccepted)) +
		row("Applies", fmt.Sprintf("%d (%d fields skipped)", m.stats.ConfigsApplied, m.stats.FieldsSkipped)) +
		row("Zooms", fmt.Sprintf("%d", m.stats.Zooms))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.control.quit()
		return m, tea.Quit
	case " ":
		cmd := protocol.CommandPlay
		if m.cfg.ShouldAnimate {
			cmd = protocol.CommandPause
		}
		m.control.send(protocol.ClockCommand{Command: cmd})
	case "+", "=":
		m.control.send(multiplierCommand(m.cfg.Multiplier * 2))
	case "-":
		m.control.send(multiplierCommand(m.cfg.Multiplier / 2))
	case "r":
		m.control.send(protocol.ClockCommand{
			Command:    protocol.CommandRange,
			ClockRange: string(m.cfg.ClockRange.Next()),
		})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
		m.port = msg.Port
	}
	if msg.Panels != nil {
		m.panels = *msg.Panels
	}
	if msg.Config != nil {
		m.cfg = msg.Config.Clone()
	}
	if msg.EngineTime != "" {
		m.engineTime = msg.EngineTime
		m.frames = msg.Frames
	}
	if msg.Attached != nil {
		m.attached = *msg.Attached
	}
	if msg.Stats != nil {
		m.stats = *msg.Stats
	}
}

// StatusMsg updates TUI state
type StatusMsg struct {
	ServerName string
	Port       int
	Panels     *int
	Config     *clockconfig.ClockConfig
	EngineTime string
	Frames     int64
	Attached   *bool
	Stats      *clockbridge.Stats
}

func row(label, value string) string {
	return headerStyle.Render(fmt.Sprintf("%-8s", label)) + " " + valueStyle.Render(value) + "\n"
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func formatMultiplier(m float64) string {
	if m == float64(int64(m)) {
		return fmt.Sprintf("%dx", int64(m))
	}
	return fmt.Sprintf("%.2fx", m)
}

func multiplierCommand(m float64) protocol.ClockCommand {
	return protocol.ClockCommand{Command: protocol.CommandMultiplier, Multiplier: &m}
}
