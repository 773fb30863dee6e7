// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the clock status view
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/globesync/globesync-go/internal/protocol"
)

// ClockControl carries clock commands and quit requests out of the TUI
type ClockControl struct {
	Commands chan protocol.ClockCommand
	Quit     chan struct{}
}

// NewClockControl creates a new clock control handler
func NewClockControl() *ClockControl {
	return &ClockControl{
		Commands: make(chan protocol.ClockCommand, 10),
		Quit:     make(chan struct{}, 1),
	}
}

func (c *ClockControl) send(cmd protocol.ClockCommand) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
	}
}

func (c *ClockControl) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(control *ClockControl) Model {
	return Model{
		control: control,
	}
}

// Run creates the TUI program; the caller starts it
func Run(control *ClockControl) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(control), tea.WithAltScreen())
	return p, nil
}
