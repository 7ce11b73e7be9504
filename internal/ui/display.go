package ui

import (
	"github.com/0xlemi/notetrainer/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

// Sender is the part of *tea.Program a display needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Display forwards session results to a running bubbletea program.
type Display struct {
	p Sender
}

// NewDisplay creates a display feeding p.
func NewDisplay(p Sender) *Display {
	return &Display{p: p}
}

// Show implements session.Display.
func (d *Display) Show(r session.Result) {
	d.p.Send(ResultMsg(r))
}
