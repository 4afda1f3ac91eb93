package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rbright/debatebell/internal/fsm"
)

var (
	colorRunning  = lipgloss.Color("2")  // green
	colorPaused   = lipgloss.Color("3")  // yellow
	colorOvertime = lipgloss.Color("1")  // red
	colorHeader   = lipgloss.Color("12") // bright blue
	colorMuted    = lipgloss.Color("8")  // dim

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHeader)

	periodStyle = lipgloss.NewStyle().
			Italic(true)

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 4)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorOvertime).
			Bold(true)
)

// stateStyle colours the state badge.
func stateStyle(state fsm.TimerState, overtime bool) lipgloss.Style {
	switch {
	case state == fsm.TimerStopped:
		return lipgloss.NewStyle().Foreground(colorMuted)
	case state == fsm.TimerPaused || state == fsm.TimerStoppedByBell:
		return lipgloss.NewStyle().Foreground(colorPaused).Bold(true)
	case overtime:
		return lipgloss.NewStyle().Foreground(colorOvertime).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(colorRunning)
	}
}

// stateLabel is the badge text for a timer state.
func stateLabel(state fsm.TimerState, overtime bool) string {
	switch state {
	case fsm.TimerRunning:
		if overtime {
			return "OVERTIME"
		}
		return "RUNNING"
	case fsm.TimerPaused:
		return "PAUSED"
	case fsm.TimerStoppedByBell:
		return "PAUSED BY BELL"
	case fsm.TimerStopped:
		return "STOPPED"
	default:
		return "READY"
	}
}
