// Package tui draws a running phase in the terminal and paints bell flashes
// across the whole window.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/fsm"
	"github.com/rbright/debatebell/internal/session"
)

const refreshInterval = 200 * time.Millisecond

// Timer is the part of session.Controller the clock drives.
type Timer interface {
	Status() session.Status
	Pause() error
	Resume() error
	Stop() error
	RingBell(rings int)
	POI() error
	Done() <-chan struct{}
}

type tickMsg time.Time

type doneMsg struct{}

// Clock is the bubbletea model for one phase.
type Clock struct {
	timer   Timer
	screen  *Screen
	status  session.Status
	width   int
	height  int
	lastErr string
}

// NewClock builds the model. screen may be nil when flashing is off.
func NewClock(timer Timer, screen *Screen) Clock {
	return Clock{timer: timer, screen: screen, status: timer.Status()}
}

func (c Clock) Init() tea.Cmd {
	return tea.Batch(tick(), waitDone(c.timer.Done()))
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func (c Clock) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return c.handleKey(msg)

	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		return c, nil

	case tickMsg:
		c.status = c.timer.Status()
		return c, tick()

	case flashMsg:
		return c, nil

	case doneMsg:
		c.status = c.timer.Status()
		return c, tea.Quit
	}
	return c, nil
}

func (c Clock) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	key := msg.String()
	switch key {
	case "q", "esc", "ctrl+c":
		_ = c.timer.Stop()
		c.status = c.timer.Status()
		return c, tea.Quit
	case " ":
		if c.status.State == fsm.TimerRunning {
			err = c.timer.Pause()
		} else {
			err = c.timer.Resume()
		}
	case "p":
		err = c.timer.Pause()
	case "r":
		err = c.timer.Resume()
	case "b":
		c.timer.RingBell(1)
	case "i":
		if !c.status.POIs {
			return c, nil
		}
		err = c.timer.POI()
	default:
		if n, convErr := strconv.Atoi(key); convErr == nil && n >= 1 && n <= 9 {
			c.timer.RingBell(n)
		} else {
			return c, nil
		}
	}

	c.lastErr = ""
	if err != nil {
		c.lastErr = err.Error()
	}
	c.status = c.timer.Status()
	return c, nil
}

func (c Clock) View() string {
	var b strings.Builder

	s := c.status
	overtime := s.Overtime()
	label := s.Label
	if label == "" {
		label = "Debate timer"
	}
	badge := stateStyle(s.State, overtime).Render(stateLabel(s.State, overtime))
	b.WriteString(headerStyle.Render(label) + "  " + badge + "\n")

	if desc := s.Period.DescriptionText(); desc != "" {
		b.WriteString(periodStyle.Render(desc) + "\n")
	}

	b.WriteString(clockStyle.Render(bell.Clock(s.Elapsed)+" / "+bell.Clock(s.Length)) + "\n")

	switch {
	case overtime:
		b.WriteString(errorStyle.Render(fmt.Sprintf("+%s over", bell.Clock(s.Elapsed-s.Length))) + "\n")
	case s.HasNext:
		b.WriteString(mutedStyle.Render("next bell "+bell.Clock(s.NextBell)) + "\n")
	default:
		b.WriteString(mutedStyle.Render("no more bells") + "\n")
	}
	if s.Ringing {
		b.WriteString("ringing\n")
	}
	if c.lastErr != "" {
		b.WriteString(errorStyle.Render(c.lastErr) + "\n")
	}
	help := "space pause/resume · b bell · 1-9 rings · q stop"
	if s.POIs {
		help = "space pause/resume · b bell · 1-9 rings · i POI · q stop"
	}
	b.WriteString("\n" + mutedStyle.Render(help))

	return c.paint(b.String())
}

// paint fills the window with the flash colour, or the period background.
func (c Clock) paint(body string) string {
	colour, ok := c.background()
	if !ok || c.width <= 0 || c.height <= 0 {
		return body
	}
	return lipgloss.NewStyle().
		Width(c.width).
		Height(c.height).
		Background(lipgloss.Color(colour.Hex())).
		Render(body)
}

func (c Clock) background() (bell.Colour, bool) {
	if c.screen != nil {
		if colour, on := c.screen.Current(); on {
			return colour, true
		}
	}
	return c.status.Period.BackgroundColour()
}
