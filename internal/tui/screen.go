package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/debatebell/internal/bell"
)

// flashMsg asks the program to repaint after the flash changed.
type flashMsg struct{}

// Screen is the flash renderer behind flash.Gate. Alert goroutines write it
// and the bubbletea model reads it on every repaint.
type Screen struct {
	mu     sync.Mutex
	on     bool
	colour bell.Colour
	send   func(tea.Msg)
}

// NewScreen returns a dark screen.
func NewScreen() *Screen {
	return &Screen{}
}

// Attach routes repaint requests into a running program.
func (s *Screen) Attach(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = p.Send
}

func (s *Screen) FlashOn(colour bell.Colour) {
	s.set(true, colour)
}

func (s *Screen) FlashOff() {
	s.set(false, 0)
}

// Current reports the lit colour, if any.
func (s *Screen) Current() (bell.Colour, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.colour, s.on
}

func (s *Screen) set(on bool, colour bell.Colour) {
	s.mu.Lock()
	s.on, s.colour = on, colour
	send := s.send
	s.mu.Unlock()

	if send != nil {
		send(flashMsg{})
	}
}
