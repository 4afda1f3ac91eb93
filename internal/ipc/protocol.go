package ipc

import "fmt"

// Commands understood by a running timer.
const (
	CommandStatus = "status"
	CommandPause  = "pause"
	CommandResume = "resume"
	CommandStop   = "stop"
	CommandBell   = "bell"
	CommandPOI    = "poi"
)

var knownCommands = map[string]bool{
	CommandStatus: true,
	CommandPause:  true,
	CommandResume: true,
	CommandStop:   true,
	CommandBell:   true,
	CommandPOI:    true,
}

// Request is one JSON line sent to the timer socket. Rings applies to
// CommandBell; zero means a single ring.
type Request struct {
	Command string `json:"command"`
	Rings   int    `json:"rings,omitempty"`
}

// Validate rejects unknown commands and out-of-range ring counts.
func (r Request) Validate() error {
	if !knownCommands[r.Command] {
		return fmt.Errorf("unknown command %q", r.Command)
	}
	if r.Rings < 0 || r.Rings > 9 {
		return fmt.Errorf("rings must be between 0 and 9, got %d", r.Rings)
	}
	return nil
}

// Response describes the timer after handling a request. Durations are in
// milliseconds.
type Response struct {
	OK         bool   `json:"ok"`
	State      string `json:"state,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Period     string `json:"period,omitempty"`
	ElapsedMS  int64  `json:"elapsed_ms,omitempty"`
	LengthMS   int64  `json:"length_ms,omitempty"`
	NextBellMS int64  `json:"next_bell_ms,omitempty"`
	Ringing    bool   `json:"ringing,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}
