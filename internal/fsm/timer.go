package fsm

import "fmt"

// TimerState is the lifecycle of one running phase timer.
type TimerState string

// TimerEvent drives TimerState transitions.
type TimerEvent string

const (
	TimerIdle          TimerState = "idle"
	TimerRunning       TimerState = "running"
	TimerPaused        TimerState = "paused"
	TimerStoppedByBell TimerState = "stopped_by_bell"
	TimerStopped       TimerState = "stopped"
)

const (
	TimerStart     TimerEvent = "start"
	TimerPause     TimerEvent = "pause"
	TimerBellPause TimerEvent = "bell_pause"
	TimerResume    TimerEvent = "resume"
	TimerStop      TimerEvent = "stop"
)

// TimerTransition returns the timer state reached by applying event to current.
func TimerTransition(current TimerState, event TimerEvent) (TimerState, error) {
	switch current {
	case TimerIdle:
		switch event {
		case TimerStart:
			return TimerRunning, nil
		case TimerStop:
			return TimerStopped, nil
		}
	case TimerRunning:
		switch event {
		case TimerPause:
			return TimerPaused, nil
		case TimerBellPause:
			return TimerStoppedByBell, nil
		case TimerStop:
			return TimerStopped, nil
		}
	case TimerPaused, TimerStoppedByBell:
		switch event {
		case TimerResume:
			return TimerRunning, nil
		case TimerStop:
			return TimerStopped, nil
		}
	case TimerStopped:
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
	return current, fmt.Errorf("invalid transition: %s --(%s)--> ?", current, event)
}

// Counting reports whether elapsed time advances in s.
func Counting(s TimerState) bool {
	return s == TimerRunning
}
