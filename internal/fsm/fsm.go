// Package fsm holds the state tables for bell playback and the phase timer.
package fsm

import "fmt"

type State string

type Event string

const (
	StateInitial  State = "initial"
	StatePrepared State = "prepared"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
	StateStopped  State = "stopped"
)

const (
	EventPrepare Event = "prepare"
	EventRing    Event = "ring"
	EventClipEnd Event = "clip_end"
	EventFinish  Event = "finish"
	EventStop    Event = "stop"
	EventFail    Event = "fail"
)

// Transition returns the playback state reached by applying event to current.
func Transition(current State, event Event) (State, error) {
	if event == EventStop || event == EventFail {
		switch current {
		case StateInitial, StatePrepared, StatePlaying, StateFinished, StateStopped:
			return StateStopped, nil
		default:
			return current, fmt.Errorf("unknown state %q", current)
		}
	}

	switch current {
	case StateInitial:
		switch event {
		case EventPrepare:
			return StatePrepared, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePrepared:
		switch event {
		case EventRing:
			return StatePlaying, nil
		case EventFinish:
			return StateFinished, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePlaying:
		switch event {
		case EventRing:
			return StatePlaying, nil
		case EventClipEnd:
			return StatePrepared, nil
		case EventFinish:
			return StateFinished, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateFinished, StateStopped:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Active reports whether a state still owns a sound.
func Active(s State) bool {
	return s == StatePrepared || s == StatePlaying
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
