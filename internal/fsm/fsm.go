// Package fsm tracks the listener lifecycle reported over the control socket.
package fsm

import "fmt"

type State string

type Event string

const (
	StateStarting  State = "starting"
	StateListening State = "listening"
	StateStopping  State = "stopping"
	StateStopped   State = "stopped"
	StateError     State = "error"
)

const (
	EventReady   Event = "ready"
	EventStop    Event = "stop"
	EventDrained Event = "drained"
	EventFail    Event = "fail"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateStarting:
		switch event {
		case EventReady:
			return StateListening, nil
		case EventStop:
			return StateStopping, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventStop:
			return StateStopping, nil
		case EventDrained:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopping:
		switch event {
		case EventDrained:
			return StateStopped, nil
		case EventStop:
			return current, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopped, StateError:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
