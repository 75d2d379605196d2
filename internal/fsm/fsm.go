package fsm

import "fmt"

type State string

type Event string

const (
	StateStopped   State = "stopped"
	StateCountdown State = "countdown"
	StateRunning   State = "running"
)

const (
	EventStart  Event = "start"
	EventGo     Event = "go"
	EventStop   Event = "stop"
	EventFinish Event = "finish"
)

// Transition is the playback state table. Countdown is a pre-running state that only a
// completed countdown (EventGo) or a stop can leave.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateStopped:
		switch event {
		case EventStart:
			return StateCountdown, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCountdown:
		switch event {
		case EventGo:
			return StateRunning, nil
		case EventStop:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRunning:
		switch event {
		case EventStop, EventFinish:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Active reports whether an advance mechanism or countdown may be live in state s.
func Active(s State) bool {
	return s == StateCountdown || s == StateRunning
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
