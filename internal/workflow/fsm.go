package workflow

import "fmt"

type State string

type Event string

const (
	StateIdle                 State = "idle"
	StateCheckingAvailability State = "checking_availability"
	StateCreatingSession      State = "creating_session"
	StateAwaitingReady        State = "awaiting_ready"
	StateInvoking             State = "invoking"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
)

const (
	EventStart     Event = "start"
	EventAvailable Event = "available"
	EventCreated   Event = "created"
	EventReady     Event = "ready"
	EventInvoked   Event = "invoked"
	EventFail      Event = "fail"
	EventReset     Event = "reset"
)

// Transition returns the state reached from current on event.
// A finished execution may be restarted before its display delay resets it to idle.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		if current == StateIdle {
			return current, invalidTransition(current, event)
		}
		return StateFailed, nil
	}

	switch current {
	case StateIdle, StateSucceeded, StateFailed:
		switch event {
		case EventStart:
			return StateCheckingAvailability, nil
		case EventReset:
			if current != StateIdle {
				return StateIdle, nil
			}
		}
	case StateCheckingAvailability:
		if event == EventAvailable {
			return StateCreatingSession, nil
		}
	case StateCreatingSession:
		if event == EventCreated {
			return StateAwaitingReady, nil
		}
	case StateAwaitingReady:
		if event == EventReady {
			return StateInvoking, nil
		}
	case StateInvoking:
		if event == EventInvoked {
			return StateSucceeded, nil
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
	return current, invalidTransition(current, event)
}

// Active reports whether an execution is between start and its terminal state.
func (s State) Active() bool {
	switch s {
	case StateCheckingAvailability, StateCreatingSession, StateAwaitingReady, StateInvoking:
		return true
	default:
		return false
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
