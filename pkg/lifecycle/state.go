package lifecycle

import (
	"fmt"
	"time"
)

// State represents the lifecycle state of a coordinated service.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateStarted
	StateStopping
	StateError
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateStarted:
		return "Started"
	case StateStopping:
		return "Stopping"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the state by name so it reads well in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for _, c := range []State{StateStopped, StateStarting, StateStarted, StateStopping, StateError} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown lifecycle state %q", string(b))
}

// Transitional reports whether the state is Starting or Stopping.
func (s State) Transitional() bool {
	return s == StateStarting || s == StateStopping
}

// validTransitions is the complete edge set. Error has no outgoing edges.
var validTransitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateStarted, StateError},
	StateStarted:  {StateStopping},
	StateStopping: {StateStopped, StateError},
}

// ValidTransition reports whether a service may move from one state to another.
func ValidTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Status is the current State together with the failure that parked the
// service in StateError. Err is nil for every other state.
type Status struct {
	State State
	Err   error
}

// String returns "Error(<cause>)" for a failed service and the state name otherwise.
func (s Status) String() string {
	if s.State == StateError && s.Err != nil {
		return fmt.Sprintf("Error(%v)", s.Err)
	}
	return s.State.String()
}

// StateChangeEvent describes a single transition.
type StateChangeEvent struct {
	Service  string
	Previous Status
	Current  Status
	Reason   string
	At       time.Time
}

// Observer is notified of every state change of a Service.
type Observer interface {
	OnStateChange(event StateChangeEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event StateChangeEvent)

// OnStateChange calls f(event).
func (f ObserverFunc) OnStateChange(event StateChangeEvent) {
	f(event)
}
