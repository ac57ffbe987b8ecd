package domain

import "fmt"

// DispatchState tracks where a task sits in the agent dispatch lifecycle.
type DispatchState string

const (
	DispatchNone     DispatchState = "none"     // No agent involvement
	DispatchQueued   DispatchState = "queued"   // Accepted for dispatch, board transitioned
	DispatchStarting DispatchState = "starting" // Execution directory prepared, supervisor launching
	DispatchRunning  DispatchState = "running"  // Agent process alive
)

// dispatchTransitions defines the allowed dispatch transitions.
// Flow: none → queued → starting → running → none
// Every active state may also fall back to none (abort, completion, rollback).
var dispatchTransitions = map[DispatchState][]DispatchState{
	DispatchNone:     {DispatchQueued},
	DispatchQueued:   {DispatchStarting, DispatchNone},
	DispatchStarting: {DispatchRunning, DispatchNone},
	DispatchRunning:  {DispatchNone},
}

// CanTransitionTo returns true if the state can transition to the target.
func (d DispatchState) CanTransitionTo(target DispatchState) bool {
	for _, t := range dispatchTransitions[d.orNone()] {
		if t == target {
			return true
		}
	}
	return false
}

// Active returns true for any state other than none.
func (d DispatchState) Active() bool {
	return d.orNone() != DispatchNone
}

// orNone maps the zero value onto DispatchNone so tasks persisted before the
// field existed behave like idle tasks.
func (d DispatchState) orNone() DispatchState {
	if d == "" {
		return DispatchNone
	}
	return d
}

// IsValid returns true if the state is a known value.
func (d DispatchState) IsValid() bool {
	switch d {
	case DispatchNone, DispatchQueued, DispatchStarting, DispatchRunning:
		return true
	default:
		return false
	}
}

// ParseDispatchState converts user input into a DispatchState.
func ParseDispatchState(s string) (DispatchState, error) {
	d := DispatchState(s)
	if !d.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDispatchState, s)
	}
	return d, nil
}
