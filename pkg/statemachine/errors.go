package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition indicates a transition with nil states or event
	ErrInvalidTransition = errors.New("statemachine.invalid_transition")

	// ErrInvalidEvent indicates a nil event was fired
	ErrInvalidEvent = errors.New("statemachine.invalid_event")

	// ErrNoTransition indicates no transition exists for the state/event pair
	ErrNoTransition = errors.New("statemachine.no_transition")

	// ErrTransitionRejected indicates all candidate transitions were rejected by guards
	ErrTransitionRejected = errors.New("statemachine.transition_rejected")
)

func newNoTransitionError(state, event string) error {
	return fmt.Errorf("%w: state %q event %q", ErrNoTransition, state, event)
}

func newTransitionRejectedError(state, event string) error {
	return fmt.Errorf("%w: state %q event %q", ErrTransitionRejected, state, event)
}
