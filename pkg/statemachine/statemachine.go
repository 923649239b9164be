// Package statemachine provides a small finite state machine used to drive
// multi-step flows with guarded, action-bearing transitions.
package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// State represents a state in the machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a transition.
type Event interface {
	Name() string
}

// Action executes side effects during a transition. Returning an error
// aborts the transition and leaves the machine in its current state.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard evaluates whether a transition is allowed for the given event data.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Transition defines a state change triggered by an event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard  // all must pass
	Actions []Action // executed in order before the state change
}

// StringState is a string-based State implementation.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is a string-based Event implementation.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }

// Machine is a thread-safe in-memory state machine. Transitions are
// indexed by [fromState][event] for O(1) lookup.
type Machine struct {
	initial     State
	current     State
	transitions map[string]map[string][]Transition
	mu          sync.RWMutex
}

// New creates a machine positioned at the initial state.
func New(initial State) *Machine {
	return &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[string]map[string][]Transition),
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// AddTransition registers a transition. Multiple transitions for the same
// from/event pair are allowed to support guard-based branching; the first
// one whose guards all pass wins.
func (m *Machine) AddTransition(from, to State, event Event, guards []Guard, actions []Action) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byEvent, ok := m.transitions[from.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		m.transitions[from.Name()] = byEvent
	}

	byEvent[event.Name()] = append(byEvent[event.Name()], Transition{
		From:    from,
		To:      to,
		Event:   event,
		Guards:  guards,
		Actions: actions,
	})
	return nil
}

// Fire attempts to process the event, running the actions of the first
// transition whose guards pass, then moving to its target state.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.transitions[m.current.Name()][event.Name()]
	if len(candidates) == 0 {
		return newNoTransitionError(m.current.Name(), event.Name())
	}

	var chosen *Transition
	for i := range candidates {
		if guardsPass(ctx, m.current, event, data, candidates[i].Guards) {
			chosen = &candidates[i]
			break
		}
	}
	if chosen == nil {
		return newTransitionRejectedError(m.current.Name(), event.Name())
	}

	for _, action := range chosen.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, m.current, chosen.To, event, data); err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = chosen.To
	return nil
}

// CanFire reports whether the event has at least one allowed transition
// from the current state.
func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.transitions[m.current.Name()][event.Name()] {
		if guardsPass(ctx, m.current, event, data, t.Guards) {
			return true
		}
	}
	return false
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

func guardsPass(ctx context.Context, from State, event Event, data any, guards []Guard) bool {
	for _, guard := range guards {
		if guard != nil && !guard(ctx, from, event, data) {
			return false
		}
	}
	return true
}
