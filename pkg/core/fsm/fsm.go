// Package fsm provides a small thread-safe finite state machine.
package fsm

import (
	"fmt"
	"sync"
)

// Machine is a thread-safe finite state machine over state type S and event type E
type Machine[S comparable, E comparable] struct {
	currentState S
	transitions  map[S]map[E]S
	onEnter      map[S]func(from S, event E)
	mu           sync.RWMutex
}

// New creates a new machine in the initial state
func New[S comparable, E comparable](initial S) *Machine[S, E] {
	return &Machine[S, E]{
		currentState: initial,
		transitions:  make(map[S]map[E]S),
		onEnter:      make(map[S]func(from S, event E)),
	}
}

// AddTransition adds a valid transition and returns the machine for chaining
func (m *Machine[S, E]) AddTransition(from S, event E, to S) *Machine[S, E] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transitions[from]; !ok {
		m.transitions[from] = make(map[E]S)
	}
	m.transitions[from][event] = to
	return m
}

// OnEnter sets a callback executed after entering state.
// Callbacks run with the machine lock released.
func (m *Machine[S, E]) OnEnter(state S, callback func(from S, event E)) *Machine[S, E] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnter[state] = callback
	return m
}

// Current returns the current state
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// Is reports whether the machine is in state
func (m *Machine[S, E]) Is(state S) bool {
	return m.Current() == state
}

// Trigger fires event and moves to the target state.
// Returns an error if no transition is defined from the current state.
func (m *Machine[S, E]) Trigger(event E) error {
	m.mu.Lock()
	from := m.currentState
	to, ok := m.transitions[from][event]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from state '%v' with event '%v'", from, event)
	}
	m.currentState = to
	callback := m.onEnter[to]
	m.mu.Unlock()

	if callback != nil {
		callback(from, event)
	}
	return nil
}

// CanTrigger checks if an event can be triggered from the current state
func (m *Machine[S, E]) CanTrigger(event E) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.transitions[m.currentState][event]
	return ok
}
