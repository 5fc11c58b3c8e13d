// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fsm is a small table-driven state machine runner.
package fsm

import (
	"context"
	"fmt"
	"sync"
)

// Transition describes a single edge in the FSM.
// Guard may reject the transition; it runs outside the machine's lock.
type Transition[S ~string, E ~string] struct {
	From  S
	Event E
	To    S
	Guard func(ctx context.Context, from S, event E) error
}

// Observer is notified after every applied transition.
type Observer[S ~string, E ~string] func(from, to S, event E)

// Machine is a small, test-friendly FSM runner.
// It is strict: unknown transitions are errors.
type Machine[S ~string, E ~string] struct {
	mu       sync.Mutex
	state    S
	index    map[string]Transition[S, E]
	observer Observer[S, E]
}

// New builds a machine from a transition table. Duplicate (From, Event) pairs are rejected.
func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[string]Transition[S, E], len(transitions))
	for _, t := range transitions {
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Machine[S, E]{state: initial, index: idx}, nil
}

// MustNew is New for package-level tables that are known to be valid.
func MustNew[S ~string, E ~string](initial S, transitions []Transition[S, E]) *Machine[S, E] {
	m, err := New(initial, transitions)
	if err != nil {
		panic(err)
	}
	return m
}

// Observe installs fn as the transition observer.
func (m *Machine[S, E]) Observe(fn Observer[S, E]) {
	m.mu.Lock()
	m.observer = fn
	m.mu.Unlock()
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Can reports whether event has an edge from the current state.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[key(m.state, event)]
	return ok
}

// Fire attempts to apply an event atomically.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) (S, error) {
	m.mu.Lock()
	from := m.state
	t, ok := m.index[key(from, event)]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("invalid transition: state=%s event=%s", from, event)
	}
	to := t.To
	m.mu.Unlock()

	if t.Guard != nil {
		if err := t.Guard(ctx, from, event); err != nil {
			return from, err
		}
	}

	m.mu.Lock()
	if m.state != from {
		cur := m.state
		m.mu.Unlock()
		return cur, fmt.Errorf("concurrent transition detected: from=%s cur=%s event=%s", from, cur, event)
	}
	m.state = to
	observer := m.observer
	m.mu.Unlock()

	if observer != nil {
		observer(from, to, event)
	}
	return to, nil
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
