// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package clock abstracts time so debounce windows and bounded waits can be
// driven deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts time for deterministic testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After waits for the duration to elapse and then sends the current time on the returned channel.
	After(d time.Duration) <-chan time.Time

	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the callers need.
type Timer interface {
	// Stop prevents the timer from firing. It reports false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Real uses system time.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Mock provides deterministic time control for testing. AfterFunc callbacks
// run synchronously inside Advance, in deadline order.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*mockWaiter
	seq     int
}

type mockWaiter struct {
	mock     *Mock
	deadline time.Time
	seq      int
	ch       chan time.Time
	fn       func()
	stopped  bool
	fired    bool
}

// NewMock creates a mock clock starting at the given time.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	m.add(d, ch, nil)
	return ch
}

func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	return m.add(d, nil, f)
}

func (m *Mock) add(d time.Duration, ch chan time.Time, fn func()) *mockWaiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	w := &mockWaiter{mock: m, deadline: m.now.Add(d), seq: m.seq, ch: ch, fn: fn}
	m.waiters = append(m.waiters, w)
	return w
}

// Pending reports how many timers have neither fired nor been stopped.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.waiters {
		if !w.fired && !w.stopped {
			n++
		}
	}
	return n
}

// Advance moves the mock clock forward and fires every timer whose deadline
// has been reached.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now

	var due []*mockWaiter
	var rest []*mockWaiter
	for _, w := range m.waiters {
		if w.stopped || w.fired {
			continue
		}
		if !w.deadline.After(now) {
			w.fired = true
			due = append(due, w)
		} else {
			rest = append(rest, w)
		}
	}
	m.waiters = rest
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].seq < due[j].seq
		}
		return due[i].deadline.Before(due[j].deadline)
	})

	for _, w := range due {
		if w.ch != nil {
			select {
			case w.ch <- now:
			default:
			}
		}
		if w.fn != nil {
			w.fn()
		}
	}
}

func (w *mockWaiter) Stop() bool {
	w.mock.mu.Lock()
	defer w.mock.mu.Unlock()
	if w.fired || w.stopped {
		return false
	}
	w.stopped = true
	return true
}
