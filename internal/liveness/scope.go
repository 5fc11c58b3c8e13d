// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package liveness ties asynchronous work to the lifetime of the view that
// started it. A Scope is invalidated exactly once; every operation bound to it
// observes the invalidation at its next suspension point.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrStale marks a result that arrived after its scope was invalidated.
// Callers treat it as a no-op, never as a failure.
var ErrStale = errors.New("liveness: scope no longer current")

// Scope is a cancellation token owned by one playback session.
type Scope struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New creates a scope derived from parent. Canceling parent invalidates the scope.
func New(parent context.Context) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{id: uuid.NewString(), ctx: ctx, cancel: cancel}
}

// ID identifies the scope in logs.
func (s *Scope) ID() string { return s.id }

// Context returns the scope's own context.
func (s *Scope) Context() context.Context { return s.ctx }

// Alive reports whether the scope has not been invalidated.
func (s *Scope) Alive() bool { return s.ctx.Err() == nil }

// Invalidate cancels the scope. It is safe to call more than once.
func (s *Scope) Invalidate() {
	s.once.Do(s.cancel)
}

// Bind derives a context that is canceled when either ctx or the scope ends.
// The returned cancel func must be called to release the link.
func (s *Scope) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	bound, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return bound, func() {
		stop()
		cancel()
	}
}

// Check returns ErrStale if ctx has ended. It is meant to be called at entry
// and after every await point.
func Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStale, err)
	}
	return nil
}

// IsStale reports whether err originates from a dead scope.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}
