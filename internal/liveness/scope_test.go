// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package liveness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestScope_InvalidateIsIdempotent(t *testing.T) {
	s := New(context.Background())
	assert.True(t, s.Alive())
	require.NoError(t, Check(s.Context()))

	s.Invalidate()
	s.Invalidate()

	assert.False(t, s.Alive())
	err := Check(s.Context())
	assert.ErrorIs(t, err, ErrStale)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsStale(err))
}

func TestScope_BindCancelsOnInvalidate(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := New(context.Background())
	ctx, cancel := s.Bind(context.Background())
	defer cancel()

	require.NoError(t, Check(ctx))
	s.Invalidate()
	<-ctx.Done()
	assert.ErrorIs(t, Check(ctx), ErrStale)
}

func TestScope_BindCancelsOnCallerCancel(t *testing.T) {
	s := New(context.Background())
	defer s.Invalidate()

	parent, parentCancel := context.WithCancel(context.Background())
	ctx, cancel := s.Bind(parent)
	defer cancel()

	parentCancel()
	<-ctx.Done()
	assert.True(t, s.Alive(), "caller cancellation must not kill the scope")
}

func TestScope_ParentCancelInvalidates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := New(parent)
	cancel()
	<-s.Context().Done()
	assert.False(t, s.Alive())
}

func TestScope_IDsAreUnique(t *testing.T) {
	a, b := New(context.Background()), New(context.Background())
	assert.NotEqual(t, a.ID(), b.ID())
}
