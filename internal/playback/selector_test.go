// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ManuGH/segplay/internal/liveness"
	"github.com/ManuGH/segplay/internal/playback"
	"github.com/ManuGH/segplay/internal/playback/playbacktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSelector_ReturnsPlanAndCarriesAudioIndex(t *testing.T) {
	r := &playbacktest.MockResolver{}
	r.On("Resolve", mock.Anything, mock.Anything).Return(playbacktest.DirectPlan("item-1"), nil)

	audio := 5
	plan, err := playback.NewSelector(r, time.Second).Select(context.Background(),
		playback.ResolveRequest{Item: testItem(), AudioStreamIndex: &audio}, playback.ReasonInitial)
	require.NoError(t, err)
	assert.Equal(t, playback.StrategyDirect, plan.Strategy)
	require.NotNil(t, plan.AudioStreamIndex)
	assert.Equal(t, 5, *plan.AudioStreamIndex)
}

func TestSelector_DiscardsResultWhenCallerWentAway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &playbacktest.MockResolver{}
	r.On("Resolve", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(playbacktest.DirectPlan("item-1"), nil)

	_, err := playback.NewSelector(r, 0).Select(ctx, playback.ResolveRequest{Item: testItem()}, playback.ReasonInitial)
	assert.True(t, liveness.IsStale(err))
}

func TestSelector_DoesNotCallResolverForDeadCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &playbacktest.MockResolver{}

	_, err := playback.NewSelector(r, 0).Select(ctx, playback.ResolveRequest{Item: testItem()}, playback.ReasonInitial)
	assert.True(t, liveness.IsStale(err))
	r.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestSelector_ForcedTranscodeRejectsDirectPlan(t *testing.T) {
	r := &playbacktest.MockResolver{}
	r.On("Resolve", mock.Anything, mock.Anything).Return(playbacktest.DirectPlan("item-1"), nil)

	_, err := playback.NewSelector(r, 0).Select(context.Background(),
		playback.ResolveRequest{Item: testItem(), ForceTranscode: true}, playback.ReasonFallback)
	assert.ErrorIs(t, err, playback.ErrUnexpectedStrategy)
}

func TestSelector_RejectsUnusablePlans(t *testing.T) {
	for name, plan := range map[string]playback.Plan{
		"empty url":        {Strategy: playback.StrategyDirect},
		"relative url":     {Strategy: playback.StrategyDirect, URL: "/Videos/1/stream"},
		"unknown strategy": {Strategy: "hybrid", URL: "http://media/x"},
	} {
		t.Run(name, func(t *testing.T) {
			r := &playbacktest.MockResolver{}
			r.On("Resolve", mock.Anything, mock.Anything).Return(plan, nil)
			_, err := playback.NewSelector(r, 0).Select(context.Background(), playback.ResolveRequest{Item: testItem()}, playback.ReasonInitial)
			assert.ErrorIs(t, err, playback.ErrInvalidPlan)
		})
	}
}

func TestSelector_BoundsResolveWithTimeout(t *testing.T) {
	r := &playbacktest.MockResolver{}
	r.On("Resolve", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok)
		}).
		Return(playback.Plan{}, errors.New("upstream down"))

	_, err := playback.NewSelector(r, 50*time.Millisecond).Select(context.Background(),
		playback.ResolveRequest{Item: testItem()}, playback.ReasonInitial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}
