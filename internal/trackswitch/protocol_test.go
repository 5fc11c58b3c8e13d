// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package trackswitch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/playback"
	"github.com/ManuGH/segplay/internal/playback/playbacktest"
	"github.com/ManuGH/segplay/internal/tracks"
	"github.com/ManuGH/segplay/internal/trackswitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testItem() media.Item {
	def := 2
	return media.Item{
		ID: "item-1",
		MediaSources: []media.MediaSource{{
			ID:                      "ms-item-1",
			SupportsDirectPlay:      true,
			SupportsTranscoding:     true,
			DefaultAudioStreamIndex: &def,
			MediaStreams: []media.MediaStream{
				{Index: 0, Type: media.StreamVideo, Codec: "h264"},
				{Index: 2, Type: media.StreamAudio, Codec: "aac", Language: "eng", IsDefault: true},
				{Index: 5, Type: media.StreamAudio, Codec: "aac", Language: "es"},
				{Index: 7, Type: media.StreamSubtitle, Codec: "subrip", Language: "eng"},
				{Index: 8, Type: media.StreamSubtitle, Codec: "ass", Language: "eng"},
				{Index: 9, Type: media.StreamSubtitle, Codec: "subrip", Language: "fre"},
			},
		}},
	}
}

func trackState() tracks.State {
	return tracks.Derive(testItem(), tracks.Preferences{}, tracks.Pick{}, tracks.Pick{})
}

func intp(v int) *int { return &v }

// liveSession builds a real playback session loaded with first.
func liveSession(t *testing.T, build playbacktest.BuildFunc, first playback.Plan) (*playback.Session, *playbacktest.MockResolver, *playbacktest.MockTracker) {
	t.Helper()
	resolver := &playbacktest.MockResolver{}
	tracker := &playbacktest.MockTracker{}
	resolver.On("Resolve", mock.Anything, playbacktest.Forced(false)).Return(first, nil).Once()
	if first.Strategy == playback.StrategyTranscoded {
		tracker.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
	}
	s := playback.NewSession(context.Background(), playback.Options{
		Item:     testItem(),
		Selector: playback.NewSelector(resolver, time.Second),
		Surfaces: playbacktest.NewFactory(build),
		Tracker:  tracker,
	})
	require.NoError(t, s.Load(context.Background()))
	return s, resolver, tracker
}

func TestSwitchAudio_DirectWithoutNativeTracksSwapsToTranscoded(t *testing.T) {
	ctx := context.Background()
	session, resolver, tracker := liveSession(t, nil, playbacktest.DirectPlan("item-1"))
	resolver.On("Resolve", mock.Anything, mock.MatchedBy(func(req playback.ResolveRequest) bool {
		return req.ForceTranscode && req.AudioStreamIndex != nil && *req.AudioStreamIndex == 5
	})).Return(playbacktest.TranscodedPlan("item-1", "ps-1"), nil).Once()
	tracker.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
	before := session.Surface()

	state := trackState()
	require.Equal(t, 2, *state.ActiveAudioIndex)

	res, err := trackswitch.New(session, trackswitch.Options{}).SwitchAudio(ctx, state, 5)
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindReloadRequired, res.Kind)
	assert.True(t, res.ReloadRequired())
	assert.Equal(t, session.URL(), res.URL())
	assert.NotEqual(t, before.ID(), session.Surface().ID())

	strategy, _ := session.Strategy()
	assert.Equal(t, playback.StrategyTranscoded, strategy)
	require.NotNil(t, session.AudioStreamIndex())
	assert.Equal(t, 5, *session.AudioStreamIndex())

	after := tracks.Derive(testItem(), tracks.Preferences{}, tracks.Pick{Key: state.Key, Index: res.ServerIndex}, tracks.Pick{})
	assert.Equal(t, 5, *after.ActiveAudioIndex)

	tracker.On("Stop", mock.Anything, mock.Anything).Return(nil).Once()
	session.Dispose(ctx)
}

func TestSwitchAudio_UnknownIndexHasNoSideEffect(t *testing.T) {
	ctx := context.Background()
	session, resolver, _ := liveSession(t, nil, playbacktest.DirectPlan("item-1"))
	defer session.Dispose(ctx)
	surface := session.Surface()

	_, err := trackswitch.New(session, trackswitch.Options{}).SwitchAudio(ctx, trackState(), 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, trackswitch.ErrTrackUnavailable)
	assert.True(t, trackswitch.IsTrackUnavailable(err))
	assert.Equal(t, trackswitch.CodeTrackUnavailable, trackswitch.CodeOf(err))
	assert.Same(t, surface, session.Surface())
	resolver.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestSwitchAudio_ActiveTrackIsUnchanged(t *testing.T) {
	ctx := context.Background()
	session, resolver, _ := liveSession(t, nil, playbacktest.DirectPlan("item-1"))
	defer session.Dispose(ctx)

	res, err := trackswitch.New(session, trackswitch.Options{}).SwitchAudio(ctx, trackState(), 2)
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindUnchanged, res.Kind)
	assert.False(t, res.Applied())
	resolver.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestSwitchAudio_DirectNativeTracksSwitchInPlace(t *testing.T) {
	ctx := context.Background()
	var native *playbacktest.NativeAudio
	build := func(base *playbacktest.Surface, _ playback.Plan) playback.Surface {
		native = playbacktest.NewNativeAudio("en", "spa")
		return &playbacktest.MultiAudioSurface{Surface: base, TextHost: playbacktest.NewTextHost(), NativeAudio: native}
	}
	session, resolver, _ := liveSession(t, build, playbacktest.DirectPlan("item-1"))
	defer session.Dispose(ctx)

	res, err := trackswitch.New(session, trackswitch.Options{}).SwitchAudio(ctx, trackState(), 5)
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindSwitched, res.Kind)
	assert.False(t, res.ReloadRequired())
	assert.Equal(t, 1, native.Enabled())
	assert.Equal(t, 5, *session.AudioStreamIndex())
	resolver.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestSwitchAudio_NativeEnableFailureIsAPIUnsupported(t *testing.T) {
	ctx := context.Background()
	build := func(base *playbacktest.Surface, _ playback.Plan) playback.Surface {
		native := playbacktest.NewNativeAudio("eng", "es")
		native.SetEnableErr(errors.New("not allowed"))
		return &playbacktest.MultiAudioSurface{Surface: base, TextHost: playbacktest.NewTextHost(), NativeAudio: native}
	}
	session, _, _ := liveSession(t, build, playbacktest.DirectPlan("item-1"))
	defer session.Dispose(ctx)

	_, err := trackswitch.New(session, trackswitch.Options{}).SwitchAudio(ctx, trackState(), 5)
	assert.ErrorIs(t, err, trackswitch.ErrAPIUnsupported)
}

func TestSwitchAudio_TranscodedEngineTracksSwitchInPlace(t *testing.T) {
	ctx := context.Background()
	var engine *playbacktest.Engine
	build := func(base *playbacktest.Surface, _ playback.Plan) playback.Surface {
		engine = playbacktest.NewEngine([]playback.EngineTrack{{Name: "English", Language: "eng"}, {Name: "Spanish", Language: "spa"}}, nil)
		return playbacktest.NewEngineSurface(base, engine)
	}
	session, _, tracker := liveSession(t, build, playbacktest.TranscodedPlan("item-1", "ps-1"))

	res, err := trackswitch.New(session, trackswitch.Options{}).SwitchAudio(ctx, trackState(), 5)
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindSwitched, res.Kind)
	assert.Equal(t, 1, engine.SelectedAudio())

	tracker.On("Stop", mock.Anything, mock.Anything).Return(nil).Once()
	session.Dispose(ctx)
}

func TestSwitchAudio_TranscodedSingleTrackReloads(t *testing.T) {
	ctx := context.Background()
	session, resolver, tracker := liveSession(t, nil, playbacktest.TranscodedPlan("item-1", "ps-1"))
	resolver.On("Resolve", mock.Anything, playbacktest.Forced(true)).
		Return(playbacktest.TranscodedPlan("item-1", "ps-2"), nil).Once()
	tracker.On("Stop", mock.Anything, mock.MatchedBy(func(r playback.Report) bool { return r.PlaySessionID == "ps-1" })).Return(nil).Once()
	tracker.On("Start", mock.Anything, mock.MatchedBy(func(r playback.Report) bool { return r.PlaySessionID == "ps-2" })).Return(nil).Once()

	res, err := trackswitch.New(session, trackswitch.Options{}).SwitchAudio(ctx, trackState(), 5)
	require.NoError(t, err)
	assert.True(t, res.ReloadRequired())
	assert.Equal(t, "ps-2", res.Plan.PlaySessionID)
	assert.Equal(t, playback.StateTranscoded, session.State())

	tracker.On("Stop", mock.Anything, mock.Anything).Return(nil).Once()
	session.Dispose(ctx)
	tracker.AssertExpectations(t)
}

func TestSwitchAudio_SwapFailureIsReported(t *testing.T) {
	ctx := context.Background()
	session, resolver, _ := liveSession(t, nil, playbacktest.DirectPlan("item-1"))
	defer session.Dispose(ctx)
	resolver.On("Resolve", mock.Anything, playbacktest.Forced(true)).
		Return(playback.Plan{}, context.DeadlineExceeded).Once()

	_, err := trackswitch.New(session, trackswitch.Options{}).SwitchAudio(ctx, trackState(), 5)
	require.Error(t, err)
	assert.Equal(t, trackswitch.CodeNetwork, trackswitch.CodeOf(err))
	strategy, _ := session.Strategy()
	assert.Equal(t, playback.StrategyDirect, strategy)
}

func TestSwitchAudio_DisposedSessionIsCanceled(t *testing.T) {
	ctx := context.Background()
	session, _, _ := liveSession(t, nil, playbacktest.DirectPlan("item-1"))
	session.Dispose(ctx)

	res, err := trackswitch.New(session, trackswitch.Options{}).SwitchAudio(ctx, trackState(), 5)
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindCanceled, res.Kind)
	assert.False(t, res.Applied())
}
