// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package trackswitch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/platform/clock"
	"github.com/ManuGH/segplay/internal/playback"
	"github.com/ManuGH/segplay/internal/playback/playbacktest"
	"github.com/ManuGH/segplay/internal/trackswitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubSession is a loaded session that never swaps.
type stubSession struct {
	ctx      context.Context
	strategy playback.Strategy
	surface  playback.Surface
}

func (s *stubSession) Item() media.Item         { return testItem() }
func (s *stubSession) Context() context.Context { return s.ctx }
func (s *stubSession) Strategy() (playback.Strategy, bool) {
	return s.strategy, s.strategy != ""
}
func (s *stubSession) Surface() playback.Surface { return s.surface }
func (s *stubSession) NoteAudioStreamIndex(int)  {}
func (s *stubSession) SwitchToTranscoded(context.Context, int) (playback.Plan, error) {
	return playback.Plan{}, errors.New("unexpected swap")
}
func (s *stubSession) ReloadTranscoded(context.Context, int) (playback.Plan, error) {
	return playback.Plan{}, errors.New("unexpected reload")
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchSubtitle(ctx context.Context, ref media.SubtitleRef) ([]byte, error) {
	args := m.Called(ctx, ref)
	content, _ := args.Get(0).([]byte)
	return content, args.Error(1)
}

func directStub(host *playbacktest.TextHost) *stubSession {
	return &stubSession{
		ctx:      context.Background(),
		strategy: playback.StrategyDirect,
		surface:  &playbacktest.DirectSurface{Surface: playbacktest.NewSurface("surface-1", "http://media.test/a"), TextHost: host},
	}
}

func refFor(index int) media.SubtitleRef {
	return media.SubtitleRef{ItemID: "item-1", MediaSourceID: "ms-item-1", StreamIndex: index, Format: "vtt"}
}

func TestSwitchSubtitle_OffAlwaysSucceeds(t *testing.T) {
	cases := map[string]*stubSession{
		"no surface": {ctx: context.Background()},
		"direct":     directStub(playbacktest.NewTextHost(playback.NativeTextTrack{Language: "eng", Mode: playback.TextTrackShowing})),
		"transcoded": {
			ctx:      context.Background(),
			strategy: playback.StrategyTranscoded,
			surface:  playbacktest.NewEngineSurface(playbacktest.NewSurface("s", "http://media.test/b"), playbacktest.NewEngine(nil, []playback.EngineTrack{{Name: "en"}})),
		},
	}
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	cases["dead session"] = &stubSession{ctx: canceled}

	for name, session := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := trackswitch.New(session, trackswitch.Options{}).SwitchSubtitle(context.Background(), trackState(), nil)
			require.NoError(t, err)
			assert.Equal(t, trackswitch.KindDisabled, res.Kind)
			assert.Nil(t, res.ServerIndex)
			assert.True(t, res.Applied())

			switch s := session.surface.(type) {
			case *playbacktest.DirectSurface:
				assert.Equal(t, -1, s.Showing())
			case *playbacktest.EngineSurface:
				assert.Equal(t, -1, s.FakeEngine().SelectedSubtitle())
				assert.Equal(t, []int{-1}, s.FakeEngine().SubtitleCalls())
			}
		})
	}
}

func TestSwitchSubtitle_UnknownIndexIsUnavailable(t *testing.T) {
	host := playbacktest.NewTextHost(playback.NativeTextTrack{Language: "eng", Mode: playback.TextTrackShowing})
	p := trackswitch.New(directStub(host), trackswitch.Options{})

	_, err := p.SwitchSubtitle(context.Background(), trackState(), intp(42))
	assert.ErrorIs(t, err, trackswitch.ErrTrackUnavailable)
	assert.Equal(t, 0, host.Showing(), "failed switch must not touch the showing track")
	assert.Zero(t, host.HideCalls())
}

func TestSwitchSubtitle_CustomFormatHandsOff(t *testing.T) {
	host := playbacktest.NewTextHost(playback.NativeTextTrack{Language: "eng", Mode: playback.TextTrackShowing})
	fetcher := &mockFetcher{}
	p := trackswitch.New(directStub(host), trackswitch.Options{Fetcher: fetcher})

	res, err := p.SwitchSubtitle(context.Background(), trackState(), intp(8))
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindHandoff, res.Kind)
	assert.Equal(t, 8, res.Subtitle.ServerIndex)
	assert.Equal(t, "ass", res.Subtitle.Format)
	assert.Equal(t, -1, host.Showing())
	assert.Empty(t, host.Attached())
	fetcher.AssertNotCalled(t, "FetchSubtitle", mock.Anything, mock.Anything)
}

func TestSwitchSubtitle_TranscodedSelectsEngineTrack(t *testing.T) {
	engine := playbacktest.NewEngine(nil, []playback.EngineTrack{{Name: "en"}, {Name: "en ass"}, {Name: "fr"}})
	session := &stubSession{
		ctx:      context.Background(),
		strategy: playback.StrategyTranscoded,
		surface:  playbacktest.NewEngineSurface(playbacktest.NewSurface("s", "http://media.test/b"), engine),
	}

	res, err := trackswitch.New(session, trackswitch.Options{}).SwitchSubtitle(context.Background(), trackState(), intp(9))
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindSwitched, res.Kind)
	assert.Equal(t, 2, engine.SelectedSubtitle())
}

func TestSwitchSubtitle_DirectShowsNativeTrack(t *testing.T) {
	host := playbacktest.NewTextHost(playback.NativeTextTrack{Language: "eng"})
	fetcher := &mockFetcher{}
	p := trackswitch.New(directStub(host), trackswitch.Options{Fetcher: fetcher})

	res, err := p.SwitchSubtitle(context.Background(), trackState(), intp(7))
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindSwitched, res.Kind)
	assert.Equal(t, 0, host.Showing())
	fetcher.AssertNotCalled(t, "FetchSubtitle", mock.Anything, mock.Anything)
}

func TestSwitchSubtitle_DirectFetchesMissingTrack(t *testing.T) {
	host := playbacktest.NewTextHost()
	fetcher := &mockFetcher{}
	fetcher.On("FetchSubtitle", mock.Anything, refFor(9)).Return([]byte("WEBVTT\n\n00:01.000 --> 00:02.000\nBonjour\n"), nil).Once()
	fetcher.On("FetchSubtitle", mock.Anything, refFor(7)).Return([]byte("WEBVTT\n\n00:01.000 --> 00:02.000\nHello\n"), nil).Once()
	p := trackswitch.New(directStub(host), trackswitch.Options{Fetcher: fetcher})

	res, err := p.SwitchSubtitle(context.Background(), trackState(), intp(9))
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindSwitched, res.Kind)
	require.Len(t, host.Attached(), 1)
	first := host.Attached()[0]
	assert.True(t, first.Showing())
	assert.Equal(t, "fre", first.Language)
	assert.Contains(t, string(first.Content), "Bonjour")

	_, err = p.SwitchSubtitle(context.Background(), trackState(), intp(7))
	require.NoError(t, err)
	require.Len(t, host.Attached(), 2)
	assert.True(t, first.Removed(), "previous fetched track is replaced")
	assert.True(t, host.Attached()[1].Showing())
	fetcher.AssertExpectations(t)
}

func TestSwitchSubtitle_FetchFailureKeepsCurrentTrack(t *testing.T) {
	host := playbacktest.NewTextHost()
	fetcher := &mockFetcher{}
	fetcher.On("FetchSubtitle", mock.Anything, refFor(9)).Return([]byte("WEBVTT\n"), nil).Once()
	fetcher.On("FetchSubtitle", mock.Anything, refFor(7)).Return(nil, errors.New("HTTP 502")).Once()
	p := trackswitch.New(directStub(host), trackswitch.Options{Fetcher: fetcher})

	_, err := p.SwitchSubtitle(context.Background(), trackState(), intp(9))
	require.NoError(t, err)

	_, err = p.SwitchSubtitle(context.Background(), trackState(), intp(7))
	require.Error(t, err)
	assert.ErrorIs(t, err, trackswitch.ErrNetwork)
	require.Len(t, host.Attached(), 1)
	assert.True(t, host.Attached()[0].Showing())
}

func TestSwitchSubtitle_FetchIsBoundedByTimeout(t *testing.T) {
	host := playbacktest.NewTextHost()
	fetcher := &mockFetcher{}
	fetcher.On("FetchSubtitle", mock.Anything, refFor(9)).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()
	p := trackswitch.New(directStub(host), trackswitch.Options{Fetcher: fetcher, FetchTimeout: 20 * time.Millisecond})

	_, err := p.SwitchSubtitle(context.Background(), trackState(), intp(9))
	require.Error(t, err)
	assert.Equal(t, trackswitch.CodeNetwork, trackswitch.CodeOf(err))
	assert.Empty(t, host.Attached())
}

func TestSwitchSubtitle_ParseTimeoutIsAFailure(t *testing.T) {
	host := playbacktest.NewTextHost()
	host.SetAutoParse(false)
	fetcher := &mockFetcher{}
	fetcher.On("FetchSubtitle", mock.Anything, refFor(9)).Return([]byte("WEBVTT\n"), nil).Once()
	clk := clock.NewMock(time.Unix(0, 0))
	p := trackswitch.New(directStub(host), trackswitch.Options{Fetcher: fetcher, Clock: clk, ParseTimeout: time.Second})

	errCh := make(chan error, 1)
	go func() {
		_, err := p.SwitchSubtitle(context.Background(), trackState(), intp(9))
		errCh <- err
	}()
	require.Eventually(t, func() bool { return clk.Pending() > 0 }, time.Second, time.Millisecond)
	clk.Advance(time.Second)

	err := <-errCh
	assert.ErrorIs(t, err, trackswitch.ErrParseTimeout)
	assert.Equal(t, trackswitch.CodeUnknown, trackswitch.CodeOf(err))
	require.Len(t, host.Attached(), 1)
	assert.True(t, host.Attached()[0].Removed())
	assert.False(t, host.Attached()[0].Showing())
}

func TestSwitchSubtitle_TeardownDuringFetchIsNoop(t *testing.T) {
	host := playbacktest.NewTextHost()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := directStub(host)
	session.ctx = ctx

	fetcher := &mockFetcher{}
	fetcher.On("FetchSubtitle", mock.Anything, refFor(9)).
		Run(func(mock.Arguments) { cancel() }).
		Return([]byte("WEBVTT\n"), nil).Once()
	p := trackswitch.New(session, trackswitch.Options{Fetcher: fetcher})

	res, err := p.SwitchSubtitle(context.Background(), trackState(), intp(9))
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindCanceled, res.Kind)
	assert.Empty(t, host.Attached())
}

func TestSwitchSubtitle_NewerSwitchSupersedesPendingFetch(t *testing.T) {
	host := playbacktest.NewTextHost()
	entered := make(chan struct{})
	gate := make(chan struct{})
	fetcher := &mockFetcher{}
	fetcher.On("FetchSubtitle", mock.Anything, refFor(9)).
		Run(func(mock.Arguments) {
			close(entered)
			<-gate
		}).
		Return([]byte("WEBVTT\n"), nil).Once()
	p := trackswitch.New(directStub(host), trackswitch.Options{Fetcher: fetcher})

	done := make(chan trackswitch.Result, 1)
	go func() {
		res, _ := p.SwitchSubtitle(context.Background(), trackState(), intp(9))
		done <- res
	}()
	<-entered

	off, err := p.SwitchSubtitle(context.Background(), trackState(), nil)
	require.NoError(t, err)
	assert.Equal(t, trackswitch.KindDisabled, off.Kind)
	close(gate)

	assert.Equal(t, trackswitch.KindCanceled, (<-done).Kind)
	assert.Empty(t, host.Attached())
}

func TestSwitchSubtitle_DirectWithoutFetcherIsUnsupported(t *testing.T) {
	p := trackswitch.New(directStub(playbacktest.NewTextHost()), trackswitch.Options{})
	_, err := p.SwitchSubtitle(context.Background(), trackState(), intp(9))
	assert.ErrorIs(t, err, trackswitch.ErrAPIUnsupported)
}
