// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package trackswitch changes the active audio and subtitle track of a
// playback session. Catalog stream indices are mapped to per-type player
// indices before any surface API is touched.
package trackswitch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/segplay/internal/liveness"
	"github.com/ManuGH/segplay/internal/log"
	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/metrics"
	"github.com/ManuGH/segplay/internal/platform/clock"
	"github.com/ManuGH/segplay/internal/playback"
	"github.com/ManuGH/segplay/internal/telemetry"
	"github.com/ManuGH/segplay/internal/tracks"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultParseTimeout = 3 * time.Second
)

// Session is the part of a playback session the protocol drives.
type Session interface {
	Item() media.Item
	Context() context.Context
	Strategy() (playback.Strategy, bool)
	Surface() playback.Surface
	NoteAudioStreamIndex(index int)
	SwitchToTranscoded(ctx context.Context, audioIndex int) (playback.Plan, error)
	ReloadTranscoded(ctx context.Context, audioIndex int) (playback.Plan, error)
}

var _ Session = (*playback.Session)(nil)

// SubtitleFetcher downloads plain-text subtitle content from the catalog.
type SubtitleFetcher interface {
	FetchSubtitle(ctx context.Context, ref media.SubtitleRef) ([]byte, error)
}

// Options configure a Protocol.
type Options struct {
	// Fetcher is required for subtitles that are not in the native track list.
	Fetcher      SubtitleFetcher
	FetchTimeout time.Duration
	ParseTimeout time.Duration
	Clock        clock.Clock
}

// Protocol switches tracks on one playback session.
type Protocol struct {
	session      Session
	fetcher      SubtitleFetcher
	fetchTimeout time.Duration
	parseTimeout time.Duration
	clock        clock.Clock
	logger       zerolog.Logger

	mu sync.Mutex
	// subtitleGen increments on every subtitle switch; an older fetch that
	// completes after a newer switch started is discarded.
	subtitleGen uint64
	fetched     *fetchedTrack
}

type fetchedTrack struct {
	surfaceID   string
	serverIndex int
	track       playback.AttachedTextTrack
}

// New returns a protocol bound to session.
func New(session Session, opts Options) *Protocol {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.ParseTimeout <= 0 {
		opts.ParseTimeout = DefaultParseTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	return &Protocol{
		session:      session,
		fetcher:      opts.Fetcher,
		fetchTimeout: opts.FetchTimeout,
		parseTimeout: opts.ParseTimeout,
		clock:        opts.Clock,
		logger:       log.WithComponent("trackswitch"),
	}
}

// SwitchAudio activates the audio stream serverIndex. Under direct delivery
// without a native multi-track audio API this swaps the session to transcoded
// delivery; under transcoded delivery without engine audio tracks it reloads
// the transcode with the new stream.
func (p *Protocol) SwitchAudio(ctx context.Context, state tracks.State, serverIndex int) (res Result, err error) {
	ctx, span := p.start(ctx, TrackAudio, serverIndex, "")
	defer func() { p.finish(span, TrackAudio, res, err) }()

	track, ok := tracks.Find(serverIndex, state.AudioTracks)
	if !ok {
		return Result{}, p.fail(CodeTrackUnavailable, TrackAudio, serverIndex, ErrTrackUnavailable)
	}
	if state.ActiveAudioIndex != nil && *state.ActiveAudioIndex == serverIndex {
		return p.result(KindUnchanged, TrackAudio, serverIndex), nil
	}
	if p.stale(ctx) {
		return Result{Kind: KindCanceled, TrackType: TrackAudio}, nil
	}

	strategy, ok := p.session.Strategy()
	surface := p.session.Surface()
	if !ok || surface == nil {
		return Result{}, p.fail(CodeUnknown, TrackAudio, serverIndex, playback.ErrNotLoaded)
	}

	logger := p.logger.With().
		Str(log.FieldTrackType, string(TrackAudio)).
		Int(log.FieldServerIndex, serverIndex).
		Int(log.FieldRelativeIndex, track.RelativeIndex).
		Str(log.FieldStrategy, string(strategy)).
		Logger()

	switch strategy {
	case playback.StrategyTranscoded:
		if es, ok := surface.(playback.EngineSurface); ok {
			engine := es.Engine()
			if i, ok := matchEngineTrack(engine.AudioTracks(), track.RelativeIndex, track.Language); ok {
				if err := engine.SetAudioTrack(i); err != nil {
					return Result{}, p.fail(CodeAPIUnsupported, TrackAudio, serverIndex, err)
				}
				p.session.NoteAudioStreamIndex(serverIndex)
				logger.Info().Msg("audio switched on engine")
				return p.result(KindSwitched, TrackAudio, serverIndex), nil
			}
		}
		logger.Info().Msg("audio switch requires transcode reload")
		return p.swap(ctx, serverIndex, p.session.ReloadTranscoded)

	default:
		if na, ok := surface.(playback.NativeAudioTracks); ok {
			if i, ok := matchNativeAudio(na.AudioTracks(), track.RelativeIndex, track.Language); ok {
				if err := na.EnableAudioTrack(i); err != nil {
					return Result{}, p.fail(CodeAPIUnsupported, TrackAudio, serverIndex, err)
				}
				p.session.NoteAudioStreamIndex(serverIndex)
				logger.Info().Msg("audio switched on native track list")
				return p.result(KindSwitched, TrackAudio, serverIndex), nil
			}
		}
		logger.Info().Msg("no native multi-track audio, switching to transcoded delivery")
		return p.swap(ctx, serverIndex, p.session.SwitchToTranscoded)
	}
}

func (p *Protocol) swap(ctx context.Context, serverIndex int, fn func(context.Context, int) (playback.Plan, error)) (Result, error) {
	plan, err := fn(ctx, serverIndex)
	if err != nil {
		if playback.IsNoop(err) {
			return Result{Kind: KindCanceled, TrackType: TrackAudio}, nil
		}
		code := CodeUnknown
		if playback.ClassifyErr(err).Kind == playback.KindNetwork {
			code = CodeNetwork
		}
		return Result{}, p.fail(code, TrackAudio, serverIndex, err)
	}
	res := p.result(KindReloadRequired, TrackAudio, serverIndex)
	res.Plan = plan
	return res, nil
}

// SwitchSubtitle activates the subtitle stream serverIndex, or turns
// subtitles off when serverIndex is nil. Turning subtitles off never fails.
func (p *Protocol) SwitchSubtitle(ctx context.Context, state tracks.State, serverIndex *int) (res Result, err error) {
	idx := -1
	if serverIndex != nil {
		idx = *serverIndex
	}
	ctx, span := p.start(ctx, TrackSubtitle, idx, "")
	defer func() { p.finish(span, TrackSubtitle, res, err) }()

	gen := p.nextSubtitleGen()
	surface := p.session.Surface()

	if serverIndex == nil {
		p.hideNative(surface)
		p.dropFetched()
		return Result{Kind: KindDisabled, TrackType: TrackSubtitle}, nil
	}

	track, ok := tracks.Find(idx, state.SubtitleTracks)
	if !ok {
		return Result{}, p.fail(CodeTrackUnavailable, TrackSubtitle, idx, ErrTrackUnavailable)
	}
	span.SetAttributes(attribute.String(telemetry.TrackFormatKey, track.Format))
	if p.stale(ctx) {
		return Result{Kind: KindCanceled, TrackType: TrackSubtitle}, nil
	}

	if track.RequiresCustomRendering() {
		p.hideNative(surface)
		p.dropFetched()
		res := p.result(KindHandoff, TrackSubtitle, idx)
		res.Subtitle = track
		return res, nil
	}

	strategy, ok := p.session.Strategy()
	if !ok || surface == nil {
		return Result{}, p.fail(CodeUnknown, TrackSubtitle, idx, playback.ErrNotLoaded)
	}

	if strategy == playback.StrategyTranscoded {
		es, ok := surface.(playback.EngineSurface)
		if !ok {
			return Result{}, p.fail(CodeAPIUnsupported, TrackSubtitle, idx, ErrAPIUnsupported)
		}
		if err := es.Engine().SetSubtitleTrack(track.RelativeIndex); err != nil {
			return Result{}, p.fail(CodeAPIUnsupported, TrackSubtitle, idx, err)
		}
		return p.result(KindSwitched, TrackSubtitle, idx), nil
	}

	host, ok := surface.(playback.TextTrackHost)
	if !ok {
		return Result{}, p.fail(CodeAPIUnsupported, TrackSubtitle, idx, ErrAPIUnsupported)
	}
	if i, ok := matchNativeText(host.TextTracks(), track.RelativeIndex, track.Language); ok {
		if err := host.ShowTextTrack(i); err != nil {
			return Result{}, p.fail(CodeAPIUnsupported, TrackSubtitle, idx, err)
		}
		p.dropFetched()
		return p.result(KindSwitched, TrackSubtitle, idx), nil
	}
	return p.attachFetched(ctx, gen, surface.ID(), host, track)
}

func (p *Protocol) nextSubtitleGen() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subtitleGen++
	return p.subtitleGen
}

func (p *Protocol) currentGen(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subtitleGen == gen
}

// hideNative hides every native text track and disables engine subtitles.
func (p *Protocol) hideNative(surface playback.Surface) {
	if surface == nil {
		return
	}
	if host, ok := surface.(playback.TextTrackHost); ok {
		host.HideAllTextTracks()
	}
	if es, ok := surface.(playback.EngineSurface); ok {
		if err := es.Engine().SetSubtitleTrack(-1); err != nil {
			p.logger.Debug().Err(err).Msg("engine subtitle disable failed")
		}
	}
}

func (p *Protocol) dropFetched() {
	p.mu.Lock()
	prev := p.fetched
	p.fetched = nil
	p.mu.Unlock()
	if prev != nil {
		prev.track.Remove()
	}
}

// stale reports whether the caller or the session is gone.
func (p *Protocol) stale(ctx context.Context) bool {
	return liveness.Check(ctx) != nil || liveness.Check(p.session.Context()) != nil
}

func (p *Protocol) result(kind Kind, tt TrackType, serverIndex int) Result {
	return Result{Kind: kind, TrackType: tt, ServerIndex: &serverIndex}
}

func (p *Protocol) fail(code Code, tt TrackType, serverIndex int, err error) error {
	p.logger.Warn().
		Err(err).
		Str(log.FieldTrackType, string(tt)).
		Int(log.FieldServerIndex, serverIndex).
		Str("code", string(code)).
		Msg("track switch failed")
	return &Error{Code: code, TrackType: tt, ServerIndex: serverIndex, Err: err}
}

func (p *Protocol) start(ctx context.Context, tt TrackType, serverIndex int, format string) (context.Context, trace.Span) {
	ctx, span := telemetry.Tracer().Start(ctx, "trackswitch."+string(tt))
	span.SetAttributes(telemetry.TrackAttributes(string(tt), serverIndex, format)...)
	return ctx, span
}

func (p *Protocol) finish(span trace.Span, tt TrackType, res Result, err error) {
	outcome := string(res.Kind)
	if err != nil {
		outcome = string(CodeOf(err))
		telemetry.RecordError(span, err, outcome)
	}
	span.SetAttributes(attribute.String(telemetry.TrackOutcomeKey, outcome))
	span.End()
	metrics.IncTrackSwitch(string(tt), outcome)
}

// IsTrackUnavailable reports whether err rejects an unknown stream index.
func IsTrackUnavailable(err error) bool {
	return errors.Is(err, ErrTrackUnavailable)
}
