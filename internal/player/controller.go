// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package player is the surface the surrounding UI drives. A Controller owns
// one playback session per item load, switches tracks through it and keeps
// the subtitle renderer bound to whatever surface is current.
package player

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/segplay/internal/log"
	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/playback"
	"github.com/ManuGH/segplay/internal/subrender"
	"github.com/ManuGH/segplay/internal/telemetry"
	"github.com/ManuGH/segplay/internal/tracks"
	"github.com/ManuGH/segplay/internal/trackswitch"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("player: controller closed")

// Options configure a Controller.
type Options struct {
	Selector *playback.Selector
	Surfaces playback.SurfaceFactory
	// Tracker is optional.
	Tracker     playback.SessionTracker
	Switch      trackswitch.Options
	Renderer    subrender.Options
	Preferences tracks.Preferences
}

// Controller drives playback of one item at a time.
type Controller struct {
	opts     Options
	logger   zerolog.Logger
	renderer *subrender.Lifecycle
	ctx      context.Context
	cancel   context.CancelFunc

	mu           sync.Mutex
	prefs        tracks.Preferences
	session      *playback.Session
	protocol     *trackswitch.Protocol
	audioPick    tracks.Pick
	subtitlePick tracks.Pick
	closed       bool
}

// New returns an idle controller.
func New(opts Options) *Controller {
	if opts.Selector == nil {
		panic("invariant violation: selector is nil in player.New")
	}
	if opts.Surfaces == nil {
		panic("invariant violation: surface factory is nil in player.New")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		opts:     opts,
		logger:   log.WithComponent("player"),
		renderer: subrender.New(opts.Renderer),
		ctx:      ctx,
		cancel:   cancel,
		prefs:    opts.Preferences,
	}
}

// Load tears down the current item and starts a fresh session for item. A
// load superseded by a newer Load or Close returns nil without effect.
func (c *Controller) Load(ctx context.Context, item media.Item) error {
	ctx, span := telemetry.Tracer().Start(ctx, "player.load")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.ItemIDKey, item.ID))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.session
	state := tracks.Derive(item, c.prefs, c.audioPick, c.subtitlePick)
	session := playback.NewSession(c.ctx, playback.Options{
		Item:             item,
		AudioStreamIndex: state.ActiveAudioIndex,
		Selector:         c.opts.Selector,
		Surfaces:         c.opts.Surfaces,
		Tracker:          c.opts.Tracker,
	})
	c.session = session
	c.protocol = trackswitch.New(session, c.opts.Switch)
	c.mu.Unlock()

	if prev != nil {
		prev.Dispose(ctx)
	}
	c.renderer.Dispose()

	c.logger.Info().
		Str(log.FieldItemID, item.ID).
		Str(log.FieldSessionID, session.ID()).
		Msg("loading item")

	if err := session.Load(ctx); err != nil {
		if playback.IsNoop(err) {
			return nil
		}
		telemetry.RecordError(span, err, "load")
		return err
	}
	c.applySubtitle(ctx, session)
	return nil
}

// Retry re-runs strategy selection for the current item with counters reset.
func (c *Controller) Retry(ctx context.Context) error {
	session, _, err := c.current()
	if err != nil {
		return err
	}
	c.renderer.Dispose()
	if err := session.Retry(ctx); err != nil {
		if playback.IsNoop(err) {
			return nil
		}
		return err
	}
	c.applySubtitle(ctx, session)
	return nil
}

// HandleError feeds a surface failure into the current session. When the
// session swapped surfaces, the subtitle selection follows it.
func (c *Controller) HandleError(ctx context.Context, raw playback.RawFailure) playback.ErrorOutcome {
	session, _, err := c.current()
	if err != nil {
		return playback.ErrorOutcome{Outcome: playback.OutcomeIgnored, Error: playback.Classify(raw)}
	}
	outcome := session.HandleError(ctx, raw)
	if outcome.SurfaceChanged() {
		c.applySubtitle(ctx, session)
	}
	return outcome
}

// SurfaceReady forwards the readiness signal of a surface.
func (c *Controller) SurfaceReady(surfaceID string) bool {
	session, _, err := c.current()
	if err != nil {
		return false
	}
	return session.SurfaceReady(surfaceID)
}

// SelectAudioTrack switches to the audio stream with the given catalog index.
// A failed switch leaves the active audio track unchanged.
func (c *Controller) SelectAudioTrack(ctx context.Context, serverIndex int) (trackswitch.Result, error) {
	session, protocol, err := c.current()
	if err != nil {
		return trackswitch.Result{}, err
	}
	state := c.TrackState()
	res, err := protocol.SwitchAudio(ctx, state, serverIndex)
	if err != nil {
		return res, err
	}
	if res.Applied() {
		c.remember(session, &c.audioPick, state.Key, &serverIndex)
	}
	if res.ReloadRequired() {
		c.applySubtitle(ctx, session)
	}
	return res, nil
}

// SelectSubtitleTrack switches to the subtitle stream with the given catalog
// index, or turns subtitles off for nil. A failed switch keeps the current
// subtitle showing.
func (c *Controller) SelectSubtitleTrack(ctx context.Context, serverIndex *int) (trackswitch.Result, error) {
	session, protocol, err := c.current()
	if err != nil {
		return trackswitch.Result{}, err
	}
	state := c.TrackState()
	res, err := protocol.SwitchSubtitle(ctx, state, serverIndex)
	if err != nil {
		return res, err
	}
	if res.Applied() {
		c.remember(session, &c.subtitlePick, state.Key, serverIndex)
		c.bindRenderer(session, res)
	}
	return res, nil
}

// SetPreferences replaces the preferences that drive default track choice.
// Explicit picks made under the old preferences stop applying.
func (c *Controller) SetPreferences(prefs tracks.Preferences) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefs = prefs
}

// Close disposes the current session and the subtitle renderer.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	session := c.session
	c.session = nil
	c.protocol = nil
	c.mu.Unlock()

	if session != nil {
		session.Dispose(ctx)
	}
	c.renderer.Dispose()
	c.cancel()
}

// Strategy is the delivery strategy of the current load.
func (c *Controller) Strategy() (playback.Strategy, bool) {
	if s := c.sessionOrNil(); s != nil {
		return s.Strategy()
	}
	return "", false
}

// IsLoading reports whether strategy selection or a swap is in progress.
func (c *Controller) IsLoading() bool {
	if s := c.sessionOrNil(); s != nil {
		return s.IsLoading()
	}
	return false
}

// Err is the playback error the UI should show, if any.
func (c *Controller) Err() *playback.PlaybackError {
	if s := c.sessionOrNil(); s != nil {
		return s.Err()
	}
	return nil
}

// VideoURL is the source URL of the bound surface.
func (c *Controller) VideoURL() string {
	if s := c.sessionOrNil(); s != nil {
		return s.URL()
	}
	return ""
}

// Surface is the bound video surface, or nil.
func (c *Controller) Surface() playback.Surface {
	if s := c.sessionOrNil(); s != nil {
		return s.Surface()
	}
	return nil
}

// Subtitles exposes the subtitle renderer lifecycle.
func (c *Controller) Subtitles() *subrender.Lifecycle { return c.renderer }

// TrackState derives the track view of the current item. It is recomputed
// on every call from the item, the preferences and the explicit picks.
func (c *Controller) TrackState() tracks.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return tracks.State{}
	}
	return tracks.Derive(c.session.Item(), c.prefs, c.audioPick, c.subtitlePick)
}

func (c *Controller) current() (*playback.Session, *trackswitch.Protocol, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, nil, ErrClosed
	}
	if c.session == nil {
		return nil, nil, playback.ErrNotLoaded
	}
	return c.session, c.protocol, nil
}

func (c *Controller) sessionOrNil() *playback.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// remember records an explicit pick unless the session was replaced meanwhile.
func (c *Controller) remember(session *playback.Session, pick *tracks.Pick, key string, index *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session {
		return
	}
	var idx *int
	if index != nil {
		v := *index
		idx = &v
	}
	*pick = tracks.Pick{Key: key, Index: idx}
}

// applySubtitle re-applies the active subtitle selection to the session's
// current surface. It runs after every load and surface swap.
func (c *Controller) applySubtitle(ctx context.Context, session *playback.Session) {
	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		return
	}
	protocol := c.protocol
	state := tracks.Derive(session.Item(), c.prefs, c.audioPick, c.subtitlePick)
	c.mu.Unlock()

	res, err := protocol.SwitchSubtitle(ctx, state, state.ActiveSubtitleIndex)
	if err != nil {
		c.logger.Warn().Err(err).
			Str(log.FieldItemID, session.Item().ID).
			Msg("subtitle selection not applied to new surface")
		c.bindRenderer(session, trackswitch.Result{Kind: trackswitch.KindDisabled})
		return
	}
	if res.Kind == trackswitch.KindCanceled {
		return
	}
	c.bindRenderer(session, res)
}

// bindRenderer points the renderer at the result of a subtitle switch. Only
// a hand-off keeps a track bound; every other outcome unbinds it.
func (c *Controller) bindRenderer(session *playback.Session, res trackswitch.Result) {
	if res.Kind == trackswitch.KindCanceled {
		return
	}
	b := subrender.Binding{
		Item:            session.Item(),
		TranscodeOffset: session.Plan().TranscodeOffsetSeconds,
	}
	if surface := session.Surface(); surface != nil {
		b.Surface = surface
	}
	if res.Kind == trackswitch.KindHandoff {
		track := res.Subtitle
		b.Track = &track
	}
	c.renderer.Bind(session.Context(), b)
}
