// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/segplay/internal/fsm"
	"github.com/ManuGH/segplay/internal/liveness"
	"github.com/ManuGH/segplay/internal/log"
	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/metrics"
	"github.com/ManuGH/segplay/internal/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// maxNetworkRetries bounds same-URL reloads before a network error escalates.
const maxNetworkRetries = 1

// State is the state of a Session.
type State string

const (
	StateInitializing State = "initializing"
	StateDirect       State = "direct"
	StateTranscoded   State = "transcoded"
	StateDisposed     State = "disposed"
)

// Event drives Session transitions.
type Event string

const (
	EventPlanDirect     Event = "plan_direct"
	EventPlanTranscoded Event = "plan_transcoded"
	EventRetry          Event = "retry"
	EventFallback       Event = "fallback"
	EventUserSwitch     Event = "user_switch"
	EventReload         Event = "reload"
	EventRestart        Event = "restart"
	EventDispose        Event = "dispose"
)

// Outcome tags how HandleError disposed of a failure.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRetried   Outcome = "retried"
	OutcomeFellBack  Outcome = "fell_back"
	OutcomeForwarded Outcome = "forwarded"
	OutcomeSurfaced  Outcome = "surfaced"
)

// ErrorOutcome is the result of HandleError.
type ErrorOutcome struct {
	Outcome Outcome
	Error   *PlaybackError
	// Plan is the new plan when Outcome is OutcomeFellBack.
	Plan Plan
}

// SurfaceChanged reports whether the authoritative surface was replaced.
func (o ErrorOutcome) SurfaceChanged() bool { return o.Outcome == OutcomeFellBack }

// Report identifies a server-side playback session for the tracker.
type Report struct {
	ItemID        string
	MediaSourceID string
	PlaySessionID string
	PositionTicks int64
}

// SessionTracker is the external playback session tracker. It is only used
// while the transcoded strategy is active.
type SessionTracker interface {
	Start(ctx context.Context, report Report) error
	Stop(ctx context.Context, report Report) error
}

// Options configure a Session.
type Options struct {
	Item media.Item
	// AudioStreamIndex is the preferred audio stream for the first selection.
	AudioStreamIndex *int
	Selector         *Selector
	Surfaces         SurfaceFactory
	// Tracker is optional.
	Tracker SessionTracker
}

// Session is the fallback state machine of one item load. It is created per
// load and explicitly disposed; nothing survives into the next load.
type Session struct {
	item     media.Item
	selector *Selector
	surfaces SurfaceFactory
	tracker  SessionTracker
	scope    *liveness.Scope
	machine  *fsm.Machine[State, Event]
	logger   zerolog.Logger

	mu           sync.Mutex
	surface      Surface
	plan         Plan
	audioIndex   *int
	retries      int
	swapInFlight bool
	loading      bool
	latched      bool
	disposed     bool
	loadReason   Reason
	lastErr      *PlaybackError
	lastPosition float64
	pending      *pendingRestore
	earlyReady   string
	carry        *PreservedState
	tracked      *Report

	engineLog   rate.Sometimes
	disposeOnce sync.Once
}

// NewSession creates a session in the initializing state. Canceling parent
// has the same effect on in-flight work as Dispose, without the teardown.
func NewSession(parent context.Context, opts Options) *Session {
	scope := liveness.New(parent)
	s := &Session{
		item:       opts.Item,
		selector:   opts.Selector,
		surfaces:   opts.Surfaces,
		tracker:    opts.Tracker,
		scope:      scope,
		audioIndex: cloneIndex(opts.AudioStreamIndex),
		loadReason: ReasonInitial,
		engineLog:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	s.logger = log.Derive(func(c *zerolog.Context) {
		*c = c.Str(log.FieldComponent, "playback").
			Str(log.FieldSessionID, scope.ID()).
			Str(log.FieldItemID, opts.Item.ID)
	})
	s.machine = fsm.MustNew(StateInitializing, s.transitions())
	s.machine.Observe(func(from, to State, event Event) {
		s.logger.Info().
			Str(log.FieldOldState, string(from)).
			Str(log.FieldNewState, string(to)).
			Str(log.FieldEvent, string(event)).
			Msg("playback state transition")
	})
	return s
}

func (s *Session) transitions() []fsm.Transition[State, Event] {
	return []fsm.Transition[State, Event]{
		{From: StateInitializing, Event: EventPlanDirect, To: StateDirect, Guard: s.guardDirect},
		{From: StateInitializing, Event: EventPlanTranscoded, To: StateTranscoded},
		{From: StateDirect, Event: EventRetry, To: StateDirect},
		{From: StateDirect, Event: EventFallback, To: StateTranscoded},
		{From: StateDirect, Event: EventUserSwitch, To: StateTranscoded},
		{From: StateTranscoded, Event: EventReload, To: StateTranscoded},
		{From: StateInitializing, Event: EventRestart, To: StateInitializing},
		{From: StateDirect, Event: EventRestart, To: StateInitializing},
		{From: StateTranscoded, Event: EventRestart, To: StateInitializing},
		{From: StateInitializing, Event: EventDispose, To: StateDisposed},
		{From: StateDirect, Event: EventDispose, To: StateDisposed},
		{From: StateTranscoded, Event: EventDispose, To: StateDisposed},
	}
}

// guardDirect runs inside Fire while s.mu is held by the caller.
func (s *Session) guardDirect(_ context.Context, _ State, _ Event) error {
	if s.latched {
		return ErrOneWay
	}
	return nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.scope.ID() }

// Item returns the item this session plays.
func (s *Session) Item() media.Item { return s.item }

// State returns the current machine state.
func (s *Session) State() State { return s.machine.State() }

// Strategy returns the active strategy; ok is false before the first plan
// and after disposal.
func (s *Session) Strategy() (Strategy, bool) {
	switch s.machine.State() {
	case StateDirect:
		return StrategyDirect, true
	case StateTranscoded:
		return StrategyTranscoded, true
	default:
		return "", false
	}
}

// Plan returns the active plan.
func (s *Session) Plan() Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// URL returns the URL bound to the authoritative surface.
func (s *Session) URL() string {
	return s.Plan().URL
}

// Surface returns the authoritative surface, or nil.
func (s *Session) Surface() Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// IsLoading reports whether a selection or swap is running.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the error surfaced to the UI, if any.
func (s *Session) Err() *PlaybackError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// RetryCount returns the network retry counter.
func (s *Session) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// AudioStreamIndex returns the audio stream the current delivery carries.
func (s *Session) AudioStreamIndex() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneIndex(s.audioIndex)
}

// NoteAudioStreamIndex records an audio change made without a reload so a
// later swap carries it.
func (s *Session) NoteAudioStreamIndex(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioIndex = &index
}

// Position returns the last known position in media time.
func (s *Session) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

// Context returns the session's liveness context.
func (s *Session) Context() context.Context { return s.scope.Context() }

// Load runs the first strategy selection and binds the resulting surface.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if state := s.machine.State(); state != StateInitializing {
		s.mu.Unlock()
		return fmt.Errorf("playback: load requires state %s, have %s", StateInitializing, state)
	}
	s.swapInFlight = true
	s.loading = true
	s.lastErr = nil
	req := ResolveRequest{Item: s.item, AudioStreamIndex: cloneIndex(s.audioIndex), ForceTranscode: s.latched}
	reason := s.loadReason
	s.mu.Unlock()

	ctx, cancel := s.scope.Bind(ctx)
	defer cancel()
	ctx = log.ContextWithSessionID(ctx, s.ID())

	plan, surface, err := s.acquire(ctx, req, reason)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapInFlight = false
	s.loading = false

	if stale := s.staleLocked(ctx); stale != nil {
		s.release(surface)
		return stale
	}
	if err != nil {
		s.lastErr = ClassifyErr(err)
		s.logger.Error().Err(err).Str(log.FieldErrorKind, string(s.lastErr.Kind)).Msg("strategy selection failed")
		return err
	}

	event := EventPlanDirect
	if plan.Strategy == StrategyTranscoded {
		event = EventPlanTranscoded
	}
	if _, err := s.machine.Fire(ctx, event); err != nil {
		s.release(surface)
		s.lastErr = ClassifyErr(err)
		return err
	}

	s.bindLocked(ctx, plan, surface)
	if s.carry != nil {
		s.setPendingLocked(surface.ID(), *s.carry)
		s.carry = nil
	}
	return nil
}

// Retry re-runs strategy selection from scratch with counters reset. The
// playhead is carried over to the new surface.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.surface != nil {
		carry := Capture(s.surface, s.plan.TranscodeOffsetSeconds)
		s.carry = &carry
	}
	s.stopTrackerLocked(ctx, s.positionLocked())
	s.lastPosition = s.positionLocked()
	s.release(s.surface)
	s.surface = nil
	s.plan = Plan{}
	s.pending = nil
	s.retries = 0
	s.lastErr = nil
	s.loadReason = ReasonRetry
	if _, err := s.machine.Fire(ctx, EventRestart); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	return s.Load(ctx)
}

// HandleError feeds a raw failure from the bound surface into the machine.
func (s *Session) HandleError(ctx context.Context, raw RawFailure) ErrorOutcome {
	pe := Classify(raw)

	s.mu.Lock()
	state := s.machine.State()
	switch {
	case s.disposed || !s.scope.Alive():
		s.mu.Unlock()
		return ErrorOutcome{Outcome: OutcomeIgnored, Error: pe}
	case s.swapInFlight:
		s.mu.Unlock()
		s.logger.Debug().Str(log.FieldErrorKind, string(pe.Kind)).Msg("error ignored while swap in flight")
		return ErrorOutcome{Outcome: OutcomeIgnored, Error: pe}
	case s.surface == nil, raw.SurfaceID != "" && raw.SurfaceID != s.surface.ID():
		s.mu.Unlock()
		return ErrorOutcome{Outcome: OutcomeIgnored, Error: pe}
	}

	metrics.IncPlaybackError(string(pe.Kind), string(state))

	switch state {
	case StateTranscoded:
		defer s.mu.Unlock()
		if raw.Transport != nil && !raw.Transport.Fatal {
			s.engineLog.Do(func() {
				s.logger.Warn().
					Str(log.FieldErrorKind, string(pe.Kind)).
					Str("details", raw.Transport.Details).
					Msg("segmented-stream engine error forwarded")
			})
			return ErrorOutcome{Outcome: OutcomeForwarded, Error: pe}
		}
		pe.Recoverable = false
		s.lastErr = pe
		s.logger.Error().Str(log.FieldErrorKind, string(pe.Kind)).Str(log.FieldCause, pe.Message).Msg("playback failed in transcoded mode")
		return ErrorOutcome{Outcome: OutcomeSurfaced, Error: pe}

	case StateDirect:
		if pe.Kind == KindNetwork && s.retries < maxNetworkRetries {
			if outcome, ok := s.retryLocked(ctx, pe); ok {
				s.mu.Unlock()
				return outcome
			}
		}
		ticket, err := s.beginSwapLocked(EventFallback, ReasonFallback, string(pe.Kind), s.audioIndex)
		s.mu.Unlock()
		if err != nil {
			return ErrorOutcome{Outcome: OutcomeIgnored, Error: pe}
		}
		plan, err := s.runSwap(ctx, ticket)
		switch {
		case err == nil:
			return ErrorOutcome{Outcome: OutcomeFellBack, Error: pe, Plan: plan}
		case liveness.IsStale(err):
			return ErrorOutcome{Outcome: OutcomeIgnored, Error: pe}
		default:
			return ErrorOutcome{Outcome: OutcomeSurfaced, Error: s.Err()}
		}

	default:
		s.mu.Unlock()
		return ErrorOutcome{Outcome: OutcomeIgnored, Error: pe}
	}
}

// retryLocked reloads the direct source in place. It reports false when the
// reload could not be issued and the error must escalate.
func (s *Session) retryLocked(ctx context.Context, pe *PlaybackError) (ErrorOutcome, bool) {
	if _, err := s.machine.Fire(ctx, EventRetry); err != nil {
		return ErrorOutcome{}, false
	}
	s.retries++
	if err := s.surface.Reload(); err != nil {
		s.logger.Warn().Err(err).Msg("in-place reload failed, escalating")
		return ErrorOutcome{}, false
	}
	metrics.IncPlaybackRetry()
	s.logger.Warn().
		Int(log.FieldRetryCount, s.retries).
		Str(log.FieldURL, s.plan.URL).
		Msg("network error, reloading direct source")
	return ErrorOutcome{Outcome: OutcomeRetried, Error: pe}, true
}

// SwitchToTranscoded swaps direct delivery to transcoded delivery carrying
// audioIndex. It is driven by user intent and shares the fallback path.
func (s *Session) SwitchToTranscoded(ctx context.Context, audioIndex int) (Plan, error) {
	s.mu.Lock()
	ticket, err := s.beginSwapLocked(EventUserSwitch, ReasonAudioSwitch, "audio_switch", &audioIndex)
	s.mu.Unlock()
	if err != nil {
		return Plan{}, err
	}
	return s.runSwap(ctx, ticket)
}

// ReloadTranscoded reloads transcoded delivery with a new audio stream. It is
// a same-strategy reload and leaves the machine in the transcoded state.
func (s *Session) ReloadTranscoded(ctx context.Context, audioIndex int) (Plan, error) {
	s.mu.Lock()
	ticket, err := s.beginSwapLocked(EventReload, ReasonAudioReload, "", &audioIndex)
	s.mu.Unlock()
	if err != nil {
		return Plan{}, err
	}
	return s.runSwap(ctx, ticket)
}

// SurfaceReady applies the pending playhead snapshot when surfaceID is the
// bound surface. It reports whether a snapshot was applied.
func (s *Session) SurfaceReady(surfaceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return false
	}
	if s.surface == nil || s.surface.ID() != surfaceID {
		if s.swapInFlight {
			s.earlyReady = surfaceID
		}
		return false
	}
	if s.pending == nil || s.pending.surfaceID != surfaceID {
		return false
	}
	s.applyPendingLocked()
	return true
}

// Dispose tears the session down. It is idempotent; the transcode session is
// reported stopped exactly once, before Dispose returns.
func (s *Session) Dispose(ctx context.Context) {
	s.disposeOnce.Do(func() {
		s.scope.Invalidate()

		s.mu.Lock()
		defer s.mu.Unlock()

		from := s.machine.State()
		position := s.positionLocked()
		s.disposed = true
		s.pending = nil
		s.carry = nil
		if _, err := s.machine.Fire(ctx, EventDispose); err != nil {
			s.logger.Warn().Err(err).Msg("dispose transition rejected")
		}
		if from == StateTranscoded {
			s.stopTrackerLocked(ctx, position)
		}
		s.lastPosition = position
		s.release(s.surface)
		s.surface = nil
	})
}

type swapTicket struct {
	event     Event
	reason    Reason
	cause     string
	req       ResolveRequest
	preserved PreservedState
	old       Surface
}

// beginSwapLocked claims the single swap slot and captures the playhead
// before any new source is assigned.
func (s *Session) beginSwapLocked(event Event, reason Reason, cause string, audioIndex *int) (*swapTicket, error) {
	if err := s.usableLocked(); err != nil {
		return nil, err
	}
	if !s.machine.Can(event) {
		return nil, fmt.Errorf("playback: %s not allowed in state %s", event, s.machine.State())
	}
	if s.surface == nil {
		return nil, ErrNotLoaded
	}

	s.swapInFlight = true
	s.loading = true
	s.earlyReady = ""
	return &swapTicket{
		event:  event,
		reason: reason,
		cause:  cause,
		req: ResolveRequest{
			Item:             s.item,
			AudioStreamIndex: cloneIndex(audioIndex),
			ForceTranscode:   true,
		},
		preserved: Capture(s.surface, s.plan.TranscodeOffsetSeconds),
		old:       s.surface,
	}, nil
}

func (s *Session) runSwap(ctx context.Context, t *swapTicket) (Plan, error) {
	ctx, cancel := s.scope.Bind(ctx)
	defer cancel()
	ctx = log.ContextWithSessionID(ctx, s.ID())

	ctx, span := telemetry.Tracer().Start(ctx, "playback.swap")
	defer span.End()

	plan, surface, err := s.acquire(ctx, t.req, t.reason)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapInFlight = false
	s.loading = false

	if stale := s.staleLocked(ctx); stale != nil {
		s.release(surface)
		return Plan{}, stale
	}
	if err != nil {
		telemetry.RecordError(span, err, string(ClassifyErr(err).Kind))
		s.lastErr = &PlaybackError{
			Kind:        ClassifyErr(err).Kind,
			Message:     fmt.Sprintf("%s to transcoded delivery failed", t.event),
			Recoverable: false,
			Err:         err,
		}
		s.logger.Error().Err(err).Str(log.FieldEvent, string(t.event)).Msg("strategy swap failed")
		return Plan{}, err
	}
	if _, err := s.machine.Fire(ctx, t.event); err != nil {
		s.release(surface)
		return Plan{}, err
	}

	s.stopTrackerLocked(ctx, t.preserved.Position)
	s.latched = true
	s.bindLocked(ctx, plan, surface)
	s.setPendingLocked(surface.ID(), t.preserved)
	s.release(t.old)

	switch t.event {
	case EventFallback:
		metrics.IncFallback(t.cause)
	case EventUserSwitch:
		metrics.IncFallback("audio_switch")
	}
	s.logger.Info().
		Str(log.FieldCause, t.cause).
		Str(log.FieldSurfaceID, surface.ID()).
		Float64(log.FieldPositionSeconds, t.preserved.Position).
		Msg("switched to transcoded delivery")
	return plan, nil
}

// acquire resolves a plan and attaches a surface for it without holding s.mu.
func (s *Session) acquire(ctx context.Context, req ResolveRequest, reason Reason) (Plan, Surface, error) {
	plan, err := s.selector.Select(ctx, req, reason)
	if err != nil {
		return Plan{}, nil, err
	}
	surface, err := s.surfaces.Attach(ctx, plan)
	if err != nil {
		return Plan{}, nil, fmt.Errorf("attach surface: %w", err)
	}
	if err := liveness.Check(ctx); err != nil {
		s.surfaces.Detach(surface)
		return Plan{}, nil, err
	}
	return plan, surface, nil
}

func (s *Session) bindLocked(ctx context.Context, plan Plan, surface Surface) {
	s.surface = surface
	s.plan = plan
	if plan.AudioStreamIndex != nil {
		s.audioIndex = cloneIndex(plan.AudioStreamIndex)
	}
	if plan.Strategy == StrategyTranscoded {
		s.startTrackerLocked(ctx, plan)
	}
}

func (s *Session) setPendingLocked(surfaceID string, state PreservedState) {
	s.pending = &pendingRestore{surfaceID: surfaceID, state: state}
	if s.earlyReady == surfaceID {
		s.applyPendingLocked()
	}
	s.earlyReady = ""
}

func (s *Session) applyPendingLocked() {
	p := s.pending
	s.pending = nil
	p.state.Apply(s.surface, s.plan.TranscodeOffsetSeconds)
	s.logger.Debug().
		Str(log.FieldSurfaceID, p.surfaceID).
		Float64(log.FieldPositionSeconds, p.state.Position).
		Msg("playback state restored")
}

func (s *Session) startTrackerLocked(ctx context.Context, plan Plan) {
	if s.tracker == nil {
		return
	}
	report := Report{
		ItemID:        s.item.ID,
		MediaSourceID: plan.MediaSourceID,
		PlaySessionID: plan.PlaySessionID,
	}
	if err := s.tracker.Start(ctx, report); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldPlaySessionID, plan.PlaySessionID).Msg("session tracker start failed")
		return
	}
	s.tracked = &report
}

// stopTrackerLocked reports the tracked transcode session stopped. The report
// is cleared first, so each started session is stopped at most once.
func (s *Session) stopTrackerLocked(ctx context.Context, position float64) {
	if s.tracked == nil {
		return
	}
	report := *s.tracked
	s.tracked = nil
	report.PositionTicks = media.SecondsToTicks(position)
	if err := s.tracker.Stop(ctx, report); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldPlaySessionID, report.PlaySessionID).Msg("session tracker stop failed")
		return
	}
	s.logger.Debug().
		Str(log.FieldPlaySessionID, report.PlaySessionID).
		Int64(log.FieldPositionTicks, report.PositionTicks).
		Msg("transcode session stopped")
}

func (s *Session) positionLocked() float64 {
	if s.surface == nil {
		return s.lastPosition
	}
	return s.surface.CurrentTime() + s.plan.TranscodeOffsetSeconds
}

func (s *Session) usableLocked() error {
	if s.disposed {
		return ErrDisposed
	}
	if err := liveness.Check(s.scope.Context()); err != nil {
		return err
	}
	if s.swapInFlight {
		return ErrSwapInFlight
	}
	return nil
}

func (s *Session) staleLocked(ctx context.Context) error {
	if s.disposed {
		return fmt.Errorf("%w: %w", liveness.ErrStale, ErrDisposed)
	}
	return liveness.Check(ctx)
}

func (s *Session) release(surface Surface) {
	if surface != nil {
		s.surfaces.Detach(surface)
	}
}

// IsNoop reports whether err is a cancellation result that callers must
// treat as a harmless no-op.
func IsNoop(err error) bool {
	return liveness.IsStale(err) || errors.Is(err, ErrDisposed)
}

func cloneIndex(idx *int) *int {
	if idx == nil {
		return nil
	}
	v := *idx
	return &v
}
