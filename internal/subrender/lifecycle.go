// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package subrender owns the custom subtitle renderer for styled subtitle
// formats. A Lifecycle follows the (track, item, surface) binding: it builds
// a renderer when the binding needs one, replaces content in place when only
// the track or item changed, and tears the renderer down on every exit path.
package subrender

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/segplay/internal/log"
	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/metrics"
	"github.com/ManuGH/segplay/internal/platform/clock"
	"github.com/ManuGH/segplay/internal/tracks"
	"github.com/rs/zerolog"
)

const (
	DefaultResizeDebounce    = 150 * time.Millisecond
	DefaultDimensionPoll     = 100 * time.Millisecond
	DefaultDimensionSoftWait = 3 * time.Second
	DefaultDimensionHardWait = 10 * time.Second
	DefaultFetchTimeout      = 10 * time.Second
)

// State is the renderer lifecycle state.
type State string

const (
	StateInactive     State = "inactive"
	StateInitializing State = "initializing"
	StateActive       State = "active"
)

// Surface is the part of a video surface the renderer overlays.
type Surface interface {
	ID() string
	VideoDimensions() (width, height int)
	LayoutSize() (width, height float64)
	ReloadMetadata()
}

// Renderer is a running custom subtitle renderer.
type Renderer interface {
	// SetTrack replaces the rendered subtitle content.
	SetTrack(content []byte) error
	Resize(width, height float64) error
	SetTimeOffset(seconds float64)
	Destroy()
}

// RendererOptions configure a new renderer.
type RendererOptions struct {
	Surface Surface
	// Content is loaded before any real content to force internal setup.
	Content []byte
	Fonts   []string
}

// Factory creates renderers.
type Factory interface {
	New(ctx context.Context, opts RendererOptions) (Renderer, error)
}

// ContentSource downloads subtitle content.
type ContentSource interface {
	FetchSubtitle(ctx context.Context, ref media.SubtitleRef) ([]byte, error)
}

// FontSource supplies font URLs for the renderer.
type FontSource interface {
	// EmbeddedFonts derives attachment font URLs from item metadata.
	EmbeddedFonts(item media.Item) []string
	// FallbackFonts returns the server-wide fallback fonts.
	FallbackFonts(ctx context.Context) ([]string, error)
}

// Binding is the identity the lifecycle follows.
type Binding struct {
	Item media.Item
	// Track is the selected subtitle track; nil when subtitles are off.
	Track *tracks.Subtitle
	// Surface is the authoritative video surface; nil when none is bound.
	Surface Surface
	// TranscodeOffset is the stream start offset of transcoded delivery.
	TranscodeOffset float64
}

func (b Binding) needsRenderer() bool {
	return b.Track != nil && b.Track.RequiresCustomRendering() && b.Surface != nil
}

type identity struct {
	itemID      string
	serverIndex int
	surfaceID   string
}

func (b Binding) identity() identity {
	id := identity{itemID: b.Item.ID, serverIndex: -1}
	if b.Track != nil {
		id.serverIndex = b.Track.ServerIndex
	}
	if b.Surface != nil {
		id.surfaceID = b.Surface.ID()
	}
	return id
}

// Options configure a Lifecycle.
type Options struct {
	Factory           Factory
	Content           ContentSource
	Fonts             FontSource
	Clock             clock.Clock
	FetchTimeout      time.Duration
	ResizeDebounce    time.Duration
	DimensionPoll     time.Duration
	DimensionSoftWait time.Duration
	DimensionHardWait time.Duration
}

func (o *Options) withDefaults() {
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.ResizeDebounce <= 0 {
		o.ResizeDebounce = DefaultResizeDebounce
	}
	if o.DimensionPoll <= 0 {
		o.DimensionPoll = DefaultDimensionPoll
	}
	if o.DimensionSoftWait <= 0 {
		o.DimensionSoftWait = DefaultDimensionSoftWait
	}
	if o.DimensionHardWait <= 0 {
		o.DimensionHardWait = DefaultDimensionHardWait
	}
}

// Lifecycle manages at most one renderer at a time.
type Lifecycle struct {
	opts   Options
	logger zerolog.Logger

	mu         sync.Mutex
	state      State
	binding    Binding
	bound      bool
	renderer   Renderer
	err        *InitError
	gen        uint64
	cancel     context.CancelFunc
	done       chan struct{}
	replacing  bool
	userOffset float64
	resize     clock.Timer

	wg sync.WaitGroup
}

// New returns an inactive lifecycle.
func New(opts Options) *Lifecycle {
	opts.withDefaults()
	return &Lifecycle{
		opts:   opts,
		logger: log.WithComponent("subrender"),
		state:  StateInactive,
	}
}

// State returns the lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// IsActive reports whether a renderer is running.
func (l *Lifecycle) IsActive() bool { return l.State() == StateActive }

// IsLoading reports whether a renderer is being built or its content replaced.
func (l *Lifecycle) IsLoading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateInitializing || l.replacing
}

// Err returns the last initialisation failure.
func (l *Lifecycle) Err() *InitError {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Bind follows a new binding. A binding that does not need the renderer
// disposes it. A changed surface always rebuilds the renderer; a changed
// track or item on the same surface replaces the content of a running one.
// Work continues in the background and is abandoned when ctx ends.
func (l *Lifecycle) Bind(ctx context.Context, b Binding) {
	l.mu.Lock()
	if !b.needsRenderer() {
		l.mu.Unlock()
		l.Dispose()
		return
	}

	prev := l.binding
	same := l.bound && prev.identity() == b.identity()
	l.binding = b
	l.bound = true

	switch {
	case same:
		if l.renderer != nil && prev.TranscodeOffset != b.TranscodeOffset {
			l.renderer.SetTimeOffset(l.effectiveOffsetLocked())
		}
		l.mu.Unlock()
		return

	case l.state == StateActive && prev.identity().surfaceID == b.identity().surfaceID:
		gen, runCtx, done := l.beginLocked(ctx)
		l.replacing = true
		renderer := l.renderer
		l.mu.Unlock()
		l.spawn(done, func() { l.replace(runCtx, gen, renderer, b) })
		return

	default:
		l.teardownLocked()
		l.state = StateInitializing
		l.err = nil
		gen, runCtx, done := l.beginLocked(ctx)
		l.mu.Unlock()
		l.logger.Debug().
			Str(log.FieldItemID, b.Item.ID).
			Int(log.FieldServerIndex, b.Track.ServerIndex).
			Str(log.FieldSurfaceID, b.Surface.ID()).
			Msg("subtitle renderer initializing")
		l.spawn(done, func() { l.initialize(runCtx, gen, b) })
	}
}

// beginLocked cancels in-flight work and opens a new generation. The caller
// must hand the returned done channel to spawn.
func (l *Lifecycle) beginLocked(ctx context.Context) (uint64, context.Context, chan struct{}) {
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.wg.Add(1)
	return l.gen, runCtx, l.done
}

func (l *Lifecycle) spawn(done chan struct{}, fn func()) {
	go func() {
		defer l.wg.Done()
		defer close(done)
		fn()
	}()
}

// Wait blocks until the current initialisation or replacement finished and
// returns its failure, if any.
func (l *Lifecycle) Wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := l.Err(); err != nil {
		return err
	}
	return nil
}

// SetUserOffset sets the user's subtitle delay correction in seconds.
func (l *Lifecycle) SetUserOffset(seconds float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.userOffset = seconds
	if l.renderer != nil {
		l.renderer.SetTimeOffset(l.effectiveOffsetLocked())
	}
}

// EffectiveOffset is the transcode offset plus the user correction.
func (l *Lifecycle) EffectiveOffset() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.effectiveOffsetLocked()
}

func (l *Lifecycle) effectiveOffsetLocked() float64 {
	return l.binding.TranscodeOffset + l.userOffset
}

// Dispose releases the renderer and abandons in-flight work. It is
// idempotent and returns once no background work can touch the renderer.
func (l *Lifecycle) Dispose() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.teardownLocked()
	l.state = StateInactive
	l.replacing = false
	l.bound = false
	l.binding = Binding{}
	l.mu.Unlock()

	l.wg.Wait()
}

// teardownLocked cancels the pending resize before destroying the renderer.
func (l *Lifecycle) teardownLocked() {
	if l.resize != nil {
		l.resize.Stop()
		l.resize = nil
	}
	if l.renderer != nil {
		l.renderer.Destroy()
		l.renderer = nil
		metrics.RendererDestroyed()
		l.logger.Debug().Msg("subtitle renderer destroyed")
	}
}

func (l *Lifecycle) current(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen == gen
}
