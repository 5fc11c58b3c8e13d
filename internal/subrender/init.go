// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package subrender

import (
	"context"
	"errors"

	"github.com/ManuGH/segplay/internal/log"
	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/metrics"
	"github.com/ManuGH/segplay/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// placeholderTrack is an empty script loaded at creation so the renderer
// finishes its internal setup before real content arrives.
var placeholderTrack = []byte("[Script Info]\nScriptType: v4.00+\n\n[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

// initialize builds a renderer for b: wait for video dimensions, resolve
// fonts and content, create with the placeholder, then load and resize.
func (l *Lifecycle) initialize(ctx context.Context, gen uint64, b Binding) {
	ctx, span := telemetry.Tracer().Start(ctx, "subrender.init")
	defer span.End()
	span.SetAttributes(telemetry.TrackAttributes("subtitle", b.Track.ServerIndex, b.Track.Format)...)

	renderer, stage, err := l.build(ctx, gen, b)
	if err != nil {
		if errors.Is(err, context.Canceled) || !l.current(gen) {
			l.abandon(gen)
			metrics.IncRendererInit("canceled")
			return
		}
		ie := initError(stage, CauseGeneric, err)
		span.SetAttributes(attribute.String(telemetry.RendererStageKey, stage))
		telemetry.RecordError(span, ie, string(ie.Cause))
		l.fail(gen, ie)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		renderer.Destroy()
		metrics.IncRendererInit("canceled")
		return
	}
	l.renderer = renderer
	l.state = StateActive
	l.err = nil
	renderer.SetTimeOffset(l.effectiveOffsetLocked())
	if w, h := b.Surface.LayoutSize(); w > 0 && h > 0 {
		if err := renderer.Resize(w, h); err != nil {
			l.logger.Warn().Err(err).Msg("initial subtitle resize failed")
		}
	}
	metrics.RendererCreated()
	metrics.IncRendererInit("ok")
	l.logger.Info().
		Str(log.FieldItemID, b.Item.ID).
		Int(log.FieldServerIndex, b.Track.ServerIndex).
		Str(log.FieldSurfaceID, b.Surface.ID()).
		Msg("subtitle renderer active")
}

// build runs the init steps. It returns the failed stage with any error.
func (l *Lifecycle) build(ctx context.Context, gen uint64, b Binding) (Renderer, string, error) {
	if l.opts.Factory == nil {
		return nil, "create", &InitError{Cause: CauseRuntimeFailure, Stage: "create", Err: ErrNoFactory}
	}
	if err := l.waitDimensions(ctx, b.Surface); err != nil {
		return nil, "dimensions", err
	}
	if !l.current(gen) {
		return nil, "dimensions", context.Canceled
	}

	var (
		fonts   []string
		content []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fonts = l.resolveFonts(gctx, b.Item)
		return nil
	})
	g.Go(func() error {
		var err error
		content, err = l.fetchContent(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, "content", initError("content", CauseFetchFailure, err)
	}
	if !l.current(gen) {
		return nil, "content", context.Canceled
	}

	renderer, err := l.opts.Factory.New(ctx, RendererOptions{
		Surface: b.Surface,
		Content: placeholderTrack,
		Fonts:   fonts,
	})
	if err != nil {
		return nil, "create", initError("create", CauseRuntimeFailure, err)
	}
	if err := renderer.SetTrack(content); err != nil {
		renderer.Destroy()
		return nil, "load", initError("load", CauseRuntimeFailure, err)
	}
	return renderer, "", nil
}

// abandon returns a canceled initialisation to inactive so the same binding
// can be bound again.
func (l *Lifecycle) abandon(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return
	}
	l.state = StateInactive
	l.bound = false
}

func (l *Lifecycle) fail(gen uint64, ie *InitError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return
	}
	l.state = StateInactive
	l.err = ie
	metrics.IncRendererInit(string(ie.Cause))
	l.logger.Error().
		Err(ie.Err).
		Str(log.FieldCause, string(ie.Cause)).
		Str("stage", ie.Stage).
		Msg("subtitle renderer initialisation failed")
}

// waitDimensions polls until the surface reports video dimensions. Past the
// soft wait the surface is nudged to reload metadata once; past the hard wait
// the wait fails.
func (l *Lifecycle) waitDimensions(ctx context.Context, s Surface) error {
	start := l.opts.Clock.Now()
	nudged := false
	for {
		if w, h := s.VideoDimensions(); w > 0 && h > 0 {
			return nil
		}
		elapsed := l.opts.Clock.Now().Sub(start)
		if elapsed >= l.opts.DimensionHardWait {
			return &InitError{Cause: CauseTimeout, Stage: "dimensions", Err: ErrNoDimensions}
		}
		if !nudged && elapsed >= l.opts.DimensionSoftWait {
			nudged = true
			l.logger.Warn().Str(log.FieldSurfaceID, s.ID()).Msg("no video dimensions yet, reloading metadata")
			s.ReloadMetadata()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.opts.Clock.After(l.opts.DimensionPoll):
		}
	}
}

// resolveFonts combines embedded attachment fonts with the server fallback
// fonts. Fallback lookup failures only cost glyph coverage.
func (l *Lifecycle) resolveFonts(ctx context.Context, item media.Item) []string {
	if l.opts.Fonts == nil {
		return nil
	}
	fonts := l.opts.Fonts.EmbeddedFonts(item)
	fallback, err := l.opts.Fonts.FallbackFonts(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("fallback fonts unavailable")
		return fonts
	}
	return append(fonts, fallback...)
}

func (l *Lifecycle) fetchContent(ctx context.Context, b Binding) ([]byte, error) {
	if l.opts.Content == nil {
		return nil, ErrNoContent
	}
	ref := media.SubtitleRef{
		ItemID:      b.Item.ID,
		StreamIndex: b.Track.ServerIndex,
		Format:      media.DeliveryFormat(b.Track.Format),
		DeliveryURL: b.Track.DeliveryURL,
	}
	if src, ok := b.Item.PrimarySource(); ok {
		ref.MediaSourceID = src.ID
	}
	ctx, cancel := context.WithTimeout(ctx, l.opts.FetchTimeout)
	defer cancel()
	content, err := l.opts.Content.FetchSubtitle(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}
	return content, nil
}

// replace swaps the content of the running renderer for a new track or item
// on the same surface. On failure the old content keeps rendering.
func (l *Lifecycle) replace(ctx context.Context, gen uint64, renderer Renderer, b Binding) {
	content, err := l.fetchContent(ctx, b)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen || l.renderer != renderer {
		return
	}
	l.replacing = false
	if errors.Is(err, context.Canceled) {
		l.bound = false
		return
	}
	if err == nil {
		err = renderer.SetTrack(content)
	}
	if err != nil {
		l.err = initError("content", CauseFetchFailure, err)
		l.logger.Warn().Err(err).Int(log.FieldServerIndex, b.Track.ServerIndex).Msg("subtitle content replacement failed")
		return
	}
	l.err = nil
	renderer.SetTimeOffset(l.effectiveOffsetLocked())
	l.logger.Info().Int(log.FieldServerIndex, b.Track.ServerIndex).Msg("subtitle content replaced")
}
