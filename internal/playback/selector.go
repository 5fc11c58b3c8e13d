// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/segplay/internal/liveness"
	"github.com/ManuGH/segplay/internal/log"
	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/metrics"
	"github.com/ManuGH/segplay/internal/telemetry"
)

// Reason records why a selection was requested.
type Reason string

const (
	ReasonInitial     Reason = "initial"
	ReasonRetry       Reason = "retry"
	ReasonFallback    Reason = "fallback"
	ReasonAudioSwitch Reason = "audio_switch"
	ReasonAudioReload Reason = "audio_reload"
)

// ResolveRequest asks the resolver for a delivery plan.
type ResolveRequest struct {
	Item             media.Item
	AudioStreamIndex *int
	// ForceTranscode requires a transcoded plan.
	ForceTranscode bool
}

// Plan is a ready-to-use delivery plan.
type Plan struct {
	Strategy      Strategy
	URL           string
	MediaSourceID string
	PlaySessionID string
	// TranscodeOffsetSeconds is where the transcoded stream's timeline starts
	// within the item.
	TranscodeOffsetSeconds float64
	AudioStreamIndex       *int
}

// Resolver is the external playback-configuration resolver.
type Resolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (Plan, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, req ResolveRequest) (Plan, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, req ResolveRequest) (Plan, error) {
	return f(ctx, req)
}

// Selector chooses the delivery strategy for an item through a Resolver.
type Selector struct {
	resolver Resolver
	timeout  time.Duration
}

// NewSelector wraps resolver. A positive timeout bounds every resolve call.
func NewSelector(resolver Resolver, timeout time.Duration) *Selector {
	return &Selector{resolver: resolver, timeout: timeout}
}

// Select asks the resolver for a plan. The result is discarded with
// liveness.ErrStale if ctx ended while the resolver was running.
func (s *Selector) Select(ctx context.Context, req ResolveRequest, reason Reason) (Plan, error) {
	if err := liveness.Check(ctx); err != nil {
		return Plan{}, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "playback.select_strategy")
	defer span.End()
	span.SetAttributes(telemetry.SelectionAttributes(req.Item.ID, string(reason), req.AudioStreamIndex, req.ForceTranscode)...)

	resolveCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		resolveCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	plan, err := s.resolver.Resolve(resolveCtx, req)
	if staleErr := liveness.Check(ctx); staleErr != nil {
		return Plan{}, staleErr
	}
	if err != nil {
		telemetry.RecordError(span, err, string(ClassifyErr(err).Kind))
		return Plan{}, fmt.Errorf("resolve %s: %w", req.Item.ID, err)
	}
	if err := validatePlan(plan, req); err != nil {
		telemetry.RecordError(span, err, string(KindSource))
		return Plan{}, err
	}
	if plan.AudioStreamIndex == nil && req.AudioStreamIndex != nil {
		idx := *req.AudioStreamIndex
		plan.AudioStreamIndex = &idx
	}

	span.SetAttributes(telemetry.PlanAttributes(string(plan.Strategy), plan.MediaSourceID)...)
	metrics.IncStrategySelected(string(plan.Strategy), string(reason))
	logger := log.WithComponentFromContext(ctx, "selector")
	logger.Debug().
		Str(log.FieldItemID, req.Item.ID).
		Str(log.FieldStrategy, string(plan.Strategy)).
		Str("reason", string(reason)).
		Msg("strategy selected")
	return plan, nil
}

func validatePlan(plan Plan, req ResolveRequest) error {
	if !plan.Strategy.Valid() {
		return fmt.Errorf("%w: strategy %q", ErrInvalidPlan, plan.Strategy)
	}
	if plan.URL == "" || !validSourceURL(plan.URL) {
		return fmt.Errorf("%w: url %q", ErrInvalidPlan, plan.URL)
	}
	if req.ForceTranscode && plan.Strategy != StrategyTranscoded {
		return fmt.Errorf("%w: got %s for a forced transcode", ErrUnexpectedStrategy, plan.Strategy)
	}
	return nil
}
