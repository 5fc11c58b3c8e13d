// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playbacktest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuGH/segplay/internal/playback"
	"github.com/stretchr/testify/mock"
)

// BuildFunc wraps a fresh base surface into the capability set a test needs.
type BuildFunc func(base *Surface, plan playback.Plan) playback.Surface

// DefaultBuild returns a DirectSurface for direct plans and an EngineSurface
// with one audio track for transcoded plans.
func DefaultBuild(base *Surface, plan playback.Plan) playback.Surface {
	if plan.Strategy == playback.StrategyTranscoded {
		return NewEngineSurface(base, NewEngine([]playback.EngineTrack{{Name: "audio"}}, nil))
	}
	return &DirectSurface{Surface: base, TextHost: NewTextHost()}
}

// Factory is an in-memory playback.SurfaceFactory.
type Factory struct {
	mu        sync.Mutex
	build     BuildFunc
	seq       int
	attachErr error
	attached  []playback.Surface
	detached  []string
}

var _ playback.SurfaceFactory = (*Factory)(nil)

// NewFactory returns a factory using build, or DefaultBuild when nil.
func NewFactory(build BuildFunc) *Factory {
	if build == nil {
		build = DefaultBuild
	}
	return &Factory{build: build}
}

// SetAttachErr makes Attach fail.
func (f *Factory) SetAttachErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachErr = err
}

func (f *Factory) Attach(ctx context.Context, plan playback.Plan) (playback.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	f.seq++
	s := f.build(NewSurface(fmt.Sprintf("surface-%d", f.seq), plan.URL), plan)
	f.attached = append(f.attached, s)
	return s, nil
}

func (f *Factory) Detach(s playback.Surface) {
	if b, ok := s.(interface{ Base() *Surface }); ok {
		b.Base().markDetached()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = append(f.detached, s.ID())
}

// Attached returns every surface attached so far.
func (f *Factory) Attached() []playback.Surface {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]playback.Surface(nil), f.attached...)
}

// Detached returns the ids of released surfaces in order.
func (f *Factory) Detached() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.detached...)
}

// BaseOf returns the fake behind s.
func BaseOf(s playback.Surface) *Surface {
	return s.(interface{ Base() *Surface }).Base()
}

// MockResolver is a testify mock of playback.Resolver.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, req playback.ResolveRequest) (playback.Plan, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(playback.Plan), args.Error(1)
}

// MockTracker is a testify mock of playback.SessionTracker.
type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) Start(ctx context.Context, report playback.Report) error {
	return m.Called(ctx, report).Error(0)
}

func (m *MockTracker) Stop(ctx context.Context, report playback.Report) error {
	return m.Called(ctx, report).Error(0)
}

// Forced matches resolve requests by their ForceTranscode flag.
func Forced(force bool) any {
	return mock.MatchedBy(func(req playback.ResolveRequest) bool { return req.ForceTranscode == force })
}

// DirectPlan is a ready direct plan for itemID.
func DirectPlan(itemID string) playback.Plan {
	return playback.Plan{
		Strategy:      playback.StrategyDirect,
		URL:           "http://media.test/Videos/" + itemID + "/stream?static=true",
		MediaSourceID: "ms-" + itemID,
	}
}

// TranscodedPlan is a ready transcoded plan for itemID.
func TranscodedPlan(itemID, playSessionID string) playback.Plan {
	return playback.Plan{
		Strategy:      playback.StrategyTranscoded,
		URL:           "http://media.test/videos/" + itemID + "/master.m3u8?PlaySessionId=" + playSessionID,
		MediaSourceID: "ms-" + itemID,
		PlaySessionID: playSessionID,
	}
}
