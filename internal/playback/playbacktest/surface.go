// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playbacktest provides in-memory surfaces, engines and collaborators
// for exercising playback sessions without a media runtime.
package playbacktest

import (
	"fmt"
	"sync"

	"github.com/ManuGH/segplay/internal/playback"
)

// Surface is an in-memory video surface.
type Surface struct {
	mu              sync.Mutex
	id              string
	url             string
	current         float64
	paused          bool
	volume          float64
	muted           bool
	rate            float64
	seeks           []float64
	reloads         int
	metadataReloads int
	reloadErr       error
	videoW, videoH  int
	layoutW         float64
	layoutH         float64
	detached        bool
	onMetadata      func(*Surface)
}

var _ playback.Surface = (*Surface)(nil)

// NewSurface returns a playing surface at position 0 with unit volume and rate.
func NewSurface(id, url string) *Surface {
	return &Surface{id: id, url: url, volume: 1, rate: 1}
}

// Base returns the underlying fake; wrappers promote it.
func (s *Surface) Base() *Surface { return s }

func (s *Surface) ID() string  { return s.id }
func (s *Surface) URL() string { return s.url }

func (s *Surface) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Surface) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Surface) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Surface) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *Surface) PlaybackRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func (s *Surface) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = seconds
	s.seeks = append(s.seeks, seconds)
}

func (s *Surface) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

func (s *Surface) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
}

func (s *Surface) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

func (s *Surface) SetPlaybackRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
}

func (s *Surface) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloads++
	return s.reloadErr
}

func (s *Surface) ReloadMetadata() {
	s.mu.Lock()
	s.metadataReloads++
	hook := s.onMetadata
	s.mu.Unlock()
	if hook != nil {
		hook(s)
	}
}

func (s *Surface) VideoDimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoW, s.videoH
}

func (s *Surface) LayoutSize() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return 0, 0
	}
	return s.layoutW, s.layoutH
}

// SetCurrentTime moves the playhead without recording a seek.
func (s *Surface) SetCurrentTime(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = seconds
}

// SetVideoDimensions sets the decoded video size.
func (s *Surface) SetVideoDimensions(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoW, s.videoH = w, h
}

// SetLayoutSize sets the on-screen size.
func (s *Surface) SetLayoutSize(w, h float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layoutW, s.layoutH = w, h
}

// SetReloadErr makes Reload fail.
func (s *Surface) SetReloadErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadErr = err
}

// OnReloadMetadata installs a hook run after every ReloadMetadata.
func (s *Surface) OnReloadMetadata(fn func(*Surface)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMetadata = fn
}

// Seeks returns every seek target in order.
func (s *Surface) Seeks() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.seeks...)
}

// Reloads returns the number of in-place reloads.
func (s *Surface) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

// MetadataReloads returns the number of metadata nudges.
func (s *Surface) MetadataReloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadataReloads
}

// Detached reports whether the factory released the surface.
func (s *Surface) Detached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}

func (s *Surface) markDetached() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
}

func (s *Surface) String() string { return fmt.Sprintf("surface(%s)", s.id) }

// NativeAudio is a native per-track audio list.
type NativeAudio struct {
	mu        sync.Mutex
	tracks    []playback.NativeAudioTrack
	enableErr error
}

// NewNativeAudio returns a list with the first track enabled.
func NewNativeAudio(languages ...string) *NativeAudio {
	a := &NativeAudio{}
	for i, lang := range languages {
		a.tracks = append(a.tracks, playback.NativeAudioTrack{Language: lang, Label: lang, Enabled: i == 0})
	}
	return a
}

func (a *NativeAudio) AudioTracks() []playback.NativeAudioTrack {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]playback.NativeAudioTrack(nil), a.tracks...)
}

func (a *NativeAudio) EnableAudioTrack(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enableErr != nil {
		return a.enableErr
	}
	if index < 0 || index >= len(a.tracks) {
		return fmt.Errorf("audio track %d out of range", index)
	}
	for i := range a.tracks {
		a.tracks[i].Enabled = i == index
	}
	return nil
}

// Enabled returns the enabled native track, or -1.
func (a *NativeAudio) Enabled() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, t := range a.tracks {
		if t.Enabled {
			return i
		}
	}
	return -1
}

// SetEnableErr makes EnableAudioTrack fail.
func (a *NativeAudio) SetEnableErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enableErr = err
}

// Engine is an in-memory segmented-stream engine.
type Engine struct {
	mu       sync.Mutex
	audio    []playback.EngineTrack
	subs     []playback.EngineTrack
	audioSel int
	subSel   int
	subCalls []int
}

var _ playback.Engine = (*Engine)(nil)

// NewEngine returns an engine with the given track lists and subtitles off.
func NewEngine(audio, subs []playback.EngineTrack) *Engine {
	return &Engine{audio: audio, subs: subs, subSel: -1}
}

func (e *Engine) AudioTracks() []playback.EngineTrack {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]playback.EngineTrack(nil), e.audio...)
}

func (e *Engine) SetAudioTrack(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.audio) {
		return fmt.Errorf("engine audio track %d out of range", index)
	}
	e.audioSel = index
	return nil
}

func (e *Engine) SubtitleTracks() []playback.EngineTrack {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]playback.EngineTrack(nil), e.subs...)
}

func (e *Engine) SetSubtitleTrack(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < -1 || index >= len(e.subs) {
		return fmt.Errorf("engine subtitle track %d out of range", index)
	}
	e.subSel = index
	e.subCalls = append(e.subCalls, index)
	return nil
}

// SelectedAudio returns the selected engine audio track.
func (e *Engine) SelectedAudio() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.audioSel
}

// SelectedSubtitle returns the selected engine subtitle track, -1 when off.
func (e *Engine) SelectedSubtitle() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subSel
}

// SubtitleCalls returns every SetSubtitleTrack argument in order.
func (e *Engine) SubtitleCalls() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.subCalls...)
}

// DirectSurface is a direct-delivery surface with native text tracks and no
// native audio track API.
type DirectSurface struct {
	*Surface
	*TextHost
}

// MultiAudioSurface is a direct-delivery surface whose runtime exposes
// native audio tracks.
type MultiAudioSurface struct {
	*Surface
	*TextHost
	*NativeAudio
}

// EngineSurface is a transcoded surface driven by an Engine.
type EngineSurface struct {
	*Surface
	*TextHost
	engine *Engine
}

// NewEngineSurface wraps base with engine and an empty text host.
func NewEngineSurface(base *Surface, engine *Engine) *EngineSurface {
	return &EngineSurface{Surface: base, TextHost: NewTextHost(), engine: engine}
}

// Engine implements playback.EngineSurface.
func (s *EngineSurface) Engine() playback.Engine { return s.engine }

// FakeEngine returns the concrete engine.
func (s *EngineSurface) FakeEngine() *Engine { return s.engine }

var (
	_ playback.TextTrackHost     = (*DirectSurface)(nil)
	_ playback.NativeAudioTracks = (*MultiAudioSurface)(nil)
	_ playback.EngineSurface     = (*EngineSurface)(nil)
)
