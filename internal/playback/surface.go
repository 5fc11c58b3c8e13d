// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import "context"

// Playhead is the media control surface of a video element.
type Playhead interface {
	CurrentTime() float64
	Paused() bool
	Volume() float64
	Muted() bool
	PlaybackRate() float64

	Seek(seconds float64)
	SetPaused(paused bool)
	SetVolume(volume float64)
	SetMuted(muted bool)
	SetPlaybackRate(rate float64)
}

// Surface is one bound video element. Every Attach yields a new identity.
type Surface interface {
	Playhead

	ID() string
	URL() string
	// Reload restarts loading of the current URL in place.
	Reload() error
	// ReloadMetadata nudges the surface to fetch its metadata again.
	ReloadMetadata()
	// VideoDimensions is the intrinsic size of the decoded video; zero until known.
	VideoDimensions() (width, height int)
	// LayoutSize is the on-screen size of the element; zero when detached or hidden.
	LayoutSize() (width, height float64)
}

// SurfaceFactory binds plans to video surfaces.
type SurfaceFactory interface {
	// Attach creates a surface and assigns plan.URL as its source.
	Attach(ctx context.Context, plan Plan) (Surface, error)
	// Detach releases a surface. It must tolerate surfaces that never became ready.
	Detach(surface Surface)
}

// NativeAudioTrack is one entry of a surface's native audio track list.
type NativeAudioTrack struct {
	Language string
	Label    string
	Enabled  bool
}

// NativeAudioTracks is implemented by surfaces whose runtime exposes per-track
// audio selection for direct delivery.
type NativeAudioTracks interface {
	AudioTracks() []NativeAudioTrack
	EnableAudioTrack(index int) error
}

// TextTrackMode mirrors the native text track display modes.
type TextTrackMode string

const (
	TextTrackDisabled TextTrackMode = "disabled"
	TextTrackHidden   TextTrackMode = "hidden"
	TextTrackShowing  TextTrackMode = "showing"
)

// NativeTextTrack is one entry of a surface's native text track list.
type NativeTextTrack struct {
	Language string
	Label    string
	Mode     TextTrackMode
}

// AttachedTextTrack is a text track added to a surface from fetched content.
type AttachedTextTrack interface {
	// Parsed is closed once the runtime has parsed the cues.
	Parsed() <-chan struct{}
	Show()
	Remove()
}

// TextTrackHost is implemented by surfaces with a native text track list.
type TextTrackHost interface {
	TextTracks() []NativeTextTrack
	ShowTextTrack(index int) error
	HideAllTextTracks()
	// AttachTextTrack adds a hidden track built from WebVTT content.
	AttachTextTrack(content []byte, language, label string) (AttachedTextTrack, error)
}

// EngineTrack is one track of the segmented-stream engine.
type EngineTrack struct {
	Name     string
	Language string
}

// Engine is the narrow control surface of the segmented-stream engine.
type Engine interface {
	AudioTracks() []EngineTrack
	SetAudioTrack(index int) error
	SubtitleTracks() []EngineTrack
	// SetSubtitleTrack selects a subtitle track; -1 disables engine subtitles.
	SetSubtitleTrack(index int) error
}

// EngineSurface is implemented by surfaces driven by the segmented-stream engine.
type EngineSurface interface {
	Engine() Engine
}
