// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package trackswitch

import (
	"github.com/ManuGH/segplay/internal/playback"
	"github.com/ManuGH/segplay/internal/tracks"
)

// TrackType names the kind of track being switched.
type TrackType string

const (
	TrackAudio    TrackType = "audio"
	TrackSubtitle TrackType = "subtitle"
)

// Kind tags a successful switch result.
type Kind string

const (
	// KindUnchanged: the requested track was already active.
	KindUnchanged Kind = "unchanged"
	// KindSwitched: the track changed in place on the bound surface.
	KindSwitched Kind = "switched"
	// KindReloadRequired: delivery was reloaded with a new URL and the bound
	// surface was replaced.
	KindReloadRequired Kind = "reload_required"
	// KindHandoff: the subtitle needs the custom renderer.
	KindHandoff Kind = "handoff"
	// KindDisabled: subtitles were turned off and any custom renderer must stop.
	KindDisabled Kind = "disabled"
	// KindCanceled: the caller went away or a newer switch superseded this
	// one; nothing was changed.
	KindCanceled Kind = "canceled"
)

// Result is the outcome of a successful switch.
type Result struct {
	Kind      Kind
	TrackType TrackType
	// ServerIndex is the now-active stream index; nil for KindDisabled.
	ServerIndex *int
	// Plan is the new delivery plan for KindReloadRequired.
	Plan playback.Plan
	// Subtitle is the track to hand to the renderer for KindHandoff.
	Subtitle tracks.Subtitle
}

// ReloadRequired reports whether the authoritative surface changed.
func (r Result) ReloadRequired() bool { return r.Kind == KindReloadRequired }

// URL is the new video URL of a reload result.
func (r Result) URL() string { return r.Plan.URL }

// Applied reports whether the caller should record the switch as the active
// selection.
func (r Result) Applied() bool {
	switch r.Kind {
	case KindSwitched, KindReloadRequired, KindHandoff, KindDisabled:
		return true
	default:
		return false
	}
}
