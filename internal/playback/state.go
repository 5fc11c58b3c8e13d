// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

// PreservedState is the playhead snapshot carried across a surface swap.
// It is written once before the swap and applied once after readiness.
type PreservedState struct {
	// Position is in media time, i.e. including any transcode offset.
	Position     float64
	Paused       bool
	Volume       float64
	Muted        bool
	PlaybackRate float64
}

// Capture snapshots p. offset converts surface time into media time.
func Capture(p Playhead, offset float64) PreservedState {
	return PreservedState{
		Position:     p.CurrentTime() + offset,
		Paused:       p.Paused(),
		Volume:       p.Volume(),
		Muted:        p.Muted(),
		PlaybackRate: p.PlaybackRate(),
	}
}

// Apply restores the snapshot onto p. offset is the new surface's transcode
// offset; positions before it clamp to the start of the stream.
func (s PreservedState) Apply(p Playhead, offset float64) {
	p.SetVolume(s.Volume)
	p.SetMuted(s.Muted)
	if s.PlaybackRate > 0 {
		p.SetPlaybackRate(s.PlaybackRate)
	}
	p.Seek(max(s.Position-offset, 0))
	p.SetPaused(s.Paused)
}

type pendingRestore struct {
	surfaceID string
	state     PreservedState
}
