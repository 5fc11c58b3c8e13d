// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playbacktest

import (
	"fmt"
	"sync"

	"github.com/ManuGH/segplay/internal/playback"
)

// TextHost is an in-memory native text track list.
type TextHost struct {
	mu        sync.Mutex
	tracks    []playback.NativeTextTrack
	attached  []*AttachedTrack
	autoParse bool
	attachErr error
	hideCalls int
}

var _ playback.TextTrackHost = (*TextHost)(nil)

// NewTextHost returns a host whose attached tracks parse immediately.
func NewTextHost(tracks ...playback.NativeTextTrack) *TextHost {
	return &TextHost{tracks: tracks, autoParse: true}
}

// SetAutoParse controls whether attached tracks report parsed on attach.
func (h *TextHost) SetAutoParse(auto bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autoParse = auto
}

// SetAttachErr makes AttachTextTrack fail.
func (h *TextHost) SetAttachErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attachErr = err
}

func (h *TextHost) TextTracks() []playback.NativeTextTrack {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]playback.NativeTextTrack(nil), h.tracks...)
}

func (h *TextHost) ShowTextTrack(index int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.tracks) {
		return fmt.Errorf("text track %d out of range", index)
	}
	for i := range h.tracks {
		if i == index {
			h.tracks[i].Mode = playback.TextTrackShowing
		} else {
			h.tracks[i].Mode = playback.TextTrackDisabled
		}
	}
	return nil
}

func (h *TextHost) HideAllTextTracks() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hideCalls++
	for i := range h.tracks {
		h.tracks[i].Mode = playback.TextTrackDisabled
	}
	for _, a := range h.attached {
		a.hide()
	}
}

func (h *TextHost) AttachTextTrack(content []byte, language, label string) (playback.AttachedTextTrack, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.attachErr != nil {
		return nil, h.attachErr
	}
	t := &AttachedTrack{
		Content:  append([]byte(nil), content...),
		Language: language,
		Label:    label,
		parsed:   make(chan struct{}),
	}
	if h.autoParse {
		t.MarkParsed()
	}
	h.attached = append(h.attached, t)
	return t, nil
}

// Showing returns the index of the showing native track, or -1.
func (h *TextHost) Showing() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, t := range h.tracks {
		if t.Mode == playback.TextTrackShowing {
			return i
		}
	}
	return -1
}

// Attached returns every track ever attached, in order.
func (h *TextHost) Attached() []*AttachedTrack {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*AttachedTrack(nil), h.attached...)
}

// HideCalls returns how often HideAllTextTracks ran.
func (h *TextHost) HideCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hideCalls
}

// AttachedTrack is a fetched text track attached to a TextHost.
type AttachedTrack struct {
	Content  []byte
	Language string
	Label    string

	mu        sync.Mutex
	parsed    chan struct{}
	parseOnce sync.Once
	showing   bool
	removed   bool
}

func (t *AttachedTrack) Parsed() <-chan struct{} { return t.parsed }

func (t *AttachedTrack) Show() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.showing = true
}

func (t *AttachedTrack) Remove() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removed = true
	t.showing = false
}

func (t *AttachedTrack) hide() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.showing = false
}

// MarkParsed signals that the runtime finished parsing.
func (t *AttachedTrack) MarkParsed() {
	t.parseOnce.Do(func() { close(t.parsed) })
}

// Showing reports whether the track is displayed.
func (t *AttachedTrack) Showing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.showing
}

// Removed reports whether the track was removed from its host.
func (t *AttachedTrack) Removed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removed
}
