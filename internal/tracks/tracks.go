// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package tracks derives the audio and subtitle track lists of an item and
// maps the catalog's global stream indices onto per-type player indices.
package tracks

import "github.com/ManuGH/segplay/internal/media"

// Audio describes one selectable audio stream.
type Audio struct {
	ServerIndex   int
	RelativeIndex int
	Language      string
	IsDefault     bool
	DisplayTitle  string
	Codec         string
	Channels      int
}

// Subtitle describes one selectable subtitle stream.
type Subtitle struct {
	ServerIndex    int
	RelativeIndex  int
	Language       string
	IsDefault      bool
	IsForced       bool
	DisplayTitle   string
	Format         string
	DeliveryURL    string
	DeliveryMethod string
	IsExternal     bool
}

// StreamIndex implements Indexed.
func (a Audio) StreamIndex() int { return a.ServerIndex }

// Position implements Indexed.
func (a Audio) Position() int { return a.RelativeIndex }

// StreamIndex implements Indexed.
func (s Subtitle) StreamIndex() int { return s.ServerIndex }

// Position implements Indexed.
func (s Subtitle) Position() int { return s.RelativeIndex }

// RequiresCustomRendering reports whether the track needs the subtitle renderer.
func (s Subtitle) RequiresCustomRendering() bool {
	return media.RequiresCustomRendering(s.Format)
}

// FromItem derives the track lists of the item's primary media source.
// Relative indices are 0-based positions within each stream type.
func FromItem(item media.Item) ([]Audio, []Subtitle) {
	var audio []Audio
	for i, s := range item.Streams(media.StreamAudio) {
		audio = append(audio, Audio{
			ServerIndex:   s.Index,
			RelativeIndex: i,
			Language:      s.Language,
			IsDefault:     s.IsDefault,
			DisplayTitle:  displayTitle(s),
			Codec:         s.Codec,
			Channels:      s.Channels,
		})
	}

	var subs []Subtitle
	for i, s := range item.Streams(media.StreamSubtitle) {
		subs = append(subs, Subtitle{
			ServerIndex:    s.Index,
			RelativeIndex:  i,
			Language:       s.Language,
			IsDefault:      s.IsDefault,
			IsForced:       s.IsForced,
			DisplayTitle:   displayTitle(s),
			Format:         media.NormalizeSubtitleFormat(s.Codec),
			DeliveryURL:    s.DeliveryURL,
			DeliveryMethod: s.DeliveryMethod,
			IsExternal:     s.IsExternal,
		})
	}
	return audio, subs
}

func displayTitle(s media.MediaStream) string {
	switch {
	case s.DisplayTitle != "":
		return s.DisplayTitle
	case s.Title != "":
		return s.Title
	case s.Language != "":
		return s.Language
	default:
		return s.Codec
	}
}
