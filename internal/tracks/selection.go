// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package tracks

import (
	"fmt"
	"strings"

	"github.com/ManuGH/segplay/internal/media"
)

// SubtitleMode controls which subtitle track, if any, is picked by default.
type SubtitleMode string

const (
	SubtitleModeDefault    SubtitleMode = "default"
	SubtitleModeAlways     SubtitleMode = "always"
	SubtitleModeOnlyForced SubtitleMode = "onlyForced"
	SubtitleModeNone       SubtitleMode = "none"
)

// Valid reports whether m is a known mode. The empty mode means default.
func (m SubtitleMode) Valid() bool {
	switch m {
	case "", SubtitleModeDefault, SubtitleModeAlways, SubtitleModeOnlyForced, SubtitleModeNone:
		return true
	default:
		return false
	}
}

// Preferences drive the default track choice.
type Preferences struct {
	AudioLanguage         string
	SubtitleLanguage      string
	SubtitleMode          SubtitleMode
	PlayDefaultAudioTrack bool
}

// Pick is an explicit user choice. It only applies while Key matches the
// current reset key; a nil Index means "subtitles off".
type Pick struct {
	Key   string
	Index *int
}

// IsSetFor reports whether the pick was made under key.
func (p Pick) IsSetFor(key string) bool {
	return p.Key != "" && p.Key == key
}

// State is the derived track view of the current item.
type State struct {
	Key                 string
	AudioTracks         []Audio
	SubtitleTracks      []Subtitle
	ActiveAudioIndex    *int
	ActiveSubtitleIndex *int
}

// ActiveAudio returns the active audio track.
func (s State) ActiveAudio() (Audio, bool) {
	if s.ActiveAudioIndex == nil {
		return Audio{}, false
	}
	return Find(*s.ActiveAudioIndex, s.AudioTracks)
}

// ActiveSubtitle returns the active subtitle track.
func (s State) ActiveSubtitle() (Subtitle, bool) {
	if s.ActiveSubtitleIndex == nil {
		return Subtitle{}, false
	}
	return Find(*s.ActiveSubtitleIndex, s.SubtitleTracks)
}

// ResetKey is the signature that invalidates explicit picks: it changes with
// the item, the track counts and the preferences that drive the defaults.
func ResetKey(itemID string, prefs Preferences, audioCount, subtitleCount int) string {
	return fmt.Sprintf("%s|a%d|s%d|%s|%s|%s|%t",
		itemID, audioCount, subtitleCount,
		strings.ToLower(prefs.AudioLanguage), strings.ToLower(prefs.SubtitleLanguage),
		prefs.SubtitleMode, prefs.PlayDefaultAudioTrack)
}

// Derive computes the track state of an item. It is pure: the same inputs
// always produce the same state, and no selection is cached between calls.
func Derive(item media.Item, prefs Preferences, audioPick, subtitlePick Pick) State {
	audio, subs := FromItem(item)
	key := ResetKey(item.ID, prefs, len(audio), len(subs))
	return State{
		Key:                 key,
		AudioTracks:         audio,
		SubtitleTracks:      subs,
		ActiveAudioIndex:    SelectAudio(audio, prefs, audioPick, key),
		ActiveSubtitleIndex: SelectSubtitle(subs, prefs, subtitlePick, key),
	}
}

// SelectAudio returns the active audio stream index: the user's pick when it
// is valid for key, else language match, default flag, first track.
func SelectAudio(audio []Audio, prefs Preferences, pick Pick, key string) *int {
	if pick.IsSetFor(key) && pick.Index != nil && Contains(*pick.Index, audio) {
		return intPtr(*pick.Index)
	}
	if len(audio) == 0 {
		return nil
	}

	byLanguage := func() *int {
		if prefs.AudioLanguage == "" {
			return nil
		}
		for _, a := range audio {
			if SameLanguage(a.Language, prefs.AudioLanguage) {
				return intPtr(a.ServerIndex)
			}
		}
		return nil
	}
	byDefault := func() *int {
		for _, a := range audio {
			if a.IsDefault {
				return intPtr(a.ServerIndex)
			}
		}
		return nil
	}

	order := []func() *int{byLanguage, byDefault}
	if prefs.PlayDefaultAudioTrack {
		order = []func() *int{byDefault, byLanguage}
	}
	for _, f := range order {
		if idx := f(); idx != nil {
			return idx
		}
	}
	return intPtr(audio[0].ServerIndex)
}

// SelectSubtitle returns the active subtitle stream index or nil for off.
// Outside an explicit pick, only the none mode and an unmatched onlyForced
// mode turn subtitles off.
func SelectSubtitle(subs []Subtitle, prefs Preferences, pick Pick, key string) *int {
	if pick.IsSetFor(key) {
		if pick.Index == nil {
			return nil
		}
		if Contains(*pick.Index, subs) {
			return intPtr(*pick.Index)
		}
	}
	if len(subs) == 0 {
		return nil
	}

	matches := func(s Subtitle) bool {
		return prefs.SubtitleLanguage != "" && SameLanguage(s.Language, prefs.SubtitleLanguage)
	}
	first := func(pred func(Subtitle) bool) *int {
		for _, s := range subs {
			if pred(s) {
				return intPtr(s.ServerIndex)
			}
		}
		return nil
	}

	switch prefs.SubtitleMode {
	case SubtitleModeNone:
		return nil
	case SubtitleModeOnlyForced:
		if idx := first(func(s Subtitle) bool { return s.IsForced && matches(s) }); idx != nil {
			return idx
		}
		return first(func(s Subtitle) bool { return s.IsForced })
	case SubtitleModeAlways:
		if idx := first(matches); idx != nil {
			return idx
		}
		if idx := first(func(s Subtitle) bool { return s.IsDefault }); idx != nil {
			return idx
		}
		return intPtr(subs[0].ServerIndex)
	default:
		if idx := first(matches); idx != nil {
			return idx
		}
		if idx := first(func(s Subtitle) bool { return s.IsDefault || s.IsForced }); idx != nil {
			return idx
		}
		return intPtr(subs[0].ServerIndex)
	}
}

func intPtr(v int) *int { return &v }
