// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package trackswitch

import (
	"github.com/ManuGH/segplay/internal/playback"
	"github.com/ManuGH/segplay/internal/tracks"
)

// matchNativeAudio picks a native audio track: the relative index when its
// language agrees, else the first language match, else the position alone.
// A list with fewer than two tracks cannot switch and never matches.
func matchNativeAudio(native []playback.NativeAudioTrack, relative int, language string) (int, bool) {
	langs := make([]string, len(native))
	for i, t := range native {
		langs[i] = t.Language
	}
	return match(langs, relative, language, 2)
}

// matchEngineTrack applies the native rules to the engine's audio list.
func matchEngineTrack(engine []playback.EngineTrack, relative int, language string) (int, bool) {
	langs := make([]string, len(engine))
	for i, t := range engine {
		langs[i] = t.Language
	}
	return match(langs, relative, language, 2)
}

// matchNativeText finds the native text track for a subtitle stream. Only
// one track needs to be present.
func matchNativeText(native []playback.NativeTextTrack, relative int, language string) (int, bool) {
	langs := make([]string, len(native))
	for i, t := range native {
		langs[i] = t.Language
	}
	return match(langs, relative, language, 1)
}

func match(langs []string, relative int, language string, minTracks int) (int, bool) {
	if len(langs) < minTracks {
		return 0, false
	}
	inRange := relative >= 0 && relative < len(langs)
	if inRange && compatible(langs[relative], language) {
		return relative, true
	}
	if language != "" {
		for i, l := range langs {
			if tracks.SameLanguage(l, language) {
				return i, true
			}
		}
	}
	if inRange {
		return relative, true
	}
	return 0, false
}

// compatible treats an unknown language on either side as a match.
func compatible(a, b string) bool {
	return a == "" || b == "" || tracks.SameLanguage(a, b)
}
