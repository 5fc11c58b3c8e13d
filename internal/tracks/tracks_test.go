// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package tracks

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/segplay/internal/media"
)

func testItem() media.Item {
	return media.Item{
		ID: "item-1",
		MediaSources: []media.MediaSource{{
			ID: "src-1",
			MediaStreams: []media.MediaStream{
				{Index: 0, Type: media.StreamVideo, Codec: "h264"},
				{Index: 1, Type: media.StreamSubtitle, Codec: "subrip", Language: "eng", DisplayTitle: "English"},
				{Index: 2, Type: media.StreamAudio, Codec: "aac", Language: "eng", IsDefault: true},
				{Index: 3, Type: media.StreamSubtitle, Codec: "ass", Language: "spa", IsForced: true},
				{Index: 5, Type: media.StreamAudio, Codec: "ac3", Language: "es", Title: "Castellano"},
			},
		}},
	}
}

func TestFromItem_RelativeIndicesPerType(t *testing.T) {
	audio, subs := FromItem(testItem())

	wantAudio := []Audio{
		{ServerIndex: 2, RelativeIndex: 0, Language: "eng", IsDefault: true, DisplayTitle: "eng", Codec: "aac"},
		{ServerIndex: 5, RelativeIndex: 1, Language: "es", DisplayTitle: "Castellano", Codec: "ac3"},
	}
	if diff := cmp.Diff(wantAudio, audio); diff != "" {
		t.Fatalf("audio mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, subs, 2)
	assert.Equal(t, 1, subs[0].ServerIndex)
	assert.Equal(t, 0, subs[0].RelativeIndex)
	assert.Equal(t, "srt", subs[0].Format)
	assert.Equal(t, 3, subs[1].ServerIndex)
	assert.Equal(t, 1, subs[1].RelativeIndex)
	assert.True(t, subs[1].RequiresCustomRendering())
}

func TestToRelativeIndex(t *testing.T) {
	audio, subs := FromItem(testItem())

	for _, a := range audio {
		assert.Equal(t, a.RelativeIndex, ToRelativeIndex(a.ServerIndex, audio))
		// Repeated calls are stable.
		assert.Equal(t, a.RelativeIndex, ToRelativeIndex(a.ServerIndex, audio))
	}
	for _, s := range subs {
		assert.Equal(t, s.RelativeIndex, ToRelativeIndex(s.ServerIndex, subs))
	}

	for _, absent := range []int{-1, 0, 1, 4, 99} {
		assert.Equal(t, NotFound, ToRelativeIndex(absent, audio), "index %d", absent)
	}
	assert.Equal(t, NotFound, ToRelativeIndex(2, subs), "audio index is not a subtitle")
	assert.Equal(t, NotFound, ToRelativeIndex(2, []Audio(nil)))
}

func TestSameLanguage(t *testing.T) {
	assert.True(t, SameLanguage("es", "spa"))
	assert.True(t, SameLanguage("eng", "en"))
	assert.True(t, SameLanguage("en-US", "eng"))
	assert.True(t, SameLanguage("EN", "en"))
	assert.False(t, SameLanguage("en", "es"))
	assert.False(t, SameLanguage("", "en"))
}

func TestSelectAudio(t *testing.T) {
	audio, _ := FromItem(testItem())
	key := "k"

	tests := []struct {
		name  string
		prefs Preferences
		pick  Pick
		want  int
	}{
		{"default flag without preference", Preferences{}, Pick{}, 2},
		{"language match", Preferences{AudioLanguage: "spa"}, Pick{}, 5},
		{"default track wins when requested", Preferences{AudioLanguage: "spa", PlayDefaultAudioTrack: true}, Pick{}, 2},
		{"explicit pick", Preferences{}, Pick{Key: key, Index: intPtr(5)}, 5},
		{"stale pick ignored", Preferences{}, Pick{Key: "old", Index: intPtr(5)}, 2},
		{"invalid pick ignored", Preferences{}, Pick{Key: key, Index: intPtr(9)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectAudio(audio, tt.prefs, tt.pick, key)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, SelectAudio(nil, Preferences{}, Pick{}, key))

	noDefault := []Audio{{ServerIndex: 7}, {ServerIndex: 8, RelativeIndex: 1}}
	assert.Equal(t, 7, *SelectAudio(noDefault, Preferences{}, Pick{}, key))
}

func TestSelectSubtitle(t *testing.T) {
	_, subs := FromItem(testItem())
	key := "k"

	tests := []struct {
		name  string
		prefs Preferences
		pick  Pick
		want  *int
	}{
		{"mode none", Preferences{SubtitleMode: SubtitleModeNone, SubtitleLanguage: "eng"}, Pick{}, nil},
		{"default mode language match", Preferences{SubtitleLanguage: "en"}, Pick{}, intPtr(1)},
		{"default mode falls back to forced", Preferences{}, Pick{}, intPtr(3)},
		{"only forced", Preferences{SubtitleMode: SubtitleModeOnlyForced, SubtitleLanguage: "eng"}, Pick{}, intPtr(3)},
		{"always takes first", Preferences{SubtitleMode: SubtitleModeAlways, SubtitleLanguage: "fr"}, Pick{}, intPtr(1)},
		{"explicit off", Preferences{SubtitleLanguage: "en"}, Pick{Key: key}, nil},
		{"explicit pick", Preferences{}, Pick{Key: key, Index: intPtr(1)}, intPtr(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectSubtitle(subs, tt.prefs, tt.pick, key))
		})
	}
}

func TestSelectSubtitle_DefaultModeFallsBackToFirst(t *testing.T) {
	subs := []Subtitle{
		{ServerIndex: 4, RelativeIndex: 0, Language: "fr"},
		{ServerIndex: 6, RelativeIndex: 1, Language: "de"},
	}

	for _, mode := range []SubtitleMode{"", SubtitleModeDefault} {
		got := SelectSubtitle(subs, Preferences{SubtitleMode: mode, SubtitleLanguage: "en"}, Pick{}, "k")
		require.NotNil(t, got, "mode %q", mode)
		assert.Equal(t, 4, *got)
	}
	assert.Nil(t, SelectSubtitle(subs, Preferences{SubtitleMode: SubtitleModeOnlyForced}, Pick{}, "k"))
	assert.Nil(t, SelectSubtitle(subs, Preferences{SubtitleMode: SubtitleModeNone}, Pick{}, "k"))
}

func TestDerive_IsPureAndKeyed(t *testing.T) {
	item := testItem()
	prefs := Preferences{AudioLanguage: "eng"}

	first := Derive(item, prefs, Pick{}, Pick{})
	second := Derive(item, prefs, Pick{}, Pick{})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("derive is not deterministic:\n%s", diff)
	}

	picked := Derive(item, prefs, Pick{Key: first.Key, Index: intPtr(5)}, Pick{Key: first.Key})
	assert.Equal(t, 5, *picked.ActiveAudioIndex)
	assert.Nil(t, picked.ActiveSubtitleIndex)

	other := item
	other.ID = "item-2"
	carried := Derive(other, prefs, Pick{Key: first.Key, Index: intPtr(5)}, Pick{})
	assert.Equal(t, 2, *carried.ActiveAudioIndex, "a pick never survives an item change")

	a, ok := picked.ActiveAudio()
	require.True(t, ok)
	assert.Equal(t, "es", a.Language)
	_, ok = picked.ActiveSubtitle()
	assert.False(t, ok)
}

func TestSubtitleModeValid(t *testing.T) {
	assert.True(t, SubtitleMode("").Valid())
	assert.True(t, SubtitleModeOnlyForced.Valid())
	assert.False(t, SubtitleMode("sometimes").Valid())
}
