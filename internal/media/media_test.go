// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiresCustomRendering(t *testing.T) {
	tests := []struct {
		codec string
		want  bool
	}{
		{"ass", true},
		{"ASS", true},
		{" ssa ", true},
		{"subrip", false},
		{"webvtt", false},
		{"pgssub", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresCustomRendering(tt.codec))
		})
	}
}

func TestDeliveryFormat(t *testing.T) {
	assert.Equal(t, "vtt", DeliveryFormat("subrip"))
	assert.Equal(t, "vtt", DeliveryFormat("webvtt"))
	assert.Equal(t, "ass", DeliveryFormat("ASS"))
	assert.Equal(t, "ssa", DeliveryFormat("ssa"))
}

func TestAttachmentIsFont(t *testing.T) {
	assert.True(t, MediaAttachment{MimeType: "application/x-truetype-font"}.IsFont())
	assert.True(t, MediaAttachment{MimeType: "font/otf"}.IsFont())
	assert.True(t, MediaAttachment{FileName: "Arial.TTF"}.IsFont())
	assert.True(t, MediaAttachment{Codec: "ttf"}.IsFont())
	assert.False(t, MediaAttachment{MimeType: "image/jpeg", FileName: "cover.jpg"}.IsFont())
}

func TestTicksConversion(t *testing.T) {
	assert.Equal(t, int64(15_000_000), SecondsToTicks(1.5))
	assert.Equal(t, int64(0), SecondsToTicks(-3))
	assert.Equal(t, int64(0), SecondsToTicks(math.NaN()))
	assert.InDelta(t, 1.5, TicksToSeconds(15_000_000), 1e-9)
}

func TestItem_DecodesCatalogJSON(t *testing.T) {
	raw := `{
		"Id": "abc",
		"Name": "Pilot",
		"MediaSources": [{
			"Id": "src1",
			"Container": "mkv",
			"SupportsDirectPlay": true,
			"MediaStreams": [
				{"Index": 0, "Type": "Video", "Codec": "h264"},
				{"Index": 1, "Type": "Audio", "Codec": "aac", "Language": "eng", "IsDefault": true},
				{"Index": 2, "Type": "Subtitle", "Codec": "ass", "Language": "eng"}
			],
			"MediaAttachments": [{"Index": 3, "MimeType": "font/ttf", "FileName": "a.ttf"}]
		}]
	}`
	var item Item
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	src, ok := item.PrimarySource()
	require.True(t, ok)
	assert.Equal(t, "src1", src.ID)
	assert.Len(t, item.Streams(StreamAudio), 1)
	assert.Len(t, item.Streams(StreamSubtitle), 1)
	assert.Equal(t, 2, item.Streams(StreamSubtitle)[0].Index)

	_, ok = Item{}.PrimarySource()
	assert.False(t, ok)
	assert.Nil(t, Item{}.Streams(StreamAudio))
}
