// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import (
	"path"
	"strings"
)

// Subtitle codecs as reported by the catalog.
const (
	SubtitleFormatASS    = "ass"
	SubtitleFormatSSA    = "ssa"
	SubtitleFormatVTT    = "vtt"
	SubtitleFormatWebVTT = "webvtt"
	SubtitleFormatSRT    = "srt"
	SubtitleFormatSubRip = "subrip"
)

// NormalizeSubtitleFormat lower-cases a codec name and folds aliases.
func NormalizeSubtitleFormat(codec string) string {
	switch c := strings.ToLower(strings.TrimSpace(codec)); c {
	case SubtitleFormatWebVTT:
		return SubtitleFormatVTT
	case SubtitleFormatSubRip:
		return SubtitleFormatSRT
	default:
		return c
	}
}

// RequiresCustomRendering reports whether a subtitle codec carries styling the
// browser's text-track display cannot reproduce.
func RequiresCustomRendering(codec string) bool {
	switch NormalizeSubtitleFormat(codec) {
	case SubtitleFormatASS, SubtitleFormatSSA:
		return true
	default:
		return false
	}
}

// DeliveryFormat is the extension requested from the subtitle delivery endpoint.
// Plain-text formats are always requested as WebVTT.
func DeliveryFormat(codec string) string {
	f := NormalizeSubtitleFormat(codec)
	if RequiresCustomRendering(f) {
		return f
	}
	return SubtitleFormatVTT
}

var fontExtensions = map[string]struct{}{
	".ttf": {}, ".otf": {}, ".woff": {}, ".woff2": {}, ".ttc": {},
}

// IsFont reports whether an attachment is a font usable by the subtitle renderer.
func (a MediaAttachment) IsFont() bool {
	mime := strings.ToLower(a.MimeType)
	if strings.Contains(mime, "font") || strings.Contains(mime, "truetype") || strings.Contains(mime, "opentype") {
		return true
	}
	switch strings.ToLower(a.Codec) {
	case "ttf", "otf", "woff", "woff2":
		return true
	}
	_, ok := fontExtensions[strings.ToLower(path.Ext(a.FileName))]
	return ok
}

// SubtitleRef addresses one subtitle stream on the catalog's delivery endpoint.
type SubtitleRef struct {
	ItemID        string
	MediaSourceID string
	StreamIndex   int
	// Format is the requested delivery extension, see DeliveryFormat.
	Format string
	// DeliveryURL is set for external streams the catalog serves from a fixed path.
	DeliveryURL string
}
