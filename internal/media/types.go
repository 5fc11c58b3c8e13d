// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package media holds the catalog's view of a playable item. Field names follow
// the media server's JSON so catalog responses decode straight into these types.
package media

// StreamType classifies a media stream.
type StreamType string

const (
	StreamVideo         StreamType = "Video"
	StreamAudio         StreamType = "Audio"
	StreamSubtitle      StreamType = "Subtitle"
	StreamEmbeddedImage StreamType = "EmbeddedImage"
)

// Subtitle delivery methods as reported by the catalog.
const (
	DeliveryEncode   = "Encode"
	DeliveryEmbed    = "Embed"
	DeliveryExternal = "External"
	DeliveryHLS      = "Hls"
)

// MediaStream is one audio, video or subtitle stream of a media source.
// Index is global across stream types.
type MediaStream struct {
	Index          int        `json:"Index"`
	Type           StreamType `json:"Type"`
	Codec          string     `json:"Codec,omitempty"`
	Language       string     `json:"Language,omitempty"`
	Title          string     `json:"Title,omitempty"`
	DisplayTitle   string     `json:"DisplayTitle,omitempty"`
	IsDefault      bool       `json:"IsDefault"`
	IsForced       bool       `json:"IsForced"`
	IsExternal     bool       `json:"IsExternal"`
	DeliveryMethod string     `json:"DeliveryMethod,omitempty"`
	DeliveryURL    string     `json:"DeliveryUrl,omitempty"`

	// Video
	Width  int `json:"Width,omitempty"`
	Height int `json:"Height,omitempty"`

	// Audio
	Channels int `json:"Channels,omitempty"`
}

// MediaAttachment is a file embedded in the container, typically a font.
type MediaAttachment struct {
	Index       int    `json:"Index"`
	Codec       string `json:"Codec,omitempty"`
	MimeType    string `json:"MimeType,omitempty"`
	FileName    string `json:"FileName,omitempty"`
	DeliveryURL string `json:"DeliveryUrl,omitempty"`
}

// MediaSource is one playable version of an item.
type MediaSource struct {
	ID                         string            `json:"Id"`
	Path                       string            `json:"Path,omitempty"`
	Container                  string            `json:"Container,omitempty"`
	RunTimeTicks               int64             `json:"RunTimeTicks,omitempty"`
	SupportsDirectPlay         bool              `json:"SupportsDirectPlay"`
	SupportsTranscoding        bool              `json:"SupportsTranscoding"`
	DefaultAudioStreamIndex    *int              `json:"DefaultAudioStreamIndex,omitempty"`
	DefaultSubtitleStreamIndex *int              `json:"DefaultSubtitleStreamIndex,omitempty"`
	MediaStreams               []MediaStream     `json:"MediaStreams"`
	MediaAttachments           []MediaAttachment `json:"MediaAttachments,omitempty"`
}

// Item is a catalog entry that can be played.
type Item struct {
	ID           string        `json:"Id"`
	Name         string        `json:"Name"`
	Type         string        `json:"Type,omitempty"`
	RunTimeTicks int64         `json:"RunTimeTicks,omitempty"`
	MediaSources []MediaSource `json:"MediaSources"`
}

// PrimarySource returns the media source playback uses.
func (i Item) PrimarySource() (MediaSource, bool) {
	if len(i.MediaSources) == 0 {
		return MediaSource{}, false
	}
	return i.MediaSources[0], true
}

// Streams returns the streams of the primary source filtered by type, in catalog order.
func (i Item) Streams(t StreamType) []MediaStream {
	src, ok := i.PrimarySource()
	if !ok {
		return nil
	}
	var out []MediaStream
	for _, s := range src.MediaStreams {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}
