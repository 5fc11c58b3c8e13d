// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/playback"
)

var _ playback.Resolver = (*Client)(nil)

type playbackInfoRequest struct {
	UserID              string        `json:"UserId"`
	MaxStreamingBitrate int           `json:"MaxStreamingBitrate,omitempty"`
	MediaSourceID       string        `json:"MediaSourceId,omitempty"`
	AudioStreamIndex    *int          `json:"AudioStreamIndex,omitempty"`
	EnableDirectPlay    bool          `json:"EnableDirectPlay"`
	EnableDirectStream  bool          `json:"EnableDirectStream"`
	EnableTranscoding   bool          `json:"EnableTranscoding"`
	AutoOpenLiveStream  bool          `json:"AutoOpenLiveStream"`
	DeviceProfile       deviceProfile `json:"DeviceProfile"`
}

type deviceProfile struct {
	Name                string               `json:"Name"`
	MaxStreamingBitrate int                  `json:"MaxStreamingBitrate,omitempty"`
	DirectPlayProfiles  []directPlayProfile  `json:"DirectPlayProfiles"`
	TranscodingProfiles []transcodingProfile `json:"TranscodingProfiles"`
	SubtitleProfiles    []subtitleProfile    `json:"SubtitleProfiles"`
}

type directPlayProfile struct {
	Type       string `json:"Type"`
	Container  string `json:"Container,omitempty"`
	VideoCodec string `json:"VideoCodec,omitempty"`
	AudioCodec string `json:"AudioCodec,omitempty"`
}

type transcodingProfile struct {
	Type                string `json:"Type"`
	Container           string `json:"Container"`
	Protocol            string `json:"Protocol"`
	Context             string `json:"Context"`
	VideoCodec          string `json:"VideoCodec,omitempty"`
	AudioCodec          string `json:"AudioCodec,omitempty"`
	BreakOnNonKeyFrames bool   `json:"BreakOnNonKeyFrames"`
}

type subtitleProfile struct {
	Format string `json:"Format"`
	Method string `json:"Method"`
}

type playbackInfoResponse struct {
	MediaSources  []mediaSourceInfo `json:"MediaSources"`
	PlaySessionID string            `json:"PlaySessionId"`
	ErrorCode     string            `json:"ErrorCode,omitempty"`
}

type mediaSourceInfo struct {
	ID                   string `json:"Id"`
	Container            string `json:"Container,omitempty"`
	SupportsDirectPlay   bool   `json:"SupportsDirectPlay"`
	SupportsDirectStream bool   `json:"SupportsDirectStream"`
	SupportsTranscoding  bool   `json:"SupportsTranscoding"`
	TranscodingURL       string `json:"TranscodingUrl,omitempty"`
}

func (c *Client) deviceProfile() deviceProfile {
	container := c.opts.TranscodingContainer
	if container == "" {
		container = "ts"
	}
	audio := strings.Join(c.opts.AudioCodecs, ",")
	video := strings.Join(c.opts.VideoCodecs, ",")
	return deviceProfile{
		Name:                c.opts.ClientName,
		MaxStreamingBitrate: c.opts.MaxStreamingBitrate,
		DirectPlayProfiles: []directPlayProfile{
			{Type: "Video", Container: "mp4,m4v,webm,mkv", VideoCodec: video, AudioCodec: audio},
			{Type: "Audio"},
		},
		TranscodingProfiles: []transcodingProfile{{
			Type:                "Video",
			Container:           container,
			Protocol:            "hls",
			Context:             "Streaming",
			VideoCodec:          video,
			AudioCodec:          audio,
			BreakOnNonKeyFrames: true,
		}},
		SubtitleProfiles: []subtitleProfile{
			{Format: "vtt", Method: "External"},
			{Format: "ass", Method: "External"},
			{Format: "ssa", Method: "External"},
			{Format: "vtt", Method: "Hls"},
		},
	}
}

// Resolve asks the media server how to play req.Item. A direct plan is only
// returned when the server allows direct play and the request is not forced
// to transcode.
func (c *Client) Resolve(ctx context.Context, req playback.ResolveRequest) (playback.Plan, error) {
	body := playbackInfoRequest{
		UserID:              c.opts.UserID,
		MaxStreamingBitrate: c.opts.MaxStreamingBitrate,
		AudioStreamIndex:    req.AudioStreamIndex,
		EnableDirectPlay:    !req.ForceTranscode,
		EnableDirectStream:  !req.ForceTranscode,
		EnableTranscoding:   true,
		DeviceProfile:       c.deviceProfile(),
	}
	if src, ok := req.Item.PrimarySource(); ok {
		body.MediaSourceID = src.ID
	}

	var info playbackInfoResponse
	_, err := c.do(ctx, request{
		op:     "playback_info",
		method: http.MethodPost,
		path:   "/Items/" + url.PathEscape(req.Item.ID) + "/PlaybackInfo",
		query:  url.Values{"UserId": {c.opts.UserID}},
		body:   body,
	}, &info)
	if err != nil {
		return playback.Plan{}, err
	}
	if info.ErrorCode != "" {
		return playback.Plan{}, &Error{Sentinel: ErrNotPlayable, Operation: "playback_info", Body: info.ErrorCode}
	}

	src, ok := pickSource(info.MediaSources, body.MediaSourceID)
	if !ok {
		return playback.Plan{}, &Error{Sentinel: ErrNotPlayable, Operation: "playback_info", Body: "no media sources"}
	}

	plan := playback.Plan{
		MediaSourceID:    src.ID,
		PlaySessionID:    info.PlaySessionID,
		AudioStreamIndex: req.AudioStreamIndex,
	}
	switch {
	case !req.ForceTranscode && src.SupportsDirectPlay:
		plan.Strategy = playback.StrategyDirect
		plan.URL = c.directURL(req.Item.ID, src, info.PlaySessionID, req.AudioStreamIndex)
	case src.TranscodingURL != "":
		abs, err := c.absolute(src.TranscodingURL)
		if err != nil {
			return playback.Plan{}, &Error{Sentinel: ErrBadResponse, Operation: "playback_info", Err: err}
		}
		plan.Strategy = playback.StrategyTranscoded
		plan.URL = abs
		plan.TranscodeOffsetSeconds = transcodeOffset(abs)
	default:
		return playback.Plan{}, &Error{Sentinel: ErrNotPlayable, Operation: "playback_info", Body: "no direct or transcoded stream for " + src.ID}
	}
	return plan, nil
}

func pickSource(sources []mediaSourceInfo, id string) (mediaSourceInfo, bool) {
	if len(sources) == 0 {
		return mediaSourceInfo{}, false
	}
	for _, s := range sources {
		if id != "" && s.ID == id {
			return s, true
		}
	}
	return sources[0], true
}

func (c *Client) directURL(itemID string, src mediaSourceInfo, playSessionID string, audioIndex *int) string {
	q := url.Values{
		"static":        {"true"},
		"mediaSourceId": {src.ID},
		"deviceId":      {c.opts.DeviceID},
	}
	if playSessionID != "" {
		q.Set("PlaySessionId", playSessionID)
	}
	if audioIndex != nil {
		q.Set("AudioStreamIndex", strconv.Itoa(*audioIndex))
	}
	path := "/Videos/" + url.PathEscape(itemID) + "/stream"
	if src.Container != "" {
		path += "." + src.Container
	}
	return c.URL(path, q)
}

// transcodeOffset reads the stream start from a transcoding URL. The server
// encodes it as StartTimeTicks.
func transcodeOffset(raw string) float64 {
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	for key, values := range u.Query() {
		if !strings.EqualFold(key, "StartTimeTicks") || len(values) == 0 {
			continue
		}
		ticks, err := strconv.ParseInt(values[0], 10, 64)
		if err != nil || ticks <= 0 {
			return 0
		}
		return media.TicksToSeconds(ticks)
	}
	return 0
}
