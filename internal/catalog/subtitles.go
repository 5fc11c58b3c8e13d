// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/subrender"
	"github.com/ManuGH/segplay/internal/trackswitch"
)

var (
	_ trackswitch.SubtitleFetcher = (*Client)(nil)
	_ subrender.ContentSource     = (*Client)(nil)
)

// SubtitleURL is the delivery path of a subtitle stream. External streams the
// server already published keep their own URL.
func (c *Client) SubtitleURL(ref media.SubtitleRef) (string, error) {
	if ref.DeliveryURL != "" {
		return c.absolute(ref.DeliveryURL)
	}
	format := ref.Format
	if format == "" {
		format = media.SubtitleFormatVTT
	}
	path := "/Videos/" + url.PathEscape(ref.ItemID) +
		"/" + url.PathEscape(ref.MediaSourceID) +
		"/Subtitles/" + strconv.Itoa(ref.StreamIndex) +
		"/0/Stream." + url.PathEscape(format)
	return c.URL(path, nil), nil
}

// FetchSubtitle downloads subtitle content. Any non-success status is a
// fetch failure; bodies above the configured limit are rejected.
func (c *Client) FetchSubtitle(ctx context.Context, ref media.SubtitleRef) ([]byte, error) {
	target, err := c.SubtitleURL(ref)
	if err != nil {
		return nil, &Error{Sentinel: ErrBadResponse, Operation: "subtitle", Err: err}
	}
	return c.do(ctx, request{
		op:     "subtitle",
		method: http.MethodGet,
		url:    target,
		limit:  c.opts.SubtitleMaxBytes,
	}, nil)
}
