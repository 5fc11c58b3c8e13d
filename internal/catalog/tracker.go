// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"net/http"

	"github.com/ManuGH/segplay/internal/log"
	"github.com/ManuGH/segplay/internal/playback"
)

var _ playback.SessionTracker = (*Client)(nil)

type playbackProgress struct {
	ItemID        string `json:"ItemId"`
	MediaSourceID string `json:"MediaSourceId,omitempty"`
	PlaySessionID string `json:"PlaySessionId,omitempty"`
	PositionTicks int64  `json:"PositionTicks"`
	PlayMethod    string `json:"PlayMethod,omitempty"`
	CanSeek       bool   `json:"CanSeek"`
}

// Start reports a transcoded playback session as started.
func (c *Client) Start(ctx context.Context, r playback.Report) error {
	_, err := c.do(ctx, request{
		op:     "session_start",
		method: http.MethodPost,
		path:   "/Sessions/Playing",
		body: playbackProgress{
			ItemID:        r.ItemID,
			MediaSourceID: r.MediaSourceID,
			PlaySessionID: r.PlaySessionID,
			PositionTicks: r.PositionTicks,
			PlayMethod:    "Transcode",
			CanSeek:       true,
		},
	}, nil)
	return err
}

// Stop reports the last position of a transcoded playback session so the
// server can release the transcode.
func (c *Client) Stop(ctx context.Context, r playback.Report) error {
	_, err := c.do(ctx, request{
		op:     "session_stop",
		method: http.MethodPost,
		path:   "/Sessions/Playing/Stopped",
		body: playbackProgress{
			ItemID:        r.ItemID,
			MediaSourceID: r.MediaSourceID,
			PlaySessionID: r.PlaySessionID,
			PositionTicks: r.PositionTicks,
		},
	}, nil)
	if err == nil {
		c.logger.Debug().
			Str(log.FieldPlaySessionID, r.PlaySessionID).
			Int64(log.FieldPositionTicks, r.PositionTicks).
			Msg("transcode session stopped")
	}
	return err
}
