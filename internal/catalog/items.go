// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ManuGH/segplay/internal/media"
)

// Item fetches one playable item with its media sources and streams.
func (c *Client) Item(ctx context.Context, id string) (media.Item, error) {
	var item media.Item
	_, err := c.do(ctx, request{
		op:     "item",
		method: http.MethodGet,
		path:   "/Users/" + url.PathEscape(c.opts.UserID) + "/Items/" + url.PathEscape(id),
		query:  url.Values{"Fields": {"MediaSources,MediaStreams"}},
	}, &item)
	if err != nil {
		return media.Item{}, err
	}
	if item.ID == "" {
		return media.Item{}, &Error{Sentinel: ErrBadResponse, Operation: "item", Body: "response carries no item id"}
	}
	return item, nil
}
