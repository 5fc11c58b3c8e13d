// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/metrics"
	"github.com/ManuGH/segplay/internal/subrender"
)

var _ subrender.FontSource = (*Client)(nil)

var fontExtensions = map[string]bool{".ttf": true, ".otf": true, ".ttc": true, ".woff": true, ".woff2": true}

// EmbeddedFonts derives font attachment URLs from item metadata. It makes no
// network call.
func (c *Client) EmbeddedFonts(item media.Item) []string {
	src, ok := item.PrimarySource()
	if !ok {
		return nil
	}
	var out []string
	for _, a := range src.MediaAttachments {
		if !isFont(a) {
			continue
		}
		if a.DeliveryURL != "" {
			if abs, err := c.absolute(a.DeliveryURL); err == nil {
				out = append(out, abs)
				continue
			}
		}
		out = append(out, c.URL("/Videos/"+url.PathEscape(item.ID)+"/"+url.PathEscape(src.ID)+"/Attachments/"+strconv.Itoa(a.Index), nil))
	}
	return out
}

func isFont(a media.MediaAttachment) bool {
	mime := strings.ToLower(a.MimeType)
	switch {
	case strings.HasPrefix(mime, "font/"),
		strings.Contains(mime, "truetype"),
		strings.Contains(mime, "opentype"),
		strings.Contains(mime, "font-woff"):
		return true
	}
	switch strings.ToLower(a.Codec) {
	case "ttf", "otf":
		return true
	}
	return fontExtensions[strings.ToLower(path.Ext(a.FileName))]
}

type fallbackFont struct {
	Name string `json:"Name"`
}

// FallbackFonts returns the server-wide fallback font URLs. The list is
// fetched once; concurrent callers share one request. Failures are not
// cached.
func (c *Client) FallbackFonts(ctx context.Context) ([]string, error) {
	c.fontMu.Lock()
	if c.fontsOK {
		fonts := c.fonts
		c.fontMu.Unlock()
		metrics.IncFallbackFontCache(true)
		return fonts, nil
	}
	c.fontMu.Unlock()
	metrics.IncFallbackFontCache(false)

	ch := c.fontGroup.DoChan("fallback", func() (any, error) {
		c.fontMu.Lock()
		if c.fontsOK {
			fonts := c.fonts
			c.fontMu.Unlock()
			return fonts, nil
		}
		c.fontMu.Unlock()
		// The shared fetch outlives any single caller.
		fetchCtx := context.WithoutCancel(ctx)
		if c.opts.Timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, c.opts.Timeout)
			defer cancel()
		}
		var list []fallbackFont
		if _, err := c.do(fetchCtx, request{
			op:     "fallback_fonts",
			method: http.MethodGet,
			path:   "/FallbackFont/Fonts",
		}, &list); err != nil {
			return nil, err
		}
		fonts := make([]string, 0, len(list))
		for _, f := range list {
			if f.Name == "" {
				continue
			}
			fonts = append(fonts, c.URL("/FallbackFont/Fonts/"+url.PathEscape(f.Name), nil))
		}
		c.fontMu.Lock()
		c.fonts = fonts
		c.fontsOK = true
		c.fontMu.Unlock()
		return fonts, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	}
}
