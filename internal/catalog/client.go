// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package catalog talks to a Jellyfin/Emby style media server. It implements
// the collaborators the playback core consumes: the playback-configuration
// resolver, the session tracker, the subtitle delivery endpoint and the font
// sources of the subtitle renderer.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/segplay/internal/config"
	"github.com/ManuGH/segplay/internal/log"
	"github.com/ManuGH/segplay/internal/metrics"
	"github.com/ManuGH/segplay/internal/platform/httpx"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultSubtitleMaxBytes = 8 << 20
	errorBodyLimit          = 512
)

// Options configure a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	UserID     string
	DeviceID   string
	DeviceName string
	ClientName string
	Version    string
	Timeout    time.Duration

	MaxStreamingBitrate  int
	TranscodingContainer string
	AudioCodecs          []string
	VideoCodecs          []string

	// SubtitleMaxBytes bounds a subtitle download.
	SubtitleMaxBytes int64

	// HTTPClient overrides the hardened default client.
	HTTPClient *http.Client
}

// OptionsFromConfig maps the application configuration onto client options.
func OptionsFromConfig(cfg config.AppConfig) Options {
	return Options{
		BaseURL:              cfg.Server.BaseURL,
		APIKey:               cfg.Server.APIKey,
		UserID:               cfg.Server.UserID,
		DeviceID:             cfg.Server.DeviceID,
		DeviceName:           cfg.Server.DeviceName,
		ClientName:           cfg.Server.ClientName,
		Version:              cfg.Version,
		Timeout:              cfg.Server.Timeout,
		MaxStreamingBitrate:  cfg.Playback.MaxStreamingBitrate,
		TranscodingContainer: cfg.Playback.TranscodingContainer,
		AudioCodecs:          cfg.Playback.AudioCodecs,
		VideoCodecs:          cfg.Playback.VideoCodecs,
		SubtitleMaxBytes:     cfg.Subtitles.MaxBytes,
	}
}

// Client is a media server catalog client. It is safe for concurrent use.
type Client struct {
	base   *url.URL
	opts   Options
	http   *http.Client
	logger zerolog.Logger

	fontGroup singleflight.Group
	fontMu    sync.Mutex
	fonts     []string
	fontsOK   bool
}

// New validates opts and returns a client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("catalog: invalid base url %q", opts.BaseURL)
	}
	if opts.UserID == "" {
		return nil, errors.New("catalog: user id is required")
	}
	if opts.SubtitleMaxBytes <= 0 {
		opts.SubtitleMaxBytes = defaultSubtitleMaxBytes
	}
	if opts.ClientName == "" {
		opts.ClientName = "segplay"
	}
	if opts.DeviceName == "" {
		opts.DeviceName = "segplay"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpx.NewClient(opts.Timeout)
	}
	return &Client{
		base:   base,
		opts:   opts,
		http:   hc,
		logger: log.WithComponent("catalog").With().Str(log.FieldBaseURL, base.Redacted()).Logger(),
	}, nil
}

// URL resolves an escaped path against the server base and adds the access
// token.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.base
	joinPath(&u, path)
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if c.opts.APIKey != "" {
		q.Set("api_key", c.opts.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// absolute turns a server-relative URL returned by the media server into an
// absolute one. Absolute URLs pass through.
func (c *Client) absolute(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if r.IsAbs() {
		return ref, nil
	}
	u := *c.base
	joinPath(&u, r.EscapedPath())
	u.RawQuery = r.RawQuery
	return u.String(), nil
}

// joinPath appends an escaped path to u, keeping escapes such as %2F intact.
func joinPath(u *url.URL, escaped string) {
	raw := strings.TrimRight(u.EscapedPath(), "/") + "/" + strings.TrimLeft(escaped, "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		u.Path = raw
		u.RawPath = ""
		return
	}
	u.Path = decoded
	u.RawPath = raw
}

func (c *Client) authorization() string {
	parts := []string{
		fmt.Sprintf("Client=%q", c.opts.ClientName),
		fmt.Sprintf("Device=%q", c.opts.DeviceName),
		fmt.Sprintf("DeviceId=%q", c.opts.DeviceID),
		fmt.Sprintf("Version=%q", c.opts.Version),
	}
	if c.opts.APIKey != "" {
		parts = append(parts, fmt.Sprintf("Token=%q", c.opts.APIKey))
	}
	return "MediaBrowser " + strings.Join(parts, ", ")
}

// request is one catalog call.
type request struct {
	op     string
	method string
	// url is absolute; set either url or path.
	url   string
	path  string
	query url.Values
	body  any
	// limit bounds the response body; zero means unbounded JSON decoding.
	limit int64
}

// do runs req and decodes a JSON response into out when out is non-nil. It
// returns the raw body when out is nil.
func (c *Client) do(ctx context.Context, req request, out any) ([]byte, error) {
	start := time.Now()
	raw, err := c.roundTrip(ctx, req, out)
	metrics.ObserveCatalogRequest(req.op, outcome(err), time.Since(start))
	if err != nil {
		ev := c.logger.Warn()
		if errors.Is(err, context.Canceled) {
			ev = c.logger.Debug()
		}
		ev.Err(err).Str("operation", req.op).Msg("catalog request failed")
	}
	return raw, err
}

func (c *Client) roundTrip(ctx context.Context, req request, out any) ([]byte, error) {
	target := req.url
	if target == "" {
		target = c.URL(req.path, req.query)
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s: encode request: %w", req.op, err)
		}
		body = bytes.NewReader(buf)
	}
	hr, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: build request: %w", req.op, err)
	}
	hr.Header.Set("Authorization", c.authorization())
	hr.Header.Set("Accept", "application/json")
	if body != nil {
		hr.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(hr)
	if err != nil {
		return nil, transportError(ctx, req.op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, statusError(req.op, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, &Error{Sentinel: ErrBadResponse, Operation: req.op, Status: resp.StatusCode, Err: err}
		}
		return nil, nil
	}
	if req.limit <= 0 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, req.limit+1))
	if err != nil {
		return nil, transportError(ctx, req.op, err)
	}
	if int64(len(raw)) > req.limit {
		return nil, &Error{Sentinel: ErrTooLarge, Operation: req.op, Status: resp.StatusCode}
	}
	return raw, nil
}
