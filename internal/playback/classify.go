// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"syscall"
)

// MediaCode is a native media element error code.
type MediaCode int

const (
	MediaErrNone            MediaCode = 0
	MediaErrAborted         MediaCode = 1
	MediaErrNetwork         MediaCode = 2
	MediaErrDecode          MediaCode = 3
	MediaErrSrcNotSupported MediaCode = 4
)

// Transport error types reported by the segmented-stream engine.
const (
	TransportNetwork = "networkError"
	TransportMedia   = "mediaError"
	TransportMux     = "muxError"
	TransportOther   = "otherError"
)

// TransportError is a failure raised by the segmented-stream engine.
type TransportError struct {
	Type    string
	Details string
	Status  int
	Fatal   bool
}

// RawFailure is an unclassified failure signal from a surface or engine.
type RawFailure struct {
	// SurfaceID identifies the surface that raised the failure. Failures from
	// surfaces that are no longer bound are ignored.
	SurfaceID string
	MediaCode MediaCode
	Transport *TransportError
	SourceURL string
	Message   string
	Err       error
}

// statusCoder is implemented by upstream errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

var (
	reNetworkDetails = regexp.MustCompile(
		`(?i)^(manifestLoad|manifestLoadTimeOut|levelLoad|levelLoadTimeOut|` +
			`fragLoad|fragLoadTimeOut|keyLoad|keyLoadTimeOut|audioTrackLoad|subtitleLoad)(Error)?$`)

	reMediaDetails = regexp.MustCompile(
		`(?i)^(bufferAppend|bufferAppending|bufferStalled|bufferFull|fragParsing|` +
			`fragDecrypt|manifestIncompatibleCodecs|bufferAddCodec)(Error)?$`)
)

// Classify maps a raw failure onto a PlaybackError. It has no side effects.
func Classify(raw RawFailure) *PlaybackError {
	msg := raw.Message
	if msg == "" && raw.Err != nil {
		msg = raw.Err.Error()
	}

	kind := classifyKind(raw)
	if msg == "" {
		msg = defaultMessage(kind)
	}
	return &PlaybackError{
		Kind:        kind,
		Message:     msg,
		Recoverable: kind == KindMedia || kind == KindNetwork,
		Err:         raw.Err,
	}
}

func classifyKind(raw RawFailure) ErrorKind {
	if raw.SourceURL != "" && !validSourceURL(raw.SourceURL) {
		return KindSource
	}
	if t := raw.Transport; t != nil && isSourceStatus(t.Status) {
		return KindSource
	}

	switch raw.MediaCode {
	case MediaErrDecode, MediaErrSrcNotSupported:
		return KindMedia
	case MediaErrNetwork:
		return KindNetwork
	}

	if t := raw.Transport; t != nil {
		switch {
		case t.Type == TransportNetwork, reNetworkDetails.MatchString(t.Details):
			return KindNetwork
		case t.Type == TransportMedia, t.Type == TransportMux, reMediaDetails.MatchString(t.Details):
			return KindMedia
		}
	}

	if raw.Err != nil {
		return classifyErr(raw.Err)
	}
	return KindUnknown
}

// ClassifyErr classifies a plain Go error, e.g. from the resolver.
func ClassifyErr(err error) *PlaybackError {
	if pe, ok := AsPlaybackError(err); ok {
		return pe
	}
	return Classify(RawFailure{Err: err})
}

func classifyErr(err error) ErrorKind {
	if errors.Is(err, ErrInvalidPlan) || errors.Is(err, ErrUnexpectedStrategy) || errors.Is(err, ErrOneWay) {
		return KindSource
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch status := sc.HTTPStatus(); {
		case isSourceStatus(status):
			return KindSource
		case status == http.StatusTooManyRequests, status >= 500:
			return KindNetwork
		}
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}

func isSourceStatus(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}

func validSourceURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

func defaultMessage(kind ErrorKind) string {
	switch kind {
	case KindMedia:
		return "media could not be decoded"
	case KindNetwork:
		return "network failure while loading media"
	case KindSource:
		return "media source is invalid or unreachable"
	default:
		return "unknown playback failure"
	}
}
