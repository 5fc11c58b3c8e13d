// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"errors"
	"fmt"
)

// ErrorKind is the classified cause of a playback failure.
type ErrorKind string

const (
	KindMedia   ErrorKind = "media"
	KindNetwork ErrorKind = "network"
	KindSource  ErrorKind = "source"
	KindUnknown ErrorKind = "unknown"
)

var (
	// ErrDisposed is returned by every operation on a disposed session.
	ErrDisposed = errors.New("playback: session disposed")
	// ErrSwapInFlight is returned when a strategy swap is already running.
	ErrSwapInFlight = errors.New("playback: strategy swap already in flight")
	// ErrInvalidPlan marks a resolver answer that cannot be played.
	ErrInvalidPlan = errors.New("playback: resolver returned an unusable plan")
	// ErrUnexpectedStrategy marks a resolver answer with the wrong strategy
	// for the request, e.g. a direct plan for a forced transcode.
	ErrUnexpectedStrategy = errors.New("playback: resolver returned an unexpected strategy")
	// ErrOneWay rejects a return to direct delivery after a fallback.
	ErrOneWay = errors.New("playback: direct delivery is closed for this load")
	// ErrNotLoaded is returned when no plan has been established yet.
	ErrNotLoaded = errors.New("playback: no active plan")
)

// PlaybackError is a classified failure. It is consumed once by the session
// and then surfaced; it is never retained across loads.
type PlaybackError struct {
	Kind        ErrorKind
	Message     string
	Recoverable bool
	Err         error
}

func (e *PlaybackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("playback %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("playback %s error: %s", e.Kind, e.Message)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// AsPlaybackError extracts a PlaybackError from err's chain.
func AsPlaybackError(err error) (*PlaybackError, bool) {
	var pe *PlaybackError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
