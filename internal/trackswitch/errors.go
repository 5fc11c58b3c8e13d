// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package trackswitch

import (
	"errors"
	"fmt"
)

// Code is the track switching error taxonomy.
type Code string

const (
	CodeTrackUnavailable Code = "track_unavailable"
	CodeAPIUnsupported   Code = "api_unsupported"
	CodeNetwork          Code = "network_error"
	CodeUnknown          Code = "unknown_error"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrTrackUnavailable = errors.New("trackswitch: track not in the current track list")
	ErrAPIUnsupported   = errors.New("trackswitch: surface does not support the required track api")
	ErrNetwork          = errors.New("trackswitch: subtitle fetch failed")
	ErrUnknown          = errors.New("trackswitch: switch failed")
	ErrParseTimeout     = errors.New("trackswitch: subtitle track was not parsed in time")
)

// Error is a failed audio or subtitle switch.
type Error struct {
	Code        Code
	TrackType   TrackType
	ServerIndex int
	Err         error // Underlying cause
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("trackswitch: %s %d: %s", e.TrackType, e.ServerIndex, e.Code)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's code.
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Code)
}

func sentinel(code Code) error {
	switch code {
	case CodeTrackUnavailable:
		return ErrTrackUnavailable
	case CodeAPIUnsupported:
		return ErrAPIUnsupported
	case CodeNetwork:
		return ErrNetwork
	default:
		return ErrUnknown
	}
}

// CodeOf returns the code of err, or CodeUnknown.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}
