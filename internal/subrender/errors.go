// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package subrender

import (
	"context"
	"errors"
	"fmt"
)

// Cause classifies a failed renderer initialisation.
type Cause string

const (
	CauseTimeout        Cause = "timeout"
	CauseRuntimeFailure Cause = "runtime_failure"
	CauseFetchFailure   Cause = "fetch_failure"
	CauseGeneric        Cause = "generic"
)

var (
	ErrNoDimensions = errors.New("subrender: surface never reported video dimensions")
	ErrNoFactory    = errors.New("subrender: no renderer factory configured")
	ErrNoContent    = errors.New("subrender: no subtitle content source configured")
	ErrEmptyContent = errors.New("subrender: subtitle content is empty")
)

// InitError is a failed renderer initialisation. It is reported once and
// never retried automatically.
type InitError struct {
	Cause Cause
	// Stage is the init step that failed: dimensions, fonts, content, create or load.
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("subrender: %s during %s: %v", e.Cause, e.Stage, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Message is the user-facing text for the failure.
func (e *InitError) Message() string {
	switch e.Cause {
	case CauseTimeout:
		return "Subtitles took too long to load."
	case CauseRuntimeFailure:
		return "The subtitle renderer failed to start."
	case CauseFetchFailure:
		return "Subtitle data could not be downloaded."
	default:
		return "Subtitles could not be displayed."
	}
}

func initError(stage string, fallback Cause, err error) *InitError {
	var ie *InitError
	if errors.As(err, &ie) {
		return ie
	}
	cause := fallback
	if errors.Is(err, context.DeadlineExceeded) {
		cause = CauseTimeout
	}
	return &InitError{Cause: cause, Stage: stage, Err: err}
}
