// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/ManuGH/segplay/internal/playback"
	"github.com/stretchr/testify/assert"
)

type statusErr struct{ status int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.status) }
func (e statusErr) HTTPStatus() int { return e.status }

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		raw         playback.RawFailure
		kind        playback.ErrorKind
		recoverable bool
	}{
		{"decode", playback.RawFailure{MediaCode: playback.MediaErrDecode}, playback.KindMedia, true},
		{"src not supported", playback.RawFailure{MediaCode: playback.MediaErrSrcNotSupported}, playback.KindMedia, true},
		{"native network", playback.RawFailure{MediaCode: playback.MediaErrNetwork}, playback.KindNetwork, true},
		{"aborted", playback.RawFailure{MediaCode: playback.MediaErrAborted}, playback.KindUnknown, false},
		{"invalid source url", playback.RawFailure{MediaCode: playback.MediaErrDecode, SourceURL: "not a url"}, playback.KindSource, false},
		{"relative source url", playback.RawFailure{SourceURL: "/Videos/1/stream"}, playback.KindSource, false},
		{"valid source url falls through", playback.RawFailure{MediaCode: playback.MediaErrNetwork, SourceURL: "https://media/x"}, playback.KindNetwork, true},
		{"transport network", playback.RawFailure{Transport: &playback.TransportError{Type: playback.TransportNetwork}}, playback.KindNetwork, true},
		{"transport frag load detail", playback.RawFailure{Transport: &playback.TransportError{Type: playback.TransportOther, Details: "fragLoadError"}}, playback.KindNetwork, true},
		{"transport manifest 404", playback.RawFailure{Transport: &playback.TransportError{Type: playback.TransportNetwork, Details: "manifestLoadError", Status: 404}}, playback.KindSource, false},
		{"transport media", playback.RawFailure{Transport: &playback.TransportError{Type: playback.TransportMedia}}, playback.KindMedia, true},
		{"transport buffer append", playback.RawFailure{Transport: &playback.TransportError{Type: playback.TransportOther, Details: "bufferAppendError"}}, playback.KindMedia, true},
		{"transport other", playback.RawFailure{Transport: &playback.TransportError{Type: playback.TransportOther, Details: "internalException"}}, playback.KindUnknown, false},
		{"deadline", playback.RawFailure{Err: context.DeadlineExceeded}, playback.KindNetwork, true},
		{"net error", playback.RawFailure{Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}, playback.KindNetwork, true},
		{"upstream 404", playback.RawFailure{Err: statusErr{404}}, playback.KindSource, false},
		{"upstream 503", playback.RawFailure{Err: statusErr{503}}, playback.KindNetwork, true},
		{"empty", playback.RawFailure{}, playback.KindUnknown, false},
		{"plain error", playback.RawFailure{Err: errors.New("boom")}, playback.KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := playback.Classify(tt.raw)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.recoverable, got.Recoverable)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestClassify_IsPure(t *testing.T) {
	raw := playback.RawFailure{MediaCode: playback.MediaErrNetwork, Message: "stalled"}
	assert.Equal(t, playback.Classify(raw), playback.Classify(raw))
}

func TestClassifyErr_PassesThroughPlaybackError(t *testing.T) {
	pe := &playback.PlaybackError{Kind: playback.KindMedia, Message: "x", Recoverable: true}
	wrapped := fmt.Errorf("outer: %w", pe)
	assert.Same(t, pe, playback.ClassifyErr(wrapped))
}

func TestClassifyErr_PlanErrorsAreSource(t *testing.T) {
	assert.Equal(t, playback.KindSource, playback.ClassifyErr(playback.ErrInvalidPlan).Kind)
	assert.Equal(t, playback.KindSource, playback.ClassifyErr(fmt.Errorf("x: %w", playback.ErrUnexpectedStrategy)).Kind)
}

func TestPlaybackError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	pe := &playback.PlaybackError{Kind: playback.KindNetwork, Message: "m", Err: inner}
	assert.ErrorIs(t, pe, inner)
	assert.Contains(t, pe.Error(), "network")
}
