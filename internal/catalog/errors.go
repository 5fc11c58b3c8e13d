// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound            = errors.New("catalog: resource not found")
	ErrUnauthorized        = errors.New("catalog: access denied")
	ErrUpstreamUnavailable = errors.New("catalog: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("catalog: request rejected by media server")
	ErrBadResponse         = errors.New("catalog: invalid response format or malformed data")
	ErrTimeout             = errors.New("catalog: request timed out")
	ErrNotPlayable         = errors.New("catalog: media server offered no usable stream")
	ErrTooLarge            = errors.New("catalog: response exceeds size limit")
)

// Error wraps a sentinel with the request context it came from.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("catalog: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the transport cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// HTTPStatus is the response status, zero for transport failures.
func (e *Error) HTTPStatus() int { return e.Status }

func statusError(op string, status int, body string) *Error {
	var sentinel error
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		sentinel = ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
		sentinel = ErrUpstreamUnavailable
	default:
		sentinel = ErrUpstreamError
	}
	return &Error{Sentinel: sentinel, Operation: op, Status: status, Body: body}
}

// transportError maps a failed round trip. A caller cancellation is returned
// as is so it reads as a no-op upstream.
func transportError(ctx context.Context, op string, err error) error {
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.Canceled):
		return ctxErr
	case errors.Is(ctxErr, context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &Error{Sentinel: ErrTimeout, Operation: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Sentinel: ErrTimeout, Operation: op, Err: err}
	}
	return &Error{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
}

// outcome is the metric label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "unavailable"
	case errors.Is(err, ErrBadResponse), errors.Is(err, ErrTooLarge):
		return "bad_response"
	default:
		return "upstream_error"
	}
}
