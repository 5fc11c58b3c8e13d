// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by playback spans.
const (
	ItemIDKey        = "playback.item_id"
	MediaSourceIDKey = "playback.media_source_id"
	StrategyKey      = "playback.strategy"
	SelectReasonKey  = "playback.select_reason"
	ForceTranscode   = "playback.force_transcode"
	AudioIndexKey    = "playback.audio_stream_index"

	ErrorKindKey        = "playback.error.kind"
	ErrorRecoverableKey = "playback.error.recoverable"

	TrackTypeKey     = "track.type"
	TrackIndexKey    = "track.server_index"
	TrackFormatKey   = "track.format"
	TrackOutcomeKey  = "track.outcome"
	RendererStageKey = "subtitle.renderer.stage"

	HTTPMethodKey     = "http.method"
	HTTPRouteKey      = "http.route"
	HTTPStatusCodeKey = "http.status_code"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SelectionAttributes describes one strategy selection request.
func SelectionAttributes(itemID, reason string, audioIndex *int, force bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(ItemIDKey, itemID),
		attribute.String(SelectReasonKey, reason),
		attribute.Bool(ForceTranscode, force),
	}
	if audioIndex != nil {
		attrs = append(attrs, attribute.Int(AudioIndexKey, *audioIndex))
	}
	return attrs
}

// PlanAttributes describes a resolved playback plan.
func PlanAttributes(strategy, mediaSourceID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(StrategyKey, strategy)}
	if mediaSourceID != "" {
		attrs = append(attrs, attribute.String(MediaSourceIDKey, mediaSourceID))
	}
	return attrs
}

// PlaybackErrorAttributes describes a classified playback failure.
func PlaybackErrorAttributes(kind string, recoverable bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ErrorKindKey, kind),
		attribute.Bool(ErrorRecoverableKey, recoverable),
	}
}

// TrackAttributes describes a track switch request.
func TrackAttributes(trackType string, serverIndex int, format string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(TrackTypeKey, trackType),
		attribute.Int(TrackIndexKey, serverIndex),
	}
	if format != "" {
		attrs = append(attrs, attribute.String(TrackFormatKey, format))
	}
	return attrs
}

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(err error, errorType string) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// RecordError marks span as failed with err. A nil err is a no-op.
func RecordError(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(ErrorAttributes(err, errorType)...)
	span.SetStatus(codes.Error, err.Error())
}
