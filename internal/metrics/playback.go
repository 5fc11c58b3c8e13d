// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const labelUnknown = "unknown"

var (
	strategySelectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "segplay_strategy_selected_total",
		Help: "Delivery strategies chosen by the strategy selector, by strategy and reason",
	}, []string{"strategy", "reason"})

	playbackErrorTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "segplay_playback_error_total",
		Help: "Classified playback failures by error kind and the strategy active when they fired",
	}, []string{"kind", "strategy"})

	playbackRetryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "segplay_playback_retry_total",
		Help: "In-place reloads of a direct source after a transient network error",
	})

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "segplay_fallback_total",
		Help: "Swaps from direct to transcoded delivery by cause",
	}, []string{"cause"})

	trackSwitchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "segplay_track_switch_total",
		Help: "Track switch attempts by track type and outcome",
	}, []string{"type", "outcome"})

	rendererInitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "segplay_subtitle_renderer_init_total",
		Help: "Subtitle renderer initialisations by outcome",
	}, []string{"outcome"})

	renderersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "segplay_subtitle_renderers_active",
		Help: "Subtitle renderer instances currently alive",
	})
)

// IncStrategySelected records one strategy selection.
func IncStrategySelected(strategy, reason string) {
	strategySelectedTotal.WithLabelValues(
		normalize(strategy, "direct", "transcoded"),
		normalize(reason, "initial", "retry", "fallback", "audio_switch", "audio_reload"),
	).Inc()
}

// IncPlaybackError records one classified playback failure.
func IncPlaybackError(kind, strategy string) {
	playbackErrorTotal.WithLabelValues(
		normalize(kind, "media", "network", "source", "unknown"),
		normalize(strategy, "initializing", "direct", "transcoded", "disposed"),
	).Inc()
}

// IncPlaybackRetry records one same-URL reload.
func IncPlaybackRetry() {
	playbackRetryTotal.Inc()
}

// IncFallback records one direct-to-transcoded swap.
func IncFallback(cause string) {
	fallbackTotal.WithLabelValues(
		normalize(cause, "media", "network", "source", "unknown", "audio_switch"),
	).Inc()
}

// IncTrackSwitch records one audio or subtitle switch attempt.
func IncTrackSwitch(trackType, outcome string) {
	trackSwitchTotal.WithLabelValues(
		normalize(trackType, "audio", "subtitle"),
		normalize(outcome,
			"unchanged", "switched", "reload_required", "handoff", "disabled", "canceled",
			"track_unavailable", "api_unsupported", "network_error", "unknown_error"),
	).Inc()
}

// IncRendererInit records the result of one renderer initialisation.
func IncRendererInit(outcome string) {
	rendererInitTotal.WithLabelValues(
		normalize(outcome, "ok", "timeout", "runtime_failure", "fetch_failure", "generic", "canceled"),
	).Inc()
}

// RendererCreated increments the live renderer gauge.
func RendererCreated() { renderersActive.Inc() }

// RendererDestroyed decrements the live renderer gauge.
func RendererDestroyed() { renderersActive.Dec() }

// normalize keeps label cardinality bounded to an allowlist.
func normalize(value string, allowed ...string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if clean == a {
			return a
		}
	}
	return labelUnknown
}
