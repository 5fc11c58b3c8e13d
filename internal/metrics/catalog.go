// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "segplay_catalog_request_duration_seconds",
		Help:    "Latency of media server catalog requests by operation and outcome",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation", "outcome"})

	fallbackFontCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "segplay_fallback_font_cache_total",
		Help: "Fallback font lookups served from cache or fetched",
	}, []string{"result"})
)

// ObserveCatalogRequest records the duration of one catalog request.
func ObserveCatalogRequest(operation, outcome string, d time.Duration) {
	catalogRequestDuration.WithLabelValues(
		normalize(operation, "item", "playback_info", "subtitle", "fallback_fonts", "session_start", "session_stop"),
		normalize(outcome, "ok", "not_found", "unauthorized", "unavailable", "upstream_error", "bad_response", "timeout", "canceled"),
	).Observe(d.Seconds())
}

// IncFallbackFontCache records a fallback font lookup as hit or miss.
func IncFallbackFontCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	fallbackFontCacheTotal.WithLabelValues(result).Inc()
}
