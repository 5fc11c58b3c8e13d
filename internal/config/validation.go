// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"strings"
	"time"

	"github.com/ManuGH/segplay/internal/tracks"
	"github.com/ManuGH/segplay/internal/validate"
	"github.com/rs/zerolog"
)

// Validate checks every section and reports all invalid fields at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil || cfg.LogLevel == "" {
		v.AddError("logLevel", "unknown log level", cfg.LogLevel)
	}

	v.URL("server.baseUrl", cfg.Server.BaseURL, []string{"http", "https"})
	v.NotEmpty("server.userId", cfg.Server.UserID)
	v.NotEmpty("server.deviceId", cfg.Server.DeviceID)
	v.DurationRange("server.timeout", cfg.Server.Timeout, time.Second, 2*time.Minute)

	v.Positive("playback.maxStreamingBitrate", cfg.Playback.MaxStreamingBitrate)
	v.DurationRange("playback.resolveTimeout", cfg.Playback.ResolveTimeout, time.Second, 2*time.Minute)
	v.OneOf("playback.transcodingContainer", cfg.Playback.TranscodingContainer, []string{"ts", "mp4"})
	if len(cfg.Playback.AudioCodecs) == 0 {
		v.AddError("playback.audioCodecs", "at least one codec is required", cfg.Playback.AudioCodecs)
	}

	s := cfg.Subtitles
	v.DurationRange("subtitles.fetchTimeout", s.FetchTimeout, 100*time.Millisecond, time.Minute)
	v.DurationRange("subtitles.parseTimeout", s.ParseTimeout, 100*time.Millisecond, time.Minute)
	v.DurationRange("subtitles.resizeDebounce", s.ResizeDebounce, time.Millisecond, 5*time.Second)
	v.DurationRange("subtitles.dimensionPoll", s.DimensionPoll, 10*time.Millisecond, 5*time.Second)
	if s.DimensionSoftWait <= 0 || s.DimensionSoftWait >= s.DimensionHardWait {
		v.AddError("subtitles.dimensionSoftWait", "must be positive and below dimensionHardWait", s.DimensionSoftWait)
	}
	if s.MaxBytes <= 0 {
		v.AddError("subtitles.maxBytes", "must be positive", s.MaxBytes)
	}

	if !tracks.SubtitleMode(cfg.Preferences.SubtitleMode).Valid() {
		v.AddError("preferences.subtitleMode", "must be one of default, always, onlyForced, none", cfg.Preferences.SubtitleMode)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", strings.ToLower(cfg.Telemetry.Exporter), []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}
	v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)

	return v.Err()
}
