// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

const (
	DefaultServerTimeout     = 10 * time.Second
	DefaultResolveTimeout    = 15 * time.Second
	DefaultFetchTimeout      = 10 * time.Second
	DefaultParseTimeout      = 3 * time.Second
	DefaultResizeDebounce    = 150 * time.Millisecond
	DefaultDimensionPoll     = 100 * time.Millisecond
	DefaultDimensionSoftWait = 3 * time.Second
	DefaultDimensionHardWait = 10 * time.Second
	DefaultSubtitleMaxBytes  = 8 << 20
)

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Server: ServerConfig{
			DeviceID:   "segplay",
			DeviceName: "segplay",
			ClientName: "segplay",
			Timeout:    DefaultServerTimeout,
		},
		Playback: PlaybackConfig{
			MaxStreamingBitrate:  120_000_000,
			ResolveTimeout:       DefaultResolveTimeout,
			TranscodingContainer: "ts",
			AudioCodecs:          []string{"aac", "mp3", "ac3", "opus", "flac"},
			VideoCodecs:          []string{"h264", "hevc", "vp9", "av1"},
		},
		Subtitles: SubtitleConfig{
			FetchTimeout:      DefaultFetchTimeout,
			ParseTimeout:      DefaultParseTimeout,
			ResizeDebounce:    DefaultResizeDebounce,
			DimensionPoll:     DefaultDimensionPoll,
			DimensionSoftWait: DefaultDimensionSoftWait,
			DimensionHardWait: DefaultDimensionHardWait,
			MaxBytes:          DefaultSubtitleMaxBytes,
		},
		Preferences: PreferencesConfig{
			SubtitleMode:          "default",
			PlayDefaultAudioTrack: true,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "development",
			SamplingRate: 1.0,
		},
	}
}
