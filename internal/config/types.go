// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads segplay configuration with precedence ENV > file > defaults.
package config

import (
	"time"

	"github.com/ManuGH/segplay/internal/telemetry"
	"github.com/ManuGH/segplay/internal/tracks"
)

// AppConfig is the fully resolved configuration.
type AppConfig struct {
	LogLevel    string            `yaml:"logLevel"`
	Server      ServerConfig      `yaml:"server"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Subtitles   SubtitleConfig    `yaml:"subtitles"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	// Version is stamped from the binary, never read from file or env.
	Version string `yaml:"-"`
}

// ServerConfig addresses the media server catalog API.
type ServerConfig struct {
	BaseURL    string        `yaml:"baseUrl"`
	APIKey     string        `yaml:"apiKey"`
	UserID     string        `yaml:"userId"`
	DeviceID   string        `yaml:"deviceId"`
	DeviceName string        `yaml:"deviceName"`
	ClientName string        `yaml:"clientName"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PlaybackConfig tunes strategy resolution.
type PlaybackConfig struct {
	MaxStreamingBitrate  int           `yaml:"maxStreamingBitrate"`
	ResolveTimeout       time.Duration `yaml:"resolveTimeout"`
	TranscodingContainer string        `yaml:"transcodingContainer"`
	AudioCodecs          []string      `yaml:"audioCodecs"`
	VideoCodecs          []string      `yaml:"videoCodecs"`
}

// SubtitleConfig bounds subtitle fetches and renderer setup.
type SubtitleConfig struct {
	FetchTimeout      time.Duration `yaml:"fetchTimeout"`
	ParseTimeout      time.Duration `yaml:"parseTimeout"`
	ResizeDebounce    time.Duration `yaml:"resizeDebounce"`
	DimensionPoll     time.Duration `yaml:"dimensionPoll"`
	DimensionSoftWait time.Duration `yaml:"dimensionSoftWait"`
	DimensionHardWait time.Duration `yaml:"dimensionHardWait"`
	MaxBytes          int64         `yaml:"maxBytes"`
}

// PreferencesConfig holds the user's default track preferences.
type PreferencesConfig struct {
	AudioLanguage         string `yaml:"audioLanguage"`
	SubtitleLanguage      string `yaml:"subtitleLanguage"`
	SubtitleMode          string `yaml:"subtitleMode"`
	PlayDefaultAudioTrack bool   `yaml:"playDefaultAudioTrack"`
}

// TelemetryConfig configures OTLP tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// TrackPreferences converts the preference section for the track selector.
func (p PreferencesConfig) TrackPreferences() tracks.Preferences {
	return tracks.Preferences{
		AudioLanguage:         p.AudioLanguage,
		SubtitleLanguage:      p.SubtitleLanguage,
		SubtitleMode:          tracks.SubtitleMode(p.SubtitleMode),
		PlayDefaultAudioTrack: p.PlayDefaultAudioTrack,
	}
}

// TelemetryConfig converts the telemetry section for the tracer provider.
func (c AppConfig) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    "segplay",
		ServiceVersion: c.Version,
		Environment:    c.Telemetry.Environment,
		ExporterType:   c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		SamplingRate:   c.Telemetry.SamplingRate,
	}
}
