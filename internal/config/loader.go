// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys. Every key read by the loader is listed here.
const (
	EnvLogLevel             = "SEGPLAY_LOG_LEVEL"
	EnvServerURL            = "SEGPLAY_SERVER_URL"
	EnvAPIKey               = "SEGPLAY_API_KEY"
	EnvUserID               = "SEGPLAY_USER_ID"
	EnvDeviceID             = "SEGPLAY_DEVICE_ID"
	EnvServerTimeout        = "SEGPLAY_SERVER_TIMEOUT"
	EnvMaxStreamingBitrate  = "SEGPLAY_MAX_STREAMING_BITRATE"
	EnvResolveTimeout       = "SEGPLAY_RESOLVE_TIMEOUT"
	EnvAudioCodecs          = "SEGPLAY_AUDIO_CODECS"
	EnvSubtitleFetchTimeout = "SEGPLAY_SUBTITLE_FETCH_TIMEOUT"
	EnvSubtitleParseTimeout = "SEGPLAY_SUBTITLE_PARSE_TIMEOUT"
	EnvSubtitleMaxBytes     = "SEGPLAY_SUBTITLE_MAX_BYTES"
	EnvResizeDebounce       = "SEGPLAY_RESIZE_DEBOUNCE"
	EnvAudioLanguage        = "SEGPLAY_AUDIO_LANGUAGE"
	EnvSubtitleLanguage     = "SEGPLAY_SUBTITLE_LANGUAGE"
	EnvSubtitleMode         = "SEGPLAY_SUBTITLE_MODE"
	EnvPlayDefaultAudio     = "SEGPLAY_PLAY_DEFAULT_AUDIO"
	EnvTelemetryEnabled     = "SEGPLAY_TELEMETRY_ENABLED"
	EnvOTLPExporter         = "SEGPLAY_OTLP_EXPORTER"
	EnvOTLPEndpoint         = "SEGPLAY_OTLP_ENDPOINT"
	EnvTraceSampling        = "SEGPLAY_TRACE_SAMPLING"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file parse -> env -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Server.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Server.BaseURL), "/")
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ConsumedKeys returns the sorted env keys consulted by the last Load.
func (l *Loader) ConsumedKeys() []string {
	keys := make([]string, 0, len(l.ConsumedEnvKeys))
	for k := range l.ConsumedEnvKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// loadFile decodes path over cfg with STRICT parsing.
// Unknown fields are fatal to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Server.BaseURL = l.envString(EnvServerURL, cfg.Server.BaseURL)
	cfg.Server.APIKey = l.envString(EnvAPIKey, cfg.Server.APIKey)
	cfg.Server.UserID = l.envString(EnvUserID, cfg.Server.UserID)
	cfg.Server.DeviceID = l.envString(EnvDeviceID, cfg.Server.DeviceID)
	cfg.Server.Timeout = l.envDuration(EnvServerTimeout, cfg.Server.Timeout)

	cfg.Playback.MaxStreamingBitrate = l.envInt(EnvMaxStreamingBitrate, cfg.Playback.MaxStreamingBitrate)
	cfg.Playback.ResolveTimeout = l.envDuration(EnvResolveTimeout, cfg.Playback.ResolveTimeout)
	cfg.Playback.AudioCodecs = l.envList(EnvAudioCodecs, cfg.Playback.AudioCodecs)

	cfg.Subtitles.FetchTimeout = l.envDuration(EnvSubtitleFetchTimeout, cfg.Subtitles.FetchTimeout)
	cfg.Subtitles.ParseTimeout = l.envDuration(EnvSubtitleParseTimeout, cfg.Subtitles.ParseTimeout)
	cfg.Subtitles.ResizeDebounce = l.envDuration(EnvResizeDebounce, cfg.Subtitles.ResizeDebounce)
	cfg.Subtitles.MaxBytes = int64(l.envInt(EnvSubtitleMaxBytes, int(cfg.Subtitles.MaxBytes)))

	cfg.Preferences.AudioLanguage = l.envString(EnvAudioLanguage, cfg.Preferences.AudioLanguage)
	cfg.Preferences.SubtitleLanguage = l.envString(EnvSubtitleLanguage, cfg.Preferences.SubtitleLanguage)
	cfg.Preferences.SubtitleMode = l.envString(EnvSubtitleMode, cfg.Preferences.SubtitleMode)
	cfg.Preferences.PlayDefaultAudioTrack = l.envBool(EnvPlayDefaultAudio, cfg.Preferences.PlayDefaultAudioTrack)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvOTLPExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvOTLPEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTraceSampling, cfg.Telemetry.SamplingRate)
}
