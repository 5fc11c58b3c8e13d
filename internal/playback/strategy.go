// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playback decides how an item is delivered to a video surface and
// owns the per-load fallback state machine between delivery strategies.
package playback

// Strategy is the active delivery mode of a session.
type Strategy string

const (
	// StrategyDirect serves the original file without server-side transcoding.
	StrategyDirect Strategy = "direct"
	// StrategyTranscoded serves a segmented stream driven by a streaming engine.
	StrategyTranscoded Strategy = "transcoded"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyDirect || s == StrategyTranscoded
}

func (s Strategy) String() string { return string(s) }
