// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import "math"

// TicksPerSecond is the catalog's time unit: 10,000,000 ticks per second.
const TicksPerSecond = 10_000_000

// SecondsToTicks converts a playback position to catalog ticks.
func SecondsToTicks(seconds float64) int64 {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int64(math.Round(seconds * TicksPerSecond))
}

// TicksToSeconds converts catalog ticks to seconds.
func TicksToSeconds(ticks int64) float64 {
	return float64(ticks) / TicksPerSecond
}
