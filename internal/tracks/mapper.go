// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package tracks

// NotFound is returned by the mapper when a stream index is not in the list.
const NotFound = -1

// Indexed is implemented by Audio and Subtitle.
type Indexed interface {
	StreamIndex() int
	Position() int
}

// ToRelativeIndex translates a catalog stream index into the 0-based per-type
// index both player backends use. It returns NotFound for unknown indices.
func ToRelativeIndex[T Indexed](serverIndex int, tracks []T) int {
	for _, t := range tracks {
		if t.StreamIndex() == serverIndex {
			return t.Position()
		}
	}
	return NotFound
}

// Find returns the track with the given catalog stream index.
func Find[T Indexed](serverIndex int, tracks []T) (T, bool) {
	for _, t := range tracks {
		if t.StreamIndex() == serverIndex {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Contains reports whether serverIndex names a track in the list.
func Contains[T Indexed](serverIndex int, tracks []T) bool {
	return ToRelativeIndex(serverIndex, tracks) != NotFound
}
