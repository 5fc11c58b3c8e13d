// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldItemID        = "item_id"
	FieldMediaSourceID = "media_source_id"
	FieldSurfaceID     = "surface_id"
	FieldPlaySessionID = "play_session_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldStrategy = "strategy"
	FieldCause    = "cause"

	// Error fields
	FieldErrorKind   = "error_kind"
	FieldRecoverable = "recoverable"
	FieldRetryCount  = "retry_count"

	// Track fields
	FieldTrackType     = "track_type"
	FieldServerIndex   = "server_index"
	FieldRelativeIndex = "relative_index"
	FieldLanguage      = "language"
	FieldFormat        = "format"

	// Position fields
	FieldPositionSeconds = "position_seconds"
	FieldPositionTicks   = "position_ticks"

	// Path / URL fields
	FieldURL     = "url"
	FieldBaseURL = "base_url"
)
