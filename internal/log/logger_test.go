// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNew_AttachesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Output: &buf, Service: "segplay-test", Version: "v0.0.1"})

	l.Debug().Msg("hello")

	line := decodeLine(t, &buf)
	assert.Equal(t, "segplay-test", line["service"])
	assert.Equal(t, "v0.0.1", line["version"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "hello", line["message"])
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "chatty", Output: &buf})

	l.Debug().Msg("dropped")
	assert.Zero(t, buf.Len())

	l.Info().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestWithContext_AddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithSessionID(context.Background(), "sess-1")
	ctx = ContextWithItemID(ctx, "item-9")

	l := WithContext(ctx, base)
	l.Info().Msg("x")

	line := decodeLine(t, &buf)
	assert.Equal(t, "sess-1", line[FieldSessionID])
	assert.Equal(t, "item-9", line[FieldItemID])
}

func TestWithContext_NoFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := WithContext(context.Background(), base)
	l.Info().Msg("x")

	line := decodeLine(t, &buf)
	assert.NotContains(t, line, FieldSessionID)
	assert.NotContains(t, line, FieldItemID)
}

func TestContextHelpers_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	assert.Equal(t, "", SessionIDFromContext(nil))
	//nolint:staticcheck
	assert.Equal(t, "", ItemIDFromContext(nil))
}

func TestWithComponentFromContext(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{})
	mu.Lock()
	prev := base
	base = zerolog.New(&buf)
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		base = prev
		mu.Unlock()
	})

	ctx := ContextWithSessionID(context.Background(), "sess-2")
	l := WithComponentFromContext(ctx, "selector")
	l.Info().Msg("x")

	line := decodeLine(t, &buf)
	assert.Equal(t, "selector", line[FieldComponent])
	assert.Equal(t, "sess-2", line[FieldSessionID])
	assert.NotContains(t, line, FieldItemID)
}
