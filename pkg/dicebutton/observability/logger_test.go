package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records for testing.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &testHandler{
		buf:   h.buf,
		level: h.level,
		attrs: make([]slog.Attr, len(h.attrs)+len(attrs)),
	}
	copy(newH.attrs, h.attrs)
	copy(newH.attrs[len(h.attrs):], attrs)
	return newH
}

func (h *testHandler) WithGroup(_ string) slog.Handler { return h }

// lastRecord decodes the most recent log line.
func (h *testHandler) lastRecord(t *testing.T) map[string]any {
	lines := strings.Split(strings.TrimSpace(h.buf.String()), "\n")
	require.NotEmpty(t, lines)
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &data))
	return data
}

func TestEnrichLogger(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	enriched := EnrichLogger(logger, "hold_reroll", "f00f", "current")
	require.NotNil(t, enriched)
	enriched.Info("handling click")

	data := h.lastRecord(t)
	assert.Equal(t, "hold_reroll", data["command_id"])
	assert.Equal(t, "f00f", data["flow_id"])
	assert.Equal(t, "current", data["encoding"])
}

func TestEnrichLogger_NilLogger(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, "a", "b", "c"))
}

func TestLogClickHandled(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogClickHandled(logger, "pool_target", "finalize", 12.5)

	data := h.lastRecord(t)
	assert.Equal(t, "click handled", data["msg"])
	assert.Equal(t, "pool_target", data["command_id"])
	assert.Equal(t, "finalize", data["outcome"])
	assert.Equal(t, 12.5, data["duration_ms"])
}

func TestLogClickError(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogClickError(logger, "sum_dice_set", errors.New("boom"))

	data := h.lastRecord(t)
	assert.Equal(t, "ERROR", data["level"])
	assert.Equal(t, "boom", data["error"])
}

func TestLogClickRejected(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogClickRejected(logger, "sum_custom_set", "wrong user")

	data := h.lastRecord(t)
	assert.Equal(t, "DEBUG", data["level"])
	assert.Equal(t, "wrong user", data["reason"])
}

func TestLogLegacyMigration(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogLegacyMigration(logger, "hold_reroll", "legacy_nul", "abc")

	data := h.lastRecord(t)
	assert.Equal(t, "legacy flow migrated", data["msg"])
	assert.Equal(t, "legacy_nul", data["encoding"])
}

func TestLogFunctions_NilLogger(t *testing.T) {
	// All log helpers must tolerate a nil logger.
	LogClickStart(nil, "a", "b")
	LogClickHandled(nil, "a", "b", 1)
	LogClickError(nil, "a", errors.New("x"))
	LogClickRejected(nil, "a", "b")
	LogLegacyMigration(nil, "a", "b", "c")
	LogFlowStart(nil, "a", "b", 1)
	LogStoreError(nil, "put", errors.New("x"))
	LogAdapterError(nil, "edit", errors.New("x"))
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	elapsed := done()
	assert.GreaterOrEqual(t, elapsed, float64(0))
}
