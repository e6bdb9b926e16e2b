package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLoggerComponentAndErrorCaller(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: LevelInfo, EnableCaller: true, Environment: "test"}, &buf)

	log.WithComponent("cart_service").Error("boom", "user_id", 7)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "cart_service", lines[0]["component"])
	assert.Equal(t, "test", lines[0]["environment"])
	assert.Equal(t, float64(7), lines[0]["user_id"])
	assert.Contains(t, lines[0]["caller"], "logger_test.go")
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: LevelWarn}, &buf)

	log.Info("hidden")
	log.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestLogUpdateResult(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: LevelInfo}, &buf)

	ok := NewUpdateContext(1, 42, 99, "view_cart")
	log.LogUpdateResult(ok)

	failed := NewUpdateContext(2, 42, 99, "start")
	failed.Err = errors.New("store unavailable")
	log.LogUpdateResult(failed)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "view_cart", lines[0]["action"])
	assert.NotEmpty(t, lines[0]["request_id"])
	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "store unavailable", lines[1]["error"])
	assert.NotEqual(t, ok.RequestID, failed.RequestID)
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: LevelDebug}, &buf)

	h := log.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	last := lines[1]
	assert.Equal(t, "ERROR", last["level"])
	assert.Equal(t, "req-1", last["request_id"])
	assert.Equal(t, "10.0.0.1", last["remote_addr"])
	assert.Equal(t, float64(503), last["status_code"])
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().WithComponent("x").Error("ignored")
	})
}
