package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf, Component: ComponentHTTP})

	logger.Info("hello", FieldUserID, 7)
	logger.WithComponent(ComponentWorker).Debug("sweep")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "http", recs[0][FieldComponent])
	assert.Equal(t, float64(7), recs[0][FieldUserID])
	assert.Equal(t, "worker", recs[1][FieldComponent])
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf})

	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		}),
	))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "req-1", recs[0][FieldRequestID])
}

func TestFromContextFallsBack(t *testing.T) {
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}))
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/api/users/1/snapshot?date=2024-04-15", nil)
	sl.LogHTTPEnd(ctx, r, http.StatusNotFound, 12, "10.0.0.1")
	sl.LogSnapshotBuilt(ctx, NewFields().WithSnapshot(1, "2024-04-15", 25, 33.5, "yellow"), true)
	sl.LogError(ctx, "boom", errors.New("disk full"), ComponentStorage, OpCreate, nil)

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 3)
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.Equal(t, float64(404), recs[0][FieldStatusCode])
	assert.Equal(t, false, recs[0][FieldSuccess])
	assert.Equal(t, true, recs[1][FieldCacheHit])
	assert.Equal(t, "yellow", recs[1][FieldHealthClass])
	assert.Equal(t, "ERROR", recs[2]["level"])
	assert.Equal(t, "disk full", recs[2][FieldError])
}
