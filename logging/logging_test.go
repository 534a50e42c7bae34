package logging

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	Init(Config{Level: level, Format: "json", Output: buf})
	t.Cleanup(func() { Init(DefaultConfig()) })
	return buf
}

func lastEvent(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &ev))
	return ev
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("disabled"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestInitLevelFilters(t *testing.T) {
	buf := captureLogs(t, "warn")
	Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	Warn().Str("k", "v").Msg("shown")
	ev := lastEvent(t, buf)
	assert.Equal(t, "shown", ev["message"])
	assert.Equal(t, "v", ev["k"])
}

func TestCtxAddsRequestID(t *testing.T) {
	buf := captureLogs(t, "debug")

	ctx := ContextWithRequestID(context.Background(), "req-1")
	Ctx(ctx).Info().Msg("with id")
	assert.Equal(t, "req-1", lastEvent(t, buf)["request_id"])

	Ctx(context.Background()).Info().Msg("without id")
	assert.NotContains(t, lastEvent(t, buf), "request_id")

	tagged := ContextWithLogger(ctx, With("ranker"))
	Ctx(tagged).Info().Msg("component")
	ev := lastEvent(t, buf)
	assert.Equal(t, "ranker", ev["component"])
	assert.Equal(t, "req-1", ev["request_id"])
}

func TestMiddleware(t *testing.T) {
	buf := captureLogs(t, "info")

	var seen string
	h := RequestID(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	t.Run("generates an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

		ev := lastEvent(t, buf)
		assert.Equal(t, "/health", ev["path"])
		assert.Equal(t, float64(http.StatusTeapot), ev["status"])
		assert.Equal(t, seen, ev["request_id"])
	})

	t.Run("reuses the caller's id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/recommend", nil)
		req.Header.Set(RequestIDHeader, "abc")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "abc", seen)
	})
}

func TestAccessLogLevel(t *testing.T) {
	buf := captureLogs(t, "error")
	status := http.StatusOK
	h := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Zero(t, buf.Len(), "successful requests log at info")

	status = http.StatusInternalServerError
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/boom", nil))
	ev := lastEvent(t, buf)
	assert.Equal(t, "error", ev["level"])
	assert.Equal(t, "/boom", ev["path"])
	assert.Equal(t, float64(http.StatusInternalServerError), ev["status"])
}
