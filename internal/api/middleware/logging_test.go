package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchuk/airwatch/internal/api/middleware"
)

// logged serves req through h wrapped by wrap(Logger) and returns the
// decoded access log line.
func logged(t *testing.T, wrap func(http.Handler) http.Handler, h http.Handler, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := middleware.Logger(zerolog.New(&buf))(h)
	if wrap != nil {
		handler = wrap(handler)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_RequestFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/air-quality/current/51.5/-0.12", http.NoBody)
	req.Header.Set("User-Agent", "airwatch-android/3.0")

	entry := logged(t, nil, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"aqi":2}`))
	}), req)

	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/v1/air-quality/current/51.5/-0.12", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(len(`{"aqi":2}`)), entry["bytes"])
	assert.Equal(t, "airwatch-android/3.0", entry["user_agent"])
	assert.Contains(t, entry, "duration")
	assert.NotContains(t, entry, "trace_id")
}

func TestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{http.StatusOK, "info"},
		{http.StatusNoContent, "info"},
		{http.StatusBadRequest, "warn"},
		{http.StatusTooManyRequests, "warn"},
		{http.StatusInternalServerError, "error"},
		{http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			entry := logged(t, nil, status(tt.code),
				httptest.NewRequest(http.MethodPost, "/v1/routing/calculate-routes", http.NoBody))
			assert.Equal(t, tt.want, entry["level"])
			assert.Equal(t, float64(tt.code), entry["status"])
		})
	}
}

func TestLogger_UsesChiRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(middleware.Logger(zerolog.New(&buf)))
	r.Get("/v1/air-quality/current/{lat}/{lon}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/air-quality/current/51.5/-0.12", http.NoBody))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "/v1/air-quality/current/51.5/-0.12", entry["path"])
	assert.Equal(t, "/v1/air-quality/current/{lat}/{lon}", entry["route"])
}

func TestLogger_CorrelationIDs(t *testing.T) {
	_, tracingMW := tracing(t)
	wrap := func(h http.Handler) http.Handler {
		return middleware.RequestID(tracingMW(h))
	}

	entry := logged(t, wrap, status(http.StatusOK), httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	assert.Contains(t, entry["request_id"], "req_")
	traceID, ok := entry["trace_id"].(string)
	require.True(t, ok)
	assert.Len(t, traceID, 32)
	spanID, ok := entry["span_id"].(string)
	require.True(t, ok)
	assert.Len(t, spanID, 16)
}
