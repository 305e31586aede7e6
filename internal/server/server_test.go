package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagramtools/mermaidfix/internal/config"
	"github.com/diagramtools/mermaidfix/pkg/cache"
	"github.com/diagramtools/mermaidfix/pkg/diagram"
	"github.com/diagramtools/mermaidfix/pkg/pipeline"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := log.New(io.Discard)
	cfg := config.Default()
	c := cache.NewNullCache()
	runner := pipeline.NewRunner(c, nil, logger)
	return New(cfg, runner, c, logger)
}

func postSanitize(t *testing.T, s *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/sanitize", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSanitizeCleanDiagram(t *testing.T) {
	s := newTestServer(t)
	text := "graph TD\n    A[Start] --> B[End]"

	rec := postSanitize(t, s, sanitizeRequest{Text: text, DeclaredType: "hld"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sanitizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, text, resp.Text)
	assert.Equal(t, diagram.Flowchart, resp.Grammar)
	assert.Equal(t, 1, resp.Strategy)
	assert.Empty(t, resp.Notice)
	assert.NotEmpty(t, resp.Telemetry.InvocationID)
}

func TestSanitizeRepairsOrphans(t *testing.T) {
	s := newTestServer(t)
	text := "classDiagram\n" +
		"class User {\n" +
		"  +name string\n" +
		"  +email string\n" +
		"  +age int\n" +
		"}\n" +
		"+stray string"

	rec := postSanitize(t, s, sanitizeRequest{Text: text, DeclaredType: "lld"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sanitizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotContains(t, resp.Text, "+stray string")
	assert.Contains(t, resp.Text, "+name string")
	assert.Equal(t, 1, resp.Telemetry.RepairCount)
}

func TestSanitizeGarbageFallsBack(t *testing.T) {
	s := newTestServer(t)

	rec := postSanitize(t, s, sanitizeRequest{Text: "%%%% not a diagram %%%%"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sanitizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Using fallback diagram", resp.Notice)
	assert.Equal(t, 5, resp.Strategy)
	assert.Equal(t, diagram.DefaultLibrary().Fallback(resp.Grammar), resp.Text)
}

func TestSanitizeValidation(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing text", func(t *testing.T) {
		rec := postSanitize(t, s, sanitizeRequest{DeclaredType: "hld"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
	})

	t.Run("invalid grammar", func(t *testing.T) {
		rec := postSanitize(t, s, sanitizeRequest{Text: "graph TD", Grammar: "ganttChart"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_GRAMMAR")
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/sanitize", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestReadyz(t *testing.T) {
	t.Run("null cache is always ready", func(t *testing.T) {
		s := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("redis readiness follows the connection", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := cache.NewRedisCache("redis://" + mr.Addr())
		require.NoError(t, err)
		defer c.Close()

		logger := log.New(io.Discard)
		runner := pipeline.NewRunner(c, nil, logger)
		s := New(config.Default(), runner, c, logger)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		mr.Close()
		rec = httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	t.Run("caller id echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	})

	t.Run("id generated when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	})
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/sanitize", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
