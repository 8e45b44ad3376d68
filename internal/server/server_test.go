package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Exmortem/roman-numerals/internal/common/cache"
	"github.com/Exmortem/roman-numerals/internal/common/config"
	apperrors "github.com/Exmortem/roman-numerals/internal/common/errors"
	"github.com/Exmortem/roman-numerals/internal/common/logger"
	"github.com/Exmortem/roman-numerals/internal/common/observability"
	"github.com/Exmortem/roman-numerals/internal/health"
	"github.com/Exmortem/roman-numerals/internal/romannumeral"
)

// ==========================
// Test Helper Functions
// ==========================

type fixture struct {
	server   *Server
	recorder *tracetest.SpanRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)
	recorder := tracetest.NewSpanRecorder()
	obs, err := observability.New("roman-test", observability.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })

	store := cache.NewMemoryStore(100, 10*time.Second)
	aside := cache.NewAside(store, log, cache.WithObserver(obs), cache.WithTracer(obs.Tracer()))

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: 0, ReadTimeout: 1000, WriteTimeout: 1000, ShutdownTimeout: 1000},
		Telemetry: config.TelemetryConfig{MetricsPath: "/metrics"},
	}

	srv, err := New(Options{
		Config:         cfg,
		Service:        romannumeral.NewService(&romannumeral.Config{Chunks: 4}, aside, obs, log),
		Health:         health.NewChecker(time.Second, log, health.CacheIndicator(store)),
		Logger:         log,
		Gatherer:       obs.Gatherer(),
		TracerProvider: obs.TracerProvider(),
	})
	require.NoError(t, err)
	return &fixture{server: srv, recorder: recorder}
}

func (f *fixture) do(t *testing.T, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

// ==========================
// Tests
// ==========================

func TestServer_ConvertsThroughFullStack(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/romannumeral?query=1990", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"input":"1990","output":"MCMXC"}`, rec.Body.String())
}

func TestServer_RequestID(t *testing.T) {
	f := newFixture(t)

	t.Run("echoes the caller's id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/romannumeral?query=1", map[string]string{RequestIDHeader: "abc-123"})
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})

	t.Run("generates a uuid", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/romannumeral?query=1", nil)
		_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})
}

func TestServer_SecurityHeaders(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/romannumeral?query=1", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=")
	assert.Empty(t, rec.Header().Get("X-Powered-By"))
}

func TestServer_NotFound(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.ErrCodeNotFound, body.Code)
	assert.Equal(t, "Cannot handle GET /nope", body.Message)
}

func TestServer_RecoversFromPanics(t *testing.T) {
	f := newFixture(t)
	f.server.router.HandleFunc("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := f.do(t, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.ErrCodeInternal, body.Code)
}

func TestServer_Health(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","info":{"cache":{"status":"up"}},"error":{},"details":{"cache":{"status":"up"}}}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/romannumeral?query=7", nil)
	f.do(t, http.MethodGet, "/romannumeral?query=7", nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "roman_numeral_called_counter")
	assert.Contains(t, body, "roman_numeral_from_cache_counter")
	assert.Contains(t, body, `http_requests_total{method="GET",route="/romannumeral",status="200"}`)
	assert.Contains(t, body, "conversion_cache_hits_total")
}

func TestServer_Docs(t *testing.T) {
	f := newFixture(t)

	yamlRec := f.do(t, http.MethodGet, "/docs/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, yamlRec.Code)
	assert.True(t, strings.HasPrefix(yamlRec.Body.String(), "openapi: 3.0.3"))

	jsonRec := f.do(t, http.MethodGet, "/docs/openapi.json", nil)
	require.Equal(t, http.StatusOK, jsonRec.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonRec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	paths, ok := doc["paths"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, paths, "/romannumeral")

	redirect := f.do(t, http.MethodGet, "/docs", nil)
	assert.Equal(t, http.StatusFound, redirect.Code)
	assert.Equal(t, "/docs/openapi.json", redirect.Header().Get("Location"))
}

func TestServer_Tracing(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/romannumeral?min=1&max=5", nil)

	names := map[string]bool{}
	for _, s := range f.recorder.Ended() {
		names[s.Name()] = true
	}
	assert.True(t, names["GET /romannumeral"], "spans: %v", names)
	assert.True(t, names["romannumeral.GetRomanNumeral"], "spans: %v", names)
	assert.True(t, names["cache.Resolve"], "spans: %v", names)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Config: &config.Config{}})
	assert.Error(t, err)
}

func TestServer_StartAndShutdown(t *testing.T) {
	f := newFixture(t)
	f.server.httpServer.Addr = "127.0.0.1:0"

	done := make(chan error, 1)
	go func() { done <- f.server.Start() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, f.server.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
