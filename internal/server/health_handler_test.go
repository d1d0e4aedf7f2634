package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/finsentiment/internal/monitoring"
	"github.com/spacesedan/finsentiment/internal/worker"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func getHealth(t *testing.T, healthy bool, cache Pinger) (int, HealthStatus) {
	t.Helper()

	pool := worker.New(1, 1)
	t.Cleanup(pool.Close)

	var modelHealthy atomic.Bool
	modelHealthy.Store(healthy)

	router := NewRouter(Dependencies{
		Analyzer:     new(MockAnalyzer),
		ModelName:    "ProsusAI/finbert",
		Pool:         pool,
		Cache:        cache,
		ModelHealthy: &modelHealthy,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	return w.Code, status
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		code, status := getHealth(t, true, stubPinger{})

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "ProsusAI/finbert", status.Model)
		assert.Equal(t, "ok", status.Components["cache"])
	})

	t.Run("no cache", func(t *testing.T) {
		code, status := getHealth(t, true, nil)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "not configured", status.Components["cache"])
	})

	t.Run("model unhealthy", func(t *testing.T) {
		code, status := getHealth(t, false, nil)

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", status.Components["model"])
	})

	t.Run("cache down", func(t *testing.T) {
		code, status := getHealth(t, true, stubPinger{err: errors.New("connection refused")})

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "error: connection refused", status.Components["cache"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	pool := worker.New(1, 1)
	t.Cleanup(pool.Close)

	reg := prometheus.NewRegistry()
	router := NewRouter(Dependencies{
		Analyzer: new(MockAnalyzer),
		Pool:     pool,
		Metrics:  monitoring.NewMetrics(reg),
		Gatherer: reg,
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "finsentiment_http_requests_total"))
}
