package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"arzaquna-api/internal/core/config"
)

func newTestRouter(checks map[string]Check) *gin.Engine {
	return NewRouter(zap.NewNop(), Options{
		Name:   "test",
		Mode:   gin.TestMode,
		Limits: config.Limits{RPS: 100, Burst: 100, Concurrency: 10, BodyBytes: 1 << 10, TimeoutSec: 5},
		Checks: checks,
	})
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(nil)
	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `arzaquna_http_requests_total{method="GET",route="/health",status="200"}`)
	assert.Contains(t, w.Body.String(), "arzaquna_http_in_flight_requests")
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	assert.Equal(t, http.StatusOK, get(newTestRouter(map[string]Check{"db": ok}), "/ready").Code)

	w := get(newTestRouter(map[string]Check{"db": ok, "redis": down}), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestNoRoute(t *testing.T) {
	w := get(newTestRouter(nil), "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"msg":"route not found","data":{}}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://app.arzaquna.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfigOrigins(t *testing.T) {
	c := corsConfig([]string{"https://a.example"})
	assert.False(t, c.AllowAllOrigins)
	assert.Equal(t, []string{"https://a.example"}, c.AllowOrigins)
	assert.True(t, corsConfig(nil).AllowAllOrigins)
}

func TestMode(t *testing.T) {
	assert.Equal(t, gin.ReleaseMode, Mode("prod"))
	assert.Equal(t, gin.DebugMode, Mode("local"))
}
