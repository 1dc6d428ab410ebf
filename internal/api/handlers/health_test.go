package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) Ping(_ context.Context) error { return m.pingErr }

func (m *mockHealthChecker) Health() map[string]any {
	return map[string]any{"total_conns": 3}
}

func setupHealthRouter(checker *mockHealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHealthHandler(checker, zerolog.Nop()).RegisterPublicRoutes(r)
	return r
}

func TestHealthOverall(t *testing.T) {
	r := setupHealthRouter(&mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got HealthResponse
	decodeJSON(t, w, &got)
	if got.Status != HealthStatusHealthy {
		t.Errorf("status = %s, want healthy", got.Status)
	}
	if got.Checks["database"] == nil || got.Checks["database"].Status != HealthStatusHealthy {
		t.Errorf("database check missing or unhealthy: %+v", got.Checks)
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	r := setupHealthRouter(&mockHealthChecker{pingErr: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
	var got HealthResponse
	decodeJSON(t, w, &got)
	if got.Status != HealthStatusUnhealthy {
		t.Errorf("status = %s, want unhealthy", got.Status)
	}
}

func TestVersionEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewVersionHandler("1.2.3", "abc1234", "2026-01-15").RegisterPublicRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got VersionInfo
	decodeJSON(t, w, &got)
	if got.Version != "1.2.3" || got.Commit != "abc1234" {
		t.Errorf("got %+v", got)
	}
}
