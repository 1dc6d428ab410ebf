package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveWithSecurityHeaders(cfg SecurityHeadersConfig) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestSecurityHeadersProduction(t *testing.T) {
	w := serveWithSecurityHeaders(DefaultSecurityHeadersConfig())

	want := map[string]string{
		"X-Frame-Options":              "DENY",
		"X-Content-Type-Options":       "nosniff",
		"Referrer-Policy":              "strict-origin-when-cross-origin",
		"Cross-Origin-Opener-Policy":   "same-origin",
		"Cross-Origin-Resource-Policy": "same-origin",
		"Strict-Transport-Security":    "max-age=31536000; includeSubDomains",
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}

	csp := w.Header().Get("Content-Security-Policy")
	for _, directive := range []string{
		"default-src 'self'",
		"connect-src 'self' wss:",
		"img-src 'self' data: https:",
		"frame-ancestors 'none'",
		"upgrade-insecure-requests",
	} {
		if !strings.Contains(csp, directive) {
			t.Errorf("CSP missing %q: %s", directive, csp)
		}
	}
	if strings.Contains(csp, "unsafe-eval") {
		t.Errorf("production CSP allows eval: %s", csp)
	}
}

func TestSecurityHeadersDevelopment(t *testing.T) {
	w := serveWithSecurityHeaders(DevelopmentSecurityHeadersConfig())

	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS set in development: %q", got)
	}
	csp := w.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "'unsafe-eval'") {
		t.Errorf("development CSP blocks eval: %s", csp)
	}
	if !strings.Contains(csp, "ws:") {
		t.Errorf("development CSP blocks plain websockets: %s", csp)
	}
	if strings.Contains(csp, "upgrade-insecure-requests") {
		t.Errorf("development CSP upgrades to https: %s", csp)
	}
}

func TestSecurityHeadersZeroConfigDefaults(t *testing.T) {
	w := serveWithSecurityHeaders(SecurityHeadersConfig{})

	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := w.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("empty config produced no CSP")
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS set without EnableHSTS: %q", got)
	}
}

func TestSecurityHeadersCustomFrameOptions(t *testing.T) {
	w := serveWithSecurityHeaders(SecurityHeadersConfig{FrameOptions: "SAMEORIGIN"})

	if got := w.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q, want SAMEORIGIN", got)
	}
}
