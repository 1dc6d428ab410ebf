package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func bodyLimitedRouter(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(maxBytes))
	r.POST("/objects", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func postBody(r *gin.Engine, size int, declareLength bool) *httptest.ResponseRecorder {
	body := strings.NewReader(strings.Repeat("a", size))
	req := httptest.NewRequest(http.MethodPost, "/objects", body)
	if !declareLength {
		req.ContentLength = -1
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBodyLimitAllowsSmallBodies(t *testing.T) {
	r := bodyLimitedRouter(1024)
	if w := postBody(r, 512, true); w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}
	if w := postBody(r, 1024, true); w.Code != http.StatusOK {
		t.Fatalf("exact limit: got %d, want 200", w.Code)
	}
}

func TestBodyLimitRejectsDeclaredOversize(t *testing.T) {
	r := bodyLimitedRouter(1024)
	w := postBody(r, 2048, true)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d, want 413", w.Code)
	}
	if !strings.Contains(w.Body.String(), "request body too large") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestBodyLimitCapsUndeclaredBody(t *testing.T) {
	r := bodyLimitedRouter(1024)
	w := postBody(r, 2048, false)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d, want 413", w.Code)
	}
}
