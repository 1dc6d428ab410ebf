package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/auth"
	"github.com/historia/cockpit-archive/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestSessionStore(t *testing.T) *auth.SessionStore {
	t.Helper()
	cfg := auth.DefaultSessionConfig([]byte("test-secret-that-is-at-least-32-bytes-long!"), false)
	store, err := auth.NewSessionStore(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create session store: %v", err)
	}
	return store
}

func TestAuthMiddleware_ValidSession(t *testing.T) {
	sessions := newTestSessionStore(t)
	mw := AuthMiddleware(sessions, zerolog.Nop())

	sessionUser := &auth.SessionUser{
		ID:              uuid.New(),
		Email:           "test@example.com",
		Name:            "Test User",
		Role:            "editor",
		AuthenticatedAt: time.Now(),
	}

	r := gin.New()
	r.Use(mw)
	r.GET("/test", func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID.String()})
	})

	// First, create a request to set the session
	setReq, _ := http.NewRequest("GET", "/test", nil)
	setW := httptest.NewRecorder()
	if err := sessions.SetUser(setReq, setW, sessionUser); err != nil {
		t.Fatalf("failed to set user: %v", err)
	}

	// Now make request with the session cookie
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	for _, cookie := range setW.Result().Cookies() {
		req.AddCookie(cookie)
	}
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware_NoSession(t *testing.T) {
	sessions := newTestSessionStore(t)
	mw := AuthMiddleware(sessions, zerolog.Nop())

	r := gin.New()
	r.Use(mw)
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	sessions := newTestSessionStore(t)
	mw := OptionalAuthMiddleware(sessions, zerolog.Nop())

	r := gin.New()
	r.Use(mw)
	r.GET("/test", func(c *gin.Context) {
		user := GetUser(c)
		if user != nil {
			c.JSON(http.StatusOK, gin.H{"authenticated": true})
		} else {
			c.JSON(http.StatusOK, gin.H{"authenticated": false})
		}
	})

	t.Run("no session proceeds", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
	})
}

func TestGetUser_NoUser(t *testing.T) {
	r := gin.New()
	r.GET("/test", func(c *gin.Context) {
		user := GetUser(c)
		if user != nil {
			t.Fatal("expected nil user")
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)
}

func TestGetUser_WrongType(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(string(UserContextKey), "not-a-session-user")
		c.Next()
	})
	r.GET("/test", func(c *gin.Context) {
		user := GetUser(c)
		if user != nil {
			t.Fatal("expected nil user for wrong type")
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)
}

func TestRequireUser(t *testing.T) {
	t.Run("with user", func(t *testing.T) {
		r := gin.New()
		sessionUser := &auth.SessionUser{ID: uuid.New(), Role: "editor"}
		r.Use(func(c *gin.Context) {
			c.Set(string(UserContextKey), sessionUser)
			c.Next()
		})
		r.GET("/test", func(c *gin.Context) {
			user := RequireUser(c)
			if user == nil {
				return
			}
			c.JSON(http.StatusOK, gin.H{"user_id": user.ID.String()})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
	})

	t.Run("without user", func(t *testing.T) {
		r := gin.New()
		r.GET("/test", func(c *gin.Context) {
			user := RequireUser(c)
			if user == nil {
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", w.Code)
		}
	})
}

type mockUserStore struct {
	user *models.User
	err  error
}

func (m *mockUserStore) GetUserByID(_ context.Context, _ uuid.UUID) (*models.User, error) {
	return m.user, m.err
}

func TestUserVerifyMiddleware(t *testing.T) {
	sessions := newTestSessionStore(t)

	newRouter := func(store *mockUserStore, sessionRole string) (*gin.Engine, *auth.SessionUser) {
		sessionUser := &auth.SessionUser{ID: uuid.New(), Role: sessionRole}
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set(string(UserContextKey), sessionUser)
			c.Next()
		})
		r.Use(UserVerifyMiddleware(store, sessions, zerolog.Nop()))
		r.GET("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"role": GetUser(c).Role})
		})
		return r, sessionUser
	}

	t.Run("refreshes role from database", func(t *testing.T) {
		dbUser := &models.User{ID: uuid.New(), Role: models.UserRoleViewer, IsActive: true}
		r, sessionUser := newRouter(&mockUserStore{user: dbUser}, "editor")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if sessionUser.Role != "viewer" {
			t.Errorf("session role = %q, want refreshed to viewer", sessionUser.Role)
		}
	})

	t.Run("rejects inactive user", func(t *testing.T) {
		dbUser := &models.User{ID: uuid.New(), Role: models.UserRoleEditor, IsActive: false}
		r, _ := newRouter(&mockUserStore{user: dbUser}, "editor")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", w.Code)
		}
	})

	t.Run("rejects unknown user", func(t *testing.T) {
		r, _ := newRouter(&mockUserStore{err: errors.New("no rows in result set")}, "editor")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", w.Code)
		}
	})
}

func TestAdminMiddleware(t *testing.T) {
	newRouter := func(role string, withUser bool) *gin.Engine {
		r := gin.New()
		if withUser {
			sessionUser := &auth.SessionUser{ID: uuid.New(), Role: role}
			r.Use(func(c *gin.Context) {
				c.Set(string(UserContextKey), sessionUser)
				c.Next()
			})
		}
		r.Use(AdminMiddleware(zerolog.Nop()))
		r.GET("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
		return r
	}

	tests := []struct {
		name     string
		role     string
		withUser bool
		want     int
	}{
		{"admin allowed", "admin", true, http.StatusOK},
		{"editor forbidden", "editor", true, http.StatusForbidden},
		{"viewer forbidden", "viewer", true, http.StatusForbidden},
		{"anonymous unauthorized", "", false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			newRouter(tt.role, tt.withUser).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}
