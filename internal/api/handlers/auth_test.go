package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/auth"
	"github.com/historia/cockpit-archive/internal/db"
	"github.com/historia/cockpit-archive/internal/models"
)

type mockAuthUserStore struct {
	users map[string]*models.User
}

func (m *mockAuthUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, db.ErrNotFound
	}
	return user, nil
}

func (m *mockAuthUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, db.ErrNotFound
}

func setupAuthRouter(t *testing.T, store *mockAuthUserStore, user *auth.SessionUser) *gin.Engine {
	t.Helper()
	sessions, err := auth.NewSessionStore(auth.DefaultSessionConfig([]byte("test-secret-key-32-bytes-long!!!"), false), zerolog.Nop())
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	r := newTestRouter(user)
	handler := NewAuthHandler(sessions, store, nil, zerolog.Nop())
	handler.RegisterRoutes(r.Group("/api/v1/auth"))
	return r
}

func seededAuthStore(t *testing.T, password string) (*mockAuthUserStore, *models.User) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.NewUser("curator@example.com", "Curator", models.UserRoleEditor)
	user.PasswordHash = hash
	return &mockAuthUserStore{users: map[string]*models.User{user.Email: user}}, user
}

func TestLoginSuccess(t *testing.T) {
	store, user := seededAuthStore(t, "correct horse battery")
	r := setupAuthRouter(t, store, nil)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login",
		gin.H{"email": user.Email, "password": "correct horse battery"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if cookies := w.Result().Cookies(); len(cookies) == 0 {
		t.Error("no session cookie set on login")
	}
}

func TestLoginFailures(t *testing.T) {
	store, user := seededAuthStore(t, "correct horse battery")
	inactive := models.NewUser("gone@example.com", "Former", models.UserRoleViewer)
	inactive.PasswordHash = user.PasswordHash
	inactive.IsActive = false
	store.users[inactive.Email] = inactive

	r := setupAuthRouter(t, store, nil)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", user.Email, "wrong"},
		{"unknown email", "nobody@example.com", "correct horse battery"},
		{"inactive account", inactive.Email, "correct horse battery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login",
				gin.H{"email": tt.email, "password": tt.password})
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			// All failures must look identical to the caller.
			var body map[string]string
			decodeJSON(t, w, &body)
			if body["error"] != "invalid credentials" {
				t.Errorf("error = %q, want %q", body["error"], "invalid credentials")
			}
		})
	}
}

func TestMe(t *testing.T) {
	store, user := seededAuthStore(t, "pw")
	sessionUser := &auth.SessionUser{ID: user.ID, Email: user.Email, Name: user.Name, Role: string(user.Role)}
	r := setupAuthRouter(t, store, sessionUser)

	w := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got models.User
	decodeJSON(t, w, &got)
	if got.ID != user.ID || got.Email != user.Email {
		t.Errorf("got user %s <%s>", got.ID, got.Email)
	}
}

func TestMeUnauthenticated(t *testing.T) {
	store, _ := seededAuthStore(t, "pw")
	r := setupAuthRouter(t, store, nil)

	w := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
