package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/auth"
	"github.com/historia/cockpit-archive/internal/models"
)

// mockActivityStore implements ActivityStore for testing.
type mockActivityStore struct {
	mu   sync.Mutex
	logs []*models.ActivityLog
}

func (m *mockActivityStore) CreateActivityLog(_ context.Context, log *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockActivityStore) getLogs() []*models.ActivityLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.ActivityLog, len(m.logs))
	copy(result, m.logs)
	return result
}

func testSessionUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:              uuid.New(),
		Email:           "editor@example.org",
		Name:            "Editor",
		Role:            "editor",
		AuthenticatedAt: time.Now(),
	}
}

func TestActivityMiddleware_RecordsMutation(t *testing.T) {
	store := &mockActivityStore{}
	sessionUser := testSessionUser()

	r := gin.New()
	// Inject user into context (simulates AuthMiddleware)
	r.Use(func(c *gin.Context) {
		c.Set(string(UserContextKey), sessionUser)
		c.Next()
	})
	r.Use(ActivityMiddleware(store, zerolog.Nop()))
	r.POST("/api/v1/objects", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"id": "new-object"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/objects", nil)
	req.Header.Set("User-Agent", "test-client/1.0")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	// Wait for async activity log goroutine
	time.Sleep(50 * time.Millisecond)

	logs := store.getLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 activity log, got %d", len(logs))
	}

	log := logs[0]
	if log.Action != models.ActivityActionCreate {
		t.Fatalf("expected action 'create', got %q", log.Action)
	}
	if log.ResourceType != "object" {
		t.Fatalf("expected resource type 'object', got %q", log.ResourceType)
	}
	if log.UserID == nil || *log.UserID != sessionUser.ID {
		t.Fatal("expected user_id to be set")
	}
	if log.UserAgent != "test-client/1.0" {
		t.Fatalf("expected user agent 'test-client/1.0', got %q", log.UserAgent)
	}
}

func TestActivityMiddleware_SkipsReads(t *testing.T) {
	store := &mockActivityStore{}
	sessionUser := testSessionUser()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(string(UserContextKey), sessionUser)
		c.Next()
	})
	r.Use(ActivityMiddleware(store, zerolog.Nop()))
	r.GET("/api/v1/objects", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"objects": []string{}})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/objects", nil)
	r.ServeHTTP(w, req)

	time.Sleep(50 * time.Millisecond)

	if logs := store.getLogs(); len(logs) != 0 {
		t.Fatalf("expected 0 activity logs for a read, got %d", len(logs))
	}
}

func TestActivityMiddleware_SkipsFailedRequests(t *testing.T) {
	store := &mockActivityStore{}
	sessionUser := testSessionUser()
	objectID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(string(UserContextKey), sessionUser)
		c.Next()
	})
	r.Use(ActivityMiddleware(store, zerolog.Nop()))
	r.DELETE("/api/v1/objects/:id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/v1/objects/"+objectID.String(), nil)
	r.ServeHTTP(w, req)

	time.Sleep(50 * time.Millisecond)

	if logs := store.getLogs(); len(logs) != 0 {
		t.Fatalf("expected 0 activity logs for a failed request, got %d", len(logs))
	}
}

func TestActivityMiddleware_CapturesResourceID(t *testing.T) {
	store := &mockActivityStore{}
	sessionUser := testSessionUser()
	objectID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(string(UserContextKey), sessionUser)
		c.Next()
	})
	r.Use(ActivityMiddleware(store, zerolog.Nop()))
	r.PUT("/api/v1/objects/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/v1/objects/"+objectID.String(), nil)
	r.ServeHTTP(w, req)

	time.Sleep(50 * time.Millisecond)

	logs := store.getLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 activity log, got %d", len(logs))
	}
	if logs[0].Action != models.ActivityActionUpdate {
		t.Fatalf("expected action 'update', got %q", logs[0].Action)
	}
	if logs[0].ResourceID == nil || *logs[0].ResourceID != objectID {
		t.Fatal("expected resource_id to be set")
	}
}

func TestActivityMiddleware_SkipsHealthAndLogEndpoints(t *testing.T) {
	store := &mockActivityStore{}
	sessionUser := testSessionUser()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(string(UserContextKey), sessionUser)
		c.Next()
	})
	r.Use(ActivityMiddleware(store, zerolog.Nop()))
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/api/v1/logs/visits", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("GET", "/api/v1/health", nil)
	r.ServeHTTP(w1, req1)

	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("POST", "/api/v1/logs/visits", nil)
	r.ServeHTTP(w2, req2)

	time.Sleep(50 * time.Millisecond)

	if logs := store.getLogs(); len(logs) != 0 {
		t.Fatalf("expected 0 activity logs for skipped endpoints, got %d", len(logs))
	}
}

func TestActivityMiddleware_SkipsUnauthenticatedRequests(t *testing.T) {
	store := &mockActivityStore{}

	r := gin.New()
	// No auth middleware - user is nil
	r.Use(ActivityMiddleware(store, zerolog.Nop()))
	r.POST("/api/v1/objects", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/objects", nil)
	r.ServeHTTP(w, req)

	time.Sleep(50 * time.Millisecond)

	if logs := store.getLogs(); len(logs) != 0 {
		t.Fatalf("expected 0 activity logs for unauthenticated request, got %d", len(logs))
	}
}

func TestMapMethodToAction(t *testing.T) {
	tests := []struct {
		method string
		action models.ActivityAction
	}{
		{"GET", ""},
		{"POST", models.ActivityActionCreate},
		{"PUT", models.ActivityActionUpdate},
		{"PATCH", models.ActivityActionUpdate},
		{"DELETE", models.ActivityActionDelete},
		{"HEAD", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got := mapMethodToAction(tt.method)
			if got != tt.action {
				t.Fatalf("expected %q, got %q", tt.action, got)
			}
		})
	}
}

func TestParseResourceFromPath(t *testing.T) {
	objectID := uuid.New()

	tests := []struct {
		name         string
		path         string
		resourceType string
		expectedID   uuid.UUID
	}{
		{"objects list", "/api/v1/objects", "object", uuid.Nil},
		{"object by id", "/api/v1/objects/" + objectID.String(), "object", objectID},
		{"change requests", "/api/v1/change-requests", "change_request", uuid.Nil},
		{"users", "/api/v1/users", "user", uuid.Nil},
		{"groups", "/api/v1/groups", "group", uuid.Nil},
		{"menus", "/api/v1/menus", "menu", uuid.Nil},
		{"categories", "/api/v1/categories", "category", uuid.Nil},
		{"materials", "/api/v1/materials", "material", uuid.Nil},
		{"storage locations", "/api/v1/storage-locations", "storage_location", uuid.Nil},
		{"auth login", "/api/v1/auth/login", "session", uuid.Nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resourceType, resourceID := parseResourceFromPath(tt.path)
			if resourceType != tt.resourceType {
				t.Fatalf("expected resource type %q, got %q", tt.resourceType, resourceType)
			}
			if resourceID != tt.expectedID {
				t.Fatalf("expected resource ID %s, got %s", tt.expectedID, resourceID)
			}
		})
	}
}

func TestRecordActivity(t *testing.T) {
	store := &mockActivityStore{}
	userID := uuid.New()
	requestID := uuid.New()

	RecordActivity(store, zerolog.Nop(), userID,
		models.ActivityActionApprove, "change_request", &requestID, "first approval")

	logs := store.getLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 activity log, got %d", len(logs))
	}

	log := logs[0]
	if log.UserID == nil || *log.UserID != userID {
		t.Fatal("expected user_id to be set correctly")
	}
	if log.ResourceID == nil || *log.ResourceID != requestID {
		t.Fatal("expected resource_id to be set correctly")
	}
	if log.Action != models.ActivityActionApprove {
		t.Fatalf("expected action 'approve', got %q", log.Action)
	}
	if log.Details != "first approval" {
		t.Fatalf("expected details 'first approval', got %q", log.Details)
	}
}
