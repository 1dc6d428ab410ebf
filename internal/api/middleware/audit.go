package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/models"
)

// ActivityStore defines the interface for activity log persistence.
type ActivityStore interface {
	CreateActivityLog(ctx context.Context, log *models.ActivityLog) error
}

// ActivityMiddleware returns a Gin middleware that records mutating API
// actions in the activity log.
func ActivityMiddleware(store ActivityStore, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "activity_middleware").Logger()

	return func(c *gin.Context) {
		// Skip log endpoints to avoid recursion
		if strings.HasPrefix(c.Request.URL.Path, "/api/v1/logs") {
			c.Next()
			return
		}
		if c.Request.URL.Path == "/api/v1/health" || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		user := GetUser(c)

		c.Next()

		// Only record authenticated, mutating, successful requests.
		if user == nil || c.Writer.Status() >= 400 {
			return
		}
		action := mapMethodToAction(c.Request.Method)
		if action == "" {
			return
		}

		resourceType, resourceID := parseResourceFromPath(c.Request.URL.Path)
		if resourceType == "" {
			return
		}

		entry := models.NewActivityLog(action, resourceType).
			WithUser(user.ID).
			WithRequestInfo(c.ClientIP(), c.Request.UserAgent())
		if resourceID != uuid.Nil {
			entry.WithResource(resourceID)
		}

		// Save asynchronously to not block the response
		go func(ctx context.Context, entry *models.ActivityLog) {
			if err := store.CreateActivityLog(ctx, entry); err != nil {
				log.Error().Err(err).
					Str("action", string(entry.Action)).
					Str("resource_type", entry.ResourceType).
					Msg("failed to create activity log")
			}
		}(context.Background(), entry)
	}
}

// mapMethodToAction maps HTTP methods to activity actions. Reads are not
// recorded.
func mapMethodToAction(method string) models.ActivityAction {
	switch method {
	case http.MethodPost:
		return models.ActivityActionCreate
	case http.MethodPut, http.MethodPatch:
		return models.ActivityActionUpdate
	case http.MethodDelete:
		return models.ActivityActionDelete
	default:
		return ""
	}
}

// parseResourceFromPath extracts the resource type and ID from the API path.
func parseResourceFromPath(path string) (string, uuid.UUID) {
	path = strings.TrimPrefix(path, "/api/v1/")
	path = strings.TrimPrefix(path, "/")

	parts := strings.Split(path, "/")
	if len(parts) == 0 {
		return "", uuid.Nil
	}

	resourceType := parts[0]

	var resourceID uuid.UUID
	if len(parts) >= 2 {
		if id, err := uuid.Parse(parts[1]); err == nil {
			resourceID = id
		}
	}

	// Map resource types to singular form
	switch resourceType {
	case "users":
		return "user", resourceID
	case "groups":
		return "group", resourceID
	case "menus":
		return "menu", resourceID
	case "categories":
		return "category", resourceID
	case "materials":
		return "material", resourceID
	case "storage-locations":
		return "storage_location", resourceID
	case "objects":
		return "object", resourceID
	case "change-requests":
		return "change_request", resourceID
	case "auth":
		return "session", uuid.Nil
	default:
		return resourceType, resourceID
	}
}

// RecordActivity is a helper to record activity events from handlers where
// the HTTP method does not describe the action, such as review decisions.
func RecordActivity(store ActivityStore, logger zerolog.Logger, userID uuid.UUID, action models.ActivityAction, resourceType string, resourceID *uuid.UUID, details string) {
	entry := models.NewActivityLog(action, resourceType).
		WithUser(userID).
		WithDetails(details)
	if resourceID != nil {
		entry.WithResource(*resourceID)
	}

	if err := store.CreateActivityLog(context.Background(), entry); err != nil {
		logger.Error().Err(err).
			Str("action", string(action)).
			Str("resource_type", resourceType).
			Msg("failed to create activity log")
	}
}
