package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/db"
	"github.com/historia/cockpit-archive/internal/models"
	"github.com/historia/cockpit-archive/internal/review"
)

// LogStore defines the interface for log read operations.
type LogStore interface {
	ListActivityLogs(ctx context.Context, filter db.ActivityLogFilter) ([]*models.ActivityLog, error)
	CountActivityLogs(ctx context.Context, filter db.ActivityLogFilter) (int64, error)
	GetObjectChangeLogByID(ctx context.Context, id uuid.UUID) (*models.ObjectChangeLog, error)
	ListObjectChangeLogs(ctx context.Context, objectID uuid.UUID, skip, take int) ([]*models.ObjectChangeLog, error)
	ListVisitLogs(ctx context.Context, objectID *uuid.UUID, skip, take int) ([]*models.VisitLog, error)
}

// LogsHandler handles the read-only log viewer endpoints.
type LogsHandler struct {
	store  LogStore
	logger zerolog.Logger
}

// NewLogsHandler creates a new LogsHandler.
func NewLogsHandler(store LogStore, logger zerolog.Logger) *LogsHandler {
	return &LogsHandler{
		store:  store,
		logger: logger.With().Str("component", "logs_handler").Logger(),
	}
}

// RegisterRoutes registers log routes on the given router group.
func (h *LogsHandler) RegisterRoutes(r *gin.RouterGroup) {
	logs := r.Group("/logs")
	{
		logs.GET("/activity", h.ListActivity)
		logs.GET("/visits", h.ListVisits)
		logs.GET("/object-changes/:id", h.GetObjectChange)
	}
	r.GET("/objects/:id/changes", h.ListObjectChanges)
}

// ActivityLogListResponse is the paginated activity log response.
type ActivityLogListResponse struct {
	Logs  []*models.ActivityLog `json:"logs"`
	Total int64                 `json:"total"`
	Skip  int                   `json:"skip"`
	Take  int                   `json:"take"`
}

// ListActivity returns activity log entries, newest first.
// GET /api/v1/logs/activity?userId=&action=&resourceType=&skip=&take=
func (h *LogsHandler) ListActivity(c *gin.Context) {
	filter := db.ActivityLogFilter{
		Action:       c.Query("action"),
		ResourceType: c.Query("resourceType"),
		Skip:         parseIntQuery(c, "skip", 0),
		Take:         parsePageSize(c, "take", 50),
	}
	if raw := c.Query("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
			return
		}
		filter.UserID = &id
	}

	logs, err := h.store.ListActivityLogs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list activity logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list activity logs"})
		return
	}

	total, err := h.store.CountActivityLogs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count activity logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count activity logs"})
		return
	}

	c.JSON(http.StatusOK, ActivityLogListResponse{
		Logs:  logs,
		Total: total,
		Skip:  filter.Skip,
		Take:  filter.Take,
	})
}

// ListVisits returns visit log entries across all objects, newest first.
// GET /api/v1/logs/visits?objectId=&skip=&take=
func (h *LogsHandler) ListVisits(c *gin.Context) {
	skip := parseIntQuery(c, "skip", 0)
	take := parsePageSize(c, "take", 50)

	var objectID *uuid.UUID
	if raw := c.Query("objectId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid objectId"})
			return
		}
		objectID = &id
	}

	visits, err := h.store.ListVisitLogs(c.Request.Context(), objectID, skip, take)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list visit logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list visit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"visits": visits, "skip": skip, "take": take})
}

// ObjectChangeResponse is the detail response for one change-log entry.
type ObjectChangeResponse struct {
	Log  *models.ObjectChangeLog `json:"log"`
	Diff review.ChangeLogDiff    `json:"diff"`
}

// GetObjectChange returns one object change-log entry with its rendered
// field diff.
// GET /api/v1/logs/object-changes/:id
func (h *LogsHandler) GetObjectChange(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	log, err := h.store.GetObjectChangeLogByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "change log entry not found"})
			return
		}
		h.logger.Error().Err(err).Str("log_id", id.String()).Msg("failed to get change log entry")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get change log entry"})
		return
	}

	c.JSON(http.StatusOK, ObjectChangeResponse{
		Log:  log,
		Diff: review.DiffObjectChange(log),
	})
}

// ListObjectChanges returns the change history of one archive object.
// GET /api/v1/objects/:id/changes?skip=&take=
func (h *LogsHandler) ListObjectChanges(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	skip := parseIntQuery(c, "skip", 0)
	take := parsePageSize(c, "take", 50)

	logs, err := h.store.ListObjectChangeLogs(c.Request.Context(), id, skip, take)
	if err != nil {
		h.logger.Error().Err(err).Str("object_id", id.String()).Msg("failed to list object changes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list object changes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"changes": logs, "skip": skip, "take": take})
}
