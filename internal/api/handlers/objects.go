package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/api/middleware"
	"github.com/historia/cockpit-archive/internal/db"
	"github.com/historia/cockpit-archive/internal/models"
)

// ObjectStore defines the interface for archive object persistence.
type ObjectStore interface {
	ListObjects(ctx context.Context, filter db.ObjectFilter) ([]*models.ArchiveObject, error)
	CountObjects(ctx context.Context, filter db.ObjectFilter) (int64, error)
	GetObjectByID(ctx context.Context, id uuid.UUID) (*models.ArchiveObject, error)
	CreateObject(ctx context.Context, obj *models.ArchiveObject) error
	UpdateObject(ctx context.Context, obj *models.ArchiveObject) error
	DeleteObject(ctx context.Context, id uuid.UUID) error
	CreateVisitLog(ctx context.Context, log *models.VisitLog) error
	ListVisitLogs(ctx context.Context, objectID *uuid.UUID, skip, take int) ([]*models.VisitLog, error)
}

// ObjectsHandler handles archive object endpoints. Object mutations flow
// through the change-request workflow; the direct write endpoints here are
// admin-only escape hatches for corrections.
type ObjectsHandler struct {
	store  ObjectStore
	logger zerolog.Logger
}

// NewObjectsHandler creates a new ObjectsHandler.
func NewObjectsHandler(store ObjectStore, logger zerolog.Logger) *ObjectsHandler {
	return &ObjectsHandler{
		store:  store,
		logger: logger.With().Str("component", "objects_handler").Logger(),
	}
}

// RegisterRoutes registers object read routes on the given router group.
func (h *ObjectsHandler) RegisterRoutes(r *gin.RouterGroup) {
	objects := r.Group("/objects")
	{
		objects.GET("", h.List)
		objects.GET("/:id", h.Get)
		objects.GET("/:id/visits", h.ListVisits)
	}
}

// RegisterAdminRoutes registers the direct write routes. The group is
// expected to carry the admin middleware.
func (h *ObjectsHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	objects := r.Group("/objects")
	{
		objects.POST("", h.Create)
		objects.PUT("/:id", h.Update)
		objects.DELETE("/:id", h.Delete)
	}
}

// ObjectListResponse is the response for listing archive objects.
type ObjectListResponse struct {
	Objects []*models.ArchiveObject `json:"objects"`
	Total   int64                   `json:"total"`
	Limit   int                     `json:"limit"`
	Offset  int                     `json:"offset"`
}

// List returns archive objects matching the filter params.
// GET /api/v1/objects?search=&categoryId=&materialId=&tag=&limit=&offset=
func (h *ObjectsHandler) List(c *gin.Context) {
	filter := db.ObjectFilter{
		Search: c.Query("search"),
		Tag:    c.Query("tag"),
		Limit:  parsePageSize(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("categoryId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid categoryId"})
			return
		}
		filter.CategoryID = &id
	}
	if raw := c.Query("materialId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid materialId"})
			return
		}
		filter.MaterialID = &id
	}

	objects, err := h.store.ListObjects(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list objects")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list objects"})
		return
	}

	total, err := h.store.CountObjects(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count objects")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count objects"})
		return
	}

	c.JSON(http.StatusOK, ObjectListResponse{
		Objects: objects,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

// Get returns an archive object with media, tags, location and relations,
// and records a visit log entry for the viewing user.
// GET /api/v1/objects/:id
func (h *ObjectsHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	obj, err := h.store.GetObjectByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		h.logger.Error().Err(err).Str("object_id", id.String()).Msg("failed to get object")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get object"})
		return
	}

	h.recordVisit(c, obj.ID)
	c.JSON(http.StatusOK, obj)
}

// recordVisit writes a visit log entry for the current request. Failures
// are logged and do not affect the response.
func (h *ObjectsHandler) recordVisit(c *gin.Context, objectID uuid.UUID) {
	visit := &models.VisitLog{
		ObjectID:  &objectID,
		Path:      c.Request.URL.Path,
		IPAddress: c.ClientIP(),
	}
	if user := middleware.GetUser(c); user != nil {
		userID := user.ID
		visit.UserID = &userID
	}

	if err := h.store.CreateVisitLog(c.Request.Context(), visit); err != nil {
		h.logger.Warn().Err(err).Str("object_id", objectID.String()).Msg("failed to record visit")
	}
}

// ListVisits returns the visit log for an object, newest first.
// GET /api/v1/objects/:id/visits?skip=&take=
func (h *ObjectsHandler) ListVisits(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	skip := parseIntQuery(c, "skip", 0)
	take := parsePageSize(c, "take", 50)

	visits, err := h.store.ListVisitLogs(c.Request.Context(), &id, skip, take)
	if err != nil {
		h.logger.Error().Err(err).Str("object_id", id.String()).Msg("failed to list visits")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list visits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"visits": visits, "skip": skip, "take": take})
}

// ObjectRequest is the request body for direct object writes.
type ObjectRequest struct {
	Code        string                   `json:"code" binding:"required"`
	Title       string                   `json:"title" binding:"required"`
	Description string                   `json:"description"`
	Date        string                   `json:"date"`
	CategoryID  *uuid.UUID               `json:"category_id"`
	MaterialID  *uuid.UUID               `json:"material_id"`
	Tags        []string                 `json:"tags"`
	Location    *models.ObjectLocation   `json:"location"`
	Relations   []*models.ObjectRelation `json:"relations"`
}

// Create creates an archive object directly, bypassing review.
// POST /api/v1/objects
func (h *ObjectsHandler) Create(c *gin.Context) {
	var req ObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obj := models.NewArchiveObject(req.Code, req.Title)
	obj.Description = req.Description
	obj.Date = req.Date
	obj.CategoryID = req.CategoryID
	obj.MaterialID = req.MaterialID
	obj.Tags = req.Tags
	obj.Location = req.Location
	obj.Relations = req.Relations

	if err := h.store.CreateObject(c.Request.Context(), obj); err != nil {
		h.logger.Error().Err(err).Str("code", req.Code).Msg("failed to create object")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create object"})
		return
	}

	h.logger.Info().Str("object_id", obj.ID.String()).Str("code", obj.Code).Msg("object created")
	c.JSON(http.StatusCreated, obj)
}

// Update replaces an archive object's fields directly, bypassing review.
// PUT /api/v1/objects/:id
func (h *ObjectsHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	obj, err := h.store.GetObjectByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}

	var req ObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obj.Code = req.Code
	obj.Title = req.Title
	obj.Description = req.Description
	obj.Date = req.Date
	obj.CategoryID = req.CategoryID
	obj.MaterialID = req.MaterialID
	obj.Tags = req.Tags
	obj.Location = req.Location
	obj.Relations = req.Relations

	if err := h.store.UpdateObject(c.Request.Context(), obj); err != nil {
		h.logger.Error().Err(err).Str("object_id", id.String()).Msg("failed to update object")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update object"})
		return
	}

	c.JSON(http.StatusOK, obj)
}

// Delete removes an archive object directly, bypassing review.
// DELETE /api/v1/objects/:id
func (h *ObjectsHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteObject(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		h.logger.Error().Err(err).Str("object_id", id.String()).Msg("failed to delete object")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete object"})
		return
	}

	h.logger.Info().Str("object_id", id.String()).Msg("object deleted")
	c.JSON(http.StatusOK, gin.H{"message": "object deleted"})
}
