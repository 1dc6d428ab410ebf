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
)

// MasterDataStore defines the interface for master data persistence.
type MasterDataStore interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListMaterials(ctx context.Context) ([]*models.Material, error)
	GetMaterialByID(ctx context.Context, id uuid.UUID) (*models.Material, error)
	CreateMaterial(ctx context.Context, m *models.Material) error
	UpdateMaterial(ctx context.Context, m *models.Material) error
	DeleteMaterial(ctx context.Context, id uuid.UUID) error

	ListStorageLocations(ctx context.Context) ([]*models.StorageLocation, error)
	GetStorageLocationByID(ctx context.Context, id uuid.UUID) (*models.StorageLocation, error)
	CreateStorageLocation(ctx context.Context, l *models.StorageLocation) error
	UpdateStorageLocation(ctx context.Context, l *models.StorageLocation) error
	DeleteStorageLocation(ctx context.Context, id uuid.UUID) error
}

// MasterDataHandler handles the category, material and storage location
// endpoints. The three resources share one name+description shape.
type MasterDataHandler struct {
	store  MasterDataStore
	logger zerolog.Logger
}

// NewMasterDataHandler creates a new MasterDataHandler.
func NewMasterDataHandler(store MasterDataStore, logger zerolog.Logger) *MasterDataHandler {
	return &MasterDataHandler{
		store:  store,
		logger: logger.With().Str("component", "master_data_handler").Logger(),
	}
}

// RegisterRoutes registers master data routes on the given router group.
func (h *MasterDataHandler) RegisterRoutes(r *gin.RouterGroup) {
	categories := r.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.POST("", h.CreateCategory)
		categories.PUT("/:id", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}

	materials := r.Group("/materials")
	{
		materials.GET("", h.ListMaterials)
		materials.POST("", h.CreateMaterial)
		materials.PUT("/:id", h.UpdateMaterial)
		materials.DELETE("/:id", h.DeleteMaterial)
	}

	locations := r.Group("/storage-locations")
	{
		locations.GET("", h.ListStorageLocations)
		locations.POST("", h.CreateStorageLocation)
		locations.PUT("/:id", h.UpdateStorageLocation)
		locations.DELETE("/:id", h.DeleteStorageLocation)
	}
}

// MasterDataRequest is the shared request body for master data entries.
type MasterDataRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ListCategories returns all categories.
// GET /api/v1/categories
func (h *MasterDataHandler) ListCategories(c *gin.Context) {
	categories, err := h.store.ListCategories(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list categories")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory creates a new category.
// POST /api/v1/categories
func (h *MasterDataHandler) CreateCategory(c *gin.Context) {
	var req MasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := models.NewCategory(req.Name, req.Description)
	if err := h.store.CreateCategory(c.Request.Context(), category); err != nil {
		h.logger.Error().Err(err).Str("name", req.Name).Msg("failed to create category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create category"})
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory updates a category.
// PUT /api/v1/categories/:id
func (h *MasterDataHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	category, err := h.store.GetCategoryByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}

	var req MasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category.Name = req.Name
	category.Description = req.Description
	if err := h.store.UpdateCategory(c.Request.Context(), category); err != nil {
		h.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to update category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update category"})
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory removes a category.
// DELETE /api/v1/categories/:id
func (h *MasterDataHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteCategory(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
			return
		}
		h.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to delete category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete category"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}

// ListMaterials returns all materials.
// GET /api/v1/materials
func (h *MasterDataHandler) ListMaterials(c *gin.Context) {
	materials, err := h.store.ListMaterials(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list materials")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list materials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"materials": materials})
}

// CreateMaterial creates a new material.
// POST /api/v1/materials
func (h *MasterDataHandler) CreateMaterial(c *gin.Context) {
	var req MasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	material := models.NewMaterial(req.Name, req.Description)
	if err := h.store.CreateMaterial(c.Request.Context(), material); err != nil {
		h.logger.Error().Err(err).Str("name", req.Name).Msg("failed to create material")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create material"})
		return
	}
	c.JSON(http.StatusCreated, material)
}

// UpdateMaterial updates a material.
// PUT /api/v1/materials/:id
func (h *MasterDataHandler) UpdateMaterial(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	material, err := h.store.GetMaterialByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "material not found"})
		return
	}

	var req MasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	material.Name = req.Name
	material.Description = req.Description
	if err := h.store.UpdateMaterial(c.Request.Context(), material); err != nil {
		h.logger.Error().Err(err).Str("material_id", id.String()).Msg("failed to update material")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update material"})
		return
	}
	c.JSON(http.StatusOK, material)
}

// DeleteMaterial removes a material.
// DELETE /api/v1/materials/:id
func (h *MasterDataHandler) DeleteMaterial(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteMaterial(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "material not found"})
			return
		}
		h.logger.Error().Err(err).Str("material_id", id.String()).Msg("failed to delete material")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete material"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "material deleted"})
}

// ListStorageLocations returns all storage locations.
// GET /api/v1/storage-locations
func (h *MasterDataHandler) ListStorageLocations(c *gin.Context) {
	locations, err := h.store.ListStorageLocations(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list storage locations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list storage locations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"storage_locations": locations})
}

// CreateStorageLocation creates a new storage location.
// POST /api/v1/storage-locations
func (h *MasterDataHandler) CreateStorageLocation(c *gin.Context) {
	var req MasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	location := models.NewStorageLocation(req.Name, req.Description)
	if err := h.store.CreateStorageLocation(c.Request.Context(), location); err != nil {
		h.logger.Error().Err(err).Str("name", req.Name).Msg("failed to create storage location")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create storage location"})
		return
	}
	c.JSON(http.StatusCreated, location)
}

// UpdateStorageLocation updates a storage location.
// PUT /api/v1/storage-locations/:id
func (h *MasterDataHandler) UpdateStorageLocation(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	location, err := h.store.GetStorageLocationByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "storage location not found"})
		return
	}

	var req MasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	location.Name = req.Name
	location.Description = req.Description
	if err := h.store.UpdateStorageLocation(c.Request.Context(), location); err != nil {
		h.logger.Error().Err(err).Str("location_id", id.String()).Msg("failed to update storage location")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update storage location"})
		return
	}
	c.JSON(http.StatusOK, location)
}

// DeleteStorageLocation removes a storage location.
// DELETE /api/v1/storage-locations/:id
func (h *MasterDataHandler) DeleteStorageLocation(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteStorageLocation(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "storage location not found"})
			return
		}
		h.logger.Error().Err(err).Str("location_id", id.String()).Msg("failed to delete storage location")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete storage location"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "storage location deleted"})
}
