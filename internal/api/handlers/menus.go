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

// MenuStore defines the interface for menu persistence operations.
type MenuStore interface {
	ListMenus(ctx context.Context) ([]*models.Menu, error)
	GetMenuByID(ctx context.Context, id uuid.UUID) (*models.Menu, error)
	CreateMenu(ctx context.Context, menu *models.Menu) error
	UpdateMenu(ctx context.Context, menu *models.Menu) error
	DeleteMenu(ctx context.Context, id uuid.UUID) error
}

// MenusHandler handles navigation menu endpoints.
type MenusHandler struct {
	store  MenuStore
	logger zerolog.Logger
}

// NewMenusHandler creates a new MenusHandler.
func NewMenusHandler(store MenuStore, logger zerolog.Logger) *MenusHandler {
	return &MenusHandler{
		store:  store,
		logger: logger.With().Str("component", "menus_handler").Logger(),
	}
}

// RegisterRoutes registers menu routes on the given router group.
func (h *MenusHandler) RegisterRoutes(r *gin.RouterGroup) {
	menus := r.Group("/menus")
	{
		menus.GET("", h.List)
		menus.POST("", h.Create)
		menus.GET("/:id", h.Get)
		menus.PUT("/:id", h.Update)
		menus.DELETE("/:id", h.Delete)
	}
}

// List returns all menus ordered by parent and position.
// GET /api/v1/menus
func (h *MenusHandler) List(c *gin.Context) {
	menus, err := h.store.ListMenus(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list menus")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list menus"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"menus": menus})
}

// Get returns a single menu by ID.
// GET /api/v1/menus/:id
func (h *MenusHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	menu, err := h.store.GetMenuByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "menu not found"})
		return
	}

	c.JSON(http.StatusOK, menu)
}

// CreateMenuRequest is the request body for creating a menu.
type CreateMenuRequest struct {
	Label     string     `json:"label" binding:"required"`
	Path      string     `json:"path" binding:"required"`
	Icon      string     `json:"icon"`
	Position  int        `json:"position"`
	ParentID  *uuid.UUID `json:"parent_id"`
	IsVisible *bool      `json:"is_visible"`
}

// Create creates a new menu entry.
// POST /api/v1/menus
func (h *MenusHandler) Create(c *gin.Context) {
	var req CreateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ParentID != nil {
		parent, err := h.store.GetMenuByID(c.Request.Context(), *req.ParentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "parent menu not found"})
			return
		}
		// One level of nesting only.
		if parent.ParentID != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "menus cannot be nested more than one level"})
			return
		}
	}

	menu := models.NewMenu(req.Label, req.Path, req.Position)
	menu.Icon = req.Icon
	menu.ParentID = req.ParentID
	if req.IsVisible != nil {
		menu.IsVisible = *req.IsVisible
	}

	if err := h.store.CreateMenu(c.Request.Context(), menu); err != nil {
		h.logger.Error().Err(err).Str("label", req.Label).Msg("failed to create menu")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create menu"})
		return
	}

	h.logger.Info().Str("menu_id", menu.ID.String()).Str("label", menu.Label).Msg("menu created")
	c.JSON(http.StatusCreated, menu)
}

// UpdateMenuRequest is the request body for updating a menu.
type UpdateMenuRequest struct {
	Label     *string    `json:"label"`
	Path      *string    `json:"path"`
	Icon      *string    `json:"icon"`
	Position  *int       `json:"position"`
	ParentID  *uuid.UUID `json:"parent_id"`
	IsVisible *bool      `json:"is_visible"`
}

// Update updates a menu entry.
// PUT /api/v1/menus/:id
func (h *MenusHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	menu, err := h.store.GetMenuByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "menu not found"})
		return
	}

	var req UpdateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Label != nil {
		menu.Label = *req.Label
	}
	if req.Path != nil {
		menu.Path = *req.Path
	}
	if req.Icon != nil {
		menu.Icon = *req.Icon
	}
	if req.Position != nil {
		menu.Position = *req.Position
	}
	if req.ParentID != nil {
		if *req.ParentID == id {
			c.JSON(http.StatusBadRequest, gin.H{"error": "menu cannot be its own parent"})
			return
		}
		menu.ParentID = req.ParentID
	}
	if req.IsVisible != nil {
		menu.IsVisible = *req.IsVisible
	}

	if err := h.store.UpdateMenu(c.Request.Context(), menu); err != nil {
		h.logger.Error().Err(err).Str("menu_id", id.String()).Msg("failed to update menu")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update menu"})
		return
	}

	c.JSON(http.StatusOK, menu)
}

// Delete removes a menu entry.
// DELETE /api/v1/menus/:id
func (h *MenusHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteMenu(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "menu not found"})
			return
		}
		h.logger.Error().Err(err).Str("menu_id", id.String()).Msg("failed to delete menu")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete menu"})
		return
	}

	h.logger.Info().Str("menu_id", id.String()).Msg("menu deleted")
	c.JSON(http.StatusOK, gin.H{"message": "menu deleted"})
}
