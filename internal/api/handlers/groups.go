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

// GroupStore defines the interface for group persistence operations.
type GroupStore interface {
	ListGroups(ctx context.Context) ([]*models.Group, error)
	GetGroupByID(ctx context.Context, id uuid.UUID) (*models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error
	UpdateGroup(ctx context.Context, group *models.Group) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	AddGroupMember(ctx context.Context, groupID, userID uuid.UUID) error
	RemoveGroupMember(ctx context.Context, groupID, userID uuid.UUID) error
	SetGroupMenus(ctx context.Context, groupID uuid.UUID, menuIDs []uuid.UUID) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// GroupsHandler handles group management endpoints.
type GroupsHandler struct {
	store  GroupStore
	logger zerolog.Logger
}

// NewGroupsHandler creates a new GroupsHandler.
func NewGroupsHandler(store GroupStore, logger zerolog.Logger) *GroupsHandler {
	return &GroupsHandler{
		store:  store,
		logger: logger.With().Str("component", "groups_handler").Logger(),
	}
}

// RegisterRoutes registers group routes on the given router group.
func (h *GroupsHandler) RegisterRoutes(r *gin.RouterGroup) {
	groups := r.Group("/groups")
	{
		groups.GET("", h.List)
		groups.POST("", h.Create)
		groups.GET("/:id", h.Get)
		groups.PUT("/:id", h.Update)
		groups.DELETE("/:id", h.Delete)
		groups.POST("/:id/members", h.AddMember)
		groups.DELETE("/:id/members/:userId", h.RemoveMember)
		groups.PUT("/:id/menus", h.SetMenus)
	}
}

// List returns all groups.
// GET /api/v1/groups
func (h *GroupsHandler) List(c *gin.Context) {
	groups, err := h.store.ListGroups(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list groups")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list groups"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// Get returns a group with its member and menu IDs.
// GET /api/v1/groups/:id
func (h *GroupsHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	group, err := h.store.GetGroupByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}

	c.JSON(http.StatusOK, group)
}

// GroupRequest is the request body for creating or updating a group.
type GroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Create creates a new group.
// POST /api/v1/groups
func (h *GroupsHandler) Create(c *gin.Context) {
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := models.NewGroup(req.Name, req.Description)
	if err := h.store.CreateGroup(c.Request.Context(), group); err != nil {
		h.logger.Error().Err(err).Str("name", req.Name).Msg("failed to create group")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create group"})
		return
	}

	h.logger.Info().Str("group_id", group.ID.String()).Str("name", group.Name).Msg("group created")
	c.JSON(http.StatusCreated, group)
}

// Update updates a group's name and description.
// PUT /api/v1/groups/:id
func (h *GroupsHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	group, err := h.store.GetGroupByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group.Name = req.Name
	group.Description = req.Description

	if err := h.store.UpdateGroup(c.Request.Context(), group); err != nil {
		h.logger.Error().Err(err).Str("group_id", id.String()).Msg("failed to update group")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update group"})
		return
	}

	c.JSON(http.StatusOK, group)
}

// Delete removes a group and its memberships.
// DELETE /api/v1/groups/:id
func (h *GroupsHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteGroup(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		h.logger.Error().Err(err).Str("group_id", id.String()).Msg("failed to delete group")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete group"})
		return
	}

	h.logger.Info().Str("group_id", id.String()).Msg("group deleted")
	c.JSON(http.StatusOK, gin.H{"message": "group deleted"})
}

// AddMemberRequest is the request body for adding a group member.
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// AddMember adds a user to a group.
// POST /api/v1/groups/:id/members
func (h *GroupsHandler) AddMember(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.store.GetGroupByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}
	if _, err := h.store.GetUserByID(c.Request.Context(), req.UserID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if err := h.store.AddGroupMember(c.Request.Context(), id, req.UserID); err != nil {
		h.logger.Error().Err(err).Str("group_id", id.String()).Str("user_id", req.UserID.String()).Msg("failed to add group member")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add group member"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member added"})
}

// RemoveMember removes a user from a group.
// DELETE /api/v1/groups/:id/members/:userId
func (h *GroupsHandler) RemoveMember(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	if err := h.store.RemoveGroupMember(c.Request.Context(), id, userID); err != nil {
		h.logger.Error().Err(err).Str("group_id", id.String()).Str("user_id", userID.String()).Msg("failed to remove group member")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove group member"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

// SetMenusRequest is the request body for replacing a group's menu set.
type SetMenusRequest struct {
	MenuIDs []uuid.UUID `json:"menu_ids"`
}

// SetMenus replaces the set of menus visible to a group.
// PUT /api/v1/groups/:id/menus
func (h *GroupsHandler) SetMenus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req SetMenusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.store.GetGroupByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}

	if err := h.store.SetGroupMenus(c.Request.Context(), id, req.MenuIDs); err != nil {
		h.logger.Error().Err(err).Str("group_id", id.String()).Msg("failed to set group menus")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set group menus"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "menus updated"})
}
