package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/api/middleware"
	"github.com/historia/cockpit-archive/internal/auth"
	"github.com/historia/cockpit-archive/internal/db"
	"github.com/historia/cockpit-archive/internal/models"
)

// UsersStore defines the interface for user persistence operations.
type UsersStore interface {
	ListUsers(ctx context.Context, filter db.UserFilter) ([]*models.User, error)
	CountUsers(ctx context.Context, filter db.UserFilter) (int64, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// UsersHandler handles user management endpoints. All routes are admin-only
// except password change, which any user may call on their own account.
type UsersHandler struct {
	store  UsersStore
	policy auth.PasswordPolicy
	logger zerolog.Logger
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(store UsersStore, logger zerolog.Logger) *UsersHandler {
	return &UsersHandler{
		store:  store,
		policy: auth.DefaultPasswordPolicy(),
		logger: logger.With().Str("component", "users_handler").Logger(),
	}
}

// RegisterRoutes registers user routes on the given router group. The group
// is expected to carry the admin middleware.
func (h *UsersHandler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("", h.List)
		users.POST("", h.Create)
		users.GET("/:id", h.Get)
		users.PUT("/:id", h.Update)
		users.DELETE("/:id", h.Delete)
	}
}

// RegisterSelfRoutes registers the password change route for the
// authenticated user's own account.
func (h *UsersHandler) RegisterSelfRoutes(r *gin.RouterGroup) {
	r.PUT("/users/:id/password", h.ChangePassword)
}

// UserListResponse is the response for listing users.
type UserListResponse struct {
	Users  []*models.User `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// List returns users matching the optional search and role filters.
// GET /api/v1/users?search=&role=&limit=&offset=
func (h *UsersHandler) List(c *gin.Context) {
	filter := db.UserFilter{
		Search: c.Query("search"),
		Role:   c.Query("role"),
		Limit:  parsePageSize(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}

	users, err := h.store.ListUsers(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	total, err := h.store.CountUsers(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count users"})
		return
	}

	c.JSON(http.StatusOK, UserListResponse{
		Users:  users,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Get returns a single user by ID.
// GET /api/v1/users/:id
func (h *UsersHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateUserRequest is the request body for creating a user.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	Role     string `json:"role" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Create creates a new user account.
// POST /api/v1/users
func (h *UsersHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.UserRole(req.Role)
	if role != models.UserRoleAdmin && role != models.UserRoleEditor && role != models.UserRoleViewer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be admin, editor or viewer"})
		return
	}

	if result := h.policy.ValidatePassword(req.Password); !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.Join(result.Errors, "; ")})
		return
	}

	if _, err := h.store.GetUserByEmail(c.Request.Context(), req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a user with this email already exists"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	user := models.NewUser(req.Email, req.Name, role)
	user.PasswordHash = hash

	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		h.logger.Error().Err(err).Str("email", req.Email).Msg("failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	h.logger.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("user created")
	c.JSON(http.StatusCreated, user)
}

// UpdateUserRequest is the request body for updating a user.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// Update updates a user's name, role or active flag.
// PUT /api/v1/users/:id
func (h *UsersHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		if role != models.UserRoleAdmin && role != models.UserRoleEditor && role != models.UserRoleViewer {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be admin, editor or viewer"})
			return
		}
		user.Role = role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		h.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to update user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}

	h.logger.Info().Str("user_id", user.ID.String()).Msg("user updated")
	c.JSON(http.StatusOK, user)
}

// Delete removes a user account. Admins cannot delete themselves.
// DELETE /api/v1/users/:id
func (h *UsersHandler) Delete(c *gin.Context) {
	actor := middleware.RequireUser(c)
	if actor == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if id == actor.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}

	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	h.logger.Info().Str("user_id", id.String()).Msg("user deleted")
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// ChangePasswordRequest is the request body for changing a password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword updates a user's password. Non-admins may only change
// their own and must supply the current password.
// PUT /api/v1/users/:id/password
func (h *UsersHandler) ChangePassword(c *gin.Context) {
	actor := middleware.RequireUser(c)
	if actor == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if id != actor.ID && !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot change another user's password"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if id == actor.ID {
		if err := auth.VerifyPassword(req.CurrentPassword, user.PasswordHash); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
			return
		}
	}

	if result := h.policy.ValidatePassword(req.NewPassword); !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.Join(result.Errors, "; ")})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		return
	}

	if err := h.store.UpdateUserPassword(c.Request.Context(), id, hash); err != nil {
		h.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to update password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		return
	}

	h.logger.Info().Str("user_id", id.String()).Msg("password changed")
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// parseIDParam parses the :id route parameter, writing a 400 on failure.
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}

// parseIntQuery parses an integer query parameter with a fallback default.
func parseIntQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// maxPageSize caps list page sizes so one request cannot walk a whole table.
const maxPageSize = 200

// parsePageSize parses a page size query parameter, clamped to maxPageSize.
func parsePageSize(c *gin.Context, name string, def int) int {
	v := parseIntQuery(c, name, def)
	if v > maxPageSize {
		return maxPageSize
	}
	return v
}
