// Package handlers provides HTTP handlers for the Cockpit Archive API.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/api/middleware"
	"github.com/historia/cockpit-archive/internal/auth"
	"github.com/historia/cockpit-archive/internal/models"
)

// AuthUserStore defines the interface for authentication lookups.
type AuthUserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LoginPublisher receives login/logout events for the activity feed.
type LoginPublisher interface {
	PublishUserLogin(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) error
	PublishUserLogout(ctx context.Context, userID uuid.UUID) error
}

// AuthHandler handles authentication endpoints backed by local accounts.
type AuthHandler struct {
	sessions  *auth.SessionStore
	userStore AuthUserStore
	publisher LoginPublisher
	logger    zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. publisher may be nil when no
// activity feed is wired.
func NewAuthHandler(sessions *auth.SessionStore, userStore AuthUserStore, publisher LoginPublisher, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions:  sessions,
		userStore: userStore,
		publisher: publisher,
		logger:    logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterRoutes registers auth routes on the given router group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user by email and password and establishes a
// session cookie.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.userStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		// Same response for unknown account and bad password.
		h.logger.Debug().Str("email", req.Email).Msg("login for unknown email")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !user.IsActive {
		h.logger.Warn().Str("user_id", user.ID.String()).Msg("login attempt for inactive user")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		h.logger.Debug().Str("user_id", user.ID.String()).Msg("password mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	sessionUser := &auth.SessionUser{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		Role:            string(user.Role),
		AuthenticatedAt: time.Now(),
	}
	if err := h.sessions.SetUser(c.Request, c.Writer, sessionUser); err != nil {
		h.logger.Error().Err(err).Msg("failed to save session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to establish session"})
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishUserLogin(c.Request.Context(), user.ID, c.ClientIP(), c.Request.UserAgent()); err != nil {
			h.logger.Warn().Err(err).Msg("failed to record login activity")
		}
	}

	h.logger.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("user logged in")
	c.JSON(http.StatusOK, user)
}

// Logout clears the session cookie.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	user, err := h.sessions.GetUser(c.Request)
	if err == nil && h.publisher != nil {
		if perr := h.publisher.PublishUserLogout(c.Request.Context(), user.ID); perr != nil {
			h.logger.Warn().Err(perr).Msg("failed to record logout activity")
		}
	}

	if err := h.sessions.ClearUser(c.Request, c.Writer); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log out"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's account record.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	sessionUser := middleware.RequireUser(c)
	if sessionUser == nil {
		return
	}

	user, err := h.userStore.GetUserByID(c.Request.Context(), sessionUser.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", sessionUser.ID.String()).Msg("failed to load user")
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}
