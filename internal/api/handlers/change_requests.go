package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/api/middleware"
	"github.com/historia/cockpit-archive/internal/db"
	"github.com/historia/cockpit-archive/internal/models"
	"github.com/historia/cockpit-archive/internal/review"
)

// ChangeRequestStore defines the interface for change request reads. All
// mutations go through the review machine, never through this interface.
type ChangeRequestStore interface {
	ListChangeRequests(ctx context.Context, filter db.ChangeRequestFilter) ([]*models.ChangeRequest, error)
	CountChangeRequests(ctx context.Context, filter db.ChangeRequestFilter) (int64, error)
	GetChangeRequestDetail(ctx context.Context, id uuid.UUID) (*models.ChangeRequest, error)
	CreateChangeRequest(ctx context.Context, req *models.ChangeRequest) error
}

// DecisionPublisher receives review decisions for the activity feed.
type DecisionPublisher interface {
	PublishReviewDecision(ctx context.Context, userID, requestID uuid.UUID, action models.ActivityAction, details string) error
}

// ChangeRequestsHandler handles the change request review endpoints.
type ChangeRequestsHandler struct {
	store     ChangeRequestStore
	machine   *review.Machine
	publisher DecisionPublisher
	metrics   *ReviewMetrics
	logger    zerolog.Logger
}

// NewChangeRequestsHandler creates a new ChangeRequestsHandler. publisher
// and metrics may be nil.
func NewChangeRequestsHandler(store ChangeRequestStore, machine *review.Machine, publisher DecisionPublisher, metrics *ReviewMetrics, logger zerolog.Logger) *ChangeRequestsHandler {
	return &ChangeRequestsHandler{
		store:     store,
		machine:   machine,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "change_requests_handler").Logger(),
	}
}

// RegisterRoutes registers change request routes on the given router group.
func (h *ChangeRequestsHandler) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/change-requests")
	{
		requests.GET("", h.List)
		requests.POST("", h.Create)
		requests.GET("/:id", h.Get)
		requests.PUT("/:id/review", h.Review)
		requests.DELETE("/:id", h.Cancel)
	}
}

// ChangeRequestListResponse is the paginated list response.
type ChangeRequestListResponse struct {
	Requests []*models.ChangeRequest `json:"requests"`
	Total    int64                   `json:"total"`
	Skip     int                     `json:"skip"`
	Take     int                     `json:"take"`
	HasMore  bool                    `json:"has_more"`
}

// List returns change requests matching the filter params, newest first.
// GET /api/v1/change-requests?status=&skip=&take=&objectId=&proposedById=&reviewedById=
func (h *ChangeRequestsHandler) List(c *gin.Context) {
	filter := db.ChangeRequestFilter{
		Skip: parseIntQuery(c, "skip", 0),
		Take: parsePageSize(c, "take", 20),
	}

	if status := c.Query("status"); status != "" {
		if !models.ChangeRequestStatus(status).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		filter.Status = status
	}
	for _, p := range []struct {
		name string
		dest **uuid.UUID
	}{
		{"objectId", &filter.ObjectID},
		{"proposedById", &filter.ProposedByID},
		{"reviewedById", &filter.ReviewedByID},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", p.name)})
			return
		}
		*p.dest = &id
	}

	requests, err := h.store.ListChangeRequests(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list change requests")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list change requests"})
		return
	}

	total, err := h.store.CountChangeRequests(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count change requests")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count change requests"})
		return
	}

	c.JSON(http.StatusOK, ChangeRequestListResponse{
		Requests: requests,
		Total:    total,
		Skip:     filter.Skip,
		Take:     filter.Take,
		HasMore:  int64(filter.Skip+len(requests)) < total,
	})
}

// Get returns a change request with its object and reviewer users populated.
// GET /api/v1/change-requests/:id
func (h *ChangeRequestsHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	req, err := h.store.GetChangeRequestDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "change request not found"})
			return
		}
		h.logger.Error().Err(err).Str("request_id", id.String()).Msg("failed to get change request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get change request"})
		return
	}

	c.JSON(http.StatusOK, req)
}

// CreateChangeRequestRequest is the request body for proposing a change.
type CreateChangeRequestRequest struct {
	ObjectID *uuid.UUID                `json:"object_id"`
	Snapshot models.StructuredSnapshot `json:"request_snapshot" binding:"required"`
}

// Create proposes a new change request in PENDING status.
// POST /api/v1/change-requests
func (h *ChangeRequestsHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	if !user.CanReview() {
		c.JSON(http.StatusForbidden, gin.H{"error": "viewers cannot propose changes"})
		return
	}

	var body CreateChangeRequestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !body.Snapshot.Action.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "snapshot action must be CREATE, UPDATE, DELETE or REVERT"})
		return
	}
	if body.Snapshot.Action != models.SnapshotActionCreate && body.ObjectID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object_id is required for this action"})
		return
	}

	req := models.NewChangeRequest(body.ObjectID, user.ID, body.Snapshot)
	if err := h.store.CreateChangeRequest(c.Request.Context(), req); err != nil {
		h.logger.Error().Err(err).Msg("failed to create change request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create change request"})
		return
	}

	h.logger.Info().
		Str("request_id", req.ID.String()).
		Str("action", string(req.Snapshot.Action)).
		Str("proposed_by", user.ID.String()).
		Msg("change request created")
	c.JSON(http.StatusCreated, req)
}

// ReviewRequest is the request body for the review endpoint.
type ReviewRequest struct {
	Status         string `json:"status" binding:"required"`
	ReasonRejected string `json:"reasonRejected"`
	Submit         bool   `json:"submit"`
}

// Review applies a review decision to a change request. status APPROVED
// records a reviewer approval, or with submit true finalizes the request
// and applies its snapshot; REJECTED declines it with a reason; CANCELED
// withdraws it. Approving and rejecting require the editor or admin role;
// cancel follows the proposer-or-admin rule in the machine.
// PUT /api/v1/change-requests/:id/review
func (h *ChangeRequestsHandler) Review(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var body ReviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := review.Session{UserID: user.ID, IsAdmin: user.IsAdmin()}

	var (
		req    *models.ChangeRequest
		err    error
		action models.ActivityAction
	)
	switch models.ChangeRequestStatus(body.Status) {
	case models.ChangeRequestApproved:
		if !user.CanReview() {
			c.JSON(http.StatusForbidden, gin.H{"error": "viewers cannot review change requests"})
			return
		}
		if body.Submit {
			action = models.ActivityActionSubmit
			req, err = h.machine.Submit(c.Request.Context(), id, sess)
		} else {
			action = models.ActivityActionApprove
			req, err = h.machine.Approve(c.Request.Context(), id, sess)
		}
	case models.ChangeRequestRejected:
		if !user.CanReview() {
			c.JSON(http.StatusForbidden, gin.H{"error": "viewers cannot review change requests"})
			return
		}
		action = models.ActivityActionReject
		req, err = h.machine.Reject(c.Request.Context(), id, sess, body.ReasonRejected)
	case models.ChangeRequestCanceled:
		action = models.ActivityActionCancel
		req, err = h.machine.Cancel(c.Request.Context(), id, sess)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be APPROVED, REJECTED or CANCELED"})
		return
	}

	if err != nil {
		h.metrics.RecordDecision(action, false)
		h.writeReviewError(c, id, action, err)
		return
	}

	h.metrics.RecordDecision(action, true)
	if h.publisher != nil {
		details := fmt.Sprintf("change request %s", action)
		if perr := h.publisher.PublishReviewDecision(c.Request.Context(), user.ID, id, action, details); perr != nil {
			h.logger.Warn().Err(perr).Msg("failed to publish review decision")
		}
	}

	h.logger.Info().
		Str("request_id", id.String()).
		Str("action", string(action)).
		Str("user_id", user.ID.String()).
		Str("status", string(req.Status)).
		Msg("review decision applied")
	c.JSON(http.StatusOK, req)
}

// Cancel withdraws a change request. Only the proposer or an admin may
// cancel.
// DELETE /api/v1/change-requests/:id
func (h *ChangeRequestsHandler) Cancel(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	sess := review.Session{UserID: user.ID, IsAdmin: user.IsAdmin()}
	req, err := h.machine.Cancel(c.Request.Context(), id, sess)
	if err != nil {
		h.metrics.RecordDecision(models.ActivityActionCancel, false)
		h.writeReviewError(c, id, models.ActivityActionCancel, err)
		return
	}

	h.metrics.RecordDecision(models.ActivityActionCancel, true)
	if h.publisher != nil {
		if perr := h.publisher.PublishReviewDecision(c.Request.Context(), user.ID, id, models.ActivityActionCancel, "change request canceled"); perr != nil {
			h.logger.Warn().Err(perr).Msg("failed to publish review decision")
		}
	}

	c.JSON(http.StatusOK, req)
}

// writeReviewError maps review machine errors onto HTTP responses.
func (h *ChangeRequestsHandler) writeReviewError(c *gin.Context, id uuid.UUID, action models.ActivityAction, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound) || errors.Is(err, review.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "change request not found"})
	case errors.Is(err, review.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, review.ErrQuorumNotMet):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, review.ErrDuplicateReviewer):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, review.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, review.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.logger.Error().Err(err).
			Str("request_id", id.String()).
			Str("action", string(action)).
			Msg("review operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "review operation failed"})
	}
}
