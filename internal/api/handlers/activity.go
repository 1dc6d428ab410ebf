package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/activity"
	"github.com/historia/cockpit-archive/internal/api/middleware"
)

// ActivityHandler exposes the websocket activity feed.
type ActivityHandler struct {
	feed   *activity.Feed
	logger zerolog.Logger
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(feed *activity.Feed, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		feed:   feed,
		logger: logger.With().Str("component", "activity_handler").Logger(),
	}
}

// RegisterRoutes registers the feed route on the given router group.
func (h *ActivityHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/activity/feed", h.Feed)
}

// Feed upgrades the connection to a websocket and streams activity events
// until the client disconnects. Clients may narrow the stream by sending
// filter messages.
// GET /api/v1/activity/feed
func (h *ActivityHandler) Feed(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	h.logger.Debug().Str("user_id", user.ID.String()).Msg("activity feed client connecting")
	h.feed.HandleWebSocket(c.Writer, c.Request, user.ID)
}
