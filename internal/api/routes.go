// Package api provides the HTTP API for the Cockpit Archive server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/activity"
	"github.com/historia/cockpit-archive/internal/api/handlers"
	"github.com/historia/cockpit-archive/internal/api/middleware"
	"github.com/historia/cockpit-archive/internal/auth"
	"github.com/historia/cockpit-archive/internal/config"
	"github.com/historia/cockpit-archive/internal/db"
	"github.com/historia/cockpit-archive/internal/export"
	"github.com/historia/cockpit-archive/internal/review"
)

// Config holds configuration for the API router.
type Config struct {
	// Environment selects the security header profile.
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m").
	RateLimitPeriod string
	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64
	// Version information for the version endpoint.
	Version   string
	Commit    string
	BuildDate string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		Environment:       config.EnvDevelopment,
		AllowedOrigins:    []string{},
		RateLimitRequests: 300,
		RateLimitPeriod:   "1m",
		MaxBodyBytes:      1 << 20,
		Version:           "dev",
		Commit:            "unknown",
		BuildDate:         "unknown",
	}
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine   *gin.Engine
	logger   zerolog.Logger
	sessions *auth.SessionStore
	db       *db.DB
}

// NewRouter creates a new Router with the given dependencies. feed may be
// nil to run without the websocket activity feed.
func NewRouter(
	cfg Config,
	database *db.DB,
	sessions *auth.SessionStore,
	feed *activity.Feed,
	logger zerolog.Logger,
) (*Router, error) {
	r := &Router{
		Engine:   gin.New(),
		logger:   logger.With().Str("component", "router").Logger(),
		sessions: sessions,
		db:       database,
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	if cfg.Environment == config.EnvProduction {
		r.Engine.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig()))
	} else {
		r.Engine.Use(middleware.SecurityHeaders(middleware.DevelopmentSecurityHeadersConfig()))
	}
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment))
	r.Engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Public endpoints
	healthHandler := handlers.NewHealthHandler(database, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)

	metricsHandler := handlers.NewMetricsHandler(database, logger)
	metricsHandler.RegisterPublicRoutes(r.Engine)

	versionHandler := handlers.NewVersionHandler(cfg.Version, cfg.Commit, cfg.BuildDate)
	versionHandler.RegisterPublicRoutes(r.Engine)

	// Auth endpoints: login is public, logout and me sit behind the same
	// group without the auth middleware so login can establish the session.
	var publisher handlers.LoginPublisher
	if feed != nil {
		publisher = feed
	}
	authGroup := r.Engine.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(sessions, database, publisher, logger)
	authHandler.RegisterRoutes(authGroup)

	// Authenticated API
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(sessions, logger))
	apiV1.Use(middleware.UserVerifyMiddleware(database, sessions, logger))
	apiV1.Use(middleware.ActivityMiddleware(database, logger))

	reviewMetrics := handlers.NewReviewMetrics(metricsHandler.Registry())
	machine := review.NewMachine(database)

	var decisionPublisher handlers.DecisionPublisher
	if feed != nil {
		decisionPublisher = feed
	}
	changeRequestsHandler := handlers.NewChangeRequestsHandler(database, machine, decisionPublisher, reviewMetrics, logger)
	changeRequestsHandler.RegisterRoutes(apiV1)

	objectsHandler := handlers.NewObjectsHandler(database, logger)
	objectsHandler.RegisterRoutes(apiV1)

	menusHandler := handlers.NewMenusHandler(database, logger)
	menusHandler.RegisterRoutes(apiV1)

	masterDataHandler := handlers.NewMasterDataHandler(database, logger)
	masterDataHandler.RegisterRoutes(apiV1)

	logsHandler := handlers.NewLogsHandler(database, logger)
	logsHandler.RegisterRoutes(apiV1)

	usersHandler := handlers.NewUsersHandler(database, logger)
	usersHandler.RegisterSelfRoutes(apiV1)

	if feed != nil {
		activityHandler := handlers.NewActivityHandler(feed, logger)
		activityHandler.RegisterRoutes(apiV1)
	}

	// Admin-only API
	admin := r.Engine.Group("/api/v1")
	admin.Use(middleware.AuthMiddleware(sessions, logger))
	admin.Use(middleware.UserVerifyMiddleware(database, sessions, logger))
	admin.Use(middleware.AdminMiddleware(logger))
	admin.Use(middleware.ActivityMiddleware(database, logger))

	usersHandler.RegisterRoutes(admin)

	groupsHandler := handlers.NewGroupsHandler(database, logger)
	groupsHandler.RegisterRoutes(admin)

	objectsHandler.RegisterAdminRoutes(admin)

	exportHandler := handlers.NewExportHandler(export.NewExporter(database), logger)
	exportHandler.RegisterRoutes(admin)

	r.logger.Info().Msg("API router initialized")
	return r, nil
}
