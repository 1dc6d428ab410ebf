package middleware

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/auth"
)

// probePaths are polled by load balancers and the dashboard; logging them
// drowns out real traffic.
var probePaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// sensitiveParams lists query parameter names whose values must never reach
// the log.
var sensitiveParams = map[string]bool{
	"token":    true,
	"secret":   true,
	"password": true,
}

// redactQuery replaces values of sensitive query parameters with [REDACTED].
func redactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	redacted := false
	for name, values := range params {
		if !sensitiveParams[strings.ToLower(name)] {
			continue
		}
		for i := range values {
			values[i] = "[REDACTED]"
		}
		redacted = true
	}
	if !redacted {
		return rawQuery
	}
	return params.Encode()
}

// RequestLogger returns middleware that writes one zerolog line per request.
// The severity follows the response status, and the session user is attached
// when the auth middleware has already resolved one.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "http").Logger()

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := redactQuery(c.Request.URL.RawQuery)

		c.Next()

		if probePaths[path] {
			return
		}

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}

		if raw, ok := c.Get(string(UserContextKey)); ok {
			if user, ok := raw.(*auth.SessionUser); ok {
				event = event.Str("user_id", user.ID.String())
			}
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("body_size", c.Writer.Size()).
			Msg("request")
	}
}
