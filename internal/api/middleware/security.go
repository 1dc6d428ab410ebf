package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig controls the browser security headers stamped on
// every console response. Zero values fall back to the production defaults.
type SecurityHeadersConfig struct {
	// ContentSecurityPolicy is the full CSP header value. Empty means the
	// production console policy.
	ContentSecurityPolicy string

	// FrameOptions sets X-Frame-Options. Defaults to "DENY".
	FrameOptions string

	// ReferrerPolicy defaults to "strict-origin-when-cross-origin".
	ReferrerPolicy string

	// EnableHSTS adds Strict-Transport-Security. Only safe behind HTTPS.
	EnableHSTS bool
}

// DefaultSecurityHeadersConfig is the production profile. The CSP admits
// object images hosted on external archives (img-src https:) and the
// activity feed websocket (connect-src wss:); everything else is
// same-origin.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy: consoleCSP(false),
		FrameOptions:          "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		EnableHSTS:            true,
	}
}

// DevelopmentSecurityHeadersConfig relaxes the CSP for the frontend dev
// server, which needs inline scripts and plain ws: connections for hot
// reload.
func DevelopmentSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy: consoleCSP(true),
		FrameOptions:          "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		EnableHSTS:            false,
	}
}

// consoleCSP builds the content security policy for the console UI.
func consoleCSP(dev bool) string {
	scriptSrc := "script-src 'self'"
	imgSrc := "img-src 'self' data: https:"
	connectSrc := "connect-src 'self' wss:"
	if dev {
		scriptSrc = "script-src 'self' 'unsafe-inline' 'unsafe-eval'"
		imgSrc = "img-src 'self' data: https: http:"
		connectSrc = "connect-src 'self' ws: wss: http: https:"
	}

	directives := []string{
		"default-src 'self'",
		scriptSrc,
		"style-src 'self' 'unsafe-inline'",
		imgSrc,
		"font-src 'self' data:",
		connectSrc,
		"frame-ancestors 'none'",
		"form-action 'self'",
		"base-uri 'self'",
		"object-src 'none'",
	}
	if !dev {
		directives = append(directives, "upgrade-insecure-requests")
	}
	return strings.Join(directives, "; ")
}

// permissionsPolicy disables browser features the console never uses.
const permissionsPolicy = "camera=(), geolocation=(), microphone=(), midi=(), payment=(), usb=()"

// SecurityHeaders returns middleware that sets security headers on all
// responses.
func SecurityHeaders(cfg SecurityHeadersConfig) gin.HandlerFunc {
	csp := cfg.ContentSecurityPolicy
	if csp == "" {
		csp = consoleCSP(false)
	}
	frameOptions := cfg.FrameOptions
	if frameOptions == "" {
		frameOptions = "DENY"
	}
	referrer := cfg.ReferrerPolicy
	if referrer == "" {
		referrer = "strict-origin-when-cross-origin"
	}

	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", csp)
		c.Header("X-Frame-Options", frameOptions)
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", referrer)
		c.Header("Permissions-Policy", permissionsPolicy)
		c.Header("Cross-Origin-Opener-Policy", "same-origin")
		c.Header("Cross-Origin-Resource-Policy", "same-origin")
		if cfg.EnableHSTS {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
