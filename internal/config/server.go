// Package config provides configuration management for the Cockpit Archive
// console.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment Environment
	ListenAddr  string
	DatabaseURL string

	SessionSecret string
	SessionMaxAge int // session lifetime in seconds (default: 86400)

	CORSOrigins       []string
	RateLimitRequests int64
	RateLimitPeriod   string // duration string, e.g. "1m"
	MaxBodyBytes      int64
	RetentionDays     int // activity and visit log retention (default: 90)

	LogLevel  string
	LogFormat string // "json" or "console"
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() (ServerConfig, error) {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return ServerConfig{}, fmt.Errorf("DATABASE_URL is required")
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if env == EnvProduction && len(sessionSecret) < 32 {
		return ServerConfig{}, fmt.Errorf("SESSION_SECRET must be at least 32 bytes in production")
	}
	if sessionSecret == "" {
		sessionSecret = "insecure-development-session-secret!!"
	}

	sessionMaxAge := getEnvInt("SESSION_MAX_AGE", 86400)
	if sessionMaxAge < 0 {
		sessionMaxAge = 86400
	}

	retentionDays := getEnvInt("LOG_RETENTION_DAYS", 90)
	if retentionDays < 1 {
		retentionDays = 90
	}

	cfg := ServerConfig{
		Environment:       env,
		ListenAddr:        getEnvDefault("LISTEN_ADDR", ":8080"),
		DatabaseURL:       databaseURL,
		SessionSecret:     sessionSecret,
		SessionMaxAge:     sessionMaxAge,
		CORSOrigins:       splitList(os.Getenv("CORS_ORIGINS")),
		RateLimitRequests: int64(getEnvInt("RATE_LIMIT_REQUESTS", 300)),
		RateLimitPeriod:   getEnvDefault("RATE_LIMIT_PERIOD", "1m"),
		MaxBodyBytes:      int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		RetentionDays:     retentionDays,
		LogLevel:          getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvDefault("LOG_FORMAT", "json"),
	}
	return cfg, nil
}

// IsProduction reports whether the server runs in the production environment.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// splitList parses a comma-separated environment value into a trimmed slice.
func splitList(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvDefault reads an environment variable, returning the default if unset.
func getEnvDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
