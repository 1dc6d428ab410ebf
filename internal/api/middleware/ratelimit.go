package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewRateLimiter returns middleware that limits each client IP to requests
// per period (a duration string such as "1m" or "1h"). Counters live in
// process memory; the console runs as a single instance.
func NewRateLimiter(requests int64, period string) (gin.HandlerFunc, error) {
	if requests <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", requests)
	}
	duration, err := time.ParseDuration(period)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit period %q: %w", period, err)
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{
		Period: duration,
		Limit:  requests,
	})
	return mgin.NewMiddleware(instance), nil
}
