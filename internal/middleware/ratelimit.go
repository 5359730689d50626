package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/elevate-booking-api/pkg/errors"
	"github.com/noah-isme/elevate-booking-api/pkg/ratelimit"
	"github.com/noah-isme/elevate-booking-api/pkg/response"
)

type admitter interface {
	Admit(ctx context.Context, key string) (ratelimit.Decision, error)
}

type rateLimitRecorder interface {
	RateLimited()
}

// RateLimit rejects callers that exceed the limiter's window, keyed by client IP.
// A limiter failure admits the request.
func RateLimit(limiter admitter, metrics rateLimitRecorder, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := c.ClientIP()
		decision, err := limiter.Admit(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable; admitting request", zap.String("client_ip", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if decision.Allowed {
			c.Next()
			return
		}

		retry := decision.RetryAfter(time.Now())
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		if metrics != nil {
			metrics.RateLimited()
		}
		logger.Info("booking request rate limited", zap.String("client_ip", key), zap.Duration("retry_after", retry))
		response.Error(c, appErrors.ErrRateLimited)
		c.Abort()
	}
}
