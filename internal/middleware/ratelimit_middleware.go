// internal/middleware/ratelimit_middleware.go
package middleware

import (
	"net/http"
	"time"

	"wellnest-service/internal/pkg/ratelimit"
	"wellnest-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit applies a fixed-window per-identity limit to one endpoint.
// MUST be used after Auth().
func RateLimit(limiter *ratelimit.Limiter, logger *zap.Logger, endpoint string, maxRequests int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityID := MustGetIdentityID(c)

		allowed, err := limiter.Allow(c.Request.Context(), identityID, endpoint, maxRequests, window)
		if err != nil {
			// Redis trouble should not take requests down with it.
			logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, "too many requests", nil)
			return
		}

		c.Next()
	}
}
