package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit is a fixed-window per-IP limiter over Redis INCR/EXPIRE. It is
// a gate before the handlers, not part of the auth core; a nil client
// disables it. When Redis is unreachable the request is allowed through;
// throttling protects against abuse and is not a correctness check.
func RateLimit(client *redis.Client, logger *zap.Logger, scope string, perMinute int) gin.HandlerFunc {
	if client == nil || perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("throttle:%s:%s", scope, c.ClientIP())

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			// Without the expiry the window never resets and the IP stays
			// throttled indefinitely.
			if err := client.Expire(ctx, key, time.Minute).Err(); err != nil {
				logger.Warn("failed to set rate limit window expiry",
					zap.String("scope", scope), zap.Error(err))
			}
		}

		if count > int64(perMinute) {
			respondError(c, http.StatusTooManyRequests,
				"Request was throttled. Try again later.", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
