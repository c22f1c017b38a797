package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HealthHandler serves the monitoring endpoints.
type HealthHandler struct {
	rdb *redis.Client
}

// NewHealthHandler creates a health handler. rdb may be nil when the
// deployment has no cache to probe.
func NewHealthHandler(rdb *redis.Client) *HealthHandler {
	return &HealthHandler{rdb: rdb}
}

// Health reports overall health including a cache round-trip.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	checks := gin.H{}

	if h.rdb != nil {
		start := time.Now()
		err := h.rdb.Set(c.Request.Context(), "health_check", "ok", 10*time.Second).Err()
		if err == nil {
			err = h.rdb.Get(c.Request.Context(), "health_check").Err()
		}
		cacheStatus := "healthy"
		if err != nil {
			cacheStatus = "unhealthy"
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		checks["cache"] = gin.H{
			"status":           cacheStatus,
			"response_time_ms": time.Since(start).Milliseconds(),
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// Ready reports whether the service can accept traffic.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.rdb != nil {
		if err := h.rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "ready": false})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "ready": true})
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "alive": true})
}
