package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fitlink/devauth/service"
)

// RouterOptions are the transport-level switches.
type RouterOptions struct {
	// EnforceAccessToken flips protected endpoints from soft-fail (log and
	// proceed, the default) to hard rejection.
	EnforceAccessToken bool

	// AuthPerMinute is the per-IP rate limit on auth endpoints; 0 disables.
	AuthPerMinute int

	// Redis backs rate limiting and the cache health probe; nil disables
	// both.
	Redis *redis.Client
}

// SetupRouter builds the gin router.
func SetupRouter(authService *service.AuthService, logger *zap.Logger, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Logger(logger), gin.Recovery())

	handlers := NewAuthHandlers(authService, logger)
	health := NewHealthHandler(opts.Redis)

	authLimit := RateLimit(opts.Redis, logger, "auth_token", opts.AuthPerMinute)

	auth := router.Group("/auth")
	{
		auth.POST("/token", authLimit, handlers.Token)
		auth.POST("/refresh", authLimit, handlers.Refresh)
		auth.GET("/check", authLimit,
			BearerAuth(authService, logger, opts.EnforceAccessToken), handlers.Check)
	}

	router.GET("/health", health.Health)
	router.GET("/health/ready", health.Ready)
	router.GET("/health/live", health.Live)

	return router
}
