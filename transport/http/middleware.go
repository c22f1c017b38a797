package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitlink/devauth/service"
)

const (
	// RequestIDHeader is echoed back so clients can correlate log lines.
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	deviceIDKey     = "device_id"
)

// RequestID attaches a request id to the context and response, reusing the
// client-provided one when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID extracts the request id from the gin context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(requestIDKey); exists {
		return id.(string)
	}
	return ""
}

// Logger logs each request with structured fields.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		switch {
		case status >= 500:
			logger.Error("server error", fields...)
		case status >= 400:
			logger.Warn("client error", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// BearerAuth validates the access token on protected endpoints.
//
// A missing or malformed Authorization header is always rejected. Token
// validation failures follow the soft-fail policy: when enforce is false
// (the default, matching the original deployment) the failure is logged and
// the request proceeds unauthenticated; when true the request is rejected.
func BearerAuth(authService *service.AuthService, logger *zap.Logger, enforce bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			respondError(c, http.StatusUnauthorized,
				"Unauthorized. Please provide a valid Bearer token in the Authorization header.", nil)
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		claims, err := authService.VerifyAccess(c.Request.Context(), token)
		if err != nil {
			if enforce {
				respondError(c, http.StatusUnauthorized, "Invalid or expired token", nil)
				c.Abort()
				return
			}
			logger.Warn("invalid or expired access token on protected endpoint",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Set(deviceIDKey, claims.DeviceID)
		c.Next()
	}
}

// GetDeviceID extracts the authenticated device id, if any, from the gin
// context. Under the soft-fail policy it can be absent on protected routes.
func GetDeviceID(c *gin.Context) (string, bool) {
	id, exists := c.Get(deviceIDKey)
	if !exists {
		return "", false
	}
	return id.(string), true
}
