package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitlink/devauth/core"
	"github.com/fitlink/devauth/service"
)

// AuthHandlers contains the HTTP handlers for the auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(authService *service.AuthService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// TokenRequest is the handshake payload. The timestamp arrives as a
// string-encoded integer and is signed in that exact form.
type TokenRequest struct {
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
	Nonce     string `json:"nonce"`
	HMACHash  string `json:"hmac_hash"`
}

// RefreshRequest carries the refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Token handles the handshake: an HMAC-signed request exchanged for an
// access/refresh token pair.
func (h *AuthHandlers) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid JSON", nil)
		return
	}

	signed := core.SignedRequest{
		DeviceID:  strings.TrimSpace(req.DeviceID),
		Timestamp: strings.TrimSpace(req.Timestamp),
		Nonce:     strings.TrimSpace(req.Nonce),
		Signature: strings.TrimSpace(req.HMACHash),
	}
	if signed.DeviceID == "" || signed.Timestamp == "" || signed.Nonce == "" || signed.Signature == "" {
		respondError(c, http.StatusBadRequest, "Missing fields", nil)
		return
	}

	pair, err := h.authService.Handshake(c.Request.Context(), signed)
	if err != nil {
		h.respondHandshakeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    pair.ExpiresIn,
	})
}

func (h *AuthHandlers) respondHandshakeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrMalformedInput):
		respondError(c, http.StatusBadRequest, "Invalid fields",
			gin.H{"detail": err.Error()})
	case errors.Is(err, core.ErrStaleTimestamp):
		respondError(c, http.StatusUnprocessableEntity, "Stale or invalid timestamp", nil)
	case errors.Is(err, core.ErrReplayDetected):
		respondError(c, http.StatusUnprocessableEntity, "Replay detected", nil)
	case errors.Is(err, core.ErrSignatureMismatch):
		respondError(c, http.StatusUnprocessableEntity, "Invalid HMAC", nil)
	default:
		h.logger.Error("handshake failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to issue tokens", nil)
	}
}

// Refresh exchanges a valid refresh token for a new access token.
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid JSON", nil)
		return
	}

	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		respondError(c, http.StatusBadRequest, "Missing refresh_token", nil)
		return
	}

	accessToken, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenExpired):
			respondError(c, http.StatusUnauthorized, "Refresh token expired", nil)
		case errors.Is(err, core.ErrTokenRevoked):
			respondError(c, http.StatusUnauthorized, "Refresh token revoked or invalid", nil)
		case errors.Is(err, core.ErrTokenMalformed):
			respondError(c, http.StatusUnauthorized, "Invalid refresh token", nil)
		default:
			h.logger.Error("refresh failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Error processing refresh token", nil)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   h.authService.AccessExpiresIn(),
	})
}

// Check is a protected probe endpoint. The bearer middleware has already
// run; under the soft-fail policy it reaches here even with a bad token.
func (h *AuthHandlers) Check(c *gin.Context) {
	respondSuccess(c, http.StatusOK, "Hello, you are authenticated!", nil)
}
