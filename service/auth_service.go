package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fitlink/devauth/core"
	"github.com/fitlink/devauth/internal/hmacsig"
	"github.com/fitlink/devauth/ports"
)

// Config carries the protocol settings the service needs beyond its ports.
type Config struct {
	// HMACSecret is the shared secret handshake signatures are computed with.
	HMACSecret string

	// DriftWindow is the symmetric timestamp freshness window.
	DriftWindow time.Duration

	// NonceTTL bounds how long consumed nonces are remembered. Must cover
	// the drift window or an expired record could admit a replay.
	NonceTTL time.Duration
}

// AuthService orchestrates the device authentication protocol: HMAC
// handshake, access token verification, refresh, and revocation. All shared
// state lives in the injected store; the service itself is stateless and
// safe for concurrent use.
type AuthService struct {
	cfg       Config
	store     ports.Store
	tokenizer ports.Tokenizer
	events    ports.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new authentication service. events may be nil to
// disable cross-instance notifications.
func NewAuthService(
	cfg Config,
	store ports.Store,
	tokenizer ports.Tokenizer,
	events ports.EventPublisher,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg:       cfg,
		store:     store,
		tokenizer: tokenizer,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the service's time source, for freshness tests.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Handshake validates an HMAC-signed request and mints a token pair. The
// checks run in a fixed order and short-circuit on the first failure:
// field shape, timestamp freshness, nonce consumption, signature.
func (s *AuthService) Handshake(ctx context.Context, req core.SignedRequest) (*core.TokenPair, error) {
	if err := validateFields(req); err != nil {
		return nil, err
	}

	if !s.validateFreshness(req.Timestamp) {
		s.logger.Warn("stale or invalid timestamp",
			zap.String("device_id", req.DeviceID),
			zap.String("timestamp", req.Timestamp),
		)
		return nil, core.ErrStaleTimestamp
	}

	ok, err := s.consumeNonce(ctx, req.Nonce, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Warn("replay detected",
			zap.String("device_id", req.DeviceID),
			zap.String("nonce", req.Nonce),
		)
		return nil, core.ErrReplayDetected
	}

	serverSig, err := hmacsig.Sign(s.cfg.HMACSecret, req.CanonicalString())
	if err != nil {
		return nil, core.ErrSignatureMismatch
	}
	if !hmacsig.Compare(serverSig, req.Signature) {
		s.logger.Warn("invalid HMAC signature", zap.String("device_id", req.DeviceID))
		return nil, core.ErrSignatureMismatch
	}

	accessToken, err := s.tokenizer.IssueAccess(req.DeviceID)
	if err != nil {
		return nil, err
	}

	refreshToken, jti, err := s.tokenizer.IssueRefresh(req.DeviceID)
	if err != nil {
		return nil, err
	}

	// One live refresh jti per device: this write invalidates any prior
	// refresh token. Last write wins for concurrent handshakes.
	if err := s.store.Set(ctx, refreshKeyPrefix+req.DeviceID, jti, s.tokenizer.RefreshTTL()); err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.PublishTokenIssued(ctx, req.DeviceID, jti); err != nil {
			// The tokens are already issued and tracked; event delivery is
			// advisory.
			s.logger.Warn("failed to publish token issued event",
				zap.String("device_id", req.DeviceID), zap.Error(err))
		}
	}

	return &core.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.tokenizer.AccessTTL() / time.Second),
	}, nil
}

// VerifyAccess decodes and validates an access token. Callers decide what a
// failure means; the protected-endpoint middleware applies the soft-fail
// policy.
func (s *AuthService) VerifyAccess(ctx context.Context, token string) (*core.DeviceClaims, error) {
	return s.tokenizer.VerifyAccess(token)
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated; only a new handshake rotates it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokenizer.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	storedJTI, err := s.store.Get(ctx, refreshKeyPrefix+claims.DeviceID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", core.ErrTokenRevoked
		}
		// Store unreachable: fail closed rather than assume validity.
		return "", err
	}
	if storedJTI != claims.TokenID {
		s.logger.Warn("refresh token superseded or revoked",
			zap.String("device_id", claims.DeviceID))
		return "", core.ErrTokenRevoked
	}

	return s.tokenizer.IssueAccess(claims.DeviceID)
}

// AccessExpiresIn reports the access token lifetime in whole seconds.
func (s *AuthService) AccessExpiresIn() int {
	return int(s.tokenizer.AccessTTL() / time.Second)
}

// Revoke deletes the tracked refresh jti for a device. Idempotent; refresh
// calls fail with ErrTokenRevoked until a new handshake completes.
func (s *AuthService) Revoke(ctx context.Context, deviceID string) error {
	if err := s.store.Delete(ctx, refreshKeyPrefix+deviceID); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.PublishRevoked(ctx, deviceID); err != nil {
			s.logger.Warn("failed to publish revoked event",
				zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return nil
}
