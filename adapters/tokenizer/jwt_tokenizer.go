package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fitlink/devauth/core"
	"github.com/fitlink/devauth/ports"
)

// JWTTokenizer mints and verifies HMAC-signed device tokens.
type JWTTokenizer struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// NewJWTTokenizer creates a tokenizer signing with HS256.
func NewJWTTokenizer(secret string, accessTTL, refreshTTL time.Duration) *JWTTokenizer {
	return &JWTTokenizer{
		secret:     []byte(secret),
		method:     jwt.SigningMethodHS256,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// NewJWTTokenizerWithAlgorithm creates a tokenizer using the named signing
// algorithm. Only the HMAC family is supported; verification rejects
// everything else regardless.
func NewJWTTokenizerWithAlgorithm(secret, algorithm string, accessTTL, refreshTTL time.Duration) (*JWTTokenizer, error) {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	t := NewJWTTokenizer(secret, accessTTL, refreshTTL)
	t.method = method
	return t, nil
}

// SetClock overrides the tokenizer's time source, for expiry tests.
func (t *JWTTokenizer) SetClock(now func() time.Time) {
	t.now = now
}

func (t *JWTTokenizer) AccessTTL() time.Duration  { return t.accessTTL }
func (t *JWTTokenizer) RefreshTTL() time.Duration { return t.refreshTTL }

// IssueAccess mints an access token with claims
// {iat, exp = iat + accessTTL, device_id, type: "access"}.
func (t *JWTTokenizer) IssueAccess(deviceID string) (string, error) {
	now := t.now()
	claims := DeviceTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
		DeviceID: deviceID,
		Type:     core.TokenTypeAccess,
	}

	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh mints a refresh token with claims
// {iat, exp = iat + refreshTTL, device_id, jti, type: "refresh"} and returns
// the generated jti. Persisting the jti is the caller's responsibility.
func (t *JWTTokenizer) IssueRefresh(deviceID string) (string, string, error) {
	now := t.now()
	jti := uuid.New().String()
	claims := DeviceTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
		DeviceID: deviceID,
		Type:     core.TokenTypeRefresh,
	}

	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, jti, nil
}

// VerifyAccess decodes and validates an access token.
func (t *JWTTokenizer) VerifyAccess(token string) (*core.DeviceClaims, error) {
	return t.verify(token, core.TokenTypeAccess)
}

// VerifyRefresh decodes and validates a refresh token, additionally
// requiring the jti claim.
func (t *JWTTokenizer) VerifyRefresh(token string) (*core.DeviceClaims, error) {
	claims, err := t.verify(token, core.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.TokenID == "" {
		return nil, core.ErrTokenMalformed
	}
	return claims, nil
}

func (t *JWTTokenizer) verify(tokenStr, wantType string) (*core.DeviceClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &DeviceTokenClaims{}, t.keyFunc,
		jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, core.ErrTokenMalformed
	}
	if !parsed.Valid {
		return nil, core.ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(*DeviceTokenClaims)
	if !ok {
		return nil, core.ErrTokenMalformed
	}

	// exp and iat must be present, not merely valid when present.
	if claims.ExpiresAt == nil || claims.IssuedAt == nil || claims.DeviceID == "" {
		return nil, core.ErrTokenMalformed
	}
	if claims.Type != wantType {
		return nil, core.ErrTokenMalformed
	}

	return &core.DeviceClaims{
		DeviceID:  claims.DeviceID,
		TokenID:   claims.ID,
		Type:      claims.Type,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (t *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return t.secret, nil
}
