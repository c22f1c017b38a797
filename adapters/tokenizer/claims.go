package tokenizer

import "github.com/golang-jwt/jwt/v5"

// DeviceTokenClaims is the claim set shared by access and refresh tokens:
// registered iat/exp (plus jti for refresh) with the device identity and
// token type as private claims.
type DeviceTokenClaims struct {
	jwt.RegisteredClaims
	DeviceID string `json:"device_id"`
	Type     string `json:"type"`
}
