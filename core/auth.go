package core

import "time"

// Token type discriminator carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// SignedRequest is the HMAC-signed handshake payload a device submits to
// obtain tokens. The timestamp stays in its wire (string) form because the
// signature covers the exact bytes the client sent.
type SignedRequest struct {
	DeviceID  string // opaque device identifier, 4..128 chars
	Timestamp string // unix seconds, string-encoded integer
	Nonce     string // single-use random value, 16..64 chars
	Signature string // base64 HMAC-SHA256 over the canonical string
}

// CanonicalString returns the exact string the HMAC signature covers:
// "{device_id}/{timestamp}/{nonce}".
func (r SignedRequest) CanonicalString() string {
	return r.DeviceID + "/" + r.Timestamp + "/" + r.Nonce
}

// DeviceClaims is the decoded claim set of an access or refresh token.
type DeviceClaims struct {
	DeviceID  string
	TokenID   string // jti; populated for refresh tokens only
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is the result of a successful handshake.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // access token lifetime in seconds
}
