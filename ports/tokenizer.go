package ports

import (
	"time"

	"github.com/fitlink/devauth/core"
)

// Tokenizer mints and verifies the signed device tokens.
type Tokenizer interface {
	// IssueAccess mints a short-lived access token for the device.
	IssueAccess(deviceID string) (string, error)

	// IssueRefresh mints a long-lived refresh token and returns its jti.
	IssueRefresh(deviceID string) (token string, jti string, err error)

	// VerifyAccess decodes and validates an access token. Expired tokens
	// return core.ErrTokenExpired; anything else structurally wrong
	// returns core.ErrTokenMalformed.
	VerifyAccess(token string) (*core.DeviceClaims, error)

	// VerifyRefresh decodes and validates a refresh token with the same
	// error distinction as VerifyAccess.
	VerifyRefresh(token string) (*core.DeviceClaims, error)

	// AccessTTL reports the configured access token lifetime.
	AccessTTL() time.Duration

	// RefreshTTL reports the configured refresh token lifetime.
	RefreshTTL() time.Duration
}
