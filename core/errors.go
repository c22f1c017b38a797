package core

import "errors"

var (
	// ErrMalformedInput covers missing or shape-invalid handshake fields.
	ErrMalformedInput = errors.New("malformed input")

	// ErrStaleTimestamp means the timestamp fell outside the drift window.
	ErrStaleTimestamp = errors.New("stale or invalid timestamp")

	// ErrReplayDetected means the nonce was already consumed within its TTL.
	ErrReplayDetected = errors.New("replay detected")

	// ErrSignatureMismatch means the recomputed HMAC did not match.
	ErrSignatureMismatch = errors.New("invalid HMAC signature")

	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenRevoked   = errors.New("token revoked or invalid")
	ErrTokenMalformed = errors.New("invalid token")

	// ErrStoreFailure wraps shared-store errors; checks backed by the store
	// fail closed when it is returned.
	ErrStoreFailure = errors.New("store operation failed")

	// ErrNotFound is returned by Store.Get on a missing or expired key.
	ErrNotFound = errors.New("key not found")
)
