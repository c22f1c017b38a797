package ports

import (
	"context"
	"time"
)

// Store is the narrow key-value interface shared by the nonce and
// refresh-token records. Implementations must provide atomic set-if-absent;
// the replay guard has no other defense against concurrent reuse.
type Store interface {
	// Get retrieves a value, returning core.ErrNotFound on a miss.
	Get(ctx context.Context, key string) (string, error)

	// Set writes a key unconditionally with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetIfAbsent writes the key only if it does not already exist.
	// Returns true when the write happened.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
