package ports

import "context"

// EventPublisher notifies other instances about session changes.
type EventPublisher interface {
	// PublishTokenIssued announces a completed handshake.
	PublishTokenIssued(ctx context.Context, deviceID, jti string) error

	// PublishRevoked announces an explicit revocation.
	PublishRevoked(ctx context.Context, deviceID string) error
}
