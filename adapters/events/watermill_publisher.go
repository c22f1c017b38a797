package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/fitlink/devauth/ports"
)

const (
	TopicTokenIssued = "auth.token_issued"
	TopicRevoked     = "auth.revoked"
)

// TokenIssuedEvent announces a completed handshake.
type TokenIssuedEvent struct {
	DeviceID string `json:"device_id"`
	TokenID  string `json:"token_id"`
}

// RevokedEvent announces an explicit refresh-token revocation.
type RevokedEvent struct {
	DeviceID string `json:"device_id"`
}

// WatermillPublisher implements EventPublisher over a Watermill stream.
type WatermillPublisher struct {
	publisher message.Publisher
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// NewWatermillPublisher creates a new Watermill-backed publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) PublishTokenIssued(ctx context.Context, deviceID, jti string) error {
	return p.publish(TopicTokenIssued, jti, TokenIssuedEvent{
		DeviceID: deviceID,
		TokenID:  jti,
	})
}

func (p *WatermillPublisher) PublishRevoked(ctx context.Context, deviceID string) error {
	return p.publish(TopicRevoked, uuid.New().String(), RevokedEvent{
		DeviceID: deviceID,
	})
}

func (p *WatermillPublisher) publish(topic, id string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
