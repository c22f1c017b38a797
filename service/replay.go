package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/fitlink/devauth/core"
)

// Absolute sanity bounds for client timestamps: 2025-01-01 .. 2125-01-01.
const (
	minTimestamp = 1735689600
	maxTimestamp = 4793846400
)

// Shared-store key prefixes.
const (
	nonceKeyPrefix   = "hmac_nonce:"
	refreshKeyPrefix = "refresh_token:"
)

// Strict base64: groups of 4, optionally ending in "==" or "=" padding.
var base64RE = regexp.MustCompile(
	`^(?:[A-Za-z0-9+/]{4})*(?:[A-Za-z0-9+/]{2}==|[A-Za-z0-9+/]{3}=)?$`)

// validateFields runs the pure shape checks over a handshake payload. The
// first failing check determines the reported cause. No side effects.
func validateFields(req core.SignedRequest) error {
	if l := len(req.DeviceID); l < 4 || l > 128 {
		return fmt.Errorf("%w: device_id length must be between 4 and 128", core.ErrMalformedInput)
	}
	if l := len(req.Nonce); l < 16 || l > 64 {
		return fmt.Errorf("%w: nonce length must be between 16 and 64", core.ErrMalformedInput)
	}
	if l := len(req.Signature); l < 16 || l > 64 || !base64RE.MatchString(req.Signature) {
		return fmt.Errorf("%w: hmac_hash must be a valid base64 string", core.ErrMalformedInput)
	}
	ts, err := strconv.ParseInt(req.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: timestamp must be an integer of epoch seconds", core.ErrMalformedInput)
	}
	if ts < minTimestamp || ts > maxTimestamp {
		return fmt.Errorf("%w: timestamp out of range", core.ErrMalformedInput)
	}
	return nil
}

// validateFreshness checks the timestamp against the symmetric drift window.
// Non-numeric input is rejected.
func (s *AuthService) validateFreshness(timestamp string) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	now := s.now().Unix()
	diff := now - ts
	if diff < 0 {
		diff = -diff
	}
	return diff <= int64(s.cfg.DriftWindow/time.Second)
}

// consumeNonce atomically claims a nonce for the device. True means the
// nonce was unused; false means replay. The conditional write in the store
// is the only replay defense, so a store failure fails closed.
func (s *AuthService) consumeNonce(ctx context.Context, nonce, deviceID string) (bool, error) {
	return s.store.SetIfAbsent(ctx, nonceKeyPrefix+nonce, "device:"+deviceID, s.cfg.NonceTTL)
}
