package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitlink/devauth/adapters/store"
	"github.com/fitlink/devauth/adapters/tokenizer"
	"github.com/fitlink/devauth/core"
	"github.com/fitlink/devauth/internal/hmacsig"
)

const (
	testHMACSecret = "shared-hmac-secret"
	testJWTSecret  = "jwt-signing-secret"
	testDevice     = "TEST-DEVICE-12345"
)

type capturePublisher struct {
	mu      sync.Mutex
	issued  [][2]string // device id, jti
	revoked []string
}

func (p *capturePublisher) PublishTokenIssued(ctx context.Context, deviceID, jti string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued = append(p.issued, [2]string{deviceID, jti})
	return nil
}

func (p *capturePublisher) PublishRevoked(ctx context.Context, deviceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, deviceID)
	return nil
}

// failingStore simulates an unreachable backing store.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (string, error) {
	return "", core.ErrStoreFailure
}

func (failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return core.ErrStoreFailure
}

func (failingStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return false, core.ErrStoreFailure
}

func (failingStore) Delete(ctx context.Context, key string) error {
	return core.ErrStoreFailure
}

// setFailingStore works except for unconditional writes, so a handshake
// passes the nonce consume and dies on the jti write.
type setFailingStore struct {
	*store.MemoryStore
}

func (setFailingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return core.ErrStoreFailure
}

type testEnv struct {
	svc    *AuthService
	store  *store.MemoryStore
	tok    *tokenizer.JWTTokenizer
	events *capturePublisher
}

func newTestEnv() *testEnv {
	st := store.NewMemoryStore()
	tok := tokenizer.NewJWTTokenizer(testJWTSecret, 15*time.Minute, 24*time.Hour)
	events := &capturePublisher{}
	svc := NewAuthService(
		Config{
			HMACSecret:  testHMACSecret,
			DriftWindow: 300 * time.Second,
			NonceTTL:    600 * time.Second,
		},
		st, tok, events, zap.NewNop(),
	)
	return &testEnv{svc: svc, store: st, tok: tok, events: events}
}

// signedRequest builds a correctly signed handshake request. nonce must be
// at least 16 chars.
func signedRequest(t *testing.T, deviceID, nonce string, ts int64) core.SignedRequest {
	t.Helper()
	req := core.SignedRequest{
		DeviceID:  deviceID,
		Timestamp: strconv.FormatInt(ts, 10),
		Nonce:     nonce,
	}
	sig, err := hmacsig.Sign(testHMACSecret, req.CanonicalString())
	require.NoError(t, err)
	req.Signature = sig
	return req
}

func TestHandshakeSuccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	req := signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix())
	pair, err := env.svc.Handshake(ctx, req)
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 900, pair.ExpiresIn)

	// The stored jti matches the issued refresh token.
	claims, err := env.tok.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	stored, err := env.store.Get(ctx, refreshKeyPrefix+testDevice)
	require.NoError(t, err)
	assert.Equal(t, claims.TokenID, stored)

	// Issued event published with the same jti.
	require.Len(t, env.events.issued, 1)
	assert.Equal(t, [2]string{testDevice, claims.TokenID}, env.events.issued[0])
}

func TestHandshakeAccessTokenRoundTrip(t *testing.T) {
	env := newTestEnv()

	req := signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix())
	pair, err := env.svc.Handshake(context.Background(), req)
	require.NoError(t, err)

	claims, err := env.svc.VerifyAccess(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testDevice, claims.DeviceID)
	assert.Equal(t, core.TokenTypeAccess, claims.Type)
}

func TestValidateFieldsFirstFailureWins(t *testing.T) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	goodSig := "AAAAAAAAAAAAAAAAAAAAAA=="

	tests := []struct {
		name string
		req  core.SignedRequest
		want string
	}{
		{
			name: "device id too short",
			req:  core.SignedRequest{DeviceID: "abc", Nonce: "nonce-0123456789", Signature: goodSig, Timestamp: ts},
			want: "device_id",
		},
		{
			name: "nonce too short",
			req:  core.SignedRequest{DeviceID: "DEV-1", Nonce: "short", Signature: goodSig, Timestamp: ts},
			want: "nonce",
		},
		{
			name: "signature not base64",
			req:  core.SignedRequest{DeviceID: "DEV-1", Nonce: "nonce-0123456789", Signature: "!!not-base64-at-all!!", Timestamp: ts},
			want: "hmac_hash",
		},
		{
			name: "signature too short",
			req:  core.SignedRequest{DeviceID: "DEV-1", Nonce: "nonce-0123456789", Signature: "YWJj", Timestamp: ts},
			want: "hmac_hash",
		},
		{
			name: "timestamp not numeric",
			req:  core.SignedRequest{DeviceID: "DEV-1", Nonce: "nonce-0123456789", Signature: goodSig, Timestamp: "yesterday"},
			want: "timestamp",
		},
		{
			name: "timestamp before 2025",
			req:  core.SignedRequest{DeviceID: "DEV-1", Nonce: "nonce-0123456789", Signature: goodSig, Timestamp: "1600000000"},
			want: "timestamp",
		},
		{
			name: "timestamp after 2125",
			req:  core.SignedRequest{DeviceID: "DEV-1", Nonce: "nonce-0123456789", Signature: goodSig, Timestamp: "9999999999"},
			want: "timestamp",
		},
		{
			// Both device_id and nonce are invalid: the device_id check
			// runs first and determines the cause.
			name: "check order",
			req:  core.SignedRequest{DeviceID: "ab", Nonce: "x", Signature: "bad", Timestamp: "bad"},
			want: "device_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFields(tt.req)
			require.ErrorIs(t, err, core.ErrMalformedInput)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateFreshnessBoundaries(t *testing.T) {
	env := newTestEnv()
	now := time.Now()
	env.svc.SetClock(func() time.Time { return now })

	drift := int64(300)
	cases := map[string]bool{
		strconv.FormatInt(now.Unix(), 10):             true,
		strconv.FormatInt(now.Unix()-drift, 10):       true,
		strconv.FormatInt(now.Unix()+drift, 10):       true,
		strconv.FormatInt(now.Unix()-drift-1, 10):     false,
		strconv.FormatInt(now.Unix()+drift+1, 10):     false,
		"not-a-number":                                false,
	}
	for ts, want := range cases {
		assert.Equal(t, want, env.svc.validateFreshness(ts), "timestamp %s", ts)
	}
}

func TestHandshakeStaleTimestamp(t *testing.T) {
	env := newTestEnv()

	req := signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix()-10000)
	_, err := env.svc.Handshake(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrStaleTimestamp)
}

func TestHandshakeReplayDetected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	req := signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix())
	_, err := env.svc.Handshake(ctx, req)
	require.NoError(t, err)

	// Identical request replayed within the nonce TTL.
	_, err = env.svc.Handshake(ctx, req)
	assert.ErrorIs(t, err, core.ErrReplayDetected)
}

func TestHandshakeBadSignature(t *testing.T) {
	env := newTestEnv()

	req := signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix())
	wrong, err := hmacsig.Sign("wrong-secret", req.CanonicalString())
	require.NoError(t, err)
	req.Signature = wrong

	_, err = env.svc.Handshake(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}

func TestConsumeNonceConcurrent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	const workers = 8
	results := make(chan bool, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := env.svc.consumeNonce(ctx, "nonce-0123456789abcdef", testDevice)
			errs <- err
			results <- ok
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent consume must win")
}

// Store outages must never admit a request the store-backed check would
// have rejected.
func TestHandshakeStoreFailureFailsClosed(t *testing.T) {
	tok := tokenizer.NewJWTTokenizer(testJWTSecret, 15*time.Minute, 24*time.Hour)
	cfg := Config{
		HMACSecret:  testHMACSecret,
		DriftWindow: 300 * time.Second,
		NonceTTL:    600 * time.Second,
	}
	req := signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix())

	// Nonce consume fails.
	svc := NewAuthService(cfg, failingStore{}, tok, nil, zap.NewNop())
	_, err := svc.Handshake(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrStoreFailure)

	// Nonce consume succeeds, jti write fails.
	svc = NewAuthService(cfg, setFailingStore{store.NewMemoryStore()}, tok, nil, zap.NewNop())
	_, err = svc.Handshake(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrStoreFailure)
}

func TestRefreshStoreFailureFailsClosed(t *testing.T) {
	tok := tokenizer.NewJWTTokenizer(testJWTSecret, 15*time.Minute, 24*time.Hour)
	refresh, _, err := tok.IssueRefresh(testDevice)
	require.NoError(t, err)

	svc := NewAuthService(Config{
		HMACSecret:  testHMACSecret,
		DriftWindow: 300 * time.Second,
		NonceTTL:    600 * time.Second,
	}, failingStore{}, tok, nil, zap.NewNop())

	// An unreadable jti record is a store failure, not a revocation.
	_, err = svc.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, core.ErrStoreFailure)
	assert.NotErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRefreshSuccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	req := signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix())
	pair, err := env.svc.Handshake(ctx, req)
	require.NoError(t, err)

	access, err := env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := env.svc.VerifyAccess(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, testDevice, claims.DeviceID)
}

func TestRefreshDoesNotRotate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	req := signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix())
	pair, err := env.svc.Handshake(ctx, req)
	require.NoError(t, err)

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// Same refresh token works again; only a new handshake rotates it.
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshSupersededByLaterHandshake(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.svc.Handshake(ctx,
		signedRequest(t, testDevice, "nonce-aaaaaaaaaaaaaaaa", time.Now().Unix()))
	require.NoError(t, err)

	_, err = env.svc.Handshake(ctx,
		signedRequest(t, testDevice, "nonce-bbbbbbbbbbbbbbbb", time.Now().Unix()))
	require.NoError(t, err)

	// The first refresh token's jti was overwritten by the second handshake.
	_, err = env.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRefreshExpiredIsDistinctFromRevoked(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Issue tokens whose refresh expiry is already in the past, while the
	// jti record is stored as usual.
	env.tok.SetClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })
	pair, err := env.svc.Handshake(ctx,
		signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix()))
	require.NoError(t, err)
	env.tok.SetClock(time.Now)

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
	assert.NotErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRefreshAfterRevoke(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pair, err := env.svc.Handshake(ctx,
		signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix()))
	require.NoError(t, err)

	require.NoError(t, env.svc.Revoke(ctx, testDevice))

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	assert.Equal(t, []string{testDevice}, env.events.revoked)
}

func TestRevokeIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Revoke(ctx, testDevice))
	require.NoError(t, env.svc.Revoke(ctx, testDevice))
}

func TestRefreshMalformedToken(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Refresh(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, core.ErrTokenMalformed)
}

func TestHandshakeNilPublisher(t *testing.T) {
	st := store.NewMemoryStore()
	tok := tokenizer.NewJWTTokenizer(testJWTSecret, 15*time.Minute, 24*time.Hour)
	svc := NewAuthService(Config{
		HMACSecret:  testHMACSecret,
		DriftWindow: 300 * time.Second,
		NonceTTL:    600 * time.Second,
	}, st, tok, nil, zap.NewNop())

	_, err := svc.Handshake(context.Background(),
		signedRequest(t, testDevice, "nonce-0123456789abcdef", time.Now().Unix()))
	assert.NoError(t, err)
}
