package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fitlink/devauth/core"
	"github.com/fitlink/devauth/ports"
)

// RedisStore is the production Store implementation. Nonce single-use
// semantics rely on SETNX being atomic on the server.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

var _ ports.Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", core.ErrNotFound
		}
		s.logger.Error("redis get failed", zap.String("key", key), zap.Error(err))
		return "", core.ErrStoreFailure
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Error("redis set failed", zap.String("key", key), zap.Error(err))
		return core.ErrStoreFailure
	}
	return nil
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		s.logger.Error("redis setnx failed", zap.String("key", key), zap.Error(err))
		return false, core.ErrStoreFailure
	}
	return ok, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Error("redis del failed", zap.String("key", key), zap.Error(err))
		return core.ErrStoreFailure
	}
	return nil
}
