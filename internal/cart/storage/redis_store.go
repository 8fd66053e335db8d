package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/mediaplace/payments/internal/errors"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed KV store. All keys are namespaced
// under the given prefix.
func NewRedisStore(client *redis.Client, prefix string) KVStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get key from redis")
	}
	return value, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return apperrors.Wrap(err, "failed to set key in redis")
	}
	return nil
}

func (s *redisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return apperrors.Wrap(err, "failed to remove key from redis")
	}
	return nil
}

func (s *redisStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	stored, err := s.client.SetNX(ctx, s.prefix+key, value, ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to set key in redis")
	}
	return stored, nil
}
