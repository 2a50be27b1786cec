package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mpaguilar/msa-toy/internal/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "msa:cache:"

// RedisCacheStore keeps cache entries in redis so several processes can
// share them.
type RedisCacheStore struct {
	client *redis.Client
}

func NewRedisCacheStore(ctx context.Context, addr string) (*RedisCacheStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisCacheStore{client: client}, nil
}

func (s *RedisCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

func (s *RedisCacheStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisCacheStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}

func (s *RedisCacheStore) Close() error {
	return s.client.Close()
}
