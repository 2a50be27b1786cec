package store

import (
	"context"
	"fmt"

	"github.com/mpaguilar/msa-toy/internal/config"
	"github.com/mpaguilar/msa-toy/internal/domain"
	"go.uber.org/zap"
)

// Cache backend names accepted in app_config.yml.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// NewCacheStore opens the backend named by cfg.Backend.
func NewCacheStore(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (domain.CacheStore, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileCacheStore(cfg.Dir)
	case BackendBadger:
		return NewBadgerCacheStore(DefaultBadgerConfig(cfg.Dir), logger)
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
		return NewRedisCacheStore(ctx, cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (valid options: file, badger, redis)", cfg.Backend)
	}
}
