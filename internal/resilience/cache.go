package resilience

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mpaguilar/msa-toy/internal/domain"
	"go.uber.org/zap"
)

const DefaultCacheTTL = time.Hour

type cacheEntry struct {
	Key       string          `json:"key"`
	Content   json.RawMessage `json:"content"`
	Timestamp float64         `json:"timestamp"`
	TTL       int64           `json:"ttl"`
}

// ExpiringCache memoizes capability results by normalized query. Entries are
// self-describing JSON so any CacheStore can hold them.
type ExpiringCache struct {
	store      domain.CacheStore
	defaultTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewExpiringCache(store domain.CacheStore, defaultTTL time.Duration, logger *zap.Logger) *ExpiringCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultCacheTTL
	}
	return &ExpiringCache{
		store:      store,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
}

func (c *ExpiringCache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// NormalizeQuery returns the cache key for a query: the md5 hex digest of the
// lower-cased query with whitespace runs collapsed.
func NormalizeQuery(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the raw content stored under key. Entries older than ttl
// (DefaultTTL when ttl <= 0) and unreadable entries are deleted and reported
// as misses.
func (c *ExpiringCache) Get(ctx context.Context, key string, ttl time.Duration) (json.RawMessage, bool) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("corrupt cache entry, removing", zap.String("key", key), zap.Error(err))
		c.remove(ctx, key)
		return nil, false
	}

	age := c.now().Sub(unixFloatToTime(entry.Timestamp))
	if age > ttl {
		c.logger.Debug("cache entry expired", zap.String("key", key), zap.Duration("age", age))
		c.remove(ctx, key)
		return nil, false
	}

	return entry.Content, true
}

// GetInto decodes a cached value into out. A value that no longer decodes is
// treated as corrupt.
func (c *ExpiringCache) GetInto(ctx context.Context, key string, ttl time.Duration, out any) bool {
	content, ok := c.Get(ctx, key, ttl)
	if !ok {
		return false
	}
	if err := json.Unmarshal(content, out); err != nil {
		c.logger.Warn("cached content does not decode, removing", zap.String("key", key), zap.Error(err))
		c.remove(ctx, key)
		return false
	}
	return true
}

// Set stores value with the current time. Time values nested in maps and
// slices are converted to RFC 3339 text first.
func (c *ExpiringCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	content, err := json.Marshal(normalizeTimes(value))
	if err != nil {
		return fmt.Errorf("marshal cache content: %w", err)
	}

	data, err := json.Marshal(cacheEntry{
		Key:       key,
		Content:   content,
		Timestamp: timeToUnixFloat(c.now()),
		TTL:       int64(ttl / time.Second),
	})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := c.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Warm preloads a value, e.g. from a previous run.
func (c *ExpiringCache) Warm(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.Set(ctx, key, value, ttl)
}

// Invalidate removes key and reports whether anything was removed.
func (c *ExpiringCache) Invalidate(ctx context.Context, key string) bool {
	removed, err := c.store.Delete(ctx, key)
	if err != nil {
		c.logger.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return removed
}

func (c *ExpiringCache) remove(ctx context.Context, key string) {
	if _, err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func normalizeTimes(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.Format(time.RFC3339Nano)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeTimes(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeTimes(val)
		}
		return out
	default:
		return v
	}
}

func timeToUnixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func unixFloatToTime(f float64) time.Time {
	return time.Unix(0, int64(f*float64(time.Second)))
}
