package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/mpaguilar/msa-toy/internal/config"
	"github.com/mpaguilar/msa-toy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBackends(t *testing.T) map[string]domain.CacheStore {
	t.Helper()
	ctx := context.Background()

	file, err := NewFileCacheStore(t.TempDir())
	require.NoError(t, err)

	badgerStore, err := NewBadgerCacheStore(InMemoryBadgerConfig(), zap.NewNop())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisStore, err := NewRedisCacheStore(ctx, mr.Addr())
	require.NoError(t, err)

	backends := map[string]domain.CacheStore{
		BackendFile:   file,
		BackendBadger: badgerStore,
		BackendRedis:  redisStore,
	}
	t.Cleanup(func() {
		for _, b := range backends {
			_ = b.Close()
		}
	})
	return backends
}

func TestCacheStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "wikipedia_abc")
			assert.True(t, errors.Is(err, domain.ErrCacheMiss), "expected miss, got %v", err)

			require.NoError(t, s.Put(ctx, "wikipedia_abc", []byte(`{"v":1}`)))
			got, err := s.Get(ctx, "wikipedia_abc")
			require.NoError(t, err)
			assert.Equal(t, `{"v":1}`, string(got))

			require.NoError(t, s.Put(ctx, "wikipedia_abc", []byte(`{"v":2}`)))
			got, err = s.Get(ctx, "wikipedia_abc")
			require.NoError(t, err)
			assert.Equal(t, `{"v":2}`, string(got))

			removed, err := s.Delete(ctx, "wikipedia_abc")
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = s.Delete(ctx, "wikipedia_abc")
			require.NoError(t, err)
			assert.False(t, removed)

			_, err = s.Get(ctx, "wikipedia_abc")
			assert.True(t, errors.Is(err, domain.ErrCacheMiss))
		})
	}
}

func TestFileCacheStore_OneFilePerKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileCacheStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "web_search_123", []byte("{}")))

	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "web_search_123.json", filepath.Base(matches[0]))
}

func TestRedisCacheStore_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisCacheStore(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), "k", []byte("v")))

	got, err := mr.Get(redisKeyPrefix + "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisCacheStore_Unreachable(t *testing.T) {
	_, err := NewRedisCacheStore(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}

func TestNewCacheStore(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	s, err := NewCacheStore(ctx, config.CacheConfig{Dir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &FileCacheStore{}, s)

	mr := miniredis.RunT(t)
	s, err = NewCacheStore(ctx, config.CacheConfig{Backend: BackendRedis, RedisAddr: mr.Addr()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &RedisCacheStore{}, s)
	_ = s.Close()

	s, err = NewCacheStore(ctx, config.CacheConfig{Backend: BackendBadger, Dir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &BadgerCacheStore{}, s)
	_ = s.Close()

	_, err = NewCacheStore(ctx, config.CacheConfig{Backend: BackendRedis}, logger)
	assert.Error(t, err)

	_, err = NewCacheStore(ctx, config.CacheConfig{Backend: "memcached"}, logger)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown cache backend: memcached"))
}
