package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mpaguilar/msa-toy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory domain.CacheStore.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *memStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	delete(m.data, key)
	return ok, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func newTestCache() (*ExpiringCache, *memStore, *time.Time) {
	store := newMemStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewExpiringCache(store, time.Hour, zap.NewNop())
	c.now = func() time.Time { return now }
	return c, store, &now
}

func TestNormalizeQuery(t *testing.T) {
	a := NormalizeQuery("  Texas   State\tSenators ")
	b := NormalizeQuery("texas state senators")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, NormalizeQuery("texas senators"))
}

func TestExpiringCache_SetGet(t *testing.T) {
	c, _, _ := newTestCache()
	ctx := context.Background()

	resp := domain.ToolResponse{ToolName: "wikipedia", Content: "Austin", Metadata: map[string]any{"results_count": 1.0}}
	require.NoError(t, c.Set(ctx, "k", resp, 0))

	var got domain.ToolResponse
	require.True(t, c.GetInto(ctx, "k", 0, &got))
	assert.Equal(t, "Austin", got.Content)
	assert.Equal(t, 1.0, got.Metadata["results_count"])
}

func TestExpiringCache_Expiry(t *testing.T) {
	c, store, now := newTestCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", 0))

	*now = now.Add(59 * time.Minute)
	_, ok := c.Get(ctx, "k", 0)
	assert.True(t, ok)

	*now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "k", 0)
	assert.False(t, ok)
	assert.False(t, store.has("k"), "expected expired entry deleted")
}

func TestExpiringCache_PerCallTTL(t *testing.T) {
	c, _, now := newTestCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", 0))

	*now = now.Add(10 * time.Minute)
	_, ok := c.Get(ctx, "k", 5*time.Minute)
	assert.False(t, ok)
}

func TestExpiringCache_CorruptEntry(t *testing.T) {
	c, store, _ := newTestCache()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", []byte("not json")))

	_, ok := c.Get(ctx, "k", 0)
	assert.False(t, ok)
	assert.False(t, store.has("k"))
}

func TestExpiringCache_ContentThatDoesNotDecode(t *testing.T) {
	c, store, _ := newTestCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []string{"a"}, 0))

	var out domain.ToolResponse
	assert.False(t, c.GetInto(ctx, "k", 0, &out))
	assert.False(t, store.has("k"))
}

func TestExpiringCache_TimesBecomeText(t *testing.T) {
	c, _, _ := newTestCache()
	ctx := context.Background()
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, c.Set(ctx, "k", map[string]any{"at": ts, "nested": []any{ts}}, 0))

	var out map[string]any
	require.True(t, c.GetInto(ctx, "k", 0, &out))
	assert.Equal(t, "2024-05-06T07:08:09Z", out["at"])
	assert.Equal(t, []any{"2024-05-06T07:08:09Z"}, out["nested"])
}

func TestExpiringCache_WarmAndInvalidate(t *testing.T) {
	c, _, _ := newTestCache()
	ctx := context.Background()

	require.NoError(t, c.Warm(ctx, "k", "v", time.Minute))
	_, ok := c.Get(ctx, "k", 0)
	assert.True(t, ok)

	assert.True(t, c.Invalidate(ctx, "k"))
	assert.False(t, c.Invalidate(ctx, "k"))
	assert.Equal(t, time.Hour, c.DefaultTTL())
}
