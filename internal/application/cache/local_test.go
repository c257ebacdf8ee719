package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namepilot-ai-api/internal/config"
)

func newTestLocalCache(maxEntries int, ttl time.Duration) *LocalCache {
	return NewLocalCache(&config.LocalCacheConfig{
		MaxEntries:    maxEntries,
		TTL:           ttl,
		SweepInterval: time.Minute,
	})
}

func TestLocalCacheGetSet(t *testing.T) {
	c := newTestLocalCache(10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", []byte("v1"), 0)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	// 覆盖写
	c.Set("k", []byte("v2"), 0)
	got, _ = c.Get("k")
	assert.Equal(t, []byte("v2"), got)
	assert.Equal(t, 1, c.Len())
}

func TestLocalCacheTTLExpiry(t *testing.T) {
	c := newTestLocalCache(10, time.Minute)

	c.Set("short", []byte("v"), 10*time.Millisecond)
	_, ok := c.Get("short")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("short")
	assert.False(t, ok, "expired entry removed on read")
	assert.Equal(t, 0, c.Len())
}

func TestLocalCacheLRUEviction(t *testing.T) {
	c := newTestLocalCache(10, time.Minute)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), []byte("v"), 0)
	}
	// 访问 k0 让它成为最近使用
	_, ok := c.Get("k0")
	require.True(t, ok)

	// 超限触发约 10% 的淘汰，最旧的 k1 出局
	c.Set("k10", []byte("v"), 0)
	assert.Equal(t, 10, c.Len())

	_, ok = c.Get("k0")
	assert.True(t, ok, "recently used survives")
	_, ok = c.Get("k1")
	assert.False(t, ok, "least recently used evicted")
}

func TestLocalCacheDelete(t *testing.T) {
	c := newTestLocalCache(10, time.Minute)
	c.Set("k", []byte("v"), 0)
	c.Delete("k")
	c.Delete("k") // 幂等
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestLocalCacheInvalidatePattern(t *testing.T) {
	c := newTestLocalCache(20, time.Minute)
	c.Set("gen:aaa:10", []byte("v"), 0)
	c.Set("gen:bbb:20", []byte("v"), 0)
	c.Set("other:ccc", []byte("v"), 0)

	removed := c.InvalidatePattern("gen:*")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("other:ccc")
	assert.True(t, ok)
}

func TestLocalCacheSweep(t *testing.T) {
	c := newTestLocalCache(10, time.Minute)
	c.Set("a", []byte("v"), 10*time.Millisecond)
	c.Set("b", []byte("v"), 10*time.Millisecond)
	c.Set("keep", []byte("v"), time.Minute)

	time.Sleep(20 * time.Millisecond)
	removed := c.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())
}
