package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namepilot-ai-api/internal/config"
	redisinfra "namepilot-ai-api/internal/infrastructure/persistence/redis"
)

func newTestTieredCache(t *testing.T) (*TieredCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client := redisinfra.NewClientFromRedis(rdb, &config.RedisConfig{})
	remote := redisinfra.NewCache(client)
	local := NewLocalCache(&config.LocalCacheConfig{MaxEntries: 100, TTL: time.Minute})

	tiered := NewTieredCache(&config.CacheConfig{
		Redis: config.RedisConfig{TTL: time.Hour},
	}, local, remote)
	return tiered, mr
}

func TestTieredCacheSetWritesBothTiers(t *testing.T) {
	ctx := context.Background()
	tc, mr := newTestTieredCache(t)

	tc.Set(ctx, "gen:abc:10", []byte("payload"), 0)

	got, ok := tc.Get(ctx, "gen:abc:10")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	val, err := mr.Get("gen:abc:10")
	require.NoError(t, err)
	assert.Equal(t, "payload", val)
}

func TestTieredCacheRemoteHitPromotesToLocal(t *testing.T) {
	ctx := context.Background()
	tc, mr := newTestTieredCache(t)

	// 只在分布式层预置
	require.NoError(t, mr.Set("gen:remote:10", "payload"))

	got, ok := tc.Get(ctx, "gen:remote:10")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	stats := tc.Stats()
	assert.Equal(t, int64(1), stats.RemoteHits)
	assert.Equal(t, int64(1), stats.LocalMisses)

	// 第二次读走本地层
	_, ok = tc.Get(ctx, "gen:remote:10")
	require.True(t, ok)
	assert.Equal(t, int64(1), tc.Stats().LocalHits)
	assert.Equal(t, int64(1), tc.Stats().RemoteHits, "no second remote round trip")
}

func TestTieredCacheMiss(t *testing.T) {
	ctx := context.Background()
	tc, _ := newTestTieredCache(t)

	_, ok := tc.Get(ctx, "absent")
	assert.False(t, ok)

	stats := tc.Stats()
	assert.Equal(t, int64(1), stats.LocalMisses)
	assert.Equal(t, int64(1), stats.RemoteMisses)
	assert.Zero(t, stats.RemoteErrors)
}

func TestTieredCacheDelete(t *testing.T) {
	ctx := context.Background()
	tc, mr := newTestTieredCache(t)

	tc.Set(ctx, "k", []byte("v"), 0)
	tc.Delete(ctx, "k")

	_, ok := tc.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, mr.Exists("k"))
}

func TestTieredCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	tc, _ := newTestTieredCache(t)

	tc.Set(ctx, "gen:a:10", []byte("v"), 0)
	tc.Set(ctx, "gen:b:20", []byte("v"), 0)
	tc.Set(ctx, "other", []byte("v"), 0)

	removed, err := tc.Invalidate(ctx, "gen:*")
	require.NoError(t, err)
	// 两层各删两条
	assert.Equal(t, 4, removed)

	_, ok := tc.Get(ctx, "gen:a:10")
	assert.False(t, ok)
	_, ok = tc.Get(ctx, "other")
	assert.True(t, ok)
}

func TestTieredCacheGetOrLoadMergesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	tc, _ := newTestTieredCache(t)

	var loads atomic.Int64
	loader := func() (any, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "generated", nil
	}

	const callers = 8
	payloads := make([][]byte, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			payload, err := tc.GetOrLoad(ctx, "gen:stampede:10", 0, loader)
			assert.NoError(t, err)
			payloads[i] = payload
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), loads.Load(), "one load serves all concurrent misses")
	for _, payload := range payloads {
		assert.Equal(t, []byte(`"generated"`), payload)
	}

	// 后续读走本地层，不再回源
	got, ok := tc.Get(ctx, "gen:stampede:10")
	require.True(t, ok)
	assert.Equal(t, []byte(`"generated"`), got)
	assert.Equal(t, int64(1), loads.Load())
}

func TestTieredCacheGetOrLoadPropagatesLoaderError(t *testing.T) {
	ctx := context.Background()
	tc, _ := newTestTieredCache(t)

	wantErr := errors.New("upstream exhausted")
	_, err := tc.GetOrLoad(ctx, "k", 0, func() (any, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, ok := tc.Get(ctx, "k")
	assert.False(t, ok, "failed load caches nothing")
}

func TestTieredCacheGetOrLoadDegradesWhenRemoteDown(t *testing.T) {
	ctx := context.Background()
	tc, mr := newTestTieredCache(t)
	mr.Close()

	var loads atomic.Int64
	payload, err := tc.GetOrLoad(ctx, "k", 0, func() (any, error) {
		loads.Add(1)
		return "local-only", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte(`"local-only"`), payload)
	assert.Positive(t, tc.Stats().RemoteErrors)

	// 降级加载的结果进了本地层
	got, ok := tc.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte(`"local-only"`), got)
	assert.Equal(t, int64(1), loads.Load())
}

func TestTieredCacheDegradesWhenRemoteDown(t *testing.T) {
	ctx := context.Background()
	tc, mr := newTestTieredCache(t)

	tc.Set(ctx, "k", []byte("v"), 0)
	mr.Close()

	// 本地层继续命中
	got, ok := tc.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	// 本地未有的键：分布式层故障按未命中降级处理
	_, ok = tc.Get(ctx, "only-remote")
	assert.False(t, ok)
	assert.Positive(t, tc.Stats().RemoteErrors)
}

func TestTieredCacheStatsRatios(t *testing.T) {
	ctx := context.Background()
	tc, _ := newTestTieredCache(t)

	tc.Set(ctx, "k", []byte("v"), 0)
	_, _ = tc.Get(ctx, "k")      // local hit
	_, _ = tc.Get(ctx, "absent") // both miss

	stats := tc.Stats()
	assert.InDelta(t, 0.5, stats.LocalHitRatio, 1e-9)
	assert.Equal(t, 1, stats.LocalEntries)
}
