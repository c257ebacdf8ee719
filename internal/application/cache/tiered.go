package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"namepilot-ai-api/internal/config"
	redisinfra "namepilot-ai-api/internal/infrastructure/persistence/redis"
	"namepilot-ai-api/pkg/logger"
	"namepilot-ai-api/pkg/metrics"
)

// Stats 分层缓存的健康指标
type Stats struct {
	LocalHits      int64   `json:"local_hits"`
	LocalMisses    int64   `json:"local_misses"`
	LocalHitRatio  float64 `json:"local_hit_ratio"`
	RemoteHits     int64   `json:"remote_hits"`
	RemoteMisses   int64   `json:"remote_misses"`
	RemoteHitRatio float64 `json:"remote_hit_ratio"`
	RemoteErrors   int64   `json:"remote_errors"`
	LocalEntries   int     `json:"local_entries"`
	WarmingDepth   int     `json:"warming_queue_depth,omitempty"`
}

// TieredCache 两级缓存：本地 LRU 优先，分布式层兜底。
// 分布式层不可用时降级到本地层继续服务，绝不致命。
type TieredCache struct {
	local  *LocalCache
	remote *redisinfra.Cache
	ttl    time.Duration

	localHits    atomic.Int64
	localMisses  atomic.Int64
	remoteHits   atomic.Int64
	remoteMisses atomic.Int64
	remoteErrors atomic.Int64
}

// NewTieredCache 创建分层缓存
func NewTieredCache(cfg *config.CacheConfig, local *LocalCache, remote *redisinfra.Cache) *TieredCache {
	ttl := cfg.Redis.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TieredCache{
		local:  local,
		remote: remote,
		ttl:    ttl,
	}
}

// Get 先查本地层；未命中查分布式层，命中则回填本地层
func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if payload, ok := t.local.Get(key); ok {
		t.localHits.Add(1)
		metrics.CacheRequestsTotal.WithLabelValues("local", "hit").Inc()
		return payload, true
	}
	t.localMisses.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues("local", "miss").Inc()

	payload, err := t.remote.Get(ctx, key)
	if err != nil {
		if redisinfra.IsNil(err) {
			t.remoteMisses.Add(1)
			metrics.CacheRequestsTotal.WithLabelValues("remote", "miss").Inc()
			return nil, false
		}
		// 分布式层故障：记录后降级，本地层已查过，按未命中处理
		t.remoteErrors.Add(1)
		metrics.CacheRequestsTotal.WithLabelValues("remote", "error").Inc()
		logger.Warn(ctx, "remote cache tier unavailable, degrading to local only",
			"key", key,
			"error", err.Error(),
		)
		return nil, false
	}

	t.remoteHits.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues("remote", "hit").Inc()
	// 命中提升到本地层
	t.local.Set(key, payload, 0)
	return payload, true
}

// GetOrLoad 读穿加载：本地命中直接返回，否则经分布式层的
// 单飞加载合并并发回源。分布式层不可用时退化为本地单层加载。
func (t *TieredCache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) ([]byte, error) {
	if payload, ok := t.local.Get(key); ok {
		t.localHits.Add(1)
		metrics.CacheRequestsTotal.WithLabelValues("local", "hit").Inc()
		return payload, nil
	}
	t.localMisses.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues("local", "miss").Inc()

	if ttl <= 0 {
		ttl = t.ttl
	}

	loaderRan := false
	payload, err := t.remote.GetOrLoadSafe(ctx, key, ttl, func() (any, error) {
		loaderRan = true
		return loader()
	})
	if err != nil {
		if loaderRan {
			return nil, err
		}
		// 分布式层故障或共享航班失败：降级为本地单层回源
		t.remoteErrors.Add(1)
		metrics.CacheRequestsTotal.WithLabelValues("remote", "error").Inc()
		logger.Warn(ctx, "remote cache tier unavailable, loading locally",
			"key", key,
			"error", err.Error(),
		)
		value, lerr := loader()
		if lerr != nil {
			return nil, lerr
		}
		payload, lerr = json.Marshal(value)
		if lerr != nil {
			return nil, lerr
		}
	}

	t.local.Set(key, payload, ttl)
	return payload, nil
}

// Set 透写两层；分布式层写失败只记录，不阻塞响应
func (t *TieredCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = t.ttl
	}
	t.local.Set(key, payload, ttl)

	if err := t.remote.SetRaw(ctx, key, payload, ttl); err != nil {
		t.remoteErrors.Add(1)
		logger.Warn(ctx, "failed to write remote cache tier",
			"key", key,
			"error", err.Error(),
		)
	}
}

// Delete 双层删除
func (t *TieredCache) Delete(ctx context.Context, key string) {
	t.local.Delete(key)
	if err := t.remote.Delete(ctx, key); err != nil {
		logger.Warn(ctx, "failed to delete from remote cache tier",
			"key", key,
			"error", err.Error(),
		)
	}
}

// Invalidate 按 glob 模式双层失效，返回删除的键数量
func (t *TieredCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	removed := t.local.InvalidatePattern(pattern)
	remoteRemoved, err := t.remote.InvalidatePattern(ctx, pattern)
	if err != nil {
		logger.Warn(ctx, "remote cache invalidation failed",
			"pattern", pattern,
			"error", err.Error(),
		)
		return removed, err
	}
	return removed + remoteRemoved, nil
}

// Stats 返回两层命中率与占用
func (t *TieredCache) Stats() Stats {
	s := Stats{
		LocalHits:    t.localHits.Load(),
		LocalMisses:  t.localMisses.Load(),
		RemoteHits:   t.remoteHits.Load(),
		RemoteMisses: t.remoteMisses.Load(),
		RemoteErrors: t.remoteErrors.Load(),
		LocalEntries: t.local.Len(),
	}
	if total := s.LocalHits + s.LocalMisses; total > 0 {
		s.LocalHitRatio = float64(s.LocalHits) / float64(total)
	}
	if total := s.RemoteHits + s.RemoteMisses; total > 0 {
		s.RemoteHitRatio = float64(s.RemoteHits) / float64(total)
	}
	return s
}
