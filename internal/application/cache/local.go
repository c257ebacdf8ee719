// Package cache 实现本地 + 分布式的分层缓存，带预热与淘汰
package cache

import (
	"container/list"
	"context"
	"path"
	"time"

	"sync"

	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/pkg/metrics"
)

// 占用超限时一次淘汰的比例
const lruEvictFraction = 0.10

type localEntry struct {
	key       string
	payload   []byte
	expiresAt time.Time
}

// LocalCache 进程内 LRU+TTL 缓存。
// 淘汰扫描在独立的定时循环里跑，与读写共用同一把锁，互不竞态。
type LocalCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List // Front 为最近访问
	maxEntries int
	defaultTTL time.Duration
	sweepEvery time.Duration
}

// NewLocalCache 创建本地缓存
func NewLocalCache(cfg *config.LocalCacheConfig) *LocalCache {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = time.Minute
	}
	return &LocalCache{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		maxEntries: maxEntries,
		defaultTTL: ttl,
		sweepEvery: sweep,
	}
}

// Get 读取并刷新访问顺序；过期条目当场移除
func (c *LocalCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*localEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(elem)
		metrics.CacheEvictionsTotal.WithLabelValues("ttl").Inc()
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return entry.payload, true
}

// Set 写入条目；更新即替换，不原地修改
func (c *LocalCache) Set(key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
	entry := &localEntry{
		key:       key,
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	c.entries[key] = c.lru.PushFront(entry)

	if len(c.entries) > c.maxEntries {
		c.evictLRULocked()
	}
	metrics.CacheLocalEntries.Set(float64(len(c.entries)))
}

// Delete 删除指定键
func (c *LocalCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
}

// InvalidatePattern 按 glob 模式删除，返回删除数量
func (c *LocalCache) InvalidatePattern(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.entries {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			c.removeLocked(elem)
			removed++
		}
	}
	metrics.CacheLocalEntries.Set(float64(len(c.entries)))
	return removed
}

// Len 当前条目数
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Run 启动定时淘汰循环：TTL 扫描 + 超限 LRU 淘汰
func (c *LocalCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep 移除所有 TTL 过期条目，并在超限时做 LRU 淘汰；返回移除数量
func (c *LocalCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*localEntry)
		if now.After(entry.expiresAt) {
			c.removeLocked(elem)
			metrics.CacheEvictionsTotal.WithLabelValues("ttl").Inc()
			removed++
		}
		elem = prev
	}
	if len(c.entries) > c.maxEntries {
		removed += c.evictLRULocked()
	}
	metrics.CacheLocalEntries.Set(float64(len(c.entries)))
	return removed
}

// evictLRULocked 淘汰最旧的约 10% 条目；调用方必须持锁
func (c *LocalCache) evictLRULocked() int {
	target := int(float64(c.maxEntries) * lruEvictFraction)
	if target < 1 {
		target = 1
	}
	evicted := 0
	for evicted < target && c.lru.Len() > 0 {
		elem := c.lru.Back()
		if elem == nil {
			break
		}
		c.removeLocked(elem)
		metrics.CacheEvictionsTotal.WithLabelValues("lru").Inc()
		evicted++
	}
	return evicted
}

func (c *LocalCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*localEntry)
	delete(c.entries, entry.key)
	c.lru.Remove(elem)
}
