package cache

import (
	"container/heap"
	"context"
	"strings"
	"sync"
	"time"

	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/pkg/logger"
	"namepilot-ai-api/pkg/metrics"
)

// Regenerator 按键重建缓存载荷；返回载荷与 TTL
type Regenerator func(ctx context.Context, key string) ([]byte, time.Duration, error)

type warmTask struct {
	key      string
	priority int
	seq      uint64
	index    int
}

type warmHeap []*warmTask

func (h warmHeap) Len() int { return len(h) }

func (h warmHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority // 数值大者优先
	}
	return h[i].seq < h[j].seq
}

func (h warmHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *warmHeap) Push(x any) {
	t := x.(*warmTask)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *warmHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Warmer 缓存预热器：键按优先级入队，后台单 worker 逐个处理。
// 键的命名空间前缀（第一个冒号之前）决定由哪个重建例程负责。
type Warmer struct {
	cfg    *config.WarmingConfig
	tiered *TieredCache

	mu           sync.Mutex
	heap         warmHeap
	queued       map[string]bool
	nextSeq      uint64
	regenerators map[string]Regenerator
}

// NewWarmer 创建缓存预热器
func NewWarmer(cfg *config.WarmingConfig, tiered *TieredCache) *Warmer {
	w := &Warmer{
		cfg:          cfg,
		tiered:       tiered,
		queued:       make(map[string]bool),
		regenerators: make(map[string]Regenerator),
	}
	heap.Init(&w.heap)
	return w
}

// Register 注册命名空间的重建例程
func (w *Warmer) Register(namespace string, fn Regenerator) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.regenerators[namespace] = fn
}

// Enqueue 按优先级入队；重复键与队满丢弃
func (w *Warmer) Enqueue(key string, priority int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	maxSize := w.cfg.QueueSize
	if maxSize <= 0 {
		maxSize = 200
	}
	if w.queued[key] || len(w.heap) >= maxSize {
		return false
	}
	w.nextSeq++
	heap.Push(&w.heap, &warmTask{key: key, priority: priority, seq: w.nextSeq})
	w.queued[key] = true
	metrics.CacheWarmingQueueDepth.Set(float64(len(w.heap)))
	return true
}

// Depth 当前队列深度
func (w *Warmer) Depth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.heap)
}

// Run 启动预热 worker，阻塞直到上下文取消
func (w *Warmer) Run(ctx context.Context) {
	if !w.cfg.Enabled {
		return
	}
	interval := w.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

func (w *Warmer) drainOnce(ctx context.Context) {
	for {
		task := w.pop()
		if task == nil {
			return
		}
		w.warm(ctx, task.key)
		if ctx.Err() != nil {
			return
		}
	}
}

func (w *Warmer) pop() *warmTask {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.heap) == 0 {
		return nil
	}
	task := heap.Pop(&w.heap).(*warmTask)
	delete(w.queued, task.key)
	metrics.CacheWarmingQueueDepth.Set(float64(len(w.heap)))
	return task
}

func (w *Warmer) warm(ctx context.Context, key string) {
	// 已有缓存则跳过
	if _, ok := w.tiered.Get(ctx, key); ok {
		return
	}

	namespace := key
	if idx := strings.Index(key, ":"); idx > 0 {
		namespace = key[:idx]
	}
	w.mu.Lock()
	fn, ok := w.regenerators[namespace]
	w.mu.Unlock()
	if !ok {
		logger.Debug(ctx, "no regenerator for warming key namespace",
			"key", key,
			"namespace", namespace,
		)
		return
	}

	payload, ttl, err := fn(ctx, key)
	if err != nil {
		logger.Warn(ctx, "cache warming regeneration failed",
			"key", key,
			"error", err.Error(),
		)
		return
	}
	if len(payload) == 0 {
		return
	}
	w.tiered.Set(ctx, key, payload, ttl)
	logger.Debug(ctx, "cache key warmed", "key", key)
}
