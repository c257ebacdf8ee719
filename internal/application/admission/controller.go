package admission

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"namepilot-ai-api/internal/config"
	apperrors "namepilot-ai-api/pkg/errors"
	"namepilot-ai-api/pkg/logger"
	"namepilot-ai-api/pkg/metrics"
)

// Decision 准入结果附带的排队信息
type Decision struct {
	Queued       bool          `json:"queued"`
	Position     int           `json:"position,omitempty"`
	WaitEstimate time.Duration `json:"wait_estimate,omitempty"`
}

// Status 状态端点使用的准入快照
type Status struct {
	BreakerState      string       `json:"breaker_state"`
	ActiveConnections int64        `json:"active_connections"`
	QueueDepth        int          `json:"queue_depth"`
	Load              LoadSnapshot `json:"load"`
	AvgLatency        string       `json:"avg_latency"`
}

// Controller 准入控制器：熔断 + 负载排队 + 连接计数。
// 生产者并发调用 Admit，dispatch 循环作为唯一消费者出队放行。
type Controller struct {
	cfg     *config.AdmissionConfig
	breaker *CircuitBreaker
	sampler *Sampler
	queue   *priorityQueue

	active    atomic.Int64
	latencies *latencyRing
}

// NewController 创建准入控制器
func NewController(cfg *config.Config) *Controller {
	c := &Controller{
		cfg:       &cfg.Admission,
		breaker:   NewCircuitBreaker(&cfg.Admission),
		sampler:   NewSampler(cfg.Admission.SampleInterval),
		queue:     newPriorityQueue(cfg.Admission.QueueSize),
		latencies: newLatencyRing(256),
	}
	c.breaker.OnStateChange = func(from, to CircuitState) {
		logger.Warn(context.Background(), "circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
		metrics.CircuitBreakerState.Set(float64(to))
	}
	return c
}

// Start 启动采样、熔断评估与出队循环，阻塞直到上下文取消
func (c *Controller) Start(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		c.sampler.Run(ctx)
	}()

	go func() {
		defer wg.Done()
		interval := c.cfg.Breaker.EvalInterval
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
				snap := c.sampler.Snapshot()
				snap.ErrorRate = c.sampler.ErrorRate()
				c.breaker.EvaluateLoad(snap)
			}
		}
	}()

	go func() {
		defer wg.Done()
		c.dispatchLoop(ctx)
	}()

	wg.Wait()
}

// Admit 尝试放行请求。
// 熔断 OPEN 直接拒绝并带重试提示；过载时进入有界优先级队列，
// 队满拒绝，排队期间上下文超时则丢弃。
func (c *Controller) Admit(ctx context.Context, class Class) (*Decision, error) {
	if !c.breaker.Allow() {
		metrics.AdmissionDecisionsTotal.WithLabelValues("rejected_breaker").Inc()
		return nil, apperrors.ErrCircuitOpen.WithRetryAfter(c.breaker.RetryAfter())
	}

	if !c.overloaded() {
		c.admitInline()
		metrics.AdmissionDecisionsTotal.WithLabelValues("admitted").Inc()
		return &Decision{}, nil
	}

	w, position, ok := c.queue.enqueue(class)
	if !ok {
		metrics.AdmissionDecisionsTotal.WithLabelValues("rejected_capacity").Inc()
		return nil, apperrors.ErrQueueFull
	}
	metrics.AdmissionQueueDepth.Set(float64(c.queue.depth()))
	metrics.AdmissionDecisionsTotal.WithLabelValues("queued").Inc()

	decision := &Decision{
		Queued:       true,
		Position:     position,
		WaitEstimate: c.latencies.avg() * time.Duration(position),
	}

	select {
	case <-w.ready:
		c.admitInline()
		metrics.AdmissionQueueDepth.Set(float64(c.queue.depth()))
		return decision, nil
	case <-ctx.Done():
		if c.queue.remove(w) {
			metrics.AdmissionQueueDepth.Set(float64(c.queue.depth()))
			metrics.AdmissionDecisionsTotal.WithLabelValues("dropped_timeout").Inc()
			return nil, apperrors.ErrQueueTimeout
		}
		// 竞态窗口：刚好已被出队放行，按放行处理
		<-w.ready
		c.admitInline()
		return decision, nil
	}
}

// OnComplete 记录请求完成：释放连接、驱动熔断计数与延迟估计
func (c *Controller) OnComplete(success bool, latency time.Duration) {
	c.active.Add(-1)
	metrics.ActiveConnections.Set(float64(c.active.Load()))

	c.sampler.RecordOutcome(success)
	c.latencies.record(latency)
	if success {
		c.breaker.RecordSuccess()
	} else {
		c.breaker.RecordFailure()
	}
}

// Breaker 暴露熔断器（测试与状态端点）
func (c *Controller) Breaker() *CircuitBreaker {
	return c.breaker
}

// Status 返回准入快照
func (c *Controller) Status() Status {
	return Status{
		BreakerState:      c.breaker.State().String(),
		ActiveConnections: c.active.Load(),
		QueueDepth:        c.queue.depth(),
		Load:              c.sampler.Snapshot(),
		AvgLatency:        c.latencies.avg().String(),
	}
}

func (c *Controller) admitInline() {
	c.active.Add(1)
	metrics.ActiveConnections.Set(float64(c.active.Load()))
}

func (c *Controller) overloaded() bool {
	if c.cfg.MaxConnections > 0 && c.active.Load() >= int64(c.cfg.MaxConnections) {
		return true
	}
	snap := c.sampler.Snapshot()
	return snap.CPUUtilization > c.cfg.CPUThreshold || snap.MemoryUtilization > c.cfg.MemoryThreshold
}

// dispatchLoop 单消费者：容量恢复后按优先级放行排队请求
func (c *Controller) dispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for !c.overloaded() {
				w := c.queue.dequeue()
				if w == nil {
					break
				}
				close(w.ready)
			}
			metrics.AdmissionQueueDepth.Set(float64(c.queue.depth()))
		}
	}
}

// latencyRing 请求延迟的有界环形缓冲，用于估算排队等待
type latencyRing struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	filled  bool
}

func newLatencyRing(size int) *latencyRing {
	if size <= 0 {
		size = 256
	}
	return &latencyRing{samples: make([]time.Duration, size)}
}

func (r *latencyRing) record(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[r.next] = d
	r.next++
	if r.next >= len(r.samples) {
		r.next = 0
		r.filled = true
	}
}

func (r *latencyRing) avg() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next
	if r.filled {
		n = len(r.samples)
	}
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < n; i++ {
		sum += r.samples[i]
	}
	return sum / time.Duration(n)
}
