// Package admission 实现过载保护：负载采样、优先级排队与熔断
package admission

import (
	"context"
	"runtime"
	runtimemetrics "runtime/metrics"
	"sync"
	"time"
)

// LoadSnapshot 一次负载采样结果，各比率均为 [0,1]
type LoadSnapshot struct {
	CPUUtilization    float64   `json:"cpu_utilization"`
	MemoryUtilization float64   `json:"memory_utilization"`
	ErrorRate         float64   `json:"error_rate"`
	SampledAt         time.Time `json:"sampled_at"`
}

// Sampler 周期性采样进程负载与滑动窗口错误率。
// CPU 利用率由累计 CPU 时间在采样间隔内的增量推算。
type Sampler struct {
	interval time.Duration

	mu       sync.RWMutex
	snapshot LoadSnapshot

	lastCPUSeconds float64
	lastSampleAt   time.Time

	errWindow *errorWindow
}

const cpuTotalMetric = "/cpu/classes/total:cpu-seconds"

func NewSampler(interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sampler{
		interval:  interval,
		errWindow: newErrorWindow(60),
	}
}

// Run 启动采样循环，阻塞直到上下文取消
func (s *Sampler) Run(ctx context.Context) {
	s.sample()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

// Snapshot 返回最近一次采样结果
func (s *Sampler) Snapshot() LoadSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// RecordOutcome 记录一次请求完成，驱动滑动窗口错误率
func (s *Sampler) RecordOutcome(success bool) {
	s.errWindow.record(success)
}

// ErrorRate 返回滑动窗口内的错误率
func (s *Sampler) ErrorRate() float64 {
	return s.errWindow.rate()
}

func (s *Sampler) sample() {
	now := time.Now()

	samples := []runtimemetrics.Sample{{Name: cpuTotalMetric}}
	runtimemetrics.Read(samples)
	cpuSeconds := 0.0
	if samples[0].Value.Kind() == runtimemetrics.KindFloat64 {
		cpuSeconds = samples[0].Value.Float64()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s.mu.Lock()
	defer s.mu.Unlock()

	cpu := 0.0
	if !s.lastSampleAt.IsZero() {
		wall := now.Sub(s.lastSampleAt).Seconds() * float64(runtime.GOMAXPROCS(0))
		if wall > 0 {
			cpu = (cpuSeconds - s.lastCPUSeconds) / wall
		}
		if cpu < 0 {
			cpu = 0
		}
		if cpu > 1 {
			cpu = 1
		}
	}
	s.lastCPUSeconds = cpuSeconds
	s.lastSampleAt = now

	memUtil := 0.0
	if mem.HeapSys > 0 {
		memUtil = float64(mem.HeapAlloc) / float64(mem.HeapSys)
	}

	s.snapshot = LoadSnapshot{
		CPUUtilization:    cpu,
		MemoryUtilization: memUtil,
		ErrorRate:         s.errWindow.rate(),
		SampledAt:         now,
	}
}

// errorWindow 按秒分桶的滑动窗口计数器
type errorWindow struct {
	mu      sync.Mutex
	seconds int
	buckets []errorBucket
}

type errorBucket struct {
	second  int64
	total   int64
	failure int64
}

func newErrorWindow(seconds int) *errorWindow {
	if seconds <= 0 {
		seconds = 60
	}
	return &errorWindow{
		seconds: seconds,
		buckets: make([]errorBucket, seconds),
	}
}

func (w *errorWindow) record(success bool) {
	now := time.Now().Unix()
	idx := now % int64(w.seconds)

	w.mu.Lock()
	defer w.mu.Unlock()
	b := &w.buckets[idx]
	if b.second != now {
		b.second = now
		b.total = 0
		b.failure = 0
	}
	b.total++
	if !success {
		b.failure++
	}
}

func (w *errorWindow) rate() float64 {
	now := time.Now().Unix()
	cutoff := now - int64(w.seconds)

	w.mu.Lock()
	defer w.mu.Unlock()
	var total, failure int64
	for i := range w.buckets {
		b := &w.buckets[i]
		if b.second <= cutoff {
			continue
		}
		total += b.total
		failure += b.failure
	}
	if total == 0 {
		return 0
	}
	return float64(failure) / float64(total)
}
