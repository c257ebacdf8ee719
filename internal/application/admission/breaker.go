package admission

import (
	"sync"
	"time"

	"namepilot-ai-api/internal/config"
)

// CircuitState 熔断器状态
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// 半开恢复判定：负载须低于阈值的此比例
const halfOpenLoadFactor = 0.7

// CircuitBreaker 进程级熔断器。
// 状态迁移只发生在两处：请求完成计数（RecordSuccess/RecordFailure）
// 和固定节奏的负载评估（EvaluateLoad），请求处理路径本身不直接改状态。
type CircuitBreaker struct {
	mu              sync.RWMutex
	state           CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time
	openedAt        time.Time

	failureThreshold int
	successThreshold int
	timeout          time.Duration
	healthyErrorRate float64
	cpuThreshold     float64
	memoryThreshold  float64

	// OnStateChange 状态切换钩子，用于日志与指标
	OnStateChange func(from, to CircuitState)
}

// NewCircuitBreaker 按配置创建熔断器
func NewCircuitBreaker(cfg *config.AdmissionConfig) *CircuitBreaker {
	b := &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: cfg.Breaker.FailureThreshold,
		successThreshold: 2,
		timeout:          cfg.Breaker.Timeout,
		healthyErrorRate: cfg.Breaker.HealthyErrorRate,
		cpuThreshold:     cfg.CPUThreshold,
		memoryThreshold:  cfg.MemoryThreshold,
	}
	if b.failureThreshold <= 0 {
		b.failureThreshold = 5
	}
	if b.timeout <= 0 {
		b.timeout = 30 * time.Second
	}
	if b.healthyErrorRate <= 0 {
		b.healthyErrorRate = 0.1
	}
	return b
}

// State 返回当前状态
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Allow 判断请求是否放行；OPEN 超时后迁移到 HALF_OPEN 并放行探测流量
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.openedAt) > cb.timeout {
			cb.setState(CircuitHalfOpen)
			cb.successes = 0
			return true
		}
		return false
	case CircuitHalfOpen:
		return true
	}
	return false
}

// RetryAfter 返回 OPEN 状态下建议的重试等待秒数
func (cb *CircuitBreaker) RetryAfter() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	if cb.state != CircuitOpen {
		return 0
	}
	remaining := cb.timeout - time.Since(cb.openedAt)
	if remaining < time.Second {
		return 1
	}
	return int(remaining.Seconds() + 0.5)
}

// RecordSuccess 记录一次成功完成
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.setState(CircuitClosed)
			cb.failures = 0
			cb.successes = 0
		}
	case CircuitClosed:
		cb.failures = 0
	}
}

// RecordFailure 记录一次失败完成
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.failureThreshold {
			cb.open()
		}
	case CircuitHalfOpen:
		cb.open()
		cb.successes = 0
	}
}

// EvaluateLoad 固定节奏的负载评估：
// CLOSED 且负载超阈值 → OPEN；
// HALF_OPEN 且采样窗口显示负载低于阈值 70%、错误率低于健康线 → CLOSED，
// 否则回到 OPEN。
func (cb *CircuitBreaker) EvaluateLoad(snap LoadSnapshot) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	overloaded := snap.CPUUtilization > cb.cpuThreshold || snap.MemoryUtilization > cb.memoryThreshold

	switch cb.state {
	case CircuitClosed:
		if overloaded {
			cb.open()
		}
	case CircuitHalfOpen:
		healthy := snap.CPUUtilization < cb.cpuThreshold*halfOpenLoadFactor &&
			snap.MemoryUtilization < cb.memoryThreshold*halfOpenLoadFactor &&
			snap.ErrorRate < cb.healthyErrorRate
		if healthy {
			cb.setState(CircuitClosed)
			cb.failures = 0
			cb.successes = 0
		} else if overloaded || snap.ErrorRate >= cb.healthyErrorRate {
			cb.open()
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = time.Now()
	cb.setState(CircuitOpen)
}

func (cb *CircuitBreaker) setState(newState CircuitState) {
	if cb.state == newState {
		return
	}
	old := cb.state
	cb.state = newState
	if cb.OnStateChange != nil {
		cb.OnStateChange(old, newState)
	}
}
