package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namepilot-ai-api/internal/config"
)

func testBreaker(timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(&config.AdmissionConfig{
		CPUThreshold:    0.80,
		MemoryThreshold: 0.85,
		Breaker: config.BreakerConfig{
			FailureThreshold: 3,
			Timeout:          timeout,
			HealthyErrorRate: 0.05,
		},
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := testBreaker(30 * time.Second)
	require.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
	assert.Greater(t, cb.RetryAfter(), 0)
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb := testBreaker(30 * time.Second)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State(), "non-consecutive failures do not trip")
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	cb := testBreaker(20 * time.Millisecond)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, CircuitOpen, cb.State())
	require.False(t, cb.Allow())

	time.Sleep(30 * time.Millisecond)

	// 超时后首个请求放行并进入半开
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := testBreaker(20 * time.Millisecond)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	time.Sleep(30 * time.Millisecond)
	require.True(t, cb.Allow())
	require.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestBreakerEvaluateLoad(t *testing.T) {
	cb := testBreaker(20 * time.Millisecond)

	// CPU 超阈值直接熔断
	cb.EvaluateLoad(LoadSnapshot{CPUUtilization: 0.92, MemoryUtilization: 0.40})
	require.Equal(t, CircuitOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	require.True(t, cb.Allow())
	require.Equal(t, CircuitHalfOpen, cb.State())

	// 负载仍偏高（未低于阈值的 70%）也不健康恢复，但未超阈值则保持半开
	cb.EvaluateLoad(LoadSnapshot{CPUUtilization: 0.70, MemoryUtilization: 0.40, ErrorRate: 0.01})
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// 错误率超健康线回到熔断
	cb.EvaluateLoad(LoadSnapshot{CPUUtilization: 0.30, MemoryUtilization: 0.30, ErrorRate: 0.20})
	assert.Equal(t, CircuitOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	require.True(t, cb.Allow())

	// 负载与错误率都回到健康区间才闭合
	cb.EvaluateLoad(LoadSnapshot{CPUUtilization: 0.30, MemoryUtilization: 0.30, ErrorRate: 0.01})
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerStateChangeHook(t *testing.T) {
	cb := testBreaker(30 * time.Second)

	var transitions []string
	cb.OnStateChange = func(from, to CircuitState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestBreakerRetryAfterClosed(t *testing.T) {
	cb := testBreaker(30 * time.Second)
	assert.Zero(t, cb.RetryAfter())
}
