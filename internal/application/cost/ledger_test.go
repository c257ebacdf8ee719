package cost

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namepilot-ai-api/internal/config"
)

func testLedger(daily, monthly float64) *BudgetLedger {
	return NewBudgetLedger(&config.BudgetConfig{
		DailyLimit:   daily,
		MonthlyLimit: monthly,
	})
}

func TestLedgerAdd(t *testing.T) {
	ctx := context.Background()
	l := testLedger(100, 1000)

	l.Add(ctx, 1.5)
	l.Add(ctx, 2.5)
	l.Add(ctx, -3) // 负值按零处理

	snap := l.Snapshot()
	assert.InDelta(t, 4.0, snap.DailySpent, 1e-9)
	assert.InDelta(t, 4.0, snap.MonthlySpent, 1e-9)
	assert.Equal(t, int64(3), snap.RequestCount)
	assert.InDelta(t, 96.0, snap.DailyRemaining, 1e-9)
	assert.Equal(t, AlertNone, snap.AlertLevel)
	assert.False(t, snap.Degraded)
}

func TestLedgerSavings(t *testing.T) {
	ctx := context.Background()
	l := testLedger(100, 1000)

	l.AddSavings(ctx, 0.4)
	l.AddSavings(ctx, -1) // 忽略
	l.AddSavings(ctx, 0.1)

	snap := l.Snapshot()
	assert.InDelta(t, 0.5, snap.CacheSavings, 1e-9)
	assert.Zero(t, snap.DailySpent, "savings do not count as spend")
}

func TestLedgerDailyRemainingFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	l := testLedger(10, 1000)

	l.Add(ctx, 12)
	assert.Zero(t, l.DailyRemaining())
}

func TestLedgerAlertLevels(t *testing.T) {
	ctx := context.Background()

	l := testLedger(10, 1000)
	l.Add(ctx, 8.2)
	assert.Equal(t, AlertWarning, l.Snapshot().AlertLevel)
	assert.False(t, l.Degraded())

	l.Add(ctx, 1.5) // 97% → critical
	snap := l.Snapshot()
	assert.Equal(t, AlertCritical, snap.AlertLevel)
	assert.True(t, snap.Degraded)

	// critical 之后花费回不去，降级保持到重置
	assert.True(t, l.Degraded())
}

func TestLedgerMonthlyAlert(t *testing.T) {
	ctx := context.Background()
	l := testLedger(1000, 10)

	l.Add(ctx, 8.5)
	assert.Equal(t, AlertWarning, l.Snapshot().AlertLevel)
}

func TestLedgerDailyReset(t *testing.T) {
	ctx := context.Background()
	l := testLedger(10, 1000)

	base := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }
	l.lastReset = base

	l.Add(ctx, 9.8)
	l.AddSavings(ctx, 0.2)
	require.True(t, l.Degraded())

	// 跨过自然日边界
	l.now = func() time.Time { return base.Add(2 * time.Hour) }

	snap := l.Snapshot()
	assert.Zero(t, snap.DailySpent)
	assert.Zero(t, snap.RequestCount)
	assert.Zero(t, snap.CacheSavings)
	assert.Equal(t, AlertNone, snap.AlertLevel)
	assert.False(t, snap.Degraded)
	assert.InDelta(t, 9.8, snap.MonthlySpent, 1e-9, "monthly carries across days")
}

func TestLedgerMonthlyReset(t *testing.T) {
	ctx := context.Background()
	l := testLedger(100, 1000)

	base := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }
	l.lastReset = base

	l.Add(ctx, 42)

	// 跨月：日账与月账同时清零
	l.now = func() time.Time { return base.AddDate(0, 1, 0) }

	snap := l.Snapshot()
	assert.Zero(t, snap.DailySpent)
	assert.Zero(t, snap.MonthlySpent)
}
