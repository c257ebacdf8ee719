package cost

import (
	"context"
	"sync"
	"time"

	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/pkg/logger"
	"namepilot-ai-api/pkg/metrics"
)

// 预算告警级别
type AlertLevel string

const (
	AlertNone     AlertLevel = ""
	AlertWarning  AlertLevel = "warning"  // 达到预算 80%
	AlertCritical AlertLevel = "critical" // 达到预算 95%
)

const (
	warningRatio  = 0.80
	criticalRatio = 0.95
)

// LedgerSnapshot 状态端点使用的账本快照
type LedgerSnapshot struct {
	DailySpent     float64    `json:"daily_spent"`
	MonthlySpent   float64    `json:"monthly_spent"`
	DailyLimit     float64    `json:"daily_limit"`
	MonthlyLimit   float64    `json:"monthly_limit"`
	DailyRemaining float64    `json:"daily_remaining"`
	RequestCount   int64      `json:"request_count"`
	CacheSavings   float64    `json:"cache_savings"`
	AlertLevel     AlertLevel `json:"alert_level,omitempty"`
	Degraded       bool       `json:"degraded"`
	LastReset      time.Time  `json:"last_reset"`
}

// BudgetLedger 进程级预算账本。
// 自然日/自然月边界各重置一次；重置前所有累加单调不减、永不为负。
type BudgetLedger struct {
	cfg *config.BudgetConfig

	mu           sync.Mutex
	dailySpent   float64
	monthlySpent float64
	requestCount int64
	cacheSavings float64
	alertLevel   AlertLevel
	degraded     bool
	lastReset    time.Time

	now func() time.Time
}

// NewBudgetLedger 创建预算账本
func NewBudgetLedger(cfg *config.BudgetConfig) *BudgetLedger {
	return &BudgetLedger{
		cfg:       cfg,
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// Add 记录一笔实际花费并评估告警；负值按零处理
func (l *BudgetLedger) Add(ctx context.Context, amount float64) {
	if amount < 0 {
		amount = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkBoundary(ctx)

	l.dailySpent += amount
	l.monthlySpent += amount
	l.requestCount++

	metrics.BudgetSpent.WithLabelValues("daily").Set(l.dailySpent)
	metrics.BudgetSpent.WithLabelValues("monthly").Set(l.monthlySpent)

	l.evaluateAlerts(ctx)
}

// AddSavings 记录一次缓存命中节省的成本
func (l *BudgetLedger) AddSavings(ctx context.Context, amount float64) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkBoundary(ctx)

	l.cacheSavings += amount
	metrics.BudgetCacheSavings.Add(amount)
}

// DailyRemaining 返回当日剩余预算，不小于零
func (l *BudgetLedger) DailyRemaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkBoundary(context.Background())

	remaining := l.cfg.DailyLimit - l.dailySpent
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Degraded 返回是否处于降级模式（critical 告警后直到下次重置）
func (l *BudgetLedger) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkBoundary(context.Background())
	return l.degraded
}

// Snapshot 返回账本快照
func (l *BudgetLedger) Snapshot() LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkBoundary(context.Background())

	remaining := l.cfg.DailyLimit - l.dailySpent
	if remaining < 0 {
		remaining = 0
	}
	return LedgerSnapshot{
		DailySpent:     l.dailySpent,
		MonthlySpent:   l.monthlySpent,
		DailyLimit:     l.cfg.DailyLimit,
		MonthlyLimit:   l.cfg.MonthlyLimit,
		DailyRemaining: remaining,
		RequestCount:   l.requestCount,
		CacheSavings:   l.cacheSavings,
		AlertLevel:     l.alertLevel,
		Degraded:       l.degraded,
		LastReset:      l.lastReset,
	}
}

// checkBoundary 日/月边界检查；调用方必须持锁
func (l *BudgetLedger) checkBoundary(ctx context.Context) {
	now := l.now()
	ly, lm, ld := l.lastReset.Date()
	y, m, d := now.Date()

	if y != ly || m != lm {
		logger.Info(ctx, "budget ledger monthly reset",
			"monthly_spent", l.monthlySpent,
		)
		l.monthlySpent = 0
	}
	if y != ly || m != lm || d != ld {
		logger.Info(ctx, "budget ledger daily reset",
			"daily_spent", l.dailySpent,
			"request_count", l.requestCount,
			"cache_savings", l.cacheSavings,
		)
		l.dailySpent = 0
		l.requestCount = 0
		l.cacheSavings = 0
		l.alertLevel = AlertNone
		l.degraded = false
		l.lastReset = now

		metrics.BudgetSpent.WithLabelValues("daily").Set(0)
	}
}

// evaluateAlerts 告警评估；critical 进入降级模式。调用方必须持锁
func (l *BudgetLedger) evaluateAlerts(ctx context.Context) {
	level := AlertNone
	if l.cfg.DailyLimit > 0 {
		ratio := l.dailySpent / l.cfg.DailyLimit
		switch {
		case ratio >= criticalRatio:
			level = AlertCritical
		case ratio >= warningRatio:
			level = AlertWarning
		}
	}
	if l.cfg.MonthlyLimit > 0 && level != AlertCritical {
		ratio := l.monthlySpent / l.cfg.MonthlyLimit
		switch {
		case ratio >= criticalRatio:
			level = AlertCritical
		case ratio >= warningRatio && level == AlertNone:
			level = AlertWarning
		}
	}

	if level != l.alertLevel && level != AlertNone {
		logger.Warn(ctx, "budget alert",
			"level", string(level),
			"daily_spent", l.dailySpent,
			"monthly_spent", l.monthlySpent,
		)
		metrics.BudgetAlertsTotal.WithLabelValues(string(level)).Inc()
	}
	l.alertLevel = level
	if level == AlertCritical {
		l.degraded = true
	}
}
