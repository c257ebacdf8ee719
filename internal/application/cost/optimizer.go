package cost

import (
	"context"
	"fmt"
	"math"

	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/internal/domain/entity"
	"namepilot-ai-api/pkg/logger"
)

// 估算 token 的经验常数
const (
	promptBaseTokens   = 350 // 系统+用户提示词的固定开销
	tokensPerKeyword   = 25
	tokensPerCandidate = 18 // 名称 + 理由 + 评分的序列化开销
)

// Optimizer 成本优化器：复杂度评分 → 档位选择 → 成本估算与追踪
type Optimizer struct {
	cfg    *config.Config
	ledger *BudgetLedger
}

// NewOptimizer 创建成本优化器
func NewOptimizer(cfg *config.Config, ledger *BudgetLedger) *Optimizer {
	return &Optimizer{cfg: cfg, ledger: ledger}
}

// Ledger 暴露预算账本（状态端点与缓存命中记账）
func (o *Optimizer) Ledger() *BudgetLedger {
	return o.ledger
}

// SelectModel 按复杂度与剩余预算选择档位。
// 规则：降级模式或剩余预算低于硬底线 → 一律 economy；
// 复杂度 ≥8 或 premium → premium；≥6 且当日剩余超过标准档底线 → standard；
// 其余 economy。选择总是携带可读的理由。
func (o *Optimizer) SelectModel(ctx context.Context, req *entity.GenerationRequest) entity.ModelSelection {
	complexity := ScoreComplexity(req)
	remaining := o.ledger.DailyRemaining()
	budget := &o.cfg.Budget

	var tier entity.ModelTier
	var rationale string

	switch {
	case o.ledger.Degraded():
		tier = entity.TierEconomy
		rationale = "budget critical alert active, tier pinned to economy until next reset"
	case remaining <= budget.EconomyHardFloor:
		tier = entity.TierEconomy
		rationale = fmt.Sprintf("daily remaining budget %.2f below hard floor %.2f, forced economy", remaining, budget.EconomyHardFloor)
	case complexity.Score >= entity.PremiumTierThreshold || req.Premium:
		tier = entity.TierPremium
		rationale = fmt.Sprintf("high complexity %.1f or premium request, top tier selected", complexity.Score)
	case complexity.Score >= entity.StandardTierThreshold:
		if remaining > budget.StandardTierFloor {
			tier = entity.TierStandard
			rationale = fmt.Sprintf("medium complexity %.1f with sufficient budget, standard tier", complexity.Score)
		} else {
			tier = entity.TierEconomy
			rationale = fmt.Sprintf("medium complexity %.1f but daily remaining %.2f under floor %.2f, economy tier", complexity.Score, remaining, budget.StandardTierFloor)
		}
	default:
		tier = entity.TierEconomy
		rationale = fmt.Sprintf("low complexity %.1f, economy tier", complexity.Score)
	}

	estimated := o.EstimateCost(req, tier)
	// 单请求成本上限：超限逐级降档
	for budget.PerRequestCeiling > 0 && estimated > budget.PerRequestCeiling && tier != entity.TierEconomy {
		if tier == entity.TierPremium {
			tier = entity.TierStandard
		} else {
			tier = entity.TierEconomy
		}
		rationale += fmt.Sprintf("; downgraded to %s by per-request cost ceiling %.2f", tier, budget.PerRequestCeiling)
		estimated = o.EstimateCost(req, tier)
	}

	logger.Debug(ctx, "model selected",
		"tier", string(tier),
		"complexity", complexity.Score,
		"estimated_cost", estimated,
	)

	return entity.ModelSelection{
		Tier:          tier,
		EstimatedCost: estimated,
		Rationale:     rationale,
		Complexity:    complexity,
	}
}

// EstimateCost 估算一次生成的花费：
// token 量与关键词数、请求数量线性相关，外加对数扩张因子，
// 再乘以档位单价。
func (o *Optimizer) EstimateCost(req *entity.GenerationRequest, tier entity.ModelTier) float64 {
	tierCfg, ok := o.cfg.LLM.Tiers[string(tier)]
	if !ok {
		return 0
	}

	inputTokens := float64(promptBaseTokens + len(req.Keywords)*tokensPerKeyword)
	scale := 1 + math.Log2(float64(req.Count))/10
	outputTokens := float64(req.Count) * tokensPerCandidate * scale

	// 多数模板包含分析与校验两次额外调用，粗略按 3 次计
	stageCalls := 3.0
	if req.Workflow == "fast" {
		stageCalls = 2.0
	}

	return stageCalls * (inputTokens/1000*tierCfg.InputCostPer1KTokens +
		outputTokens/1000*tierCfg.OutputCostPer1KToken)
}

// TrackCost 记录实际花费到账本并触发告警评估
func (o *Optimizer) TrackCost(ctx context.Context, actual float64, tier entity.ModelTier) {
	o.ledger.Add(ctx, actual)
	logger.Debug(ctx, "cost tracked",
		"amount", actual,
		"tier", string(tier),
	)
}

// TrackSavings 记录缓存命中省下的成本
func (o *Optimizer) TrackSavings(ctx context.Context, amount float64) {
	o.ledger.AddSavings(ctx, amount)
}

// RecordUsage 供 LLM 回调回灌实际用量：按档位单价折算后入账
func (o *Optimizer) RecordUsage(ctx context.Context, tier string, promptTokens, completionTokens int) {
	t := entity.ModelTier(tier)
	o.TrackCost(ctx, o.ActualCost(t, promptTokens, completionTokens), t)
}

// ActualCost 按实际 token 用量计费
func (o *Optimizer) ActualCost(tier entity.ModelTier, promptTokens, completionTokens int) float64 {
	tierCfg, ok := o.cfg.LLM.Tiers[string(tier)]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1000*tierCfg.InputCostPer1KTokens +
		float64(completionTokens)/1000*tierCfg.OutputCostPer1KToken
}
