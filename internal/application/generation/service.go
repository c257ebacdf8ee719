// Package generation 编排一次命名请求的完整流水线：
// 模型选择 → 缓存命中 → 工作流执行 → 成本记账 → 缓存写回
package generation

import (
	"context"
	"encoding/json"
	"time"

	appcache "namepilot-ai-api/internal/application/cache"
	"namepilot-ai-api/internal/application/cost"
	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/internal/domain/entity"
	"namepilot-ai-api/internal/infrastructure/llm"
	"namepilot-ai-api/internal/workflow"
	"namepilot-ai-api/pkg/logger"
	"namepilot-ai-api/pkg/metrics"
)

// Metadata 响应元数据
type Metadata struct {
	Workflow   string           `json:"workflow"`
	Cost       entity.CostInfo  `json:"cost"`
	Cache      entity.CacheInfo `json:"cache"`
	StageNames []string         `json:"stages,omitempty"`
	Elapsed    string           `json:"elapsed,omitempty"`
}

// Response 一次生成的完整响应
type Response struct {
	Names    []entity.OptimizedCandidate `json:"names"`
	Metadata Metadata                    `json:"metadata"`
}

// 预热请求快照的键前缀与命名空间
const (
	warmRequestKeyPrefix = "genreq:"
	NamespaceGeneration  = "gen"
)

// Service 命名生成应用服务
type Service struct {
	cfg          *config.Config
	optimizer    *cost.Optimizer
	semantic     *cost.SemanticCache
	orchestrator *workflow.Orchestrator
	factory      *llm.EinoFactory
	tiered       *appcache.TieredCache
}

// NewService 创建生成服务
func NewService(
	cfg *config.Config,
	optimizer *cost.Optimizer,
	semantic *cost.SemanticCache,
	orchestrator *workflow.Orchestrator,
	factory *llm.EinoFactory,
	tiered *appcache.TieredCache,
) *Service {
	return &Service{
		cfg:          cfg,
		optimizer:    optimizer,
		semantic:     semantic,
		orchestrator: orchestrator,
		factory:      factory,
		tiered:       tiered,
	}
}

// Generate 同步生成：请求必须已通过校验、归一化与准入
func (s *Service) Generate(ctx context.Context, req *entity.GenerationRequest) (*Response, error) {
	start := time.Now()
	selection := s.optimizer.SelectModel(ctx, req)

	if hit := s.semantic.Check(ctx, req); hit != nil {
		s.optimizer.TrackSavings(ctx, selection.EstimatedCost)
		metrics.GenerationTotal.WithLabelValues(req.Workflow, "cache_hit").Inc()
		logger.Info(ctx, "generation served from cache",
			"hit_type", hit.Type,
			"similarity", hit.Similarity,
			"count", len(hit.Result.Names),
		)
		return &Response{
			Names: hit.Result.Names,
			Metadata: Metadata{
				Workflow: req.Workflow,
				Cost: entity.CostInfo{
					Tier:          hit.Result.Tier,
					EstimatedCost: selection.EstimatedCost,
					ActualCost:    0,
					Rationale:     selection.Rationale,
				},
				Cache: entity.CacheInfo{
					Hit:        true,
					HitType:    hit.Type,
					Similarity: hit.Similarity,
					Savings:    selection.EstimatedCost,
				},
				Elapsed: time.Since(start).String(),
			},
		}, nil
	}

	return s.runPipeline(ctx, req, &selection, nil, start)
}

// runPipeline 经分层缓存的单飞加载执行工作流：
// 相同缓存键的并发未命中只会触发一次编排，其余请求复用同一份载荷。
func (s *Service) runPipeline(ctx context.Context, req *entity.GenerationRequest, selection *entity.ModelSelection, progress workflow.ProgressFunc, start time.Time) (*Response, error) {
	var result *workflow.Result
	var generated *entity.GenerationResult

	payload, err := s.tiered.GetOrLoad(ctx, req.CacheKey(), 0, func() (any, error) {
		run, runErr := s.orchestrator.Run(ctx, req, selection.Tier, progress)
		if runErr != nil {
			return nil, runErr
		}
		result = run
		generated = &entity.GenerationResult{
			RequestHash: req.Hash(),
			Names:       run.Candidates,
			Workflow:    req.Workflow,
			Tier:        selection.Tier,
			Cost:        s.optimizer.ActualCost(selection.Tier, run.TokensUsed/2, run.TokensUsed/2),
			CreatedAt:   time.Now(),
		}
		return generated, nil
	})
	if err != nil {
		metrics.GenerationTotal.WithLabelValues(req.Workflow, "error").Inc()
		return nil, err
	}

	if result == nil {
		// 载荷来自并发请求的共享航班或缓存竞态，按命中处理
		var shared entity.GenerationResult
		if uerr := json.Unmarshal(payload, &shared); uerr != nil {
			metrics.GenerationTotal.WithLabelValues(req.Workflow, "error").Inc()
			return nil, uerr
		}
		s.optimizer.TrackSavings(ctx, selection.EstimatedCost)
		metrics.GenerationTotal.WithLabelValues(req.Workflow, "cache_hit").Inc()
		return &Response{
			Names: shared.Names,
			Metadata: Metadata{
				Workflow: req.Workflow,
				Cost: entity.CostInfo{
					Tier:          shared.Tier,
					EstimatedCost: selection.EstimatedCost,
					ActualCost:    0,
					Rationale:     selection.Rationale,
				},
				Cache: entity.CacheInfo{
					Hit:        true,
					HitType:    cost.HitExact,
					Similarity: 1.0,
					Savings:    selection.EstimatedCost,
				},
				Elapsed: time.Since(start).String(),
			},
		}, nil
	}

	s.indexResult(ctx, req)
	return s.buildResponse(ctx, req, selection, result, generated.Cost, start), nil
}

// buildResponse 组装首次生成的响应元数据
func (s *Service) buildResponse(ctx context.Context, req *entity.GenerationRequest, selection *entity.ModelSelection, result *workflow.Result, actualCost float64, start time.Time) *Response {
	metrics.GenerationTotal.WithLabelValues(req.Workflow, "success").Inc()
	metrics.GenerationDuration.WithLabelValues(req.Workflow).Observe(time.Since(start).Seconds())
	logger.Info(ctx, "generation completed",
		"count", len(result.Candidates),
		"tier", string(selection.Tier),
		"stages", result.Execution.StageNames(),
		"elapsed", result.Execution.TotalElapsed.String(),
	)

	return &Response{
		Names: result.Candidates,
		Metadata: Metadata{
			Workflow: req.Workflow,
			Cost: entity.CostInfo{
				Tier:          selection.Tier,
				Model:         s.factory.ModelName(selection.Tier),
				EstimatedCost: selection.EstimatedCost,
				ActualCost:    actualCost,
				Rationale:     selection.Rationale,
			},
			Cache:      entity.CacheInfo{Hit: false},
			StageNames: result.Execution.StageNames(),
			Elapsed:    result.Execution.TotalElapsed.String(),
		},
	}
}

// indexResult 登记请求向量并留存请求快照供预热重建；
// 结果本体已由加载路径写入缓存层。
func (s *Service) indexResult(ctx context.Context, req *entity.GenerationRequest) {
	s.semantic.IndexRequest(ctx, req)

	if snapshot, err := json.Marshal(req); err == nil {
		s.tiered.Set(ctx, warmRequestKeyPrefix+req.CacheKey(), snapshot, s.cfg.Cache.Redis.TTL)
	}
}

// RegenerateForWarming 预热 worker 的重建例程：
// 从留存的请求快照重放一次生成，产出缓存载荷。
func (s *Service) RegenerateForWarming(ctx context.Context, key string) ([]byte, time.Duration, error) {
	snapshot, ok := s.tiered.Get(ctx, warmRequestKeyPrefix+key)
	if !ok {
		return nil, 0, nil
	}
	var req entity.GenerationRequest
	if err := json.Unmarshal(snapshot, &req); err != nil {
		return nil, 0, err
	}
	req.Normalize()

	selection := s.optimizer.SelectModel(ctx, &req)
	result, err := s.orchestrator.Run(ctx, &req, selection.Tier, nil)
	if err != nil {
		return nil, 0, err
	}

	payload, err := json.Marshal(&entity.GenerationResult{
		RequestHash: req.Hash(),
		Names:       result.Candidates,
		Workflow:    req.Workflow,
		Tier:        selection.Tier,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return nil, 0, err
	}
	return payload, s.cfg.Cache.Redis.TTL, nil
}

// CostStatus 成本优化状态端点载荷
type CostStatus struct {
	Ledger cost.LedgerSnapshot `json:"ledger"`
	Cache  appcache.Stats      `json:"cache"`
}

// CostStatus 返回账本与缓存健康快照
func (s *Service) CostStatus() CostStatus {
	stats := s.tiered.Stats()
	return CostStatus{
		Ledger: s.optimizer.Ledger().Snapshot(),
		Cache:  stats,
	}
}

// AgentStatus 工作流状态端点载荷
type AgentStatus struct {
	Templates  []string                    `json:"templates"`
	Stages     []workflow.StageHealth      `json:"stages"`
	Executions []*entity.WorkflowExecution `json:"recent_executions"`
}

// AgentStatus 返回模板、阶段健康与最近执行日志
func (s *Service) AgentStatus() AgentStatus {
	return AgentStatus{
		Templates:  s.orchestrator.Templates(),
		Stages:     s.orchestrator.Health(),
		Executions: s.orchestrator.RecentExecutions(),
	}
}
