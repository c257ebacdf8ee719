//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"namepilot-ai-api/internal/application/admission"
	"namepilot-ai-api/internal/application/cost"
	"namepilot-ai-api/internal/application/generation"
	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/internal/infrastructure/llm"
	"namepilot-ai-api/internal/infrastructure/persistence/redis"
	"namepilot-ai-api/internal/interfaces/http/handler"
	"namepilot-ai-api/internal/interfaces/http/router"
	"namepilot-ai-api/internal/workflow"
	workflowport "namepilot-ai-api/internal/workflow/port"
)

// InitializeApp 初始化整个应用
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RedisSet,
		VectorSet,
		CacheSet,
		CostSet,
		WorkflowSet,
		AdmissionSet,
		ServiceSet,
		RouterSet,
		NewApp,
	)
	return nil, nil, nil
}

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
)

// VectorSet Milvus 与 Embedding 提供者集合（均可选）
var VectorSet = wire.NewSet(
	ProvideMilvusClient,
	ProvideVectorRepository,
	ProvideEmbedder,
)

// CacheSet 缓存提供者集合
var CacheSet = wire.NewSet(
	ProvideLocalCache,
	ProvideTieredCache,
	ProvideWarmer,
)

// CostSet 成本控制提供者集合
var CostSet = wire.NewSet(
	ProvideBudgetLedger,
	cost.NewOptimizer,
	cost.NewSemanticCache,
)

// WorkflowSet 工作流提供者集合
var WorkflowSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(workflowport.ChatModelFactory), new(*llm.EinoFactory)),
	workflow.NewOrchestrator,
)

// AdmissionSet 准入控制提供者集合
var AdmissionSet = wire.NewSet(
	admission.NewController,
)

// ServiceSet 应用服务提供者集合
var ServiceSet = wire.NewSet(
	generation.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewGenerateHandler,
	handler.NewStreamHandler,
	handler.NewStatusHandler,
	handler.NewHealthHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
