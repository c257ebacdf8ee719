// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"namepilot-ai-api/internal/application/admission"
	appcache "namepilot-ai-api/internal/application/cache"
	"namepilot-ai-api/internal/application/cost"
	"namepilot-ai-api/internal/application/generation"
	einoobs "namepilot-ai-api/internal/observability/eino"
	"namepilot-ai-api/internal/interfaces/http/router"
)

// App 应用依赖容器
type App struct {
	Router     *router.Router
	Admission  *admission.Controller
	LocalCache *appcache.LocalCache
	Warmer     *appcache.Warmer
}

// NewApp 组装应用并完成跨组件挂接
func NewApp(
	r *router.Router,
	admissionCtrl *admission.Controller,
	local *appcache.LocalCache,
	warmer *appcache.Warmer,
	service *generation.Service,
	optimizer *cost.Optimizer,
) *App {
	// LLM 用量从 Eino 回调直接记账
	einoobs.Init(optimizer)

	// 缓存预热通过重放请求快照再生
	warmer.Register(generation.NamespaceGeneration, service.RegenerateForWarming)

	return &App{
		Router:     r,
		Admission:  admissionCtrl,
		LocalCache: local,
		Warmer:     warmer,
	}
}

// Start 启动后台循环：负载采样、熔断评估、队列调度、缓存清理与预热
func (a *App) Start(ctx context.Context) {
	go a.Admission.Start(ctx)
	go a.LocalCache.Run(ctx)
	go a.Warmer.Run(ctx)
}
