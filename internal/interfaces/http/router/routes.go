// Package router 提供 HTTP 路由配置
package router

import (
	"namepilot-ai-api/internal/config"
	redisinfra "namepilot-ai-api/internal/infrastructure/persistence/redis"
	"namepilot-ai-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	cfg *config.Config,
	handlers Handlers,
	limiter *redisinfra.RateLimiter,
) {
	// 命名生成
	names := v1.Group("/names")
	{
		names.POST("/generate",
			middleware.RateLimitWindow("enhanced", cfg.Security.RateLimit.Enhanced, limiter),
			handlers.Generate.Generate,
		)
		names.POST("/stream",
			middleware.RateLimitWindow("streaming", cfg.Security.RateLimit.Streaming, limiter),
			handlers.Stream.Stream,
		)
	}

	// 运行状态
	status := v1.Group("/status")
	{
		status.GET("/cost-optimization", handlers.Status.CostOptimization)
		status.GET("/agents", handlers.Status.Agents)
	}
}
