// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"time"

	"namepilot-ai-api/internal/config"
	redisinfra "namepilot-ai-api/internal/infrastructure/persistence/redis"
	"namepilot-ai-api/internal/interfaces/http/dto"

	"github.com/gin-gonic/gin"
)

// RateLimit 全局限流中间件（每秒滑动窗口，按客户端 IP 维度）
func RateLimit(cfg config.RateLimitConfig, limiter *redisinfra.RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}

	limit := cfg.RequestsPerSecond
	if limit <= 0 {
		limit = 100
	}

	return func(c *gin.Context) {
		key := redisinfra.BuildRateLimitKey(c.ClientIP(), "global")

		allowed, err := limiter.Allow(c.Request.Context(), key, limit, time.Second)
		if err != nil {
			// 限流器故障时放行，避免影响业务
			c.Next()
			return
		}

		if !allowed {
			c.Abort()
			dto.Error(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		c.Next()
	}
}

// RateLimitWindow 按端点维度的滑动窗口限流
// 流式和高级功能端点使用独立于全局限流的配额
func RateLimitWindow(scope string, cfg config.RateLimitWindowConfig, limiter *redisinfra.RateLimiter) gin.HandlerFunc {
	if cfg.Limit <= 0 || limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}

	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return func(c *gin.Context) {
		key := redisinfra.BuildRateLimitKey(c.ClientIP(), scope)

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.Limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", "1")
			c.Abort()
			dto.Error(c, http.StatusTooManyRequests, "rate limit exceeded for "+scope)
			return
		}

		c.Next()
	}
}
