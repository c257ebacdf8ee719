package wire

import (
	"context"

	appcache "namepilot-ai-api/internal/application/cache"
	"namepilot-ai-api/internal/application/cost"
	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/internal/infrastructure/embedding"
	"namepilot-ai-api/internal/infrastructure/persistence/milvus"
	"namepilot-ai-api/internal/infrastructure/persistence/redis"
	"namepilot-ai-api/pkg/logger"
)

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusClient 提供可选的 Milvus 客户端
// 不可达时返回 nil，语义缓存降级为纯精确匹配，不阻塞启动
func ProvideMilvusClient(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if !cfg.Cache.Semantic.Enabled {
		return nil, func() {}, nil
	}

	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus unavailable, semantic cache disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideVectorRepository 提供向量仓库并确保集合就绪。
// 返回接口类型，缺席时必须是无类型 nil，否则语义缓存的空值判断会失效。
func ProvideVectorRepository(ctx context.Context, client *milvus.Client) cost.VectorSearcher {
	if client == nil {
		return nil
	}

	repo := milvus.NewRepository(client)
	if err := repo.EnsureCollection(ctx); err != nil {
		logger.Warn(ctx, "milvus collection not ready, semantic cache disabled", "error", err.Error())
		return nil
	}
	return repo
}

// ProvideEmbedder 提供可选的 Embedding 客户端
func ProvideEmbedder(cfg *config.Config) cost.Embedder {
	if cfg.Embedding.Endpoint == "" {
		return nil
	}
	return embedding.NewClient(&cfg.Embedding)
}

// ProvideBudgetLedger 提供预算账本
func ProvideBudgetLedger(cfg *config.Config) *cost.BudgetLedger {
	return cost.NewBudgetLedger(&cfg.Budget)
}

// ProvideLocalCache 提供本地缓存层
func ProvideLocalCache(cfg *config.Config) *appcache.LocalCache {
	return appcache.NewLocalCache(&cfg.Cache.Local)
}

// ProvideTieredCache 提供两级缓存
func ProvideTieredCache(cfg *config.Config, local *appcache.LocalCache, remote *redis.Cache) *appcache.TieredCache {
	return appcache.NewTieredCache(&cfg.Cache, local, remote)
}

// ProvideWarmer 提供缓存预热器
func ProvideWarmer(cfg *config.Config, tiered *appcache.TieredCache) *appcache.Warmer {
	return appcache.NewWarmer(&cfg.Cache.Warming, tiered)
}
