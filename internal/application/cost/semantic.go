package cost

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	appcache "namepilot-ai-api/internal/application/cache"
	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/internal/domain/entity"
	"namepilot-ai-api/internal/infrastructure/persistence/milvus"
	"namepilot-ai-api/internal/workflow/stage"
	"namepilot-ai-api/pkg/logger"
	"namepilot-ai-api/pkg/metrics"
)

// 缓存命中类型
const (
	HitExact    = "exact"
	HitSemantic = "semantic"
)

// 降级模式下放宽相似度门槛的系数
const degradedThresholdFactor = 0.94

// CacheHit 语义缓存命中结果
type CacheHit struct {
	Type       string
	Result     *entity.GenerationResult
	Similarity float64
}

// VectorSearcher 语义缓存对向量检索层的最小依赖
type VectorSearcher interface {
	SearchSimilar(ctx context.Context, params *milvus.SearchParams) ([]*milvus.SearchResult, error)
	Upsert(ctx context.Context, emb *milvus.RequestEmbedding) error
}

// Embedder 请求文本向量化
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// SemanticCache 两段式缓存命中：内容哈希精确匹配优先，
// 未命中再走请求向量的近邻检索。
type SemanticCache struct {
	cfg      *config.Config
	tiered   *appcache.TieredCache
	repo     VectorSearcher
	embedder Embedder
	ledger   *BudgetLedger
}

// NewSemanticCache 创建语义缓存
func NewSemanticCache(cfg *config.Config, tiered *appcache.TieredCache, repo VectorSearcher, embedder Embedder, ledger *BudgetLedger) *SemanticCache {
	return &SemanticCache{
		cfg:      cfg,
		tiered:   tiered,
		repo:     repo,
		embedder: embedder,
		ledger:   ledger,
	}
}

// Check 查询缓存。返回 nil 表示未命中；
// 语义命中的结果会先适配到请求数量再返回。
func (s *SemanticCache) Check(ctx context.Context, req *entity.GenerationRequest) *CacheHit {
	// 精确匹配：内容哈希 + 数量
	if payload, ok := s.tiered.Get(ctx, req.CacheKey()); ok {
		var result entity.GenerationResult
		if err := json.Unmarshal(payload, &result); err == nil {
			metrics.SemanticCacheTotal.WithLabelValues(HitExact).Inc()
			return &CacheHit{Type: HitExact, Result: &result, Similarity: 1.0}
		}
		logger.Warn(ctx, "corrupt cache payload dropped", "key", req.CacheKey())
		s.tiered.Delete(ctx, req.CacheKey())
	}

	if !s.cfg.Cache.Semantic.Enabled || s.repo == nil || s.embedder == nil {
		metrics.SemanticCacheTotal.WithLabelValues("miss").Inc()
		return nil
	}

	hit := s.checkSemantic(ctx, req)
	if hit == nil {
		metrics.SemanticCacheTotal.WithLabelValues("miss").Inc()
	}
	return hit
}

func (s *SemanticCache) checkSemantic(ctx context.Context, req *entity.GenerationRequest) *CacheHit {
	vector, err := s.embedder.EmbedOne(ctx, req.EmbeddingText())
	if err != nil {
		metrics.SemanticCacheTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "request embedding failed, skipping semantic lookup", "error", err.Error())
		return nil
	}

	threshold := s.cfg.Cache.Semantic.Threshold
	if threshold <= 0 {
		threshold = 0.85
	}
	// 降级模式提高缓存命中积极性
	if s.ledger != nil && s.ledger.Degraded() {
		threshold *= degradedThresholdFactor
	}

	results, err := s.repo.SearchSimilar(ctx, &milvus.SearchParams{
		QueryVector: vector,
		Industry:    string(req.Industry),
		Style:       string(req.Style),
		Threshold:   float32(threshold),
		TopK:        s.cfg.Cache.Semantic.TopK,
	})
	if err != nil {
		metrics.SemanticCacheTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "semantic search failed", "error", err.Error())
		return nil
	}

	for _, match := range results {
		payload, ok := s.tiered.Get(ctx, match.CacheKey)
		if !ok {
			// 向量库里的条目已从缓存层过期，跳过
			continue
		}
		var result entity.GenerationResult
		if err := json.Unmarshal(payload, &result); err != nil {
			continue
		}
		adapted := adaptToCount(&result, req)
		metrics.SemanticCacheTotal.WithLabelValues(HitSemantic).Inc()
		logger.Info(ctx, "semantic cache hit",
			"similarity", match.Score,
			"source_hash", match.RequestHash,
		)
		return &CacheHit{Type: HitSemantic, Result: adapted, Similarity: float64(match.Score)}
	}
	return nil
}

// IndexRequest 登记请求向量供后续近邻检索。
// 结果本体由分层缓存在加载路径上写入，这里只维护向量索引。
func (s *SemanticCache) IndexRequest(ctx context.Context, req *entity.GenerationRequest) {
	if !s.cfg.Cache.Semantic.Enabled || s.repo == nil || s.embedder == nil {
		return
	}
	vector, err := s.embedder.EmbedOne(ctx, req.EmbeddingText())
	if err != nil {
		logger.Warn(ctx, "embedding for cache store failed", "error", err.Error())
		return
	}
	emb := &milvus.RequestEmbedding{
		ID:          uuid.NewString(),
		Vector:      vector,
		RequestHash: req.Hash(),
		Industry:    string(req.Industry),
		Style:       string(req.Style),
		CacheKey:    req.CacheKey(),
		CreatedAt:   time.Now().Unix(),
	}
	if err := s.repo.Upsert(ctx, emb); err != nil {
		logger.Warn(ctx, "failed to upsert request embedding", "error", err.Error())
	}
}

// adaptToCount 将近邻命中的结果适配到请求数量：
// 多则截断，少则用启发式候选补足（补足项排在原结果之后）。
func adaptToCount(src *entity.GenerationResult, req *entity.GenerationRequest) *entity.GenerationResult {
	adapted := *src
	names := make([]entity.OptimizedCandidate, len(src.Names))
	copy(names, src.Names)

	if len(names) > req.Count {
		names = names[:req.Count]
	} else if len(names) < req.Count {
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			seen[n.Name] = true
		}
		floor := lowestScore(names)
		extras := stage.HeuristicCandidates(req, req.Count*2)
		for _, e := range extras {
			if len(names) >= req.Count {
				break
			}
			if seen[e.Name] {
				continue
			}
			seen[e.Name] = true
			score := floor - 0.1
			if score < 0 {
				score = 0
			}
			names = append(names, entity.OptimizedCandidate{
				Name:       e.Name,
				FinalScore: score,
			})
		}
	}
	adapted.Names = names
	return &adapted
}

func lowestScore(names []entity.OptimizedCandidate) float64 {
	if len(names) == 0 {
		return 5.0
	}
	low := names[0].FinalScore
	for _, n := range names {
		if n.FinalScore < low {
			low = n.FinalScore
		}
	}
	return low
}
