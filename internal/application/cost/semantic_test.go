package cost

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcache "namepilot-ai-api/internal/application/cache"
	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/internal/domain/entity"
	"namepilot-ai-api/internal/infrastructure/persistence/milvus"
	redisinfra "namepilot-ai-api/internal/infrastructure/persistence/redis"
)

func candidates(scores ...float64) []entity.OptimizedCandidate {
	out := make([]entity.OptimizedCandidate, len(scores))
	for i, s := range scores {
		out[i] = entity.OptimizedCandidate{
			Name:       string(rune('A' + i)),
			FinalScore: s,
		}
	}
	return out
}

func TestAdaptToCountTruncates(t *testing.T) {
	src := &entity.GenerationResult{Names: candidates(9, 8, 7, 6, 5)}
	req := &entity.GenerationRequest{
		Industry: entity.IndustryTech,
		Style:    entity.StyleModern,
		Keywords: []string{"sync"},
		Count:    3,
	}

	got := adaptToCount(src, req)
	require.Len(t, got.Names, 3)
	assert.Equal(t, "A", got.Names[0].Name)
	assert.Len(t, src.Names, 5, "source untouched")
}

func TestAdaptToCountTopsUpWithHeuristics(t *testing.T) {
	src := &entity.GenerationResult{Names: candidates(9, 6.5)}
	req := &entity.GenerationRequest{
		Industry: entity.IndustryTech,
		Style:    entity.StyleModern,
		Keywords: []string{"sync", "flow"},
		Count:    10,
	}

	got := adaptToCount(src, req)
	require.Len(t, got.Names, 10)

	// 原结果保持在前，补足项分数压在原最低分之下
	assert.Equal(t, "A", got.Names[0].Name)
	assert.Equal(t, "B", got.Names[1].Name)
	for _, n := range got.Names[2:] {
		assert.InDelta(t, 6.4, n.FinalScore, 1e-9)
	}

	seen := make(map[string]bool)
	for _, n := range got.Names {
		assert.False(t, seen[n.Name], "duplicate name %s", n.Name)
		seen[n.Name] = true
	}
}

func TestAdaptToCountExactFit(t *testing.T) {
	src := &entity.GenerationResult{Names: candidates(9, 8)}
	req := &entity.GenerationRequest{
		Industry: entity.IndustryTech,
		Style:    entity.StyleModern,
		Keywords: []string{"sync"},
		Count:    2,
	}

	got := adaptToCount(src, req)
	assert.Equal(t, src.Names, got.Names)
}

type fakeSearcher struct {
	results []*milvus.SearchResult
	params  *milvus.SearchParams
	upserts []*milvus.RequestEmbedding
}

func (f *fakeSearcher) SearchSimilar(_ context.Context, params *milvus.SearchParams) ([]*milvus.SearchResult, error) {
	f.params = params
	return f.results, nil
}

func (f *fakeSearcher) Upsert(_ context.Context, emb *milvus.RequestEmbedding) error {
	f.upserts = append(f.upserts, emb)
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedOne(context.Context, string) ([]float32, error) {
	return []float32{0.2, 0.8}, nil
}

func newTestSemanticCache(t *testing.T, repo VectorSearcher, embedder Embedder) *SemanticCache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Cache: config.CacheConfig{
			Redis:    config.RedisConfig{TTL: time.Hour},
			Local:    config.LocalCacheConfig{MaxEntries: 100, TTL: time.Minute},
			Semantic: config.SemanticCacheConfig{Enabled: repo != nil, Threshold: 0.85, TopK: 5},
		},
	}
	client := redisinfra.NewClientFromRedis(rdb, &cfg.Cache.Redis)
	local := appcache.NewLocalCache(&cfg.Cache.Local)
	tiered := appcache.NewTieredCache(&cfg.Cache, local, redisinfra.NewCache(client))

	return NewSemanticCache(cfg, tiered, repo, embedder, NewBudgetLedger(&config.BudgetConfig{DailyLimit: 50}))
}

func TestSemanticCacheExactMatchRoundTrip(t *testing.T) {
	ctx := context.Background()
	// 向量检索未配置：只走精确匹配路径
	sc := newTestSemanticCache(t, nil, nil)

	req := &entity.GenerationRequest{
		Industry: entity.IndustryFintech,
		Style:    entity.StyleModern,
		Keywords: []string{"vault"},
		Count:    2,
	}
	require.Nil(t, sc.Check(ctx, req), "cold cache misses")

	result := &entity.GenerationResult{Names: candidates(9, 8)}
	payload, err := json.Marshal(result)
	require.NoError(t, err)
	sc.tiered.Set(ctx, req.CacheKey(), payload, 0)

	hit := sc.Check(ctx, req)
	require.NotNil(t, hit)
	assert.Equal(t, HitExact, hit.Type)
	assert.Equal(t, 1.0, hit.Similarity)
	require.Len(t, hit.Result.Names, 2)
	assert.Equal(t, result.Names[0].Name, hit.Result.Names[0].Name)

	// 相同内容、不同数量是另一个精确键
	other := *req
	other.Count = 3
	assert.Nil(t, sc.Check(ctx, &other))
}

func TestSemanticCacheNearestNeighborAdaptsCount(t *testing.T) {
	ctx := context.Background()
	searcher := &fakeSearcher{}
	sc := newTestSemanticCache(t, searcher, fakeEmbedder{})

	// 源请求产出 20 个候选，缓存于其精确键下
	source := &entity.GenerationRequest{
		Industry: entity.IndustryFintech,
		Style:    entity.StyleModern,
		Keywords: []string{"vault"},
		Count:    20,
	}
	names := make([]entity.OptimizedCandidate, 20)
	for i := range names {
		names[i] = entity.OptimizedCandidate{
			Name:       fmt.Sprintf("Source%02d", i),
			FinalScore: 9 - float64(i)*0.1,
		}
	}
	payload, err := json.Marshal(&entity.GenerationResult{
		RequestHash: source.Hash(),
		Names:       names,
		Tier:        entity.TierStandard,
	})
	require.NoError(t, err)
	sc.tiered.Set(ctx, source.CacheKey(), payload, 0)
	searcher.results = []*milvus.SearchResult{{
		ID:          "src",
		Score:       0.91,
		RequestHash: source.Hash(),
		CacheKey:    source.CacheKey(),
	}}

	// 相近请求要 30 个名字：近邻命中后补足到请求数量
	req := &entity.GenerationRequest{
		Industry: entity.IndustryFintech,
		Style:    entity.StyleModern,
		Keywords: []string{"ledger"},
		Count:    30,
	}
	hit := sc.Check(ctx, req)
	require.NotNil(t, hit)
	assert.Equal(t, HitSemantic, hit.Type)
	assert.InDelta(t, 0.91, hit.Similarity, 1e-6)
	require.Len(t, hit.Result.Names, 30)

	// 原 20 个候选排在前，补足项分数压在原最低分之下
	assert.Equal(t, "Source00", hit.Result.Names[0].Name)
	assert.Equal(t, "Source19", hit.Result.Names[19].Name)
	for _, n := range hit.Result.Names[20:] {
		assert.InDelta(t, 7.0, n.FinalScore, 1e-9)
	}

	require.NotNil(t, searcher.params)
	assert.Equal(t, string(entity.IndustryFintech), searcher.params.Industry)
	assert.Equal(t, string(entity.StyleModern), searcher.params.Style)
	assert.Equal(t, 5, searcher.params.TopK)
	assert.InDelta(t, 0.85, float64(searcher.params.Threshold), 1e-6)
}

func TestSemanticCacheIndexRequest(t *testing.T) {
	ctx := context.Background()
	searcher := &fakeSearcher{}
	sc := newTestSemanticCache(t, searcher, fakeEmbedder{})

	req := &entity.GenerationRequest{
		Industry: entity.IndustryFintech,
		Style:    entity.StyleModern,
		Keywords: []string{"vault"},
		Count:    10,
	}
	sc.IndexRequest(ctx, req)

	require.Len(t, searcher.upserts, 1)
	emb := searcher.upserts[0]
	assert.Equal(t, req.Hash(), emb.RequestHash)
	assert.Equal(t, req.CacheKey(), emb.CacheKey)
	assert.Equal(t, string(entity.IndustryFintech), emb.Industry)
	assert.Equal(t, []float32{0.2, 0.8}, emb.Vector)
	assert.NotEmpty(t, emb.ID)
}

func TestLowestScore(t *testing.T) {
	assert.Equal(t, 5.0, lowestScore(nil))
	assert.Equal(t, 6.5, lowestScore(candidates(9, 6.5, 8)))
	assert.Equal(t, 0.0, lowestScore(candidates(0)))
}
