package generation

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcache "namepilot-ai-api/internal/application/cache"
	"namepilot-ai-api/internal/application/cost"
	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/internal/domain/entity"
	"namepilot-ai-api/internal/infrastructure/llm"
	redisinfra "namepilot-ai-api/internal/infrastructure/persistence/redis"
	"namepilot-ai-api/internal/workflow"
)

var stubNames = []string{
	"Vaultly", "Payzen", "Finora", "Trustio",
	"Ledgerly", "Coinova", "Securo", "Bankix",
}

// stubChatModel 按提示词里的输出契约判别阶段，统计创意阶段被触发的次数
type stubChatModel struct {
	mu           sync.Mutex
	creativeRuns int
}

func (m *stubChatModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	var prompt strings.Builder
	for _, msg := range msgs {
		prompt.WriteString(msg.Content)
	}
	text := prompt.String()

	var payload any
	switch {
	case strings.Contains(text, `"validations"`):
		vals := make([]entity.ValidationResult, 0, len(stubNames))
		for _, name := range stubNames {
			vals = append(vals, entity.ValidationResult{Name: name, Status: entity.ValidationPass})
		}
		payload = map[string]any{"validations": vals}
	case strings.Contains(text, `"analyses"`):
		analyses := make([]entity.AnalysisResult, 0, len(stubNames))
		for _, name := range stubNames {
			score := 7.0
			if name == "Vaultly" {
				score = 9.0
			}
			analyses = append(analyses, entity.AnalysisResult{
				Name: name,
				SubScores: map[string]float64{
					"brandability": score,
					"market_fit":   score,
					"technical":    score,
					"uniqueness":   score,
				},
			})
		}
		payload = map[string]any{"analyses": analyses}
	default:
		m.mu.Lock()
		m.creativeRuns++
		m.mu.Unlock()
		// 并发调用必须在此阶段重叠，才能覆盖回源合并
		time.Sleep(10 * time.Millisecond)
		cands := make([]entity.CreativeCandidate, 0, len(stubNames))
		for _, name := range stubNames {
			cands = append(cands, entity.CreativeCandidate{Name: name, CreativityScore: 6.0})
		}
		payload = map[string]any{"candidates": cands}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &schema.Message{
		Role:    schema.Assistant,
		Content: string(body),
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{TotalTokens: 100},
		},
	}, nil
}

func (m *stubChatModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *stubChatModel) runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creativeRuns
}

type stubFactory struct {
	model *stubChatModel
}

func (f *stubFactory) Get(_ context.Context, _ entity.ModelTier) (model.BaseChatModel, error) {
	return f.model, nil
}

func (f *stubFactory) ModelName(tier entity.ModelTier) string { return "stub-" + string(tier) }

func newTestService(t *testing.T) (*Service, *stubChatModel) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		LLM: config.LLMConfig{
			DefaultTier: "economy",
			Tiers: map[string]config.TierConfig{
				"economy":  {Model: "gpt-4o-mini", InputCostPer1KTokens: 0.00015, OutputCostPer1KToken: 0.0006},
				"standard": {Model: "gpt-4o", InputCostPer1KTokens: 0.0025, OutputCostPer1KToken: 0.01},
				"premium":  {Model: "gpt-4.1", InputCostPer1KTokens: 0.002, OutputCostPer1KToken: 0.008},
			},
		},
		Budget: config.BudgetConfig{
			DailyLimit:        10,
			MonthlyLimit:      200,
			StandardTierFloor: 5,
			EconomyHardFloor:  1,
		},
		Workflow: config.WorkflowConfig{
			DefaultTemplate: "standard",
			OvershootFactor: 1.5,
			StageMaxRetries: 0,
			StageRetryDelay: time.Millisecond,
		},
		Cache: config.CacheConfig{
			Redis: config.RedisConfig{TTL: time.Hour},
			Local: config.LocalCacheConfig{MaxEntries: 100, TTL: time.Minute},
		},
	}

	client := redisinfra.NewClientFromRedis(rdb, &cfg.Cache.Redis)
	local := appcache.NewLocalCache(&cfg.Cache.Local)
	tiered := appcache.NewTieredCache(&cfg.Cache, local, redisinfra.NewCache(client))

	ledger := cost.NewBudgetLedger(&cfg.Budget)
	optimizer := cost.NewOptimizer(cfg, ledger)
	semantic := cost.NewSemanticCache(cfg, tiered, nil, nil, ledger)

	stub := &stubChatModel{}
	orchestrator := workflow.NewOrchestrator(cfg, &stubFactory{model: stub})

	svc := NewService(cfg, optimizer, semantic, orchestrator, llm.NewEinoFactory(cfg), tiered)
	return svc, stub
}

func cachedNamingRequest() *entity.GenerationRequest {
	req := &entity.GenerationRequest{
		Industry: entity.IndustryFintech,
		Style:    entity.StyleModern,
		Keywords: []string{"vault", "pay"},
		Count:    5,
		Workflow: "standard",
	}
	req.Normalize()
	return req
}

func TestGenerateCachesResult(t *testing.T) {
	ctx := context.Background()
	svc, stub := newTestService(t)
	req := cachedNamingRequest()

	first, err := svc.Generate(ctx, req)
	require.NoError(t, err)
	require.Len(t, first.Names, 5)
	assert.False(t, first.Metadata.Cache.Hit)
	assert.Equal(t, 1, stub.runs())

	second, err := svc.Generate(ctx, req)
	require.NoError(t, err)
	require.Len(t, second.Names, 5)
	assert.True(t, second.Metadata.Cache.Hit)
	assert.Equal(t, cost.HitExact, second.Metadata.Cache.HitType)
	assert.Equal(t, 1, stub.runs(), "cached request never re-runs the workflow")
	assert.Equal(t, first.Names[0].Name, second.Names[0].Name)
}

func TestGenerateConcurrentMissesRunWorkflowOnce(t *testing.T) {
	ctx := context.Background()
	svc, stub := newTestService(t)
	req := cachedNamingRequest()

	const callers = 4
	responses := make([]*Response, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			responses[i], errs[i] = svc.Generate(ctx, req)
		}(i)
	}
	wg.Wait()

	hits := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, responses[i].Names, 5)
		if responses[i].Metadata.Cache.Hit {
			hits++
		}
	}
	assert.Equal(t, 1, stub.runs(), "concurrent identical misses share a single workflow run")
	assert.Equal(t, callers-1, hits, "every caller but the loader is served the shared payload")
}
