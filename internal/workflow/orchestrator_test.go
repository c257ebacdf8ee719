package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/internal/domain/entity"
	wfmodel "namepilot-ai-api/internal/workflow/model"
)

// fakeChatModel 按提示词里的输出契约判别阶段并返回对应的固定 JSON
type fakeChatModel struct {
	mu           sync.Mutex
	calls        []string
	failCreative bool
}

var fakeNames = []string{
	"Vaultly", "Payzen", "Finora", "Trustio", "Ledgerly", "Coinova",
	"Securo", "Bankix", "Fundeo", "Walletly", "Edgy", "Badname",
}

func (m *fakeChatModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	var prompt strings.Builder
	for _, msg := range msgs {
		prompt.WriteString(msg.Content)
	}
	text := prompt.String()

	var payload any
	var stage string
	switch {
	case strings.Contains(text, `"validations"`):
		stage = "validation"
		vals := make([]entity.ValidationResult, 0, len(fakeNames))
		for _, name := range fakeNames {
			status := entity.ValidationPass
			switch name {
			case "Badname":
				status = entity.ValidationFail
			case "Edgy":
				status = entity.ValidationConditional
			}
			vals = append(vals, entity.ValidationResult{Name: name, Status: status})
		}
		payload = map[string]any{"validations": vals}
	case strings.Contains(text, `"analyses"`):
		stage = "analysis"
		analyses := make([]entity.AnalysisResult, 0, len(fakeNames))
		for _, name := range fakeNames {
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
		stage = "creative"
		if m.shouldFailCreative() {
			return nil, errors.New("model overloaded")
		}
		cands := make([]entity.CreativeCandidate, 0, len(fakeNames))
		for _, name := range fakeNames {
			cands = append(cands, entity.CreativeCandidate{Name: name, CreativityScore: 6.0})
		}
		payload = map[string]any{"candidates": cands}
	}

	m.mu.Lock()
	m.calls = append(m.calls, stage)
	m.mu.Unlock()

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

func (m *fakeChatModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *fakeChatModel) shouldFailCreative() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failCreative
}

func (m *fakeChatModel) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

type fakeFactory struct {
	model *fakeChatModel
	err   error
}

func (f *fakeFactory) Get(_ context.Context, _ entity.ModelTier) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func (f *fakeFactory) ModelName(tier entity.ModelTier) string { return "fake-" + string(tier) }

func workflowTestConfig() *config.Config {
	return &config.Config{
		Workflow: config.WorkflowConfig{
			DefaultTemplate: "standard",
			OvershootFactor: 1.5,
			StageMaxRetries: 0,
			StageRetryDelay: time.Millisecond,
		},
	}
}

func namingRequest(workflow string, count int) *entity.GenerationRequest {
	return &entity.GenerationRequest{
		Industry: entity.IndustryFintech,
		Style:    entity.StyleModern,
		Keywords: []string{"vault", "pay"},
		Count:    count,
		Workflow: workflow,
	}
}

func TestOrchestratorRunStandard(t *testing.T) {
	fake := &fakeChatModel{}
	o := NewOrchestrator(workflowTestConfig(), &fakeFactory{model: fake})

	result, err := o.Run(context.Background(), namingRequest("standard", 10), entity.TierStandard, nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 10)

	// FAIL 候选被剔除，不允许出现在最终结果
	for _, c := range result.Candidates {
		assert.NotEqual(t, "Badname", c.Name)
	}
	assert.Equal(t, "Vaultly", result.Candidates[0].Name, "highest analysis score ranks first")
	for i := 1; i < len(result.Candidates); i++ {
		assert.GreaterOrEqual(t, result.Candidates[i-1].FinalScore, result.Candidates[i].FinalScore)
	}
	for _, c := range result.Candidates {
		assert.GreaterOrEqual(t, c.FinalScore, 0.0)
		assert.LessOrEqual(t, c.FinalScore, 10.0)
	}

	assert.Equal(t, []string{"creative", "analysis", "validation"}, fake.callLog())
	assert.Equal(t, 300, result.TokensUsed)

	require.NotNil(t, result.Execution)
	assert.Equal(t, "standard", result.Execution.Template)
	assert.Len(t, result.Execution.Stages, 5)
}

func TestOrchestratorRunFastSkipsAnalysis(t *testing.T) {
	fake := &fakeChatModel{}
	o := NewOrchestrator(workflowTestConfig(), &fakeFactory{model: fake})

	result, err := o.Run(context.Background(), namingRequest("fast", 10), entity.TierEconomy, nil)
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 10)

	assert.Equal(t, []string{"creative", "validation"}, fake.callLog())
	assert.Len(t, result.Execution.Stages, 3)
}

func TestOrchestratorQualityFocusedRunsAnalysisTwice(t *testing.T) {
	fake := &fakeChatModel{}
	o := NewOrchestrator(workflowTestConfig(), &fakeFactory{model: fake})

	_, err := o.Run(context.Background(), namingRequest("quality_focused", 10), entity.TierPremium, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"creative", "analysis", "validation", "analysis"}, fake.callLog())
}

func TestOrchestratorDefaultTemplate(t *testing.T) {
	fake := &fakeChatModel{}
	o := NewOrchestrator(workflowTestConfig(), &fakeFactory{model: fake})

	result, err := o.Run(context.Background(), namingRequest("", 10), entity.TierStandard, nil)
	require.NoError(t, err)
	assert.Equal(t, "standard", result.Execution.Template)
}

func TestOrchestratorUnknownTemplate(t *testing.T) {
	o := NewOrchestrator(workflowTestConfig(), &fakeFactory{model: &fakeChatModel{}})

	_, err := o.Run(context.Background(), namingRequest("exhaustive", 10), entity.TierStandard, nil)
	assert.Error(t, err)
}

func TestOrchestratorCreativeFallback(t *testing.T) {
	fake := &fakeChatModel{failCreative: true}
	o := NewOrchestrator(workflowTestConfig(), &fakeFactory{model: fake})

	result, err := o.Run(context.Background(), namingRequest("fast", 10), entity.TierEconomy, nil)
	require.NoError(t, err, "creative failure degrades to heuristics instead of failing the run")
	assert.Len(t, result.Candidates, 10)

	require.GreaterOrEqual(t, len(result.Execution.Stages), 1)
	assert.True(t, result.Execution.Stages[0].Fallback)
}

func TestOrchestratorProgressCallback(t *testing.T) {
	fake := &fakeChatModel{}
	o := NewOrchestrator(workflowTestConfig(), &fakeFactory{model: fake})

	var kinds []wfmodel.StageKind
	progress := func(kind wfmodel.StageKind, index, total int, out *wfmodel.StageOutput) {
		assert.Equal(t, len(kinds), index)
		assert.Equal(t, 3, total)
		assert.NotNil(t, out)
		kinds = append(kinds, kind)
	}

	_, err := o.Run(context.Background(), namingRequest("fast", 10), entity.TierEconomy, progress)
	require.NoError(t, err)
	assert.Equal(t, []wfmodel.StageKind{
		wfmodel.StageCreative,
		wfmodel.StageValidation,
		wfmodel.StageOptimization,
	}, kinds)
}

func TestOrchestratorCancelledContext(t *testing.T) {
	o := NewOrchestrator(workflowTestConfig(), &fakeFactory{model: &fakeChatModel{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, namingRequest("standard", 10), entity.TierStandard, nil)
	assert.Error(t, err)
}

func TestOrchestratorHealthAndExecutionLog(t *testing.T) {
	fake := &fakeChatModel{}
	o := NewOrchestrator(workflowTestConfig(), &fakeFactory{model: fake})

	_, err := o.Run(context.Background(), namingRequest("fast", 10), entity.TierEconomy, nil)
	require.NoError(t, err)

	health := o.Health()
	require.NotEmpty(t, health)
	byStage := make(map[string]StageHealth, len(health))
	for _, h := range health {
		byStage[h.Stage] = h
	}
	assert.Equal(t, int64(1), byStage[string(wfmodel.StageCreative)].Successes)

	execs := o.RecentExecutions()
	require.Len(t, execs, 1)
	assert.Equal(t, "fast", execs[0].Template)
}

func TestResolveTemplate(t *testing.T) {
	o := NewOrchestrator(workflowTestConfig(), &fakeFactory{model: &fakeChatModel{}})

	stages, err := o.ResolveTemplate("comprehensive")
	require.NoError(t, err)
	assert.Len(t, stages, 5)

	_, err = o.ResolveTemplate("nope")
	assert.Error(t, err)

	assert.ElementsMatch(t, []string{"fast", "standard", "comprehensive", "quality_focused"}, o.Templates())
}
