package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"namepilot-ai-api/internal/domain/entity"
	llmctx "namepilot-ai-api/internal/domain/service"
	wfmodel "namepilot-ai-api/internal/workflow/model"
	wfnode "namepilot-ai-api/internal/workflow/node"
	workflowport "namepilot-ai-api/internal/workflow/port"
	workflowprompt "namepilot-ai-api/internal/workflow/prompt"
)

// 分析阶段评分维度
const (
	ScoreBrandability = "brandability"
	ScoreMarketFit    = "market_fit"
	ScoreTechnical    = "technical"
	ScoreUniqueness   = "uniqueness"
)

// AnalysisStage 分析阶段：对活跃候选做四维市场评分
type AnalysisStage struct {
	factory workflowport.ChatModelFactory
}

func NewAnalysisStage(factory workflowport.ChatModelFactory) *AnalysisStage {
	return &AnalysisStage{factory: factory}
}

func (s *AnalysisStage) Kind() wfmodel.StageKind { return wfmodel.StageAnalysis }

func (s *AnalysisStage) Run(ctx context.Context, st *wfmodel.State) (*wfmodel.StageOutput, error) {
	if s == nil || s.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if st == nil || st.Input == nil || st.Input.Request == nil {
		return nil, fmt.Errorf("state is nil")
	}
	names := st.ActiveNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("no active candidates to analyze")
	}

	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptMarketAnalysisV1)
	if err != nil {
		return nil, err
	}
	req := st.Input.Request
	vars := map[string]any{
		"industry":   string(req.Industry),
		"style":      string(req.Style),
		"candidates": strings.Join(names, ", "),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, err
	}

	ctx = llmctx.WithWorkflowTier(ctx, string(wfmodel.StageAnalysis), string(st.Input.Tier))
	chatModel, err := s.factory.Get(ctx, st.Input.Tier)
	if err != nil {
		return nil, err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildAnalysisModelOptions(true)...)
	if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
		outMsg, err = chatModel.Generate(ctx, msgs, buildAnalysisModelOptions(false)...)
	}
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}

	raw := wfnode.ExtractJSONObject(outMsg.Content)
	var parsed struct {
		Analyses []entity.AnalysisResult `json:"analyses"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse analysis output: %w", err)
	}

	analyses := normalizeAnalyses(parsed.Analyses)
	if len(analyses) == 0 {
		return nil, fmt.Errorf("analysis stage produced no usable scores")
	}

	out := &wfmodel.StageOutput{
		Analyses: analyses,
		Summary:  fmt.Sprintf("scored %d of %d candidates", len(analyses), len(names)),
	}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		out.TokensUsed = outMsg.ResponseMeta.Usage.TotalTokens
	}
	return out, nil
}

func buildAnalysisModelOptions(enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 2)
	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "market_analysis",
					"strict": false,
					"schema": analysisJSONSchema(),
				},
			},
		}))
	}
	return opts
}

func analysisJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"analyses"},
		"properties": map[string]any{
			"analyses": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"name", "sub_scores"},
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"sub_scores": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []any{ScoreBrandability, ScoreMarketFit, ScoreTechnical, ScoreUniqueness},
							"properties": map[string]any{
								ScoreBrandability: map[string]any{"type": "number"},
								ScoreMarketFit:    map[string]any{"type": "number"},
								ScoreTechnical:    map[string]any{"type": "number"},
								ScoreUniqueness:   map[string]any{"type": "number"},
							},
						},
						"composite_score": map[string]any{"type": "number"},
					},
				},
			},
		},
	}
}

// normalizeAnalyses 清洗评分：收敛到 [0,10]，缺失的综合分按权重补算
func normalizeAnalyses(in []entity.AnalysisResult) []entity.AnalysisResult {
	out := make([]entity.AnalysisResult, 0, len(in))
	for _, a := range in {
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" || len(a.SubScores) == 0 {
			continue
		}
		for k, v := range a.SubScores {
			a.SubScores[k] = clampScore(v)
		}
		if a.CompositeScore <= 0 {
			a.CompositeScore = CompositeScore(a.SubScores)
		}
		a.CompositeScore = clampScore(a.CompositeScore)
		out = append(out, a)
	}
	return out
}

// CompositeScore 按固定权重合成四维评分
func CompositeScore(sub map[string]float64) float64 {
	return sub[ScoreBrandability]*entity.WeightBrandability +
		sub[ScoreMarketFit]*entity.WeightMarketFit +
		sub[ScoreTechnical]*entity.WeightTechnical +
		sub[ScoreUniqueness]*entity.WeightUniqueness
}
