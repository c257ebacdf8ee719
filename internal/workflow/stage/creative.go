package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"namepilot-ai-api/internal/domain/entity"
	llmctx "namepilot-ai-api/internal/domain/service"
	wfmodel "namepilot-ai-api/internal/workflow/model"
	wfnode "namepilot-ai-api/internal/workflow/node"
	workflowport "namepilot-ai-api/internal/workflow/port"
	workflowprompt "namepilot-ai-api/internal/workflow/prompt"
	"namepilot-ai-api/pkg/logger"
)

// CreativeStage 创意阶段：调用 LLM 按超采数量生成候选名
type CreativeStage struct {
	factory workflowport.ChatModelFactory
}

func NewCreativeStage(factory workflowport.ChatModelFactory) *CreativeStage {
	return &CreativeStage{factory: factory}
}

func (s *CreativeStage) Kind() wfmodel.StageKind { return wfmodel.StageCreative }

func (s *CreativeStage) Run(ctx context.Context, st *wfmodel.State) (*wfmodel.StageOutput, error) {
	if s == nil || s.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if st == nil || st.Input == nil || st.Input.Request == nil {
		return nil, fmt.Errorf("state is nil")
	}
	in := st.Input
	target := OvershootTarget(in.TargetCount, in.OvershootFactor)

	msgs, err := formatCreativeMessages(ctx, st, target)
	if err != nil {
		return nil, err
	}

	ctx = llmctx.WithWorkflowTier(ctx, string(wfmodel.StageCreative), string(in.Tier))
	chatModel, err := s.factory.Get(ctx, in.Tier)
	if err != nil {
		return nil, err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildCreativeModelOptions(true)...)
	if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
			"tier", string(in.Tier),
			"error", err.Error(),
		)
		outMsg, err = chatModel.Generate(ctx, msgs, buildCreativeModelOptions(false)...)
	}
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}

	raw := wfnode.ExtractJSONObject(outMsg.Content)
	var parsed struct {
		Candidates []entity.CreativeCandidate `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse creative output: %w", err)
	}

	candidates := normalizeCandidates(parsed.Candidates)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("creative stage produced no usable candidates")
	}

	out := &wfmodel.StageOutput{
		Candidates: candidates,
		Summary:    fmt.Sprintf("generated %d candidates (target %d)", len(candidates), target),
	}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		out.TokensUsed = outMsg.ResponseMeta.Usage.TotalTokens
	}
	return out, nil
}

// OvershootTarget 计算创意阶段的超采数量
func OvershootTarget(count int, factor float64) int {
	if factor < 1 {
		factor = 1
	}
	return int(math.Ceil(float64(count) * factor))
}

func formatCreativeMessages(ctx context.Context, st *wfmodel.State, target int) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptCreativeGenV1)
	if err != nil {
		return nil, err
	}

	req := st.Input.Request
	keywords := req.Keywords
	industryContext := ""
	styleGuide := ""
	avoid := "none"
	if st.Brief != nil {
		// 研究阶段跑过时用扩展素材，没跑过（fast 模板）就用原始请求
		if len(st.Brief.ExpandedKeywords) > 0 {
			keywords = st.Brief.ExpandedKeywords
		}
		industryContext = st.Brief.IndustryContext
		styleGuide = st.Brief.StyleGuidance
		if len(st.Brief.AvoidPatterns) > 0 {
			avoid = strings.Join(st.Brief.AvoidPatterns, "; ")
		}
	}

	vars := map[string]any{
		"target_count":     target,
		"industry":         string(req.Industry),
		"style":            string(req.Style),
		"keywords":         strings.Join(keywords, ", "),
		"industry_context": industryContext,
		"style_guidance":   styleGuide,
		"description":      wfnode.TruncateByRunes(strings.TrimSpace(req.Description), 2000),
		"avoid_patterns":   avoid,
	}
	return tpl.Format(ctx, vars)
}

func buildCreativeModelOptions(enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 2)
	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "creative_candidates",
					"strict": false,
					"schema": creativeJSONSchema(),
				},
			},
		}))
	}
	return opts
}

func creativeJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"candidates"},
		"properties": map[string]any{
			"candidates": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"name", "creativity_score"},
					"properties": map[string]any{
						"name":             map[string]any{"type": "string"},
						"creativity_score": map[string]any{"type": "number"},
						"rationale":        map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

// normalizeCandidates 去重、清洗并收敛评分
func normalizeCandidates(in []entity.CreativeCandidate) []entity.CreativeCandidate {
	seen := make(map[string]bool, len(in))
	out := make([]entity.CreativeCandidate, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		key := wfnode.NormalizeName(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		c.CreativityScore = clampScore(c.CreativityScore)
		out = append(out, c)
	}
	return out
}

// 启发式兜底的构词后缀
var heuristicSuffixes = []string{"ly", "io", "ify", "hub", "lab", "nova", "ora", "zen", "eo", "ix"}

// HeuristicCandidates 创意阶段重试耗尽后的确定性兜底：
// 从关键词与固定后缀组合出候选，不依赖任何外部调用。
func HeuristicCandidates(req *entity.GenerationRequest, target int) []entity.CreativeCandidate {
	if target <= 0 {
		return nil
	}
	seen := make(map[string]bool, target)
	out := make([]entity.CreativeCandidate, 0, target)
	add := func(name string) {
		if len(out) >= target {
			return
		}
		key := wfnode.NormalizeName(name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, entity.CreativeCandidate{
			Name:            capitalize(key),
			CreativityScore: 5.0,
			Rationale:       "keyword-derived construction",
		})
	}

	for _, suffix := range heuristicSuffixes {
		for _, kw := range req.Keywords {
			base := strings.ToLower(strings.TrimSpace(kw))
			if base == "" {
				continue
			}
			if len(base) > 6 {
				base = base[:6]
			}
			add(base + suffix)
		}
		if len(out) >= target {
			break
		}
	}

	// 单关键词短请求可能不够，再做前缀组合补足
	prefixes := []string{"go", "up", "my", "on", "be"}
	for _, prefix := range prefixes {
		for _, kw := range req.Keywords {
			base := strings.ToLower(strings.TrimSpace(kw))
			if base == "" {
				continue
			}
			add(prefix + base)
		}
		if len(out) >= target {
			break
		}
	}
	return out
}
