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

// ValidationStage 校验阶段：语言与商标层面筛查，FAIL 候选将被剔除
type ValidationStage struct {
	factory workflowport.ChatModelFactory
}

func NewValidationStage(factory workflowport.ChatModelFactory) *ValidationStage {
	return &ValidationStage{factory: factory}
}

func (s *ValidationStage) Kind() wfmodel.StageKind { return wfmodel.StageValidation }

func (s *ValidationStage) Run(ctx context.Context, st *wfmodel.State) (*wfmodel.StageOutput, error) {
	if s == nil || s.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if st == nil || st.Input == nil || st.Input.Request == nil {
		return nil, fmt.Errorf("state is nil")
	}
	names := st.ActiveNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("no active candidates to validate")
	}

	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptNameValidationV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"industry":   string(st.Input.Request.Industry),
		"candidates": strings.Join(names, ", "),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, err
	}

	ctx = llmctx.WithWorkflowTier(ctx, string(wfmodel.StageValidation), string(st.Input.Tier))
	chatModel, err := s.factory.Get(ctx, st.Input.Tier)
	if err != nil {
		return nil, err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildValidationModelOptions(true)...)
	if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
		outMsg, err = chatModel.Generate(ctx, msgs, buildValidationModelOptions(false)...)
	}
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}

	raw := wfnode.ExtractJSONObject(outMsg.Content)
	var parsed struct {
		Validations []entity.ValidationResult `json:"validations"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse validation output: %w", err)
	}

	validations := normalizeValidations(parsed.Validations)
	if len(validations) == 0 {
		return nil, fmt.Errorf("validation stage produced no usable results")
	}

	failed := 0
	for _, v := range validations {
		if v.Status == entity.ValidationFail {
			failed++
		}
	}

	out := &wfmodel.StageOutput{
		Validations: validations,
		Summary:     fmt.Sprintf("validated %d candidates, %d failed", len(validations), failed),
	}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		out.TokensUsed = outMsg.ResponseMeta.Usage.TotalTokens
	}
	return out, nil
}

func buildValidationModelOptions(enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 2)
	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "name_validation",
					"strict": false,
					"schema": validationJSONSchema(),
				},
			},
		}))
	}
	return opts
}

func validationJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"validations"},
		"properties": map[string]any{
			"validations": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"name", "status"},
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"status": map[string]any{
							"type": "string",
							"enum": []any{string(entity.ValidationPass), string(entity.ValidationConditional), string(entity.ValidationFail)},
						},
						"issues": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
			},
		},
	}
}

// normalizeValidations 非法状态按 CONDITIONAL 兜底，宁可放行也不误杀
func normalizeValidations(in []entity.ValidationResult) []entity.ValidationResult {
	out := make([]entity.ValidationResult, 0, len(in))
	for _, v := range in {
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			continue
		}
		switch v.Status {
		case entity.ValidationPass, entity.ValidationConditional, entity.ValidationFail:
		default:
			v.Status = entity.ValidationConditional
		}
		out = append(out, v)
	}
	return out
}
