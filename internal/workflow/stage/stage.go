// Package stage 实现命名工作流的各个阶段
package stage

import (
	"context"
	"unicode"

	"namepilot-ai-api/internal/workflow/model"
	workflowprompt "namepilot-ai-api/internal/workflow/prompt"
)

var defaultPromptRegistry = workflowprompt.NewRegistry()

// Stage 阶段统一接口：消费合并状态，产出本阶段的类型化输出。
// 输出由编排器显式合入状态，阶段本身不修改 State。
type Stage interface {
	Kind() model.StageKind
	Run(ctx context.Context, st *model.State) (*model.StageOutput, error)
}

// clampScore 将模型给出的分数收敛到 [0,10]
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
