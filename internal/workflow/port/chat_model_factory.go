package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"namepilot-ai-api/internal/domain/entity"
)

// ChatModelFactory 定义工作流层对 LLM ChatModel 的最小依赖（port）。
type ChatModelFactory interface {
	Get(ctx context.Context, tier entity.ModelTier) (model.BaseChatModel, error)
	ModelName(tier entity.ModelTier) string
}
