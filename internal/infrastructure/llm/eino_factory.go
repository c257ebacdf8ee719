package llm

import (
	"context"
	"fmt"
	"sync"

	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/internal/domain/entity"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// EinoFactory 按模型档位管理 Eino ChatModel 客户端实例
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定档位的 ChatModel，如果未指定则返回默认档位
func (f *EinoFactory) Get(ctx context.Context, tier entity.ModelTier) (model.BaseChatModel, error) {
	name := string(tier)
	if name == "" {
		name = f.config.DefaultTier
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	tierCfg, ok := f.config.Tiers[name]
	if !ok {
		return nil, fmt.Errorf("tier %s not found in LLM config", name)
	}

	// 使用 Eino 的 OpenAI 适配器
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      tierCfg.APIKey,
		BaseURL:     tierCfg.BaseURL,
		Model:       tierCfg.Model,
		MaxTokens:   &tierCfg.MaxTokens,
		Temperature: ptrFloat32(float32(tierCfg.Temperature)),
		Timeout:     tierCfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for tier %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// ModelName 返回指定档位配置的模型名（用于指标与成本记录）
func (f *EinoFactory) ModelName(tier entity.ModelTier) string {
	if tierCfg, ok := f.config.Tiers[string(tier)]; ok {
		return tierCfg.Model
	}
	return string(tier)
}

// Default 返回默认档位的 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

func ptrFloat32(f float32) *float32 {
	return &f
}
