package entity

import (
	"encoding/json"
	"time"
)

// CacheEntry 缓存条目
// 条目不做原地修改，更新时整体替换
type CacheEntry struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Embedding []float32       `json:"embedding,omitempty"`
}

// Expired 判断条目是否已过期
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// GenerationResult 缓存的生成结果载荷
type GenerationResult struct {
	RequestHash string               `json:"request_hash"`
	Names       []OptimizedCandidate `json:"names"`
	Workflow    string               `json:"workflow"`
	Tier        ModelTier            `json:"tier"`
	Cost        float64              `json:"cost"`
	CreatedAt   time.Time            `json:"created_at"`
}
