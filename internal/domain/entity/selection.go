package entity

// ModelTier 模型档位
type ModelTier string

const (
	TierEconomy  ModelTier = "economy"
	TierStandard ModelTier = "standard"
	TierPremium  ModelTier = "premium"
)

// ComplexityScore 请求复杂度评分
// 每次请求即时计算，不做持久化
type ComplexityScore struct {
	Score   float64  `json:"score"`
	Factors []string `json:"factors"`
}

// 复杂度评分边界
const (
	ComplexityBase = 5.0
	ComplexityMax  = 10.0

	// 档位选择阈值
	PremiumTierThreshold  = 8.0
	StandardTierThreshold = 6.0
)

// ModelSelection 模型选择结果
type ModelSelection struct {
	Tier          ModelTier       `json:"tier"`
	EstimatedCost float64         `json:"estimated_cost"`
	Rationale     string          `json:"rationale"`
	Complexity    ComplexityScore `json:"complexity"`
}

// CostInfo 响应中携带的成本信息
type CostInfo struct {
	Tier          ModelTier `json:"tier"`
	Model         string    `json:"model,omitempty"`
	EstimatedCost float64   `json:"estimated_cost"`
	ActualCost    float64   `json:"actual_cost,omitempty"`
	Rationale     string    `json:"rationale,omitempty"`
}

// CacheInfo 响应中携带的缓存信息
type CacheInfo struct {
	Hit        bool    `json:"hit"`
	HitType    string  `json:"hit_type,omitempty"` // exact / semantic
	Similarity float64 `json:"similarity,omitempty"`
	Savings    float64 `json:"savings,omitempty"`
}
