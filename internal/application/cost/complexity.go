// Package cost 实现成本感知的模型选择、预算账本与语义缓存命中
package cost

import (
	"strings"

	"namepilot-ai-api/internal/domain/entity"
)

// ScoreComplexity 对请求做加性复杂度评分：
// 基础分 5.0，复杂行业 +1，数量大 +1，创意型风格 +1，
// 关键词 >3 个 +0.5，有补充描述 +1，premium +2，封顶 10。
func ScoreComplexity(req *entity.GenerationRequest) entity.ComplexityScore {
	score := entity.ComplexityBase
	var factors []string

	if entity.ComplexIndustries[req.Industry] {
		score += 1.0
		factors = append(factors, "complex industry: "+string(req.Industry))
	}
	if req.Count > 50 {
		score += 1.0
		factors = append(factors, "large count")
	}
	if req.Style == entity.StyleCreative || req.Style == entity.StyleTechy {
		score += 1.0
		factors = append(factors, "demanding style: "+string(req.Style))
	}
	if len(req.Keywords) > 3 {
		score += 0.5
		factors = append(factors, "many keywords")
	}
	if strings.TrimSpace(req.Description) != "" {
		score += 1.0
		factors = append(factors, "special requirements")
	}
	if req.Premium {
		score += 2.0
		factors = append(factors, "premium request")
	}

	if score > entity.ComplexityMax {
		score = entity.ComplexityMax
	}
	return entity.ComplexityScore{Score: score, Factors: factors}
}
