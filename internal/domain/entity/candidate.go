package entity

import "time"

// ValidationStatus 校验结果状态
type ValidationStatus string

const (
	ValidationPass        ValidationStatus = "PASS"
	ValidationConditional ValidationStatus = "CONDITIONAL"
	ValidationFail        ValidationStatus = "FAIL"
)

// CreativeCandidate 创意阶段输出
type CreativeCandidate struct {
	Name            string  `json:"name"`
	CreativityScore float64 `json:"creativity_score"`
	Rationale       string  `json:"rationale,omitempty"`
}

// AnalysisResult 分析阶段输出
type AnalysisResult struct {
	Name           string             `json:"name"`
	SubScores      map[string]float64 `json:"sub_scores"`
	CompositeScore float64            `json:"composite_score"`
}

// ValidationResult 校验阶段输出
type ValidationResult struct {
	Name   string           `json:"name"`
	Status ValidationStatus `json:"status"`
	Issues []string         `json:"issues,omitempty"`
}

// OptimizedCandidate 优化阶段输出：最终排名候选
type OptimizedCandidate struct {
	Name           string             `json:"name"`
	FinalScore     float64            `json:"final_score"`
	RankingFactors map[string]float64 `json:"ranking_factors,omitempty"`
}

// 优化阶段的综合评分权重
const (
	WeightBrandability = 0.35
	WeightMarketFit    = 0.30
	WeightTechnical    = 0.20
	WeightUniqueness   = 0.15
)

// StageRecord 工作流阶段执行记录
type StageRecord struct {
	Stage    string        `json:"stage"`
	Summary  string        `json:"summary"`
	Elapsed  time.Duration `json:"elapsed"`
	Retries  int           `json:"retries,omitempty"`
	Fallback bool          `json:"fallback,omitempty"`
}

// WorkflowExecution 一次工作流执行的记录
// 请求级状态，响应产出后仅保留用于观测的日志尾部
type WorkflowExecution struct {
	Template     string        `json:"template"`
	Stages       []StageRecord `json:"stages"`
	TotalElapsed time.Duration `json:"total_elapsed"`
	QualityScore float64       `json:"quality_score"`
	StartedAt    time.Time     `json:"started_at"`
}

// StageNames 返回执行过的阶段名，按执行顺序
func (e *WorkflowExecution) StageNames() []string {
	names := make([]string, 0, len(e.Stages))
	for _, s := range e.Stages {
		names = append(names, s.Stage)
	}
	return names
}
