// Package model 定义工作流层的输入输出类型
package model

import (
	"namepilot-ai-api/internal/domain/entity"
)

// StageKind 阶段枚举，工作流模板是它的有序序列
type StageKind string

const (
	StageResearch     StageKind = "research"
	StageCreative     StageKind = "creative"
	StageAnalysis     StageKind = "analysis"
	StageValidation   StageKind = "validation"
	StageOptimization StageKind = "optimization"
)

// GenerateInput 工作流入口参数
type GenerateInput struct {
	Request     *entity.GenerationRequest
	Tier        entity.ModelTier
	Template    string
	TargetCount int
	// 创意阶段按此倍数超采，给后续过滤留余量
	OvershootFactor float64
}

// ResearchBrief 研究阶段产出：后续提示词的结构化素材
type ResearchBrief struct {
	IndustryContext  string   `json:"industry_context"`
	ExpandedKeywords []string `json:"expanded_keywords"`
	StyleGuidance    string   `json:"style_guidance"`
	AvoidPatterns    []string `json:"avoid_patterns,omitempty"`
}

// State 单次工作流执行的合并状态。
// 请求级，不跨请求共享，运行期间无需加锁。
type State struct {
	Input *GenerateInput

	Brief       *ResearchBrief
	Candidates  []entity.CreativeCandidate
	Analyses    map[string]*entity.AnalysisResult
	Validations map[string]*entity.ValidationResult
	Ranked      []entity.OptimizedCandidate

	TokensUsed int
}

// NewState 初始化工作流状态
func NewState(in *GenerateInput) *State {
	return &State{
		Input:       in,
		Analyses:    make(map[string]*entity.AnalysisResult),
		Validations: make(map[string]*entity.ValidationResult),
	}
}

// StageOutput 阶段产出的闭合标签联合：每个阶段只填充自己的那一份，
// 由编排器通过显式 merge 合入 State。
type StageOutput struct {
	Brief       *ResearchBrief
	Candidates  []entity.CreativeCandidate
	Analyses    []entity.AnalysisResult
	Validations []entity.ValidationResult
	Ranked      []entity.OptimizedCandidate

	Summary    string
	Fallback   bool
	TokensUsed int
}

// ActiveNames 返回当前活跃候选名（validation 阶段会收缩这个集合）
func (s *State) ActiveNames() []string {
	names := make([]string, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		names = append(names, c.Name)
	}
	return names
}
