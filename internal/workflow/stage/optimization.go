package stage

import (
	"context"
	"fmt"
	"sort"

	"namepilot-ai-api/internal/domain/entity"
	wfmodel "namepilot-ai-api/internal/workflow/model"
	wfnode "namepilot-ai-api/internal/workflow/node"
)

// OptimizationStage 优化阶段：纯计算，不调用 LLM。
// 综合前序阶段的评分排序并截断到请求数量。
type OptimizationStage struct{}

func NewOptimizationStage() *OptimizationStage { return &OptimizationStage{} }

func (s *OptimizationStage) Kind() wfmodel.StageKind { return wfmodel.StageOptimization }

func (s *OptimizationStage) Run(_ context.Context, st *wfmodel.State) (*wfmodel.StageOutput, error) {
	if st == nil || st.Input == nil {
		return nil, fmt.Errorf("state is nil")
	}
	if len(st.Candidates) == 0 {
		return nil, fmt.Errorf("no active candidates to rank")
	}

	ranked := make([]entity.OptimizedCandidate, 0, len(st.Candidates))
	for _, c := range st.Candidates {
		factors := rankingFactors(&c, st)
		ranked = append(ranked, entity.OptimizedCandidate{
			Name:           c.Name,
			FinalScore:     CompositeScore(factors),
			RankingFactors: factors,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	// 截断到最初请求的数量；超采余量在此丢弃
	if len(ranked) > st.Input.TargetCount {
		ranked = ranked[:st.Input.TargetCount]
	}

	return &wfmodel.StageOutput{
		Ranked:  ranked,
		Summary: fmt.Sprintf("ranked %d candidates", len(ranked)),
	}, nil
}

// rankingFactors 取分析阶段的四维评分；分析没跑过（fast 模板）时
// 退化为创意评分，并对 CONDITIONAL 校验结果轻微降权。
func rankingFactors(c *entity.CreativeCandidate, st *wfmodel.State) map[string]float64 {
	key := wfnode.NormalizeName(c.Name)

	var factors map[string]float64
	if a, ok := st.Analyses[key]; ok && len(a.SubScores) > 0 {
		factors = map[string]float64{
			ScoreBrandability: a.SubScores[ScoreBrandability],
			ScoreMarketFit:    a.SubScores[ScoreMarketFit],
			ScoreTechnical:    a.SubScores[ScoreTechnical],
			ScoreUniqueness:   a.SubScores[ScoreUniqueness],
		}
	} else {
		base := clampScore(c.CreativityScore)
		factors = map[string]float64{
			ScoreBrandability: base,
			ScoreMarketFit:    base,
			ScoreTechnical:    base,
			ScoreUniqueness:   base,
		}
	}

	if v, ok := st.Validations[key]; ok && v.Status == entity.ValidationConditional {
		for k := range factors {
			factors[k] = clampScore(factors[k] - 0.5)
		}
	}
	return factors
}
