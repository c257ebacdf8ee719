package stage

import (
	"context"
	"fmt"
	"strings"

	"namepilot-ai-api/internal/domain/entity"
	"namepilot-ai-api/internal/workflow/model"
)

// ResearchStage 研究阶段：不调用 LLM，从行业与风格的静态知识
// 推导后续提示词使用的结构化素材。
type ResearchStage struct{}

func NewResearchStage() *ResearchStage { return &ResearchStage{} }

func (s *ResearchStage) Kind() model.StageKind { return model.StageResearch }

func (s *ResearchStage) Run(_ context.Context, st *model.State) (*model.StageOutput, error) {
	if st == nil || st.Input == nil || st.Input.Request == nil {
		return nil, fmt.Errorf("state is nil")
	}
	req := st.Input.Request

	brief := &model.ResearchBrief{
		IndustryContext:  industryContext(req.Industry),
		ExpandedKeywords: expandKeywords(req.Keywords),
		StyleGuidance:    styleGuidance(req.Style),
		AvoidPatterns:    avoidPatterns(req.Industry),
	}

	return &model.StageOutput{
		Brief:   brief,
		Summary: fmt.Sprintf("expanded %d keywords", len(brief.ExpandedKeywords)),
	}, nil
}

var industryContexts = map[entity.Industry]string{
	entity.IndustryTech:       "software and technology products, developer and business audience",
	entity.IndustryFintech:    "financial technology, trust and security are paramount, regulated space",
	entity.IndustryHealthcare: "healthcare and wellness, must sound trustworthy and calm, regulated space",
	entity.IndustryEcommerce:  "online retail, consumer facing, conversion oriented",
	entity.IndustryEducation:  "learning and education, approachable and encouraging tone",
	entity.IndustryFood:       "food and beverage, appetite appeal and warmth",
	entity.IndustryTravel:     "travel and hospitality, evokes movement and discovery",
	entity.IndustryFitness:    "fitness and sports, energetic and motivating",
	entity.IndustryGaming:     "gaming and entertainment, bold and memorable",
	entity.IndustryMedia:      "media and content, attention and voice",
	entity.IndustryConsulting: "professional consulting, credibility and competence",
	entity.IndustryRealEstate: "real estate, stability and aspiration",
}

var styleGuidances = map[entity.Style]string{
	entity.StyleModern:   "short, clean, vowel-ending names; minimal and contemporary",
	entity.StyleClassic:  "established, Latin- or English-rooted names that feel timeless",
	entity.StylePlayful:  "light, fun, slightly whimsical constructions",
	entity.StyleElegant:  "refined, smooth phonetics, premium feel",
	entity.StyleTechy:    "compact, consonant-forward names with a technical edge",
	entity.StyleCreative: "invented words, unexpected blends, strong imagery",
}

func industryContext(ind entity.Industry) string {
	if c, ok := industryContexts[ind]; ok {
		return c
	}
	return "general business audience"
}

func styleGuidance(style entity.Style) string {
	if g, ok := styleGuidances[style]; ok {
		return g
	}
	return "clear and memorable"
}

// expandKeywords 生成关键词变体，丰富创意阶段的提示素材
func expandKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords)*3)
	var out []string
	add := func(w string) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}
	for _, kw := range keywords {
		add(kw)
		if len(kw) > 4 {
			add(kw[:4])
		}
		if len(kw) > 3 {
			add(kw[:len(kw)-1])
		}
	}
	return out
}

// avoidPatterns 受监管行业避免夸大或暗示背书的模式
func avoidPatterns(ind entity.Industry) []string {
	patterns := []string{"numbers or hyphens", "hard-to-spell letter clusters"}
	if entity.ComplexIndustries[ind] {
		patterns = append(patterns, "claims of certification or official endorsement", "exaggerated safety or return promises")
	}
	return patterns
}
