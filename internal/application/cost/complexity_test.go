package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"namepilot-ai-api/internal/domain/entity"
)

func TestScoreComplexity(t *testing.T) {
	tests := []struct {
		name string
		req  entity.GenerationRequest
		want float64
	}{
		{
			name: "baseline",
			req: entity.GenerationRequest{
				Industry: entity.IndustryFood,
				Style:    entity.StyleClassic,
				Keywords: []string{"taste"},
				Count:    20,
			},
			want: 5.0,
		},
		{
			name: "complex industry",
			req: entity.GenerationRequest{
				Industry: entity.IndustryHealthcare,
				Style:    entity.StyleClassic,
				Keywords: []string{"care"},
				Count:    20,
			},
			want: 6.0,
		},
		{
			name: "large count and demanding style",
			req: entity.GenerationRequest{
				Industry: entity.IndustryFood,
				Style:    entity.StyleCreative,
				Keywords: []string{"taste"},
				Count:    80,
			},
			want: 7.0,
		},
		{
			name: "many keywords and description",
			req: entity.GenerationRequest{
				Industry:    entity.IndustryFood,
				Style:       entity.StyleClassic,
				Keywords:    []string{"a", "b", "c", "d"},
				Count:       20,
				Description: "family restaurant chain",
			},
			want: 6.5,
		},
		{
			name: "premium",
			req: entity.GenerationRequest{
				Industry: entity.IndustryFood,
				Style:    entity.StyleClassic,
				Keywords: []string{"taste"},
				Count:    20,
				Premium:  true,
			},
			want: 7.0,
		},
		{
			name: "everything capped at max",
			req: entity.GenerationRequest{
				Industry:    entity.IndustryFintech,
				Style:       entity.StyleCreative,
				Keywords:    []string{"a", "b", "c", "d", "e"},
				Count:       100,
				Description: "global crypto exchange",
				Premium:     true,
			},
			want: entity.ComplexityMax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreComplexity(&tt.req)
			assert.InDelta(t, tt.want, got.Score, 1e-9)
		})
	}
}

func TestScoreComplexityFactors(t *testing.T) {
	req := entity.GenerationRequest{
		Industry: entity.IndustryFintech,
		Style:    entity.StyleModern,
		Keywords: []string{"vault"},
		Count:    20,
		Premium:  true,
	}
	got := ScoreComplexity(&req)
	assert.Contains(t, got.Factors, "complex industry: fintech")
	assert.Contains(t, got.Factors, "premium request")
	assert.Len(t, got.Factors, 2)
}
