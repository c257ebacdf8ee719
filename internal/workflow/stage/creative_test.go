package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namepilot-ai-api/internal/domain/entity"
)

func TestOvershootTarget(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		factor float64
		want   int
	}{
		{name: "default factor", count: 20, factor: 1.5, want: 30},
		{name: "rounds up", count: 21, factor: 1.5, want: 32},
		{name: "factor below one is clamped", count: 10, factor: 0.5, want: 10},
		{name: "factor one passes through", count: 50, factor: 1.0, want: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OvershootTarget(tt.count, tt.factor))
		})
	}
}

func TestHeuristicCandidates(t *testing.T) {
	req := &entity.GenerationRequest{
		Industry: entity.IndustryFintech,
		Style:    entity.StyleModern,
		Keywords: []string{"vault", "pay"},
	}

	candidates := HeuristicCandidates(req, 15)
	require.Len(t, candidates, 15)

	seen := make(map[string]bool)
	for _, c := range candidates {
		assert.NotEmpty(t, c.Name)
		assert.False(t, seen[c.Name], "duplicate candidate %s", c.Name)
		seen[c.Name] = true
		assert.Equal(t, 5.0, c.CreativityScore)
	}

	// 确定性：同样的输入得到同样的序列
	again := HeuristicCandidates(req, 15)
	assert.Equal(t, candidates, again)
}

func TestHeuristicCandidatesTruncatesLongKeywords(t *testing.T) {
	req := &entity.GenerationRequest{
		Keywords: []string{"cryptocurrency"},
	}
	candidates := HeuristicCandidates(req, 3)
	require.NotEmpty(t, candidates)
	// 过长关键词截断到 6 字符作为词根
	assert.Equal(t, "Cryptoly", candidates[0].Name)
}

func TestHeuristicCandidatesZeroTarget(t *testing.T) {
	req := &entity.GenerationRequest{Keywords: []string{"vault"}}
	assert.Nil(t, HeuristicCandidates(req, 0))
}

func TestNormalizeCandidates(t *testing.T) {
	in := []entity.CreativeCandidate{
		{Name: " Vaultly ", CreativityScore: 8.2},
		{Name: "vaultly", CreativityScore: 7.0}, // 大小写不同的重复
		{Name: "", CreativityScore: 5.0},
		{Name: "Payzen", CreativityScore: 14.0}, // 超界评分
		{Name: "Finora", CreativityScore: -3.0},
	}

	out := normalizeCandidates(in)
	require.Len(t, out, 3)
	assert.Equal(t, "Vaultly", out[0].Name)
	assert.Equal(t, 8.2, out[0].CreativityScore)
	assert.Equal(t, 10.0, out[1].CreativityScore)
	assert.Equal(t, 0.0, out[2].CreativityScore)
}
