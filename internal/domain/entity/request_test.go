package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *GenerationRequest {
	return &GenerationRequest{
		Industry: IndustryFintech,
		Style:    StyleModern,
		Keywords: []string{"vault", "pay"},
		Count:    20,
	}
}

func TestGenerationRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *GenerationRequest)
		wantErr bool
	}{
		{name: "valid", mutate: func(r *GenerationRequest) {}},
		{name: "unknown industry", mutate: func(r *GenerationRequest) { r.Industry = "space" }, wantErr: true},
		{name: "unknown style", mutate: func(r *GenerationRequest) { r.Style = "brutalist" }, wantErr: true},
		{name: "no keywords", mutate: func(r *GenerationRequest) { r.Keywords = nil }, wantErr: true},
		{name: "too many keywords", mutate: func(r *GenerationRequest) {
			r.Keywords = []string{"a", "b", "c", "d", "e", "f"}
		}, wantErr: true},
		{name: "blank keyword", mutate: func(r *GenerationRequest) { r.Keywords = []string{"  "} }, wantErr: true},
		{name: "keyword too long", mutate: func(r *GenerationRequest) {
			r.Keywords = []string{strings.Repeat("x", MaxKeywordLen+1)}
		}, wantErr: true},
		{name: "count below minimum", mutate: func(r *GenerationRequest) { r.Count = 9 }, wantErr: true},
		{name: "count above maximum", mutate: func(r *GenerationRequest) { r.Count = 101 }, wantErr: true},
		{name: "count at bounds", mutate: func(r *GenerationRequest) { r.Count = MaxNameCount }},
		{name: "description too long", mutate: func(r *GenerationRequest) {
			r.Description = strings.Repeat("d", MaxDescription+1)
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(r)
			err := r.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerationRequestNormalize(t *testing.T) {
	r := &GenerationRequest{
		Industry:    IndustryTech,
		Style:       StyleTechy,
		Keywords:    []string{"  Vault ", "PAY"},
		Description: "  secure payments  ",
	}
	r.Normalize()

	assert.Equal(t, DefaultCount, r.Count)
	assert.Equal(t, "standard", r.Workflow)
	assert.Equal(t, []string{"vault", "pay"}, r.Keywords)
	assert.Equal(t, "secure payments", r.Description)
}

func TestGenerationRequestNormalizeKeepsExplicitValues(t *testing.T) {
	r := validRequest()
	r.Workflow = "fast"
	r.Normalize()

	assert.Equal(t, 20, r.Count)
	assert.Equal(t, "fast", r.Workflow)
}

func TestGenerationRequestHashIgnoresCount(t *testing.T) {
	a := validRequest()
	b := validRequest()
	b.Count = 80

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
}

func TestGenerationRequestHashSensitivity(t *testing.T) {
	base := validRequest()

	changed := validRequest()
	changed.Premium = true
	assert.NotEqual(t, base.Hash(), changed.Hash())

	changed = validRequest()
	changed.Keywords = []string{"pay", "vault"}
	assert.NotEqual(t, base.Hash(), changed.Hash(), "keyword order participates in identity")

	changed = validRequest()
	changed.Description = "for a neobank"
	assert.NotEqual(t, base.Hash(), changed.Hash())
}

func TestGenerationRequestCacheKeyFormat(t *testing.T) {
	r := validRequest()
	key := r.CacheKey()
	require.True(t, strings.HasPrefix(key, "gen:"))
	assert.True(t, strings.HasSuffix(key, ":20"))
}

func TestGenerationRequestEmbeddingText(t *testing.T) {
	r := validRequest()
	text := r.EmbeddingText()
	assert.Contains(t, text, "fintech")
	assert.Contains(t, text, "modern")
	assert.Contains(t, text, "vault pay")

	r.Description = "secure wallet"
	assert.Contains(t, r.EmbeddingText(), "secure wallet")
}
