// Package entity 定义领域实体
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Industry 行业枚举
type Industry string

const (
	IndustryTech       Industry = "tech"
	IndustryFintech    Industry = "fintech"
	IndustryHealthcare Industry = "healthcare"
	IndustryEcommerce  Industry = "ecommerce"
	IndustryEducation  Industry = "education"
	IndustryFood       Industry = "food"
	IndustryTravel     Industry = "travel"
	IndustryFitness    Industry = "fitness"
	IndustryGaming     Industry = "gaming"
	IndustryMedia      Industry = "media"
	IndustryConsulting Industry = "consulting"
	IndustryRealEstate Industry = "realestate"
)

// Style 命名风格枚举
type Style string

const (
	StyleModern   Style = "modern"
	StyleClassic  Style = "classic"
	StylePlayful  Style = "playful"
	StyleElegant  Style = "elegant"
	StyleTechy    Style = "techy"
	StyleCreative Style = "creative"
)

// 请求边界
const (
	MinKeywords    = 1
	MaxKeywords    = 5
	MinNameCount   = 10
	MaxNameCount   = 100
	DefaultCount   = 50
	MaxKeywordLen  = 32
	MaxDescription = 500
)

var validIndustries = map[Industry]bool{
	IndustryTech: true, IndustryFintech: true, IndustryHealthcare: true,
	IndustryEcommerce: true, IndustryEducation: true, IndustryFood: true,
	IndustryTravel: true, IndustryFitness: true, IndustryGaming: true,
	IndustryMedia: true, IndustryConsulting: true, IndustryRealEstate: true,
}

var validStyles = map[Style]bool{
	StyleModern: true, StyleClassic: true, StylePlayful: true,
	StyleElegant: true, StyleTechy: true, StyleCreative: true,
}

// ComplexIndustries 复杂度加权的行业集合
var ComplexIndustries = map[Industry]bool{
	IndustryHealthcare: true,
	IndustryFintech:    true,
	IndustryRealEstate: true,
	IndustryConsulting: true,
}

// GenerationRequest 一次命名生成请求
// 接受后不可变；Hash() 作为缓存与去重的身份标识
type GenerationRequest struct {
	Industry    Industry `json:"industry"`
	Style       Style    `json:"style"`
	Keywords    []string `json:"keywords"`
	Count       int      `json:"count"`
	Workflow    string   `json:"workflow"`
	Premium     bool     `json:"premium"`
	Description string   `json:"description,omitempty"`
}

// Validate 校验请求字段
func (r *GenerationRequest) Validate() error {
	if !validIndustries[r.Industry] {
		return fmt.Errorf("unknown industry: %s", r.Industry)
	}
	if !validStyles[r.Style] {
		return fmt.Errorf("unknown style: %s", r.Style)
	}
	if len(r.Keywords) < MinKeywords || len(r.Keywords) > MaxKeywords {
		return fmt.Errorf("keywords must contain %d to %d entries", MinKeywords, MaxKeywords)
	}
	for _, kw := range r.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			return fmt.Errorf("keyword must not be empty")
		}
		if len(kw) > MaxKeywordLen {
			return fmt.Errorf("keyword too long: %s", kw)
		}
	}
	if r.Count < MinNameCount || r.Count > MaxNameCount {
		return fmt.Errorf("count must be between %d and %d", MinNameCount, MaxNameCount)
	}
	if len(r.Description) > MaxDescription {
		return fmt.Errorf("description too long")
	}
	return nil
}

// Normalize 填充默认值并规范化关键词
func (r *GenerationRequest) Normalize() {
	if r.Count == 0 {
		r.Count = DefaultCount
	}
	if r.Workflow == "" {
		r.Workflow = "standard"
	}
	for i, kw := range r.Keywords {
		r.Keywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}
	r.Description = strings.TrimSpace(r.Description)
}

// Hash 基于内容的身份标识
// 注意：Count 不参与哈希，使语义缓存可以跨不同数量的请求复用结果
func (r *GenerationRequest) Hash() string {
	var b strings.Builder
	b.WriteString(string(r.Industry))
	b.WriteString("|")
	b.WriteString(string(r.Style))
	b.WriteString("|")
	b.WriteString(strings.Join(r.Keywords, ","))
	b.WriteString("|")
	if r.Premium {
		b.WriteString("premium")
	}
	b.WriteString("|")
	b.WriteString(r.Description)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

// CacheKey 精确匹配缓存键
func (r *GenerationRequest) CacheKey() string {
	return fmt.Sprintf("gen:%s:%d", r.Hash(), r.Count)
}

// EmbeddingText 用于语义相似度匹配的文本表示
func (r *GenerationRequest) EmbeddingText() string {
	parts := []string{
		string(r.Industry),
		string(r.Style),
		strings.Join(r.Keywords, " "),
	}
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	return strings.Join(parts, " ")
}
