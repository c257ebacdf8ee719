package dto

import (
	"namepilot-ai-api/internal/domain/entity"
)

// GenerateNamesRequest 命名生成请求
type GenerateNamesRequest struct {
	Keywords    []string `json:"keywords" binding:"required,min=1,max=5"`
	Industry    string   `json:"industry" binding:"required"`
	Style       string   `json:"style" binding:"required"`
	Count       int      `json:"count" binding:"omitempty,gte=10,lte=100"`
	Workflow    string   `json:"workflow" binding:"omitempty,oneof=fast standard comprehensive quality_focused"`
	Premium     bool     `json:"premium"`
	Description string   `json:"description" binding:"max=500"`
}

// ToEntity 转换为领域实体并填充默认值
func (r *GenerateNamesRequest) ToEntity() (*entity.GenerationRequest, error) {
	req := &entity.GenerationRequest{
		Industry:    entity.Industry(r.Industry),
		Style:       entity.Style(r.Style),
		Keywords:    r.Keywords,
		Count:       r.Count,
		Workflow:    r.Workflow,
		Premium:     r.Premium,
		Description: r.Description,
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
