// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"namepilot-ai-api/internal/application/admission"
	"namepilot-ai-api/internal/application/generation"
	"namepilot-ai-api/internal/interfaces/http/dto"
	apperrors "namepilot-ai-api/pkg/errors"
	"namepilot-ai-api/pkg/logger"
)

// GenerateHandler 命名生成处理器
type GenerateHandler struct {
	service   *generation.Service
	admission *admission.Controller
}

// NewGenerateHandler 创建命名生成处理器
func NewGenerateHandler(service *generation.Service, admissionCtrl *admission.Controller) *GenerateHandler {
	return &GenerateHandler{
		service:   service,
		admission: admissionCtrl,
	}
}

// Generate 生成公司命名
// @Summary 生成公司命名
// @Description 通过多阶段智能体流水线生成候选名称
// @Tags Names
// @Accept json
// @Produce json
// @Param request body dto.GenerateNamesRequest true "生成请求"
// @Success 200 {object} dto.Response[generation.Response]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/names/generate [post]
func (h *GenerateHandler) Generate(c *gin.Context) {
	var body dto.GenerateNamesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		dto.BadRequest(c, "invalid request body", err.Error())
		return
	}

	req, err := body.ToEntity()
	if err != nil {
		dto.BadRequest(c, "invalid generation request", err.Error())
		return
	}

	class := admission.ClassDefault
	if req.Premium {
		class = admission.ClassPremium
	}

	ctx := c.Request.Context()
	if _, err := h.admission.Admit(ctx, class); err != nil {
		respondError(c, err)
		return
	}

	start := time.Now()
	resp, err := h.service.Generate(ctx, req)
	h.admission.OnComplete(err == nil, time.Since(start))

	if err != nil {
		logger.Error(ctx, "generation request failed", err,
			"industry", string(req.Industry),
			"workflow", req.Workflow,
		)
		respondError(c, err)
		return
	}

	dto.Success(c, resp)
}

// respondError 将应用错误映射为统一错误响应
func respondError(c *gin.Context, err error) {
	if appErr := apperrors.AsAppError(err); appErr != nil {
		dto.FromAppError(c, appErr)
		return
	}
	dto.InternalError(c, "internal server error")
}
