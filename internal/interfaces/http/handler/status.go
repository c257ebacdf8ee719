// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"namepilot-ai-api/internal/application/admission"
	appcache "namepilot-ai-api/internal/application/cache"
	"namepilot-ai-api/internal/application/cost"
	"namepilot-ai-api/internal/application/generation"
	"namepilot-ai-api/internal/interfaces/http/dto"
)

// StatusHandler 运行状态查询处理器
type StatusHandler struct {
	service   *generation.Service
	admission *admission.Controller
}

// NewStatusHandler 创建运行状态查询处理器
func NewStatusHandler(service *generation.Service, admissionCtrl *admission.Controller) *StatusHandler {
	return &StatusHandler{
		service:   service,
		admission: admissionCtrl,
	}
}

// CostStatusResponse 成本优化状态响应
type CostStatusResponse struct {
	Budget    cost.LedgerSnapshot `json:"budget"`
	Cache     appcache.Stats      `json:"cache"`
	Admission admission.Status    `json:"admission"`
}

// CostOptimization 成本优化状态
// @Summary 成本优化状态
// @Description 查询预算账本、缓存命中率与准入控制状态
// @Tags Status
// @Produce json
// @Success 200 {object} dto.Response[CostStatusResponse]
// @Router /v1/status/cost-optimization [get]
func (h *StatusHandler) CostOptimization(c *gin.Context) {
	cost := h.service.CostStatus()

	dto.Success(c, CostStatusResponse{
		Budget:    cost.Ledger,
		Cache:     cost.Cache,
		Admission: h.admission.Status(),
	})
}

// Agents 智能体流水线状态
// @Summary 智能体流水线状态
// @Description 查询可用工作流模板、各阶段健康度与最近执行记录
// @Tags Status
// @Produce json
// @Success 200 {object} dto.Response[generation.AgentStatus]
// @Router /v1/status/agents [get]
func (h *StatusHandler) Agents(c *gin.Context) {
	dto.Success(c, h.service.AgentStatus())
}
