// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"namepilot-ai-api/internal/application/admission"
	"namepilot-ai-api/internal/application/generation"
	"namepilot-ai-api/internal/interfaces/http/dto"
)

// StreamHandler SSE 流式生成处理器
type StreamHandler struct {
	service   *generation.Service
	admission *admission.Controller
}

// NewStreamHandler 创建流式生成处理器
func NewStreamHandler(service *generation.Service, admissionCtrl *admission.Controller) *StreamHandler {
	return &StreamHandler{
		service:   service,
		admission: admissionCtrl,
	}
}

// Stream 流式生成公司命名
// @Summary 流式生成公司命名
// @Description 通过 SSE 推送流水线各阶段的进度与结果
// @Tags Names
// @Accept json
// @Produce text/event-stream
// @Param request body dto.GenerateNamesRequest true "生成请求"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/names/stream [post]
func (h *StreamHandler) Stream(c *gin.Context) {
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

	ctx := c.Request.Context()
	if _, err := h.admission.Admit(ctx, admission.ClassStreaming); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	start := time.Now()
	success := true
	events := h.service.Stream(ctx, req)

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			if ev.Name == generation.EventError {
				success = false
			}
			// completion 与 error 都是终止事件
			return ev.Name != generation.EventCompletion && ev.Name != generation.EventError

		case <-ctx.Done():
			// 客户端断开
			success = false
			return false
		}
	})

	h.admission.OnComplete(success, time.Since(start))
}
