// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "namepilot-ai-api/pkg/errors"
)

// Response 统一成功响应结构
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorResponse 统一错误响应结构
type ErrorResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
	ErrorCode  string   `json:"error_code,omitempty"`
	RetryAfter int      `json:"retry_after,omitempty"`
	TraceID    string   `json:"trace_id,omitempty"`
}

// Success 返回成功响应
func Success[T any](c *gin.Context, data T) {
	c.JSON(200, Response[T]{
		Success: true,
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// Error 返回错误响应
func Error(c *gin.Context, httpCode int, message string, errs ...string) {
	c.JSON(httpCode, ErrorResponse{
		Success: false,
		Message: message,
		Errors:  errs,
		TraceID: c.GetString("trace_id"),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string, errs ...string) {
	Error(c, 400, message, errs...)
}

// InternalError 返回 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, 500, message)
}

// FromAppError 按应用错误的码表映射 HTTP 状态与重试提示
func FromAppError(c *gin.Context, err *apperrors.AppError) {
	resp := ErrorResponse{
		Success:    false,
		Message:    err.Message,
		ErrorCode:  string(err.Code),
		RetryAfter: err.RetryAfter,
		TraceID:    c.GetString("trace_id"),
	}
	if err.Detail != "" {
		resp.Errors = []string{err.Detail}
	}
	if err.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(err.RetryAfter))
	}
	c.JSON(err.HTTPStatus, resp)
}
