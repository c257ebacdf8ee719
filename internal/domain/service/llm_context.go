// Package service 提供领域服务与 LLM 调用上下文
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyTier     llmCtxKey = "llm_tier"
)

func WithWorkflow(ctx context.Context, workflow string) context.Context {
	if ctx == nil {
		return nil
	}
	w := strings.TrimSpace(workflow)
	if w == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyWorkflow, w)
}

func WithTier(ctx context.Context, tier string) context.Context {
	if ctx == nil {
		return nil
	}
	t := strings.TrimSpace(tier)
	if t == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyTier, t)
}

func WithWorkflowTier(ctx context.Context, workflow, tier string) context.Context {
	return WithTier(WithWorkflow(ctx, workflow), tier)
}

func WorkflowFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	v := ctx.Value(llmCtxKeyWorkflow)
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}

func TierFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	v := ctx.Value(llmCtxKeyTier)
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}
