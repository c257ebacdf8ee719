package generation

import (
	"context"
	"time"

	"namepilot-ai-api/internal/domain/entity"
	wfmodel "namepilot-ai-api/internal/workflow/model"
	apperrors "namepilot-ai-api/pkg/errors"
	"namepilot-ai-api/pkg/logger"
	"namepilot-ai-api/pkg/metrics"
)

// SSE 事件名
const (
	EventStreamStart          = "stream_start"
	EventProgress             = "progress"
	EventNamesBatch           = "names_batch"
	EventAnalysisProgress     = "analysis_progress"
	EventOptimizationComplete = "optimization_complete"
	EventCompletion           = "completion"
	EventError                = "error"
)

// StreamEvent 推送给客户端的一条命名事件
type StreamEvent struct {
	Name string
	Data any
}

// ProgressPayload 进度事件载荷
type ProgressPayload struct {
	Phase    string `json:"phase"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
}

// NamesBatchPayload 候选批次事件载荷
type NamesBatchPayload struct {
	Names          []string `json:"names"`
	TotalGenerated int      `json:"total_generated"`
}

// AnalysisProgressPayload 分析进度事件载荷
type AnalysisProgressPayload struct {
	Analyzed int    `json:"analyzed"`
	Message  string `json:"message"`
}

// OptimizationCompletePayload 优化完成事件载荷
type OptimizationCompletePayload struct {
	FinalCount int `json:"final_count"`
}

// ErrorPayload 错误事件载荷
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Stream 流式生成：与 Generate 相同的流水线，阶段完成即推事件。
// 通道在 completion 或 error 事件后关闭。
func (s *Service) Stream(ctx context.Context, req *entity.GenerationRequest) <-chan StreamEvent {
	ch := make(chan StreamEvent, 16)

	go func() {
		defer close(ch)
		start := time.Now()

		emit := func(ev StreamEvent) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(StreamEvent{Name: EventStreamStart, Data: map[string]any{
			"workflow": req.Workflow,
			"count":    req.Count,
		}}) {
			return
		}

		selection := s.optimizer.SelectModel(ctx, req)

		if hit := s.semantic.Check(ctx, req); hit != nil {
			s.optimizer.TrackSavings(ctx, selection.EstimatedCost)
			metrics.GenerationTotal.WithLabelValues(req.Workflow, "cache_hit").Inc()
			emit(StreamEvent{Name: EventProgress, Data: ProgressPayload{
				Phase:    "cache",
				Message:  "served from cache",
				Progress: 100,
			}})
			emit(StreamEvent{Name: EventCompletion, Data: Response{
				Names: hit.Result.Names,
				Metadata: Metadata{
					Workflow: req.Workflow,
					Cost: entity.CostInfo{
						Tier:          hit.Result.Tier,
						EstimatedCost: selection.EstimatedCost,
						Rationale:     selection.Rationale,
					},
					Cache: entity.CacheInfo{
						Hit:        true,
						HitType:    hit.Type,
						Similarity: hit.Similarity,
						Savings:    selection.EstimatedCost,
					},
					Elapsed: time.Since(start).String(),
				},
			}})
			return
		}

		progress := func(kind wfmodel.StageKind, index, total int, out *wfmodel.StageOutput) {
			percent := (index + 1) * 100 / total
			emit(StreamEvent{Name: EventProgress, Data: ProgressPayload{
				Phase:    string(kind),
				Message:  out.Summary,
				Progress: percent,
			}})

			switch kind {
			case wfmodel.StageCreative:
				names := make([]string, 0, len(out.Candidates))
				for _, c := range out.Candidates {
					names = append(names, c.Name)
				}
				emit(StreamEvent{Name: EventNamesBatch, Data: NamesBatchPayload{
					Names:          names,
					TotalGenerated: len(names),
				}})
			case wfmodel.StageAnalysis:
				emit(StreamEvent{Name: EventAnalysisProgress, Data: AnalysisProgressPayload{
					Analyzed: len(out.Analyses),
					Message:  out.Summary,
				}})
			case wfmodel.StageOptimization:
				emit(StreamEvent{Name: EventOptimizationComplete, Data: OptimizationCompletePayload{
					FinalCount: len(out.Ranked),
				}})
			}
		}

		resp, err := s.runPipeline(ctx, req, &selection, progress, start)
		if err != nil {
			logger.Error(ctx, "streaming generation failed", err)
			payload := ErrorPayload{Message: err.Error()}
			if appErr := apperrors.AsAppError(err); appErr != nil {
				payload.Message = appErr.Message
				payload.Code = string(appErr.Code)
			}
			emit(StreamEvent{Name: EventError, Data: payload})
			return
		}

		emit(StreamEvent{Name: EventCompletion, Data: resp})
	}()

	return ch
}
