// Package workflow 实现多阶段命名工作流的编排
package workflow

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"namepilot-ai-api/internal/config"
	"namepilot-ai-api/internal/domain/entity"
	wfmodel "namepilot-ai-api/internal/workflow/model"
	wfnode "namepilot-ai-api/internal/workflow/node"
	workflowport "namepilot-ai-api/internal/workflow/port"
	"namepilot-ai-api/internal/workflow/stage"
	apperrors "namepilot-ai-api/pkg/errors"
	"namepilot-ai-api/pkg/logger"
	"namepilot-ai-api/pkg/metrics"
)

// 工作流模板：固定阶段词汇表上的命名有序序列
var templates = map[string][]wfmodel.StageKind{
	"fast": {
		wfmodel.StageCreative,
		wfmodel.StageValidation,
		wfmodel.StageOptimization,
	},
	"standard": {
		wfmodel.StageResearch,
		wfmodel.StageCreative,
		wfmodel.StageAnalysis,
		wfmodel.StageValidation,
		wfmodel.StageOptimization,
	},
	"comprehensive": {
		wfmodel.StageResearch,
		wfmodel.StageCreative,
		wfmodel.StageAnalysis,
		wfmodel.StageValidation,
		wfmodel.StageOptimization,
	},
	// analysis 执行两次：校验剔除后再复评一轮
	"quality_focused": {
		wfmodel.StageCreative,
		wfmodel.StageAnalysis,
		wfmodel.StageValidation,
		wfmodel.StageAnalysis,
		wfmodel.StageOptimization,
	},
}

// ProgressFunc 阶段完成回调，流式端点用它推进度事件。
// 同一次执行内按阶段顺序串行调用。
type ProgressFunc func(kind wfmodel.StageKind, index, total int, out *wfmodel.StageOutput)

// Result 一次工作流执行的产出
type Result struct {
	Candidates []entity.OptimizedCandidate
	Execution  *entity.WorkflowExecution
	TokensUsed int
}

// StageHealth 单个阶段的健康快照
type StageHealth struct {
	Stage       string        `json:"stage"`
	Successes   int64         `json:"successes"`
	Failures    int64         `json:"failures"`
	Fallbacks   int64         `json:"fallbacks"`
	AvgDuration time.Duration `json:"avg_duration"`
	LastError   string        `json:"last_error,omitempty"`
	LastRunAt   time.Time     `json:"last_run_at,omitempty"`
}

type stageStats struct {
	successes int64
	failures  int64
	fallbacks int64
	totalDur  time.Duration
	lastError string
	lastRunAt time.Time
}

// Orchestrator 按模板顺序执行阶段，状态为请求级、互不共享。
type Orchestrator struct {
	cfg      *config.WorkflowConfig
	registry map[wfmodel.StageKind]stage.Stage

	mu         sync.Mutex
	stats      map[wfmodel.StageKind]*stageStats
	executions []*entity.WorkflowExecution
}

// NewOrchestrator 创建编排器并注册全部阶段实现
func NewOrchestrator(cfg *config.Config, factory workflowport.ChatModelFactory) *Orchestrator {
	return &Orchestrator{
		cfg: &cfg.Workflow,
		registry: map[wfmodel.StageKind]stage.Stage{
			wfmodel.StageResearch:     stage.NewResearchStage(),
			wfmodel.StageCreative:     stage.NewCreativeStage(factory),
			wfmodel.StageAnalysis:     stage.NewAnalysisStage(factory),
			wfmodel.StageValidation:   stage.NewValidationStage(factory),
			wfmodel.StageOptimization: stage.NewOptimizationStage(),
		},
		stats: make(map[wfmodel.StageKind]*stageStats),
	}
}

// Templates 返回可用模板名
func (o *Orchestrator) Templates() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	return names
}

// ResolveTemplate 解析模板名为阶段序列
func (o *Orchestrator) ResolveTemplate(name string) ([]wfmodel.StageKind, error) {
	if name == "" {
		name = o.cfg.DefaultTemplate
	}
	stages, ok := templates[name]
	if !ok {
		return nil, apperrors.New(apperrors.CodeInvalidParam, fmt.Sprintf("unknown workflow template: %s", name))
	}
	return stages, nil
}

// Run 执行一次工作流：阶段严格按模板顺序串行，
// 上下文超时会中止剩余阶段并返回部分失败错误，而不是部分结果。
func (o *Orchestrator) Run(ctx context.Context, req *entity.GenerationRequest, tier entity.ModelTier, progress ProgressFunc) (*Result, error) {
	stages, err := o.ResolveTemplate(req.Workflow)
	if err != nil {
		return nil, err
	}
	templateName := req.Workflow
	if templateName == "" {
		templateName = o.cfg.DefaultTemplate
	}

	st := wfmodel.NewState(&wfmodel.GenerateInput{
		Request:         req,
		Tier:            tier,
		Template:        templateName,
		TargetCount:     req.Count,
		OvershootFactor: o.cfg.OvershootFactor,
	})

	exec := &entity.WorkflowExecution{
		Template:  templateName,
		StartedAt: time.Now(),
	}

	for i, kind := range stages {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeRequestTimeout,
				fmt.Sprintf("workflow aborted before stage %s", kind))
		}

		out, record, err := o.runStage(ctx, kind, st)
		if err != nil {
			o.recordExecution(exec)
			return nil, err
		}
		mergeOutput(st, out)
		exec.Stages = append(exec.Stages, *record)

		if progress != nil {
			progress(kind, i, len(stages), out)
		}
	}

	if len(st.Ranked) == 0 {
		return nil, apperrors.New(apperrors.CodeGenerationFailed, "workflow produced no ranked candidates")
	}

	exec.TotalElapsed = time.Since(exec.StartedAt)
	exec.QualityScore = meanScore(st.Ranked)
	o.recordExecution(exec)

	return &Result{
		Candidates: st.Ranked,
		Execution:  exec,
		TokensUsed: st.TokensUsed,
	}, nil
}

// runStage 带重试执行单个阶段；创意阶段重试耗尽后走启发式兜底，
// 分析/校验阶段则硬失败。
func (o *Orchestrator) runStage(ctx context.Context, kind wfmodel.StageKind, st *wfmodel.State) (*wfmodel.StageOutput, *entity.StageRecord, error) {
	impl, ok := o.registry[kind]
	if !ok {
		return nil, nil, apperrors.New(apperrors.CodeWorkflowStageFailed, fmt.Sprintf("stage not registered: %s", kind))
	}

	maxRetries := o.cfg.StageMaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	start := time.Now()
	var out *wfmodel.StageOutput
	var lastErr error
	retries := 0

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			retries = attempt
			if err := sleepBackoff(ctx, o.cfg.StageRetryDelay, attempt); err != nil {
				lastErr = err
				break
			}
		}
		out, lastErr = impl.Run(ctx, st)
		if lastErr == nil {
			break
		}
		logger.Warn(ctx, "workflow stage failed",
			"stage", string(kind),
			"attempt", attempt+1,
			"error", lastErr.Error(),
		)
		if ctx.Err() != nil {
			break
		}
	}

	elapsed := time.Since(start)

	if lastErr != nil {
		// 生成型阶段允许降级到确定性兜底，保证永不静默返回空结果
		if kind == wfmodel.StageCreative && ctx.Err() == nil {
			target := stage.OvershootTarget(st.Input.TargetCount, st.Input.OvershootFactor)
			candidates := stage.HeuristicCandidates(st.Input.Request, target)
			if len(candidates) > 0 {
				logger.Warn(ctx, "creative stage exhausted retries, using heuristic fallback",
					"candidates", len(candidates),
				)
				out = &wfmodel.StageOutput{
					Candidates: candidates,
					Summary:    fmt.Sprintf("heuristic fallback produced %d candidates", len(candidates)),
					Fallback:   true,
				}
				o.trackStage(kind, elapsed, true, true, lastErr)
				metrics.StageTotal.WithLabelValues(string(kind), "fallback").Inc()
				metrics.StageDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
				return out, &entity.StageRecord{
					Stage:    string(kind),
					Summary:  out.Summary,
					Elapsed:  elapsed,
					Retries:  retries,
					Fallback: true,
				}, nil
			}
		}

		o.trackStage(kind, elapsed, false, false, lastErr)
		metrics.StageTotal.WithLabelValues(string(kind), "error").Inc()
		metrics.StageDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
		if ctx.Err() != nil {
			return nil, nil, apperrors.Wrap(lastErr, apperrors.CodeRequestTimeout,
				fmt.Sprintf("stage %s aborted by deadline", kind))
		}
		return nil, nil, apperrors.Wrap(lastErr, apperrors.CodeWorkflowStageFailed,
			fmt.Sprintf("stage %s failed after %d retries", kind, retries))
	}

	o.trackStage(kind, elapsed, true, false, nil)
	metrics.StageTotal.WithLabelValues(string(kind), "success").Inc()
	metrics.StageDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())

	return out, &entity.StageRecord{
		Stage:   string(kind),
		Summary: out.Summary,
		Elapsed: elapsed,
		Retries: retries,
	}, nil
}

// mergeOutput 将阶段产出显式合入状态：
// 每种输出类型一条合并规则，校验合并时剔除 FAIL 候选。
func mergeOutput(st *wfmodel.State, out *wfmodel.StageOutput) {
	if out == nil {
		return
	}
	st.TokensUsed += out.TokensUsed

	if out.Brief != nil {
		st.Brief = out.Brief
	}
	if len(out.Candidates) > 0 {
		st.Candidates = out.Candidates
	}
	for i := range out.Analyses {
		a := out.Analyses[i]
		st.Analyses[wfnode.NormalizeName(a.Name)] = &a
	}
	if len(out.Validations) > 0 {
		failed := make(map[string]bool)
		for i := range out.Validations {
			v := out.Validations[i]
			key := wfnode.NormalizeName(v.Name)
			st.Validations[key] = &v
			if v.Status == entity.ValidationFail {
				failed[key] = true
			}
		}
		if len(failed) > 0 {
			kept := st.Candidates[:0]
			for _, c := range st.Candidates {
				if !failed[wfnode.NormalizeName(c.Name)] {
					kept = append(kept, c)
				}
			}
			st.Candidates = kept
		}
	}
	if len(out.Ranked) > 0 {
		st.Ranked = out.Ranked
	}
}

// sleepBackoff 指数退避加抖动，上下文取消时立即返回
func sleepBackoff(ctx context.Context, base time.Duration, attempt int) error {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	// 抖动 ±25%，避免并发请求的重试同步
	jitter := time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
	delay += jitter

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func meanScore(ranked []entity.OptimizedCandidate) float64 {
	if len(ranked) == 0 {
		return 0
	}
	var sum float64
	for _, c := range ranked {
		sum += c.FinalScore
	}
	return sum / float64(len(ranked))
}

func (o *Orchestrator) trackStage(kind wfmodel.StageKind, elapsed time.Duration, success, fallback bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.stats[kind]
	if !ok {
		s = &stageStats{}
		o.stats[kind] = s
	}
	if success {
		s.successes++
	} else {
		s.failures++
	}
	if fallback {
		s.fallbacks++
	}
	if err != nil {
		s.lastError = err.Error()
	}
	s.totalDur += elapsed
	s.lastRunAt = time.Now()
}

func (o *Orchestrator) recordExecution(exec *entity.WorkflowExecution) {
	tail := o.cfg.ExecutionLogTail
	if tail <= 0 {
		tail = 20
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.executions = append(o.executions, exec)
	if len(o.executions) > tail {
		o.executions = o.executions[len(o.executions)-tail:]
	}
}

// Health 返回各阶段的健康快照
func (o *Orchestrator) Health() []StageHealth {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]StageHealth, 0, len(o.stats))
	for kind, s := range o.stats {
		h := StageHealth{
			Stage:     string(kind),
			Successes: s.successes,
			Failures:  s.failures,
			Fallbacks: s.fallbacks,
			LastError: s.lastError,
			LastRunAt: s.lastRunAt,
		}
		if total := s.successes + s.failures; total > 0 {
			h.AvgDuration = s.totalDur / time.Duration(total)
		}
		out = append(out, h)
	}
	return out
}

// RecentExecutions 返回留存的执行日志尾部，按时间先后排列
func (o *Orchestrator) RecentExecutions() []*entity.WorkflowExecution {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*entity.WorkflowExecution, len(o.executions))
	copy(out, o.executions)
	return out
}
