// Package pipeline implements the six-stage pre-trade validation pipeline:
// subscription → broker → funds → signal → risk → plan. Stages run in fixed
// order over a single typed state and the first failure halts the run.
package pipeline

import (
	"context"
	"errors"

	"github.com/secira/TargetCapital-sub000/internal/logger"
	"github.com/secira/TargetCapital-sub000/internal/metrics"
	"github.com/secira/TargetCapital-sub000/internal/signal"
)

// Pipeline 按固定顺序运行各阶段，任一失败立即短路，不重试不重入。
type Pipeline struct {
	name   string
	stages []Stage
}

// New 创建 Pipeline。阶段顺序即执行顺序。
func New(name string, stages ...Stage) *Pipeline {
	out := make([]Stage, 0, len(stages))
	for _, st := range stages {
		if st == nil {
			continue
		}
		out = append(out, st)
	}
	return &Pipeline{name: name, stages: out}
}

// StageNames 返回执行顺序中的阶段名。
func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Meta().Name)
	}
	return names
}

// Run 执行整条管线。规则失败与内部异常都折叠进 Result，
// 调用方始终拿到非 nil 的结果。
func (p *Pipeline) Run(ctx context.Context, userID string, sig signal.TradeSignal) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	st := NewState(userID, sig)
	res := newResult(p.StageNames(), len(p.stages))

	for i, stage := range p.stages {
		meta := stage.Meta()
		err := p.runStage(ctx, stage, st)
		if err == nil {
			res.StageStatus[meta.Name] = StatusCompleted
			res.Metadata.StagesCompleted = i + 1
			continue
		}
		vErr := intoValidationError(meta.Name, err)
		status := vErr.StageStatus()
		res.StageStatus[meta.Name] = status
		res.ValidationErrors = append(res.ValidationErrors, vErr.Error())
		res.failure = vErr
		metrics.RecordValidation(meta.Name, string(status))
		logger.Warnf("[pipeline] %s 在 %s 阶段被拦截 trace=%s user=%s: %v",
			p.name, meta.Name, st.TraceID, st.UserID, vErr)
		break
	}

	res.Metadata.TraceID = st.TraceID
	res.Metadata.SubscriptionTier = st.SubscriptionTier
	res.Metadata.BrokerUsed = st.Broker.Name

	if res.failure == nil {
		res.Success = true
		res.ExecutionPlan = st.Plan
		metrics.RecordValidation("", "success")
		if st.Plan != nil {
			metrics.RecordPlan(string(st.Plan.ProductType))
		}
		logger.Infof("[pipeline] %s 校验通过 trace=%s user=%s symbol=%s size=%v",
			p.name, st.TraceID, st.UserID, st.Signal.Symbol, st.PositionSize)
	}
	return res
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, st *State) error {
	meta := stage.Meta()
	runCtx := ctx
	var cancel context.CancelFunc
	if meta.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, meta.Timeout)
		defer cancel()
	}
	return stage.Run(runCtx, st)
}

// intoValidationError 将阶段返回的错误规整为结构化失败：
// 非 *ValidationError 的错误一律按内部异常处理。
func intoValidationError(stage string, err error) *ValidationError {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		if vErr.Stage == "" {
			vErr.Stage = stage
		}
		return vErr
	}
	return &ValidationError{Kind: KindInternalError, Stage: stage, Message: err.Error(), Err: err}
}
