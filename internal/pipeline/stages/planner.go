package stages

import (
	"context"
	"time"

	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/plan"
	"github.com/secira/TargetCapital-sub000/internal/signal"
)

// ExecutionPlanner 把前序阶段的产出汇总为最终执行计划。
// 所有前置条件此前都已校验，正常情况下该阶段不会失败。
type ExecutionPlanner struct {
	meta pipeline.StageMeta
	now  func() time.Time
}

// NewExecutionPlanner 构造计划汇总阶段。
func NewExecutionPlanner() *ExecutionPlanner {
	return &ExecutionPlanner{
		meta: pipeline.StageMeta{Name: pipeline.StagePlan},
		now:  time.Now,
	}
}

// Meta 实现接口。
func (e *ExecutionPlanner) Meta() pipeline.StageMeta { return e.meta }

// Run 组装计划。持仓品种由信号声明的周期推断。
func (e *ExecutionPlanner) Run(ctx context.Context, st *pipeline.State) error {
	sig := st.Signal
	st.Plan = &plan.ExecutionPlan{
		ID:              plan.NewID(),
		Symbol:          sig.Symbol,
		Action:          sig.Action,
		Quantity:        st.PositionSize,
		EntryPrice:      sig.EntryPrice,
		TargetPrice:     sig.TargetPrice,
		StopLoss:        sig.StopLoss,
		OrderValue:      st.OrderValue,
		RiskAmount:      st.RiskAmount,
		RewardAmount:    st.RewardAmount,
		RiskRewardRatio: st.RiskRewardRatio,
		BrokerID:        st.Broker.ID,
		BrokerName:      st.Broker.Name,
		OrderType:       plan.OrderTypeLimit,
		ProductType:     signal.ProductFor(sig.Timeframe),
		Ready:           true,
		CreatedAt:       e.now().UTC(),
	}
	return nil
}
