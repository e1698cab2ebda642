package stages

import (
	"context"
	"strings"

	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/pkg/decmath"
	"github.com/secira/TargetCapital-sub000/internal/signal"
)

// SignalValidator 校验信号的完整性与质量（风险回报比）。
type SignalValidator struct {
	meta pipeline.StageMeta
}

// NewSignalValidator 构造信号校验阶段。
func NewSignalValidator() *SignalValidator {
	return &SignalValidator{meta: pipeline.StageMeta{Name: pipeline.StageSignal}}
}

// Meta 实现接口。
func (v *SignalValidator) Meta() pipeline.StageMeta { return v.meta }

// Run 按方向计算 risk/reward：
//   - BUY:  risk = entry − stop, reward = target − entry
//   - SELL: risk = stop − entry, reward = entry − target
//
// 比值低于策略下限则失败，正好等于下限放行。通过后把单位风险与
// 金额折算写入状态。
func (v *SignalValidator) Run(ctx context.Context, st *pipeline.State) error {
	sig := st.Signal
	if missing := missingPrices(sig); len(missing) > 0 {
		return pipeline.Failf(pipeline.KindIncompleteSignal,
			"signal is missing required price levels: %s", strings.Join(missing, ", "))
	}

	var risk, reward float64
	switch sig.Action {
	case signal.ActionBuy:
		risk = sig.EntryPrice - sig.StopLoss
		reward = sig.TargetPrice - sig.EntryPrice
	case signal.ActionSell:
		risk = sig.StopLoss - sig.EntryPrice
		reward = sig.EntryPrice - sig.TargetPrice
	default:
		return pipeline.Failf(pipeline.KindIncompleteSignal,
			"signal action must be buy or sell, got %q", sig.Action)
	}

	if risk <= 0 || reward <= 0 {
		return pipeline.Failf(pipeline.KindInvalidPriceLevels,
			"price levels are inconsistent for a %s: risk=%.4f reward=%.4f",
			strings.ToUpper(sig.Action), risk, reward)
	}

	ratio := reward / risk
	st.RiskRewardRatio = ratio
	if decmath.LT(ratio, st.Policy.MinRiskReward) {
		return pipeline.Failf(pipeline.KindSignalQualityTooLow,
			"risk-reward ratio %.2f is below the required minimum %.2f",
			ratio, st.Policy.MinRiskReward)
	}

	st.RiskPerUnit = risk
	st.RewardPerUnit = reward
	st.RiskAmount = decmath.Mul(risk, st.PositionSize)
	st.RewardAmount = decmath.Mul(reward, st.PositionSize)
	return nil
}
