package stages

import (
	"context"
	"fmt"

	"github.com/secira/TargetCapital-sub000/internal/logger"
	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/pkg/decmath"
)

// RiskCalculator 按单笔最大风险比例调整仓位。该阶段只调整不拒绝，
// 除非调整后仓位向下取整归零。
type RiskCalculator struct {
	meta pipeline.StageMeta
}

// NewRiskCalculator 构造风险调仓阶段。
func NewRiskCalculator() *RiskCalculator {
	return &RiskCalculator{meta: pipeline.StageMeta{Name: pipeline.StageRisk}}
}

// Meta 实现接口。
func (r *RiskCalculator) Meta() pipeline.StageMeta { return r.meta }

// Run 计算 risk_pct = risk_amount / available_funds × 100。超出上限时
// 以 floor(size × cap/risk_pct) 缩仓，并按新仓位重算各项金额；
// 正好等于上限不触发缩仓。
func (r *RiskCalculator) Run(ctx context.Context, st *pipeline.State) error {
	if st.AvailableFunds <= 0 {
		return fmt.Errorf("available funds not populated before risk sizing")
	}

	riskPct := decmath.PctOf(st.RiskAmount, st.AvailableFunds)
	st.RiskPct = riskPct
	maxPct := st.Policy.MaxRiskPct
	if decmath.LTE(riskPct, maxPct) {
		return nil
	}

	resized := decmath.ScaleUnits(st.PositionSize, maxPct, riskPct)
	if resized <= 0 {
		return pipeline.Failf(pipeline.KindPositionSizeZero,
			"position size rounds to zero after capping risk at %.2f%% (%.0f units carried %.2f%% risk)",
			maxPct, st.PositionSize, riskPct)
	}

	old := st.PositionSize
	st.PositionSize = resized
	st.Resized = true
	st.OrderValue = decmath.Mul(st.Signal.EntryPrice, resized)
	st.RequiredMargin = decmath.AddPct(st.OrderValue, st.Policy.FundsBufferPct)
	st.RiskAmount = decmath.Mul(st.RiskPerUnit, resized)
	st.RewardAmount = decmath.Mul(st.RewardPerUnit, resized)
	st.RiskPct = decmath.PctOf(st.RiskAmount, st.AvailableFunds)

	logger.Infof("[pipeline] 风险缩仓 user=%s symbol=%s %v -> %v (risk %.2f%% -> %.2f%%)",
		st.UserID, st.Signal.Symbol, old, resized, riskPct, st.RiskPct)
	return nil
}
