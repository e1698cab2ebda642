package stages

import (
	"context"

	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/pkg/decmath"
)

// FundsValidator 校验订单价值（含费用缓冲）是否超出可用资金。
type FundsValidator struct {
	meta pipeline.StageMeta
}

// NewFundsValidator 构造资金校验阶段。
func NewFundsValidator() *FundsValidator {
	return &FundsValidator{meta: pipeline.StageMeta{Name: pipeline.StageFunds}}
}

// Meta 实现接口。
func (f *FundsValidator) Meta() pipeline.StageMeta { return f.meta }

// Run 计算 order_value = entry × qty，按策略缓冲上浮为所需保证金后
// 与可用资金比较，通过后以建议数量落位 position_size。
// 价位是否齐备由下一阶段判定，这里不做重复校验。
func (f *FundsValidator) Run(ctx context.Context, st *pipeline.State) error {
	qty := st.Signal.Quantity
	if qty <= 0 {
		qty = 1 // 未提供建议数量时按 1 个单位起步
	}

	orderValue := decmath.Mul(st.Signal.EntryPrice, qty)
	required := decmath.AddPct(orderValue, st.Policy.FundsBufferPct)
	if decmath.GT(required, st.AvailableFunds) {
		return pipeline.Failf(pipeline.KindInsufficientFunds,
			"required margin %.2f exceeds available funds %.2f", required, st.AvailableFunds)
	}

	st.OrderValue = orderValue
	st.RequiredMargin = required
	st.PositionSize = qty
	return nil
}
