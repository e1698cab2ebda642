// Package plan defines the execution plan emitted when every validation
// stage passes. A plan is immutable once returned; order dispatch and any
// margin debit happen downstream.
package plan

import (
	"time"

	"github.com/google/uuid"

	"github.com/secira/TargetCapital-sub000/internal/signal"
)

// OrderTypeLimit 是当前唯一的订单类型：计划始终携带明确的入场价位。
const OrderTypeLimit = "limit"

// ExecutionPlan 是管线全量通过后产出的最终下单计划。
type ExecutionPlan struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Action   string  `json:"action"`
	Quantity float64 `json:"quantity"`

	EntryPrice  float64 `json:"entry_price"`
	TargetPrice float64 `json:"target_price"`
	StopLoss    float64 `json:"stop_loss"`

	OrderValue      float64 `json:"order_value"`
	RiskAmount      float64 `json:"risk_amount"`
	RewardAmount    float64 `json:"reward_amount"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`

	BrokerID   string `json:"broker_id"`
	BrokerName string `json:"broker_name"`

	OrderType   string             `json:"order_type"`
	ProductType signal.ProductType `json:"product_type"`

	Ready     bool      `json:"ready"`
	CreatedAt time.Time `json:"created_at"`
}

// NewID 生成计划 ID。
func NewID() string { return uuid.NewString() }
