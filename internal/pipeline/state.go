package pipeline

import (
	"github.com/google/uuid"

	"github.com/secira/TargetCapital-sub000/internal/account"
	"github.com/secira/TargetCapital-sub000/internal/plan"
	"github.com/secira/TargetCapital-sub000/internal/policy"
	"github.com/secira/TargetCapital-sub000/internal/signal"
)

// State 是单次校验调用的工作状态。每次调用独占一份，阶段按序
// 单协程读写，调用结束即丢弃，因此不需要任何锁。
type State struct {
	TraceID string
	UserID  string
	Signal  signal.TradeSignal

	// Policy 是订阅阶段解析出的生效风控参数，后续阶段只读。
	Policy policy.RiskPolicy

	SubscriptionTier string
	Broker           account.BrokerSnapshot
	AvailableFunds   float64

	OrderValue     float64
	RequiredMargin float64
	PositionSize   float64
	Resized        bool

	RiskPerUnit     float64
	RewardPerUnit   float64
	RiskAmount      float64
	RewardAmount    float64
	RiskRewardRatio float64
	RiskPct         float64

	Plan *plan.ExecutionPlan
}

// NewState 构造一次调用的初始状态并分配追踪 ID。
func NewState(userID string, sig signal.TradeSignal) *State {
	sig.Normalize()
	return &State{
		TraceID: uuid.NewString(),
		UserID:  userID,
		Signal:  sig,
	}
}
