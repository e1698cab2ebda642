package stages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/secira/TargetCapital-sub000/internal/account"
	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/policy"
	"github.com/secira/TargetCapital-sub000/internal/signal"
)

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) PrimaryBroker(ctx context.Context, userID string) (account.BrokerSnapshot, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(account.BrokerSnapshot), args.Error(1)
}

func riskPolicy() policy.RiskPolicy {
	return policy.RiskPolicy{MinRiskReward: 2.0, MaxRiskPct: 5.0, FundsBufferPct: 1.0}
}

func TestSubscriptionValidator_RecordsTierEvenWhenRejected(t *testing.T) {
	stage := NewSubscriptionValidator(fakeSubscriptions{}, testPolicies())
	st := pipeline.NewState("u-free", buySignal())

	err := stage.Run(context.Background(), st)

	var vErr *pipeline.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, pipeline.KindSubscriptionInsufficient, vErr.Kind)
	assert.Equal(t, "free", st.SubscriptionTier)
	// 策略参数同样落位，供审计与日志使用。
	assert.Equal(t, 5.0, st.Policy.MaxRiskPct)
}

func TestSubscriptionValidator_NormalizesTier(t *testing.T) {
	subs := fakeSubscriptions{tiers: map[string]string{"u1": "  PRO "}}
	stage := NewSubscriptionValidator(subs, testPolicies())
	st := pipeline.NewState("u1", buySignal())

	require.NoError(t, stage.Run(context.Background(), st))
	assert.Equal(t, "pro", st.SubscriptionTier)
}

func TestBrokerSelector_RecordsBrokerBeforeDisconnectCheck(t *testing.T) {
	snap := account.BrokerSnapshot{
		ID:              "lnk-9",
		Name:            "upstox",
		Status:          account.StatusPending,
		AvailableMargin: 40000,
	}
	stage := NewBrokerSelector(fakeDirectory{snap: snap}, 0)
	st := pipeline.NewState("u1", buySignal())

	err := stage.Run(context.Background(), st)

	var vErr *pipeline.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, pipeline.KindBrokerDisconnected, vErr.Kind)
	assert.Contains(t, vErr.Message, "upstox is pending")
	assert.Equal(t, "upstox", st.Broker.Name)
	// 未连接的链接不提供资金。
	assert.Zero(t, st.AvailableFunds)
}

func TestBrokerSelector_QueriesDirectoryByUser(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("PrimaryBroker", mock.Anything, "u-42").Return(connectedBroker(12345.5), nil).Once()

	stage := NewBrokerSelector(dir, 0)
	st := pipeline.NewState("u-42", buySignal())

	require.NoError(t, stage.Run(context.Background(), st))
	assert.Equal(t, "zerodha", st.Broker.Name)
	assert.Equal(t, 12345.5, st.AvailableFunds)
	dir.AssertExpectations(t)
}

func TestBrokerSelector_WrapsDirectoryFailure(t *testing.T) {
	dbErr := errors.New("sqlite: disk I/O error")
	dir := new(MockDirectory)
	dir.On("PrimaryBroker", mock.Anything, "u-42").Return(account.BrokerSnapshot{}, dbErr).Once()

	stage := NewBrokerSelector(dir, 0)
	st := pipeline.NewState("u-42", buySignal())

	err := stage.Run(context.Background(), st)

	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	// 目录故障不是规则失败，交由编排器按内部异常折算。
	var vErr *pipeline.ValidationError
	assert.False(t, errors.As(err, &vErr))
	dir.AssertExpectations(t)
}

func TestFundsValidator_PassesAtExactMargin(t *testing.T) {
	stage := NewFundsValidator()
	sig := buySignal()
	sig.Quantity = 10
	st := pipeline.NewState("u1", sig)
	st.Policy = riskPolicy()
	st.AvailableFunds = 1010 // exactly order value 1000 + 1% buffer

	require.NoError(t, stage.Run(context.Background(), st))
	assert.Equal(t, 1000.0, st.OrderValue)
	assert.Equal(t, 1010.0, st.RequiredMargin)
	assert.Equal(t, 10.0, st.PositionSize)
}

func TestFundsValidator_ZeroBufferRequiresOrderValueOnly(t *testing.T) {
	stage := NewFundsValidator()
	sig := buySignal()
	sig.Quantity = 10
	st := pipeline.NewState("u1", sig)
	st.Policy = policy.RiskPolicy{MinRiskReward: 2, MaxRiskPct: 5, FundsBufferPct: 0}
	st.AvailableFunds = 1000

	require.NoError(t, stage.Run(context.Background(), st))
	assert.Equal(t, 1000.0, st.RequiredMargin)
}

func TestSignalValidator_InconsistentLevels(t *testing.T) {
	stage := NewSignalValidator()

	t.Run("buy with stop above entry", func(t *testing.T) {
		st := pipeline.NewState("u1", signal.TradeSignal{
			Symbol: "INFY", Action: "buy",
			EntryPrice: 100, TargetPrice: 110, StopLoss: 105,
		})
		st.Policy = riskPolicy()

		err := stage.Run(context.Background(), st)

		var vErr *pipeline.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, pipeline.KindInvalidPriceLevels, vErr.Kind)
		assert.Contains(t, vErr.Message, "BUY")
	})

	t.Run("sell with target above entry", func(t *testing.T) {
		st := pipeline.NewState("u1", signal.TradeSignal{
			Symbol: "INFY", Action: "sell",
			EntryPrice: 100, TargetPrice: 110, StopLoss: 105,
		})
		st.Policy = riskPolicy()

		err := stage.Run(context.Background(), st)

		var vErr *pipeline.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, pipeline.KindInvalidPriceLevels, vErr.Kind)
		assert.Contains(t, vErr.Message, "SELL")
	})
}

func TestSignalValidator_ComputesPerUnitAmounts(t *testing.T) {
	stage := NewSignalValidator()
	st := pipeline.NewState("u1", buySignal())
	st.Policy = riskPolicy()
	st.PositionSize = 100

	require.NoError(t, stage.Run(context.Background(), st))
	assert.Equal(t, 5.0, st.RiskPerUnit)
	assert.Equal(t, 10.0, st.RewardPerUnit)
	assert.Equal(t, 500.0, st.RiskAmount)
	assert.Equal(t, 1000.0, st.RewardAmount)
	assert.Equal(t, 2.0, st.RiskRewardRatio)
}

func TestRiskCalculator_NoResizeAtExactCap(t *testing.T) {
	stage := NewRiskCalculator()
	st := pipeline.NewState("u1", buySignal())
	st.Policy = riskPolicy()
	st.AvailableFunds = 10000
	st.RiskAmount = 500 // exactly 5%
	st.PositionSize = 100

	require.NoError(t, stage.Run(context.Background(), st))
	assert.False(t, st.Resized)
	assert.Equal(t, 100.0, st.PositionSize)
	assert.Equal(t, 5.0, st.RiskPct)
}

func TestRiskCalculator_ResizeRecomputesAmounts(t *testing.T) {
	stage := NewRiskCalculator()
	st := pipeline.NewState("u1", signal.TradeSignal{
		Symbol: "IDEA", Action: "buy", EntryPrice: 0.95,
	})
	st.Policy = riskPolicy()
	st.AvailableFunds = 100000
	st.PositionSize = 100000
	st.RiskPerUnit = 0.2
	st.RewardPerUnit = 0.4
	st.RiskAmount = 20000
	st.RewardAmount = 40000

	require.NoError(t, stage.Run(context.Background(), st))
	assert.True(t, st.Resized)
	assert.Equal(t, 25000.0, st.PositionSize)
	assert.Equal(t, 23750.0, st.OrderValue)
	assert.Equal(t, 23987.5, st.RequiredMargin)
	assert.Equal(t, 5000.0, st.RiskAmount)
	assert.Equal(t, 10000.0, st.RewardAmount)
	assert.Equal(t, 5.0, st.RiskPct)
}

func TestRiskCalculator_ErrorsWithoutFunds(t *testing.T) {
	stage := NewRiskCalculator()
	st := pipeline.NewState("u1", buySignal())
	st.Policy = riskPolicy()

	err := stage.Run(context.Background(), st)

	require.Error(t, err)
	var vErr *pipeline.ValidationError
	assert.False(t, errors.As(err, &vErr))
}

func TestExecutionPlanner_BuildsPlanFromState(t *testing.T) {
	fixed := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	stage := NewExecutionPlanner()
	stage.now = func() time.Time { return fixed }

	sig := buySignal()
	st := pipeline.NewState("u1", sig)
	st.Broker = connectedBroker(100000)
	st.PositionSize = 100
	st.OrderValue = 10000
	st.RiskAmount = 500
	st.RewardAmount = 1000
	st.RiskRewardRatio = 2

	require.NoError(t, stage.Run(context.Background(), st))
	pl := st.Plan
	require.NotNil(t, pl)
	assert.NotEmpty(t, pl.ID)
	assert.Equal(t, "INFY", pl.Symbol)
	assert.Equal(t, 100.0, pl.Quantity)
	assert.Equal(t, "lnk-1", pl.BrokerID)
	assert.Equal(t, signal.ProductIntraday, pl.ProductType)
	assert.Equal(t, fixed, pl.CreatedAt)
	assert.True(t, pl.Ready)

	t.Run("unknown timeframe plans carry-forward", func(t *testing.T) {
		bare := buySignal()
		bare.Timeframe = ""
		st := pipeline.NewState("u1", bare)

		require.NoError(t, stage.Run(context.Background(), st))
		assert.Equal(t, signal.ProductCarryForward, st.Plan.ProductType)
	})
}
