package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secira/TargetCapital-sub000/internal/plan"
	"github.com/secira/TargetCapital-sub000/internal/signal"
)

type scriptedStage struct {
	meta StageMeta
	run  func(ctx context.Context, st *State) error
}

func (s scriptedStage) Meta() StageMeta                          { return s.meta }
func (s scriptedStage) Run(ctx context.Context, st *State) error { return s.run(ctx, st) }

func okStage(name string) Stage {
	return scriptedStage{
		meta: StageMeta{Name: name},
		run:  func(context.Context, *State) error { return nil },
	}
}

func TestPipeline_ShortCircuitsOnFirstFailure(t *testing.T) {
	var calls []string
	first := scriptedStage{
		meta: StageMeta{Name: StageSubscription},
		run: func(_ context.Context, st *State) error {
			calls = append(calls, StageSubscription)
			st.SubscriptionTier = "pro"
			return nil
		},
	}
	failing := scriptedStage{
		meta: StageMeta{Name: StageFunds},
		run: func(_ context.Context, _ *State) error {
			calls = append(calls, StageFunds)
			return Failf(KindInsufficientFunds, "required margin 202000.00 exceeds available funds 100000.00")
		},
	}
	tail := scriptedStage{
		meta: StageMeta{Name: StageSignal},
		run: func(_ context.Context, _ *State) error {
			calls = append(calls, StageSignal)
			return nil
		},
	}

	p := New("pretrade", first, failing, tail)
	res := p.Run(context.Background(), "u1", signal.TradeSignal{Symbol: "INFY", Action: "buy"})

	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Nil(t, res.ExecutionPlan)
	assert.Equal(t, []string{StageSubscription, StageFunds}, calls)
	assert.Equal(t, StatusCompleted, res.StageStatus[StageSubscription])
	assert.Equal(t, StatusFailed, res.StageStatus[StageFunds])
	assert.Equal(t, StatusPending, res.StageStatus[StageSignal])
	assert.Equal(t, 1, res.Metadata.StagesCompleted)
	assert.Equal(t, 3, res.Metadata.TotalStages)
	assert.Equal(t, "pro", res.Metadata.SubscriptionTier)

	require.Len(t, res.ValidationErrors, 1)
	assert.Contains(t, res.ValidationErrors[0], "InsufficientFunds:")
	require.NotNil(t, res.Failure())
	assert.Equal(t, KindInsufficientFunds, res.Failure().Kind)
	assert.Equal(t, StageFunds, res.Failure().Stage)
}

func TestPipeline_WrapsUnexpectedErrors(t *testing.T) {
	boom := errors.New("directory offline")
	p := New("pretrade", scriptedStage{
		meta: StageMeta{Name: StageSubscription},
		run: func(context.Context, *State) error {
			return fmt.Errorf("resolve subscription tier: %w", boom)
		},
	})

	res := p.Run(context.Background(), "u1", signal.TradeSignal{})

	assert.False(t, res.Success)
	assert.Equal(t, StatusError, res.StageStatus[StageSubscription])
	require.NotNil(t, res.Failure())
	assert.Equal(t, KindInternalError, res.Failure().Kind)
	assert.ErrorIs(t, res.Failure(), boom)
}

func TestPipeline_AppliesStageTimeout(t *testing.T) {
	slow := scriptedStage{
		meta: StageMeta{Name: StageBroker, Timeout: 10 * time.Millisecond},
		run: func(ctx context.Context, _ *State) error {
			select {
			case <-ctx.Done():
				return &ValidationError{
					Kind:    KindBrokerUnavailable,
					Message: "broker directory did not respond in time",
					Err:     ctx.Err(),
				}
			case <-time.After(500 * time.Millisecond):
				return nil
			}
		},
	}

	p := New("pretrade", slow)
	res := p.Run(context.Background(), "u1", signal.TradeSignal{})

	assert.Equal(t, StatusError, res.StageStatus[StageBroker])
	require.NotNil(t, res.Failure())
	assert.Equal(t, KindBrokerUnavailable, res.Failure().Kind)
}

func TestPipeline_SuccessCarriesPlan(t *testing.T) {
	pl := &plan.ExecutionPlan{ID: "p-1", Ready: true}
	p := New("pretrade",
		okStage(StageSubscription),
		scriptedStage{
			meta: StageMeta{Name: StagePlan},
			run:  func(_ context.Context, st *State) error { st.Plan = pl; return nil },
		},
	)

	res := p.Run(context.Background(), "u1", signal.TradeSignal{Symbol: "INFY", Action: "buy"})

	assert.True(t, res.Success)
	assert.Equal(t, pl, res.ExecutionPlan)
	assert.Empty(t, res.ValidationErrors)
	assert.Nil(t, res.Failure())
	assert.Equal(t, 2, res.Metadata.StagesCompleted)
	assert.NotEmpty(t, res.Metadata.TraceID)
}

func TestNewSkipsNilStages(t *testing.T) {
	p := New("pretrade", nil, okStage("a"), nil)
	assert.Equal(t, []string{"a"}, p.StageNames())
}

func TestNewState_NormalizesSignal(t *testing.T) {
	st := NewState("u1", signal.TradeSignal{Symbol: " infy ", Action: "BUY", Timeframe: "1D"})

	assert.Equal(t, "INFY", st.Signal.Symbol)
	assert.Equal(t, "buy", st.Signal.Action)
	assert.Equal(t, "1d", st.Signal.Timeframe)
	assert.NotEmpty(t, st.TraceID)
}
