package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secira/TargetCapital-sub000/internal/account"
	pccfg "github.com/secira/TargetCapital-sub000/internal/config"
	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/pipeline/stages"
	"github.com/secira/TargetCapital-sub000/internal/policy"
	"github.com/secira/TargetCapital-sub000/internal/signal"
)

type stubSubs struct{}

func (stubSubs) TierFor(context.Context, string) (string, error) { return "pro", nil }

type stubBrokers struct{}

func (stubBrokers) PrimaryBroker(context.Context, string) (account.BrokerSnapshot, error) {
	return account.BrokerSnapshot{
		ID:              "lnk-1",
		Name:            "zerodha",
		Status:          account.StatusConnected,
		AvailableMargin: 100000,
	}, nil
}

func testConfig() *pccfg.Config {
	return &pccfg.Config{
		App: pccfg.AppConfig{Env: "test", LogLevel: "error"},
		Accounts: pccfg.AccountsConfig{
			StorePath:           "unused.db",
			FetchTimeoutSeconds: 2,
			BaseTier:            "free",
		},
		Risk: pccfg.RiskConfig{
			AllowedTiers:   []string{"pro"},
			MinRiskReward:  2.0,
			MaxRiskPct:     5.0,
			FundsBufferPct: 1.0,
		},
	}
}

func TestNewApp_NilConfig(t *testing.T) {
	_, err := NewApp(nil)
	require.Error(t, err)
}

func TestAppBuilder_BuildWithOverrides(t *testing.T) {
	builder := NewAppBuilder(testConfig(),
		WithDirectoryOverrides(stubSubs{}, stubBrokers{}),
	)

	a, err := builder.Build(context.Background())
	require.NoError(t, err)
	defer a.Close()

	// 两个账户视图都被注入时不落地本地存储。
	assert.Nil(t, a.Directory())
	require.NotNil(t, a.Pipeline())
	assert.Equal(t, []string{
		pipeline.StageSubscription,
		pipeline.StageBroker,
		pipeline.StageFunds,
		pipeline.StageSignal,
		pipeline.StageRisk,
		pipeline.StagePlan,
	}, a.Pipeline().StageNames())

	require.NotNil(t, a.Summary)
	assert.Equal(t, "config inline (static)", a.Summary.Policies.Source)
	assert.Equal(t, []string{"pro"}, a.Summary.Policies.AllowedTiers)
	assert.Equal(t, 2*time.Second, a.Summary.Accounts.FetchTimeout)

	res := a.Pipeline().Run(context.Background(), "u1", signal.TradeSignal{
		Symbol:      "INFY",
		Action:      "buy",
		EntryPrice:  100,
		TargetPrice: 110,
		StopLoss:    95,
		Quantity:    100,
	})
	require.True(t, res.Success)
	assert.Equal(t, "zerodha", res.Metadata.BrokerUsed)
}

func TestAppBuilder_UsesRegistryWhenConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk_policies.yaml")
	content := "allowed_tiers: [pro, institutional]\n" +
		"default:\n" +
		"  min_risk_reward: 2.0\n" +
		"  max_risk_pct: 5.0\n" +
		"  funds_buffer_pct: 1.0\n" +
		"tiers:\n" +
		"  institutional:\n" +
		"    min_risk_reward: 1.5\n" +
		"    max_risk_pct: 10.0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := testConfig()
	cfg.Risk.PoliciesPath = path

	a, err := NewAppBuilder(cfg, WithDirectoryOverrides(stubSubs{}, stubBrokers{})).Build(context.Background())
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Policies().(*policy.Registry)
	assert.True(t, ok)
	assert.Equal(t, path, a.Summary.Policies.Source)
	assert.EqualValues(t, 1, a.Summary.Policies.Version)
	assert.Equal(t, 1.5, a.Policies().PolicyFor("institutional").MinRiskReward)
}

func TestAppBuilder_WithStages(t *testing.T) {
	builder := NewAppBuilder(testConfig(),
		WithDirectoryOverrides(stubSubs{}, stubBrokers{}),
		WithStages(func(stages.Deps) []pipeline.Stage {
			return []pipeline.Stage{stages.NewFundsValidator()}
		}),
	)

	a, err := builder.Build(context.Background())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{pipeline.StageFunds}, a.Pipeline().StageNames())
}

func TestAppBuilder_RejectsBadPolicyFile(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.PoliciesPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewAppBuilder(cfg, WithDirectoryOverrides(stubSubs{}, stubBrokers{})).Build(context.Background())
	require.Error(t, err)
}
