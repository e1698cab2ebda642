package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/secira/TargetCapital-sub000/internal/account"
	pccfg "github.com/secira/TargetCapital-sub000/internal/config"
	"github.com/secira/TargetCapital-sub000/internal/logger"
	"github.com/secira/TargetCapital-sub000/internal/metrics"
	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/pipeline/stages"
	"github.com/secira/TargetCapital-sub000/internal/policy"
	"github.com/secira/TargetCapital-sub000/internal/store/gormstore"
)

type AppBuilder struct {
	cfg *pccfg.Config

	policySourceFn func(*pccfg.Config) (policy.Source, error)
	directoryFn    func(*pccfg.Config) (*gormstore.Store, error)
	stagesFn       func(stages.Deps) []pipeline.Stage

	subscriptionsOverride account.SubscriptionSource
	brokersOverride       account.BrokerDirectory
	policyOverride        policy.Source
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *pccfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		policySourceFn: buildPolicySource,
		directoryFn:    buildDirectory,
		stagesFn:       stages.Default,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	policies, err := b.resolvePolicies(cfg)
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ 风控策略已加载，准入等级: %v", policies.AllowedTiers())

	subs, brokers, directory, err := b.resolveDirectory(cfg)
	if err != nil {
		return nil, err
	}
	if directory != nil {
		logger.Infof("✓ 账户目录已就绪: %s (基础等级 %s)", cfg.Accounts.StorePath, cfg.Accounts.BaseTier)
	}

	stageList := b.stagesFn(stages.Deps{
		Subscriptions: subs,
		Brokers:       brokers,
		Policies:      policies,
		FetchTimeout:  cfg.Accounts.FetchTimeout(),
	})
	pipe := pipeline.New("pretrade", stageList...)
	logger.Infof("✓ 预检流水线已装配 %d 个阶段: %v", len(stageList), pipe.StageNames())

	var metricsSrv *http.Server
	if addr := strings.TrimSpace(cfg.App.MetricsAddr); addr != "" {
		metricsSrv = metrics.Serve(addr)
		logger.Infof("✓ 指标端点已启动: http://%s/metrics", addr)
	}

	return &App{
		cfg:       cfg,
		pipe:      pipe,
		directory: directory,
		policies:  policies,
		metrics:   metricsSrv,
		Summary:   buildSummary(cfg, pipe, policies),
	}, nil
}

func (b *AppBuilder) resolvePolicies(cfg *pccfg.Config) (policy.Source, error) {
	if b.policyOverride != nil {
		return b.policyOverride, nil
	}
	return b.policySourceFn(cfg)
}

// buildPolicySource 按配置决定策略来源：配置了 policies_path 时用支持热更新的
// Registry，否则退回配置内联参数构成的静态源。
func buildPolicySource(cfg *pccfg.Config) (policy.Source, error) {
	path := strings.TrimSpace(cfg.Risk.PoliciesPath)
	if path == "" {
		logger.Infof("risk.policies_path 未配置，使用配置内联的静态风控策略")
		return policy.NewStatic(cfg.Risk.AllowedTiers, policy.RiskPolicy{
			Tier:           "default",
			MinRiskReward:  cfg.Risk.MinRiskReward,
			MaxRiskPct:     cfg.Risk.MaxRiskPct,
			FundsBufferPct: cfg.Risk.FundsBufferPct,
		}), nil
	}
	reg, err := policy.NewRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("加载风控策略文件失败: %w", err)
	}
	return reg, nil
}

// resolveDirectory 返回管线消费的两个只读账户视图。两者都被注入覆盖时不再
// 初始化本地存储；否则打开 sqlite 目录并让它同时充当两个视图。
func (b *AppBuilder) resolveDirectory(cfg *pccfg.Config) (account.SubscriptionSource, account.BrokerDirectory, *gormstore.Store, error) {
	subs := b.subscriptionsOverride
	brokers := b.brokersOverride
	if subs != nil && brokers != nil {
		return subs, brokers, nil, nil
	}
	directory, err := b.directoryFn(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("初始化账户目录失败: %w", err)
	}
	if subs == nil {
		subs = directory
	}
	if brokers == nil {
		brokers = directory
	}
	return subs, brokers, directory, nil
}

func buildDirectory(cfg *pccfg.Config) (*gormstore.Store, error) {
	return gormstore.New(cfg.Accounts.StorePath, cfg.Accounts.BaseTier)
}

func WithPolicySource(src policy.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		if src != nil {
			b.policyOverride = src
		}
	}
}

func WithDirectoryOverrides(subs account.SubscriptionSource, brokers account.BrokerDirectory) AppBuilderOption {
	return func(b *AppBuilder) {
		if subs != nil {
			b.subscriptionsOverride = subs
		}
		if brokers != nil {
			b.brokersOverride = brokers
		}
	}
}

func WithStages(fn func(stages.Deps) []pipeline.Stage) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.stagesFn = fn
		}
	}
}
