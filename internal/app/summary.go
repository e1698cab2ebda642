package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	pccfg "github.com/secira/TargetCapital-sub000/internal/config"
	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/policy"
)

type StartupSummary struct {
	Stages   []string
	Policies PolicySummary
	Accounts AccountSummary
}

type PolicySummary struct {
	Source       string
	Version      int64
	AllowedTiers []string
	Default      policy.RiskPolicy
	Tiers        map[string]policy.RiskPolicy
}

type AccountSummary struct {
	StorePath    string
	BaseTier     string
	FetchTimeout time.Duration
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[预检流水线 (PRE-TRADE PIPELINE)]")
	fmt.Printf("  阶段顺序: %s\n", formatList(s.Stages))
	fmt.Println()

	fmt.Println("[风控策略 (RISK POLICIES)]")
	fmt.Printf("  策略来源: %s\n", s.Policies.Source)
	if s.Policies.Version > 0 {
		fmt.Printf("  快照版本: %d\n", s.Policies.Version)
	}
	fmt.Printf("  准入等级: %s\n", formatList(s.Policies.AllowedTiers))
	fmt.Printf("  默认档位: %s\n", formatPolicy(s.Policies.Default))
	if len(s.Policies.Tiers) > 0 {
		tiers := make([]string, 0, len(s.Policies.Tiers))
		for tier := range s.Policies.Tiers {
			tiers = append(tiers, tier)
		}
		sort.Strings(tiers)
		for _, tier := range tiers {
			fmt.Printf("  > %s: %s\n", tier, formatPolicy(s.Policies.Tiers[tier]))
		}
	}
	fmt.Println()

	fmt.Println("[账户目录 (ACCOUNT DIRECTORY)]")
	fmt.Printf("  存储路径: %s\n", s.Accounts.StorePath)
	fmt.Printf("  基础等级: %s\n", s.Accounts.BaseTier)
	fmt.Printf("  拉取超时: %s\n", s.Accounts.FetchTimeout)
	fmt.Println(strings.Repeat("=", 80))
}

func buildSummary(cfg *pccfg.Config, pipe *pipeline.Pipeline, policies policy.Source) *StartupSummary {
	s := &StartupSummary{
		Stages: pipe.StageNames(),
		Accounts: AccountSummary{
			StorePath:    cfg.Accounts.StorePath,
			BaseTier:     cfg.Accounts.BaseTier,
			FetchTimeout: cfg.Accounts.FetchTimeout(),
		},
	}
	switch src := policies.(type) {
	case *policy.Registry:
		snap := src.Snapshot()
		s.Policies = PolicySummary{
			Source:       cfg.Risk.PoliciesPath,
			Version:      snap.Version,
			AllowedTiers: snap.AllowedTiers,
			Default:      snap.Default,
			Tiers:        snap.Tiers,
		}
	default:
		s.Policies = PolicySummary{
			Source:       "config inline (static)",
			AllowedTiers: policies.AllowedTiers(),
			Default:      policies.PolicyFor(""),
		}
	}
	return s
}

func formatPolicy(p policy.RiskPolicy) string {
	return fmt.Sprintf("盈亏比下限 %.2f / 单笔风险上限 %.2f%% / 资金缓冲 %.2f%%",
		p.MinRiskReward, p.MaxRiskPct, p.FundsBufferPct)
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
