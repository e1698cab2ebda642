// Package policy resolves per-tier risk parameters for the validation
// pipeline: minimum risk-reward, max per-trade risk and the funds buffer.
package policy

import "strings"

// RiskPolicy 定义一档订阅等级适用的风控参数。
type RiskPolicy struct {
	Tier           string  `mapstructure:"tier" yaml:"tier" json:"tier"`
	MinRiskReward  float64 `mapstructure:"min_risk_reward" yaml:"min_risk_reward" json:"min_risk_reward"`
	MaxRiskPct     float64 `mapstructure:"max_risk_pct" yaml:"max_risk_pct" json:"max_risk_pct"`
	FundsBufferPct float64 `mapstructure:"funds_buffer_pct" yaml:"funds_buffer_pct" json:"funds_buffer_pct"`
}

// DefaultPolicy 是未配置任何策略文件时的兜底参数。
func DefaultPolicy() RiskPolicy {
	return RiskPolicy{
		Tier:           "default",
		MinRiskReward:  2.0,
		MaxRiskPct:     5.0,
		FundsBufferPct: 1.0,
	}
}

// merge 以 base 为底，用 override 的非零字段覆盖。
func merge(base, override RiskPolicy) RiskPolicy {
	out := base
	if override.Tier != "" {
		out.Tier = override.Tier
	}
	if override.MinRiskReward > 0 {
		out.MinRiskReward = override.MinRiskReward
	}
	if override.MaxRiskPct > 0 {
		out.MaxRiskPct = override.MaxRiskPct
	}
	if override.FundsBufferPct > 0 {
		out.FundsBufferPct = override.FundsBufferPct
	}
	return out
}

// Source 是管线消费的只读策略视图。
type Source interface {
	// PolicyFor 返回该等级生效的风控参数（等级无专属配置时回落默认档）。
	PolicyFor(tier string) RiskPolicy
	// TierAllowed 判断等级是否允许进入交易管线（大小写不敏感）。
	TierAllowed(tier string) bool
	// AllowedTiers 返回准入等级名单，用于拼装失败提示。
	AllowedTiers() []string
}

// Static 是固定不变的策略源，用于未配置策略文件的部署和测试。
type Static struct {
	Allowed []string
	Policy  RiskPolicy
}

// NewStatic 构造单一策略的静态源。
func NewStatic(allowed []string, p RiskPolicy) Static {
	if p.MinRiskReward <= 0 {
		p.MinRiskReward = DefaultPolicy().MinRiskReward
	}
	if p.MaxRiskPct <= 0 {
		p.MaxRiskPct = DefaultPolicy().MaxRiskPct
	}
	if p.FundsBufferPct < 0 {
		p.FundsBufferPct = DefaultPolicy().FundsBufferPct
	}
	return Static{Allowed: allowed, Policy: p}
}

func (s Static) PolicyFor(string) RiskPolicy { return s.Policy }

func (s Static) TierAllowed(tier string) bool {
	return tierIn(tier, s.Allowed)
}

func (s Static) AllowedTiers() []string {
	return append([]string(nil), s.Allowed...)
}

func tierIn(target string, allowed []string) bool {
	target = strings.TrimSpace(target)
	if target == "" || len(allowed) == 0 {
		return false
	}
	for _, t := range allowed {
		if strings.EqualFold(strings.TrimSpace(t), target) {
			return true
		}
	}
	return false
}
