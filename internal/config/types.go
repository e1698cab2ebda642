package config

import (
	"strings"
	"time"
)

// Config 是预检服务的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Accounts AccountsConfig `toml:"accounts"`
	Risk     RiskConfig     `toml:"risk"`
}

type AppConfig struct {
	Env         string `toml:"env"`
	LogLevel    string `toml:"log_level"`
	LogPath     string `toml:"log_path"`
	MetricsAddr string `toml:"metrics_addr"` // 为空时不暴露指标端口
}

// AccountsConfig 描述订阅与券商目录的访问方式。
type AccountsConfig struct {
	StorePath           string `toml:"store_path"`
	FetchTimeoutSeconds int    `toml:"fetch_timeout_seconds"` // 单次目录查询超时
	BaseTier            string `toml:"base_tier"`             // 订阅过期后回落的等级
}

// FetchTimeout 返回目录查询的超时时长。
func (a AccountsConfig) FetchTimeout() time.Duration {
	return time.Duration(a.FetchTimeoutSeconds) * time.Second
}

// RiskConfig 控制策略文件路径与未配置文件时的兜底风控参数。
type RiskConfig struct {
	PoliciesPath   string   `toml:"policies_path"` // 为空时使用固定兜底策略
	AllowedTiers   []string `toml:"allowed_tiers"`
	MinRiskReward  float64  `toml:"min_risk_reward"`
	MaxRiskPct     float64  `toml:"max_risk_pct"`
	FundsBufferPct float64  `toml:"funds_buffer_pct"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
