package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Accounts.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %s", a.LogLevel)
	}
	return nil
}

func (a *AccountsConfig) validate() error {
	if strings.TrimSpace(a.StorePath) == "" {
		return fmt.Errorf("accounts.store_path cannot be empty")
	}
	if a.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("accounts.fetch_timeout_seconds must be > 0")
	}
	if strings.TrimSpace(a.BaseTier) == "" {
		return fmt.Errorf("accounts.base_tier cannot be empty")
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.MinRiskReward <= 0 {
		return fmt.Errorf("risk.min_risk_reward must be > 0")
	}
	if r.MaxRiskPct <= 0 || r.MaxRiskPct > 100 {
		return fmt.Errorf("risk.max_risk_pct must be in (0, 100]")
	}
	if r.FundsBufferPct < 0 || r.FundsBufferPct > 50 {
		return fmt.Errorf("risk.funds_buffer_pct must be in [0, 50]")
	}
	if strings.TrimSpace(r.PoliciesPath) == "" && len(r.AllowedTiers) == 0 {
		return fmt.Errorf("risk.allowed_tiers cannot be empty when policies_path is unset")
	}
	return nil
}
