package config

import "strings"

// 默认值常量
const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppLogPath   = "/data/logs/precheck.log"
	defaultStorePath    = "/data/db/accounts.db"
	defaultFetchTimeout = 5
	defaultBaseTier     = "free"
	defaultMinRR        = 2.0
	defaultMaxRiskPct   = 5.0
	defaultFundsBuffer  = 1.0
)

var defaultAllowedTiers = []string{"pro", "institutional"}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Accounts.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (a *AccountsConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("accounts.store_path", &a.StorePath, defaultStorePath),
		stringFieldDefault("accounts.base_tier", &a.BaseTier, defaultBaseTier),
		fieldDefault{
			key:   "accounts.fetch_timeout_seconds",
			need:  func() bool { return a.FetchTimeoutSeconds <= 0 },
			apply: func() { a.FetchTimeoutSeconds = defaultFetchTimeout },
		},
	)
	a.BaseTier = strings.ToLower(strings.TrimSpace(a.BaseTier))
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "risk.min_risk_reward",
			need:  func() bool { return r.MinRiskReward <= 0 },
			apply: func() { r.MinRiskReward = defaultMinRR },
		},
		fieldDefault{
			key:   "risk.max_risk_pct",
			need:  func() bool { return r.MaxRiskPct <= 0 },
			apply: func() { r.MaxRiskPct = defaultMaxRiskPct },
		},
		fieldDefault{
			key:   "risk.funds_buffer_pct",
			need:  func() bool { return r.FundsBufferPct <= 0 },
			apply: func() { r.FundsBufferPct = defaultFundsBuffer },
		},
	)
	if len(r.AllowedTiers) == 0 && !keys.isSet("risk.allowed_tiers") {
		r.AllowedTiers = append([]string(nil), defaultAllowedTiers...)
	}
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
