package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
app:
  env: prod
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "/data/db/accounts.db", cfg.Accounts.StorePath)
	assert.Equal(t, "free", cfg.Accounts.BaseTier)
	assert.Equal(t, 5*time.Second, cfg.Accounts.FetchTimeout())
	assert.Equal(t, 2.0, cfg.Risk.MinRiskReward)
	assert.Equal(t, 5.0, cfg.Risk.MaxRiskPct)
	assert.Equal(t, 1.0, cfg.Risk.FundsBufferPct)
	assert.Equal(t, []string{"pro", "institutional"}, cfg.Risk.AllowedTiers)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfigFile(t, `
app:
  log_level: debug
accounts:
  store_path: /tmp/dir.db
  fetch_timeout_seconds: 2
  base_tier: Basic
risk:
  policies_path: configs/risk_policies.yaml
  allowed_tiers: [institutional]
  max_risk_pct: 3.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "/tmp/dir.db", cfg.Accounts.StorePath)
	assert.Equal(t, 2*time.Second, cfg.Accounts.FetchTimeout())
	assert.Equal(t, "basic", cfg.Accounts.BaseTier)
	assert.Equal(t, []string{"institutional"}, cfg.Risk.AllowedTiers)
	assert.Equal(t, 3.5, cfg.Risk.MaxRiskPct)
}

func TestLoadValidation(t *testing.T) {
	t.Run("bad log level", func(t *testing.T) {
		path := writeConfigFile(t, `
app:
  log_level: verbose
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "app.log_level")
	})

	t.Run("buffer out of range", func(t *testing.T) {
		path := writeConfigFile(t, `
risk:
  funds_buffer_pct: 60
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "risk.funds_buffer_pct")
	})

	t.Run("empty allowed tiers without policies file", func(t *testing.T) {
		path := writeConfigFile(t, `
risk:
  allowed_tiers: []
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "risk.allowed_tiers")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Load("")
		assert.ErrorContains(t, err, "config path cannot be empty")
	})
}

func TestStringNumbersAreCoerced(t *testing.T) {
	path := writeConfigFile(t, `
accounts:
  fetch_timeout_seconds: "7"
risk:
  max_risk_pct: "4.5"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Accounts.FetchTimeoutSeconds)
	assert.Equal(t, 4.5, cfg.Risk.MaxRiskPct)
}
