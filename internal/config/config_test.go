package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/migration"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "authority: admin\nplatform_fee_wallet: treasury\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultFeeRatePercent, cfg.FeeRatePercent)
	assert.Equal(t, DefaultPlatformShare, cfg.PlatformShare)
	assert.Equal(t, "admin", cfg.Authority)
	assert.Equal(t, pool.DefaultTokenDeposit, cfg.Pool.TokenDeposit)
	assert.Equal(t, pool.DefaultTokenDeposit, cfg.Pool.TotalSupply)
	assert.Equal(t, DefaultWorkers, cfg.Workers)

	m, err := cfg.CurveModel()
	require.NoError(t, err)
	assert.Equal(t, curve.Default(curve.Proportional), m)

	opts := cfg.MigrationOptions()
	assert.True(t, opts.WrapBase)
	assert.Equal(t, migration.PlatformTokenAmount, opts.PlatformTokenAllocation)
	assert.Equal(t, uint(DefaultRetries), opts.MaxTries)
}

func TestLoadConfigPowerLawAndEnvOverride(t *testing.T) {
	t.Setenv("CURVE_LAUNCHPAD_FEE_RATE_PERCENT", "2.5")
	t.Setenv("CURVE_LAUNCHPAD_MIGRATION_THRESHOLD", "1000")

	cfg, err := LoadConfig(writeConfig(t, `
curve:
  model: power_law
  power_law:
    iterations: 5
pool:
  total_supply: 1000000000000000000
migration:
  wrap_base: false
workers: 0
log_dir: /tmp/launchpad
metrics_addr: ":9090"
`))
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.FeeRatePercent)
	assert.Equal(t, uint64(1000), cfg.Migration.Threshold)
	assert.Equal(t, uint64(1_000_000_000_000_000_000), cfg.Pool.TotalSupply)
	assert.Equal(t, 1, cfg.Workers)

	m, err := cfg.CurveModel()
	require.NoError(t, err)
	assert.Equal(t, curve.PowerLaw, m.Kind)
	assert.Equal(t, uint8(5), m.PowerLaw.Iterations)
	assert.Equal(t, curve.DefaultPowerLaw().Exponent, m.PowerLaw.Exponent)
	assert.False(t, cfg.MigrationOptions().WrapBase)
	assert.Equal(t, "/tmp/launchpad", cfg.LoggerConfig().Dir)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"fee rate":     "fee_rate_percent: 150\n",
		"curve model":  "curve:\n  model: linear\n",
		"supply":       "pool:\n  total_supply: 5\n",
		"metrics addr": "metrics_addr: nonsense\n",
		"postgres":     "postgres_url: mysql://x\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultWithoutFile(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, DefaultLogDir, cfg.LogDir)
}
