// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/fees"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/migration"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// EnvPrefix is prepended to every environment override, e.g. CURVE_LAUNCHPAD_FEE_RATE_PERCENT.
const EnvPrefix = "CURVE_LAUNCHPAD"

type Config struct {
	FeeRatePercent float64 `mapstructure:"fee_rate_percent"`
	PlatformShare  float64 `mapstructure:"platform_share"`
	// Authority и PlatformFeeWallet - имена кошельков из wallets.yaml
	Authority         string `mapstructure:"authority"`
	PlatformFeeWallet string `mapstructure:"platform_fee_wallet"`

	Curve     CurveConfig     `mapstructure:"curve"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Migration MigrationConfig `mapstructure:"migration"`

	Workers      int    `mapstructure:"workers"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	LogDir       string `mapstructure:"log_dir"`
	PostgresURL  string `mapstructure:"postgres_url"`
	MetricsAddr  string `mapstructure:"metrics_addr"`

	// AirdropSOL зачисляется каждому кошельку симуляции перед запуском задач
	AirdropSOL float64 `mapstructure:"airdrop_sol"`
}

type CurveConfig struct {
	Model        string                   `mapstructure:"model"`
	Proportional curve.ProportionalParams `mapstructure:"proportional"`
	PowerLaw     curve.PowerLawParams     `mapstructure:"power_law"`
}

type PoolConfig struct {
	TotalSupply  uint64 `mapstructure:"total_supply"`
	TokenDeposit uint64 `mapstructure:"token_deposit"`
	BaseDeposit  uint64 `mapstructure:"base_deposit"`
}

type MigrationConfig struct {
	Threshold               uint64 `mapstructure:"threshold"`
	PlatformTokenAllocation uint64 `mapstructure:"platform_token_allocation"`
	WrapBase                bool   `mapstructure:"wrap_base"`
	Retries                 int    `mapstructure:"retries"`
	Auto                    bool   `mapstructure:"auto"`
}

const (
	DefaultFeeRatePercent = 1.0
	DefaultPlatformShare  = 0.5
	DefaultWorkers        = 4
	DefaultRetries        = 5
	DefaultLogDir         = "logs"
	DefaultAirdropSOL     = 100.0
	// 85 SOL, как у стандартной пропорциональной кривой на полном депозите
	DefaultMigrationThreshold = 85 * types.LamportsPerSOL
)

func defaults() map[string]interface{} {
	prop := curve.DefaultProportional()
	pl := curve.DefaultPowerLaw()
	return map[string]interface{}{
		"fee_rate_percent":                    DefaultFeeRatePercent,
		"platform_share":                      DefaultPlatformShare,
		"curve.model":                         curve.Proportional.String(),
		"curve.proportional.k":                prop.K,
		"curve.proportional.virtual_base":     prop.VirtualBase,
		"curve.proportional.token_scale":      prop.TokenScale,
		"curve.power_law.exponent":            pl.Exponent,
		"curve.power_law.proportion_base":     pl.ProportionBase,
		"curve.power_law.proportion_exp":      pl.ProportionExp,
		"curve.power_law.min_price":           pl.MinPrice,
		"curve.power_law.token_scale":         pl.TokenScale,
		"curve.power_law.iterations":          pl.Iterations,
		"curve.power_law.tolerance":           pl.Tolerance,
		"pool.token_deposit":                  pool.DefaultTokenDeposit,
		"pool.total_supply":                   0,
		"pool.base_deposit":                   0,
		"migration.threshold":                 DefaultMigrationThreshold,
		"migration.platform_token_allocation": migration.PlatformTokenAmount,
		"migration.wrap_base":                 true,
		"migration.retries":                   DefaultRetries,
		"migration.auto":                      true,
		"workers":                             DefaultWorkers,
		"debug_logging":                       false,
		"log_dir":                             DefaultLogDir,
		"postgres_url":                        "",
		"metrics_addr":                        "",
		"airdrop_sol":                         DefaultAirdropSOL,
	}
}

// LoadConfig reads the file at path (yaml/json/toml by extension), applies
// CURVE_LAUNCHPAD_* environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	return decode(v)
}

// Default returns the configuration built from defaults and environment only.
func Default() (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	if cfg.Pool.TotalSupply == 0 {
		cfg.Pool.TotalSupply = cfg.Pool.TokenDeposit
	}

	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if _, err := c.CurveModel(); err != nil {
		return err
	}
	if err := fees.ValidateRate(c.FeeRatePercent); err != nil {
		return err
	}
	if err := fees.ValidateShare(c.PlatformShare); err != nil {
		return err
	}
	if c.Pool.TokenDeposit == 0 {
		return errors.New("pool.token_deposit must be positive")
	}
	if c.Pool.TotalSupply < c.Pool.TokenDeposit {
		return errors.New("pool.total_supply must not be below pool.token_deposit")
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.AirdropSOL < 0 {
		return errors.New("airdrop_sol must not be negative")
	}
	if c.Migration.Retries <= 0 {
		c.Migration.Retries = DefaultRetries
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics_addr: %w", err)
		}
	}
	if c.PostgresURL != "" && !strings.HasPrefix(c.PostgresURL, "postgres") {
		return errors.New("postgres_url must use the postgres:// or postgresql:// scheme")
	}
	return nil
}

// CurveModel builds the configured curve variant.
func (c *Config) CurveModel() (curve.Model, error) {
	kind, err := curve.ParseKind(c.Curve.Model)
	if err != nil {
		return curve.Model{}, err
	}
	m := curve.NewProportional(c.Curve.Proportional)
	if kind == curve.PowerLaw {
		m = curve.NewPowerLaw(c.Curve.PowerLaw)
	}
	return m, m.Validate()
}

// PoolConfig maps the fee settings onto the global pool config.
func (c *Config) PoolConfig(authority, platformWallet solana.PublicKey) pool.Config {
	return pool.Config{
		FeeRatePercent:     c.FeeRatePercent,
		PlatformShare:      c.PlatformShare,
		Authority:          authority,
		PlatformFeeWallet:  platformWallet,
		MigrationThreshold: c.Migration.Threshold,
	}
}

// MigrationOptions maps the migration section onto controller options.
func (c *Config) MigrationOptions() migration.Options {
	opts := migration.DefaultOptions()
	opts.WrapBase = c.Migration.WrapBase
	opts.PlatformTokenAllocation = c.Migration.PlatformTokenAllocation
	opts.MaxTries = uint(c.Migration.Retries)
	opts.InitialInterval = 100 * time.Millisecond
	return opts
}

// LoggerConfig maps logging settings.
func (c *Config) LoggerConfig() logger.Config {
	lc := logger.DefaultConfig()
	lc.Dir = c.LogDir
	lc.Debug = c.DebugLogging
	return lc
}
