// internal/pool/config.go
package pool

import (
	"context"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/fees"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// Config is the deployment-wide curve configuration.
type Config struct {
	FeeRatePercent     float64
	PlatformShare      float64
	Authority          solana.PublicKey
	PlatformFeeWallet  solana.PublicKey
	MigrationThreshold uint64 // lamports; 0 disables the eligibility signal
}

// Validate проверяет диапазоны и обязательные ключи.
func (c Config) Validate() error {
	if err := fees.ValidateRate(c.FeeRatePercent); err != nil {
		return err
	}
	if err := fees.ValidateShare(c.PlatformShare); err != nil {
		return err
	}
	if c.Authority.IsZero() {
		return errorsmod.Wrap(types.ErrUnauthorizedPlatformAuthority, "authority is not set")
	}
	if c.PlatformFeeWallet.IsZero() {
		return errorsmod.Wrap(types.ErrInvalidFee, "platform fee wallet is not set")
	}
	return nil
}

// Authority checks that a signer is the expected identity.
type Authority interface {
	Verify(signer, expected solana.PublicKey) bool
}

// KeyAuthority treats possession of the key as proof of identity.
type KeyAuthority struct{}

func (KeyAuthority) Verify(signer, expected solana.PublicKey) bool {
	return !expected.IsZero() && signer.Equals(expected)
}

// ConfigStore owns the single Config of a deployment.
type ConfigStore struct {
	mu          sync.RWMutex
	cfg         Config
	initialized bool
	auth        Authority
	bus         events.Publisher
	logger      *zap.Logger
}

// NewConfigStore creates an uninitialized store.
func NewConfigStore(auth Authority, bus events.Publisher, logger *zap.Logger) *ConfigStore {
	if auth == nil {
		auth = KeyAuthority{}
	}
	if bus == nil {
		bus = events.Nop{}
	}
	return &ConfigStore{auth: auth, bus: bus, logger: logger.Named("config")}
}

// Initialize sets the configuration once.
func (s *ConfigStore) Initialize(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return errorsmod.Wrap(types.ErrUnauthorized, "curve config already initialized")
	}
	s.cfg = cfg
	s.initialized = true

	s.logger.Info("Curve config initialized",
		zap.Float64("fee_rate_percent", cfg.FeeRatePercent),
		zap.Float64("platform_share", cfg.PlatformShare),
		zap.String("authority", cfg.Authority.String()),
		zap.Uint64("migration_threshold", cfg.MigrationThreshold))
	return nil
}

// Get returns a copy of the configuration.
func (s *ConfigStore) Get() (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return Config{}, types.ErrConfigNotInitialized
	}
	return s.cfg, nil
}

// VerifyAuthority fails unless signer is the platform authority.
func (s *ConfigStore) VerifyAuthority(signer solana.PublicKey) error {
	cfg, err := s.Get()
	if err != nil {
		return err
	}
	if !s.auth.Verify(signer, cfg.Authority) {
		return errorsmod.Wrapf(types.ErrUnauthorizedPlatformAuthority, "signer %s", signer)
	}
	return nil
}

// UpdateFees changes the fee rate. Only the platform authority may call it.
func (s *ConfigStore) UpdateFees(_ context.Context, signer solana.PublicKey, ratePercent float64) error {
	if err := s.VerifyAuthority(signer); err != nil {
		return err
	}
	if err := fees.ValidateRate(ratePercent); err != nil {
		return err
	}

	s.mu.Lock()
	old := s.cfg.FeeRatePercent
	s.cfg.FeeRatePercent = ratePercent
	s.mu.Unlock()

	s.logger.Info("Fee rate updated", zap.Float64("old", old), zap.Float64("new", ratePercent))
	_ = s.bus.Publish(&events.FeesUpdatedEvent{
		BaseEvent: events.NewBase(events.FeesUpdated),
		OldRate:   old,
		NewRate:   ratePercent,
	})
	return nil
}
