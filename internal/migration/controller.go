// internal/migration/controller.go
package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// PlatformTokenAmount is the platform allocation burned on the wrapped
// migration path: 200M whole tokens at 9 decimals.
const PlatformTokenAmount uint64 = 200_000_000 * types.TokenUnit

// NativeMint stands for unwrapped SOL on the venue when WrapBase is off.
var NativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111111")

// Options tunes the saga.
type Options struct {
	// WrapBase converts drained lamports into wrapped SOL and burns the
	// platform allocation before the venue is seeded.
	WrapBase                bool
	PlatformTokenAllocation uint64
	MaxTries                uint
	InitialInterval         time.Duration
	MaxElapsedTime          time.Duration
}

// DefaultOptions returns the stock retry policy.
func DefaultOptions() Options {
	return Options{
		WrapBase:                true,
		PlatformTokenAllocation: PlatformTokenAmount,
		MaxTries:                5,
		InitialInterval:         200 * time.Millisecond,
		MaxElapsedTime:          30 * time.Second,
	}
}

// Controller drives the one-way migration of a pool. The latch is written
// before any funds move; every later step is idempotent and resumable.
type Controller struct {
	engine *pool.Engine
	ledger ledger.Ledger
	venue  Venue
	bus    events.Publisher
	opts   Options
	logger *zap.Logger
}

// NewController creates a controller. venue may be nil, in which case the
// saga ends once the vault is drained.
func NewController(engine *pool.Engine, led ledger.Ledger, venue Venue, bus events.Publisher, opts Options, logger *zap.Logger) *Controller {
	if bus == nil {
		bus = events.Nop{}
	}
	if opts.MaxTries == 0 {
		opts.MaxTries = 1
	}
	return &Controller{
		engine: engine,
		ledger: led,
		venue:  venue,
		bus:    bus,
		opts:   opts,
		logger: logger.Named("migration"),
	}
}

// Migrate latches the pool as migrated and runs the saga to completion.
func (c *Controller) Migrate(ctx context.Context, token, signer solana.PublicKey) (*pool.Pool, error) {
	if err := c.engine.Configs().VerifyAuthority(signer); err != nil {
		return nil, err
	}

	p, err := c.engine.Update(ctx, token, pool.OpMigrate, func(p *pool.Pool) error {
		if p.Migrated {
			return errorsmod.Wrapf(types.ErrAlreadyMigrated, "pool %s", p.Token)
		}
		if p.State == pool.StateUninitialized {
			return errorsmod.Wrapf(types.ErrPoolNotFunded, "pool %s", p.Token)
		}
		if p.ReserveBase == 0 {
			return errorsmod.Wrapf(types.ErrInsufficientLiquidity, "pool %s has no base reserve", p.Token)
		}

		p.Migrated = true
		p.State = pool.StateMigrated
		p.Migration = pool.Migration{
			Stage:       pool.StageDrainPending,
			DrainAmount: p.ReserveBase,
			DrainTokens: p.ReserveToken,
		}
		if c.opts.WrapBase {
			p.Migration.BurnAmount = min(c.opts.PlatformTokenAllocation, p.Preallocated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Pool latched for migration",
		zap.String("token", token.String()),
		zap.Uint64("drain_amount", p.Migration.DrainAmount),
		zap.Uint64("drain_tokens", p.Migration.DrainTokens),
		zap.Uint64("burn_amount", p.Migration.BurnAmount))
	c.staged(p)

	return c.advance(ctx, p)
}

// Resume continues an unfinished saga. Pools that are not migrated are
// returned unchanged.
func (c *Controller) Resume(ctx context.Context, token solana.PublicKey) (*pool.Pool, error) {
	p, err := c.engine.Pool(ctx, token)
	if err != nil {
		return nil, err
	}
	if !p.Migrated {
		return p, nil
	}
	return c.advance(ctx, p)
}

// ResumeAll resumes every pool stuck between the latch and the final stage.
func (c *Controller) ResumeAll(ctx context.Context) error {
	pools, err := c.engine.Pools(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range pools {
		if !p.Migrated || c.done(p) {
			continue
		}
		if _, err := c.advance(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("resume %s: %w", p.Token, err))
		}
	}
	return errors.Join(errs...)
}

// HarvestFees collects trading fees accrued on the locked venue liquidity.
func (c *Controller) HarvestFees(ctx context.Context, token solana.PublicKey) (uint64, error) {
	if c.venue == nil {
		return 0, errors.New("no venue configured")
	}
	p, err := c.engine.Pool(ctx, token)
	if err != nil {
		return 0, err
	}
	if p.Migration.Stage != pool.StageLiquidityLocked {
		return 0, errorsmod.Wrapf(types.ErrInsufficientLiquidity,
			"pool %s has no locked liquidity (stage %s)", token, p.Migration.Stage)
	}

	lock := LockHandle{ID: p.Migration.LockID, Pool: p.Migration.VenuePool}
	amount, err := retry(ctx, c, "harvest", token, func() (uint64, error) {
		return c.venue.HarvestFees(ctx, lock)
	})
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, nil
	}

	if _, err := c.engine.Update(ctx, token, pool.OpMigrate, func(p *pool.Pool) error {
		p.Migration.HarvestedFees += amount
		return nil
	}); err != nil {
		return 0, err
	}

	c.logger.Info("Fees harvested", zap.String("token", token.String()), zap.Uint64("amount", amount))
	c.publish(&events.FeesHarvestedEvent{
		BaseEvent: events.NewBase(events.FeesHarvested),
		Token:     token,
		Amount:    amount,
	})
	return amount, nil
}

func (c *Controller) done(p *pool.Pool) bool {
	if c.venue == nil {
		return p.Migration.Stage >= pool.StageDrained
	}
	return p.Migration.Stage == pool.StageLiquidityLocked
}

// advance runs the remaining stages in order.
func (c *Controller) advance(ctx context.Context, p *pool.Pool) (*pool.Pool, error) {
	for !c.done(p) {
		var (
			next *pool.Pool
			err  error
		)
		switch p.Migration.Stage {
		case pool.StageDrainPending:
			next, err = c.drain(ctx, p.Token)
		case pool.StageDrained:
			next, err = c.initializeVenue(ctx, p)
		case pool.StageVenueInitialized:
			next, err = c.lockLiquidity(ctx, p)
		default:
			return p, fmt.Errorf("pool %s: unexpected migration stage %s", p.Token, p.Migration.Stage)
		}
		if err != nil {
			c.logger.Error("Migration step failed",
				zap.String("token", p.Token.String()),
				zap.String("stage", p.Migration.Stage.String()),
				zap.Error(err))
			return p, err
		}
		p = next
		c.staged(p)
	}

	c.logger.Info("Pool migrated",
		zap.String("token", p.Token.String()),
		zap.String("venue_pool", p.Migration.VenuePool),
		zap.String("lock_id", p.Migration.LockID))
	c.publish(&events.PoolMigratedEvent{
		BaseEvent:   events.NewBase(events.PoolMigrated),
		Token:       p.Token,
		DrainAmount: p.Migration.DrainAmount,
		VenuePool:   p.Migration.VenuePool,
		LockID:      p.Migration.LockID,
	})
	return p, nil
}

// drain moves the captured reserves to the authority in a single keyed batch,
// so a retry after a lost acknowledgement cannot move funds twice.
func (c *Controller) drain(ctx context.Context, token solana.PublicKey) (*pool.Pool, error) {
	cfg, err := c.engine.Configs().Get()
	if err != nil {
		return nil, err
	}

	return retry(ctx, c, "drain", token, func() (*pool.Pool, error) {
		return c.engine.Update(ctx, token, pool.OpMigrate, func(p *pool.Pool) error {
			if p.Migration.Stage != pool.StageDrainPending {
				return nil
			}
			m := p.Migration
			authority := ledger.Wallet(cfg.Authority)

			batch := ledger.Batch{
				Key:     "drain:" + token.String(),
				Signers: []solana.PublicKey{cfg.Authority},
			}
			batch.Add(
				ledger.TransferBase(ledger.VaultOf(ledger.BaseVault(token)), authority, m.DrainAmount),
				ledger.TransferToken(token, ledger.VaultOf(ledger.TokenVault(token)), authority, m.DrainTokens),
			)
			if c.opts.WrapBase {
				batch.Add(
					ledger.WrapBase(authority, m.DrainAmount),
					ledger.Burn(token, authority, m.BurnAmount),
				)
			}
			if err := c.ledger.Execute(ctx, batch); err != nil {
				return err
			}

			p.ReserveBase -= m.DrainAmount
			p.ReserveToken -= m.DrainTokens
			p.Migration.Stage = pool.StageDrained
			return nil
		})
	})
}

func (c *Controller) baseMint() solana.PublicKey {
	if c.opts.WrapBase {
		return solana.WrappedSol
	}
	return NativeMint
}

// initializeVenue moves the drained liquidity from the authority into the venue
// vaults in one keyed batch, then opens the venue pool over it.
func (c *Controller) initializeVenue(ctx context.Context, p *pool.Pool) (*pool.Pool, error) {
	cfg, err := c.engine.Configs().Get()
	if err != nil {
		return nil, err
	}

	m := p.Migration
	authority := ledger.Wallet(cfg.Authority)
	seed := ledger.Batch{
		Key:     "venue_seed:" + p.Token.String(),
		Signers: []solana.PublicKey{cfg.Authority},
	}
	venueBase := ledger.VaultOf(ledger.VenueBaseVault(p.Token))
	if c.opts.WrapBase {
		seed.Add(ledger.TransferToken(solana.WrappedSol, authority, venueBase, m.DrainAmount))
	} else {
		seed.Add(ledger.TransferBase(authority, venueBase, m.DrainAmount))
	}
	seed.Add(ledger.TransferToken(p.Token, authority, ledger.VaultOf(ledger.VenueTokenVault(p.Token)), m.DrainTokens))

	handle, err := retry(ctx, c, "venue_init", p.Token, func() (VenueHandle, error) {
		if err := c.ledger.Execute(ctx, seed); err != nil {
			return VenueHandle{}, err
		}
		return c.venue.InitializePool(ctx, c.baseMint(), p.Token, m.DrainAmount, m.DrainTokens)
	})
	if err != nil {
		return nil, err
	}
	return c.engine.Update(ctx, p.Token, pool.OpMigrate, func(p *pool.Pool) error {
		p.Migration.VenuePool = handle.Pool
		p.Migration.LPAmount = handle.LPAmount
		p.Migration.Stage = pool.StageVenueInitialized
		return nil
	})
}

func (c *Controller) lockLiquidity(ctx context.Context, p *pool.Pool) (*pool.Pool, error) {
	handle := VenueHandle{Pool: p.Migration.VenuePool, LPAmount: p.Migration.LPAmount}
	lock, err := retry(ctx, c, "lock", p.Token, func() (LockHandle, error) {
		return c.venue.LockLiquidity(ctx, handle)
	})
	if err != nil {
		return nil, err
	}
	return c.engine.Update(ctx, p.Token, pool.OpMigrate, func(p *pool.Pool) error {
		p.Migration.LockID = lock.ID
		p.Migration.Stage = pool.StageLiquidityLocked
		return nil
	})
}

func (c *Controller) staged(p *pool.Pool) {
	c.publish(&events.MigrationStagedEvent{
		BaseEvent: events.NewBase(events.MigrationStaged),
		Token:     p.Token,
		Stage:     p.Migration.Stage.String(),
	})
}

func (c *Controller) publish(ev events.Event) {
	if err := c.bus.Publish(ev); err != nil {
		c.logger.Warn("Failed to publish event", zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}

// retry runs op with exponential backoff. Registered domain errors are final.
func retry[T any](ctx context.Context, c *Controller, step string, token solana.PublicKey, op func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	if c.opts.InitialInterval > 0 {
		policy.InitialInterval = c.opts.InitialInterval
		policy.MaxInterval = c.opts.InitialInterval * 10
	}

	notify := func(err error, d time.Duration) {
		c.logger.Warn("Повтор шага миграции",
			zap.String("step", step),
			zap.String("token", token.String()),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	operation := func() (T, error) {
		res, err := op()
		if err != nil && types.KindOf(err) != types.KindUnknown {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.opts.MaxTries),
		backoff.WithNotify(notify),
	}
	if c.opts.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(c.opts.MaxElapsedTime))
	}

	res, err := backoff.Retry(ctx, operation, opts...)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return res, err
}
