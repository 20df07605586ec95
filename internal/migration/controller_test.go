// internal/migration/controller_test.go
package migration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

type mockVenue struct {
	mock.Mock
}

func (m *mockVenue) InitializePool(ctx context.Context, base, token solana.PublicKey, baseAmount, tokenAmount uint64) (VenueHandle, error) {
	args := m.Called(ctx, base, token, baseAmount, tokenAmount)
	return args.Get(0).(VenueHandle), args.Error(1)
}

func (m *mockVenue) LockLiquidity(ctx context.Context, handle VenueHandle) (LockHandle, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(LockHandle), args.Error(1)
}

func (m *mockVenue) HarvestFees(ctx context.Context, lock LockHandle) (uint64, error) {
	args := m.Called(ctx, lock)
	return args.Get(0).(uint64), args.Error(1)
}

// flakyLedger fails drain batches while failDrain > 0.
type flakyLedger struct {
	*ledger.Memory
	mu        sync.Mutex
	failDrain int
}

func (l *flakyLedger) Execute(ctx context.Context, b ledger.Batch) error {
	l.mu.Lock()
	if strings.HasPrefix(b.Key, "drain:") && l.failDrain > 0 {
		l.failDrain--
		l.mu.Unlock()
		return errors.New("rpc: node is behind")
	}
	l.mu.Unlock()
	return l.Memory.Execute(ctx, b)
}

type env struct {
	engine    *pool.Engine
	ledger    *flakyLedger
	bus       *events.Bus
	authority solana.PublicKey
	token     solana.PublicKey
	trader    solana.PublicKey
}

func testOptions() Options {
	return Options{
		WrapBase:                true,
		PlatformTokenAllocation: PlatformTokenAmount,
		MaxTries:                3,
		InitialInterval:         time.Millisecond,
	}
}

// newEnv builds a funded power-law pool with a 200M token preallocation.
func newEnv(t *testing.T, threshold uint64) *env {
	logger := zaptest.NewLogger(t)
	e := &env{
		bus:       events.NewBus(logger, 256),
		authority: solana.NewWallet().PublicKey(),
		token:     solana.NewWallet().PublicKey(),
		trader:    solana.NewWallet().PublicKey(),
	}
	t.Cleanup(func() { _ = e.bus.Shutdown(context.Background()) })

	e.ledger = &flakyLedger{Memory: ledger.NewMemory(solana.NewWallet().PublicKey(), logger)}
	configs := pool.NewConfigStore(pool.KeyAuthority{}, e.bus, logger)
	require.NoError(t, configs.Initialize(pool.Config{
		FeeRatePercent:     1,
		PlatformShare:      0.5,
		Authority:          e.authority,
		PlatformFeeWallet:  solana.NewWallet().PublicKey(),
		MigrationThreshold: threshold,
	}))
	e.engine = pool.NewEngine(pool.NewMemoryStore(), e.ledger, configs, e.bus, logger)

	ctx := context.Background()
	creator := solana.NewWallet().PublicKey()
	_, err := e.engine.CreatePool(ctx, pool.CreateParams{Creator: creator, Token: e.token, Curve: curve.Default(curve.PowerLaw)})
	require.NoError(t, err)

	e.ledger.Airdrop(creator, pool.InitialLamportsForPool)
	_, err = e.engine.Fund(ctx, pool.FundParams{
		Token:        e.token,
		Signer:       e.authority,
		Payer:        creator,
		TotalSupply:  pool.DefaultTokenDeposit + PlatformTokenAmount,
		TokenDeposit: pool.DefaultTokenDeposit,
		BaseDeposit:  pool.InitialLamportsForPool,
	})
	require.NoError(t, err)

	e.ledger.Airdrop(e.trader, 100_000_000_000)
	return e
}

func (e *env) buy(t *testing.T, lamports uint64) {
	_, err := e.engine.Buy(context.Background(), pool.BuyParams{Token: e.token, Trader: e.trader, BaseAmountIn: lamports})
	require.NoError(t, err)
}

func TestController_MigrateTwice(t *testing.T) {
	e := newEnv(t, 0)
	e.buy(t, 3_000_000_000)
	ctrl := NewController(e.engine, e.ledger, nil, e.bus, testOptions(), zaptest.NewLogger(t))
	ctx := context.Background()

	before, err := e.engine.Pool(ctx, e.token)
	require.NoError(t, err)

	p, err := ctrl.Migrate(ctx, e.token, e.authority)
	require.NoError(t, err)
	assert.True(t, p.Migrated)
	assert.Equal(t, pool.StageDrained, p.Migration.Stage)
	assert.Zero(t, p.ReserveBase)
	assert.Equal(t, before.ReserveBase, p.Migration.DrainAmount)

	// лампорты обернуты в WSOL, предвыделение сожжено
	assert.Zero(t, e.ledger.Native(ledger.VaultOf(ledger.BaseVault(e.token))))
	assert.Equal(t, before.ReserveBase, e.ledger.TokenBalance(solana.WrappedSol, ledger.Wallet(e.authority)))
	assert.Equal(t, before.ReserveToken, e.ledger.TokenBalance(e.token, ledger.Wallet(e.authority)))
	assert.Equal(t, before.TotalSupply-PlatformTokenAmount, e.ledger.Supply(e.token))

	_, err = ctrl.Migrate(ctx, e.token, e.authority)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrAlreadyMigrated)

	after, err := e.engine.Pool(ctx, e.token)
	require.NoError(t, err)
	assert.Equal(t, p.Migration, after.Migration)
	assert.Equal(t, before.ReserveBase, e.ledger.TokenBalance(solana.WrappedSol, ledger.Wallet(e.authority)))
}

func TestController_Preconditions(t *testing.T) {
	e := newEnv(t, 0)
	ctrl := NewController(e.engine, e.ledger, nil, e.bus, testOptions(), zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := ctrl.Migrate(ctx, e.token, e.trader)
	assert.ErrorIs(t, err, types.ErrUnauthorizedPlatformAuthority)

	_, err = ctrl.Migrate(ctx, solana.NewWallet().PublicKey(), e.authority)
	assert.ErrorIs(t, err, types.ErrPoolNotFound)
}

func TestController_LatchBeforeDrain(t *testing.T) {
	e := newEnv(t, 0)
	e.buy(t, 1_000_000_000)
	e.ledger.failDrain = 10

	ctrl := NewController(e.engine, e.ledger, nil, e.bus, testOptions(), zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := ctrl.Migrate(ctx, e.token, e.authority)
	require.Error(t, err)

	p, err := e.engine.Pool(ctx, e.token)
	require.NoError(t, err)
	assert.True(t, p.Migrated)
	assert.Equal(t, pool.StageDrainPending, p.Migration.Stage)
	assert.Equal(t, p.Migration.DrainAmount, p.ReserveBase)

	_, err = e.engine.Buy(ctx, pool.BuyParams{Token: e.token, Trader: e.trader, BaseAmountIn: 1_000})
	assert.ErrorIs(t, err, types.ErrAlreadyMigrated)

	e.ledger.mu.Lock()
	e.ledger.failDrain = 1 // одна ошибка, затем повтор проходит
	e.ledger.mu.Unlock()

	p, err = ctrl.Resume(ctx, e.token)
	require.NoError(t, err)
	assert.Equal(t, pool.StageDrained, p.Migration.Stage)
	assert.Zero(t, p.ReserveBase)
	assert.True(t, e.ledger.Applied("drain:"+e.token.String()))
}

func TestController_VenueHandoffResumes(t *testing.T) {
	e := newEnv(t, 0)
	e.buy(t, 2_000_000_000)
	ctx := context.Background()

	before, err := e.engine.Pool(ctx, e.token)
	require.NoError(t, err)

	handle := VenueHandle{Pool: "cp:test", LPAmount: 42}
	lock := LockHandle{ID: "lock:test", Pool: "cp:test"}

	v := &mockVenue{}
	v.On("InitializePool", mock.Anything, solana.WrappedSol, e.token, before.ReserveBase, before.ReserveToken).
		Return(VenueHandle{}, errors.New("venue unavailable")).Times(3)
	v.On("InitializePool", mock.Anything, solana.WrappedSol, e.token, before.ReserveBase, before.ReserveToken).
		Return(handle, nil).Once()
	v.On("LockLiquidity", mock.Anything, handle).Return(lock, nil).Once()
	v.On("HarvestFees", mock.Anything, lock).Return(uint64(1_234), nil).Once()

	ctrl := NewController(e.engine, e.ledger, v, e.bus, testOptions(), zaptest.NewLogger(t))

	_, err = ctrl.Migrate(ctx, e.token, e.authority)
	require.Error(t, err)
	p, err := e.engine.Pool(ctx, e.token)
	require.NoError(t, err)
	assert.Equal(t, pool.StageDrained, p.Migration.Stage)

	_, err = ctrl.HarvestFees(ctx, e.token)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	require.NoError(t, ctrl.ResumeAll(ctx))
	p, err = e.engine.Pool(ctx, e.token)
	require.NoError(t, err)
	assert.Equal(t, pool.StageLiquidityLocked, p.Migration.Stage)
	assert.Equal(t, "cp:test", p.Migration.VenuePool)
	assert.Equal(t, uint64(42), p.Migration.LPAmount)
	assert.Equal(t, "lock:test", p.Migration.LockID)

	// ликвидность venue лежит в его хранилищах, а не у authority
	assert.Zero(t, e.ledger.TokenBalance(solana.WrappedSol, ledger.Wallet(e.authority)))
	assert.Zero(t, e.ledger.TokenBalance(e.token, ledger.Wallet(e.authority)))
	assert.Equal(t, before.ReserveBase, e.ledger.TokenBalance(solana.WrappedSol, ledger.VaultOf(ledger.VenueBaseVault(e.token))))
	assert.Equal(t, before.ReserveToken, e.ledger.TokenBalance(e.token, ledger.VaultOf(ledger.VenueTokenVault(e.token))))
	assert.True(t, e.ledger.Applied("venue_seed:"+e.token.String()))

	amount, err := ctrl.HarvestFees(ctx, e.token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_234), amount)

	p, err = e.engine.Pool(ctx, e.token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_234), p.Migration.HarvestedFees)
	v.AssertExpectations(t)
}

func TestController_UnwrappedVenueSeed(t *testing.T) {
	e := newEnv(t, 0)
	e.buy(t, 2_000_000_000)
	ctx := context.Background()

	before, err := e.engine.Pool(ctx, e.token)
	require.NoError(t, err)
	authorityLamports := e.ledger.Native(ledger.Wallet(e.authority))

	handle := VenueHandle{Pool: "cp:native", LPAmount: 7}
	v := &mockVenue{}
	v.On("InitializePool", mock.Anything, NativeMint, e.token, before.ReserveBase, before.ReserveToken).
		Return(handle, nil).Once()
	v.On("LockLiquidity", mock.Anything, handle).Return(LockHandle{ID: "lock:native", Pool: handle.Pool}, nil).Once()

	opts := testOptions()
	opts.WrapBase = false
	ctrl := NewController(e.engine, e.ledger, v, e.bus, opts, zaptest.NewLogger(t))

	p, err := ctrl.Migrate(ctx, e.token, e.authority)
	require.NoError(t, err)
	assert.Equal(t, pool.StageLiquidityLocked, p.Migration.Stage)
	assert.Zero(t, p.Migration.BurnAmount)

	assert.Equal(t, authorityLamports, e.ledger.Native(ledger.Wallet(e.authority)))
	assert.Equal(t, before.ReserveBase, e.ledger.Native(ledger.VaultOf(ledger.VenueBaseVault(e.token))))
	assert.Equal(t, before.ReserveToken, e.ledger.TokenBalance(e.token, ledger.VaultOf(ledger.VenueTokenVault(e.token))))
	assert.Zero(t, e.ledger.TokenBalance(solana.WrappedSol, ledger.VaultOf(ledger.VenueBaseVault(e.token))))
	v.AssertExpectations(t)
}

func TestWorker_MigratesEligiblePools(t *testing.T) {
	e := newEnv(t, 5_000_000_000)
	ctrl := NewController(e.engine, e.ledger, nil, e.bus, testOptions(), zaptest.NewLogger(t))
	w := NewWorker(ctrl, e.bus, e.authority, 2, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	e.buy(t, 3_000_000_000)
	e.buy(t, 3_000_000_000)

	require.Eventually(t, func() bool {
		p, err := e.engine.Pool(context.Background(), e.token)
		return err == nil && p.Migration.Stage == pool.StageDrained
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
