// internal/pool/engine_test.go
package pool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	engine    *Engine
	ledger    *ledger.Memory
	bus       *recordingPublisher
	authority solana.PublicKey
	platform  solana.PublicKey
	creator   solana.PublicKey
	token     solana.PublicKey
}

func newFixture(t testing.TB, model curve.Model, feeRate float64, threshold uint64) *fixture {
	logger := zaptest.NewLogger(t)
	f := &fixture{
		bus:       &recordingPublisher{},
		authority: solana.NewWallet().PublicKey(),
		platform:  solana.NewWallet().PublicKey(),
		creator:   solana.NewWallet().PublicKey(),
		token:     solana.NewWallet().PublicKey(),
	}
	f.ledger = ledger.NewMemory(solana.NewWallet().PublicKey(), logger)

	configs := NewConfigStore(KeyAuthority{}, f.bus, logger)
	require.NoError(t, configs.Initialize(Config{
		FeeRatePercent:     feeRate,
		PlatformShare:      0.5,
		Authority:          f.authority,
		PlatformFeeWallet:  f.platform,
		MigrationThreshold: threshold,
	}))
	f.engine = NewEngine(NewMemoryStore(), f.ledger, configs, f.bus, logger)

	ctx := context.Background()
	_, err := f.engine.CreatePool(ctx, CreateParams{Creator: f.creator, Token: f.token, Curve: model})
	require.NoError(t, err)

	f.ledger.Airdrop(f.creator, InitialLamportsForPool)
	_, err = f.engine.Fund(ctx, FundParams{
		Token:        f.token,
		Signer:       f.authority,
		Payer:        f.creator,
		TokenDeposit: DefaultTokenDeposit,
		BaseDeposit:  InitialLamportsForPool,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) trader(lamports uint64) solana.PublicKey {
	w := solana.NewWallet().PublicKey()
	f.ledger.Airdrop(w, lamports)
	return w
}

func (f *fixture) pool(t testing.TB) *Pool {
	p, err := f.engine.Pool(context.Background(), f.token)
	require.NoError(t, err)
	return p
}

// Покупка на 10 SOL в свежем пуле со степенной кривой и комиссией 1%.
func TestEngine_BuyPowerLawFromGenesis(t *testing.T) {
	f := newFixture(t, curve.Default(curve.PowerLaw), 1, 0)
	trader := f.trader(10_000_000_000)

	res, err := f.engine.Buy(context.Background(), BuyParams{
		Token:        f.token,
		Trader:       trader,
		BaseAmountIn: 10_000_000_000,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(100_000_000), res.Fees.Total())
	assert.Equal(t, uint64(50_000_000), res.Fees.Platform)
	assert.Equal(t, uint64(50_000_000), res.Fees.Creator)
	assert.Equal(t, uint64(9_900_000_000), res.Fees.Net)
	assert.InEpsilon(t, 271226888009480768.0, float64(res.AmountOut), 1e-9)

	p := f.pool(t)
	assert.Equal(t, DefaultTokenDeposit-res.AmountOut, p.ReserveToken)
	assert.Equal(t, InitialLamportsForPool+9_900_000_000, p.ReserveBase)
	assert.Equal(t, StateTrading, p.State)

	assert.Equal(t, uint64(50_000_000), f.ledger.Native(ledger.Wallet(f.platform)))
	assert.Equal(t, uint64(50_000_000), f.ledger.Native(ledger.Wallet(f.creator)))
	assert.Equal(t, p.ReserveBase, f.ledger.Native(ledger.VaultOf(ledger.BaseVault(f.token))))
	assert.Equal(t, res.AmountOut, f.ledger.TokenBalance(f.token, ledger.Wallet(trader)))
	assert.Zero(t, f.ledger.Native(ledger.Wallet(trader)))

	require.Len(t, f.bus.ofType(events.TradeExecuted), 1)
	mcaps := f.bus.ofType(events.MarketCapUpdated)
	require.Len(t, mcaps, 1)
	assert.Equal(t, p.MarketCap(), mcaps[0].(*events.MarketCapUpdatedEvent).MarketCap)
}

// 100 SOL в свежий степенной пул решатель не сводит: сделка отклоняется целиком.
func TestEngine_PowerLawUnconvergedBuyMovesNothing(t *testing.T) {
	f := newFixture(t, curve.Default(curve.PowerLaw), 1, 0)
	trader := f.trader(100 * types.LamportsPerSOL)

	_, err := f.engine.Buy(context.Background(), BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 100 * types.LamportsPerSOL})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrCalculationError)

	p := f.pool(t)
	assert.Equal(t, InitialLamportsForPool, p.ReserveBase)
	assert.Equal(t, DefaultTokenDeposit, p.ReserveToken)
	assert.Equal(t, uint64(100*types.LamportsPerSOL), f.ledger.Native(ledger.Wallet(trader)))
	assert.Zero(t, f.ledger.TokenBalance(f.token, ledger.Wallet(trader)))
}

func TestEngine_SellMoreThanSold(t *testing.T) {
	f := newFixture(t, curve.Default(curve.PowerLaw), 1, 0)
	trader := f.trader(1_000_000_000)
	res, err := f.engine.Buy(context.Background(), BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 1_000_000_000})
	require.NoError(t, err)

	_, err = f.engine.Sell(context.Background(), SellParams{Token: f.token, Trader: trader, TokenAmountIn: res.AmountOut + 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTokenAmountToSellTooBig)
}

// Продажа всего проданного объема на степенной кривой опустошает резерв.
func TestEngine_SellEverythingDrainsPowerLaw(t *testing.T) {
	f := newFixture(t, curve.Default(curve.PowerLaw), 1, 0)
	trader := f.trader(2_000_000_000)
	bought, err := f.engine.Buy(context.Background(), BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 2_000_000_000})
	require.NoError(t, err)

	reserve := f.pool(t).ReserveBase
	res, err := f.engine.Sell(context.Background(), SellParams{Token: f.token, Trader: trader, TokenAmountIn: bought.AmountOut})
	require.NoError(t, err)

	assert.True(t, res.Drained)
	assert.Equal(t, reserve, res.Fees.Gross)
	assert.Equal(t, curve.DefaultPowerLaw().MinPrice, res.Price)

	p := f.pool(t)
	assert.Zero(t, p.ReserveBase)
	assert.Equal(t, p.TotalSupply, p.ReserveToken)
	assert.Zero(t, f.ledger.Native(ledger.VaultOf(ledger.BaseVault(f.token))))
}

func TestEngine_UpdateFees(t *testing.T) {
	f := newFixture(t, curve.Default(curve.Proportional), 1, 0)
	configs := f.engine.Configs()

	err := configs.UpdateFees(context.Background(), f.authority, 150)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidFeePercentage)

	err = configs.UpdateFees(context.Background(), f.creator, 2)
	assert.ErrorIs(t, err, types.ErrUnauthorizedPlatformAuthority)

	cfg, err := configs.Get()
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.FeeRatePercent)

	require.NoError(t, configs.UpdateFees(context.Background(), f.authority, 2.5))
	cfg, _ = configs.Get()
	assert.Equal(t, 2.5, cfg.FeeRatePercent)
	assert.Len(t, f.bus.ofType(events.FeesUpdated), 1)
}

func TestEngine_UpdateCreatorFeeWallet(t *testing.T) {
	f := newFixture(t, curve.Default(curve.Proportional), 1, 0)
	ctx := context.Background()
	wallet := solana.NewWallet().PublicKey()

	_, err := f.engine.UpdateCreatorFeeWallet(ctx, f.token, f.authority, wallet)
	assert.ErrorIs(t, err, types.ErrNotCreator)
	_, err = f.engine.UpdateCreatorFeeWallet(ctx, f.token, f.creator, solana.PublicKey{})
	assert.Error(t, err)

	p, err := f.engine.UpdateCreatorFeeWallet(ctx, f.token, f.creator, wallet)
	require.NoError(t, err)
	assert.True(t, p.CreatorFeeWallet.Equals(wallet))

	trader := f.trader(1_000_000_000)
	res, err := f.engine.Buy(ctx, BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 1_000_000_000})
	require.NoError(t, err)
	assert.Equal(t, res.Fees.Creator, f.ledger.Native(ledger.Wallet(wallet)))
	assert.Zero(t, f.ledger.Native(ledger.Wallet(f.creator)))
}

func TestEngine_Slippage(t *testing.T) {
	f := newFixture(t, curve.Default(curve.Proportional), 1, 0)
	trader := f.trader(5_000_000_000)
	ctx := context.Background()

	q, err := f.engine.QuoteBuy(ctx, f.token, 5_000_000_000)
	require.NoError(t, err)

	before := f.pool(t)
	_, err = f.engine.Buy(ctx, BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 5_000_000_000, MinTokensOut: q.AmountOut + 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSlippageExceeded)
	assert.Equal(t, before.ReserveBase, f.pool(t).ReserveBase)
	assert.Equal(t, uint64(5_000_000_000), f.ledger.Native(ledger.Wallet(trader)))

	res, err := f.engine.Buy(ctx, BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 5_000_000_000, MinTokensOut: q.AmountOut})
	require.NoError(t, err)
	assert.Equal(t, q.AmountOut, res.AmountOut)

	sq, err := f.engine.QuoteSell(ctx, f.token, res.AmountOut)
	require.NoError(t, err)
	_, err = f.engine.Sell(ctx, SellParams{Token: f.token, Trader: trader, TokenAmountIn: res.AmountOut, MinBaseOut: sq.AmountOut + 1})
	assert.ErrorIs(t, err, types.ErrSlippageExceeded)
}

func TestEngine_RejectsZeroAndUnfunded(t *testing.T) {
	f := newFixture(t, curve.Default(curve.Proportional), 1, 0)
	ctx := context.Background()
	trader := f.trader(1_000)

	_, err := f.engine.Buy(ctx, BuyParams{Token: f.token, Trader: trader})
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
	_, err = f.engine.Sell(ctx, SellParams{Token: f.token, Trader: trader})
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	other := solana.NewWallet().PublicKey()
	_, err = f.engine.CreatePool(ctx, CreateParams{Creator: f.creator, Token: other, Curve: curve.Default(curve.Proportional)})
	require.NoError(t, err)
	_, err = f.engine.Buy(ctx, BuyParams{Token: other, Trader: trader, BaseAmountIn: 1_000})
	assert.ErrorIs(t, err, types.ErrPoolNotFunded)

	_, err = f.engine.CreatePool(ctx, CreateParams{Creator: f.creator, Token: other, Curve: curve.Default(curve.Proportional)})
	assert.ErrorIs(t, err, types.ErrDuplicateTokenNotAllowed)

	_, err = f.engine.Buy(ctx, BuyParams{Token: solana.NewWallet().PublicKey(), Trader: trader, BaseAmountIn: 1_000})
	assert.ErrorIs(t, err, types.ErrPoolNotFound)
}

func TestEngine_FundOnce(t *testing.T) {
	f := newFixture(t, curve.Default(curve.Proportional), 1, 0)
	ctx := context.Background()

	_, err := f.engine.Fund(ctx, FundParams{Token: f.token, Signer: f.authority, Payer: f.creator, TokenDeposit: 1})
	assert.ErrorIs(t, err, types.ErrPoolAlreadyFunded)

	_, err = f.engine.Fund(ctx, FundParams{Token: f.token, Signer: f.creator, Payer: f.creator, TokenDeposit: 1})
	assert.ErrorIs(t, err, types.ErrUnauthorizedPlatformAuthority)

	other := solana.NewWallet().PublicKey()
	_, err = f.engine.CreatePool(ctx, CreateParams{Creator: f.creator, Token: other, Curve: curve.Default(curve.Proportional)})
	require.NoError(t, err)
	_, err = f.engine.Fund(ctx, FundParams{Token: other, Signer: f.authority, Payer: f.creator, TotalSupply: 10, TokenDeposit: 11})
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	// предвыделение платформе чеканится на кошелек authority
	p, err := f.engine.Fund(ctx, FundParams{Token: other, Signer: f.authority, Payer: f.creator, TotalSupply: 1_000, TokenDeposit: 800})
	require.NoError(t, err)
	assert.Equal(t, uint64(200), p.Preallocated)
	assert.Equal(t, uint64(200), p.TokensSold())
	assert.Equal(t, uint64(200), f.ledger.TokenBalance(other, ledger.Wallet(f.authority)))
	assert.Equal(t, uint64(800), f.ledger.TokenBalance(other, ledger.VaultOf(ledger.TokenVault(other))))
}

func TestEngine_LedgerFailureLeavesPoolUntouched(t *testing.T) {
	f := newFixture(t, curve.Default(curve.Proportional), 1, 0)
	trader := f.trader(100) // меньше, чем нужно для покупки

	before := f.pool(t)
	_, err := f.engine.Buy(context.Background(), BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 1_000_000_000})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInsufficientFunds)
	assert.Equal(t, types.KindEconomic, types.KindOf(err))

	after := f.pool(t)
	assert.Equal(t, before.ReserveBase, after.ReserveBase)
	assert.Equal(t, before.ReserveToken, after.ReserveToken)
	assert.Zero(t, f.ledger.Native(ledger.Wallet(f.platform)))
	assert.Empty(t, f.bus.ofType(events.TradeExecuted))
}

// failingStore отказывает в Save, пока fail взведен.
type failingStore struct {
	Store
	fail bool
}

func (s *failingStore) Save(ctx context.Context, p *Pool) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, p)
}

func TestEngine_SaveFailureRevertsLedger(t *testing.T) {
	f := newFixture(t, curve.Default(curve.Proportional), 1, 0)
	store := &failingStore{Store: f.engine.store, fail: true}
	f.engine.store = store
	ctx := context.Background()
	trader := f.trader(1_000_000_000)

	before := f.pool(t)
	_, err := f.engine.Buy(ctx, BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 1_000_000_000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	after := f.pool(t)
	assert.Equal(t, before.ReserveBase, after.ReserveBase)
	assert.Equal(t, before.ReserveToken, after.ReserveToken)
	assert.Equal(t, uint64(1_000_000_000), f.ledger.Native(ledger.Wallet(trader)))
	assert.Zero(t, f.ledger.TokenBalance(f.token, ledger.Wallet(trader)))
	assert.Zero(t, f.ledger.Native(ledger.Wallet(f.platform)))
	assert.Zero(t, f.ledger.Native(ledger.Wallet(f.creator)))
	assert.Equal(t, after.ReserveBase, f.ledger.Native(ledger.VaultOf(ledger.BaseVault(f.token))))
	assert.Equal(t, after.ReserveToken, f.ledger.TokenBalance(f.token, ledger.VaultOf(ledger.TokenVault(f.token))))
	assert.Empty(t, f.bus.ofType(events.TradeExecuted))

	store.fail = false
	res, err := f.engine.Buy(ctx, BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 1_000_000_000})
	require.NoError(t, err)
	assert.Equal(t, res.AmountOut, f.ledger.TokenBalance(f.token, ledger.Wallet(trader)))
}

// Отмененное пополнение можно повторить с тем же ключом батча.
func TestEngine_SaveFailureOnFundIsRetryable(t *testing.T) {
	f := newFixture(t, curve.Default(curve.Proportional), 1, 0)
	store := &failingStore{Store: f.engine.store, fail: true}
	f.engine.store = store
	ctx := context.Background()

	token := solana.NewWallet().PublicKey()
	_, err := f.engine.CreatePool(ctx, CreateParams{Creator: f.creator, Token: token, Curve: curve.Default(curve.Proportional)})
	require.NoError(t, err)
	f.ledger.Airdrop(f.creator, InitialLamportsForPool)

	params := FundParams{
		Token:        token,
		Signer:       f.authority,
		Payer:        f.creator,
		TotalSupply:  DefaultTokenDeposit + 1_000,
		TokenDeposit: DefaultTokenDeposit,
		BaseDeposit:  InitialLamportsForPool,
	}
	_, err = f.engine.Fund(ctx, params)
	require.Error(t, err)
	assert.Zero(t, f.ledger.Supply(token))
	assert.Zero(t, f.ledger.TokenBalance(token, ledger.Wallet(f.authority)))
	assert.Equal(t, InitialLamportsForPool, f.ledger.Native(ledger.Wallet(f.creator)))

	store.fail = false
	p, err := f.engine.Fund(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, StateFunded, p.State)
	assert.Equal(t, DefaultTokenDeposit+1_000, f.ledger.Supply(token))
	assert.Equal(t, InitialLamportsForPool, f.ledger.Native(ledger.VaultOf(ledger.BaseVault(token))))
}

func TestEngine_MigrationEligibleOnce(t *testing.T) {
	f := newFixture(t, curve.Default(curve.Proportional), 0, 3_000_000_000)
	trader := f.trader(10_000_000_000)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.engine.Buy(ctx, BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 1_000_000_000})
		require.NoError(t, err)
	}

	signals := f.bus.ofType(events.MigrationEligible)
	require.Len(t, signals, 1)
	ev := signals[0].(*events.MigrationEligibleEvent)
	assert.GreaterOrEqual(t, ev.ReserveBase, uint64(3_000_000_000))
	assert.True(t, f.pool(t).MigrationSignaled)
}

func TestEngine_LatchBlocksTrading(t *testing.T) {
	f := newFixture(t, curve.Default(curve.Proportional), 1, 0)
	trader := f.trader(1_000_000_000)
	ctx := context.Background()

	_, err := f.engine.Update(ctx, f.token, OpMigrate, func(p *Pool) error {
		p.Migrated = true
		p.State = StateMigrated
		p.Migration.Stage = StageDrainPending
		return nil
	})
	require.NoError(t, err)

	before := f.pool(t)
	_, err = f.engine.Buy(ctx, BuyParams{Token: f.token, Trader: trader, BaseAmountIn: 1_000})
	assert.ErrorIs(t, err, types.ErrAlreadyMigrated)
	_, err = f.engine.Sell(ctx, SellParams{Token: f.token, Trader: trader, TokenAmountIn: 1})
	assert.ErrorIs(t, err, types.ErrAlreadyMigrated)
	_, err = f.engine.Fund(ctx, FundParams{Token: f.token, Signer: f.authority, Payer: f.creator, TokenDeposit: 1})
	assert.ErrorIs(t, err, types.ErrAlreadyMigrated)
	assert.Equal(t, before, f.pool(t))

	_, err = f.engine.Update(ctx, f.token, OpUpdate, func(p *Pool) error {
		p.Migrated = false
		p.State = StateTrading
		p.Migration.Stage = StageNone
		return nil
	})
	assert.ErrorIs(t, err, types.ErrAlreadyMigrated)
}

func TestEngine_ConfigRequired(t *testing.T) {
	logger := zaptest.NewLogger(t)
	e := NewEngine(NewMemoryStore(), ledger.NewMemory(solana.NewWallet().PublicKey(), logger),
		NewConfigStore(nil, nil, logger), nil, logger)

	_, err := e.Buy(context.Background(), BuyParams{Token: solana.NewWallet().PublicKey(), BaseAmountIn: 1})
	assert.ErrorIs(t, err, types.ErrConfigNotInitialized)
}
