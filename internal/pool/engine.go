// internal/pool/engine.go
package pool

import (
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/fees"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

const (
	// InitialLamportsForPool is the base deposit a pool is seeded with.
	InitialLamportsForPool uint64 = 10_000_000
	// DefaultTokenDeposit is 800M whole tokens at 9 decimals.
	DefaultTokenDeposit uint64 = 800_000_000 * types.TokenUnit

	revertTimeout = 5 * time.Second
)

// CreateParams describes a genesis pool.
type CreateParams struct {
	Creator          solana.PublicKey
	Token            solana.PublicKey
	CreatorFeeWallet solana.PublicKey
	Curve            curve.Model
}

// FundParams describes the one-time deposit. TotalSupply defaults to
// TokenDeposit; any excess is minted to the platform authority.
type FundParams struct {
	Token        solana.PublicKey
	Signer       solana.PublicKey
	Payer        solana.PublicKey
	TotalSupply  uint64
	TokenDeposit uint64
	BaseDeposit  uint64
}

// BuyParams is a buy intent.
type BuyParams struct {
	Token        solana.PublicKey
	Trader       solana.PublicKey
	BaseAmountIn uint64
	MinTokensOut uint64
}

// SellParams is a sell intent.
type SellParams struct {
	Token         solana.PublicKey
	Trader        solana.PublicKey
	TokenAmountIn uint64
	MinBaseOut    uint64
}

// TradeQuote is what a trade would do at the current reserves.
type TradeQuote struct {
	Side      types.Side
	AmountIn  uint64
	AmountOut uint64 // tokens for a buy, net lamports for a sell
	Fees      fees.Split
	Price     float64 // marginal price after the trade
	Drained   bool
}

// TradeResult is a committed trade.
type TradeResult struct {
	TradeQuote
	TradeID   string
	Token     solana.PublicKey
	Trader    solana.PublicKey
	MarketCap uint64
	Pool      *Pool
}

// Engine executes pool operations. Operations on one pool are serialized;
// different pools proceed in parallel.
type Engine struct {
	store   Store
	ledger  ledger.Ledger
	configs *ConfigStore
	bus     events.Publisher
	logger  *zap.Logger
	locks   *keyedMutex
	now     func() time.Time
}

// NewEngine wires the engine to its collaborators.
func NewEngine(store Store, led ledger.Ledger, configs *ConfigStore, bus events.Publisher, logger *zap.Logger) *Engine {
	if bus == nil {
		bus = events.Nop{}
	}
	return &Engine{
		store:   store,
		ledger:  led,
		configs: configs,
		bus:     bus,
		logger:  logger.Named("engine"),
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// Configs exposes the config store the engine reads.
func (e *Engine) Configs() *ConfigStore {
	return e.configs
}

// CreatePool writes a genesis record with zero reserves.
func (e *Engine) CreatePool(ctx context.Context, params CreateParams) (*Pool, error) {
	if params.Token.IsZero() || params.Creator.IsZero() {
		return nil, errorsmod.Wrap(types.ErrInvalidAmount, "creator and token are required")
	}
	if err := params.Curve.Validate(); err != nil {
		return nil, err
	}
	feeWallet := params.CreatorFeeWallet
	if feeWallet.IsZero() {
		feeWallet = params.Creator
	}

	unlock := e.locks.Lock(params.Token)
	defer unlock()

	now := e.now()
	p := &Pool{
		Creator:          params.Creator,
		Token:            params.Token,
		CreatorFeeWallet: feeWallet,
		Curve:            params.Curve,
		State:            StateUninitialized,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := CheckTransition(OpCreate, nil, p); err != nil {
		return nil, err
	}
	if err := e.store.Create(ctx, p); err != nil {
		return nil, err
	}

	e.logger.Info("Pool created",
		zap.String("token", p.Token.String()),
		zap.String("creator", p.Creator.String()),
		zap.String("curve", p.Curve.Kind.String()))
	e.publish(&events.PoolCreatedEvent{
		BaseEvent: events.NewBase(events.PoolCreated),
		Token:     p.Token,
		Creator:   p.Creator,
		Curve:     p.Curve.Kind.String(),
	})
	return p.Clone(), nil
}

// Fund seeds the pool once: TokenDeposit into the token vault, BaseDeposit
// from the payer into the base vault.
func (e *Engine) Fund(ctx context.Context, params FundParams) (*Pool, error) {
	cfg, err := e.configs.Get()
	if err != nil {
		return nil, err
	}
	if err := e.configs.VerifyAuthority(params.Signer); err != nil {
		return nil, err
	}
	if params.TokenDeposit == 0 {
		return nil, errorsmod.Wrap(types.ErrInvalidAmount, "token deposit is zero")
	}
	total := params.TotalSupply
	if total == 0 {
		total = params.TokenDeposit
	}
	if params.TokenDeposit > total {
		return nil, errorsmod.Wrapf(types.ErrInvalidAmount,
			"token deposit %d exceeds total supply %d", params.TokenDeposit, total)
	}

	unlock := e.locks.Lock(params.Token)
	defer unlock()

	prev, err := e.store.Get(ctx, params.Token)
	if err != nil {
		return nil, err
	}
	if prev.Migrated {
		return nil, errorsmod.Wrapf(types.ErrAlreadyMigrated, "fund %s", prev.Token)
	}
	if prev.State != StateUninitialized {
		return nil, errorsmod.Wrapf(types.ErrPoolAlreadyFunded, "pool %s is %s", prev.Token, prev.State)
	}

	batch := ledger.Batch{
		Key:     "fund:" + prev.Token.String(),
		Signers: []solana.PublicKey{params.Payer},
	}
	batch.Add(
		ledger.MintTo(prev.Token, ledger.VaultOf(ledger.TokenVault(prev.Token)), params.TokenDeposit),
		ledger.MintTo(prev.Token, ledger.Wallet(cfg.Authority), total-params.TokenDeposit),
		ledger.TransferBase(ledger.Wallet(params.Payer), ledger.VaultOf(ledger.BaseVault(prev.Token)), params.BaseDeposit),
	)

	next := prev.Clone()
	next.TotalSupply = total
	next.ReserveToken = params.TokenDeposit
	next.ReserveBase = params.BaseDeposit
	next.Preallocated = total - params.TokenDeposit
	next.State = StateFunded

	if err := e.commit(ctx, OpFund, prev, next, batch); err != nil {
		return nil, err
	}

	e.logger.Info("Pool funded",
		zap.String("token", next.Token.String()),
		zap.Uint64("total_supply", next.TotalSupply),
		zap.Uint64("reserve_token", next.ReserveToken),
		zap.Uint64("reserve_base", next.ReserveBase))
	e.publish(&events.PoolFundedEvent{
		BaseEvent:    events.NewBase(events.PoolFunded),
		Token:        next.Token,
		TotalSupply:  next.TotalSupply,
		ReserveToken: next.ReserveToken,
		ReserveBase:  next.ReserveBase,
	})
	return next.Clone(), nil
}

// QuoteBuy prices a buy without mutating anything.
func (e *Engine) QuoteBuy(ctx context.Context, token solana.PublicKey, baseAmountIn uint64) (TradeQuote, error) {
	cfg, err := e.configs.Get()
	if err != nil {
		return TradeQuote{}, err
	}
	p, err := e.store.Get(ctx, token)
	if err != nil {
		return TradeQuote{}, err
	}
	q, err := quoteBuy(p, cfg, baseAmountIn)
	if err != nil {
		return TradeQuote{}, err
	}
	if q.AmountOut > p.ReserveToken {
		return TradeQuote{}, notEnoughTokens(q.AmountOut, p.ReserveToken)
	}
	return q, nil
}

// QuoteSell prices a sell without mutating anything.
func (e *Engine) QuoteSell(ctx context.Context, token solana.PublicKey, tokenAmountIn uint64) (TradeQuote, error) {
	cfg, err := e.configs.Get()
	if err != nil {
		return TradeQuote{}, err
	}
	p, err := e.store.Get(ctx, token)
	if err != nil {
		return TradeQuote{}, err
	}
	q, err := quoteSell(p, cfg, tokenAmountIn)
	if err != nil {
		return TradeQuote{}, err
	}
	if p.ReserveBase < q.Fees.Gross {
		return TradeQuote{}, notEnoughBase(q.Fees.Gross, p.ReserveBase)
	}
	return q, nil
}

// Buy exchanges base currency for tokens along the curve.
func (e *Engine) Buy(ctx context.Context, params BuyParams) (*TradeResult, error) {
	cfg, err := e.configs.Get()
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(params.Token)
	defer unlock()

	prev, err := e.store.Get(ctx, params.Token)
	if err != nil {
		return nil, err
	}
	q, err := quoteBuy(prev, cfg, params.BaseAmountIn)
	if err != nil {
		return nil, err
	}
	if q.AmountOut < params.MinTokensOut {
		return nil, errorsmod.Wrapf(types.ErrSlippageExceeded,
			"tokens out %d below minimum %d", q.AmountOut, params.MinTokensOut)
	}
	if q.AmountOut > prev.ReserveToken {
		return nil, notEnoughTokens(q.AmountOut, prev.ReserveToken)
	}

	tradeID := uuid.New().String()
	trader := ledger.Wallet(params.Trader)
	batch := ledger.Batch{Key: "trade:" + tradeID, Signers: []solana.PublicKey{params.Trader}}
	batch.Add(
		ledger.TransferBase(trader, ledger.Wallet(cfg.PlatformFeeWallet), q.Fees.Platform),
		ledger.TransferBase(trader, ledger.Wallet(prev.CreatorFeeWallet), q.Fees.Creator),
		ledger.TransferBase(trader, ledger.VaultOf(ledger.BaseVault(prev.Token)), q.Fees.Net),
		ledger.TransferToken(prev.Token, ledger.VaultOf(ledger.TokenVault(prev.Token)), trader, q.AmountOut),
	)

	next := prev.Clone()
	next.ReserveBase += q.Fees.Net
	next.ReserveToken -= q.AmountOut
	next.State = StateTrading
	eligible := cfg.MigrationThreshold > 0 && !next.MigrationSignaled && next.ReserveBase >= cfg.MigrationThreshold
	if eligible {
		next.MigrationSignaled = true
	}

	if err := e.commit(ctx, OpBuy, prev, next, batch); err != nil {
		return nil, err
	}

	res := e.tradeResult(tradeID, params.Trader, q, next)
	e.logger.Info("Buy executed",
		zap.String("token", next.Token.String()),
		zap.String("trader", params.Trader.String()),
		zap.Uint64("base_in", params.BaseAmountIn),
		zap.Uint64("tokens_out", q.AmountOut),
		zap.Uint64("fee", q.Fees.Total()),
		zap.Float64("price", q.Price))
	e.publishTrade(res)

	if eligible {
		e.logger.Info("Pool eligible for migration",
			zap.String("token", next.Token.String()),
			zap.Uint64("reserve_base", next.ReserveBase),
			zap.Uint64("threshold", cfg.MigrationThreshold))
		e.publish(&events.MigrationEligibleEvent{
			BaseEvent:   events.NewBase(events.MigrationEligible),
			Token:       next.Token,
			ReserveBase: next.ReserveBase,
			Threshold:   cfg.MigrationThreshold,
		})
	}
	return res, nil
}

// Sell exchanges tokens back into base currency along the curve.
func (e *Engine) Sell(ctx context.Context, params SellParams) (*TradeResult, error) {
	cfg, err := e.configs.Get()
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(params.Token)
	defer unlock()

	prev, err := e.store.Get(ctx, params.Token)
	if err != nil {
		return nil, err
	}
	q, err := quoteSell(prev, cfg, params.TokenAmountIn)
	if err != nil {
		return nil, err
	}
	if q.AmountOut < params.MinBaseOut {
		return nil, errorsmod.Wrapf(types.ErrSlippageExceeded,
			"base out %d below minimum %d", q.AmountOut, params.MinBaseOut)
	}
	if prev.ReserveBase < q.Fees.Gross {
		return nil, notEnoughBase(q.Fees.Gross, prev.ReserveBase)
	}

	tradeID := uuid.New().String()
	trader := ledger.Wallet(params.Trader)
	vault := ledger.VaultOf(ledger.BaseVault(prev.Token))
	batch := ledger.Batch{Key: "trade:" + tradeID, Signers: []solana.PublicKey{params.Trader}}
	batch.Add(
		ledger.TransferToken(prev.Token, trader, ledger.VaultOf(ledger.TokenVault(prev.Token)), params.TokenAmountIn),
		ledger.TransferBase(vault, ledger.Wallet(cfg.PlatformFeeWallet), q.Fees.Platform),
		ledger.TransferBase(vault, ledger.Wallet(prev.CreatorFeeWallet), q.Fees.Creator),
		ledger.TransferBase(vault, trader, q.Fees.Net),
	)

	next := prev.Clone()
	next.ReserveToken += params.TokenAmountIn
	next.ReserveBase -= q.Fees.Gross
	next.State = StateTrading

	if err := e.commit(ctx, OpSell, prev, next, batch); err != nil {
		return nil, err
	}

	res := e.tradeResult(tradeID, params.Trader, q, next)
	e.logger.Info("Sell executed",
		zap.String("token", next.Token.String()),
		zap.String("trader", params.Trader.String()),
		zap.Uint64("tokens_in", params.TokenAmountIn),
		zap.Uint64("base_out", q.AmountOut),
		zap.Uint64("fee", q.Fees.Total()),
		zap.Bool("drained", q.Drained),
		zap.Float64("price", q.Price))
	e.publishTrade(res)
	return res, nil
}

// Pool returns a snapshot of the pool for token.
func (e *Engine) Pool(ctx context.Context, token solana.PublicKey) (*Pool, error) {
	return e.store.Get(ctx, token)
}

// Pools lists every pool.
func (e *Engine) Pools(ctx context.Context) ([]*Pool, error) {
	return e.store.List(ctx)
}

// UpdateCreatorFeeWallet redirects the creator's fee share. Creator only.
func (e *Engine) UpdateCreatorFeeWallet(ctx context.Context, token, signer, wallet solana.PublicKey) (*Pool, error) {
	if wallet.IsZero() {
		return nil, errorsmod.Wrap(types.ErrInvalidFee, "creator fee wallet is zero")
	}
	return e.Update(ctx, token, OpUpdate, func(p *Pool) error {
		if !e.configs.auth.Verify(signer, p.Creator) {
			return errorsmod.Wrapf(types.ErrNotCreator, "signer %s", signer)
		}
		p.CreatorFeeWallet = wallet
		return nil
	})
}

// Update applies fn to the pool under its lock and persists the result if the
// transition is valid. fn may call the ledger; it must not call back into the engine.
func (e *Engine) Update(ctx context.Context, token solana.PublicKey, op Op, fn func(p *Pool) error) (*Pool, error) {
	unlock := e.locks.Lock(token)
	defer unlock()

	prev, err := e.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	next := prev.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := CheckTransition(op, prev, next); err != nil {
		return nil, err
	}
	next.UpdatedAt = e.now()
	if err := e.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save pool %s: %w", token, err)
	}
	return next.Clone(), nil
}

// commit validates the transition, executes the batch and only then persists next.
// A failed save is compensated with the reverse batch so balances match the stored pool.
func (e *Engine) commit(ctx context.Context, op Op, prev, next *Pool, batch ledger.Batch) error {
	if err := CheckTransition(op, prev, next); err != nil {
		return err
	}
	if err := e.ledger.Execute(ctx, batch); err != nil {
		e.logger.Warn("Ledger rejected batch",
			zap.String("token", prev.Token.String()),
			zap.String("op", string(op)),
			zap.Error(err))
		return errorsmod.Wrapf(err, "%s %s", op, prev.Token)
	}
	next.UpdatedAt = e.now()
	if err := e.store.Save(ctx, next); err != nil {
		if rerr := e.revert(batch); rerr != nil {
			// откат не прошел: состояние пула и леджер расходятся
			e.logger.Error("Failed to revert batch after save failure",
				zap.String("token", next.Token.String()),
				zap.String("batch", batch.Key),
				zap.NamedError("save_error", err),
				zap.Error(rerr))
			return fmt.Errorf("save pool %s: %w (revert failed: %v)", next.Token, err, rerr)
		}
		e.logger.Warn("Pool save failed, batch reverted",
			zap.String("token", next.Token.String()),
			zap.String("batch", batch.Key),
			zap.Error(err))
		return fmt.Errorf("save pool %s: %w", next.Token, err)
	}
	return nil
}

// revert runs the compensating batch. The request context may already be done,
// so the reversal gets its own bounded one.
func (e *Engine) revert(batch ledger.Batch) error {
	rev, err := batch.Reverse()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), revertTimeout)
	defer cancel()
	return e.ledger.Execute(ctx, rev)
}

func (e *Engine) tradeResult(id string, trader solana.PublicKey, q TradeQuote, p *Pool) *TradeResult {
	return &TradeResult{
		TradeQuote: q,
		TradeID:    id,
		Token:      p.Token,
		Trader:     trader,
		MarketCap:  p.MarketCap(),
		Pool:       p.Clone(),
	}
}

func (e *Engine) publishTrade(r *TradeResult) {
	base := r.AmountIn
	tokens := r.AmountOut
	if r.Side == types.SideSell {
		base, tokens = r.AmountOut, r.AmountIn
	}
	e.publish(&events.TradeExecutedEvent{
		BaseEvent:    events.NewBase(events.TradeExecuted),
		TradeID:      r.TradeID,
		Token:        r.Token,
		Side:         r.Side,
		Wallet:       r.Trader,
		BaseAmount:   base,
		TokenAmount:  tokens,
		PlatformFee:  r.Fees.Platform,
		CreatorFee:   r.Fees.Creator,
		Price:        r.Price,
		ReserveBase:  r.Pool.ReserveBase,
		ReserveToken: r.Pool.ReserveToken,
	})
	e.publish(&events.MarketCapUpdatedEvent{
		BaseEvent: events.NewBase(events.MarketCapUpdated),
		Token:     r.Token,
		MarketCap: r.MarketCap,
	})
}

func (e *Engine) publish(ev events.Event) {
	if err := e.bus.Publish(ev); err != nil {
		e.logger.Warn("Failed to publish event",
			zap.String("event_type", string(ev.Type())),
			zap.Error(err))
	}
}

// tradable rejects pools that cannot trade.
func tradable(p *Pool) error {
	if p.Migrated {
		return errorsmod.Wrapf(types.ErrAlreadyMigrated, "pool %s", p.Token)
	}
	if p.State == StateUninitialized {
		return errorsmod.Wrapf(types.ErrPoolNotFunded, "pool %s", p.Token)
	}
	return nil
}

// quoteBuy takes the fee from the raw input, then runs the net amount through the curve.
func quoteBuy(p *Pool, cfg Config, baseAmountIn uint64) (TradeQuote, error) {
	if err := tradable(p); err != nil {
		return TradeQuote{}, err
	}
	if baseAmountIn == 0 {
		return TradeQuote{}, errorsmod.Wrap(types.ErrInvalidAmount, "base amount in is zero")
	}
	split, err := fees.Compute(baseAmountIn, cfg.FeeRatePercent, cfg.PlatformShare)
	if err != nil {
		return TradeQuote{}, err
	}
	if split.Net == 0 {
		return TradeQuote{}, errorsmod.Wrap(types.ErrInvalidAmount, "nothing left after fees")
	}
	cq, err := p.Curve.Buy(p.TokensSold(), split.Net)
	if err != nil {
		return TradeQuote{}, err
	}
	if cq.Amount == 0 {
		return TradeQuote{}, errorsmod.Wrapf(types.ErrInvalidAmount, "%d lamports buys no tokens", split.Net)
	}
	return TradeQuote{
		Side:      types.SideBuy,
		AmountIn:  baseAmountIn,
		AmountOut: cq.Amount,
		Fees:      split,
		Price:     cq.Price,
	}, nil
}

// quoteSell runs the curve first and takes the fee from its gross output.
func quoteSell(p *Pool, cfg Config, tokenAmountIn uint64) (TradeQuote, error) {
	if err := tradable(p); err != nil {
		return TradeQuote{}, err
	}
	if tokenAmountIn == 0 {
		return TradeQuote{}, errorsmod.Wrap(types.ErrInvalidAmount, "token amount in is zero")
	}
	if sold := p.TokensSold(); tokenAmountIn > sold {
		return TradeQuote{}, errorsmod.Wrapf(types.ErrTokenAmountToSellTooBig,
			"selling %d, only %d sold", tokenAmountIn, sold)
	}
	cq, err := p.Curve.Sell(p.TokensSold(), tokenAmountIn, p.ReserveBase)
	if err != nil {
		return TradeQuote{}, err
	}
	split, err := fees.Compute(cq.Amount, cfg.FeeRatePercent, cfg.PlatformShare)
	if err != nil {
		return TradeQuote{}, err
	}
	return TradeQuote{
		Side:      types.SideSell,
		AmountIn:  tokenAmountIn,
		AmountOut: split.Net,
		Fees:      split,
		Price:     cq.Price,
		Drained:   cq.Drained,
	}, nil
}

func notEnoughTokens(want, have uint64) error {
	return errorsmod.Wrapf(types.ErrNotEnoughTokenInVault, "need %d tokens, vault holds %d", want, have)
}

func notEnoughBase(want, have uint64) error {
	return errorsmod.Wrapf(types.ErrNotEnoughSolInVault, "need %d lamports, reserve holds %d", want, have)
}
