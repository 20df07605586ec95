// ==================================
// File: internal/task/runner.go
// ==================================
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/migration"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage/models"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Balances reads token balances for sells by percentage.
type Balances interface {
	TokenBalance(mint solana.PublicKey, acc ledger.Account) uint64
}

// Measurer times an operation; metrics.Collector satisfies it.
type Measurer interface {
	Measure(op string, f func() error) error
}

// Reporter persists the outcome of a task.
type Reporter interface {
	SaveTaskHistory(ctx context.Context, history *models.TaskHistory) error
}

// PoolDefaults are applied by create tasks.
type PoolDefaults struct {
	Curve        curve.Model
	TotalSupply  uint64
	TokenDeposit uint64
	BaseDeposit  uint64
}

// RunnerConfig collects the runner dependencies.
type RunnerConfig struct {
	Engine     *pool.Engine
	Controller *migration.Controller
	Balances   Balances
	Wallets    Roster
	Authority  *Wallet
	Defaults   PoolDefaults
	Workers    int
	Measurer   Measurer // optional
	Reporter   Reporter // optional
	Logger     *zap.Logger
}

// Result is the outcome of one task across its repeats.
type Result struct {
	Task         *Task
	Token        solana.PublicKey
	SuccessCount int
	ErrorCount   int
	// Volume - лампорты, прошедшие через сделки задачи.
	Volume      uint64
	LastError   error
	StartedAt   time.Time
	CompletedAt time.Time
}

// Status summarises the result.
func (r *Result) Status() string {
	switch {
	case r.ErrorCount == 0:
		return StatusCompleted
	case r.SuccessCount > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// Runner executes tasks against the engine. Tasks touching the same token run
// serially in file order; different tokens run concurrently.
type Runner struct {
	cfg    RunnerConfig
	logger *zap.Logger

	mu    sync.RWMutex
	mints map[string]solana.PublicKey
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Authority == nil {
		return nil, fmt.Errorf("authority wallet is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{
		cfg:    cfg,
		logger: cfg.Logger.Named("runner"),
		mints:  make(map[string]solana.PublicKey),
	}, nil
}

// Mint returns the mint a token name resolved to.
func (r *Runner) Mint(name string) (solana.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mints[name]
	return m, ok
}

// Run executes all tasks. Task failures are recorded in the results; only
// context cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, tasks []*Task) ([]*Result, error) {
	results := make([]*Result, len(tasks))

	var order []string
	groups := make(map[string][]int)
	for i, t := range tasks {
		if _, ok := groups[t.Token]; !ok {
			order = append(order, t.Token)
		}
		groups[t.Token] = append(groups[t.Token], i)
	}

	r.logger.Info("🚀 Starting execution",
		zap.Int("tasks", len(tasks)),
		zap.Int("tokens", len(order)),
		zap.Int("workers", r.cfg.Workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, token := range order {
		idx := groups[token]
		g.Go(func() error {
			for _, i := range idx {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = r.execute(gctx, tasks[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	r.logger.Info("✅ All tasks finished")
	return results, nil
}

func (r *Runner) execute(ctx context.Context, t *Task) *Result {
	res := &Result{Task: t, StartedAt: time.Now()}
	log := r.logger.With(
		zap.String("task", t.TaskName),
		zap.String("operation", string(t.Operation)),
		zap.String("wallet", t.WalletName))

	for i := 0; i < t.Repeat; i++ {
		if ctx.Err() != nil {
			break
		}
		var volume uint64
		err := r.measure(string(t.Operation), func() error {
			var err error
			res.Token, volume, err = r.step(ctx, t)
			return err
		})
		if err != nil {
			res.ErrorCount++
			res.LastError = err
			log.Warn("Task step failed", zap.Int("iteration", i+1), zap.Error(err))
			continue
		}
		res.SuccessCount++
		res.Volume += volume
	}
	res.CompletedAt = time.Now()

	log.Info("Task done",
		zap.String("status", res.Status()),
		zap.Int("success", res.SuccessCount),
		zap.Int("errors", res.ErrorCount),
		zap.Uint64("volume", res.Volume))
	r.report(ctx, res)
	return res
}

func (r *Runner) measure(op string, f func() error) error {
	if r.cfg.Measurer == nil {
		return f()
	}
	return r.cfg.Measurer.Measure(op, f)
}

func (r *Runner) report(ctx context.Context, res *Result) {
	if r.cfg.Reporter == nil {
		return
	}
	h := &models.TaskHistory{
		TaskName:     res.Task.TaskName,
		Operation:    string(res.Task.Operation),
		Status:       res.Status(),
		StartedAt:    &res.StartedAt,
		CompletedAt:  &res.CompletedAt,
		SuccessCount: res.SuccessCount,
		ErrorCount:   res.ErrorCount,
		TotalVolume:  res.Volume,
	}
	if !res.Token.IsZero() {
		h.Token = res.Token.String()
	}
	if res.LastError != nil {
		h.LastError = res.LastError.Error()
	}
	// ctx может быть уже отменён, историю всё равно сохраняем
	if err := r.cfg.Reporter.SaveTaskHistory(context.WithoutCancel(ctx), h); err != nil {
		r.logger.Error("Failed to save task history", zap.String("task", h.TaskName), zap.Error(err))
	}
}

// step runs one iteration and returns the token it touched and the lamport volume.
func (r *Runner) step(ctx context.Context, t *Task) (solana.PublicKey, uint64, error) {
	w, err := r.cfg.Wallets.Get(t.WalletName)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}

	if t.Operation == OperationCreate {
		return r.create(ctx, t, w)
	}

	token, err := r.resolve(t.Token)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}

	switch t.Operation {
	case OperationBuy:
		v, err := r.buy(ctx, t, w, token)
		return token, v, err
	case OperationSell:
		v, err := r.sell(ctx, t, w, token)
		return token, v, err
	case OperationMigrate:
		if r.cfg.Controller == nil {
			return token, 0, fmt.Errorf("migration is not configured")
		}
		p, err := r.cfg.Controller.Migrate(ctx, token, w.PublicKey)
		if err != nil {
			return token, 0, err
		}
		return token, p.Migration.DrainAmount, nil
	case OperationHarvest:
		if r.cfg.Controller == nil {
			return token, 0, fmt.Errorf("migration is not configured")
		}
		v, err := r.cfg.Controller.HarvestFees(ctx, token)
		return token, v, err
	default:
		return token, 0, fmt.Errorf("invalid operation: %s", t.Operation)
	}
}

func (r *Runner) resolve(name string) (solana.PublicKey, error) {
	if m, ok := r.Mint(name); ok {
		return m, nil
	}
	m, err := solana.PublicKeyFromBase58(name)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("unknown token %q: %w", name, types.ErrPoolNotFound)
	}
	return m, nil
}

// create регистрирует пул от имени создателя и фондирует его подписью платформы.
func (r *Runner) create(ctx context.Context, t *Task, creator *Wallet) (solana.PublicKey, uint64, error) {
	model := r.cfg.Defaults.Curve
	if t.Curve != "" {
		kind, err := curve.ParseKind(t.Curve)
		if err != nil {
			return solana.PublicKey{}, 0, err
		}
		model = curve.Default(kind)
	}

	mint, err := solana.PublicKeyFromBase58(t.Token)
	if err != nil {
		mint = solana.NewWallet().PublicKey()
	}

	if _, err := r.cfg.Engine.CreatePool(ctx, pool.CreateParams{
		Creator:          creator.PublicKey,
		Token:            mint,
		CreatorFeeWallet: creator.PublicKey,
		Curve:            model,
	}); err != nil {
		return solana.PublicKey{}, 0, err
	}

	r.mu.Lock()
	r.mints[t.Token] = mint
	r.mu.Unlock()

	d := r.cfg.Defaults
	deposit := d.TokenDeposit
	if deposit == 0 {
		deposit = pool.DefaultTokenDeposit
	}
	base := d.BaseDeposit
	if base == 0 {
		base = pool.InitialLamportsForPool
	}

	p, err := r.cfg.Engine.Fund(ctx, pool.FundParams{
		Token:        mint,
		Signer:       r.cfg.Authority.PublicKey,
		Payer:        creator.PublicKey,
		TotalSupply:  d.TotalSupply,
		TokenDeposit: deposit,
		BaseDeposit:  base,
	})
	if err != nil {
		return mint, 0, err
	}

	r.logger.Info("🪙 Pool created",
		zap.String("name", t.Token),
		zap.String("mint", mint.String()),
		zap.String("curve", model.Kind.String()),
		zap.String("creator", creator.String()))
	return mint, p.ReserveBase, nil
}

func (r *Runner) buy(ctx context.Context, t *Task, w *Wallet, token solana.PublicKey) (uint64, error) {
	lamports := solToLamports(t.AmountSol)
	if lamports == 0 {
		return 0, fmt.Errorf("amount %v SOL: %w", t.AmountSol, types.ErrInvalidAmount)
	}

	q, err := r.cfg.Engine.QuoteBuy(ctx, token, lamports)
	if err != nil {
		return 0, err
	}
	res, err := r.cfg.Engine.Buy(ctx, pool.BuyParams{
		Token:        token,
		Trader:       w.PublicKey,
		BaseAmountIn: lamports,
		MinTokensOut: types.CalculateMinAmountOut(q.AmountOut, r.slippage(t)),
	})
	if err != nil {
		return 0, err
	}
	return res.AmountIn, nil
}

func (r *Runner) sell(ctx context.Context, t *Task, w *Wallet, token solana.PublicKey) (uint64, error) {
	amount := tokensToUnits(t.AmountTokens)
	if amount == 0 {
		if r.cfg.Balances == nil {
			return 0, fmt.Errorf("percent sell needs a balance source")
		}
		balance := r.cfg.Balances.TokenBalance(token, ledger.Wallet(w.PublicKey))
		amount = uint64(decimal.NewFromInt(int64(balance)).
			Mul(decimal.NewFromFloat(t.PercentToSell)).
			Div(decimal.NewFromInt(100)).
			IntPart())
	}
	if amount == 0 {
		return 0, fmt.Errorf("nothing to sell: %w", types.ErrInvalidAmount)
	}

	q, err := r.cfg.Engine.QuoteSell(ctx, token, amount)
	if err != nil {
		return 0, err
	}
	res, err := r.cfg.Engine.Sell(ctx, pool.SellParams{
		Token:         token,
		Trader:        w.PublicKey,
		TokenAmountIn: amount,
		MinBaseOut:    types.CalculateMinAmountOut(q.AmountOut, r.slippage(t)),
	})
	if err != nil {
		return 0, err
	}
	return res.AmountOut, nil
}

func (r *Runner) slippage(t *Task) types.SlippageConfig {
	return types.SlippageConfig{Type: types.SlippagePercent, Value: t.SlippagePercent}
}

func solToLamports(sol float64) uint64 {
	v := decimal.NewFromFloat(sol).Shift(9).IntPart()
	if v <= 0 {
		return 0
	}
	return uint64(v)
}

func tokensToUnits(tokens float64) uint64 {
	v := decimal.NewFromFloat(tokens).Shift(9).IntPart()
	if v <= 0 {
		return 0
	}
	return uint64(v)
}

// Summary aggregates results for logging.
func Summary(results []*Result) (completed, failed int, volume uint64) {
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Status() == StatusFailed {
			failed++
		} else {
			completed++
		}
		volume += r.Volume
	}
	return completed, failed, volume
}

// IsCanceled reports whether err came from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
