package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/migration"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage/models"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
	"github.com/rovshanmuradov/curve-launchpad/internal/venue"
)

type recordingReporter struct {
	mu      sync.Mutex
	history []*models.TaskHistory
}

func (r *recordingReporter) SaveTaskHistory(_ context.Context, h *models.TaskHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, h)
	return nil
}

type countingMeasurer struct {
	mu  sync.Mutex
	ops map[string]int
}

func (m *countingMeasurer) Measure(op string, f func() error) error {
	m.mu.Lock()
	m.ops[op]++
	m.mu.Unlock()
	return f()
}

type runnerEnv struct {
	runner   *Runner
	engine   *pool.Engine
	ledger   *ledger.Memory
	wallets  Roster
	reporter *recordingReporter
	measurer *countingMeasurer
}

func newRunnerEnv(t *testing.T) *runnerEnv {
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 256)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })

	wallets := Roster{
		"platform": GenerateWallet("platform"),
		"alice":    GenerateWallet("alice"),
		"bob":      GenerateWallet("bob"),
	}

	led := ledger.NewMemory(solana.NewWallet().PublicKey(), logger)
	led.Airdrop(wallets["alice"].PublicKey, 10*types.LamportsPerSOL)
	led.Airdrop(wallets["bob"].PublicKey, 100*types.LamportsPerSOL)

	configs := pool.NewConfigStore(pool.KeyAuthority{}, bus, logger)
	require.NoError(t, configs.Initialize(pool.Config{
		FeeRatePercent:     1,
		PlatformShare:      0.5,
		Authority:          wallets["platform"].PublicKey,
		PlatformFeeWallet:  wallets["platform"].PublicKey,
		MigrationThreshold: 1_000 * types.LamportsPerSOL,
	}))
	engine := pool.NewEngine(pool.NewMemoryStore(), led, configs, bus, logger)

	opts := migration.DefaultOptions()
	opts.InitialInterval = time.Millisecond
	ctrl := migration.NewController(engine, led, venue.New(venue.DefaultFeeRate, logger), bus, opts, logger)

	env := &runnerEnv{
		engine:   engine,
		ledger:   led,
		wallets:  wallets,
		reporter: &recordingReporter{},
		measurer: &countingMeasurer{ops: make(map[string]int)},
	}
	r, err := NewRunner(RunnerConfig{
		Engine:     engine,
		Controller: ctrl,
		Balances:   led,
		Wallets:    wallets,
		Authority:  wallets["platform"],
		Defaults: PoolDefaults{
			Curve:        curve.Default(curve.Proportional),
			TotalSupply:  pool.DefaultTokenDeposit + migration.PlatformTokenAmount,
			TokenDeposit: pool.DefaultTokenDeposit,
		},
		Workers:  2,
		Measurer: env.measurer,
		Reporter: env.reporter,
		Logger:   logger,
	})
	require.NoError(t, err)
	env.runner = r
	return env
}

func TestRunner_Scenario(t *testing.T) {
	env := newRunnerEnv(t)
	ctx := context.Background()

	tasks := []*Task{
		{TaskName: "launch", WalletName: "alice", Operation: OperationCreate, Token: "MEME", Repeat: 1},
		{TaskName: "ape", WalletName: "bob", Operation: OperationBuy, Token: "MEME", AmountSol: 1, SlippagePercent: 1, Repeat: 2},
		{TaskName: "dump", WalletName: "bob", Operation: OperationSell, Token: "MEME", PercentToSell: 50, SlippagePercent: 1, Repeat: 1},
		{TaskName: "launch-2", WalletName: "alice", Operation: OperationCreate, Token: "PEPE", Curve: "power_law", Repeat: 1},
		{TaskName: "ape-2", WalletName: "bob", Operation: OperationBuy, Token: "PEPE", AmountSol: 0.5, SlippagePercent: 1, Repeat: 1},
		{TaskName: "graduate", WalletName: "platform", Operation: OperationMigrate, Token: "MEME", Repeat: 1},
		{TaskName: "harvest", WalletName: "platform", Operation: OperationHarvest, Token: "MEME", Repeat: 1},
	}

	results, err := env.runner.Run(ctx, tasks)
	require.NoError(t, err)
	require.Len(t, results, len(tasks))
	for _, r := range results {
		assert.Equal(t, StatusCompleted, r.Status(), "%s: %v", r.Task.TaskName, r.LastError)
	}

	meme, ok := env.runner.Mint("MEME")
	require.True(t, ok)
	pepe, ok := env.runner.Mint("PEPE")
	require.True(t, ok)
	assert.NotEqual(t, meme, pepe)

	assert.Equal(t, uint64(2*types.LamportsPerSOL), results[1].Volume)
	assert.Equal(t, 2, results[1].SuccessCount)

	p, err := env.engine.Pool(ctx, meme)
	require.NoError(t, err)
	assert.True(t, p.Migrated)
	assert.Equal(t, pool.StageLiquidityLocked, p.Migration.Stage)

	p, err = env.engine.Pool(ctx, pepe)
	require.NoError(t, err)
	assert.Equal(t, curve.PowerLaw, p.Curve.Kind)
	assert.False(t, p.Migrated)
	assert.NotZero(t, env.ledger.TokenBalance(pepe, ledger.Wallet(env.wallets["bob"].PublicKey)))

	completed, failed, _ := Summary(results)
	assert.Equal(t, len(tasks), completed)
	assert.Zero(t, failed)

	assert.Len(t, env.reporter.history, len(tasks))
	assert.Equal(t, 3, env.measurer.ops[string(OperationBuy)])
}

func TestRunner_FailuresDoNotAbort(t *testing.T) {
	env := newRunnerEnv(t)
	ctx := context.Background()

	tasks := []*Task{
		{TaskName: "ghost-buy", WalletName: "bob", Operation: OperationBuy, Token: "NOPE", AmountSol: 1, Repeat: 1},
		{TaskName: "who", WalletName: "carol", Operation: OperationCreate, Token: "X", Repeat: 1},
		{TaskName: "launch", WalletName: "alice", Operation: OperationCreate, Token: "MEME", Repeat: 1},
		{TaskName: "rogue-migrate", WalletName: "bob", Operation: OperationMigrate, Token: "MEME", Repeat: 1},
		{TaskName: "greedy", WalletName: "bob", Operation: OperationBuy, Token: "MEME", AmountSol: 1_000, Repeat: 1},
		{TaskName: "ok", WalletName: "bob", Operation: OperationBuy, Token: "MEME", AmountSol: 0.1, Repeat: 1},
	}

	results, err := env.runner.Run(ctx, tasks)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, results[0].Status())
	assert.ErrorIs(t, results[0].LastError, types.ErrPoolNotFound)
	assert.ErrorContains(t, results[1].LastError, "unknown wallet")
	assert.Equal(t, StatusCompleted, results[2].Status())
	assert.ErrorIs(t, results[3].LastError, types.ErrUnauthorizedPlatformAuthority)
	assert.Equal(t, StatusFailed, results[4].Status())
	assert.Equal(t, StatusCompleted, results[5].Status())

	h := env.reporter.history
	require.Len(t, h, len(tasks))
	for _, rec := range h {
		if rec.Status == StatusFailed {
			assert.NotEmpty(t, rec.LastError)
		}
	}
}

func TestRunner_Canceled(t *testing.T) {
	env := newRunnerEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.runner.Run(ctx, []*Task{
		{TaskName: "launch", WalletName: "alice", Operation: OperationCreate, Token: "MEME", Repeat: 1},
	})
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
}

func TestRunner_PartialRepeat(t *testing.T) {
	env := newRunnerEnv(t)
	ctx := context.Background()

	// у alice 10 SOL минус депозит пула: третья покупка по 4 SOL не проходит
	results, err := env.runner.Run(ctx, []*Task{
		{TaskName: "launch", WalletName: "alice", Operation: OperationCreate, Token: "MEME", Repeat: 1},
		{TaskName: "ape", WalletName: "alice", Operation: OperationBuy, Token: "MEME", AmountSol: 4, SlippagePercent: 5, Repeat: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, results[1].Status())
	assert.Equal(t, 2, results[1].SuccessCount)
	assert.Equal(t, 1, results[1].ErrorCount)
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(RunnerConfig{Logger: zaptest.NewLogger(t)})
	assert.Error(t, err)
}

func TestConversions(t *testing.T) {
	assert.Equal(t, uint64(1_500_000_000), solToLamports(1.5))
	assert.Equal(t, uint64(0), solToLamports(-1))
	assert.Equal(t, uint64(100_000), solToLamports(0.0001))
	assert.Equal(t, uint64(42*types.TokenUnit), tokensToUnits(42))
}
