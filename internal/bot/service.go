// internal/bot/service.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/config"
	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/ledger"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/metrics"
	"github.com/rovshanmuradov/curve-launchpad/internal/migration"
	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage"
	"github.com/rovshanmuradov/curve-launchpad/internal/task"
	"github.com/rovshanmuradov/curve-launchpad/internal/venue"
)

// ProgramID is the launchpad program the simulated vault addresses derive from.
var ProgramID = solana.MustPublicKeyFromBase58("8sZuVSqHEvhRTn1syQwgbwfwqr8PNjdty4a6o2BzL1ox")

const (
	busBufferSize   = 1024
	maxTrades       = 1000
	maxClosedCandle = 500
	// ActivityLogFile holds TRANSACTION_INFO / CHART_DATA lines for replay.
	ActivityLogFile = "activity.log"
)

// ServiceConfig configuration for Service
type ServiceConfig struct {
	App     *config.Config
	Wallets task.Roster
	// Store overrides the in-memory pool store (e.g. postgres).
	Store pool.Store
	// Storage persists trades, closed candles and task history; optional.
	Storage storage.Storage
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// Service wires the launchpad engine, migration, monitoring and the scripted
// trading runner into one simulation.
type Service struct {
	app       *config.Config
	bus       *events.Bus
	ledger    *ledger.Memory
	engine    *pool.Engine
	ctrl      *migration.Controller
	worker    *migration.Worker
	runner    *task.Runner
	wallets   task.Roster
	authority *task.Wallet
	candles   *monitor.CandleTracker
	history   *monitor.TradeHistory
	metrics   *metrics.Collector
	shutdown  *ShutdownHandler
	logger    *zap.Logger

	workerOnce sync.Once
	workerStop context.CancelFunc
	workerDone chan struct{}
}

// NewService creates a simulation. Every wallet in the roster is credited with
// App.AirdropSOL before any task runs.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.App == nil {
		return nil, errors.New("config is required")
	}
	log := cfg.Logger.Named("bot_service")
	log.Info("🚀 Initializing simulation")

	wallets := make(task.Roster, len(cfg.Wallets)+2)
	for name, w := range cfg.Wallets {
		wallets[name] = w
	}
	authority, err := pick(wallets, cfg.App.Authority, "platform")
	if err != nil {
		return nil, fmt.Errorf("authority: %w", err)
	}
	feeWallet := authority
	if cfg.App.PlatformFeeWallet != "" {
		if feeWallet, err = wallets.Get(cfg.App.PlatformFeeWallet); err != nil {
			return nil, fmt.Errorf("platform fee wallet: %w", err)
		}
	}

	model, err := cfg.App.CurveModel()
	if err != nil {
		return nil, err
	}

	s := &Service{
		app:       cfg.App,
		bus:       events.NewBus(cfg.Logger, busBufferSize),
		ledger:    ledger.NewMemory(ProgramID, cfg.Logger),
		wallets:   wallets,
		authority: authority,
		candles:   monitor.NewCandleTracker(maxClosedCandle),
		metrics:   cfg.Metrics,
		shutdown:  NewShutdownHandler(cfg.Logger, DefaultShutdownTimeout),
		logger:    log,
	}
	airdrop := uint64(decimal.NewFromFloat(cfg.App.AirdropSOL).Shift(9).IntPart())
	for _, name := range wallets.Names() {
		s.ledger.Airdrop(wallets[name].PublicKey, airdrop)
	}
	log.Info("✅ Wallets funded",
		zap.Int("wallet_count", len(wallets)),
		zap.String("airdrop_sol", monitor.FormatSOL(airdrop)))

	configs := pool.NewConfigStore(pool.KeyAuthority{}, s.bus, cfg.Logger)
	if err := configs.Initialize(cfg.App.PoolConfig(authority.PublicKey, feeWallet.PublicKey)); err != nil {
		return s.fail(fmt.Errorf("initialize config: %w", err))
	}

	store := cfg.Store
	if store == nil {
		store = pool.NewMemoryStore()
	}
	s.engine = pool.NewEngine(store, s.ledger, configs, s.bus, cfg.Logger)
	s.ctrl = migration.NewController(s.engine, s.ledger, venue.New(venue.DefaultFeeRate, cfg.Logger),
		s.bus, cfg.App.MigrationOptions(), cfg.Logger)

	if err := s.wireMonitoring(cfg); err != nil {
		return s.fail(err)
	}
	s.shutdown.Add("event_bus", s.bus.Shutdown)

	if cfg.App.Migration.Auto {
		s.worker = migration.NewWorker(s.ctrl, s.bus, authority.PublicKey, cfg.App.Workers, cfg.Logger)
		s.workerDone = make(chan struct{})
		s.shutdown.Add("migration_worker", s.stopWorker)
	}

	runnerCfg := task.RunnerConfig{
		Engine:     s.engine,
		Controller: s.ctrl,
		Balances:   s.ledger,
		Wallets:    wallets,
		Authority:  authority,
		Defaults: task.PoolDefaults{
			Curve:        model,
			TotalSupply:  cfg.App.Pool.TotalSupply,
			TokenDeposit: cfg.App.Pool.TokenDeposit,
			BaseDeposit:  cfg.App.Pool.BaseDeposit,
		},
		Workers: cfg.App.Workers,
		Logger:  cfg.Logger,
	}
	if cfg.Metrics != nil {
		runnerCfg.Measurer = cfg.Metrics
	}
	if cfg.Storage != nil {
		runnerCfg.Reporter = cfg.Storage
	}
	if s.runner, err = task.NewRunner(runnerCfg); err != nil {
		return s.fail(err)
	}

	log.Info("✅ Simulation initialized",
		zap.String("authority", authority.String()),
		zap.String("curve", model.Kind.String()),
		zap.Bool("auto_migration", cfg.App.Migration.Auto))
	return s, nil
}

func (s *Service) fail(err error) (*Service, error) {
	_ = s.Close()
	_ = s.bus.Shutdown(context.Background())
	return nil, err
}

// pick returns the named wallet, or generates one under fallback when name is empty.
func pick(wallets task.Roster, name, fallback string) (*task.Wallet, error) {
	if name != "" {
		return wallets.Get(name)
	}
	if w, ok := wallets[fallback]; ok {
		return w, nil
	}
	w := task.GenerateWallet(fallback)
	wallets[fallback] = w
	return w, nil
}

func (s *Service) wireMonitoring(cfg ServiceConfig) error {
	var activity *logger.ActivityWriter
	if cfg.App.LogDir != "" {
		history, err := monitor.NewTradeHistory(cfg.App.LogDir, maxTrades, cfg.Logger)
		if err != nil {
			return fmt.Errorf("trade history: %w", err)
		}
		s.history = history
		s.shutdown.AddFunc("trade_history", history.Close)

		activity, err = logger.NewActivityWriter(
			filepath.Join(cfg.App.LogDir, ActivityLogFile), time.Second, cfg.Logger)
		if err != nil {
			return fmt.Errorf("activity log: %w", err)
		}
		s.shutdown.AddFunc("activity_log", activity.Close)
	}

	recorder := monitor.NewRecorder(s.history, s.candles, activity, cfg.Logger)
	recorder.Register(s.bus)
	s.shutdown.AddFunc("recorder", func() error { recorder.Close(); return nil })

	if cfg.Metrics != nil {
		cfg.Metrics.Register(s.bus)
		s.shutdown.AddFunc("metrics", func() error {
			cfg.Metrics.UpdateBusStats(s.bus.Stats())
			cfg.Metrics.Close()
			return nil
		})
	}

	if cfg.Storage != nil {
		persister := storage.NewPersister(cfg.Storage, cfg.Logger)
		persister.Register(s.bus)
		s.candles.OnClose(persister.OnCandle)
		s.shutdown.AddFunc("persister", func() error { persister.Close(); return nil })
	}
	return nil
}

// Start resumes interrupted migrations and launches the auto-migration worker.
func (s *Service) Start(ctx context.Context) error {
	if err := s.ctrl.ResumeAll(ctx); err != nil {
		s.logger.Warn("Some migrations could not be resumed", zap.Error(err))
	}
	if s.worker == nil {
		return nil
	}
	s.workerOnce.Do(func() {
		wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.workerStop = cancel
		go func() {
			defer close(s.workerDone)
			if err := s.worker.Run(wctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Migration worker failed", zap.Error(err))
			}
		}()
	})
	return nil
}

func (s *Service) stopWorker(ctx context.Context) error {
	if s.workerStop == nil {
		return nil
	}
	s.workerStop()
	select {
	case <-s.workerDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks and returns their results.
func (s *Service) Run(ctx context.Context, tasks []*task.Task) ([]*task.Result, error) {
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	results, err := s.runner.Run(ctx, tasks)

	completed, failed, volume := task.Summary(results)
	s.logger.Info("📋 Simulation finished",
		zap.Int("completed", completed),
		zap.Int("failed", failed),
		zap.String("volume_sol", monitor.FormatSOL(volume)))
	if s.metrics != nil {
		s.metrics.UpdateBusStats(s.bus.Stats())
	}
	return results, err
}

// Settle waits until the bus has delivered every queued event.
func (s *Service) Settle(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for s.bus.Stats().Pending > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close stops every component. Safe to call more than once.
func (s *Service) Close() error {
	return s.shutdown.Shutdown(context.Background())
}

func (s *Service) Bus() *events.Bus { return s.bus }
func (s *Service) Engine() *pool.Engine { return s.engine }
func (s *Service) Controller() *migration.Controller { return s.ctrl }
func (s *Service) Ledger() *ledger.Memory { return s.ledger }
func (s *Service) Runner() *task.Runner { return s.runner }
func (s *Service) Candles() *monitor.CandleTracker { return s.candles }
func (s *Service) History() *monitor.TradeHistory { return s.history }
func (s *Service) Wallets() task.Roster { return s.wallets }
func (s *Service) Authority() *task.Wallet { return s.authority }
func (s *Service) LogDir() string { return s.app.LogDir }
