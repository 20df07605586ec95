// internal/migration/worker.go
package migration

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// Worker migrates pools as soon as the engine reports them eligible.
type Worker struct {
	ctrl      *Controller
	authority solana.PublicKey
	workers   int
	queue     chan solana.PublicKey
	sub       events.Subscription
	logger    *zap.Logger
}

// NewWorker subscribes to MigrationEligible on bus. Migrations are signed by
// authority and at most workers run at once.
func NewWorker(ctrl *Controller, bus *events.Bus, authority solana.PublicKey, workers int, logger *zap.Logger) *Worker {
	if workers <= 0 {
		workers = 1
	}
	w := &Worker{
		ctrl:      ctrl,
		authority: authority,
		workers:   workers,
		queue:     make(chan solana.PublicKey, 64),
		logger:    logger.Named("migration_worker"),
	}
	w.sub = bus.Subscribe(events.MigrationEligible, events.Typed(
		func(ctx context.Context, e *events.MigrationEligibleEvent) error {
			return w.Enqueue(ctx, e.Token)
		}))
	return w
}

// Enqueue schedules a migration. It blocks while the queue is full.
func (w *Worker) Enqueue(ctx context.Context, token solana.PublicKey) error {
	select {
	case w.queue <- token:
		w.logger.Debug("Migration queued", zap.String("token", token.String()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes the queue until ctx is done, then waits for in-flight migrations.
func (w *Worker) Run(ctx context.Context) error {
	defer w.sub.Unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)

	w.logger.Info("Migration worker started", zap.Int("workers", w.workers))
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case token := <-w.queue:
			g.Go(func() error {
				w.migrate(gctx, token)
				return nil
			})
		}
	}

	err := g.Wait()
	w.logger.Info("Migration worker stopped")
	return err
}

func (w *Worker) migrate(ctx context.Context, token solana.PublicKey) {
	p, err := w.ctrl.Migrate(ctx, token, w.authority)
	switch {
	case err == nil:
		w.logger.Info("Auto migration complete",
			zap.String("token", token.String()),
			zap.String("stage", p.Migration.Stage.String()))
	case errors.Is(err, types.ErrAlreadyMigrated):
		w.logger.Debug("Pool already migrated", zap.String("token", token.String()))
	case errors.Is(err, context.Canceled):
		w.logger.Warn("Auto migration interrupted", zap.String("token", token.String()))
	default:
		w.logger.Error("Auto migration failed", zap.String("token", token.String()), zap.Error(err))
	}
}
