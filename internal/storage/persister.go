// internal/storage/persister.go
package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
)

const writeTimeout = 5 * time.Second

// Persister пишет сделки с шины и закрытые свечи в хранилище.
type Persister struct {
	store  Storage
	logger *zap.Logger
	subs   []events.Subscription
}

func NewPersister(store Storage, logger *zap.Logger) *Persister {
	return &Persister{store: store, logger: logger.Named("persister")}
}

// Register subscribes to committed trades.
func (p *Persister) Register(bus *events.Bus) {
	p.subs = append(p.subs, bus.Subscribe(events.TradeExecuted, events.Typed(p.onTrade)))
}

// Close unsubscribes from the bus.
func (p *Persister) Close() {
	for _, s := range p.subs {
		s.Unsubscribe()
	}
	p.subs = nil
}

func (p *Persister) onTrade(ctx context.Context, e *events.TradeExecutedEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.store.SaveTrade(ctx, TradeModel(e)); err != nil {
		p.logger.Error("Failed to persist trade",
			zap.String("trade_id", e.TradeID),
			zap.Error(err))
		return err
	}
	return nil
}

// OnCandle is meant for CandleTracker.OnClose.
func (p *Persister) OnCandle(c monitor.Candle) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := p.store.SaveCandle(ctx, CandleModel(c)); err != nil {
		p.logger.Error("Failed to persist candle",
			zap.String("token", c.Token),
			zap.Int64("t", c.Time),
			zap.Error(err))
	}
}
