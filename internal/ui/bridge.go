package ui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
)

const (
	DefaultUpdateInterval = 250 * time.Millisecond
	bridgeBufferSize      = 256
)

// Bridge turns bus events into bubbletea messages. Pool snapshots go through
// the throttler; trades and lifecycle events are sent directly and dropped
// when the UI falls behind.
type Bridge struct {
	out       chan tea.Msg
	throttler *Throttler
	subs      []events.Subscription
	dropped   atomic.Uint64
	logger    *zap.Logger
}

// NewBridge subscribes to bus.
func NewBridge(bus *events.Bus, interval time.Duration, logger *zap.Logger) *Bridge {
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	out := make(chan tea.Msg, bridgeBufferSize)
	b := &Bridge{
		out:       out,
		throttler: NewThrottler(interval, out, logger.Named("ui_throttler")),
		logger:    logger.Named("ui_bridge"),
	}
	b.subs = append(b.subs,
		bus.Subscribe(events.PoolCreated, events.Typed(func(_ context.Context, e *events.PoolCreatedEvent) error {
			b.send(PoolCreatedMsg{Token: e.Token.String(), Curve: e.Curve})
			return nil
		})),
		bus.Subscribe(events.TradeExecuted, events.Typed(func(_ context.Context, e *events.TradeExecutedEvent) error {
			b.send(TradeMsg{Trade: monitor.TradeFromEvent(e)})
			b.throttler.Send(PoolUpdateMsg{
				Token:        e.Token.String(),
				ReserveBase:  e.ReserveBase,
				ReserveToken: e.ReserveToken,
				Price:        e.Price,
			})
			return nil
		})),
		bus.Subscribe(events.MarketCapUpdated, events.Typed(func(_ context.Context, e *events.MarketCapUpdatedEvent) error {
			b.throttler.Send(PoolUpdateMsg{Token: e.Token.String(), MarketCap: e.MarketCap})
			return nil
		})),
		bus.Subscribe(events.MigrationStaged, events.Typed(func(_ context.Context, e *events.MigrationStagedEvent) error {
			b.send(MigrationMsg{Token: e.Token.String(), Stage: e.Stage})
			return nil
		})),
	)
	return b
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.out <- msg:
	default:
		b.dropped.Add(1)
	}
}

// Listen returns a command that waits for the next bridge message.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-b.out
	}
}

// Flush sends throttled pool updates that are due.
func (b *Bridge) Flush() {
	b.throttler.FlushPending()
}

// Dropped returns how many trade and lifecycle messages were discarded.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// Close unsubscribes from the bus.
func (b *Bridge) Close() {
	for _, s := range b.subs {
		s.Unsubscribe()
	}
	b.subs = nil
	sent, throttled := b.throttler.GetStats()
	b.logger.Debug("UI bridge closed",
		zap.Uint64("sent", sent),
		zap.Uint64("throttled", throttled),
		zap.Uint64("dropped", b.Dropped()))
}
