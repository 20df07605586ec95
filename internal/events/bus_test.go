// internal/events/bus_test.go
package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) Handle(_ context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 64)
	c := &collector{}
	bus.Subscribe(MarketCapUpdated, c)

	token := solana.NewWallet().PublicKey()
	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(&MarketCapUpdatedEvent{
			BaseEvent: NewBase(MarketCapUpdated),
			Token:     token,
			MarketCap: uint64(i),
		}))
	}

	require.Eventually(t, func() bool { return c.len() == 20 }, time.Second, 5*time.Millisecond)
	for i, e := range c.events {
		assert.Equal(t, uint64(i), e.(*MarketCapUpdatedEvent).MarketCap)
	}
	require.NoError(t, bus.Shutdown(context.Background()))
}

func TestBus_AllEventsAndUnsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer bus.Shutdown(context.Background())

	all := &collector{}
	sub := bus.Subscribe(AllEvents, all)

	require.NoError(t, bus.PublishSync(context.Background(), &PoolCreatedEvent{BaseEvent: NewBase(PoolCreated)}))
	require.NoError(t, bus.PublishSync(context.Background(), &FeesUpdatedEvent{BaseEvent: NewBase(FeesUpdated)}))
	assert.Equal(t, 2, all.len())

	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(context.Background(), &FeesUpdatedEvent{BaseEvent: NewBase(FeesUpdated)}))
	assert.Equal(t, 2, all.len())
	assert.Empty(t, bus.Stats().HandlersPerType)
}

func TestBus_PublishSyncJoinsErrors(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(PoolMigrated, func(context.Context, Event) error { return boom })

	err := bus.PublishSync(context.Background(), &PoolMigratedEvent{BaseEvent: NewBase(PoolMigrated)})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	block := make(chan struct{})
	bus.SubscribeFunc(TradeExecuted, func(context.Context, Event) error {
		<-block
		return nil
	})

	var dropped bool
	for i := 0; i < 10; i++ {
		if err := bus.Publish(&TradeExecutedEvent{BaseEvent: NewBase(TradeExecuted)}); errors.Is(err, ErrBusFull) {
			dropped = true
			break
		}
	}
	assert.True(t, dropped)
	assert.NotZero(t, bus.Stats().Dropped)

	close(block)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(&TradeExecutedEvent{BaseEvent: NewBase(TradeExecuted)}), ErrBusClosed)
}

func TestTyped_IgnoresOtherEvents(t *testing.T) {
	var got []uint64
	h := Typed(func(_ context.Context, e *MarketCapUpdatedEvent) error {
		got = append(got, e.MarketCap)
		return nil
	})

	require.NoError(t, h.Handle(context.Background(), &MarketCapUpdatedEvent{BaseEvent: NewBase(MarketCapUpdated), MarketCap: 7}))
	require.NoError(t, h.Handle(context.Background(), &PoolFundedEvent{BaseEvent: NewBase(PoolFunded)}))
	assert.Equal(t, []uint64{7}, got)
}
