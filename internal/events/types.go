// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// EventType represents the type of event.
type EventType string

const (
	// Pool lifecycle
	PoolCreated EventType = "pool.created"
	PoolFunded  EventType = "pool.funded"

	// Trading
	TradeExecuted    EventType = "trade.executed"
	MarketCapUpdated EventType = "market_cap.updated"

	// Migration
	MigrationEligible EventType = "migration.eligible"
	MigrationStaged   EventType = "migration.staged"
	PoolMigrated      EventType = "pool.migrated"
	FeesHarvested     EventType = "fees.harvested"

	// Config
	FeesUpdated EventType = "config.fees_updated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// PoolCreatedEvent is emitted after a genesis pool record is written.
type PoolCreatedEvent struct {
	BaseEvent
	Token   solana.PublicKey
	Creator solana.PublicKey
	Curve   string
}

// PoolFundedEvent is emitted after the one-time deposit.
type PoolFundedEvent struct {
	BaseEvent
	Token        solana.PublicKey
	TotalSupply  uint64
	ReserveToken uint64
	ReserveBase  uint64
}

// TradeExecutedEvent is the TRANSACTION_INFO record of a committed trade.
type TradeExecutedEvent struct {
	BaseEvent
	TradeID      string
	Token        solana.PublicKey
	Side         types.Side
	Wallet       solana.PublicKey
	BaseAmount   uint64 // gross lamports in (buy) or net lamports out (sell)
	TokenAmount  uint64
	PlatformFee  uint64
	CreatorFee   uint64
	Price        float64 // SOL per whole token after the trade
	ReserveBase  uint64
	ReserveToken uint64
}

// MarketCapUpdatedEvent is the CHART_DATA record emitted after every trade.
type MarketCapUpdatedEvent struct {
	BaseEvent
	Token     solana.PublicKey
	MarketCap uint64 // lamports
}

// MigrationEligibleEvent fires once when the base reserve crosses the threshold.
type MigrationEligibleEvent struct {
	BaseEvent
	Token       solana.PublicKey
	ReserveBase uint64
	Threshold   uint64
}

// MigrationStagedEvent reports progress of a migration saga.
type MigrationStagedEvent struct {
	BaseEvent
	Token solana.PublicKey
	Stage string
}

// PoolMigratedEvent is emitted once the saga reaches its final stage.
type PoolMigratedEvent struct {
	BaseEvent
	Token       solana.PublicKey
	DrainAmount uint64
	VenuePool   string
	LockID      string
}

// FeesHarvestedEvent reports fees collected from locked venue liquidity.
type FeesHarvestedEvent struct {
	BaseEvent
	Token  solana.PublicKey
	Amount uint64
}

// FeesUpdatedEvent is emitted when the platform authority changes the fee rate.
type FeesUpdatedEvent struct {
	BaseEvent
	OldRate float64
	NewRate float64
}
