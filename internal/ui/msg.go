package ui

import (
	"time"

	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/task"
)

// PoolCreatedMsg is sent once per new pool.
type PoolCreatedMsg struct {
	Token string
	Curve string
}

// PoolUpdateMsg is a coalesced snapshot of a pool after trades.
type PoolUpdateMsg struct {
	Token        string
	ReserveBase  uint64
	ReserveToken uint64
	Price        float64
	MarketCap    uint64
}

// merge folds a newer update into u. Zero fields in next keep the older value,
// since trades and market-cap snapshots arrive as separate events.
func (u PoolUpdateMsg) merge(next PoolUpdateMsg) PoolUpdateMsg {
	if next.ReserveBase != 0 || next.ReserveToken != 0 {
		u.ReserveBase = next.ReserveBase
		u.ReserveToken = next.ReserveToken
		u.Price = next.Price
	}
	if next.MarketCap != 0 {
		u.MarketCap = next.MarketCap
	}
	u.Token = next.Token
	return u
}

// TradeMsg carries one committed trade for the feed.
type TradeMsg struct {
	Trade monitor.Trade
}

// MigrationMsg reports a migration stage change.
type MigrationMsg struct {
	Token string
	Stage string
}

// SimulationDoneMsg is sent when the task runner returns.
type SimulationDoneMsg struct {
	Results []*task.Result
	Err     error
}

// TickMsg drives periodic refreshes.
type TickMsg time.Time
