// internal/pool/pool.go
package pool

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
)

// State is the lifecycle position of a pool.
type State uint8

const (
	StateUninitialized State = iota
	StateFunded
	StateTrading
	StateMigrated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateFunded:
		return "funded"
	case StateTrading:
		return "trading"
	case StateMigrated:
		return "migrated"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Stage tracks how far a migration saga has progressed.
type Stage uint8

const (
	StageNone Stage = iota
	StageDrainPending
	StageDrained
	StageVenueInitialized
	StageLiquidityLocked
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageDrainPending:
		return "drain_pending"
	case StageDrained:
		return "drained"
	case StageVenueInitialized:
		return "venue_initialized"
	case StageLiquidityLocked:
		return "liquidity_locked"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// Migration records the post-latch saga. Amounts are captured when the latch
// is written so retries move exactly the same quantities.
type Migration struct {
	Stage         Stage
	DrainAmount   uint64 // lamports moved out of the base vault
	DrainTokens   uint64 // unsold tokens moved out of the token vault
	BurnAmount    uint64 // platform allocation burned from the authority
	VenuePool     string
	LPAmount      uint64
	LockID        string
	HarvestedFees uint64
}

// Pool is the per-token bonding-curve record.
type Pool struct {
	Creator          solana.PublicKey
	Token            solana.PublicKey
	CreatorFeeWallet solana.PublicKey

	TotalSupply  uint64
	ReserveToken uint64
	ReserveBase  uint64
	// Preallocated is the part of TotalSupply minted to the platform authority
	// instead of the pool vault at funding.
	Preallocated uint64

	Curve    curve.Model
	State    State
	Migrated bool
	// MigrationSignaled latches once MigrationEligible has been published.
	MigrationSignaled bool
	Migration         Migration

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokensSold is the cumulative amount the curve has released.
func (p *Pool) TokensSold() uint64 {
	if p.ReserveToken > p.TotalSupply {
		return 0
	}
	return p.TotalSupply - p.ReserveToken
}

// Price returns the marginal price in SOL per whole token.
func (p *Pool) Price() float64 {
	return p.Curve.Price(p.TokensSold())
}

// MarketCap returns the market-cap snapshot in lamports.
func (p *Pool) MarketCap() uint64 {
	return p.Curve.MarketCap(p.TokensSold(), p.ReserveBase, p.TotalSupply)
}

// Clone returns an independent copy.
func (p *Pool) Clone() *Pool {
	cp := *p
	return &cp
}
