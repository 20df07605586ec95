// internal/migration/venue.go
package migration

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// VenueHandle identifies liquidity seeded into an external venue.
type VenueHandle struct {
	Pool     string
	LPAmount uint64
}

// LockHandle identifies locked LP.
type LockHandle struct {
	ID   string
	Pool string
}

// Venue is the external constant-product venue a migrated pool hands its
// liquidity to.
type Venue interface {
	InitializePool(ctx context.Context, base, token solana.PublicKey, baseAmount, tokenAmount uint64) (VenueHandle, error)
	LockLiquidity(ctx context.Context, handle VenueHandle) (LockHandle, error)
	HarvestFees(ctx context.Context, lock LockHandle) (uint64, error)
}
