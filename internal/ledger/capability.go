// internal/ledger/capability.go
package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Purpose scopes what a capability may move.
type Purpose string

const (
	// PurposeBaseVault signs for the pool's base-currency vault.
	PurposeBaseVault Purpose = "liquidity_sol_vault"
	// PurposeTokenVault signs for the pool's token account.
	PurposeTokenVault Purpose = "liquidity_pool"
	// PurposeVenueBase and PurposeVenueToken hold liquidity handed to the venue.
	PurposeVenueBase  Purpose = "venue_base_vault"
	PurposeVenueToken Purpose = "venue_token_vault"
)

// Capability is the right to debit one pool vault. Holding it is the authorization.
type Capability struct {
	Pool    solana.PublicKey
	Purpose Purpose
}

// BaseVault returns the base-currency vault capability for the pool of token.
func BaseVault(token solana.PublicKey) Capability {
	return Capability{Pool: token, Purpose: PurposeBaseVault}
}

// TokenVault returns the token vault capability for the pool of token.
func TokenVault(token solana.PublicKey) Capability {
	return Capability{Pool: token, Purpose: PurposeTokenVault}
}

// VenueBaseVault holds the base side seeded into the venue for token.
func VenueBaseVault(token solana.PublicKey) Capability {
	return Capability{Pool: token, Purpose: PurposeVenueBase}
}

// VenueTokenVault holds the token side seeded into the venue for token.
func VenueTokenVault(token solana.PublicKey) Capability {
	return Capability{Pool: token, Purpose: PurposeVenueToken}
}

// Address derives the program address the capability signs for.
func (c Capability) Address(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(c.Purpose), c.Pool.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive %s vault for %s: %w", c.Purpose, c.Pool, err)
	}
	return addr, nil
}

func (c Capability) String() string {
	return fmt.Sprintf("%s:%s", c.Purpose, c.Pool)
}
