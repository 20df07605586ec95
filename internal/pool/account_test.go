// internal/pool/account_test.go
package pool

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
)

func TestAccount_MigratedPowerLawPool(t *testing.T) {
	created := time.Date(2024, 11, 3, 12, 0, 0, 0, time.UTC)
	p := &Pool{
		Creator:          solana.NewWallet().PublicKey(),
		Token:            solana.NewWallet().PublicKey(),
		CreatorFeeWallet: solana.NewWallet().PublicKey(),
		TotalSupply:      DefaultTokenDeposit,
		Preallocated:     0,
		Curve:            curve.Default(curve.PowerLaw),
		State:            StateMigrated,
		Migrated:         true,
		Migration: Migration{
			Stage:       StageLiquidityLocked,
			DrainAmount: 85_000_000_000,
			DrainTokens: 12_345,
			VenuePool:   "cp:abc",
			LPAmount:    777,
			LockID:      "lock-1",
		},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
	}

	data, err := EncodeAccount(p)
	require.NoError(t, err)
	assert.Equal(t, AccountDiscriminator[:], data[:8])

	got, err := DecodeAccount(data)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestAccount_RejectsForeignDiscriminator(t *testing.T) {
	data, err := EncodeAccount(&Pool{Curve: curve.Default(curve.Proportional)})
	require.NoError(t, err)
	data[0] ^= 0xff

	_, err = DecodeAccount(data)
	assert.Error(t, err)

	_, err = DecodeAccount(data[:4])
	assert.Error(t, err)
}
