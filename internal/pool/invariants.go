// internal/pool/invariants.go
package pool

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// Op labels the mutation a transition check is evaluated for.
type Op string

const (
	OpCreate  Op = "create"
	OpFund    Op = "fund"
	OpBuy     Op = "buy"
	OpSell    Op = "sell"
	OpMigrate Op = "migrate"
	OpUpdate  Op = "update"
)

// CheckInvariants validates a single pool record.
func CheckInvariants(p *Pool) error {
	if p.ReserveToken > p.TotalSupply {
		return errorsmod.Wrapf(types.ErrOverflowOrUnderflowOccurred,
			"reserve token %d exceeds total supply %d", p.ReserveToken, p.TotalSupply)
	}
	if p.Preallocated > p.TotalSupply {
		return errorsmod.Wrapf(types.ErrOverflowOrUnderflowOccurred,
			"preallocation %d exceeds total supply %d", p.Preallocated, p.TotalSupply)
	}
	if p.Migrated != (p.State == StateMigrated) {
		return errorsmod.Wrapf(types.ErrCalculationError,
			"migrated flag %t disagrees with state %s", p.Migrated, p.State)
	}
	if !p.Migrated && p.Migration.Stage != StageNone {
		return errorsmod.Wrapf(types.ErrCalculationError, "migration stage %s on live pool", p.Migration.Stage)
	}
	if p.State == StateUninitialized && (p.TotalSupply != 0 || p.ReserveBase != 0) {
		return errorsmod.Wrap(types.ErrPoolNotFunded, "uninitialized pool holds reserves")
	}
	return nil
}

// CheckTransition validates prev → next for op on top of CheckInvariants.
func CheckTransition(op Op, prev, next *Pool) error {
	if err := CheckInvariants(next); err != nil {
		return err
	}
	if prev == nil {
		return nil
	}
	if prev.Migrated && !next.Migrated {
		return errorsmod.Wrap(types.ErrAlreadyMigrated, "migrated latch cannot be reset")
	}
	if prev.MigrationSignaled && !next.MigrationSignaled {
		return errorsmod.Wrap(types.ErrCalculationError, "migration signal cannot be reset")
	}
	if next.Migration.Stage < prev.Migration.Stage {
		return errorsmod.Wrapf(types.ErrCalculationError,
			"migration stage moved back from %s to %s", prev.Migration.Stage, next.Migration.Stage)
	}

	switch op {
	case OpBuy:
		if next.TokensSold() < prev.TokensSold() || next.ReserveBase < prev.ReserveBase {
			return errorsmod.Wrap(types.ErrCalculationError, "buy decreased tokens sold or base reserve")
		}
	case OpSell:
		if next.TokensSold() > prev.TokensSold() || next.ReserveBase > prev.ReserveBase {
			return errorsmod.Wrap(types.ErrCalculationError, "sell increased tokens sold or base reserve")
		}
	case OpFund, OpCreate:
		if prev.TotalSupply != 0 && next.TotalSupply != prev.TotalSupply {
			return errorsmod.Wrap(types.ErrPoolAlreadyFunded, "total supply is fixed at funding")
		}
	}
	if op != OpFund && prev.TotalSupply != next.TotalSupply {
		return errorsmod.Wrap(types.ErrCalculationError, "total supply changed after funding")
	}
	return nil
}
