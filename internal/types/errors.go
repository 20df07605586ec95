// internal/types/errors.go
package types

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Codespace is the registry namespace for launchpad errors.
const Codespace = "launchpad"

// Error codes start at 6000 to line up with on-chain program error numbering.
var (
	// Validation
	ErrInvalidAmount        = errorsmod.Register(Codespace, 6000, "invalid amount")
	ErrInvalidFeePercentage = errorsmod.Register(Codespace, 6001, "fee percentage must be within [0,100]")
	ErrInvalidFee           = errorsmod.Register(Codespace, 6002, "invalid fee")

	// Authorization
	ErrUnauthorized                  = errorsmod.Register(Codespace, 6010, "unauthorized")
	ErrUnauthorizedPlatformAuthority = errorsmod.Register(Codespace, 6011, "signer is not the platform authority")
	ErrNotCreator                    = errorsmod.Register(Codespace, 6012, "signer is not the pool creator")

	// State
	ErrAlreadyMigrated          = errorsmod.Register(Codespace, 6020, "pool already migrated")
	ErrPoolValueTooLow          = errorsmod.Register(Codespace, 6021, "pool value too low")
	ErrInsufficientLiquidity    = errorsmod.Register(Codespace, 6022, "insufficient liquidity")
	ErrDuplicateTokenNotAllowed = errorsmod.Register(Codespace, 6023, "pool for token already exists")
	ErrPoolNotFound             = errorsmod.Register(Codespace, 6024, "pool not found")
	ErrPoolAlreadyFunded        = errorsmod.Register(Codespace, 6025, "pool already funded")
	ErrPoolNotFunded            = errorsmod.Register(Codespace, 6026, "pool not funded")
	ErrConfigNotInitialized     = errorsmod.Register(Codespace, 6027, "curve config not initialized")

	// Economic
	ErrSlippageExceeded        = errorsmod.Register(Codespace, 6030, "slippage exceeded")
	ErrNotEnoughTokenInVault   = errorsmod.Register(Codespace, 6031, "not enough tokens in vault")
	ErrNotEnoughSolInVault     = errorsmod.Register(Codespace, 6032, "not enough SOL in vault")
	ErrTokenAmountToSellTooBig = errorsmod.Register(Codespace, 6033, "token amount to sell exceeds tokens sold")
	ErrInsufficientShares      = errorsmod.Register(Codespace, 6034, "insufficient shares")
	ErrInsufficientFunds       = errorsmod.Register(Codespace, 6035, "insufficient funds")

	// Arithmetic
	ErrOverflowOrUnderflowOccurred = errorsmod.Register(Codespace, 6040, "overflow or underflow occurred")
	ErrCalculationError            = errorsmod.Register(Codespace, 6041, "calculation error")
	ErrNegativeNumber              = errorsmod.Register(Codespace, 6042, "negative number")
)

// ErrorKind groups registered errors into the families callers branch on.
type ErrorKind string

const (
	KindUnknown       ErrorKind = "unknown"
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindState         ErrorKind = "state"
	KindEconomic      ErrorKind = "economic"
	KindArithmetic    ErrorKind = "arithmetic"
)

var kinds = []struct {
	kind ErrorKind
	errs []error
}{
	{KindValidation, []error{ErrInvalidAmount, ErrInvalidFeePercentage, ErrInvalidFee}},
	{KindAuthorization, []error{ErrUnauthorized, ErrUnauthorizedPlatformAuthority, ErrNotCreator}},
	{KindState, []error{
		ErrAlreadyMigrated, ErrPoolValueTooLow, ErrInsufficientLiquidity, ErrDuplicateTokenNotAllowed,
		ErrPoolNotFound, ErrPoolAlreadyFunded, ErrPoolNotFunded, ErrConfigNotInitialized,
	}},
	{KindEconomic, []error{
		ErrSlippageExceeded, ErrNotEnoughTokenInVault, ErrNotEnoughSolInVault,
		ErrTokenAmountToSellTooBig, ErrInsufficientShares, ErrInsufficientFunds,
	}},
	{KindArithmetic, []error{ErrOverflowOrUnderflowOccurred, ErrCalculationError, ErrNegativeNumber}},
}

// KindOf reports the family of a (possibly wrapped) registered error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindUnknown
}

// Code returns the registered code for err, or 0 when err is not registered.
func Code(err error) uint32 {
	var coded *errorsmod.Error
	if errors.As(err, &coded) {
		return coded.ABCICode()
	}
	return 0
}
