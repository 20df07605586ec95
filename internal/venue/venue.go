// internal/venue/venue.go
package venue

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/migration"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// DefaultFeeRate is the swap fee charged by the venue (0.25%).
const DefaultFeeRate = 0.0025

// Pool is a constant-product pool seeded by a migration.
type Pool struct {
	ID           string
	Base         solana.PublicKey
	Token        solana.PublicKey
	ReserveBase  uint64
	ReserveToken uint64
	LPSupply     uint64
	LockedLP     uint64
	LockID       string
	// FeesAccrued is base-currency swap fees not yet harvested.
	FeesAccrued uint64
}

// ConstantProduct is an in-process x·y=k venue.
type ConstantProduct struct {
	mu      sync.Mutex
	pools   map[string]*Pool
	locks   map[string]string
	feeRate float64
	logger  *zap.Logger
}

var _ migration.Venue = (*ConstantProduct)(nil)

// New creates a venue charging feeRate on every swap.
func New(feeRate float64, logger *zap.Logger) *ConstantProduct {
	if feeRate < 0 || feeRate >= 1 {
		feeRate = DefaultFeeRate
	}
	return &ConstantProduct{
		pools:   make(map[string]*Pool),
		locks:   make(map[string]string),
		feeRate: feeRate,
		logger:  logger.Named("venue"),
	}
}

func poolID(token solana.PublicKey) string {
	return "cp:" + token.String()
}

// InitializePool seeds a pool. Re-initializing the same token returns the
// existing handle.
func (v *ConstantProduct) InitializePool(_ context.Context, base, token solana.PublicKey, baseAmount, tokenAmount uint64) (migration.VenueHandle, error) {
	if baseAmount == 0 || tokenAmount == 0 {
		return migration.VenueHandle{}, errorsmod.Wrap(types.ErrInsufficientLiquidity, "venue needs both sides")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	id := poolID(token)
	if p, ok := v.pools[id]; ok {
		return migration.VenueHandle{Pool: id, LPAmount: p.LPSupply}, nil
	}

	lp := initialLP(baseAmount, tokenAmount)
	v.pools[id] = &Pool{
		ID:           id,
		Base:         base,
		Token:        token,
		ReserveBase:  baseAmount,
		ReserveToken: tokenAmount,
		LPSupply:     lp,
	}

	v.logger.Info("Venue pool initialized",
		zap.String("pool", id),
		zap.Uint64("base", baseAmount),
		zap.Uint64("token", tokenAmount),
		zap.Uint64("lp", lp))
	return migration.VenueHandle{Pool: id, LPAmount: lp}, nil
}

// LockLiquidity locks the LP minted at initialization.
func (v *ConstantProduct) LockLiquidity(_ context.Context, handle migration.VenueHandle) (migration.LockHandle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	p, ok := v.pools[handle.Pool]
	if !ok {
		return migration.LockHandle{}, fmt.Errorf("venue pool %s not found", handle.Pool)
	}
	if p.LockID == "" {
		p.LockID = "lock:" + p.Token.String()
		p.LockedLP = handle.LPAmount
		v.locks[p.LockID] = p.ID
		v.logger.Info("Liquidity locked", zap.String("pool", p.ID), zap.Uint64("lp", p.LockedLP))
	}
	return migration.LockHandle{ID: p.LockID, Pool: p.ID}, nil
}

// HarvestFees pays out the locked LP's share of accrued fees.
func (v *ConstantProduct) HarvestFees(_ context.Context, lock migration.LockHandle) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, ok := v.locks[lock.ID]
	if !ok {
		return 0, fmt.Errorf("lock %s not found", lock.ID)
	}
	p := v.pools[id]
	if p.LPSupply == 0 {
		return 0, nil
	}

	share := mulDiv(p.FeesAccrued, p.LockedLP, p.LPSupply)
	p.FeesAccrued -= share
	return share, nil
}

// Quote returns the output of a swap without executing it.
func (v *ConstantProduct) Quote(id string, amountIn uint64, baseToToken bool) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	p, ok := v.pools[id]
	if !ok {
		return 0, fmt.Errorf("venue pool %s not found", id)
	}
	out, _ := v.swapAmounts(p, amountIn, baseToToken)
	return out, nil
}

// Swap executes against the pool and accrues the fee in base currency.
func (v *ConstantProduct) Swap(_ context.Context, id string, amountIn, minOut uint64, baseToToken bool) (uint64, error) {
	if amountIn == 0 {
		return 0, errorsmod.Wrap(types.ErrInvalidAmount, "swap amount is zero")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	p, ok := v.pools[id]
	if !ok {
		return 0, fmt.Errorf("venue pool %s not found", id)
	}
	out, fee := v.swapAmounts(p, amountIn, baseToToken)
	if out < minOut {
		return 0, errorsmod.Wrapf(types.ErrSlippageExceeded, "venue out %d below minimum %d", out, minOut)
	}

	if baseToToken {
		p.ReserveBase += amountIn - fee
		p.ReserveToken -= out
	} else {
		p.ReserveToken += amountIn
		p.ReserveBase -= out + fee
	}
	p.FeesAccrued += fee
	return out, nil
}

// Pool returns a snapshot of a venue pool.
func (v *ConstantProduct) Pool(id string) (Pool, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.pools[id]
	if !ok {
		return Pool{}, false
	}
	return *p, true
}

// swapAmounts returns the output and the base-currency fee of a swap.
// base→token: the fee comes off the input; token→base: off the output.
func (v *ConstantProduct) swapAmounts(p *Pool, amountIn uint64, baseToToken bool) (out, fee uint64) {
	if baseToToken {
		fee = uint64(math.Round(float64(amountIn) * v.feeRate))
		return calculateOutput(p.ReserveBase, p.ReserveToken, amountIn-fee), fee
	}
	gross := calculateOutput(p.ReserveToken, p.ReserveBase, amountIn)
	fee = uint64(math.Round(float64(gross) * v.feeRate))
	return gross - fee, fee
}

// calculateOutput: out = y·a / (x + a).
func calculateOutput(reserveIn, reserveOut, amount uint64) uint64 {
	x := new(big.Int).SetUint64(reserveIn)
	y := new(big.Int).SetUint64(reserveOut)
	a := new(big.Int).SetUint64(amount)

	num := new(big.Int).Mul(y, a)
	den := new(big.Int).Add(x, a)
	if den.Sign() == 0 {
		return 0
	}
	return new(big.Int).Quo(num, den).Uint64()
}

// initialLP = floor(sqrt(base·token)).
func initialLP(base, token uint64) uint64 {
	prod := new(big.Int).Mul(new(big.Int).SetUint64(base), new(big.Int).SetUint64(token))
	root := new(big.Int).Sqrt(prod)
	if !root.IsUint64() {
		return math.MaxUint64
	}
	return root.Uint64()
}

func mulDiv(a, b, c uint64) uint64 {
	r := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	return r.Quo(r, new(big.Int).SetUint64(c)).Uint64()
}
