// internal/fees/split.go
package fees

import (
	"math"

	errorsmod "cosmossdk.io/errors"

	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// DefaultPlatformShare is the platform's cut of every collected fee.
const DefaultPlatformShare = 0.5

// Split is the outcome of dividing a gross amount into net and fee parts.
// Net + Platform + Creator always equals the gross amount.
type Split struct {
	Gross    uint64
	Net      uint64
	Platform uint64
	Creator  uint64
}

// Total returns the combined fee.
func (s Split) Total() uint64 {
	return s.Platform + s.Creator
}

// ValidateRate checks a fee percentage.
func ValidateRate(ratePercent float64) error {
	if math.IsNaN(ratePercent) || ratePercent < 0 || ratePercent > 100 {
		return errorsmod.Wrapf(types.ErrInvalidFeePercentage, "fee rate %v", ratePercent)
	}
	return nil
}

// ValidateShare checks the platform share of a fee.
func ValidateShare(share float64) error {
	if math.IsNaN(share) || share < 0 || share > 1 {
		return errorsmod.Wrapf(types.ErrInvalidFee, "platform share %v outside [0,1]", share)
	}
	return nil
}

// Compute splits gross using ratePercent and gives platformShare of the fee to the
// platform and the rest to the creator. Amounts round half-up to whole lamports;
// remainders are derived by subtraction so nothing is created or lost.
func Compute(gross uint64, ratePercent, platformShare float64) (Split, error) {
	if err := ValidateRate(ratePercent); err != nil {
		return Split{}, err
	}
	if err := ValidateShare(platformShare); err != nil {
		return Split{}, err
	}

	fee, err := roundHalfUp(float64(gross) * ratePercent / 100)
	if err != nil {
		return Split{}, err
	}
	if fee > gross {
		fee = gross
	}
	platform, err := roundHalfUp(float64(fee) * platformShare)
	if err != nil {
		return Split{}, err
	}
	if platform > fee {
		platform = fee
	}

	return Split{
		Gross:    gross,
		Net:      gross - fee,
		Platform: platform,
		Creator:  fee - platform,
	}, nil
}

// roundHalfUp округляет к ближайшему, половину вверх. Результат вне u64 - ошибка.
func roundHalfUp(v float64) (uint64, error) {
	r := math.Floor(v + 0.5)
	if r >= math.Exp2(64) {
		return 0, errorsmod.Wrapf(types.ErrOverflowOrUnderflowOccurred, "fee %v exceeds u64", v)
	}
	return uint64(r), nil
}
