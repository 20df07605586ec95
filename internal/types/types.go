// internal/types/types.go
package types

import (
	"fmt"
	"strings"
)

const (
	LamportsPerSOL = 1_000_000_000

	// TokenDecimals is the mint precision used by launchpad tokens.
	TokenDecimals = 9
	TokenUnit     = 1_000_000_000
)

// Side is the direction of a bonding-curve trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("unsupported trade side: %q", s)
	}
}
