// internal/monitor/trade.go
package monitor

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// TokenDecimals совпадает с количеством знаков SOL (1e9).
const TokenDecimals = 9

// priceDecimals - точность цены в CSV и свечах.
const priceDecimals = 10

// Trade represents a committed bonding-curve trade
type Trade struct {
	ID          string
	Timestamp   time.Time
	Wallet      string
	Token       string
	Side        types.Side
	BaseAmount  uint64 // lamports
	TokenAmount uint64 // raw token units
	PlatformFee uint64
	CreatorFee  uint64
	Price       decimal.Decimal // SOL per whole token of this trade
	SpotPrice   float64         // цена кривой после сделки
}

// TradeFromEvent builds a history record from a TRANSACTION_INFO event.
func TradeFromEvent(e *events.TradeExecutedEvent) Trade {
	return Trade{
		ID:          e.TradeID,
		Timestamp:   e.Timestamp(),
		Wallet:      e.Wallet.String(),
		Token:       e.Token.String(),
		Side:        e.Side,
		BaseAmount:  e.BaseAmount,
		TokenAmount: e.TokenAmount,
		PlatformFee: e.PlatformFee,
		CreatorFee:  e.CreatorFee,
		Price:       ExecutionPrice(e.BaseAmount, e.TokenAmount),
		SpotPrice:   e.Price,
	}
}

// ExecutionPrice returns SOL per whole token for a trade. Both sides carry
// 9 decimals so the ratio of raw amounts is already the human price.
func ExecutionPrice(lamports, tokenUnits uint64) decimal.Decimal {
	if tokenUnits == 0 {
		return decimal.Zero
	}
	return units(lamports).DivRound(units(tokenUnits), priceDecimals)
}

// FormatSOL renders lamports as SOL.
func FormatSOL(lamports uint64) string {
	return units(lamports).Shift(-9).String()
}

// FormatTokens renders raw token units as whole tokens.
func FormatTokens(raw uint64) string {
	return units(raw).Shift(-TokenDecimals).String()
}

func units(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// ToCSV converts trade to CSV record
func (t *Trade) ToCSV() []string {
	return []string{
		t.ID,
		t.Timestamp.UTC().Format(time.RFC3339Nano),
		t.Wallet,
		t.Token,
		string(t.Side),
		FormatSOL(t.BaseAmount),
		FormatTokens(t.TokenAmount),
		t.Price.StringFixed(priceDecimals),
		FormatSOL(t.PlatformFee),
		FormatSOL(t.CreatorFee),
		decimal.NewFromFloat(t.SpotPrice).StringFixed(priceDecimals),
	}
}

// CSVHeaders returns the header row for trade CSV files
func CSVHeaders() []string {
	return []string{
		"id",
		"timestamp",
		"wallet",
		"token_mint",
		"type",
		"sol_amount",
		"token_amount",
		"price",
		"platform_fee",
		"creator_fee",
		"spot_price",
	}
}
