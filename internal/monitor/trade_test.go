package monitor

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

func tradeEvent(token, wallet solana.PublicKey, side types.Side, base, tokens uint64, at time.Time) *events.TradeExecutedEvent {
	return &events.TradeExecutedEvent{
		BaseEvent:   events.BaseEvent{EventType: events.TradeExecuted, EventTime: at},
		TradeID:     "trade-" + at.Format("150405.000"),
		Token:       token,
		Side:        side,
		Wallet:      wallet,
		BaseAmount:  base,
		TokenAmount: tokens,
		PlatformFee: base / 200,
		CreatorFee:  base / 200,
		Price:       0.0000001,
	}
}

func TestExecutionPrice(t *testing.T) {
	assert.Equal(t, "0.0005", ExecutionPrice(1_000_000_000, 2_000_000_000_000).String())
	assert.True(t, ExecutionPrice(1, 0).IsZero())
	assert.Equal(t, "0.3333333333", ExecutionPrice(1, 3).String())
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1.5", FormatSOL(1_500_000_000))
	assert.Equal(t, "0", FormatSOL(0))
	assert.Equal(t, "800000000", FormatTokens(800_000_000_000_000_000))
	assert.Equal(t, "0.000000001", FormatTokens(1))
}

func TestTradeFromEventToCSV(t *testing.T) {
	token := solana.NewWallet().PublicKey()
	wallet := solana.NewWallet().PublicKey()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	trade := TradeFromEvent(tradeEvent(token, wallet, types.SideBuy, 1_000_000_000, 2_000_000_000_000, at))
	row := trade.ToCSV()

	require.Len(t, row, len(CSVHeaders()))
	assert.Equal(t, "2024-05-01T12:00:00Z", row[1])
	assert.Equal(t, wallet.String(), row[2])
	assert.Equal(t, token.String(), row[3])
	assert.Equal(t, "BUY", row[4])
	assert.Equal(t, "1", row[5])
	assert.Equal(t, "2000", row[6])
	assert.Equal(t, "0.0005000000", row[7])
	assert.Equal(t, "0.005", row[8])
	assert.Equal(t, "0.0000001000", row[10])
}
