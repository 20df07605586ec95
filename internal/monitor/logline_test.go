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

func TestFormatTransactionInfoLayout(t *testing.T) {
	token := solana.NewWallet().PublicKey()
	wallet := solana.NewWallet().PublicKey()
	e := tradeEvent(token, wallet, types.SideSell, 42, 7, time.Now())

	want := `TRANSACTION_INFO{"token_mint_address":"` + token.String() +
		`","type":"SELL","sol_amount":42,"token_amount":7,"wallet":"` + wallet.String() + `"}`
	assert.Equal(t, want, FormatTransactionInfo(e))

	chart := &events.MarketCapUpdatedEvent{Token: token, MarketCap: 30_000_000_000}
	assert.Equal(t, `CHART_DATA{"token_mint_address":"`+token.String()+`", "mcap":30000000000}`, FormatChartData(chart))
}

func TestParseLine(t *testing.T) {
	rec, err := ParseLine(`Program log: TRANSACTION_INFO{"token_mint_address":"Mint1","type":"BUY","sol_amount":18446744073709551615,"token_amount":5,"wallet":"W1"}`)
	require.NoError(t, err)
	require.NotNil(t, rec.Tx)
	assert.Nil(t, rec.Chart)
	assert.True(t, rec.Time.IsZero())
	assert.Equal(t, TransactionInfo{Token: "Mint1", Side: types.SideBuy, SolAmount: 18446744073709551615, TokenAmount: 5, Wallet: "W1"}, *rec.Tx)

	rec, err = ParseLine(`2024-05-01T12:00:31Z CHART_DATA{"token_mint_address":"Mint1", "mcap":123}`)
	require.NoError(t, err)
	require.NotNil(t, rec.Chart)
	assert.Equal(t, ChartData{Token: "Mint1", MCap: 123}, *rec.Chart)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 31, 0, time.UTC), rec.Time.UTC())
}

func TestParseLineRejects(t *testing.T) {
	_, err := ParseLine("Program consumed 1200 units")
	assert.ErrorIs(t, err, ErrNoRecord)

	_, err = ParseLine(`TRANSACTION_INFO{"token_mint_address":`)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRecord)

	_, err = ParseLine(`TRANSACTION_INFO{"token_mint_address":"M","type":"HOLD","sol_amount":1,"token_amount":1,"wallet":"W"}`)
	assert.Error(t, err)
}
