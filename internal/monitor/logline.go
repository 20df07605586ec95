// internal/monitor/logline.go
package monitor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

const (
	TransactionInfoTag = "TRANSACTION_INFO"
	ChartDataTag       = "CHART_DATA"
)

var ErrNoRecord = errors.New("line carries no TRANSACTION_INFO or CHART_DATA record")

// TransactionInfo is the parsed form of a TRANSACTION_INFO line.
type TransactionInfo struct {
	Token       string
	Side        types.Side
	SolAmount   uint64
	TokenAmount uint64
	Wallet      string
}

// ChartData is the parsed form of a CHART_DATA line.
type ChartData struct {
	Token string
	MCap  uint64
}

// Record is one parsed log line. Exactly one of Tx and Chart is set.
type Record struct {
	Time  time.Time // zero when the line has no leading timestamp
	Tx    *TransactionInfo
	Chart *ChartData
}

// FormatTransactionInfo renders the TRANSACTION_INFO line of a trade.
// sol_amount is the input for buys and the output for sells.
func FormatTransactionInfo(e *events.TradeExecutedEvent) string {
	return fmt.Sprintf(`%s{"token_mint_address":"%s","type":"%s","sol_amount":%d,"token_amount":%d,"wallet":"%s"}`,
		TransactionInfoTag, e.Token, e.Side, e.BaseAmount, e.TokenAmount, e.Wallet)
}

// FormatChartData renders the CHART_DATA line for a market-cap snapshot.
func FormatChartData(e *events.MarketCapUpdatedEvent) string {
	return fmt.Sprintf(`%s{"token_mint_address":"%s", "mcap":%d}`, ChartDataTag, e.Token, e.MarketCap)
}

// ParseLine extracts a record from a log line. The tag may be preceded by any
// prefix (например "Program log: "); an RFC3339 timestamp as the first field
// becomes Record.Time.
func ParseLine(line string) (Record, error) {
	var rec Record
	if first, _, ok := strings.Cut(strings.TrimSpace(line), " "); ok {
		if ts, err := time.Parse(time.RFC3339Nano, first); err == nil {
			rec.Time = ts
		}
	}

	if idx := strings.Index(line, TransactionInfoTag); idx >= 0 {
		payload := line[idx+len(TransactionInfoTag):]
		if !gjson.Valid(payload) {
			return rec, fmt.Errorf("malformed %s payload: %q", TransactionInfoTag, payload)
		}
		res := gjson.GetMany(payload, "token_mint_address", "type", "sol_amount", "token_amount", "wallet")
		side, err := types.ParseSide(res[1].String())
		if err != nil {
			return rec, err
		}
		rec.Tx = &TransactionInfo{
			Token:       res[0].String(),
			Side:        side,
			SolAmount:   res[2].Uint(),
			TokenAmount: res[3].Uint(),
			Wallet:      res[4].String(),
		}
		return rec, nil
	}

	if idx := strings.Index(line, ChartDataTag); idx >= 0 {
		payload := line[idx+len(ChartDataTag):]
		if !gjson.Valid(payload) {
			return rec, fmt.Errorf("malformed %s payload: %q", ChartDataTag, payload)
		}
		rec.Chart = &ChartData{
			Token: gjson.Get(payload, "token_mint_address").String(),
			MCap:  gjson.Get(payload, "mcap").Uint(),
		}
		return rec, nil
	}

	return rec, ErrNoRecord
}
