// internal/storage/convert.go
package storage

import (
	"fmt"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage/models"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// TradeModel maps a committed trade event onto its row.
func TradeModel(e *events.TradeExecutedEvent) *models.Trade {
	return &models.Trade{
		TradeID:     e.TradeID,
		Token:       e.Token.String(),
		Wallet:      e.Wallet.String(),
		Side:        string(e.Side),
		BaseAmount:  e.BaseAmount,
		TokenAmount: e.TokenAmount,
		PlatformFee: e.PlatformFee,
		CreatorFee:  e.CreatorFee,
		Price:       e.Price,
		ExecutedAt:  e.Timestamp().UTC(),
	}
}

// TradeFromModel maps a stored row back onto a history record.
func TradeFromModel(m *models.Trade) monitor.Trade {
	return monitor.Trade{
		ID:          m.TradeID,
		Timestamp:   m.ExecutedAt,
		Wallet:      m.Wallet,
		Token:       m.Token,
		Side:        types.Side(m.Side),
		BaseAmount:  m.BaseAmount,
		TokenAmount: m.TokenAmount,
		PlatformFee: m.PlatformFee,
		CreatorFee:  m.CreatorFee,
		Price:       monitor.ExecutionPrice(m.BaseAmount, m.TokenAmount),
		SpotPrice:   m.Price,
	}
}

// CandleModel maps a closed candle onto its row.
func CandleModel(c monitor.Candle) *models.Candle {
	return &models.Candle{
		Token:  c.Token,
		Time:   c.Time,
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
		Trades: c.Trades,
	}
}

// PoolModel encodes a pool into its account row.
func PoolModel(p *pool.Pool) (*models.PoolAccount, error) {
	data, err := pool.EncodeAccount(p)
	if err != nil {
		return nil, fmt.Errorf("encode pool %s: %w", p.Token, err)
	}
	row := &models.PoolAccount{
		Token:        p.Token.String(),
		Creator:      p.Creator.String(),
		Curve:        p.Curve.Kind.String(),
		State:        p.State.String(),
		Stage:        p.Migration.Stage.String(),
		ReserveBase:  p.ReserveBase,
		ReserveToken: p.ReserveToken,
		TotalSupply:  p.TotalSupply,
		Data:         data,
	}
	row.CreatedAt = p.CreatedAt.UTC()
	row.UpdatedAt = p.UpdatedAt.UTC()
	return row, nil
}

// PoolFromModel decodes the authoritative borsh data of a row.
func PoolFromModel(row *models.PoolAccount) (*pool.Pool, error) {
	p, err := pool.DecodeAccount(row.Data)
	if err != nil {
		return nil, fmt.Errorf("decode pool %s: %w", row.Token, err)
	}
	return p, nil
}
