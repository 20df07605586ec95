// internal/monitor/history.go
package monitor

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// TradeHistory keeps recent trades in memory and appends every trade to a CSV file
type TradeHistory struct {
	mu        sync.RWMutex
	csvWriter *logger.CSVWriter
	trades    []Trade
	maxTrades int
	logger    *zap.Logger

	// Statistics
	totalTrades int
	buyCount    int
	sellCount   int
	buyVolume   uint64
	sellVolume  uint64
	feeVolume   uint64
}

// NewTradeHistory creates a new trade history manager
func NewTradeHistory(logDir string, maxTrades int, zapLogger *zap.Logger) (*TradeHistory, error) {
	filename := fmt.Sprintf("trades_%s.csv", time.Now().Format("20060102_150405"))
	csvPath := filepath.Join(logDir, "trades", filename)

	csvWriter, err := logger.NewCSVWriter(csvPath, CSVHeaders(), 30*time.Second, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	if maxTrades <= 0 {
		maxTrades = 1000
	}

	th := &TradeHistory{
		csvWriter: csvWriter,
		trades:    make([]Trade, 0, maxTrades),
		maxTrades: maxTrades,
		logger:    zapLogger.Named("history"),
	}

	th.logger.Info("Trade history initialized",
		zap.String("csv_file", csvPath),
		zap.Int("max_memory_trades", maxTrades))

	return th, nil
}

// LogTrade records a trade
func (th *TradeHistory) LogTrade(trade Trade) error {
	th.mu.Lock()
	defer th.mu.Unlock()

	if trade.Timestamp.IsZero() {
		trade.Timestamp = time.Now()
	}

	if err := th.csvWriter.WriteRecord(trade.ToCSV()); err != nil {
		th.logger.Error("Failed to write trade to CSV",
			zap.String("trade_id", trade.ID),
			zap.Error(err))
		return fmt.Errorf("failed to write trade: %w", err)
	}

	if len(th.trades) >= th.maxTrades {
		th.trades = th.trades[1:]
	}
	th.trades = append(th.trades, trade)

	th.totalTrades++
	th.feeVolume += trade.PlatformFee + trade.CreatorFee
	switch trade.Side {
	case types.SideBuy:
		th.buyCount++
		th.buyVolume += trade.BaseAmount
	case types.SideSell:
		th.sellCount++
		th.sellVolume += trade.BaseAmount
	}

	th.logger.Debug("Trade logged",
		zap.String("id", trade.ID),
		zap.String("side", string(trade.Side)),
		zap.String("token", trade.Token),
		zap.Uint64("sol_amount", trade.BaseAmount))

	return nil
}

// GetRecentTrades returns recent trades from memory, oldest first
func (th *TradeHistory) GetRecentTrades(limit int) []Trade {
	th.mu.RLock()
	defer th.mu.RUnlock()

	if limit <= 0 || limit > len(th.trades) {
		limit = len(th.trades)
	}

	result := make([]Trade, limit)
	copy(result, th.trades[len(th.trades)-limit:])
	return result
}

// GetTradeByID returns a specific trade by ID
func (th *TradeHistory) GetTradeByID(id string) (*Trade, bool) {
	th.mu.RLock()
	defer th.mu.RUnlock()

	for i := len(th.trades) - 1; i >= 0; i-- {
		if th.trades[i].ID == id {
			trade := th.trades[i]
			return &trade, true
		}
	}
	return nil, false
}

// GetTradesByToken returns all remembered trades for a token
func (th *TradeHistory) GetTradesByToken(token string) []Trade {
	th.mu.RLock()
	defer th.mu.RUnlock()

	var result []Trade
	for _, trade := range th.trades {
		if trade.Token == token {
			result = append(result, trade)
		}
	}
	return result
}

// GetStatistics returns trading statistics
func (th *TradeHistory) GetStatistics() TradeStatistics {
	th.mu.RLock()
	defer th.mu.RUnlock()
	return th.statistics()
}

func (th *TradeHistory) statistics() TradeStatistics {
	return TradeStatistics{
		TotalTrades: th.totalTrades,
		BuyCount:    th.buyCount,
		SellCount:   th.sellCount,
		BuyVolume:   th.buyVolume,
		SellVolume:  th.sellVolume,
		FeeVolume:   th.feeVolume,
	}
}

// Flush forces a write of any buffered trades
func (th *TradeHistory) Flush() error {
	return th.csvWriter.Flush()
}

// Close closes the trade history and ensures all data is written
func (th *TradeHistory) Close() error {
	th.mu.Lock()
	defer th.mu.Unlock()

	stats := th.statistics()
	th.logger.Info("Closing trade history",
		zap.Int("total_trades", stats.TotalTrades),
		zap.String("buy_volume_sol", FormatSOL(stats.BuyVolume)),
		zap.String("sell_volume_sol", FormatSOL(stats.SellVolume)),
		zap.String("fees_sol", FormatSOL(stats.FeeVolume)))

	return th.csvWriter.Close()
}

// TradeStatistics holds aggregate trade statistics; volumes are lamports
type TradeStatistics struct {
	TotalTrades int
	BuyCount    int
	SellCount   int
	BuyVolume   uint64
	SellVolume  uint64
	FeeVolume   uint64
}
