package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat accepts "csv" or "json".
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format      ExportFormat
	StartTime   time.Time
	EndTime     time.Time
	TokenFilter string     // mint
	SideFilter  types.Side // BUY / SELL, пусто - обе стороны
	OutputDir   string
}

// TradeExporter writes trade history to files
type TradeExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewTradeExporter creates a new trade exporter
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// ExportTrades writes the trades matching options and returns the file path.
func (te *TradeExporter) ExportTrades(trades []monitor.Trade, options ExportOptions) (string, error) {
	filtered := filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, te.generateFilename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = writeJSON(outputPath, struct {
			ExportTime time.Time       `json:"export_time"`
			TradeCount int             `json:"trade_count"`
			Summary    ExportSummary   `json:"summary"`
			Trades     []monitor.Trade `json:"trades"`
		}{
			ExportTime: te.now().UTC(),
			TradeCount: len(filtered),
			Summary:    calculateSummary(filtered),
			Trades:     filtered,
		})
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func filterTrades(trades []monitor.Trade, options ExportOptions) []monitor.Trade {
	var filtered []monitor.Trade
	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && !trade.Timestamp.Before(options.EndTime) {
			continue
		}
		if options.TokenFilter != "" && trade.Token != options.TokenFilter {
			continue
		}
		if options.SideFilter != "" && trade.Side != options.SideFilter {
			continue
		}
		filtered = append(filtered, trade)
	}
	return filtered
}

func (te *TradeExporter) generateFilename(options ExportOptions) string {
	prefix := "trades_all"
	if options.SideFilter != "" {
		prefix = "trades_" + string(options.SideFilter)
	}
	if token := options.TokenFilter; token != "" {
		if len(token) > 8 {
			token = token[:8]
		}
		prefix += "_" + token
	}
	return fmt.Sprintf("%s_%s.%s", prefix, te.now().Format("20060102_150405"), options.Format)
}

func exportToCSV(trades []monitor.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(monitor.CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for i := range trades {
		if err := writer.Write(trades[i].ToCSV()); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(outputPath string, v any) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary aggregates exported trades; amounts are lamports.
type ExportSummary struct {
	TotalTrades  int       `json:"total_trades"`
	BuyCount     int       `json:"buy_count"`
	SellCount    int       `json:"sell_count"`
	UniqueTokens int       `json:"unique_tokens"`
	BuyVolume    uint64    `json:"buy_volume"`
	SellVolume   uint64    `json:"sell_volume"`
	PlatformFees uint64    `json:"platform_fees"`
	CreatorFees  uint64    `json:"creator_fees"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

// TotalVolume is buy plus sell volume.
func (s ExportSummary) TotalVolume() uint64 {
	return s.BuyVolume + s.SellVolume
}

// calculateSummary expects trades sorted by time.
func calculateSummary(trades []monitor.Trade) ExportSummary {
	summary := ExportSummary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return summary
	}
	summary.StartDate = trades[0].Timestamp
	summary.EndDate = trades[len(trades)-1].Timestamp

	tokens := make(map[string]struct{})
	for _, trade := range trades {
		tokens[trade.Token] = struct{}{}
		summary.PlatformFees += trade.PlatformFee
		summary.CreatorFees += trade.CreatorFee
		switch trade.Side {
		case types.SideBuy:
			summary.BuyCount++
			summary.BuyVolume += trade.BaseAmount
		case types.SideSell:
			summary.SellCount++
			summary.SellVolume += trade.BaseAmount
		}
	}
	summary.UniqueTokens = len(tokens)
	return summary
}

// DailyReport is a one-day summary with an hourly breakdown.
type DailyReport struct {
	Date            time.Time       `json:"date"`
	TradeCount      int             `json:"trade_count"`
	Summary         ExportSummary   `json:"summary"`
	HourlyBreakdown []HourlyStats   `json:"hourly_breakdown"`
	Trades          []monitor.Trade `json:"trades"`
}

// HourlyStats represents trading statistics for an hour
type HourlyStats struct {
	Hour       int    `json:"hour"`
	TradeCount int    `json:"trade_count"`
	BuyCount   int    `json:"buy_count"`
	SellCount  int    `json:"sell_count"`
	Volume     uint64 `json:"volume"`
}

// ExportDailyReport writes daily_report_YYYYMMDD.json for the UTC day of date.
// An empty day writes nothing and returns "".
func (te *TradeExporter) ExportDailyReport(trades []monitor.Trade, date time.Time, outputDir string) (string, error) {
	date = date.UTC()
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	filtered := filterTrades(trades, ExportOptions{
		StartTime: startOfDay,
		EndTime:   startOfDay.Add(24 * time.Hour),
	})
	if len(filtered) == 0 {
		te.logger.Info("No trades for daily report", zap.Time("date", startOfDay))
		return "", nil
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))

	err := writeJSON(outputPath, DailyReport{
		Date:            startOfDay,
		TradeCount:      len(filtered),
		Summary:         calculateSummary(filtered),
		HourlyBreakdown: calculateHourlyBreakdown(filtered),
		Trades:          filtered,
	})
	if err != nil {
		return "", err
	}

	te.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("trades", len(filtered)))
	return outputPath, nil
}

func calculateHourlyBreakdown(trades []monitor.Trade) []HourlyStats {
	var hours [24]*HourlyStats
	for _, trade := range trades {
		h := trade.Timestamp.UTC().Hour()
		if hours[h] == nil {
			hours[h] = &HourlyStats{Hour: h}
		}
		stats := hours[h]
		stats.TradeCount++
		stats.Volume += trade.BaseAmount
		switch trade.Side {
		case types.SideBuy:
			stats.BuyCount++
		case types.SideSell:
			stats.SellCount++
		}
	}

	var breakdown []HourlyStats
	for _, stats := range hours {
		if stats != nil {
			breakdown = append(breakdown, *stats)
		}
	}
	return breakdown
}
