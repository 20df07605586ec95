// cmd/curved/export.go
package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/export"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage/models"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage/postgres"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

const exportPageSize = 500

type tradeSource interface {
	ListTrades(ctx context.Context, token string, limit, offset int) ([]*models.Trade, error)
}

// GetCmdExport writes persisted trades to CSV or JSON.
func GetCmdExport(root *rootOptions) *cobra.Command {
	var (
		postgresURL string
		format      string
		token       string
		side        string
		from, to    string
		outDir      string
		daily       string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export persisted trades to CSV or JSON",
		Long: `Reads trades stored by simulate --postgres and writes them to a file in
--out. --daily YYYY-MM-DD writes a JSON report with an hourly breakdown instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if postgresURL != "" {
				cfg.PostgresURL = postgresURL
			}
			if cfg.PostgresURL == "" {
				return errors.New("postgres_url is not configured")
			}
			if outDir == "" {
				outDir = filepath.Join(cfg.LogDir, "exports")
			}

			opts := export.ExportOptions{TokenFilter: token, OutputDir: outDir}
			if opts.Format, err = export.ParseFormat(format); err != nil {
				return err
			}
			if side != "" {
				if opts.SideFilter, err = types.ParseSide(side); err != nil {
					return err
				}
			}
			if opts.StartTime, err = parseTime(from); err != nil {
				return err
			}
			if opts.EndTime, err = parseTime(to); err != nil {
				return err
			}

			log, err := logger.New(cfg.LoggerConfig())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync(log) }()

			pg, err := postgres.NewStorage(cfg.PostgresURL, log)
			if err != nil {
				return err
			}
			defer pg.Close()

			tokens := []string{token}
			if token == "" {
				pools, err := pg.Pools().List(cmd.Context())
				if err != nil {
					return err
				}
				tokens = tokens[:0]
				for _, p := range pools {
					tokens = append(tokens, p.Token.String())
				}
			}
			trades, err := collectTrades(cmd.Context(), pg, tokens)
			if err != nil {
				return err
			}

			exporter := export.NewTradeExporter(log)
			var path string
			if daily != "" {
				date, err := time.Parse(time.DateOnly, daily)
				if err != nil {
					return fmt.Errorf("invalid --daily: %w", err)
				}
				path, err = exporter.ExportDailyReport(trades, date, outDir)
				if err != nil {
					return err
				}
			} else if path, err = exporter.ExportTrades(trades, opts); err != nil {
				return err
			}

			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no trades")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			log.Debug("Export finished", zap.Int("trades", len(trades)))
			return nil
		},
	}
	cmd.Flags().StringVar(&postgresURL, "postgres", "", "postgres DSN, overrides postgres_url")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatCSV), "csv or json")
	cmd.Flags().StringVar(&token, "token", "", "only this mint")
	cmd.Flags().StringVar(&side, "side", "", "only buy or sell")
	cmd.Flags().StringVar(&from, "from", "", "RFC3339 start, inclusive")
	cmd.Flags().StringVar(&to, "to", "", "RFC3339 end, exclusive")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default <log_dir>/exports)")
	cmd.Flags().StringVar(&daily, "daily", "", "write the daily report for YYYY-MM-DD")
	return cmd
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t, nil
}

// collectTrades pages through the stored trades of every token.
func collectTrades(ctx context.Context, src tradeSource, tokens []string) ([]monitor.Trade, error) {
	var trades []monitor.Trade
	for _, token := range tokens {
		for offset := 0; ; offset += exportPageSize {
			page, err := src.ListTrades(ctx, token, exportPageSize, offset)
			if err != nil {
				return nil, fmt.Errorf("list trades of %s: %w", token, err)
			}
			for _, m := range page {
				trades = append(trades, storage.TradeFromModel(m))
			}
			if len(page) < exportPageSize {
				break
			}
		}
	}
	return trades, nil
}
