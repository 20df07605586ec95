// cmd/curved/simulate.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/bot"
	"github.com/rovshanmuradov/curve-launchpad/internal/export"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/metrics"
	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage/postgres"
	"github.com/rovshanmuradov/curve-launchpad/internal/task"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/style"
)

const settleTimeout = 5 * time.Second

// GetCmdSimulate runs a tasks file against a fresh launchpad.
func GetCmdSimulate(root *rootOptions) *cobra.Command {
	var (
		tasksPath   string
		walletsPath string
		metricsAddr string
		postgresURL string
		exportAs    string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scripted trading session",
		Long: `Runs every task from the tasks file. Wallets come from the wallets file;
without one, a fresh key is generated for each wallet name the tasks use.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			if postgresURL != "" {
				cfg.PostgresURL = postgresURL
			}

			log, err := logger.New(cfg.LoggerConfig())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync(log) }()

			tasks, err := task.NewManager(log).LoadTasksYAML(tasksPath)
			if err != nil {
				return err
			}
			wallets, err := loadRoster(walletsPath, tasks)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svcCfg := bot.ServiceConfig{App: cfg, Wallets: wallets, Logger: log}
			if cfg.PostgresURL != "" {
				pg, err := postgres.NewStorage(cfg.PostgresURL, log)
				if err != nil {
					return err
				}
				defer pg.Close()
				if err := pg.RunMigrations(); err != nil {
					return err
				}
				svcCfg.Store = pg.Pools()
				svcCfg.Storage = pg
			}
			if cfg.MetricsAddr != "" {
				collector := metrics.NewCollector()
				svcCfg.Metrics = collector
				srv := serveMetrics(cfg.MetricsAddr, collector.Handler(), log)
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
			}

			svc, err := bot.NewService(svcCfg)
			if err != nil {
				return err
			}
			results, runErr := svc.Run(ctx, tasks)

			sctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
			if err := svc.Settle(sctx); err != nil {
				log.Warn("Event bus did not drain in time", zap.Error(err))
			}
			cancel()
			closeErr := svc.Close()

			printResults(cmd.OutOrStdout(), results)
			if exportAs != "" {
				path, err := exportHistory(svc, exportAs, log)
				if err != nil {
					return errors.Join(runErr, closeErr, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "trades exported to %s\n", path)
			}
			return errors.Join(runErr, closeErr)
		},
	}
	cmd.Flags().StringVarP(&tasksPath, "tasks", "t", "configs/tasks.yaml", "tasks file")
	cmd.Flags().StringVarP(&walletsPath, "wallets", "w", "", "wallets file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on host:port")
	cmd.Flags().StringVar(&postgresURL, "postgres", "", "persist pools, trades and candles to postgres")
	cmd.Flags().StringVar(&exportAs, "export", "", "export the session trades as csv or json into <log_dir>/exports")
	return cmd
}

// loadRoster reads the wallets file, or generates a wallet per name used by tasks.
func loadRoster(path string, tasks []*task.Task) (task.Roster, error) {
	if path != "" {
		return task.LoadWallets(path)
	}
	roster := make(task.Roster)
	for _, t := range tasks {
		if _, ok := roster[t.WalletName]; !ok {
			roster[t.WalletName] = task.GenerateWallet(t.WalletName)
		}
	}
	return roster, nil
}

func exportHistory(svc *bot.Service, format string, log *zap.Logger) (string, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return "", err
	}
	if svc.History() == nil {
		return "", errors.New("trade history is disabled: log_dir is empty")
	}
	return export.NewTradeExporter(log).ExportTrades(svc.History().GetRecentTrades(0), export.ExportOptions{
		Format:    f,
		OutputDir: filepath.Join(svc.LogDir(), "exports"),
	})
}

func serveMetrics(addr string, h http.Handler, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()
	log.Info("📈 Serving metrics", zap.String("addr", addr))
	return srv
}

func printResults(w io.Writer, results []*task.Result) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(style.Muted).
		Headers("TASK", "OP", "TOKEN", "OK", "ERR", "VOLUME SOL", "STATUS", "LAST ERROR")
	for _, r := range results {
		if r == nil {
			continue
		}
		lastErr := ""
		if r.LastError != nil {
			lastErr = r.LastError.Error()
		}
		token := ""
		if !r.Token.IsZero() {
			token = r.Token.String()
		}
		t.Row(r.Task.TaskName, string(r.Task.Operation), token,
			fmt.Sprint(r.SuccessCount), fmt.Sprint(r.ErrorCount),
			monitor.FormatSOL(r.Volume), r.Status(), lastErr)
	}
	fmt.Fprintln(w, t.Render())

	completed, failed, volume := task.Summary(results)
	fmt.Fprintf(w, "completed: %d  failed: %d  volume: %s SOL\n", completed, failed, monitor.FormatSOL(volume))
}
