package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/bot"
	"github.com/rovshanmuradov/curve-launchpad/internal/config"
	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/task"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui"
)

const logBufferSize = 1000

type options struct {
	configPath  string
	tasksPath   string
	walletsPath string
}

func main() {
	opts := options{}
	cmd := &cobra.Command{
		Use:          "curve-tui",
		Short:        "Live dashboard for a launchpad simulation",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file; defaults and env when empty")
	cmd.Flags().StringVarP(&opts.tasksPath, "tasks", "t", "configs/tasks.yaml", "tasks file")
	cmd.Flags().StringVarP(&opts.walletsPath, "wallets", "w", "", "wallets file; keys are generated when empty")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadConfig(opts.configPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return err
	}

	// в TUI логи не пишутся в терминал: они попадают в панель логов и файл
	buffer := logger.NewLogBuffer(logBufferSize)
	log, err := logger.NewTUI(cfg.LoggerConfig(), buffer)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()

	tasks, err := task.NewManager(log).LoadTasksYAML(opts.tasksPath)
	if err != nil {
		return err
	}
	wallets := make(task.Roster)
	if opts.walletsPath != "" {
		if wallets, err = task.LoadWallets(opts.walletsPath); err != nil {
			return err
		}
	} else {
		for _, t := range tasks {
			if _, ok := wallets[t.WalletName]; !ok {
				wallets[t.WalletName] = task.GenerateWallet(t.WalletName)
			}
		}
	}

	svc, err := bot.NewService(bot.ServiceConfig{App: cfg, Wallets: wallets, Logger: log})
	if err != nil {
		return err
	}
	defer svc.Close()

	// мост подписывается до запуска задач, чтобы не пропустить PoolCreated
	bridge := ui.NewBridge(svc.Bus(), ui.DefaultUpdateInterval, log)
	defer bridge.Close()

	dashboard := ui.NewDashboard(ui.DashboardConfig{
		Bridge:  bridge,
		Candles: svc.Candles(),
		Logs:    buffer,
	})
	program := tea.NewProgram(dashboard, tea.WithAltScreen())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		results, err := svc.Run(ctx, tasks)
		program.Send(ui.SimulationDoneMsg{Results: results, Err: err})
	}()
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	_, err = program.Run()
	// выход из дашборда отменяет незавершенные задачи
	stop()
	<-done
	if err != nil {
		log.Error("💥 TUI application failed", zap.Error(err))
	}
	return err
}
