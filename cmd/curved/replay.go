// cmd/curved/replay.go
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/curve-launchpad/internal/bot"
	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/style"
)

// GetCmdReplay rebuilds candles from an activity log.
func GetCmdReplay(root *rootOptions) *cobra.Command {
	var (
		logPath string
		last    int
	)
	cmd := &cobra.Command{
		Use:   "replay [log]",
		Short: "Rebuild 30s candles from a TRANSACTION_INFO log",
		Long: `Reads TRANSACTION_INFO and CHART_DATA lines and prints the candles and the
last reported market cap of every token. Defaults to the activity log in log_dir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				logPath = args[0]
			}
			if logPath == "" {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				logPath = filepath.Join(cfg.LogDir, bot.ActivityLogFile)
			}

			f, err := os.Open(filepath.Clean(logPath))
			if err != nil {
				return err
			}
			defer f.Close()

			candles := monitor.NewCandleTracker(0)
			stats, err := monitor.Replay(cmd.Context(), f, candles, nil)
			if err != nil {
				return err
			}
			printReplay(cmd.OutOrStdout(), candles, stats, last)
			return nil
		},
	}
	cmd.Flags().StringVarP(&logPath, "log", "l", "", "activity log to replay")
	cmd.Flags().IntVarP(&last, "last", "n", 20, "candles to print per token, 0 for all")
	return cmd
}

func printReplay(w io.Writer, candles *monitor.CandleTracker, stats monitor.ReplayStats, last int) {
	fmt.Fprintf(w, "lines: %d  trades: %d  charts: %d  malformed: %d\n",
		stats.Lines, stats.Trades, stats.Charts, stats.Malformed)

	for _, token := range candles.Tokens() {
		history := candles.History(token)
		if last > 0 && len(history) > last {
			history = history[len(history)-last:]
		}
		fmt.Fprintln(w, style.Title.Render(token))
		if mcap, ok := stats.MarketCaps[token]; ok {
			fmt.Fprintf(w, "market cap: %s SOL\n", monitor.FormatSOL(mcap))
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(style.Muted).
			Headers("TIME", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME SOL", "TRADES")
		for _, c := range history {
			t.Row(time.Unix(c.Time, 0).UTC().Format(time.TimeOnly),
				fmt.Sprintf("%.10f", c.Open),
				fmt.Sprintf("%.10f", c.High),
				fmt.Sprintf("%.10f", c.Low),
				fmt.Sprintf("%.10f", c.Close),
				monitor.FormatSOL(c.Volume),
				fmt.Sprint(c.Trades))
		}
		fmt.Fprintln(w, t.Render())
	}
}
