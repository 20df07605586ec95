// cmd/curved/pools.go
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage/postgres"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/style"
)

// GetCmdPools lists persisted pools, or dumps one pool account.
func GetCmdPools(root *rootOptions) *cobra.Command {
	var (
		postgresURL string
		account     string
	)
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "List pools persisted in postgres",
		Long: `Lists every pool stored by a simulate run with --postgres. With --account
the borsh-encoded pool account of that mint is printed as base64.`,
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

			pg, err := postgres.NewStorage(cfg.PostgresURL, zap.NewNop())
			if err != nil {
				return err
			}
			defer pg.Close()

			if account != "" {
				mint, err := solana.PublicKeyFromBase58(account)
				if err != nil {
					return fmt.Errorf("invalid mint: %w", err)
				}
				return dumpAccount(cmd.Context(), cmd.OutOrStdout(), pg.Pools(), mint)
			}
			return listPools(cmd.Context(), cmd.OutOrStdout(), pg.Pools())
		},
	}
	cmd.Flags().StringVar(&postgresURL, "postgres", "", "postgres DSN, overrides postgres_url")
	cmd.Flags().StringVar(&account, "account", "", "mint whose pool account to dump")
	return cmd
}

func listPools(ctx context.Context, w io.Writer, store pool.Store) error {
	pools, err := store.List(ctx)
	if err != nil {
		return err
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(style.Muted).
		Headers("TOKEN", "CURVE", "RESERVE SOL", "RESERVE TOKENS", "PRICE", "MCAP SOL", "STAGE")
	for _, p := range pools {
		stage := p.State.String()
		if p.Migrated {
			stage = p.Migration.Stage.String()
		}
		t.Row(p.Token.String(), p.Curve.Kind.String(),
			monitor.FormatSOL(p.ReserveBase),
			monitor.FormatTokens(p.ReserveToken),
			fmt.Sprintf("%.10f", p.Price()),
			monitor.FormatSOL(p.MarketCap()),
			stage)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%d pools\n", len(pools))
	return nil
}

func dumpAccount(ctx context.Context, w io.Writer, store pool.Store, mint solana.PublicKey) error {
	p, err := store.Get(ctx, mint)
	if err != nil {
		return err
	}
	data, err := pool.EncodeAccount(p)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, base64.StdEncoding.EncodeToString(data))
	return nil
}
