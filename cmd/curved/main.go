// cmd/curved/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/curve-launchpad/internal/config"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

// load reads the config file, or falls back to defaults plus environment.
func (o *rootOptions) load() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default()
	}
	return config.LoadConfig(o.configPath)
}

// NewRootCmd builds the curved command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "curved",
		Short: "Bonding-curve launchpad simulator",
		Long: `Simulates token launches on a bonding curve: scripted trading, automatic
migration to the constant-product venue, live candles and persistence.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (yaml, json or toml); defaults and CURVE_LAUNCHPAD_* env when empty")

	cmd.AddCommand(
		GetCmdSimulate(opts),
		GetCmdQuote(opts),
		GetCmdReplay(opts),
		GetCmdPools(opts),
		GetCmdExport(opts),
	)
	return cmd
}
