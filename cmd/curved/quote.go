// cmd/curved/quote.go
package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/curve-launchpad/internal/config"
	"github.com/rovshanmuradov/curve-launchpad/internal/fees"
	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

const solDecimals = 9

type quoteOptions struct {
	model   string
	side    string
	sold    float64
	amount  float64
	reserve float64
}

// GetCmdQuote prices a single trade on the configured curve.
func GetCmdQuote(root *rootOptions) *cobra.Command {
	opts := quoteOptions{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a buy or sell at a given point of the curve",
		Long: `Prices one trade without a pool. --sold is the number of whole tokens the
curve has already released. A buy takes --amount in SOL, a sell takes --amount
in whole tokens; fees follow the configured rate and platform share.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			out, err := quote(cfg, opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.model, "model", "", "curve model override: proportional or power_law")
	cmd.Flags().StringVar(&opts.side, "side", "buy", "buy or sell")
	cmd.Flags().Float64Var(&opts.sold, "sold", 0, "whole tokens already sold")
	cmd.Flags().Float64Var(&opts.amount, "amount", 1, "SOL for a buy, whole tokens for a sell")
	cmd.Flags().Float64Var(&opts.reserve, "reserve", 0, "SOL in the reserve; paid out when a sell drains the curve")
	return cmd
}

func quote(cfg *config.Config, opts quoteOptions) (string, error) {
	if opts.model != "" {
		cfg.Curve.Model = opts.model
	}
	model, err := cfg.CurveModel()
	if err != nil {
		return "", err
	}
	sold := units(opts.sold, types.TokenDecimals)

	var b strings.Builder
	fmt.Fprintf(&b, "curve:      %s\n", model.Kind)
	fmt.Fprintf(&b, "spot price: %.10f SOL\n", model.Price(sold))

	side, err := types.ParseSide(opts.side)
	if err != nil {
		return "", err
	}
	switch side {
	case types.SideBuy:
		split, err := fees.Compute(units(opts.amount, solDecimals), cfg.FeeRatePercent, cfg.PlatformShare)
		if err != nil {
			return "", err
		}
		q, err := model.Buy(sold, split.Net)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "fee:        %s SOL (platform %s, creator %s)\n",
			monitor.FormatSOL(split.Total()), monitor.FormatSOL(split.Platform), monitor.FormatSOL(split.Creator))
		fmt.Fprintf(&b, "tokens out: %s\n", monitor.FormatTokens(q.Amount))
		fmt.Fprintf(&b, "new price:  %.10f SOL\n", q.Price)

	case types.SideSell:
		tokens := units(opts.amount, types.TokenDecimals)
		if tokens > sold {
			return "", fmt.Errorf("cannot sell %s tokens, only %s sold",
				monitor.FormatTokens(tokens), monitor.FormatTokens(sold))
		}
		q, err := model.Sell(sold, tokens, units(opts.reserve, solDecimals))
		if err != nil {
			return "", err
		}
		split, err := fees.Compute(q.Amount, cfg.FeeRatePercent, cfg.PlatformShare)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "gross out:  %s SOL\n", monitor.FormatSOL(split.Gross))
		fmt.Fprintf(&b, "fee:        %s SOL (platform %s, creator %s)\n",
			monitor.FormatSOL(split.Total()), monitor.FormatSOL(split.Platform), monitor.FormatSOL(split.Creator))
		fmt.Fprintf(&b, "SOL out:    %s\n", monitor.FormatSOL(split.Net))
		fmt.Fprintf(&b, "new price:  %.10f SOL\n", q.Price)
		if q.Drained {
			b.WriteString("drained:    whole reserve paid out\n")
		}
	}
	return b.String(), nil
}

// units converts a human amount into base units with the given decimals.
func units(v float64, decimals int32) uint64 {
	d := decimal.NewFromFloat(v).Shift(decimals)
	if d.IsNegative() {
		return 0
	}
	return uint64(d.IntPart())
}
