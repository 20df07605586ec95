// internal/curve/model.go
package curve

import (
	"fmt"
	"math"
	"strings"

	errorsmod "cosmossdk.io/errors"

	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// BaseScale переводит лампорты в SOL (единицы кривой для базовой валюты).
const BaseScale = float64(types.LamportsPerSOL)

// Kind выбирает модель ценообразования пула.
type Kind uint8

const (
	Proportional Kind = iota
	PowerLaw
)

func (k Kind) String() string {
	switch k {
	case Proportional:
		return "proportional"
	case PowerLaw:
		return "power_law"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind разбирает имя модели из конфигурации.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "proportional", "quadratic":
		return Proportional, nil
	case "power_law", "powerlaw", "power-law":
		return PowerLaw, nil
	default:
		return 0, fmt.Errorf("unknown curve model: %q", s)
	}
}

// Quote is the result of a curve evaluation.
type Quote struct {
	// Amount is tokens out for a buy and lamports out for a sell.
	Amount uint64
	// Price is the marginal price after the trade, SOL per whole token.
	Price float64
	// Drained is set when a sell hit the zero-supply edge and paid out the whole reserve.
	Drained bool
}

// Model is a tagged variant over the supported curves. Only the params matching
// Kind are read.
type Model struct {
	Kind         Kind
	Proportional ProportionalParams
	PowerLaw     PowerLawParams
}

// NewProportional builds a closed-form quadratic model.
func NewProportional(p ProportionalParams) Model {
	return Model{Kind: Proportional, Proportional: p}
}

// NewPowerLaw builds an iteratively solved power-law model.
func NewPowerLaw(p PowerLawParams) Model {
	return Model{Kind: PowerLaw, PowerLaw: p}
}

// Default returns the model of the given kind with stock parameters.
func Default(kind Kind) Model {
	if kind == PowerLaw {
		return NewPowerLaw(DefaultPowerLaw())
	}
	return NewProportional(DefaultProportional())
}

// Validate checks the active params.
func (m Model) Validate() error {
	switch m.Kind {
	case Proportional:
		return m.Proportional.Validate()
	case PowerLaw:
		return m.PowerLaw.Validate()
	default:
		return errorsmod.Wrapf(types.ErrCalculationError, "unknown curve model %s", m.Kind)
	}
}

// Buy converts a net base amount (lamports, fees already removed) into tokens.
func (m Model) Buy(tokensSold, netBase uint64) (Quote, error) {
	if netBase == 0 {
		return Quote{}, errorsmod.Wrap(types.ErrInvalidAmount, "buy amount is zero")
	}
	switch m.Kind {
	case Proportional:
		return m.Proportional.buy(tokensSold, netBase)
	case PowerLaw:
		return m.PowerLaw.buy(tokensSold, netBase)
	default:
		return Quote{}, errorsmod.Wrapf(types.ErrCalculationError, "unknown curve model %s", m.Kind)
	}
}

// Sell converts a token amount into gross lamports before fees. reserveBase is
// only consulted by curves with a full-drain edge policy.
func (m Model) Sell(tokensSold, tokens, reserveBase uint64) (Quote, error) {
	if tokens == 0 {
		return Quote{}, errorsmod.Wrap(types.ErrInvalidAmount, "sell amount is zero")
	}
	switch m.Kind {
	case Proportional:
		return m.Proportional.sell(tokensSold, tokens)
	case PowerLaw:
		return m.PowerLaw.sell(tokensSold, tokens, reserveBase)
	default:
		return Quote{}, errorsmod.Wrapf(types.ErrCalculationError, "unknown curve model %s", m.Kind)
	}
}

// Price returns the marginal price at tokensSold in SOL per whole token.
func (m Model) Price(tokensSold uint64) float64 {
	switch m.Kind {
	case Proportional:
		return m.Proportional.price(float64(tokensSold))
	case PowerLaw:
		return m.PowerLaw.price(float64(tokensSold) / m.PowerLaw.TokenScale)
	default:
		return 0
	}
}

// MarketCap returns the market-cap snapshot in lamports.
func (m Model) MarketCap(tokensSold, reserveBase, totalSupply uint64) uint64 {
	switch m.Kind {
	case Proportional:
		return reserveBase + uint64(math.Round(m.Proportional.VirtualBase*BaseScale))
	case PowerLaw:
		whole := float64(totalSupply) / float64(types.TokenUnit)
		mcap, err := toUint64(math.Round(m.Price(tokensSold) * whole * BaseScale))
		if err != nil {
			return 0
		}
		return mcap
	default:
		return 0
	}
}

// toUint64 converts a non-negative finite float into an integer amount.
func toUint64(v float64) (uint64, error) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, errorsmod.Wrapf(types.ErrCalculationError, "non-finite result %v", v)
	case v < 0:
		return 0, errorsmod.Wrapf(types.ErrNegativeNumber, "negative result %v", v)
	case v >= math.Exp2(64):
		return 0, errorsmod.Wrapf(types.ErrOverflowOrUnderflowOccurred, "result %v exceeds u64", v)
	}
	return uint64(v), nil
}
