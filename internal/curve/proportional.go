// internal/curve/proportional.go
package curve

import (
	"math"

	errorsmod "cosmossdk.io/errors"

	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// ProportionalParams описывает квадратичную кривую: предельная цена растет линейно
// с количеством проданных токенов.
type ProportionalParams struct {
	// K - коэффициент пропорциональности кривой.
	K float64 `mapstructure:"k"`
	// VirtualBase - виртуальная ликвидность в SOL, держит цену ненулевой при x=0.
	VirtualBase float64 `mapstructure:"virtual_base"`
	// TokenScale - сколько минимальных единиц токена в одной единице кривой.
	TokenScale float64 `mapstructure:"token_scale"`
}

// DefaultProportional: 25 SOL виртуальной ликвидности, 800M токенов продаются за 85 SOL.
func DefaultProportional() ProportionalParams {
	return ProportionalParams{
		K:           8000,
		VirtualBase: 25,
		TokenScale:  1e15,
	}
}

func (p ProportionalParams) Validate() error {
	if p.K <= 0 || p.VirtualBase <= 0 || p.TokenScale <= 0 {
		return errorsmod.Wrapf(types.ErrCalculationError,
			"proportional params must be positive: k=%v virtual_base=%v token_scale=%v",
			p.K, p.VirtualBase, p.TokenScale)
	}
	return nil
}

// bought переводит x минимальных единиц в позицию на кривой со смещением V.
func (p ProportionalParams) bought(x float64) float64 {
	return x/p.TokenScale + p.VirtualBase
}

// price - производная SOL(b) = b²/K, пересчитанная на целый токен.
func (p ProportionalParams) price(x float64) float64 {
	return 2 * p.bought(x) * float64(types.TokenUnit) / (p.K * p.TokenScale)
}

// buy решает b1² = K·a + b0² в замкнутой форме.
// Результат округляется вниз: покупатель никогда не получает больше, чем оплатил.
func (p ProportionalParams) buy(tokensSold, netBase uint64) (Quote, error) {
	b0 := p.bought(float64(tokensSold))
	root := math.Sqrt(p.K*float64(netBase)/BaseScale + b0*b0)

	out, err := toUint64(math.Floor((root - b0) * p.TokenScale))
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Amount: out,
		Price:  p.price(float64(tokensSold) + float64(out)),
	}, nil
}

// sell - точная инверсия buy, выплата округляется вниз.
func (p ProportionalParams) sell(tokensSold, tokens uint64) (Quote, error) {
	if tokens > tokensSold {
		return Quote{}, errorsmod.Wrapf(types.ErrTokenAmountToSellTooBig,
			"selling %d of %d sold tokens", tokens, tokensSold)
	}

	remaining := tokensSold - tokens
	b0 := p.bought(float64(tokensSold))
	b1 := p.bought(float64(remaining))

	out, err := toUint64(math.Floor((b0*b0 - b1*b1) / p.K * BaseScale))
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Amount: out,
		Price:  p.price(float64(remaining)),
	}, nil
}
