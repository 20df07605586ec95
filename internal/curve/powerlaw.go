// internal/curve/powerlaw.go
package curve

import (
	"math"

	errorsmod "cosmossdk.io/errors"

	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// PowerLawParams описывает кривую price(x) = E·x^(E−1)/(B·10^P) + MIN_PRICE,
// где x - проданные токены в целых единицах, цена в SOL за токен.
type PowerLawParams struct {
	Exponent       float64 `mapstructure:"exponent"`
	ProportionBase float64 `mapstructure:"proportion_base"`
	ProportionExp  int32   `mapstructure:"proportion_exp"`
	MinPrice       float64 `mapstructure:"min_price"`
	TokenScale     float64 `mapstructure:"token_scale"`
	// Iterations ограничивает число уточнений решателя покупки.
	Iterations uint8 `mapstructure:"iterations"`
	// Tolerance - допустимая ошибка площади в SOL для раннего выхода.
	Tolerance float64 `mapstructure:"tolerance"`
}

func DefaultPowerLaw() PowerLawParams {
	return PowerLawParams{
		Exponent:       4.62,
		ProportionBase: 2.26,
		ProportionExp:  39,
		MinPrice:       0.000000035,
		TokenScale:     float64(types.TokenUnit),
		Iterations:     3,
		Tolerance:      0.001,
	}
}

func (p PowerLawParams) Validate() error {
	if p.Exponent <= 1 || p.ProportionBase <= 0 || p.MinPrice <= 0 || p.TokenScale <= 0 || p.Tolerance <= 0 {
		return errorsmod.Wrapf(types.ErrCalculationError,
			"invalid power-law params: exponent=%v base=%v min_price=%v token_scale=%v tolerance=%v",
			p.Exponent, p.ProportionBase, p.MinPrice, p.TokenScale, p.Tolerance)
	}
	return nil
}

func (p PowerLawParams) proportion() float64 {
	return p.ProportionBase * math.Pow10(int(p.ProportionExp))
}

// price - предельная цена в точке x.
func (p PowerLawParams) price(x float64) float64 {
	return p.Exponent*math.Pow(x, p.Exponent-1)/p.proportion() + p.MinPrice
}

// integral - первообразная price: стоимость в SOL покупки первых x токенов.
func (p PowerLawParams) integral(x float64) float64 {
	return math.Pow(x, p.Exponent)/p.proportion() + p.MinPrice*x
}

// MaxSolveError - предельная относительная ошибка площади после всех уточнений.
// Решение хуже этого отклоняется, а не исполняется.
const MaxSolveError = 0.01

// buy ищет x1 такое, что I(x1) − I(x0) = a. Начальная оценка по предельной цене,
// затем не более Iterations масштабирований дельты на a/area.
func (p PowerLawParams) buy(tokensSold, netBase uint64) (Quote, error) {
	a := float64(netBase) / BaseScale
	x0 := float64(tokensSold) / p.TokenScale
	base := p.integral(x0)

	delta := a / p.price(x0)
	for i := uint8(0); i < p.Iterations; i++ {
		area := p.integral(x0+delta) - base
		if math.Abs(area-a) < p.Tolerance {
			break
		}
		if area <= 0 || math.IsNaN(area) {
			return Quote{}, errorsmod.Wrapf(types.ErrCalculationError,
				"degenerate area %v at x0=%v delta=%v", area, x0, delta)
		}
		delta *= a / area
	}

	area := p.integral(x0+delta) - base
	if miss := math.Abs(area-a) / a; math.IsNaN(miss) || miss >= MaxSolveError {
		return Quote{}, errorsmod.Wrapf(types.ErrCalculationError,
			"solver did not converge: area %v for %v SOL at x0=%v (error %.4f)", area, a, x0, miss)
	}

	out, err := toUint64(math.Round(delta * p.TokenScale))
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Amount: out,
		Price:  p.price(x0 + delta),
	}, nil
}

// sell считается напрямую через интеграл. Если продажа опускает x до нуля и ниже,
// пул отдает весь резерв по минимальной цене.
func (p PowerLawParams) sell(tokensSold, tokens, reserveBase uint64) (Quote, error) {
	x0 := float64(tokensSold) / p.TokenScale
	x1 := x0 - float64(tokens)/p.TokenScale

	if x1 <= 0 {
		return Quote{Amount: reserveBase, Price: p.MinPrice, Drained: true}, nil
	}

	out, err := toUint64(math.Floor((p.integral(x0) - p.integral(x1)) * BaseScale))
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Amount: out,
		Price:  p.price(x1),
	}, nil
}
