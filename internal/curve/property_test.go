package curve

import (
	"errors"
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// Buying then immediately selling the received tokens never returns more than was paid.
func TestProportionalRoundTripProperty(t *testing.T) {
	m := Default(Proportional)

	rapid.Check(t, func(t *rapid.T) {
		sold := rapid.Uint64Range(0, 700_000_000*types.TokenUnit).Draw(t, "sold")
		amount := rapid.Uint64Range(1, 50*types.LamportsPerSOL).Draw(t, "amount")

		bought, err := m.Buy(sold, amount)
		if err != nil {
			t.Fatalf("buy: %v", err)
		}
		if bought.Amount == 0 {
			return
		}

		back, err := m.Sell(sold+bought.Amount, bought.Amount, 0)
		if err != nil {
			t.Fatalf("sell: %v", err)
		}
		if back.Amount > amount {
			t.Fatalf("round trip created value: paid %d, got back %d", amount, back.Amount)
		}
	})
}

// The bounded solver either lands within MaxSolveError of the requested area or
// refuses the trade.
func TestPowerLawSolverConvergenceProperty(t *testing.T) {
	m := Default(PowerLaw)
	p := m.PowerLaw

	rapid.Check(t, func(t *rapid.T) {
		sold := rapid.Uint64Range(0, 800_000_000*types.TokenUnit-1).Draw(t, "sold")
		amount := rapid.Uint64Range(1_000_000, 1_000*types.LamportsPerSOL).Draw(t, "amount")

		q, err := m.Buy(sold, amount)
		if err != nil {
			if !errors.Is(err, types.ErrCalculationError) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}

		x0 := float64(sold) / p.TokenScale
		x1 := x0 + float64(q.Amount)/p.TokenScale
		a := float64(amount) / BaseScale

		rel := math.Abs(p.integral(x1)-p.integral(x0)-a) / a
		if rel >= MaxSolveError {
			t.Fatalf("solver error %.4f for sold=%d amount=%d", rel, sold, amount)
		}
	})
}

func TestPriceMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom([]Kind{Proportional, PowerLaw}).Draw(t, "kind")
		m := Default(kind)

		lo := rapid.Uint64Range(0, 799_000_000*types.TokenUnit).Draw(t, "lo")
		step := rapid.Uint64Range(types.TokenUnit, 1_000_000*types.TokenUnit).Draw(t, "step")

		if m.Price(lo+step) < m.Price(lo) {
			t.Fatalf("%s price decreased between %d and %d", kind, lo, lo+step)
		}
	})
}
