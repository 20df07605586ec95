package fees

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		gross    uint64
		rate     float64
		share    float64
		net      uint64
		platform uint64
		creator  uint64
	}{
		{"one percent of ten SOL", 10_000_000_000, 1, 0.5, 9_900_000_000, 50_000_000, 50_000_000},
		{"zero rate", 1_000, 0, 0.5, 1_000, 0, 0},
		{"whole amount", 1_000, 100, 0.5, 0, 500, 500},
		{"half lamport rounds up", 50, 1, 0.5, 49, 1, 0},
		{"odd fee goes mostly to platform", 300, 1, 0.5, 297, 2, 1},
		{"creator only", 1_000, 2, 0, 980, 0, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compute(tt.gross, tt.rate, tt.share)
			require.NoError(t, err)
			assert.Equal(t, tt.net, s.Net)
			assert.Equal(t, tt.platform, s.Platform)
			assert.Equal(t, tt.creator, s.Creator)
			assert.Equal(t, tt.gross, s.Net+s.Total())
		})
	}
}

func TestComputeRejectsBadRate(t *testing.T) {
	for _, rate := range []float64{-0.1, 100.5, 150} {
		_, err := Compute(1_000, rate, 0.5)
		assert.ErrorIs(t, err, types.ErrInvalidFeePercentage)
	}

	_, err := Compute(1_000, 1, 1.5)
	assert.ErrorIs(t, err, types.ErrInvalidFee)
}

func TestComputeNearMaxUint64(t *testing.T) {
	_, err := Compute(math.MaxUint64, 100, 0.5)
	assert.ErrorIs(t, err, types.ErrOverflowOrUnderflowOccurred)

	s, err := Compute(math.MaxUint64, 50, 0.5)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), s.Net+s.Platform+s.Creator)
}

func TestComputeConservesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gross := rapid.Uint64Range(0, 1_000_000*types.LamportsPerSOL).Draw(t, "gross")
		rate := rapid.Float64Range(0, 100).Draw(t, "rate")
		share := rapid.Float64Range(0, 1).Draw(t, "share")

		s, err := Compute(gross, rate, share)
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if s.Net+s.Platform+s.Creator != gross {
			t.Fatalf("split leaks value: %+v", s)
		}
	})
}
