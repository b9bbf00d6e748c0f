package fee

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		bps      uint32
		expected int64
	}{
		{"standard rate", 1_000_000, 250, 25_000},
		{"zero rate", 1_000_000, 0, 0},
		{"max rate", 1_000_000, 1000, 100_000},
		{"floors fractional fee", 399, 250, 9},
		{"tiny amount rounds to zero", 39, 250, 0},
		{"zero amount", 0, 250, 0},
		{"max int64 does not overflow", math.MaxInt64, 1000, math.MaxInt64 / 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.amount, tt.bps)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCalculate_MatchesFloorFormula(t *testing.T) {
	for amount := int64(0); amount < 50_000; amount += 37 {
		got, err := Calculate(amount, 250)
		require.NoError(t, err)
		assert.Equal(t, amount*250/10000, got)
	}
}

func TestCalculate_Monotonic(t *testing.T) {
	t.Run("in amount", func(t *testing.T) {
		prev := int64(0)
		for amount := int64(0); amount < 100_000; amount += 113 {
			got, err := Calculate(amount, 333)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, prev)
			prev = got
		}
	})

	t.Run("in bps", func(t *testing.T) {
		prev := int64(0)
		for bps := uint32(0); bps <= MaxBps; bps++ {
			got, err := Calculate(987_654_321, bps)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, prev)
			prev = got
		}
	})
}

func TestCalculate_Rejects(t *testing.T) {
	_, err := Calculate(-1, 250)
	assert.Error(t, err)

	_, err = Calculate(100, MaxBps+1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestSplit(t *testing.T) {
	payout, fee, err := Split(1_000_000, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(975_000), payout)
	assert.Equal(t, int64(25_000), fee)
	assert.Equal(t, int64(1_000_000), payout+fee)
}
