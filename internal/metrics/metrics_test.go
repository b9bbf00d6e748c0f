package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered sums every sample of the named family, whatever its labels.
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var total float64
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		return total
	}
	return 0
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOperation("Deposit", "", time.Millisecond)
	m.ObserveOperation("Deposit", "INVALID_ESCROW_STATE", time.Millisecond)
	m.AddMoved("LENDER_PAYOUT", 975)
	m.AddMoved("LENDER_PAYOUT", 0)
	m.AddFees(25)
	m.SetCustody(1500)
	m.RateLimited("/rentalescrow.v1.EscrowService/Deposit")

	assert.Equal(t, 2.0, gathered(t, reg, "escrow_operations_total"))
	assert.Equal(t, 2.0, gathered(t, reg, "escrow_operation_duration_seconds"))
	assert.Equal(t, 975.0, gathered(t, reg, "escrow_funds_moved_total"))
	assert.Equal(t, 25.0, gathered(t, reg, "escrow_platform_fees_total"))
	assert.Equal(t, 1500.0, gathered(t, reg, "escrow_custody_balance"))
	assert.Equal(t, 1.0, gathered(t, reg, "escrow_rate_limited_total"))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("Deposit", "", time.Millisecond)
		m.AddFees(1)
		m.SetCustody(1)
		m.RateLimited("x")
	})
}
