package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogReturns(t *testing.T) {
	assert.Nil(t, LogReturns(nil))
	assert.Nil(t, LogReturns([]float64{100}))

	got := LogReturns([]float64{100, 110, 100})
	require.Len(t, got, 2)
	assert.InDelta(t, math.Log(1.1), got[0], 1e-12)
	assert.InDelta(t, -math.Log(1.1), got[1], 1e-12)
}

func TestLogReturnsSkipsNonPositivePrices(t *testing.T) {
	got := LogReturns([]float64{100, 0, 100})
	require.Len(t, got, 2)
	assert.Zero(t, got[0])
	assert.Zero(t, got[1])
}

func TestRealizedVolatilityFlatSeriesIsZero(t *testing.T) {
	returns := LogReturns([]float64{100, 100, 100, 100})
	assert.Zero(t, RealizedVolatility(returns, 3, BarsPerYear1m))
}

func TestRealizedVolatilityInsufficientData(t *testing.T) {
	assert.Zero(t, RealizedVolatility([]float64{0.01}, 2, BarsPerYear1m))
	assert.Zero(t, RealizedVolatility([]float64{0.01, 0.02}, 1, BarsPerYear1m))
}

func TestRealizedVolatilityAlternatingSeries(t *testing.T) {
	// returns are +ln(1.1), -ln(1.1): mean 0, sample variance 2*ln(1.1)^2
	returns := LogReturns([]float64{100, 110, 100})
	want := math.Sqrt2 * math.Log(1.1)
	assert.InDelta(t, want, RealizedVolatility(returns, 2, 1), 1e-12)
}

func TestVolTrackerWindow(t *testing.T) {
	tr := NewVolTracker(3, 1)

	for _, c := range []float64{100, 101, 100} {
		tr.Observe(c)
	}
	assert.False(t, tr.Ready())
	assert.Zero(t, tr.Value())

	tr.Observe(101)
	assert.True(t, tr.Ready())
	assert.Greater(t, tr.Value(), 0.0)

	// stays bounded at window+1 closes
	for i := 0; i < 100; i++ {
		tr.Observe(100)
	}
	assert.True(t, tr.Ready())
	assert.Zero(t, tr.Value())
}
