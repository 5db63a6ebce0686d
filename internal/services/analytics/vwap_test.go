package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowSight/internal/domain/models"
)

func TestVWAPMatchesFormula(t *testing.T) {
	v, err := NewVWAPCalculator("BTCUSDT", testVWAPConfig(), testLogger(t))
	require.NoError(t, err)

	candles := []models.Candle{
		{Timestamp: barAt(0, 0, 0).Timestamp, Open: 100, High: 102, Low: 98, Close: 100, Volume: 10},
		{Timestamp: barAt(1, 0, 0).Timestamp, Open: 100, High: 106, Low: 100, Close: 104, Volume: 20},
		{Timestamp: barAt(2, 0, 0).Timestamp, Open: 104, High: 108, Low: 102, Close: 106, Volume: 5},
	}

	var sumPV, sumV float64
	var data *models.VWAPData
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		sumPV += typical * c.Volume
		sumV += c.Volume
		data = v.Update(c)
	}

	require.NotNil(t, data)
	assert.InDelta(t, sumPV/sumV, data.VWAP, 1e-9)
	assert.InDelta(t, sumPV, data.CumulativePV, 1e-9)
	assert.InDelta(t, sumV, data.CumulativeVolume, 1e-9)
}

func TestVWAPBandOrdering(t *testing.T) {
	v, err := NewVWAPCalculator("BTCUSDT", testVWAPConfig(), testLogger(t))
	require.NoError(t, err)

	var data *models.VWAPData
	prices := []float64{100, 105, 95, 110, 90}
	for i, p := range prices {
		c := barAt(i, p, 10)
		c.High = p + 2
		c.Low = p - 2
		data = v.Update(c)
	}

	require.NotNil(t, data)
	assert.LessOrEqual(t, data.Lower2, data.Lower1)
	assert.LessOrEqual(t, data.Lower1, data.VWAP)
	assert.LessOrEqual(t, data.VWAP, data.Upper1)
	assert.LessOrEqual(t, data.Upper1, data.Upper2)
}

func TestVWAPSingleBarDegenerateBands(t *testing.T) {
	v, err := NewVWAPCalculator("BTCUSDT", testVWAPConfig(), testLogger(t))
	require.NoError(t, err)

	data := v.Update(barAt(0, 100, 10))
	require.NotNil(t, data)

	// One price, zero variance: all bands collapse onto the VWAP.
	assert.InDelta(t, data.VWAP, data.Upper1, 1e-9)
	assert.InDelta(t, data.VWAP, data.Lower2, 1e-9)
}

func TestVWAPSessionReset(t *testing.T) {
	v, err := NewVWAPCalculator("BTCUSDT", testVWAPConfig(), testLogger(t))
	require.NoError(t, err)

	v.Update(barAt(0, 100, 50))
	v.Update(barAt(1, 101, 50))

	next := models.Candle{
		Timestamp: time.Date(2024, 10, 11, 0, 1, 0, 0, time.UTC).UnixMilli(),
		Open:      200, High: 200, Low: 200, Close: 200, Volume: 10,
	}
	data := v.Update(next)

	assert.InDelta(t, 10.0, data.CumulativeVolume, 1e-9)
	assert.InDelta(t, 200.0, data.VWAP, 1e-9)
}

func TestVWAPSlopePositiveOnRisingPrices(t *testing.T) {
	v, err := NewVWAPCalculator("BTCUSDT", testVWAPConfig(), testLogger(t))
	require.NoError(t, err)

	var data *models.VWAPData
	for i := 0; i < 5; i++ {
		data = v.Update(barAt(i, 100+float64(i)*5, 10))
	}

	require.NotNil(t, data)
	assert.Greater(t, data.Slope, 0.0)
	assert.True(t, v.IsTrendingUp())
	assert.False(t, v.IsTrendingDown())
}

func TestVWAPPullbackConfirmation(t *testing.T) {
	v, err := NewVWAPCalculator("BTCUSDT", testVWAPConfig(), testLogger(t))
	require.NoError(t, err)

	// Identical bars keep the close glued to the VWAP.
	v.Update(barAt(0, 100, 10))
	assert.True(t, v.IsPullback(100))
	assert.False(t, v.IsPullbackConfirmed())

	v.Update(barAt(1, 100, 10))
	assert.True(t, v.IsPullbackConfirmed())

	// A close far from VWAP breaks the streak.
	v.Update(barAt(2, 120, 10))
	assert.False(t, v.IsPullbackConfirmed())
}

func TestVWAPBandLevelNames(t *testing.T) {
	v, err := NewVWAPCalculator("BTCUSDT", testVWAPConfig(), testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "UNKNOWN", v.BandLevel(100))

	prices := []float64{100, 110, 90, 105, 95}
	for i, p := range prices {
		v.Update(barAt(i, p, 10))
	}
	data := v.Data()
	require.NotNil(t, data)

	assert.Equal(t, "VWAP", v.BandLevel(data.VWAP))
	assert.Equal(t, "+1SD", v.BandLevel(data.Upper1))
	assert.Equal(t, "-2SD", v.BandLevel(data.Lower2))
}
