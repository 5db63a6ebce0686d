package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowSight/internal/domain/models"
)

func TestTPOProfileHandComputed(t *testing.T) {
	tpo, err := NewTPOAnalyzer("BTCUSDT", testTPOConfig(), testLogger(t))
	require.NoError(t, err)

	// Ten single-price bars producing volume 100/200/400/200/100 at 100..104.
	bars := []struct {
		price  float64
		volume float64
	}{
		{100, 50}, {100, 50},
		{101, 100}, {101, 100},
		{102, 200}, {102, 200},
		{103, 100}, {103, 100},
		{104, 50}, {104, 50},
	}
	for i, b := range bars {
		tpo.Update(barAt(i, b.price, b.volume))
	}

	profile := tpo.Profile()
	require.NotNil(t, profile)

	// POC is 102 (volume 400). Expansion: tie at 101/103 prefers the upper
	// side (600), then 101 (800) crosses the 700 target.
	assert.Equal(t, 102.0, profile.POC)
	assert.Equal(t, 103.0, profile.VAH)
	assert.Equal(t, 101.0, profile.VAL)
	assert.InDelta(t, 1000.0, profile.TotalVolume, 1e-9)
	assert.InDelta(t, 800.0, profile.ValueAreaVolume, 1e-9)
	assert.LessOrEqual(t, profile.VAL, profile.POC)
	assert.LessOrEqual(t, profile.POC, profile.VAH)
}

func TestTPOValueAreaReachesTarget(t *testing.T) {
	tpo, err := NewTPOAnalyzer("BTCUSDT", testTPOConfig(), testLogger(t))
	require.NoError(t, err)

	prices := []float64{95, 97, 99, 100, 100, 101, 103, 104, 108, 110}
	for i, p := range prices {
		tpo.Update(barAt(i, p, float64(10+i*3)))
	}

	profile := tpo.Profile()
	require.NotNil(t, profile)
	assert.GreaterOrEqual(t, profile.ValueAreaVolume, 0.7*profile.TotalVolume)
}

func TestTPOPOCTieBreaksToLowestPrice(t *testing.T) {
	tpo, err := NewTPOAnalyzer("BTCUSDT", testTPOConfig(), testLogger(t))
	require.NoError(t, err)

	tpo.Update(barAt(0, 100, 300))
	tpo.Update(barAt(1, 102, 300))

	require.NotNil(t, tpo.Profile())
	assert.Equal(t, 100.0, tpo.Profile().POC)
}

func TestTPOVAHBreakoutEvent(t *testing.T) {
	tpo, err := NewTPOAnalyzer("BTCUSDT", testTPOConfig(), testLogger(t))
	require.NoError(t, err)

	bars := []struct {
		price  float64
		volume float64
	}{
		{100, 100}, {101, 200}, {102, 400}, {103, 200}, {104, 100},
	}
	for i, b := range bars {
		tpo.Update(barAt(i, b.price, b.volume))
	}
	require.Equal(t, 103.0, tpo.Profile().VAH)

	// Last close was 104 — walk back inside first so the next bar crosses
	// VAH from below.
	event, ok := tpo.Update(barAt(5, 102, 1))
	_ = event
	_ = ok

	event, ok = tpo.Update(barAt(6, 103.5, 1))
	require.True(t, ok)
	assert.Equal(t, models.StructureVAHBreakout, event)
}

func TestTPOValueAreaTransitionEvents(t *testing.T) {
	tpo, err := NewTPOAnalyzer("BTCUSDT", testTPOConfig(), testLogger(t))
	require.NoError(t, err)

	// Drive the detector directly against a fixed profile so the rebuild
	// from a new bar cannot move the boundaries mid-assertion.
	tpo.current = &models.TPOProfile{POC: 120, VAH: 130, VAL: 110}
	tpo.lastPrice = 140
	tpo.hasLast = true

	event, ok := tpo.detectStructureEvent(120.5)
	require.True(t, ok)
	assert.Equal(t, models.StructureInsideValue, event)

	tpo.lastPrice = 120.5
	event, ok = tpo.detectStructureEvent(140)
	require.True(t, ok)
	assert.Equal(t, models.StructureOutsideValue, event)

	// Inside to inside is quiet.
	tpo.lastPrice = 120.5
	_, ok = tpo.detectStructureEvent(121)
	assert.False(t, ok)
}

func TestTPOEventPrecedenceVAHFirst(t *testing.T) {
	tpo, err := NewTPOAnalyzer("BTCUSDT", testTPOConfig(), testLogger(t))
	require.NoError(t, err)

	// A degenerate profile where one crossing is near both VAH and POC;
	// the VAH interpretation must win.
	tpo.current = &models.TPOProfile{POC: 128, VAH: 130, VAL: 110}
	tpo.lastPrice = 127
	tpo.hasLast = true

	event, ok := tpo.detectStructureEvent(130)
	require.True(t, ok)
	assert.Equal(t, models.StructureVAHBreakout, event)
}

func TestTPOSessionRollover(t *testing.T) {
	tpo, err := NewTPOAnalyzer("BTCUSDT", testTPOConfig(), testLogger(t))
	require.NoError(t, err)

	tpo.Update(barAt(0, 100, 500))
	firstSession := tpo.SessionStart()
	require.NotNil(t, tpo.Profile())

	next := models.Candle{
		Timestamp: time.Date(2024, 10, 11, 0, 5, 0, 0, time.UTC).UnixMilli(),
		Open:      200, High: 200, Low: 200, Close: 200, Volume: 50,
	}
	tpo.Update(next)

	assert.NotEqual(t, firstSession, tpo.SessionStart())
	require.NotNil(t, tpo.PreviousProfile())
	assert.Equal(t, 100.0, tpo.PreviousProfile().POC)
	assert.Equal(t, 200.0, tpo.Profile().POC)
	assert.InDelta(t, 50.0, tpo.Profile().TotalVolume, 1e-9)
}

func TestTPORangeCandleDistributesVolume(t *testing.T) {
	tpo, err := NewTPOAnalyzer("BTCUSDT", testTPOConfig(), testLogger(t))
	require.NoError(t, err)

	candle := barAt(0, 100, 0)
	candle.Low = 100
	candle.High = 104
	candle.Close = 102
	candle.Volume = 500
	tpo.Update(candle)

	profile := tpo.Profile()
	require.NotNil(t, profile)
	require.Len(t, profile.Levels, 5)
	for _, level := range profile.Levels {
		assert.InDelta(t, 100.0, level.Volume, 1e-9)
	}
	assert.InDelta(t, 500.0, profile.TotalVolume, 1e-9)
}

func TestTPONearKeyLevel(t *testing.T) {
	tpo, err := NewTPOAnalyzer("BTCUSDT", testTPOConfig(), testLogger(t))
	require.NoError(t, err)

	bars := []struct {
		price  float64
		volume float64
	}{
		{100, 100}, {110, 200}, {120, 400}, {130, 200}, {140, 100},
	}
	for i, b := range bars {
		tpo.Update(barAt(i, b.price, b.volume))
	}

	near, level := tpo.IsNearKeyLevel(129)
	assert.True(t, near)
	assert.Equal(t, "VAH", level)

	near, _ = tpo.IsNearKeyLevel(150)
	assert.False(t, near)
}
