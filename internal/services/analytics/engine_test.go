package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowSight/internal/domain/models"
)

func bullishInputs() (*models.TPOProfile, *models.VWAPData, *models.OrderFlowMetrics) {
	profile := &models.TPOProfile{POC: 99, VAH: 103, VAL: 95}
	vwap := &models.VWAPData{
		VWAP:   100,
		Upper1: 102, Lower1: 98,
		Upper2: 104, Lower2: 96,
		Slope: 0.5,
	}
	flow := &models.OrderFlowMetrics{
		Delta:              50,
		Trend:              models.FlowBullish,
		OIChangePercent:    1.5,
		ConsecutiveBuyBars: 3,
	}
	return profile, vwap, flow
}

func bearishInputs() (*models.TPOProfile, *models.VWAPData, *models.OrderFlowMetrics) {
	profile := &models.TPOProfile{POC: 101, VAH: 105, VAL: 97}
	vwap := &models.VWAPData{
		VWAP:   100,
		Upper1: 102, Lower1: 98,
		Upper2: 104, Lower2: 96,
		Slope: -0.5,
	}
	flow := &models.OrderFlowMetrics{
		Delta:               -50,
		Trend:               models.FlowBearish,
		OIChangePercent:     1.5,
		ConsecutiveSellBars: 3,
	}
	return profile, vwap, flow
}

func TestLongEntryEmitted(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile, vwap, flow := bullishInputs()

	signal := e.Check(1_000_000, 100.5, profile, models.StructureVAHBreakout, vwap, flow)
	require.NotNil(t, signal)

	assert.Equal(t, models.SignalLongEntry, signal.Type)
	assert.Equal(t, "BTCUSDT", signal.Symbol)
	// TPO 0.25 + above-VWAP 0.15 + slope 0.10 + all four order-flow 0.35.
	assert.InDelta(t, 0.85, signal.Confidence, 1e-9)
	assert.True(t, signal.Conditions.VWAPAligned)
	assert.True(t, signal.Conditions.DeltaConfirmed)
	assert.True(t, signal.Conditions.CVDConfirmed)
	assert.True(t, signal.Conditions.OIConfirmed)
	assert.True(t, signal.Conditions.AggressiveFlow)
	assert.Same(t, profile, signal.TPO)
	assert.Same(t, vwap, signal.VWAP)
	assert.Same(t, flow, signal.OrderFlow)
}

func TestLongEntryConfidenceClamped(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile, vwap, flow := bullishInputs()

	// 100.05 is both above the VWAP and inside the pullback tolerance, so
	// the raw sum exceeds 1.0.
	signal := e.Check(1_000_000, 100.05, profile, models.StructureVALBounce, vwap, flow)
	require.NotNil(t, signal)
	assert.InDelta(t, 1.0, signal.Confidence, 1e-9)
}

func TestLongEntryRequiresTPOEvent(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile, vwap, flow := bullishInputs()

	assert.Nil(t, e.Check(1_000_000, 100.5, profile, "", vwap, flow))
	assert.Nil(t, e.Check(1_000_000, 100.5, profile, models.StructureVAHRejection, vwap, flow))
}

func TestLongEntryRequiresVWAPAlignment(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile, vwap, flow := bullishInputs()

	// Far below VWAP and outside pullback tolerance.
	assert.Nil(t, e.Check(1_000_000, 90, profile, models.StructureVALBounce, vwap, flow))
}

func TestLongEntryOrderFlowThreeOfFour(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile, vwap, flow := bullishInputs()
	flow.OIChangePercent = -0.5 // 3 of 4 left

	signal := e.Check(1_000_000, 100.5, profile, models.StructureVAHBreakout, vwap, flow)
	require.NotNil(t, signal)
	assert.False(t, signal.Conditions.OIConfirmed)
	assert.InDelta(t, 0.80, signal.Confidence, 1e-9)

	e2 := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	_, _, flow2 := bullishInputs()
	flow2.OIChangePercent = -0.5
	flow2.ConsecutiveBuyBars = 0 // 2 of 4 is not enough
	assert.Nil(t, e2.Check(1_000_000, 100.5, profile, models.StructureVAHBreakout, vwap, flow2))
}

func TestLongEntryRequireAllOrderflow(t *testing.T) {
	cfg := testSignalsConfig()
	cfg.Long.RequireAllOrderflow = true
	e := NewSignalEngine("BTCUSDT", cfg, testLogger(t))
	profile, vwap, flow := bullishInputs()
	flow.OIChangePercent = -0.5

	assert.Nil(t, e.Check(1_000_000, 100.5, profile, models.StructureVAHBreakout, vwap, flow))
}

func TestShortEntryEmitted(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile, vwap, flow := bearishInputs()

	signal := e.Check(1_000_000, 99.5, profile, models.StructureVAHRejection, vwap, flow)
	require.NotNil(t, signal)
	assert.Equal(t, models.SignalShortEntry, signal.Type)
	// TPO 0.25 + below-VWAP 0.15 + slope 0.10 + all four order-flow 0.35.
	assert.InDelta(t, 0.85, signal.Confidence, 1e-9)
}

func TestSignalCooldownPerCategory(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile, vwap, flow := bullishInputs()

	first := e.Check(1_000_000, 100.5, profile, models.StructureVAHBreakout, vwap, flow)
	require.NotNil(t, first)

	// One second later: still cooling down.
	assert.Nil(t, e.Check(1_001_000, 100.5, profile, models.StructureVAHBreakout, vwap, flow))

	// After the 300s window a new long can fire.
	later := e.Check(1_000_000+301_000, 100.5, profile, models.StructureVAHBreakout, vwap, flow)
	require.NotNil(t, later)
	assert.Equal(t, models.SignalLongEntry, later.Type)
}

func TestUpsideFailureEmitted(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile := &models.TPOProfile{POC: 99, VAH: 103, VAL: 95}
	vwap := &models.VWAPData{VWAP: 100, Upper1: 102, Lower1: 98, Upper2: 104, Lower2: 96}
	flow := &models.OrderFlowMetrics{
		Delta:              -20,
		Trend:              models.FlowNeutral,
		AbsorptionDetected: true,
	}

	// Price pinned at VAH, which is also the session high on first sight.
	signal := e.Check(1_000_000, 103, profile, "", vwap, flow)
	require.NotNil(t, signal)
	assert.Equal(t, models.SignalShortFailure, signal.Type)
	// 0.2 proximity + 0.3 delta flip + 0.2 divergence + 0.3 absorption.
	assert.InDelta(t, 1.0, signal.Confidence, 1e-9)
	assert.True(t, signal.Conditions.DeltaFlip)
	assert.True(t, signal.Conditions.CVDDivergence)
	assert.True(t, signal.Conditions.Absorption)
}

func TestDownsideFailureEmitted(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile := &models.TPOProfile{POC: 101, VAH: 105, VAL: 97}
	vwap := &models.VWAPData{VWAP: 100, Upper1: 102, Lower1: 98, Upper2: 104, Lower2: 96}
	flow := &models.OrderFlowMetrics{
		Delta:              20,
		Trend:              models.FlowNeutral,
		AbsorptionDetected: false,
	}

	signal := e.Check(1_000_000, 97, profile, "", vwap, flow)
	require.NotNil(t, signal)
	assert.Equal(t, models.SignalLongFailure, signal.Type)
	// 0.2 proximity + 0.3 delta flip + 0.2 divergence.
	assert.InDelta(t, 0.7, signal.Confidence, 1e-9)
}

func TestFailureRequiresRecentExtreme(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile := &models.TPOProfile{POC: 99, VAH: 103, VAL: 95}
	vwap := &models.VWAPData{VWAP: 100, Upper1: 102, Lower1: 98, Upper2: 104, Lower2: 96}
	flow := &models.OrderFlowMetrics{Delta: -20, Trend: models.FlowNeutral, AbsorptionDetected: true}

	// Establish a much higher session high first; 103 is then not at the
	// highs and the upside failure cannot fire.
	quiet := &models.OrderFlowMetrics{Delta: 5, Trend: models.FlowBullish}
	assert.Nil(t, e.Check(1_000_000, 110, profile, "", vwap, quiet))
	assert.Nil(t, e.Check(1_060_000, 103, profile, "", vwap, flow))
}

func TestFailureBeatsLongEntry(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile, vwap, flow := bullishInputs()
	flow.Delta = -10 // kills one long condition but arms the failure check
	flow.Trend = models.FlowNeutral
	flow.AbsorptionDetected = true

	// 103 sits at VAH: both a breakout long and an upside failure are
	// plausible; the failure check runs first.
	signal := e.Check(1_000_000, 103, profile, models.StructureVAHBreakout, vwap, flow)
	require.NotNil(t, signal)
	assert.Equal(t, models.SignalShortFailure, signal.Type)
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile, vwap, flow := bullishInputs()

	events := []models.StructureEvent{
		models.StructureVALBounce, models.StructurePOCReclaim, models.StructureVAHBreakout,
	}
	now := int64(1_000_000)
	for _, ev := range events {
		signal := e.Check(now, 100.05, profile, ev, vwap, flow)
		if signal != nil {
			assert.GreaterOrEqual(t, signal.Confidence, 0.0)
			assert.LessOrEqual(t, signal.Confidence, 1.0)
		}
		now += 400_000
	}
}

func TestResetExtremes(t *testing.T) {
	e := NewSignalEngine("BTCUSDT", testSignalsConfig(), testLogger(t))
	profile := &models.TPOProfile{POC: 99, VAH: 103, VAL: 95}
	vwap := &models.VWAPData{VWAP: 100, Upper1: 102, Lower1: 98, Upper2: 104, Lower2: 96}
	quiet := &models.OrderFlowMetrics{Delta: 5, Trend: models.FlowBullish}

	assert.Nil(t, e.Check(1_000_000, 110, profile, "", vwap, quiet))
	e.ResetExtremes()

	// After the reset 103 is the new high, so the failure pattern can fire.
	flow := &models.OrderFlowMetrics{Delta: -20, Trend: models.FlowNeutral, AbsorptionDetected: true}
	signal := e.Check(1_060_000, 103, profile, "", vwap, flow)
	require.NotNil(t, signal)
	assert.Equal(t, models.SignalShortFailure, signal.Type)
}
